// Package fhirmap projects parsed HL7 v2 messages onto FHIR R4 resources.
//
// The projection covers the segments the codec types: PID and NK1 become a
// Patient, PV1 an Encounter, ORC+RXE a MedicationRequest, RXD a
// MedicationDispense, RXR the route of the preceding medication and AL1 an
// AllergyIntolerance. Each resource remembers the segment it came from so
// rule failures can be reported against HL7 addresses.
package fhirmap

import (
	"encoding/json"
	"strings"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/hl7v2/pkg/datatype"
	"github.com/gofhir/hl7v2/pkg/message"
	"github.com/gofhir/hl7v2/pkg/segment"
	"github.com/gofhir/hl7v2/pkg/structure"
)

// Resource is one projected FHIR resource.
type Resource struct {
	// Type is the FHIR resource type, e.g. "Patient".
	Type string
	// Segment is the address label of the source segment, e.g. "RXE(2)".
	Segment string
	// Body is the JSON-ready resource, including "resourceType".
	Body map[string]any
}

// JSON marshals the resource body.
func (r Resource) JSON() ([]byte, error) {
	return json.Marshal(r.Body)
}

func newResource(typ, label string) Resource {
	return Resource{Type: typ, Segment: label, Body: map[string]any{"resourceType": typ}}
}

// Project maps every typed segment of m onto FHIR resources, in segment
// order. Generic segments are skipped.
func Project(m *message.Message) []Resource {
	labels := structure.Labels(m.IDs())
	var (
		out     []Resource
		patient map[string]any
		order   *segment.ORC
		lastMed map[string]any
	)
	for i, s := range m.Segments() {
		label := labels[i]
		switch v := s.(type) {
		case *segment.PID:
			r := projectPatient(v, label)
			patient = r.Body
			out = append(out, r)
		case *segment.NK1:
			if patient != nil {
				contacts, _ := patient["contact"].([]any)
				patient["contact"] = append(contacts, contact(v))
			}
		case *segment.PV1:
			out = append(out, projectEncounter(v, label))
		case *segment.AL1:
			out = append(out, projectAllergy(v, label))
		case *segment.ORC:
			order = v
		case *segment.RXE:
			r := projectRequest(v, order, label)
			lastMed = r.Body
			out = append(out, r)
		case *segment.RXD:
			r := projectDispense(v, label)
			lastMed = r.Body
			out = append(out, r)
		case *segment.RXR:
			if lastMed != nil {
				addRoute(lastMed, v)
			}
		}
	}
	return out
}

func projectPatient(pid *segment.PID, label string) Resource {
	r := newResource("Patient", label)
	if ids := pid.Identifiers(); len(ids) > 0 {
		list := make([]r4.Identifier, 0, len(ids))
		for _, id := range ids {
			if id.ID != "" {
				list = append(list, Identifier(id))
			}
		}
		if len(list) > 0 {
			r.Body["identifier"] = list
		}
	}
	if n := humanName(pid.Name()); n != nil {
		r.Body["name"] = []any{n}
	}
	if t, ok := pid.BirthDate(); ok {
		r.Body["birthDate"] = t.Format("2006-01-02")
	}
	if g := Gender(pid.Sex()); g != "" {
		r.Body["gender"] = g
	}
	return r
}

func humanName(n datatype.Name) map[string]any {
	out := map[string]any{}
	if n.Family != "" {
		out["family"] = n.Family
	}
	var given []string
	for _, g := range []string{n.Given, n.Middle} {
		if g != "" {
			given = append(given, g)
		}
	}
	if len(given) > 0 {
		out["given"] = given
	}
	if n.Prefix != "" {
		out["prefix"] = []string{n.Prefix}
	}
	if n.Suffix != "" {
		out["suffix"] = []string{n.Suffix}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func contact(k *segment.NK1) map[string]any {
	c := map[string]any{}
	if n := humanName(k.Name()); n != nil {
		c["name"] = n
	}
	if rel := k.Relationship(); rel != "" {
		c["relationship"] = []*r4.CodeableConcept{CodeableConcept(datatype.CodedValue{Identifier: rel, System: "HL70063"})}
	}
	return c
}

func projectEncounter(pv1 *segment.PV1, label string) Resource {
	r := newResource("Encounter", label)
	r.Body["status"] = "in-progress"
	if class := pv1.PatientClass(); class != "" {
		r.Body["class"] = EncounterClass(class)
	}
	if n := pv1.VisitNumber(); n != "" {
		r.Body["identifier"] = []r4.Identifier{{Value: str(n)}}
	}
	if loc := pv1.Location(); loc != "" {
		r.Body["location"] = []any{map[string]any{"location": map[string]any{"display": loc}}}
	}
	return r
}

func projectAllergy(al1 *segment.AL1, label string) Resource {
	r := newResource("AllergyIntolerance", label)
	if cc := CodeableConcept(al1.Allergen()); cc != nil {
		r.Body["code"] = cc
	}
	switch al1.Severity() {
	case "SV":
		r.Body["criticality"] = "high"
	case "MO", "MI":
		r.Body["criticality"] = "low"
	}
	return r
}

func projectRequest(rxe *segment.RXE, orc *segment.ORC, label string) Resource {
	r := newResource("MedicationRequest", label)
	r.Body["intent"] = "order"
	r.Body["status"] = "active"
	if orc != nil {
		r.Body["status"] = RequestStatus(orc.OrderControl())
		if id := orc.PlacerOrderNumber(); id != "" {
			r.Body["identifier"] = []r4.Identifier{{Value: str(id)}}
		}
	}
	if cc := CodeableConcept(rxe.GiveCode()); cc != nil {
		r.Body["medicationCodeableConcept"] = cc
	}
	if amount, ok := rxe.GiveAmount(); ok {
		dose := map[string]any{"value": amount.InexactFloat64()}
		if u := codedAt(rxe, 5); u.Identifier != "" {
			dose["unit"] = u.Identifier
		}
		r.Body["dosageInstruction"] = []any{map[string]any{
			"doseAndRate": []any{map[string]any{"doseQuantity": dose}},
		}}
	}
	return r
}

func projectDispense(rxd *segment.RXD, label string) Resource {
	r := newResource("MedicationDispense", label)
	r.Body["status"] = "completed"
	if id := rxd.PrescriptionNumber(); id != "" {
		r.Body["identifier"] = []r4.Identifier{{Value: str(id)}}
	}
	if cc := CodeableConcept(rxd.DispenseCode()); cc != nil {
		r.Body["medicationCodeableConcept"] = cc
	}
	if amount, ok := rxd.Amount(); ok {
		q := map[string]any{"value": amount.InexactFloat64()}
		if u := codedAt(rxd, 5); u.Identifier != "" {
			q["unit"] = u.Identifier
		}
		r.Body["quantity"] = q
	}
	if t, ok := rxd.DispensedAt(); ok {
		r.Body["whenHandedOver"] = t.Format("2006-01-02T15:04:05Z07:00")
	}
	return r
}

// addRoute sets the route of the first dosage instruction of a medication
// resource, creating the instruction when needed.
func addRoute(med map[string]any, rxr *segment.RXR) {
	cc := CodeableConcept(codedAt(rxr, 1))
	if cc == nil {
		return
	}
	list, _ := med["dosageInstruction"].([]any)
	if len(list) == 0 {
		list = []any{map[string]any{}}
	}
	if first, ok := list[0].(map[string]any); ok {
		first["route"] = cc
	}
	med["dosageInstruction"] = list
}

type fielder interface {
	First(n int) datatype.Field
}

func codedAt(s fielder, n int) datatype.CodedValue {
	if c, ok := s.First(n).(*datatype.Coded); ok {
		return c.Value()
	}
	return datatype.CodedValue{}
}

// Gender maps an HL7 administrative sex code (table 0001) onto the FHIR
// administrative-gender code. Empty input maps to "".
func Gender(sex string) string {
	switch strings.ToUpper(sex) {
	case "":
		return ""
	case "M":
		return "male"
	case "F":
		return "female"
	case "O", "A":
		return "other"
	default:
		return "unknown"
	}
}

// EncounterClass maps a PV1-2 patient class onto a v3 ActCode coding.
func EncounterClass(class string) r4.Coding {
	code := map[string]string{
		"I": "IMP",
		"O": "AMB",
		"E": "EMER",
		"P": "PRENC",
		"R": "AMB",
		"B": "OBSENC",
	}[strings.ToUpper(class)]
	if code == "" {
		code = class
	}
	return Coding(code, "", "http://terminology.hl7.org/CodeSystem/v3-ActCode")
}

// RequestStatus maps an ORC-1 order control code onto a MedicationRequest
// status.
func RequestStatus(control string) string {
	switch strings.ToUpper(control) {
	case "CA", "OC", "CR":
		return "cancelled"
	case "DC", "OD", "DR":
		return "stopped"
	case "HD", "OH":
		return "on-hold"
	default:
		return "active"
	}
}
