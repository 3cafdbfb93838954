package fhirmap

import (
	"strings"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/hl7v2/pkg/datatype"
)

// Well-known HL7 coding system names and their FHIR system URIs.
var systemURIs = map[string]string{
	"NDC":    "http://hl7.org/fhir/sid/ndc",
	"LN":     "http://loinc.org",
	"SCT":    "http://snomed.info/sct",
	"SNM":    "http://snomed.info/sct",
	"RXNORM": "http://www.nlm.nih.gov/research/umls/rxnorm",
	"I10":    "http://hl7.org/fhir/sid/icd-10",
	"I9C":    "http://hl7.org/fhir/sid/icd-9-cm",
	"UCUM":   "http://unitsofmeasure.org",
	"CVX":    "http://hl7.org/fhir/sid/cvx",
}

// System returns the FHIR system URI for an HL7 coding system name.
// HL7 tables ("HL70162") map to the v2 code systems; other unknown names
// become "urn:id:<name>".
func System(name string) string {
	if name == "" {
		return ""
	}
	upper := strings.ToUpper(name)
	if uri, ok := systemURIs[upper]; ok {
		return uri
	}
	if len(upper) == 7 && strings.HasPrefix(upper, "HL7") && digits(upper[3:]) {
		return "http://terminology.hl7.org/CodeSystem/v2-" + upper[3:]
	}
	return "urn:id:" + name
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Coding builds a Coding; empty parts stay nil.
func Coding(code, display, system string) r4.Coding {
	return r4.Coding{
		Code:    str(code),
		Display: str(display),
		System:  str(system),
	}
}

// CodeableConcept maps a CE/CWE value onto a CodeableConcept. The primary
// and alternate triplets become codings; the primary text becomes the
// concept text. It returns nil when the value carries no code and no text.
func CodeableConcept(v datatype.CodedValue) *r4.CodeableConcept {
	cc := &r4.CodeableConcept{Text: str(v.Text)}
	if v.Identifier != "" {
		cc.Coding = append(cc.Coding, Coding(v.Identifier, v.Text, System(v.System)))
	}
	if v.AltIdentifier != "" {
		cc.Coding = append(cc.Coding, Coding(v.AltIdentifier, v.AltText, System(v.AltSystem)))
	}
	if len(cc.Coding) == 0 && cc.Text == nil {
		return nil
	}
	return cc
}

// Identifier maps a CX value onto an Identifier. The assigning authority
// becomes the system: "urn:oid:" for ISO universal ids, otherwise
// "urn:id:" plus the namespace. The identifier type code (table 0203)
// becomes the identifier type.
func Identifier(v datatype.Identifier) r4.Identifier {
	id := r4.Identifier{
		Value:  str(v.ID),
		System: str(authority(v.Authority)),
	}
	if v.TypeCode != "" {
		id.Type = &r4.CodeableConcept{
			Coding: []r4.Coding{Coding(v.TypeCode, "", System("HL70203"))},
		}
	}
	return id
}

func authority(d datatype.Designator) string {
	switch {
	case d.UniversalID != "" && strings.EqualFold(d.UniversalIDType, "ISO"):
		return "urn:oid:" + d.UniversalID
	case d.UniversalID != "" && strings.EqualFold(d.UniversalIDType, "URI"):
		return d.UniversalID
	case d.Namespace != "":
		return "urn:id:" + d.Namespace
	default:
		return ""
	}
}

func str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
