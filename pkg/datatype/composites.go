package datatype

import (
	"fmt"
	"regexp"
	"strings"

	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// Component names per composite type, in wire order.
var (
	xpnNames = []string{"family", "given", "middle", "suffix", "prefix", "degree", "type"}
	xcnNames = []string{"id", "family", "given", "middle", "suffix", "prefix", "degree", "source", "authority"}
	xadNames = []string{"street", "other", "city", "state", "zip", "country", "type"}
	xtnNames = []string{"number", "use", "equipment", "email", "country", "area", "local", "extension", "text"}
	cxNames  = []string{"id", "check-digit", "check-scheme", "authority", "type", "facility"}
	ceNames  = []string{"identifier", "text", "system", "alt-identifier", "alt-text", "alt-system"}
	hdNames  = []string{"namespace", "universal-id", "universal-id-type"}
	eiNames  = []string{"entity-id", "namespace", "universal-id", "universal-id-type"}
	msgNames = []string{"code", "trigger", "structure"}
	ptNames  = []string{"id", "mode"}
	plNames  = []string{"point-of-care", "room", "bed", "facility", "status", "type", "building", "floor"}
)

func newComposite(spec *Spec, names []string, check func([][]string) error) Composite {
	return Composite{spec: orEmpty(spec), names: names, outcome: emptyOutcome, check: check}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// Name is the value of a person name.
type Name struct {
	Family string
	Given  string
	Middle string
	Suffix string
	Prefix string
	Degree string
}

// Display renders "[prefix ]given [middle ]family[ suffix]", omitting absent parts.
func (n Name) Display() string {
	return joinNonEmpty(" ", n.Prefix, n.Given, n.Middle, n.Family, n.Suffix)
}

// PersonName is the XPN variant. Wire order is family^given^middle^suffix^prefix^degree.
type PersonName struct {
	Composite
}

// NewPersonName creates an empty person name.
func NewPersonName(spec *Spec) *PersonName {
	return &PersonName{newComposite(spec, xpnNames, nil)}
}

// Value returns the name parts.
func (p *PersonName) Value() Name {
	return Name{
		Family: p.Component(1),
		Given:  p.Component(2),
		Middle: p.Component(3),
		Suffix: p.Component(4),
		Prefix: p.Component(5),
		Degree: p.Component(6),
	}
}

// SetValue sets every name part.
func (p *PersonName) SetValue(n Name) error {
	return p.SetComponents(n.Family, n.Given, n.Middle, n.Suffix, n.Prefix, n.Degree)
}

// SetName sets family and given names, clearing the other parts.
func (p *PersonName) SetName(family, given string) error {
	return p.SetValue(Name{Family: family, Given: given})
}

// Family returns the family name.
func (p *PersonName) Family() string { return p.Component(1) }

// Given returns the given name.
func (p *PersonName) Given() string { return p.Component(2) }

// Display renders the name for people.
func (p *PersonName) Display() string { return p.Value().Display() }

// PostalAddress is the value of an address.
type PostalAddress struct {
	Street  string
	Other   string
	City    string
	State   string
	Zip     string
	Country string
	Type    string
}

// Display renders "street, other, city, state zip, country".
func (a PostalAddress) Display() string {
	return joinNonEmpty(", ", a.Street, a.Other, a.City, joinNonEmpty(" ", a.State, a.Zip), a.Country)
}

// Address is the XAD variant.
type Address struct {
	Composite
}

// NewAddress creates an empty address.
func NewAddress(spec *Spec) *Address {
	return &Address{newComposite(spec, xadNames, nil)}
}

// Value returns the address parts.
func (a *Address) Value() PostalAddress {
	return PostalAddress{
		Street:  a.Component(1),
		Other:   a.Component(2),
		City:    a.Component(3),
		State:   a.Component(4),
		Zip:     a.Component(5),
		Country: a.Component(6),
		Type:    a.Component(7),
	}
}

// SetValue sets every address part.
func (a *Address) SetValue(v PostalAddress) error {
	return a.SetComponents(v.Street, v.Other, v.City, v.State, v.Zip, v.Country, v.Type)
}

// Display renders the address on one line.
func (a *Address) Display() string { return a.Value().Display() }

// Phone is the value of a telecom field.
type Phone struct {
	Number    string
	Use       string
	Equipment string
	Email     string
	Country   string
	Area      string
	Local     string
	Extension string
}

// Telecom is the XTN variant.
type Telecom struct {
	Composite
}

// NewTelecom creates an empty telecom field.
func NewTelecom(spec *Spec) *Telecom {
	return &Telecom{newComposite(spec, xtnNames, nil)}
}

// Value returns the telecom parts.
func (t *Telecom) Value() Phone {
	return Phone{
		Number:    t.Component(1),
		Use:       t.Component(2),
		Equipment: t.Component(3),
		Email:     t.Component(4),
		Country:   t.Component(5),
		Area:      t.Component(6),
		Local:     t.Component(7),
		Extension: t.Component(8),
	}
}

// SetValue sets every telecom part.
func (t *Telecom) SetValue(p Phone) error {
	return t.SetComponents(p.Number, p.Use, p.Equipment, p.Email, p.Country, p.Area, p.Local, p.Extension)
}

// Display renders the number, the email address, or "(area) local".
func (t *Telecom) Display() string {
	v := t.Value()
	switch {
	case v.Number != "":
		return v.Number
	case v.Email != "":
		return v.Email
	case v.Area != "":
		s := "(" + v.Area + ") " + v.Local
		if v.Extension != "" {
			s += " x" + v.Extension
		}
		return s
	default:
		return v.Local
	}
}

// Designator is the value of a hierarchic designator.
type Designator struct {
	Namespace       string
	UniversalID     string
	UniversalIDType string
}

// IsZero reports whether every part is empty.
func (d Designator) IsZero() bool { return d == Designator{} }

func (d Designator) parts() []string {
	return []string{d.Namespace, d.UniversalID, d.UniversalIDType}
}

func designator(parts []string) Designator {
	get := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return Designator{Namespace: get(0), UniversalID: get(1), UniversalIDType: get(2)}
}

// HierarchicDesignator is the HD variant.
type HierarchicDesignator struct {
	Composite
}

// NewHierarchicDesignator creates an empty HD field.
func NewHierarchicDesignator(spec *Spec) *HierarchicDesignator {
	return &HierarchicDesignator{newComposite(spec, hdNames, nil)}
}

// Value returns the designator parts.
func (h *HierarchicDesignator) Value() Designator {
	return Designator{Namespace: h.Component(1), UniversalID: h.Component(2), UniversalIDType: h.Component(3)}
}

// SetValue sets the designator.
func (h *HierarchicDesignator) SetValue(d Designator) error {
	return h.SetComponents(d.parts()...)
}

// Identifier is the value of an extended identifier.
type Identifier struct {
	ID        string
	Authority Designator
	TypeCode  string
	Facility  Designator
}

// ExtendedID is the CX variant.
type ExtendedID struct {
	Composite
}

// NewExtendedID creates an empty CX field.
func NewExtendedID(spec *Spec) *ExtendedID {
	return &ExtendedID{newComposite(spec, cxNames, nil)}
}

// ID returns the identifier value.
func (x *ExtendedID) ID() string { return x.Component(1) }

// Value returns the identifier parts.
func (x *ExtendedID) Value() Identifier {
	return Identifier{
		ID:        x.Component(1),
		Authority: designator(x.SubComponents(4)),
		TypeCode:  x.Component(5),
		Facility:  designator(x.SubComponents(6)),
	}
}

// SetValue sets the identifier; the authority and facility become sub-components.
func (x *ExtendedID) SetValue(v Identifier) error {
	comps := [][]string{{v.ID}, {""}, {""}, v.Authority.parts(), {v.TypeCode}, v.Facility.parts()}
	return x.setComponents(comps)
}

// CodedValue is the value of a coded element.
type CodedValue struct {
	Identifier    string
	Text          string
	System        string
	AltIdentifier string
	AltText       string
	AltSystem     string
}

// Coded is the CE / CWE / CNE variant.
type Coded struct {
	Composite
}

// NewCoded creates an empty coded element.
func NewCoded(spec *Spec) *Coded {
	return &Coded{newComposite(spec, ceNames, nil)}
}

// Value returns the coded parts.
func (c *Coded) Value() CodedValue {
	return CodedValue{
		Identifier:    c.Component(1),
		Text:          c.Component(2),
		System:        c.Component(3),
		AltIdentifier: c.Component(4),
		AltText:       c.Component(5),
		AltSystem:     c.Component(6),
	}
}

// SetValue sets every coded part.
func (c *Coded) SetValue(v CodedValue) error {
	return c.SetComponents(v.Identifier, v.Text, v.System, v.AltIdentifier, v.AltText, v.AltSystem)
}

// SetCode sets identifier, text and coding system.
func (c *Coded) SetCode(code, text, system string) error {
	return c.SetValue(CodedValue{Identifier: code, Text: text, System: system})
}

// Validate adds a table check of the identifier to the common checks.
func (c *Coded) Validate(addr string) []issue.Issue {
	out := c.Composite.Validate(addr)
	if c.outcome.HasValue() {
		out = append(out, checkTable(addr, c.spec, c.Component(1))...)
	}
	return out
}

// EntityID is the EI variant.
type EntityID struct {
	Composite
}

// NewEntityID creates an empty EI field.
func NewEntityID(spec *Spec) *EntityID {
	return &EntityID{newComposite(spec, eiNames, nil)}
}

// ID returns the entity identifier.
func (e *EntityID) ID() string { return e.Component(1) }

// Namespace returns the assigning namespace.
func (e *EntityID) Namespace() string { return e.Component(2) }

// SetValue sets the entity identifier and namespace.
func (e *EntityID) SetValue(id, namespace string) error {
	return e.SetComponents(id, namespace)
}

var (
	messageCodePattern = regexp.MustCompile(`^[A-Z0-9]{3}$`)
	structurePattern   = regexp.MustCompile(`^[A-Z0-9]{3}_[A-Z0-9]{3}$`)
)

func checkMessageType(comps [][]string) error {
	get := func(i int) string {
		if i < len(comps) && len(comps[i]) > 0 {
			return comps[i][0]
		}
		return ""
	}
	code, trigger, structure := get(0), get(1), get(2)
	if !messageCodePattern.MatchString(code) {
		return hlerrors.NewFormat("MSG", code, "message code must be three alphanumeric characters")
	}
	if trigger != "" && !messageCodePattern.MatchString(trigger) {
		return hlerrors.NewFormat("MSG", trigger, "trigger event must be three alphanumeric characters")
	}
	if structure != "" && !structurePattern.MatchString(structure) {
		return hlerrors.NewFormat("MSG", structure, "message structure must look like ADT_A01")
	}
	return nil
}

// MessageType is the MSH-9 variant (MSG in 2.5, CM in 2.3).
type MessageType struct {
	Composite
}

// NewMessageType creates an empty message type field.
func NewMessageType(spec *Spec) *MessageType {
	return &MessageType{newComposite(spec, msgNames, checkMessageType)}
}

// Code returns the message code, e.g. "ADT".
func (m *MessageType) Code() string { return m.Component(1) }

// Trigger returns the trigger event, e.g. "A01".
func (m *MessageType) Trigger() string { return m.Component(2) }

// Structure returns the message structure id, e.g. "ADT_A01".
func (m *MessageType) Structure() string { return m.Component(3) }

// Key returns "CODE^TRIGGER", or "CODE" when no trigger is present.
func (m *MessageType) Key() string {
	if m.Trigger() == "" {
		return m.Code()
	}
	return m.Code() + "^" + m.Trigger()
}

// SetValue sets code, trigger and structure. Empty structure is omitted.
func (m *MessageType) SetValue(code, trigger, structure string) error {
	return m.SetComponents(code, trigger, structure)
}

// ProcessingType is the PT variant (MSH-11).
type ProcessingType struct {
	Composite
}

// NewProcessingType creates an empty PT field.
func NewProcessingType(spec *Spec) *ProcessingType {
	return &ProcessingType{newComposite(spec, ptNames, nil)}
}

// ID returns the processing id (P, D or T).
func (p *ProcessingType) ID() string { return p.Component(1) }

// Mode returns the processing mode.
func (p *ProcessingType) Mode() string { return p.Component(2) }

// SetValue sets the processing id and mode.
func (p *ProcessingType) SetValue(id, mode string) error {
	return p.SetComponents(id, mode)
}

// Validate adds a table check of the processing id.
func (p *ProcessingType) Validate(addr string) []issue.Issue {
	out := p.Composite.Validate(addr)
	if p.outcome.HasValue() {
		out = append(out, checkTable(addr, p.spec, p.ID())...)
	}
	return out
}

// Location is the PL variant.
type Location struct {
	Composite
}

// NewLocation creates an empty PL field.
func NewLocation(spec *Spec) *Location {
	return &Location{newComposite(spec, plNames, nil)}
}

// PointOfCare returns the unit.
func (l *Location) PointOfCare() string { return l.Component(1) }

// Room returns the room.
func (l *Location) Room() string { return l.Component(2) }

// Bed returns the bed.
func (l *Location) Bed() string { return l.Component(3) }

// Facility returns the facility designator.
func (l *Location) Facility() Designator { return designator(l.SubComponents(4)) }

// SetValue sets unit, room and bed.
func (l *Location) SetValue(pointOfCare, room, bed string) error {
	return l.SetComponents(pointOfCare, room, bed)
}

// Display renders "unit room-bed".
func (l *Location) Display() string {
	return joinNonEmpty(" ", l.PointOfCare(), joinNonEmpty("-", l.Room(), l.Bed()))
}

func (v CodedValue) String() string {
	if v.Text == "" {
		return v.Identifier
	}
	return fmt.Sprintf("%s (%s)", v.Identifier, v.Text)
}
