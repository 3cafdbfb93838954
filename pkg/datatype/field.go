// Package datatype implements the HL7 v2 field type system: primitive and
// composite field variants behind one Field interface, each with a lenient
// wire decoder, strict setters, validation and canonical encoding.
package datatype

import (
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/gofhir/hl7v2/pkg/encoding"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// State is the three-way result of decoding a field.
type State uint8

// Decode states.
const (
	StateEmpty State = iota
	StateValue
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateValue:
		return "value"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of decoding raw text into a field.
// Err is set only when State is StateFailed.
type Outcome struct {
	State State
	Err   error
}

var (
	emptyOutcome = Outcome{State: StateEmpty}
	valueOutcome = Outcome{State: StateValue}
)

func failed(err error) Outcome {
	return Outcome{State: StateFailed, Err: err}
}

// IsEmpty reports whether no value was present.
func (o Outcome) IsEmpty() bool { return o.State == StateEmpty }

// HasValue reports whether a value was decoded successfully.
func (o Outcome) HasValue() bool { return o.State == StateValue }

// Failed reports whether typed decoding failed.
func (o Outcome) Failed() bool { return o.State == StateFailed }

// Null is the HL7 explicit null ("delete this value") marker.
const Null = `""`

// Range bounds numeric values. Nil bounds are open.
type Range struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// Spec describes one field slot of a segment schema.
type Spec struct {
	Name      string
	Type      string // HL7 data type code, e.g. "XPN"
	Required  bool
	MaxLength int // 0 means unbounded
	Repeating bool
	Table     string // HL7 table id, e.g. "0001"
	Range     *Range
}

// Field is the contract shared by every field variant.
type Field interface {
	// Spec returns the slot definition the field was created for.
	Spec() *Spec

	// Decode parses wire text. It never panics: malformed text yields a
	// failed Outcome while the text is kept so the field stays addressable
	// and re-encodes losslessly.
	Decode(raw string, d encoding.Delimiters) Outcome

	// Encode returns the wire form for the given delimiters.
	Encode(d encoding.Delimiters) string

	// SetRaw strictly sets the field from wire text in default delimiters.
	// On error the field is unchanged.
	SetRaw(raw string) error

	// String returns the unescaped text value.
	String() string

	Outcome() Outcome
	IsEmpty() bool

	// Validate reports required, length, format and table issues at addr.
	Validate(addr string) []issue.Issue

	Clear()
}

// Factory creates an empty field for a spec.
type Factory func(spec *Spec) Field

// ForType returns the factory for an HL7 data type code. Unknown codes
// yield a generic Composite so that no slot is ever left uninitialized.
func ForType(code string) Factory {
	switch code {
	case "ST", "TX", "FT", "ID", "IS", "GTS", "":
		return func(s *Spec) Field { return NewString(s) }
	case "NM", "SI":
		return func(s *Spec) Field { return NewNumeric(s) }
	case "DT":
		return func(s *Spec) Field { return NewDate(s) }
	case "TM":
		return func(s *Spec) Field { return NewTime(s) }
	case "TS", "DTM":
		return func(s *Spec) Field { return NewTimestamp(s) }
	case "varies":
		return func(s *Spec) Field { return NewVaries(s) }
	case "XPN":
		return func(s *Spec) Field { return NewPersonName(s) }
	case "XCN":
		return func(s *Spec) Field { return NewComposite(s, xcnNames) }
	case "XAD":
		return func(s *Spec) Field { return NewAddress(s) }
	case "XTN":
		return func(s *Spec) Field { return NewTelecom(s) }
	case "CX":
		return func(s *Spec) Field { return NewExtendedID(s) }
	case "CE", "CWE", "CNE":
		return func(s *Spec) Field { return NewCoded(s) }
	case "HD":
		return func(s *Spec) Field { return NewHierarchicDesignator(s) }
	case "EI":
		return func(s *Spec) Field { return NewEntityID(s) }
	case "MSG", "CM_MSG":
		return func(s *Spec) Field { return NewMessageType(s) }
	case "PT":
		return func(s *Spec) Field { return NewProcessingType(s) }
	case "PL":
		return func(s *Spec) Field { return NewLocation(s) }
	default:
		return func(s *Spec) Field { return NewComposite(s, nil) }
	}
}

// New creates the field for a spec, wrapping it in Repeating when the slot repeats.
func New(spec *Spec) Field {
	if spec.Repeating {
		return NewRepeating(spec, ForType(spec.Type))
	}
	return ForType(spec.Type)(spec)
}

// label renders "PID-5 (Patient Name)" for diagnostics.
func label(addr string, spec *Spec) string {
	if spec == nil || spec.Name == "" {
		return addr
	}
	return addr + " (" + spec.Name + ")"
}

// validateCommon applies the checks shared by every variant.
func validateCommon(addr string, spec *Spec, o Outcome, typ string, length int) []issue.Issue {
	var out []issue.Issue
	name := label(addr, spec)
	switch {
	case o.IsEmpty():
		if spec != nil && spec.Required {
			out = append(out, issue.New(issue.DiagFieldRequired, map[string]any{"name": name}, addr))
		}
		return out
	case o.Failed():
		out = append(out, issue.New(issue.DiagFieldInvalidFormat, map[string]any{
			"name":  name,
			"type":  typ,
			"error": o.Err,
		}, addr))
	}
	if spec != nil && spec.MaxLength > 0 && length > spec.MaxLength {
		out = append(out, issue.New(issue.DiagFieldTooLong, map[string]any{
			"name":   name,
			"length": length,
			"max":    spec.MaxLength,
		}, addr))
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func specType(spec *Spec, fallback string) string {
	if spec != nil && spec.Type != "" {
		return spec.Type
	}
	return fallback
}

// emptySpec is used when a field is created without a slot definition.
var emptySpec = &Spec{}

func orEmpty(spec *Spec) *Spec {
	if spec == nil {
		return emptySpec
	}
	return spec
}
