package datatype

import (
	"fmt"
	"strings"

	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// primitive holds the state shared by single-valued variants: the unescaped
// text as received or set, and the decode outcome.
type primitive struct {
	spec *Spec
	text string
	// trailer is the wire text from the first component or sub-component
	// delimiter on. A primitive declares neither, so it is kept verbatim.
	trailer string
	outcome Outcome
}

// split returns the part of raw the primitive decodes and keeps the rest
// as the trailer.
func (p *primitive) split(raw string, d encoding.Delimiters) string {
	p.trailer = ""
	i := strings.IndexFunc(raw, func(r rune) bool {
		return r == d.Component || r == d.SubComponent
	})
	if i < 0 {
		return raw
	}
	p.trailer = raw[i:]
	return raw[:i]
}

// Trailer returns the undeclared components kept verbatim by the last decode.
func (p *primitive) Trailer() string { return p.trailer }

func (p *primitive) Spec() *Spec      { return p.spec }
func (p *primitive) String() string   { return p.text }
func (p *primitive) Outcome() Outcome { return p.outcome }
func (p *primitive) IsEmpty() bool    { return p.outcome.IsEmpty() }

// IsNull reports whether the field carries the explicit HL7 null.
func (p *primitive) IsNull() bool { return p.text == Null }

func (p *primitive) Encode(d encoding.Delimiters) string {
	if p.text == Null {
		return Null + p.trailer
	}
	return d.EscapeText(p.text) + p.trailer
}

func (p *primitive) reset() {
	p.text = ""
	p.trailer = ""
	p.outcome = emptyOutcome
}

// checkLength returns a ConstraintViolation when text exceeds the slot's max length.
func (p *primitive) checkLength(text string) error {
	if p.spec.MaxLength > 0 && runeLen(text) > p.spec.MaxLength {
		return hlerrors.NewConstraint(p.spec.Name, "max-length",
			fmt.Sprintf("length %d exceeds %d", runeLen(text), p.spec.MaxLength))
	}
	return nil
}

// String is the ST, TX, FT, ID and IS variant. Its wire form is the
// escaped text itself.
type String struct {
	primitive
}

// NewString creates an empty String field.
func NewString(spec *Spec) *String {
	return &String{primitive{spec: orEmpty(spec), outcome: emptyOutcome}}
}

// Decode stores the unescaped text. A string never fails to decode.
func (f *String) Decode(raw string, d encoding.Delimiters) Outcome {
	f.text = d.Unescape(f.split(raw, d))
	if f.text == "" {
		f.outcome = emptyOutcome
	} else {
		f.outcome = valueOutcome
	}
	return f.outcome
}

// SetRaw sets the field from escaped wire text, enforcing the max length.
func (f *String) SetRaw(raw string) error {
	return f.SetValue(encoding.Default.Unescape(raw))
}

// SetValue sets the unescaped value, enforcing the max length.
func (f *String) SetValue(v string) error {
	if err := f.checkLength(v); err != nil {
		return err
	}
	f.text, f.trailer = v, ""
	if v == "" {
		f.outcome = emptyOutcome
	} else {
		f.outcome = valueOutcome
	}
	return nil
}

// Value returns the text value.
func (f *String) Value() string { return f.text }

// Clear empties the field.
func (f *String) Clear() { f.reset() }

// Validate checks requiredness, length and table membership.
func (f *String) Validate(addr string) []issue.Issue {
	out := validateCommon(addr, f.spec, f.outcome, specType(f.spec, "ST"), runeLen(f.text))
	if f.outcome.HasValue() && !f.IsNull() {
		out = append(out, checkTable(addr, f.spec, f.text)...)
	}
	return out
}

// Varies holds wire text verbatim. It is used for variable-type slots
// such as OBX-5 and for fields of unknown segments.
type Varies struct {
	primitive
}

// NewVaries creates an empty Varies field.
func NewVaries(spec *Spec) *Varies {
	return &Varies{primitive{spec: orEmpty(spec), outcome: emptyOutcome}}
}

// Decode keeps raw exactly as received.
func (f *Varies) Decode(raw string, _ encoding.Delimiters) Outcome {
	f.text = raw
	if raw == "" {
		f.outcome = emptyOutcome
	} else {
		f.outcome = valueOutcome
	}
	return f.outcome
}

// SetRaw stores raw verbatim.
func (f *Varies) SetRaw(raw string) error {
	f.Decode(raw, encoding.Default)
	return nil
}

// Encode returns the stored text without escaping.
func (f *Varies) Encode(_ encoding.Delimiters) string { return f.text }

// Clear empties the field.
func (f *Varies) Clear() { f.reset() }

// Validate checks requiredness and length.
func (f *Varies) Validate(addr string) []issue.Issue {
	return validateCommon(addr, f.spec, f.outcome, "varies", runeLen(f.text))
}
