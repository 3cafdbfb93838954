package datatype

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

var (
	numericPattern  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	sequencePattern = regexp.MustCompile(`^\d+$`)
)

// Numeric is the NM and SI variant. Values are locale-invariant decimals;
// the text received on the wire is kept so re-encoding is lossless.
type Numeric struct {
	primitive
	value decimal.Decimal
}

// NewNumeric creates an empty Numeric field.
func NewNumeric(spec *Spec) *Numeric {
	return &Numeric{primitive: primitive{spec: orEmpty(spec), outcome: emptyOutcome}}
}

func (f *Numeric) parse(text string) (decimal.Decimal, error) {
	typ := specType(f.spec, "NM")
	pattern := numericPattern
	if typ == "SI" {
		pattern = sequencePattern
	}
	if !pattern.MatchString(text) {
		return decimal.Zero, hlerrors.NewFormat(typ, text, "not a decimal number")
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, hlerrors.NewFormat(typ, text, err.Error())
	}
	return v, nil
}

// Decode parses text as a decimal.
func (f *Numeric) Decode(raw string, d encoding.Delimiters) Outcome {
	f.text = d.Unescape(f.split(raw, d))
	f.value = decimal.Zero
	switch f.text {
	case "":
		f.outcome = emptyOutcome
		return f.outcome
	case Null:
		f.outcome = valueOutcome
		return f.outcome
	}
	v, err := f.parse(f.text)
	if err != nil {
		f.outcome = failed(err)
		return f.outcome
	}
	f.value = v
	f.outcome = valueOutcome
	return f.outcome
}

// SetRaw strictly parses text. On failure the field is unchanged.
func (f *Numeric) SetRaw(raw string) error {
	text := encoding.Default.Unescape(raw)
	if text == "" {
		f.Clear()
		return nil
	}
	v, err := f.parse(text)
	if err != nil {
		return err
	}
	if err := f.check(v, text); err != nil {
		return err
	}
	f.text, f.value, f.outcome, f.trailer = text, v, valueOutcome, ""
	return nil
}

// SetValue sets a decimal value after range and length checks.
// The stored text is the canonical form.
func (f *Numeric) SetValue(v decimal.Decimal) error {
	text := canonicalDecimal(v)
	if err := f.check(v, text); err != nil {
		return err
	}
	f.text, f.value, f.outcome, f.trailer = text, v, valueOutcome, ""
	return nil
}

// SetInt sets an integer value.
func (f *Numeric) SetInt(n int64) error {
	return f.SetValue(decimal.NewFromInt(n))
}

func (f *Numeric) check(v decimal.Decimal, text string) error {
	if specType(f.spec, "NM") == "SI" && (v.IsNegative() || !v.IsInteger()) {
		return hlerrors.NewConstraint(f.spec.Name, "range", "sequence id must be a non-negative integer")
	}
	if r := f.spec.Range; r != nil {
		if r.Min != nil && v.LessThan(*r.Min) {
			return hlerrors.NewConstraint(f.spec.Name, "range", fmt.Sprintf("%s is below %s", v, r.Min))
		}
		if r.Max != nil && v.GreaterThan(*r.Max) {
			return hlerrors.NewConstraint(f.spec.Name, "range", fmt.Sprintf("%s is above %s", v, r.Max))
		}
	}
	return f.checkLength(text)
}

// Value returns the decimal value and whether one is present.
func (f *Numeric) Value() (decimal.Decimal, bool) {
	return f.value, f.outcome.HasValue() && !f.IsNull()
}

// Canonical returns the canonical wire text for the current value,
// keeping the scale of the parsed value ("1.50" stays "1.50").
func (f *Numeric) Canonical() string {
	if !f.outcome.HasValue() || f.IsNull() {
		return f.text
	}
	return canonicalDecimal(f.value)
}

func canonicalDecimal(v decimal.Decimal) string {
	if exp := v.Exponent(); exp < 0 {
		return v.StringFixed(-exp)
	}
	return v.String()
}

// Clear empties the field.
func (f *Numeric) Clear() {
	f.reset()
	f.value = decimal.Zero
}

// Validate checks requiredness, format, length and range.
func (f *Numeric) Validate(addr string) []issue.Issue {
	out := validateCommon(addr, f.spec, f.outcome, specType(f.spec, "NM"), runeLen(f.text))
	if f.outcome.HasValue() && !f.IsNull() {
		if err := f.check(f.value, ""); err != nil {
			out = append(out, issue.New(issue.DiagFieldOutOfRange, map[string]any{
				"name":   label(addr, f.spec),
				"detail": err.Error(),
			}, addr))
		}
	}
	return out
}
