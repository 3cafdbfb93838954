package datatype

import (
	"fmt"

	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// Composite is the engine behind every multi-component type. Components are
// stored unescaped as lists of sub-components, so a composite decodes only
// as deep as sub-components and re-encodes symmetrically.
type Composite struct {
	spec    *Spec
	names   []string
	comps   [][]string
	outcome Outcome
	// check validates decoded components; nil means always valid.
	check func(comps [][]string) error
}

// NewComposite creates an empty composite with optional component names.
func NewComposite(spec *Spec, names []string) *Composite {
	return &Composite{spec: orEmpty(spec), names: names, outcome: emptyOutcome}
}

func (c *Composite) Spec() *Spec      { return c.spec }
func (c *Composite) Outcome() Outcome { return c.outcome }
func (c *Composite) IsEmpty() bool    { return c.outcome.IsEmpty() }

// ComponentNames returns the names of the known components.
func (c *Composite) ComponentNames() []string { return c.names }

// Len returns the number of components present.
func (c *Composite) Len() int { return len(c.comps) }

func decodeComponents(raw string, d encoding.Delimiters) [][]string {
	parts := d.SplitComponents(raw)
	comps := make([][]string, len(parts))
	for i, p := range parts {
		subs := d.SplitSubComponents(p)
		for j := range subs {
			subs[j] = d.Unescape(subs[j])
		}
		comps[i] = subs
	}
	return comps
}

func encodeComponents(comps [][]string, d encoding.Delimiters) string {
	parts := make([]string, len(comps))
	for i, subs := range comps {
		escaped := make([]string, len(subs))
		for j, s := range subs {
			escaped[j] = d.EscapeText(s)
		}
		parts[i] = d.JoinSubComponents(escaped)
	}
	return d.JoinComponents(parts)
}

func allEmpty(comps [][]string) bool {
	for _, subs := range comps {
		for _, s := range subs {
			if s != "" {
				return false
			}
		}
	}
	return true
}

// Decode splits raw into components and sub-components.
func (c *Composite) Decode(raw string, d encoding.Delimiters) Outcome {
	if raw == "" {
		c.comps = nil
		c.outcome = emptyOutcome
		return c.outcome
	}
	c.comps = decodeComponents(raw, d)
	if allEmpty(c.comps) {
		c.outcome = emptyOutcome
		return c.outcome
	}
	if c.check != nil {
		if err := c.check(c.comps); err != nil {
			c.outcome = failed(err)
			return c.outcome
		}
	}
	c.outcome = valueOutcome
	return c.outcome
}

// Encode joins components with the message delimiters, dropping trailing empties.
func (c *Composite) Encode(d encoding.Delimiters) string {
	return encodeComponents(c.comps, d)
}

// SetRaw strictly decodes wire text in default delimiters.
func (c *Composite) SetRaw(raw string) error {
	if raw == "" {
		c.Clear()
		return nil
	}
	return c.setComponents(decodeComponents(raw, encoding.Default))
}

// setComponents commits comps after check and length validation.
func (c *Composite) setComponents(comps [][]string) error {
	if allEmpty(comps) {
		c.Clear()
		return nil
	}
	if c.check != nil {
		if err := c.check(comps); err != nil {
			return err
		}
	}
	if c.spec.MaxLength > 0 {
		if n := runeLen(encodeComponents(comps, encoding.Default)); n > c.spec.MaxLength {
			return hlerrors.NewConstraint(c.spec.Name, "max-length", fmt.Sprintf("length %d exceeds %d", n, c.spec.MaxLength))
		}
	}
	c.comps = comps
	c.outcome = valueOutcome
	return nil
}

// SetComponents sets components from plain values (one sub-component each).
func (c *Composite) SetComponents(values ...string) error {
	comps := make([][]string, len(values))
	for i, v := range values {
		comps[i] = []string{v}
	}
	return c.setComponents(comps)
}

// Component returns the first sub-component of component n (1-based).
func (c *Composite) Component(n int) string {
	return c.SubComponent(n, 1)
}

// SubComponent returns sub-component m of component n (both 1-based).
func (c *Composite) SubComponent(n, m int) string {
	if n < 1 || n > len(c.comps) {
		return ""
	}
	subs := c.comps[n-1]
	if m < 1 || m > len(subs) {
		return ""
	}
	return subs[m-1]
}

// SubComponents returns all sub-components of component n.
func (c *Composite) SubComponents(n int) []string {
	if n < 1 || n > len(c.comps) {
		return nil
	}
	return append([]string(nil), c.comps[n-1]...)
}

// SetComponent sets component n (1-based) to a single value.
func (c *Composite) SetComponent(n int, value string) error {
	return c.SetSubComponents(n, value)
}

// SetSubComponents sets component n (1-based) to the given sub-components.
func (c *Composite) SetSubComponents(n int, subs ...string) error {
	if n < 1 {
		return hlerrors.NewConstraint(c.spec.Name, "range", fmt.Sprintf("component %d out of range", n))
	}
	size := len(c.comps)
	if n > size {
		size = n
	}
	comps := make([][]string, size)
	for i := range c.comps {
		comps[i] = append([]string(nil), c.comps[i]...)
	}
	comps[n-1] = append([]string(nil), subs...)
	return c.setComponents(comps)
}

// String returns the encoded form under default delimiters.
func (c *Composite) String() string {
	return c.Encode(encoding.Default)
}

// Clear empties the field.
func (c *Composite) Clear() {
	c.comps = nil
	c.outcome = emptyOutcome
}

// Validate checks requiredness, format and length.
func (c *Composite) Validate(addr string) []issue.Issue {
	return validateCommon(addr, c.spec, c.outcome, specType(c.spec, "composite"), runeLen(c.String()))
}
