package datatype

import (
	"fmt"

	"github.com/gofhir/hl7v2/pkg/encoding"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// Repeating holds the repetitions of a repeating slot. Every repetition is
// created by the same factory and shares the slot spec.
type Repeating struct {
	spec    *Spec
	factory Factory
	items   []Field
}

// NewRepeating creates an empty repeating field.
func NewRepeating(spec *Spec, factory Factory) *Repeating {
	return &Repeating{spec: orEmpty(spec), factory: factory}
}

func (r *Repeating) Spec() *Spec { return r.spec }

// Len returns the number of repetitions.
func (r *Repeating) Len() int { return len(r.items) }

// At returns repetition i (0-based), or nil when out of range.
func (r *Repeating) At(i int) Field {
	if i < 0 || i >= len(r.items) {
		return nil
	}
	return r.items[i]
}

// First returns the first repetition, creating it if needed so that callers
// can set a single value without checking Len.
func (r *Repeating) First() Field {
	if len(r.items) == 0 {
		return r.Append()
	}
	return r.items[0]
}

// Items returns the repetitions.
func (r *Repeating) Items() []Field { return r.items }

// Append adds an empty repetition and returns it.
func (r *Repeating) Append() Field {
	f := r.factory(r.spec)
	r.items = append(r.items, f)
	return f
}

// AppendRaw strictly decodes raw into a new repetition.
// On error no repetition is added.
func (r *Repeating) AppendRaw(raw string) error {
	f := r.factory(r.spec)
	if err := f.SetRaw(raw); err != nil {
		return err
	}
	r.items = append(r.items, f)
	return nil
}

func (r *Repeating) decodeAll(raw string, d encoding.Delimiters) ([]Field, Outcome) {
	if raw == "" {
		return nil, emptyOutcome
	}
	parts := d.SplitRepetitions(raw)
	items := make([]Field, len(parts))
	out := emptyOutcome
	for i, p := range parts {
		f := r.factory(r.spec)
		o := f.Decode(p, d)
		switch {
		case o.Failed() && !out.Failed():
			out = Outcome{State: StateFailed, Err: fmt.Errorf("repetition %d: %w", i+1, o.Err)}
		case o.HasValue() && out.IsEmpty():
			out = valueOutcome
		}
		items[i] = f
	}
	return items, out
}

// Decode splits raw on the repetition separator and decodes each repetition.
// The outcome is failed when any repetition failed.
func (r *Repeating) Decode(raw string, d encoding.Delimiters) Outcome {
	items, out := r.decodeAll(raw, d)
	r.items = items
	return out
}

// Encode joins the repetitions, dropping trailing empty ones.
func (r *Repeating) Encode(d encoding.Delimiters) string {
	parts := make([]string, len(r.items))
	for i, f := range r.items {
		parts[i] = f.Encode(d)
	}
	return d.JoinRepetitions(parts)
}

// SetRaw strictly decodes all repetitions. On error the field is unchanged.
func (r *Repeating) SetRaw(raw string) error {
	if raw == "" {
		r.Clear()
		return nil
	}
	parts := encoding.Default.SplitRepetitions(raw)
	items := make([]Field, len(parts))
	for i, p := range parts {
		f := r.factory(r.spec)
		if err := f.SetRaw(p); err != nil {
			return err
		}
		items[i] = f
	}
	r.items = items
	return nil
}

// String returns the encoded form under default delimiters.
func (r *Repeating) String() string { return r.Encode(encoding.Default) }

// Outcome summarizes the repetitions: failed if any failed, value if any has one.
func (r *Repeating) Outcome() Outcome {
	out := emptyOutcome
	for i, f := range r.items {
		o := f.Outcome()
		if o.Failed() {
			return Outcome{State: StateFailed, Err: fmt.Errorf("repetition %d: %w", i+1, o.Err)}
		}
		if o.HasValue() {
			out = valueOutcome
		}
	}
	return out
}

// IsEmpty reports whether no repetition carries a value.
func (r *Repeating) IsEmpty() bool {
	for _, f := range r.items {
		if !f.IsEmpty() {
			return false
		}
	}
	return true
}

// Clear removes every repetition.
func (r *Repeating) Clear() { r.items = nil }

// Validate checks requiredness on the slot and validates each repetition
// at "addr[n]".
func (r *Repeating) Validate(addr string) []issue.Issue {
	if r.IsEmpty() {
		if r.spec.Required {
			return []issue.Issue{issue.New(issue.DiagFieldRequired, map[string]any{"name": label(addr, r.spec)}, addr)}
		}
		return nil
	}
	var out []issue.Issue
	for i, f := range r.items {
		if f.IsEmpty() {
			continue
		}
		out = append(out, f.Validate(fmt.Sprintf("%s[%d]", addr, i+1))...)
	}
	return out
}
