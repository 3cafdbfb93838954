package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofhir/hl7v2/pkg/datatype"
	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// Base is a schema-fixed segment. Every slot holds a typed field from
// construction on; decoding and setting only ever change field contents.
type Base struct {
	schema *Schema
	fields []datatype.Field
	// overflow holds the extra repetitions of non-repeating slots, verbatim.
	overflow map[int]string
	// extra holds fields beyond the schema, verbatim.
	extra  []string
	delims encoding.Delimiters
}

// NewBase creates a segment with every slot initialized to an empty field.
func NewBase(schema *Schema) *Base {
	b := &Base{schema: schema, delims: encoding.Default}
	b.initialize()
	return b
}

func (b *Base) initialize() {
	b.fields = make([]datatype.Field, len(b.schema.Fields))
	for i := range b.schema.Fields {
		spec := &b.schema.Fields[i]
		if b.encodingSlot(i + 1) {
			b.fields[i] = datatype.NewVaries(spec)
			continue
		}
		b.fields[i] = datatype.New(spec)
	}
	b.overflow = nil
	b.extra = nil
}

func isHeaderID(id string) bool {
	return id == "MSH" || id == "FHS" || id == "BHS"
}

func (b *Base) header() bool { return isHeaderID(b.schema.ID) }

// encodingSlot reports whether n is the field separator or encoding
// characters slot of a header segment.
func (b *Base) encodingSlot(n int) bool {
	return b.header() && n <= 2
}

// ID returns the segment identifier.
func (b *Base) ID() string { return b.schema.ID }

// Schema returns the slot definitions.
func (b *Base) Schema() *Schema { return b.schema }

// Delimiters returns the delimiters of the last Decode, or the defaults.
func (b *Base) Delimiters() encoding.Delimiters { return b.delims }

// Decode resets every slot and reads line into them. Fewer fields than
// slots is valid; fields beyond the schema are kept verbatim.
func (b *Base) Decode(line string, d encoding.Delimiters) {
	b.initialize()
	b.delims = d
	pieces := d.SplitFields(line)
	if len(pieces) == 0 {
		return
	}
	values := pieces[1:]
	if b.header() {
		values = append([]string{string(d.Field)}, values...)
	}
	for i, raw := range values {
		if i >= len(b.fields) {
			b.extra = append(b.extra, values[i:]...)
			break
		}
		b.decodeSlot(i+1, raw, d)
	}
}

func (b *Base) decodeSlot(n int, raw string, d encoding.Delimiters) {
	f := b.fields[n-1]
	spec := f.Spec()
	if !spec.Repeating && spec.Type != "varies" && !b.encodingSlot(n) {
		if i := strings.IndexRune(raw, d.Repetition); i >= 0 {
			if b.overflow == nil {
				b.overflow = make(map[int]string)
			}
			b.overflow[n] = raw[i+utf8.RuneLen(d.Repetition):]
			raw = raw[:i]
		}
	}
	f.Decode(raw, d)
}

func (b *Base) encodeSlot(n int, d encoding.Delimiters) string {
	switch {
	case b.encodingSlot(n) && n == 1:
		return string(d.Field)
	case b.encodingSlot(n):
		return d.EncodingCharacters()
	}
	s := b.fields[n-1].Encode(d)
	if ov, ok := b.overflow[n]; ok {
		s += string(d.Repetition) + ov
	}
	return s
}

// Encode joins the segment id and field forms, truncating trailing empty
// fields. MSH-1 and MSH-2 are written from d and never escaped.
func (b *Base) Encode(d encoding.Delimiters) string {
	parts := make([]string, 0, 1+len(b.fields)+len(b.extra))
	parts = append(parts, b.schema.ID)
	start := 1
	if b.header() {
		parts = append(parts, d.EncodingCharacters())
		start = 3
	}
	for n := start; n <= len(b.fields); n++ {
		parts = append(parts, b.encodeSlot(n, d))
	}
	parts = append(parts, b.extra...)
	return d.JoinFields(parts, true)
}

// Raw returns the wire text of field n under the segment's delimiters.
func (b *Base) Raw(n int) string {
	switch {
	case n < 1:
		return ""
	case n <= len(b.fields):
		return b.encodeSlot(n, b.delims)
	case n-len(b.fields) <= len(b.extra):
		return b.extra[n-len(b.fields)-1]
	default:
		return ""
	}
}

// Len returns the highest field position that carries text.
func (b *Base) Len() int {
	for n := len(b.fields) + len(b.extra); n > 0; n-- {
		if b.Raw(n) != "" {
			return n
		}
	}
	return 0
}

// Field returns slot n (1-based), or nil when n is outside the schema.
// Repeating slots return a *datatype.Repeating.
func (b *Base) Field(n int) datatype.Field {
	if n < 1 || n > len(b.fields) {
		return nil
	}
	return b.fields[n-1]
}

// First returns slot n, or its first repetition for repeating slots.
// The repetition is created when missing.
func (b *Base) First(n int) datatype.Field {
	f := b.Field(n)
	if r, ok := f.(*datatype.Repeating); ok {
		return r.First()
	}
	return f
}

// Extra returns the fields beyond the schema.
func (b *Base) Extra() []string { return b.extra }

// SetRaw strictly sets field n from wire text in default delimiters.
// On error the field is unchanged.
func (b *Base) SetRaw(n int, raw string) error {
	if n < 1 || n > len(b.fields) {
		return hlerrors.NewConstraint(label(b.schema.ID, n), "range", fmt.Sprintf("%s has %d fields", b.schema.ID, len(b.fields)))
	}
	if b.encodingSlot(n) {
		return hlerrors.NewConstraint(label(b.schema.ID, n), "read-only", "delimiters are declared by the message")
	}
	if err := b.fields[n-1].SetRaw(raw); err != nil {
		return err
	}
	delete(b.overflow, n)
	return nil
}

// Clear empties every slot.
func (b *Base) Clear() { b.initialize() }

// Validate checks the segment id, every slot and any verbatim leftovers.
func (b *Base) Validate(l string) []issue.Issue {
	var out []issue.Issue
	if !ValidID(b.schema.ID) {
		out = append(out, issue.New(issue.DiagSegmentInvalidID, map[string]any{"id": b.schema.ID}, l))
	}
	for i, f := range b.fields {
		n := i + 1
		if b.encodingSlot(n) {
			continue
		}
		addr := label(l, n)
		out = append(out, f.Validate(addr)...)
		if ov, ok := b.overflow[n]; ok {
			name := addr
			if f.Spec().Name != "" {
				name += " (" + f.Spec().Name + ")"
			}
			out = append(out, issue.New(issue.DiagFieldNotRepeatable, map[string]any{
				"name":  name,
				"count": strings.Count(ov, string(b.delims.Repetition)) + 2,
			}, addr))
		}
	}
	if len(b.extra) > 0 {
		out = append(out, issue.New(issue.DiagSegmentExtraFields, map[string]any{
			"id":    b.schema.ID,
			"count": len(b.extra),
		}, label(l, len(b.fields)+1)))
	}
	return out
}
