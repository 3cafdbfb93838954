package segment

import (
	"fmt"

	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// Generic holds a segment with no registered schema as a list of raw field
// texts. Encoding with the delimiters it was decoded with reproduces the
// original line byte for byte: nothing is unescaped and nothing is truncated.
type Generic struct {
	id     string
	fields []string
	delims encoding.Delimiters
}

// NewGeneric creates an empty generic segment.
func NewGeneric(id string) *Generic {
	return &Generic{id: id, delims: encoding.Default}
}

// GenericFactory returns a factory for generic segments with the given id.
func GenericFactory(id string) Factory {
	return func() Segment { return NewGeneric(id) }
}

func (g *Generic) ID() string { return g.id }

// Decode stores the fields of line verbatim. The id is taken from the line.
func (g *Generic) Decode(line string, d encoding.Delimiters) {
	g.delims = d
	pieces := d.SplitFields(line)
	g.id = pieces[0]
	g.fields = append([]string(nil), pieces[1:]...)
}

// Encode joins the id and the stored fields without truncation.
func (g *Generic) Encode(d encoding.Delimiters) string {
	parts := make([]string, 0, 1+len(g.fields))
	parts = append(parts, g.id)
	parts = append(parts, g.fields...)
	return d.JoinFields(parts, false)
}

// offset is the number of leading field positions not stored in fields:
// header segments carry their field separator as field 1.
func (g *Generic) offset() int {
	if isHeaderID(g.id) {
		return 2
	}
	return 1
}

// Raw returns field n (1-based) as received.
func (g *Generic) Raw(n int) string {
	if isHeaderID(g.id) && n == 1 {
		return string(g.delims.Field)
	}
	i := n - g.offset()
	if i < 0 || i >= len(g.fields) {
		return ""
	}
	return g.fields[i]
}

// Field is an alias of Raw.
func (g *Generic) Field(n int) string { return g.Raw(n) }

// Fields returns a copy of the stored field texts.
func (g *Generic) Fields() []string {
	return append([]string(nil), g.fields...)
}

// Len returns the number of field positions present.
func (g *Generic) Len() int {
	if len(g.fields) == 0 {
		return 0
	}
	return len(g.fields) + g.offset() - 1
}

// SetField sets field n to raw wire text, growing the list as needed.
func (g *Generic) SetField(n int, raw string) error {
	i := n - g.offset()
	if i < 0 {
		return hlerrors.NewConstraint(fmt.Sprintf("%s-%d", g.id, n), "range", "field position is not settable")
	}
	for len(g.fields) <= i {
		g.fields = append(g.fields, "")
	}
	g.fields[i] = raw
	return nil
}

// Validate reports the missing schema as information, plus a malformed id.
func (g *Generic) Validate(l string) []issue.Issue {
	out := []issue.Issue{issue.New(issue.DiagSegmentUnknown, map[string]any{"id": g.id}, l)}
	if !ValidID(g.id) {
		out = append(out, issue.New(issue.DiagSegmentInvalidID, map[string]any{"id": g.id}, l))
	}
	return out
}
