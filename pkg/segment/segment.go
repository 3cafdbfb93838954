// Package segment implements the HL7 v2 segment model: schema-fixed slot
// arrays of typed fields, a verbatim fallback for unregistered segment ids,
// and typed segments with convenience setters.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gofhir/hl7v2/pkg/datatype"
	"github.com/gofhir/hl7v2/pkg/encoding"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// Segment is the contract shared by typed and generic segments.
type Segment interface {
	// ID returns the three-character segment identifier.
	ID() string

	// Decode reads one segment line. It never fails: field problems are
	// kept on the fields and reported by Validate.
	Decode(line string, d encoding.Delimiters)

	// Encode returns the segment line for the given delimiters.
	Encode(d encoding.Delimiters) string

	// Validate reports issues addressed under label, e.g. "PID" or "NK1(2)".
	Validate(label string) []issue.Issue

	// Raw returns the wire text of field n (1-based) as last decoded or set,
	// or "" when the field is absent.
	Raw(n int) string

	// Len returns the number of field positions that carry text.
	Len() int
}

// Factory creates an empty segment.
type Factory func() Segment

var idPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{2}$`)

// ValidID reports whether id is a well-formed segment identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// IDOf returns the segment identifier of a line: the text before the first
// field separator, or the whole line when no separator follows.
func IDOf(line string, d encoding.Delimiters) string {
	if i := strings.IndexRune(line, d.Field); i >= 0 {
		return line[:i]
	}
	return line
}

// IsZ reports whether id names a site-defined Z segment.
func IsZ(id string) bool {
	return strings.HasPrefix(id, "Z")
}

// Schema is the ordered slot definition of a segment.
type Schema struct {
	ID     string
	Name   string
	Fields []datatype.Spec
}

// Len returns the number of slots.
func (s *Schema) Len() int { return len(s.Fields) }

// Index returns the 1-based position of the slot named name, or 0.
func (s *Schema) Index(name string) int {
	for i := range s.Fields {
		if strings.EqualFold(s.Fields[i].Name, name) {
			return i + 1
		}
	}
	return 0
}

// F is shorthand for building field specs in schema tables.
func F(name, typ string, maxLength int) datatype.Spec {
	return datatype.Spec{Name: name, Type: typ, MaxLength: maxLength}
}

// R marks a spec required.
func R(s datatype.Spec) datatype.Spec {
	s.Required = true
	return s
}

// Rep marks a spec repeating.
func Rep(s datatype.Spec) datatype.Spec {
	s.Repeating = true
	return s
}

// T attaches an HL7 table to a spec.
func T(s datatype.Spec, table string) datatype.Spec {
	s.Table = table
	return s
}

func label(l string, n int) string {
	return fmt.Sprintf("%s-%d", l, n)
}
