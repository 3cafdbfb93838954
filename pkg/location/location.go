// Package location provides HL7 v2 addresses ("PID-5[2].1.3") and utilities
// to find the line and column an address points at in raw message text.
package location

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gofhir/hl7v2/pkg/encoding"
)

// Location represents a position in the source text.
// Line is 1-based over physical lines; Column is the 1-based rune offset.
type Location struct {
	Line   int
	Column int
}

// Address identifies a segment, field, repetition, component or sub-component.
// Zero values mean "not specified" for every level below Segment.
type Address struct {
	Segment      string
	Occurrence   int // 1-based occurrence of the segment id in the message
	Field        int
	Repetition   int
	Component    int
	SubComponent int
}

var addressPattern = regexp.MustCompile(`^([A-Z][A-Z0-9]{2})(?:\((\d+)\))?(?:-(\d+)(?:\[(\d+)\])?(?:\.(\d+)(?:\.(\d+))?)?)?$`)

// Parse parses an address such as "PID-5", "PID(2)-3[1].4.2" or "ZZZ".
func Parse(s string) (Address, error) {
	m := addressPattern.FindStringSubmatch(s)
	if m == nil {
		return Address{}, fmt.Errorf("invalid HL7 address %q", s)
	}
	a := Address{Segment: m[1]}
	a.Occurrence = atoi(m[2])
	a.Field = atoi(m[3])
	a.Repetition = atoi(m[4])
	a.Component = atoi(m[5])
	a.SubComponent = atoi(m[6])
	return a, nil
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// String formats the address. Occurrence 1 is omitted.
func (a Address) String() string {
	var b strings.Builder
	b.WriteString(a.Segment)
	if a.Occurrence > 1 {
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(a.Occurrence))
		b.WriteByte(')')
	}
	if a.Field == 0 {
		return b.String()
	}
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(a.Field))
	if a.Repetition > 0 {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(a.Repetition))
		b.WriteByte(']')
	}
	if a.Component > 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(a.Component))
		if a.SubComponent > 0 {
			b.WriteByte('.')
			b.WriteString(strconv.Itoa(a.SubComponent))
		}
	}
	return b.String()
}

// Field returns the address of a field in the first occurrence of a segment.
func Field(segment string, field int) string {
	return Address{Segment: segment, Field: field}.String()
}

// Find locates an address in raw message text.
// Returns nil if the address cannot be found.
func Find(raw string, address string) *Location {
	if raw == "" || address == "" {
		return nil
	}
	a, err := Parse(address)
	if err != nil {
		return nil
	}
	lines := physicalLines(raw)

	delims := encoding.Default
	for _, l := range lines {
		if encoding.IsHeader(l.text) {
			if d, err := encoding.ParseDelimiters(l.text); err == nil {
				delims = d
			}
			break
		}
	}

	want := a.Occurrence
	if want == 0 {
		want = 1
	}
	seen := 0
	for _, l := range lines {
		if !strings.HasPrefix(l.text, a.Segment) {
			continue
		}
		if len(l.text) > 3 && []rune(l.text)[3] != delims.Field {
			continue
		}
		seen++
		if seen != want {
			continue
		}
		col, ok := column(l.text, a, delims)
		if !ok {
			return nil
		}
		return &Location{Line: l.number, Column: col}
	}
	return nil
}

type line struct {
	number int
	text   string
}

func physicalLines(raw string) []line {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	var out []line
	for i, t := range strings.Split(normalized, "\n") {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, line{number: i + 1, text: t})
	}
	return out
}

// column returns the 1-based rune column of the addressed piece in text.
func column(text string, a Address, d encoding.Delimiters) (int, bool) {
	if a.Field == 0 {
		return 1, true
	}
	isHeader := encoding.IsHeader(text)
	if isHeader && a.Field == 1 {
		return 4, true
	}

	// offsets are in bytes until the final conversion
	fields := d.SplitFields(text)
	idx := a.Field
	if isHeader {
		idx = a.Field - 1
	}
	if idx >= len(fields) {
		return 0, false
	}
	offset := 0
	for i := 0; i < idx; i++ {
		offset += len(fields[i]) + utf8.RuneLen(d.Field)
	}
	piece := fields[idx]

	if a.Repetition > 0 {
		var ok bool
		if offset, piece, ok = descend(offset, piece, string(d.Repetition), a.Repetition); !ok {
			return 0, false
		}
	}
	if a.Component > 0 {
		var ok bool
		if offset, piece, ok = descend(offset, piece, string(d.Component), a.Component); !ok {
			return 0, false
		}
		if a.SubComponent > 0 {
			if offset, _, ok = descend(offset, piece, string(d.SubComponent), a.SubComponent); !ok {
				return 0, false
			}
		}
	}
	return utf8.RuneCountInString(text[:offset]) + 1, true
}

func descend(offset int, piece, sep string, n int) (int, string, bool) {
	parts := strings.Split(piece, sep)
	if n > len(parts) {
		return 0, "", false
	}
	for i := 0; i < n-1; i++ {
		offset += len(parts[i]) + len(sep)
	}
	return offset, parts[n-1], true
}
