// Package encoding implements the HL7 v2 wire codec primitives: the
// per-message delimiter set, escape sequences and the recursive
// repetition/component/sub-component split and join helpers.
package encoding

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
)

// Delimiters is the delimiter set declared by a message header (MSH-1 and MSH-2).
// It is a value threaded through every split for one message, never a global.
type Delimiters struct {
	Field        rune
	Component    rune
	Repetition   rune
	Escape       rune
	SubComponent rune
	// Truncation is the optional fifth encoding character (v2.7+). Zero when absent.
	Truncation rune
}

// Default is the conventional delimiter set "|^~\&".
var Default = Delimiters{
	Field:        '|',
	Component:    '^',
	Repetition:   '~',
	Escape:       '\\',
	SubComponent: '&',
}

// Header segment identifiers that declare delimiters.
var headerIDs = []string{"MSH", "FHS", "BHS"}

// IsHeader reports whether a segment line starts with a delimiter-declaring id.
func IsHeader(line string) bool {
	for _, id := range headerIDs {
		if strings.HasPrefix(line, id) {
			return true
		}
	}
	return false
}

// ParseDelimiters reads the delimiter set from a header segment line such as
// "MSH|^~\&|...". Four encoding characters are required; a fifth one is taken
// as the truncation character.
func ParseDelimiters(header string) (Delimiters, error) {
	if !IsHeader(header) {
		return Delimiters{}, hlerrors.NewStructural("header segment must start with MSH, FHS or BHS")
	}
	rest := header[3:]
	field, size := utf8.DecodeRuneInString(rest)
	if size == 0 {
		return Delimiters{}, hlerrors.NewStructural("header segment has no field separator")
	}
	rest = rest[size:]
	if i := strings.IndexRune(rest, field); i >= 0 {
		rest = rest[:i]
	}
	chars := []rune(rest)
	if len(chars) < 4 || len(chars) > 5 {
		return Delimiters{}, &hlerrors.StructuralError{
			Reason: "cannot read encoding characters",
			Err:    fmt.Errorf("expected 4 or 5 characters, got %q", rest),
		}
	}

	d := Delimiters{
		Field:        field,
		Component:    chars[0],
		Repetition:   chars[1],
		Escape:       chars[2],
		SubComponent: chars[3],
	}
	if len(chars) == 5 {
		d.Truncation = chars[4]
	}
	if err := d.Validate(); err != nil {
		return Delimiters{}, &hlerrors.StructuralError{Reason: "invalid delimiter set", Err: err}
	}
	return d, nil
}

// Validate checks that the delimiters are distinct printable non-alphanumeric characters.
func (d Delimiters) Validate() error {
	set := d.runes()
	seen := make(map[rune]bool, len(set))
	for _, r := range set {
		switch {
		case r == 0:
			return fmt.Errorf("delimiter is unset")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return fmt.Errorf("delimiter %q is alphanumeric", r)
		case unicode.IsSpace(r) || unicode.IsControl(r):
			return fmt.Errorf("delimiter %q is whitespace or control", r)
		case seen[r]:
			return fmt.Errorf("delimiter %q is used twice", r)
		}
		seen[r] = true
	}
	return nil
}

func (d Delimiters) runes() []rune {
	rs := []rune{d.Field, d.Component, d.Repetition, d.Escape, d.SubComponent}
	if d.Truncation != 0 {
		rs = append(rs, d.Truncation)
	}
	return rs
}

// EncodingCharacters returns the MSH-2 value, e.g. "^~\&".
func (d Delimiters) EncodingCharacters() string {
	var b strings.Builder
	b.WriteRune(d.Component)
	b.WriteRune(d.Repetition)
	b.WriteRune(d.Escape)
	b.WriteRune(d.SubComponent)
	if d.Truncation != 0 {
		b.WriteRune(d.Truncation)
	}
	return b.String()
}

// IsDelimiter reports whether r is one of the set's characters.
func (d Delimiters) IsDelimiter(r rune) bool {
	for _, c := range d.runes() {
		if c == r {
			return true
		}
	}
	return false
}

// String returns the header prefix form, e.g. "|^~\&".
func (d Delimiters) String() string {
	return string(d.Field) + d.EncodingCharacters()
}
