package encoding

import (
	"encoding/hex"
	"strings"

	"github.com/gofhir/hl7v2/pool"
)

// EscapeText replaces every delimiter character in payload with its escape
// sequence. Formatting sequences already present (\H\, \N\, \.br\, \Zxx\,
// \Cxxyy\, \Mxxyyzz\) pass through untouched.
func (d Delimiters) EscapeText(payload string) string {
	if !d.needsEscape(payload) {
		return payload
	}
	b := pool.AcquireBuffer()
	defer b.Release()

	for i := 0; i < len(payload); {
		r, size := decodeRune(payload[i:])
		if r == d.Escape {
			if n := d.formattingLength(payload[i:]); n > 0 {
				b.WriteString(payload[i : i+n])
				i += n
				continue
			}
		}
		if code := d.escapeCode(r); code != 0 {
			b.WriteRune(d.Escape)
			_ = b.WriteByte(code)
			b.WriteRune(d.Escape)
		} else {
			b.WriteString(payload[i : i+size])
		}
		i += size
	}
	return b.String()
}

// Unescape decodes delimiter and hex escape sequences. Formatting sequences
// and unrecognized sequences are kept verbatim.
func (d Delimiters) Unescape(text string) string {
	if !strings.ContainsRune(text, d.Escape) {
		return text
	}
	b := pool.AcquireBuffer()
	defer b.Release()

	esc := string(d.Escape)
	for i := 0; i < len(text); {
		r, size := decodeRune(text[i:])
		if r != d.Escape {
			b.WriteString(text[i : i+size])
			i += size
			continue
		}
		end := strings.Index(text[i+size:], esc)
		if end < 0 {
			b.WriteString(text[i:])
			break
		}
		body := text[i+size : i+size+end]
		whole := text[i : i+size+end+len(esc)]
		i += len(whole)

		if decoded, ok := d.decodeSequence(body); ok {
			b.WriteString(decoded)
		} else {
			b.WriteString(whole)
		}
	}
	return b.String()
}

func (d Delimiters) needsEscape(s string) bool {
	for _, r := range s {
		if d.IsDelimiter(r) {
			return true
		}
	}
	return false
}

func (d Delimiters) escapeCode(r rune) byte {
	switch r {
	case d.Field:
		return 'F'
	case d.Component:
		return 'S'
	case d.Repetition:
		return 'R'
	case d.SubComponent:
		return 'T'
	case d.Escape:
		return 'E'
	}
	if d.Truncation != 0 && r == d.Truncation {
		return 'P'
	}
	return 0
}

func (d Delimiters) decodeSequence(body string) (string, bool) {
	switch body {
	case "F":
		return string(d.Field), true
	case "S":
		return string(d.Component), true
	case "R":
		return string(d.Repetition), true
	case "T":
		return string(d.SubComponent), true
	case "E":
		return string(d.Escape), true
	case "P":
		if d.Truncation != 0 {
			return string(d.Truncation), true
		}
		return "", false
	}
	if len(body) > 1 && body[0] == 'X' && len(body)%2 == 1 {
		raw, err := hex.DecodeString(body[1:])
		if err == nil {
			return string(raw), true
		}
	}
	return "", false
}

// formattingLength returns the byte length of a formatting sequence at the
// start of s, or 0 when s does not start with one.
func (d Delimiters) formattingLength(s string) int {
	esc := string(d.Escape)
	if !strings.HasPrefix(s, esc) {
		return 0
	}
	end := strings.Index(s[len(esc):], esc)
	if end <= 0 {
		return 0
	}
	body := s[len(esc) : len(esc)+end]
	if !isFormatting(body) {
		return 0
	}
	for _, r := range body {
		if d.IsDelimiter(r) {
			return 0
		}
	}
	return len(esc) + end + len(esc)
}

// isFormatting recognizes the formatted-text commands and character set
// switches that EscapeText and Unescape leave in place.
func isFormatting(body string) bool {
	switch body {
	case "H", "N":
		return true
	}
	if len(body) < 2 {
		return false
	}
	switch body[0] {
	case '.':
		// .br .sp .fi .nf .in+2 .ti-4 .sk3 .ce
		if len(body) < 3 || !isLower(body[1]) || !isLower(body[2]) {
			return false
		}
		for i := 3; i < len(body); i++ {
			if c := body[i]; !isDigit(c) && c != '+' && c != '-' {
				return false
			}
		}
		return true
	case 'Z', 'C', 'M':
		for i := 1; i < len(body); i++ {
			if !isAlnum(body[i]) {
				return false
			}
		}
		return body[0] == 'Z' || len(body)%2 == 1
	}
	return false
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
