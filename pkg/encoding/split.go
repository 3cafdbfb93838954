package encoding

import (
	"strings"
	"unicode/utf8"
)

// SegmentTerminator is the canonical segment separator.
const SegmentTerminator = "\r"

// SplitSegments splits message text into segment lines. CR, LF and CRLF are
// all accepted as terminators; blank and whitespace-only lines are skipped.
func SplitSegments(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\r")
	normalized = strings.ReplaceAll(normalized, "\n", "\r")
	parts := strings.Split(normalized, "\r")
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// JoinSegments joins segment lines with CR, or LF when useCR is false.
func JoinSegments(lines []string, useCR bool) string {
	sep := SegmentTerminator
	if !useCR {
		sep = "\n"
	}
	return strings.Join(lines, sep)
}

// SplitFields splits a segment line on the field separator.
func (d Delimiters) SplitFields(line string) []string {
	return strings.Split(line, string(d.Field))
}

// SplitRepetitions splits a field on the repetition separator.
// The empty field yields a single empty repetition.
func (d Delimiters) SplitRepetitions(field string) []string {
	return strings.Split(field, string(d.Repetition))
}

// SplitComponents splits a repetition on the component separator.
func (d Delimiters) SplitComponents(rep string) []string {
	return strings.Split(rep, string(d.Component))
}

// SplitSubComponents splits a component on the sub-component separator.
func (d Delimiters) SplitSubComponents(comp string) []string {
	return strings.Split(comp, string(d.SubComponent))
}

// JoinFields joins field forms, truncating trailing empty ones when trim is set.
func (d Delimiters) JoinFields(fields []string, trim bool) string {
	return join(fields, d.Field, trim)
}

// JoinRepetitions joins repetition forms, dropping trailing empty repetitions.
func (d Delimiters) JoinRepetitions(reps []string) string {
	return join(reps, d.Repetition, true)
}

// JoinComponents joins component forms, dropping trailing empty components.
func (d Delimiters) JoinComponents(comps []string) string {
	return join(comps, d.Component, true)
}

// JoinSubComponents joins sub-component forms, dropping trailing empty ones.
func (d Delimiters) JoinSubComponents(subs []string) string {
	return join(subs, d.SubComponent, true)
}

func join(parts []string, sep rune, trim bool) string {
	n := len(parts)
	if trim {
		for n > 0 && parts[n-1] == "" {
			n--
		}
	}
	return strings.Join(parts[:n], string(sep))
}

// Decompose splits a raw field into repetitions, components and sub-components.
// Text is left escaped; callers unescape only at the depth their type uses.
func (d Delimiters) Decompose(field string) [][][]string {
	reps := d.SplitRepetitions(field)
	out := make([][][]string, len(reps))
	for i, rep := range reps {
		comps := d.SplitComponents(rep)
		out[i] = make([][]string, len(comps))
		for j, comp := range comps {
			out[i][j] = d.SplitSubComponents(comp)
		}
	}
	return out
}

// Compose is the inverse of Decompose, dropping trailing empty parts at each level.
func (d Delimiters) Compose(tree [][][]string) string {
	reps := make([]string, len(tree))
	for i, rep := range tree {
		comps := make([]string, len(rep))
		for j, subs := range rep {
			comps[j] = d.JoinSubComponents(subs)
		}
		reps[i] = d.JoinComponents(comps)
	}
	return d.JoinRepetitions(reps)
}

func decodeRune(s string) (rune, int) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		size = 1
	}
	return r, size
}
