package message

import (
	"strings"

	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/logger"
	"github.com/gofhir/hl7v2/pkg/mllp"
	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/pkg/segment"
)

// Parse decodes message text. Segments may be separated by CR, LF or CRLF;
// blank lines are skipped. Delimiters come from the first header segment.
// The registry key is built from MSH-12 and MSH-9, and each segment is
// decoded by the factory resolved for its id or kept as a generic segment.
//
// Parse is lenient: field problems, unknown segments and unregistered
// versions are reported later by Validate. It fails with a StructuralError
// only when the input is empty, holds no segment, or declares delimiters
// that cannot be read. reg may be nil, in which case every segment but the
// header is generic.
func Parse(text string, reg *registry.Registry, opts ...Option) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, hlerrors.NewStructural("empty input")
	}
	lines := encoding.SplitSegments(text)

	d := encoding.Default
	header := -1
	for i, l := range lines {
		if encoding.IsHeader(l) {
			header = i
			break
		}
	}
	if header >= 0 {
		var err error
		if d, err = encoding.ParseDelimiters(lines[header]); err != nil {
			return nil, err
		}
	}
	if !decomposable(lines, d) {
		return nil, hlerrors.NewStructural("no segment found in input")
	}

	cfg := newConfig(opts)
	key := registry.Key{Standard: cfg.standard, Version: cfg.version}
	if header >= 0 && segment.IDOf(lines[header], d) == "MSH" {
		probe := segment.NewHeader()
		probe.Decode(lines[header], d)
		if v := probe.Version(); v != "" {
			key.Version = v
		}
		key.MessageType = probe.MessageKey()
	}

	m := newMessage(reg, key, cfg)
	m.delims = d
	m.source = text
	if reg != nil && key.Version != "" && !reg.HasVersion(key.Standard, key.Version) {
		logger.Debug("message: %s %s is not registered, decoding generically", key.Standard, key.Version)
	}
	m.segments = make([]segment.Segment, 0, len(lines))
	for _, l := range lines {
		s := m.NewSegment(segment.IDOf(l, d))
		s.Decode(l, d)
		m.segments = append(m.segments, s)
	}
	return m, nil
}

// decomposable reports whether at least one line starts with a well-formed
// segment identifier.
func decomposable(lines []string, d encoding.Delimiters) bool {
	for _, l := range lines {
		if segment.ValidID(segment.IDOf(l, d)) {
			return true
		}
	}
	return false
}

// ParseBytes decodes a bare or MLLP-framed message.
func ParseBytes(b []byte, reg *registry.Registry, opts ...Option) (*Message, error) {
	if mllp.IsFramed(b) {
		payload, err := mllp.Unwrap(b)
		if err != nil {
			return nil, &hlerrors.StructuralError{Reason: "cannot unwrap MLLP frame", Err: err}
		}
		b = payload
	}
	return Parse(string(b), reg, opts...)
}

// Frame returns the CR-separated encoding wrapped in an MLLP frame.
func (m *Message) Frame() []byte {
	return mllp.Wrap([]byte(m.Encode(true)))
}

// SplitBatch splits text holding several messages into one text per
// message. Each message starts at an MSH segment; batch and file envelope
// segments (FHS, BHS, BTS, FTS) are dropped.
func SplitBatch(text string) []string {
	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, encoding.JoinSegments(cur, true))
			cur = nil
		}
	}
	for _, l := range encoding.SplitSegments(text) {
		switch {
		case strings.HasPrefix(l, "FHS"), strings.HasPrefix(l, "BHS"),
			strings.HasPrefix(l, "BTS"), strings.HasPrefix(l, "FTS"):
			flush()
		case strings.HasPrefix(l, "MSH"):
			flush()
			cur = append(cur, l)
		default:
			cur = append(cur, l)
		}
	}
	flush()
	return out
}
