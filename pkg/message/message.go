// Package message implements the HL7 v2 message model: an ordered list of
// segments sharing one delimiter set, with lenient parsing, serialization,
// strict validation and typed builders for the supported message types.
package message

import (
	"fmt"

	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/pkg/segment"
	"github.com/gofhir/hl7v2/pkg/structure"
	"github.com/gofhir/hl7v2/pool"
)

// Message is an ordered segment list. A Message is owned by one goroutine;
// only the registry it references is shared.
type Message struct {
	reg      *registry.Registry
	key      registry.Key
	delims   encoding.Delimiters
	segments []segment.Segment
	cfg      config

	// source is the text the message was parsed from, used to locate issues.
	source string
}

func newMessage(reg *registry.Registry, key registry.Key, cfg config) *Message {
	return &Message{reg: reg, key: key, delims: encoding.Default, cfg: cfg}
}

// Key returns the registry key the message was parsed or built under.
func (m *Message) Key() registry.Key { return m.key }

// Registry returns the registry used to resolve segments.
func (m *Message) Registry() *registry.Registry { return m.reg }

// Delimiters returns the message delimiter set.
func (m *Message) Delimiters() encoding.Delimiters { return m.delims }

// SetDelimiters changes the delimiters used by Encode.
func (m *Message) SetDelimiters(d encoding.Delimiters) error {
	if err := d.Validate(); err != nil {
		return &hlerrors.StructuralError{Reason: "invalid delimiter set", Err: err}
	}
	m.delims = d
	return nil
}

// Source returns the text the message was parsed from, or "".
func (m *Message) Source() string { return m.source }

// Len returns the number of segments.
func (m *Message) Len() int { return len(m.segments) }

// Segments returns the segments in order. The slice is shared.
func (m *Message) Segments() []segment.Segment { return m.segments }

// IDs returns the segment identifiers in order.
func (m *Message) IDs() []string {
	ids := make([]string, len(m.segments))
	for i, s := range m.segments {
		ids[i] = s.ID()
	}
	return ids
}

// NewSegment creates an empty segment for id using the message's registry
// key, falling back to a generic segment.
func (m *Message) NewSegment(id string) segment.Segment {
	if m.reg != nil {
		if f, ok := m.reg.SegmentFactory(m.key, id); ok {
			return f()
		}
	}
	if id == "MSH" {
		return segment.NewHeader()
	}
	return segment.NewGeneric(id)
}

// Add appends segments.
func (m *Message) Add(segs ...segment.Segment) {
	m.segments = append(m.segments, segs...)
}

// Append creates a segment for id, appends it and returns it.
func (m *Message) Append(id string) segment.Segment {
	s := m.NewSegment(id)
	m.Add(s)
	return s
}

// Insert places seg at index i, shifting later segments. i == Len appends.
func (m *Message) Insert(i int, seg segment.Segment) error {
	if i < 0 || i > len(m.segments) {
		return fmt.Errorf("insert %s at %d of %d: %w", seg.ID(), i, len(m.segments), hlerrors.ErrSegmentOutOfRange)
	}
	m.segments = append(m.segments, nil)
	copy(m.segments[i+1:], m.segments[i:])
	m.segments[i] = seg
	return nil
}

// Remove deletes and returns the segment at index i.
func (m *Message) Remove(i int) (segment.Segment, error) {
	if i < 0 || i >= len(m.segments) {
		return nil, fmt.Errorf("remove %d of %d: %w", i, len(m.segments), hlerrors.ErrSegmentOutOfRange)
	}
	s := m.segments[i]
	m.segments = append(m.segments[:i], m.segments[i+1:]...)
	return s, nil
}

// RemoveAll deletes every segment with the given id and returns how many
// were removed.
func (m *Message) RemoveAll(id string) int {
	kept := m.segments[:0]
	for _, s := range m.segments {
		if s.ID() != id {
			kept = append(kept, s)
		}
	}
	n := len(m.segments) - len(kept)
	clear(m.segments[len(kept):])
	m.segments = kept
	return n
}

// Index returns the position of the first segment with id, or -1.
func (m *Message) Index(id string) int {
	for i, s := range m.segments {
		if s.ID() == id {
			return i
		}
	}
	return -1
}

// First returns the first segment with id, or nil.
func (m *Message) First(id string) segment.Segment {
	if i := m.Index(id); i >= 0 {
		return m.segments[i]
	}
	return nil
}

// All returns every segment with id, in order.
func (m *Message) All(id string) []segment.Segment {
	var out []segment.Segment
	for _, s := range m.segments {
		if s.ID() == id {
			out = append(out, s)
		}
	}
	return out
}

// Header returns the MSH segment, or nil when the message has none.
func (m *Message) Header() *segment.MSH {
	h, _ := FirstOf[*segment.MSH](m)
	return h
}

// Type returns "CODE^TRIGGER" from the header.
func (m *Message) Type() string {
	if h := m.Header(); h != nil {
		return h.MessageKey()
	}
	return m.key.MessageType
}

// Version returns MSH-12, or the key version when the header is missing.
func (m *Message) Version() string {
	if h := m.Header(); h != nil && h.Version() != "" {
		return h.Version()
	}
	return m.key.Version
}

// ControlID returns MSH-10.
func (m *Message) ControlID() string {
	if h := m.Header(); h != nil {
		return h.ControlID()
	}
	return ""
}

// Structure returns the structure registered for the message key.
func (m *Message) Structure() (*structure.Structure, bool) {
	if m.reg == nil {
		return nil, false
	}
	return m.reg.Structure(m.key)
}

// FirstOf returns the first segment of type T.
func FirstOf[T segment.Segment](m *Message) (T, bool) {
	for _, s := range m.segments {
		if t, ok := s.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// AllOf returns every segment of type T, in order.
func AllOf[T segment.Segment](m *Message) []T {
	var out []T
	for _, s := range m.segments {
		if t, ok := s.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Get returns the first segment with id as type T. It fails with a
// StructuralError when the segment is absent and with ErrSchemaMismatch when
// the segment was not decoded into T, e.g. because its version has no
// registered schema.
func Get[T segment.Segment](m *Message, id string) (T, error) {
	var zero T
	s := m.First(id)
	if s == nil {
		return zero, hlerrors.NewStructural(fmt.Sprintf("message has no %s segment", id))
	}
	t, ok := s.(T)
	if !ok {
		return zero, fmt.Errorf("%s is %T: %w", id, s, hlerrors.ErrSchemaMismatch)
	}
	return t, nil
}

// Encode serializes the message, joining segments with CR, or LF when useCR
// is false.
func (m *Message) Encode(useCR bool) string {
	lines := pool.AcquireLines()
	defer lines.Release()
	for _, s := range m.segments {
		lines.Add(s.Encode(m.delims))
	}
	return encoding.JoinSegments(*lines, useCR)
}

// String returns the CR-separated encoding.
func (m *Message) String() string { return m.Encode(true) }
