// Package registry resolves (standard, version, message type) keys to the
// segment factories and message structures registered by standard plugins.
//
// A Registry has a single-writer registration phase followed by Freeze, after
// which it is an immutable snapshot safe for any number of concurrent readers.
// There is no package-level registry: callers construct one and pass it on.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/logger"
	"github.com/gofhir/hl7v2/pkg/segment"
	"github.com/gofhir/hl7v2/pkg/structure"
)

// StandardHL7v2 is the standard family name used by the bundled plugins.
const StandardHL7v2 = "HL7v2"

// Key identifies a registration. MessageType is "CODE^TRIGGER", "CODE", or
// empty for the version-wide default entry.
type Key struct {
	Standard    string
	Version     string
	MessageType string
}

// String renders "HL7v2/2.5.1/ADT^A01".
func (k Key) String() string {
	if k.MessageType == "" {
		return k.Standard + "/" + k.Version
	}
	return k.Standard + "/" + k.Version + "/" + k.MessageType
}

// parent returns the next key in the fallback chain:
// CODE^TRIGGER, then CODE, then the version default.
func (k Key) parent() (Key, bool) {
	switch {
	case k.MessageType == "":
		return Key{}, false
	case strings.Contains(k.MessageType, "^"):
		k.MessageType = k.MessageType[:strings.Index(k.MessageType, "^")]
	default:
		k.MessageType = ""
	}
	return k, true
}

// chain returns k followed by its fallbacks.
func (k Key) chain() []Key {
	out := []Key{k}
	for p, ok := k.parent(); ok; p, ok = p.parent() {
		out = append(out, p)
	}
	return out
}

// Entry is what a key resolves to. Either part may be empty; lookups walk the
// fallback chain until they find a non-empty one.
type Entry struct {
	// Structure drives structural validation; nil skips it.
	Structure *structure.Structure
	// Segments maps segment ids to factories.
	Segments map[string]segment.Factory
}

// Plugin registers one standard version.
type Plugin interface {
	Standard() string
	Version() string
	Register(r *Registry) error
}

type snapshot struct {
	entries map[Key]*Entry
}

// Registry maps keys to entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
	frozen  atomic.Pointer[snapshot]
}

// New creates an empty, writable registry.
func New() *Registry {
	return &Registry{entries: make(map[Key]*Entry)}
}

func validKey(k Key) error {
	if k.Standard == "" || k.Version == "" {
		return fmt.Errorf("%w: %q", hlerrors.ErrInvalidKey, k.String())
	}
	return nil
}

// Register adds an entry. Registering a key twice, or registering after
// Freeze, is an error.
func (r *Registry) Register(key Key, e Entry) error {
	if err := validKey(key); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() != nil {
		return fmt.Errorf("register %s: %w", key, hlerrors.ErrRegistryFrozen)
	}
	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("register %s: %w", key, hlerrors.ErrDuplicatePlugin)
	}
	segs := make(map[string]segment.Factory, len(e.Segments))
	for id, f := range e.Segments {
		segs[id] = f
	}
	r.entries[key] = &Entry{Structure: e.Structure, Segments: segs}
	logger.Debug("registry: registered %s (%d segments)", key, len(segs))
	return nil
}

// RegisterSegment adds a segment factory to an entry, creating the entry
// when needed. A later factory for the same id replaces the earlier one.
func (r *Registry) RegisterSegment(key Key, id string, f segment.Factory) error {
	if err := validKey(key); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() != nil {
		return fmt.Errorf("register %s segment %s: %w", key, id, hlerrors.ErrRegistryFrozen)
	}
	e, ok := r.entries[key]
	if !ok {
		e = &Entry{Segments: make(map[string]segment.Factory)}
		r.entries[key] = e
	}
	e.Segments[id] = f
	return nil
}

// Install registers every plugin in order, stopping at the first error.
func (r *Registry) Install(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Register(r); err != nil {
			return fmt.Errorf("install %s %s: %w", p.Standard(), p.Version(), err)
		}
		logger.Debug("registry: installed %s %s", p.Standard(), p.Version())
	}
	return nil
}

// Freeze ends the registration phase. Later reads are lock-free. Freeze is
// idempotent.
func (r *Registry) Freeze() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() != nil {
		return r
	}
	r.frozen.Store(&snapshot{entries: r.entries})
	return r
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load() != nil
}

// lookup runs fn against the entries, under the read lock until frozen.
func (r *Registry) lookup(fn func(map[Key]*Entry)) {
	if s := r.frozen.Load(); s != nil {
		fn(s.entries)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.entries)
}

// Resolve returns the first entry on the fallback chain of key.
// It never fails hard: a false result means the caller uses the generic path.
func (r *Registry) Resolve(key Key) (*Entry, bool) {
	var found *Entry
	r.lookup(func(entries map[Key]*Entry) {
		for _, k := range key.chain() {
			if e, ok := entries[k]; ok {
				found = e
				return
			}
		}
	})
	return found, found != nil
}

// SegmentFactory returns the factory for a segment id, searching the
// fallback chain of key. The second result is false when the segment has no
// registered schema.
func (r *Registry) SegmentFactory(key Key, id string) (segment.Factory, bool) {
	var found segment.Factory
	r.lookup(func(entries map[Key]*Entry) {
		for _, k := range key.chain() {
			if e, ok := entries[k]; ok {
				if f, ok := e.Segments[id]; ok {
					found = f
					return
				}
			}
		}
	})
	return found, found != nil
}

// NewSegment creates a segment for id, falling back to a generic segment.
func (r *Registry) NewSegment(key Key, id string) segment.Segment {
	if f, ok := r.SegmentFactory(key, id); ok {
		return f()
	}
	return segment.NewGeneric(id)
}

// Structure returns the message structure for key, searching its fallback chain.
func (r *Registry) Structure(key Key) (*structure.Structure, bool) {
	var found *structure.Structure
	r.lookup(func(entries map[Key]*Entry) {
		for _, k := range key.chain() {
			if e, ok := entries[k]; ok && e.Structure != nil {
				found = e.Structure
				return
			}
		}
	})
	return found, found != nil
}

// HasVersion reports whether anything is registered for standard and version.
func (r *Registry) HasVersion(standard, version string) bool {
	_, ok := r.Resolve(Key{Standard: standard, Version: version})
	return ok
}

// Versions returns the sorted versions registered for a standard.
func (r *Registry) Versions(standard string) []string {
	seen := make(map[string]bool)
	r.lookup(func(entries map[Key]*Entry) {
		for k := range entries {
			if k.Standard == standard {
				seen[k.Version] = true
			}
		}
	})
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MessageTypes returns the sorted message types registered for a version.
func (r *Registry) MessageTypes(standard, version string) []string {
	var out []string
	r.lookup(func(entries map[Key]*Entry) {
		for k := range entries {
			if k.Standard == standard && k.Version == version && k.MessageType != "" {
				out = append(out, k.MessageType)
			}
		}
	})
	sort.Strings(out)
	return out
}

// Count returns the number of registered keys.
func (r *Registry) Count() int {
	n := 0
	r.lookup(func(entries map[Key]*Entry) { n = len(entries) })
	return n
}
