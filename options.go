package hl7v2

import (
	"runtime"

	"github.com/gofhir/hl7v2/pkg/logger"
	"github.com/gofhir/hl7v2/pkg/mllp"
	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/pkg/rules"
	"github.com/gofhir/hl7v2/pkg/structure"
)

// Option configures the Codec.
type Option func(*Options)

// Options holds all configuration for the Codec.
type Options struct {
	// Version is used when MSH-12 is empty and for built messages.
	Version string

	// Versions lists the built-in versions to install. Empty installs all.
	Versions []Version

	// Plugins are installed after the built-in versions.
	Plugins []registry.Plugin

	// Registry replaces the built-in registry entirely.
	Registry *registry.Registry

	// StrictMode treats warnings as errors.
	StrictMode bool

	// OrderingPolicy overrides the ordering policy of every structure.
	OrderingPolicy *structure.Policy

	// TypePolicies overrides the ordering policy per message code or type.
	TypePolicies map[string]structure.Policy

	// Rules are evaluated after structural validation.
	Rules *rules.Set

	// Metrics receives codec counters; nil disables recording.
	Metrics *Metrics

	// TrackLocations adds line/column information to issues.
	TrackLocations bool

	// Logger defaults to the package-level logger.
	Logger *logger.Logger

	// MaxPayload bounds accepted input in bytes. 0 means unlimited.
	MaxPayload int

	// ProcessingID is MSH-11 of built messages and acknowledgments.
	ProcessingID string

	// Workers bounds parallel batch and stream processing.
	Workers int
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		TrackLocations: true,
		MaxPayload:     mllp.DefaultMaxPayload,
		ProcessingID:   "P",
		Workers:        runtime.NumCPU(),
	}
}

// WithVersion sets the version used when MSH-12 is empty and for built
// messages.
func WithVersion(v Version) Option {
	return func(o *Options) {
		o.Version = string(v)
	}
}

// WithVersions limits the installed built-in versions.
func WithVersions(vs ...Version) Option {
	return func(o *Options) {
		o.Versions = append([]Version(nil), vs...)
	}
}

// WithPlugins installs extra standard or version plugins.
func WithPlugins(ps ...registry.Plugin) Option {
	return func(o *Options) {
		o.Plugins = append(o.Plugins, ps...)
	}
}

// WithRegistry uses r instead of building a registry. r should be frozen.
func WithRegistry(r *registry.Registry) Option {
	return func(o *Options) {
		o.Registry = r
	}
}

// WithStrictMode treats warnings as errors.
func WithStrictMode(enable bool) Option {
	return func(o *Options) {
		o.StrictMode = enable
	}
}

// WithOrderingPolicy overrides the ordering policy of every structure.
func WithOrderingPolicy(p structure.Policy) Option {
	return func(o *Options) {
		o.OrderingPolicy = &p
	}
}

// WithTypePolicy overrides the ordering policy for one message code
// ("ADT") or type ("ADT^A01").
func WithTypePolicy(messageType string, p structure.Policy) Option {
	return func(o *Options) {
		if o.TypePolicies == nil {
			o.TypePolicies = make(map[string]structure.Policy)
		}
		o.TypePolicies[messageType] = p
	}
}

// WithRules adds FHIRPath conformance rules to validation.
func WithRules(set *rules.Set) Option {
	return func(o *Options) {
		o.Rules = set
	}
}

// WithMetrics records codec activity into m.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithLocationTracking enables line/column information on issues.
func WithLocationTracking(enable bool) Option {
	return func(o *Options) {
		o.TrackLocations = enable
	}
}

// WithLogger sets the logger used by the codec.
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMaxPayload bounds accepted input in bytes. Use 0 for no limit.
func WithMaxPayload(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.MaxPayload = n
		}
	}
}

// WithProcessingID sets MSH-11 of built messages (P, D or T).
func WithProcessingID(id string) Option {
	return func(o *Options) {
		o.ProcessingID = id
	}
}

// WithWorkerCount sets the number of parallel workers.
func WithWorkerCount(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// --- Presets ---

// StrictOptions returns options for strict conformance checking:
// warnings become errors and every structure is checked strictly.
func StrictOptions() []Option {
	return []Option{
		WithStrictMode(true),
		WithOrderingPolicy(structure.Strict),
	}
}

// LenientOptions returns options for accepting messages from loosely
// conforming senders: ordering problems are advisory and issues carry no
// locations.
func LenientOptions() []Option {
	return []Option{
		WithStrictMode(false),
		WithOrderingPolicy(structure.Advisory),
		WithLocationTracking(false),
	}
}
