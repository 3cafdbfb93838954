package hl7v2

import (
	"io"
	"runtime"
	"testing"

	"github.com/gofhir/hl7v2/pkg/logger"
	"github.com/gofhir/hl7v2/pkg/mllp"
	"github.com/gofhir/hl7v2/pkg/rules"
	"github.com/gofhir/hl7v2/pkg/structure"
)

func apply(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.TrackLocations {
		t.Error("TrackLocations should be true by default")
	}
	if opts.StrictMode {
		t.Error("StrictMode should be false by default")
	}
	if opts.OrderingPolicy != nil {
		t.Error("OrderingPolicy should be unset by default")
	}
	if opts.MaxPayload != mllp.DefaultMaxPayload {
		t.Errorf("MaxPayload = %d; want %d", opts.MaxPayload, mllp.DefaultMaxPayload)
	}
	if opts.ProcessingID != "P" {
		t.Errorf("ProcessingID = %q; want P", opts.ProcessingID)
	}
	if opts.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d; want %d", opts.Workers, runtime.NumCPU())
	}
}

func TestOptions(t *testing.T) {
	set, err := rules.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	m := NewMetrics()
	l := logger.New(io.Discard, logger.LevelNone)

	opts := apply(
		WithVersion(V23),
		WithVersions(V23, V251),
		WithStrictMode(true),
		WithOrderingPolicy(structure.Advisory),
		WithTypePolicy("ADT", structure.Strict),
		WithTypePolicy("RDE^O01", structure.Advisory),
		WithRules(set),
		WithMetrics(m),
		WithLocationTracking(false),
		WithLogger(l),
		WithMaxPayload(1024),
		WithProcessingID("T"),
		WithWorkerCount(3),
		WithPlugins(V23.Plugin()),
	)

	if opts.Version != "2.3" || len(opts.Versions) != 2 || !opts.StrictMode {
		t.Errorf("version options = %+v", opts)
	}
	if opts.OrderingPolicy == nil || *opts.OrderingPolicy != structure.Advisory {
		t.Error("OrderingPolicy not applied")
	}
	if opts.TypePolicies["ADT"] != structure.Strict || opts.TypePolicies["RDE^O01"] != structure.Advisory {
		t.Errorf("TypePolicies = %v", opts.TypePolicies)
	}
	if opts.Rules != set || opts.Metrics != m || opts.Logger != l {
		t.Error("Rules, Metrics or Logger not applied")
	}
	if opts.TrackLocations || opts.MaxPayload != 1024 || opts.ProcessingID != "T" || opts.Workers != 3 {
		t.Errorf("options = %+v", opts)
	}
	if len(opts.Plugins) != 1 {
		t.Errorf("Plugins = %d; want 1", len(opts.Plugins))
	}
}

func TestOptions_InvalidValues(t *testing.T) {
	opts := apply(WithMaxPayload(-1), WithWorkerCount(0))

	if opts.MaxPayload != mllp.DefaultMaxPayload {
		t.Errorf("MaxPayload = %d; negative value should be ignored", opts.MaxPayload)
	}
	if opts.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d; zero should be ignored", opts.Workers)
	}

	if opts := apply(WithMaxPayload(0)); opts.MaxPayload != 0 {
		t.Errorf("MaxPayload = %d; 0 disables the limit", opts.MaxPayload)
	}
}

func TestPresets(t *testing.T) {
	strict := apply(StrictOptions()...)
	if !strict.StrictMode || *strict.OrderingPolicy != structure.Strict {
		t.Errorf("StrictOptions = %+v", strict)
	}

	lenient := apply(LenientOptions()...)
	if lenient.StrictMode || *lenient.OrderingPolicy != structure.Advisory || lenient.TrackLocations {
		t.Errorf("LenientOptions = %+v", lenient)
	}
}
