// Package plugins bundles the HL7 v2 versions shipped with the library.
package plugins

import (
	"github.com/gofhir/hl7v2/pkg/plugins/v23"
	"github.com/gofhir/hl7v2/pkg/plugins/v251"
	"github.com/gofhir/hl7v2/pkg/registry"
)

// All returns the bundled plugins, oldest version first.
func All() []registry.Plugin {
	return []registry.Plugin{v23.New(), v251.New()}
}

// Default returns a frozen registry with every bundled version installed.
func Default() (*registry.Registry, error) {
	r := registry.New()
	if err := r.Install(All()...); err != nil {
		return nil, err
	}
	return r.Freeze(), nil
}

// MustDefault is like Default but panics on error.
func MustDefault() *registry.Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}
