package hl7v2

import (
	"github.com/gofhir/hl7v2/pkg/plugins/v23"
	"github.com/gofhir/hl7v2/pkg/plugins/v251"
	"github.com/gofhir/hl7v2/pkg/registry"
)

// Version represents an HL7 v2.x version.
type Version string

// Supported HL7 versions.
const (
	// V23 is HL7 v2.3
	V23 Version = v23.Version
	// V251 is HL7 v2.5.1
	V251 Version = v251.Version
)

// String returns the version string as it appears in MSH-12.
func (v Version) String() string {
	return string(v)
}

// IsValid returns true if this is a version with a built-in plugin.
func (v Version) IsValid() bool {
	_, ok := versionConfigs[v]
	return ok
}

// versionConfig holds version-specific settings.
type versionConfig struct {
	// Name is the display name of the version
	Name string

	// Plugin creates the plugin registering the version
	Plugin func() registry.Plugin
}

var versionConfigs = map[Version]versionConfig{
	V23: {
		Name:   "HL7 v2.3",
		Plugin: func() registry.Plugin { return v23.New() },
	},
	V251: {
		Name:   "HL7 v2.5.1",
		Plugin: func() registry.Plugin { return v251.New() },
	},
}

// Versions returns the built-in versions, oldest first.
func Versions() []Version {
	return []Version{V23, V251}
}

// Name returns the display name of the version, or the bare version string
// for versions without a built-in plugin.
func (v Version) Name() string {
	if cfg, ok := versionConfigs[v]; ok {
		return cfg.Name
	}
	return "HL7 v" + string(v)
}

// Plugin returns a new plugin registering the version, or nil for versions
// without a built-in plugin.
func (v Version) Plugin() registry.Plugin {
	if cfg, ok := versionConfigs[v]; ok {
		return cfg.Plugin()
	}
	return nil
}
