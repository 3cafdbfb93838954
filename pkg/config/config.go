// Package config loads codec settings from TOML or YAML files and turns
// them into codec options.
//
// A TOML file:
//
//	version = "2.5.1"
//	strict = false
//	ordering = "advisory"
//	log_level = "info"
//	rules_file = "${HL7_RULES}"
//
//	[type_ordering]
//	"RDE^O01" = "strict"
//
//	[metrics]
//	enabled = true
//	namespace = "hl7v2"
//
// Environment variables in the file are expanded before decoding.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	hl7v2 "github.com/gofhir/hl7v2"
	"github.com/gofhir/hl7v2/pkg/logger"
	"github.com/gofhir/hl7v2/pkg/mllp"
	"github.com/gofhir/hl7v2/pkg/rules"
	"github.com/gofhir/hl7v2/pkg/structure"
)

// ErrInvalidConfig is returned for configurations that fail validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the file form of the codec settings.
type Config struct {
	// Version is used for messages without MSH-12 and for built messages.
	Version string `toml:"version" yaml:"version"`

	// Versions limits the installed built-in versions. Empty installs all.
	Versions []string `toml:"versions" yaml:"versions"`

	Strict bool `toml:"strict" yaml:"strict"`

	// Ordering is "strict" or "advisory"; empty keeps each structure's own.
	Ordering string `toml:"ordering" yaml:"ordering"`

	// TypeOrdering maps a message code or type to an ordering policy.
	TypeOrdering map[string]string `toml:"type_ordering" yaml:"type_ordering"`

	// Locations enables line/column tracking; nil keeps the default (on).
	Locations *bool `toml:"locations" yaml:"locations"`

	LogLevel     string `toml:"log_level" yaml:"log_level"`
	Workers      int    `toml:"workers" yaml:"workers"`
	MaxPayload   int    `toml:"max_payload" yaml:"max_payload"`
	ProcessingID string `toml:"processing_id" yaml:"processing_id"`

	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`

	// Rules are inline conformance rules.
	Rules []rules.Rule `toml:"rules" yaml:"rules"`

	// RulesFile is a YAML rule file, resolved relative to the config file.
	RulesFile string `toml:"rules_file" yaml:"rules_file"`
}

// MetricsConfig holds the Prometheus export settings.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Namespace string `toml:"namespace" yaml:"namespace"`
	Addr      string `toml:"addr" yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		MaxPayload:   mllp.DefaultMaxPayload,
		ProcessingID: "P",
		Metrics: MetricsConfig{
			Namespace: "hl7v2",
			Addr:      ":9090",
		},
	}
}

// Load reads a .toml, .yaml or .yml file over the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if cfg.RulesFile != "" && !filepath.IsAbs(cfg.RulesFile) {
		cfg.RulesFile = filepath.Join(filepath.Dir(path), cfg.RulesFile)
	}
	return cfg, nil
}

// Parse decodes a configuration document. ext selects the format
// (".toml", ".yaml" or ".yml").
func Parse(data []byte, ext string) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(data))

	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidConfig, ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	for _, v := range c.Versions {
		if !hl7v2.Version(v).IsValid() {
			return fmt.Errorf("%w: versions: unknown version %q", ErrInvalidConfig, v)
		}
	}
	if c.Ordering != "" {
		if _, err := structure.ParsePolicy(c.Ordering); err != nil {
			return fmt.Errorf("%w: ordering: %w", ErrInvalidConfig, err)
		}
	}
	for mt, p := range c.TypeOrdering {
		if strings.TrimSpace(mt) == "" {
			return fmt.Errorf("%w: type_ordering: empty message type", ErrInvalidConfig)
		}
		if _, err := structure.ParsePolicy(p); err != nil {
			return fmt.Errorf("%w: type_ordering[%s]: %w", ErrInvalidConfig, mt, err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error", "none":
	default:
		return fmt.Errorf("%w: log_level: unknown level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.MaxPayload < 0 {
		return fmt.Errorf("%w: max_payload must not be negative", ErrInvalidConfig)
	}
	switch c.ProcessingID {
	case "", "P", "D", "T":
	default:
		return fmt.Errorf("%w: processing_id must be P, D or T, got %q", ErrInvalidConfig, c.ProcessingID)
	}
	for i, r := range c.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: rules[%d]: %w", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

// LoadRules compiles the inline rules followed by those of RulesFile.
// It returns nil when no rule is configured.
func (c *Config) LoadRules() (*rules.Set, error) {
	all := append([]rules.Rule(nil), c.Rules...)
	if c.RulesFile != "" {
		fromFile, err := rules.Load(c.RulesFile)
		if err != nil {
			return nil, err
		}
		all = append(all, fromFile...)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return rules.New(all)
}

// Logger builds a console logger at the configured level.
func (c *Config) Logger() *logger.Logger {
	return logger.NewConsole(os.Stderr, logger.ParseLevel(c.LogLevel))
}

// Options converts the configuration into codec options. Metrics and the
// logger are left to the caller.
func (c *Config) Options() ([]hl7v2.Option, error) {
	var opts []hl7v2.Option
	if c.Version != "" {
		opts = append(opts, hl7v2.WithVersion(hl7v2.Version(c.Version)))
	}
	if len(c.Versions) > 0 {
		vs := make([]hl7v2.Version, len(c.Versions))
		for i, v := range c.Versions {
			vs[i] = hl7v2.Version(v)
		}
		opts = append(opts, hl7v2.WithVersions(vs...))
	}
	opts = append(opts, hl7v2.WithStrictMode(c.Strict))
	if c.Ordering != "" {
		p, err := structure.ParsePolicy(c.Ordering)
		if err != nil {
			return nil, err
		}
		opts = append(opts, hl7v2.WithOrderingPolicy(p))
	}
	for mt, name := range c.TypeOrdering {
		p, err := structure.ParsePolicy(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, hl7v2.WithTypePolicy(mt, p))
	}
	if c.Locations != nil {
		opts = append(opts, hl7v2.WithLocationTracking(*c.Locations))
	}
	if c.Workers > 0 {
		opts = append(opts, hl7v2.WithWorkerCount(c.Workers))
	}
	opts = append(opts, hl7v2.WithMaxPayload(c.MaxPayload))
	if c.ProcessingID != "" {
		opts = append(opts, hl7v2.WithProcessingID(c.ProcessingID))
	}
	set, err := c.LoadRules()
	if err != nil {
		return nil, err
	}
	if set != nil {
		opts = append(opts, hl7v2.WithRules(set))
	}
	return opts, nil
}
