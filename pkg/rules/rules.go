// Package rules evaluates site-specific conformance rules written in
// FHIRPath against the FHIR projection of a message.
//
// A rule names a FHIR resource type and an expression that must hold for
// every projected resource of that type:
//
//	rules:
//	  - id: patient-birthdate
//	    resource: Patient
//	    expression: birthDate.exists()
//	    severity: warning
//	    message: PID-7 should carry the date of birth
//
// Failures become issues addressed at the segment the resource was
// projected from, so they merge with the codec's own validation report.
package rules

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"
	"gopkg.in/yaml.v3"

	"github.com/gofhir/hl7v2/cache"
	"github.com/gofhir/hl7v2/pkg/fhirmap"
	"github.com/gofhir/hl7v2/pkg/issue"
	"github.com/gofhir/hl7v2/pkg/logger"
	"github.com/gofhir/hl7v2/pkg/message"
)

// ErrInvalidRule is returned for rules that are incomplete or do not compile.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is one FHIRPath conformance rule.
type Rule struct {
	ID         string `json:"id" yaml:"id" toml:"id"`
	Resource   string `json:"resource" yaml:"resource" toml:"resource"`
	Expression string `json:"expression" yaml:"expression" toml:"expression"`
	// Severity is error (default), warning or information.
	Severity string `json:"severity,omitempty" yaml:"severity,omitempty" toml:"severity,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty" toml:"message,omitempty"`
}

// Validate checks that the rule is complete.
func (r Rule) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidRule)
	case r.Resource == "":
		return fmt.Errorf("%w: %s: missing resource", ErrInvalidRule, r.ID)
	case r.Expression == "":
		return fmt.Errorf("%w: %s: missing expression", ErrInvalidRule, r.ID)
	}
	// Fatal is reserved for undecodable input.
	if sev, ok := issue.ParseSeverity(r.Severity); !ok || sev == issue.SeverityFatal {
		return fmt.Errorf("%w: %s: unknown severity %q", ErrInvalidRule, r.ID, r.Severity)
	}
	return nil
}

func (r Rule) severity() issue.Severity {
	sev, _ := issue.ParseSeverity(r.Severity)
	return sev
}

func (r Rule) message() string {
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("Rule '%s' failed: %s", r.ID, r.Expression)
}

// File is the layout of a rule file.
type File struct {
	Rules []Rule `yaml:"rules"`
}

// Parse decodes a YAML rule document.
func Parse(data []byte) ([]Rule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return f.Rules, nil
}

// Load reads a YAML rule file.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// Set is a compiled group of rules. A Set is safe for concurrent use.
type Set struct {
	rules    []Rule
	compiled *cache.LRU[string, *fhirpath.Expression]
}

// New validates and compiles rules.
func New(rules []Rule) (*Set, error) {
	s := &Set{
		rules:    append([]Rule(nil), rules...),
		compiled: cache.New[string, *fhirpath.Expression](max(len(rules), 64)),
	}
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidRule, r.ID)
		}
		seen[r.ID] = true
		if _, err := s.compile(r.Expression); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, r.ID, err)
		}
	}
	logger.Debug("rules: compiled %d rules", len(rules))
	return s, nil
}

func (s *Set) compile(expr string) (*fhirpath.Expression, error) {
	return s.compiled.GetOrLoad(expr, func() (*fhirpath.Expression, error) {
		return fhirpath.Compile(expr)
	})
}

// Len returns the number of rules.
func (s *Set) Len() int { return len(s.rules) }

// Rules returns a copy of the rules.
func (s *Set) Rules() []Rule { return append([]Rule(nil), s.rules...) }

// CacheStats returns the counters of the compiled expression cache.
func (s *Set) CacheStats() cache.Stats { return s.compiled.Stats() }

// Evaluate projects m onto FHIR resources and checks every rule against
// every resource of its type.
func (s *Set) Evaluate(m *message.Message) []issue.Issue {
	if s == nil || len(s.rules) == 0 {
		return nil
	}
	return s.EvaluateResources(fhirmap.Project(m))
}

// EvaluateResources checks the rules against already projected resources.
func (s *Set) EvaluateResources(resources []fhirmap.Resource) []issue.Issue {
	var out []issue.Issue
	for _, res := range resources {
		var body []byte
		for _, r := range s.rules {
			if r.Resource != res.Type {
				continue
			}
			if body == nil {
				var err error
				if body, err = res.JSON(); err != nil {
					out = append(out, evalError(r, res, err))
					break
				}
			}
			ok, err := s.holds(r, body)
			if err != nil {
				out = append(out, evalError(r, res, err))
				continue
			}
			if !ok {
				iss := issue.NewWithSeverity(issue.DiagRuleFailed, r.severity(), map[string]any{"details": r.message()}, res.Segment)
				iss.Source = r.ID
				out = append(out, iss)
			}
		}
	}
	return out
}

func (s *Set) holds(r Rule, body []byte) (bool, error) {
	expr, err := s.compile(r.Expression)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(body)
	if err != nil {
		return false, err
	}
	return truthy(result), nil
}

func evalError(r Rule, res fhirmap.Resource, err error) issue.Issue {
	iss := issue.New(issue.DiagRuleEvalError, map[string]any{"key": r.ID, "error": err.Error()}, res.Segment)
	iss.Source = r.ID
	return iss
}

// truthy applies FHIRPath truthiness: empty is false, a single boolean is
// its value, anything else is true.
func truthy(c types.Collection) bool {
	if len(c) == 0 {
		return false
	}
	if len(c) == 1 {
		if b, ok := c[0].(types.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}
