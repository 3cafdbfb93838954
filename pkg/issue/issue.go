// Package issue defines the validation issues reported for HL7 v2 messages
// and the catalog their texts come from.
package issue

import (
	"strconv"
	"strings"
)

// Severity is the weight of an issue.
type Severity string

// Severities. Fatal marks input that could not be decoded at all.
const (
	SeverityFatal       Severity = "fatal"
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
)

var severityNames = map[string]Severity{
	"":            SeverityError,
	"fatal":       SeverityFatal,
	"error":       SeverityError,
	"warning":     SeverityWarning,
	"warn":        SeverityWarning,
	"information": SeverityInformation,
	"info":        SeverityInformation,
}

// ParseSeverity maps a configuration name to a Severity. The empty name
// means error.
func ParseSeverity(s string) (Severity, bool) {
	sev, ok := severityNames[strings.ToLower(s)]
	return sev, ok
}

// ERR returns the HL7 table 0516 code used in ERR-4: E, W or I.
func (s Severity) ERR() string {
	switch s {
	case SeverityWarning:
		return "W"
	case SeverityInformation:
		return "I"
	default:
		return "E"
	}
}

// Code classifies an issue.
type Code string

// Issue codes.
const (
	CodeStructure    Code = "structure"
	CodeRequired     Code = "required"
	CodeValue        Code = "value"
	CodeTooLong      Code = "too-long"
	CodeRange        Code = "out-of-range"
	CodeCodeInvalid  Code = "code-invalid"
	CodeOrder        Code = "segment-order"
	CodeUnexpected   Code = "unexpected"
	CodeNotSupported Code = "not-supported"
	CodeInvariant    Code = "invariant"
	CodeProcessing   Code = "processing"
	CodeInformation  Code = "informational"
)

// Issue is one finding about a message.
type Issue struct {
	Severity    Severity
	Code        Code
	Diagnostics string

	// Address holds HL7 addresses such as "PID-5[1].1"; the first one is
	// where the issue is reported.
	Address []string

	// Location is set when the message was parsed from text and location
	// tracking is on.
	Location *Location

	// Source names what raised the issue, e.g. a rule id.
	Source string

	// MessageID is the catalog entry the issue was built from.
	MessageID string
}

// Location is a 1-based segment line and rune column in the source text.
type Location struct {
	Line   int
	Column int
}

func (l Location) String() string {
	return strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Column)
}

// IsError reports whether the issue makes a message invalid.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

func (i Issue) String() string {
	s := string(i.Severity) + ": " + i.Diagnostics
	if len(i.Address) > 0 {
		s += " at " + i.Address[0]
	}
	if i.Location != nil {
		s += " (" + i.Location.String() + ")"
	}
	return s
}

// Result is an ordered list of issues.
type Result struct {
	Issues []Issue
}

// NewResult creates an empty Result.
func NewResult() *Result {
	return &Result{Issues: make([]Issue, 0, 16)}
}

// AddIssue appends one issue.
func (r *Result) AddIssue(iss Issue) {
	r.Issues = append(r.Issues, iss)
}

// AddIssues appends several issues.
func (r *Result) AddIssues(issues []Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Add appends the catalog issue id.
func (r *Result) Add(id DiagnosticID, params map[string]any, address ...string) {
	r.Issues = append(r.Issues, New(id, params, address...))
}

// HasErrors reports whether any issue is an error.
func (r *Result) HasErrors() bool {
	for _, iss := range r.Issues {
		if iss.IsError() {
			return true
		}
	}
	return false
}

// ErrorCount counts error and fatal issues.
func (r *Result) ErrorCount() int {
	n := 0
	for _, iss := range r.Issues {
		if iss.IsError() {
			n++
		}
	}
	return n
}

// WarningCount counts warnings.
func (r *Result) WarningCount() int { return r.count(SeverityWarning) }

// InfoCount counts informational issues.
func (r *Result) InfoCount() int { return r.count(SeverityInformation) }

func (r *Result) count(s Severity) int {
	n := 0
	for _, iss := range r.Issues {
		if iss.Severity == s {
			n++
		}
	}
	return n
}

// Errors returns the error and fatal issues.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, iss := range r.Issues {
		if iss.IsError() {
			out = append(out, iss)
		}
	}
	return out
}

// Escalate turns every warning into an error.
func (r *Result) Escalate() {
	for i := range r.Issues {
		if r.Issues[i].Severity == SeverityWarning {
			r.Issues[i].Severity = SeverityError
		}
	}
}
