package hl7v2

import (
	"sync"

	"github.com/gofhir/hl7v2/pkg/issue"
)

// Result contains the outcome of decoding and validating one message.
// Use Release() to return it to the pool when done.
type Result struct {
	// Valid is true if no errors were found (warnings are allowed)
	Valid bool `json:"valid"`

	// Issues contains all validation issues found
	Issues []issue.Issue `json:"issues,omitempty"`

	// JobID is set by batch processing to correlate results
	JobID string `json:"jobId,omitempty"`

	// MessageType is MSH-9 as "CODE^TRIGGER"
	MessageType string `json:"messageType,omitempty"`

	// ControlID is MSH-10
	ControlID string `json:"controlId,omitempty"`

	// Version is the HL7 version the message was decoded under
	Version string `json:"version,omitempty"`

	mu sync.Mutex
}

var resultPool = sync.Pool{
	New: func() any {
		return &Result{
			Issues: make([]issue.Issue, 0, 32),
		}
	},
}

// AcquireResult gets a Result from the pool.
// The result starts as valid with no issues.
func AcquireResult() *Result {
	r := resultPool.Get().(*Result)
	r.Reset()
	return r
}

// Release returns the Result to the pool.
// After calling Release, the Result should not be used.
func (r *Result) Release() {
	if r == nil {
		return
	}
	// Oversized issue lists are left to the garbage collector.
	if cap(r.Issues) > 1024 {
		return
	}
	r.Reset()
	resultPool.Put(r)
}

// Reset clears the result for reuse.
func (r *Result) Reset() {
	r.Valid = true
	clear(r.Issues)
	r.Issues = r.Issues[:0]
	r.JobID = ""
	r.MessageType = ""
	r.ControlID = ""
	r.Version = ""
}

// AddIssue adds a validation issue to the result.
// This method is thread-safe.
func (r *Result) AddIssue(iss issue.Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Issues = append(r.Issues, iss)
	if iss.IsError() {
		r.Valid = false
	}
}

// AddIssues adds multiple issues to the result.
// This method is thread-safe.
func (r *Result) AddIssues(issues []issue.Issue) {
	if len(issues) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.Issues = append(r.Issues, issues...)
	for _, iss := range issues {
		if iss.IsError() {
			r.Valid = false
			break
		}
	}
}

// HasErrors returns true if there are any error or fatal issues.
func (r *Result) HasErrors() bool {
	return r.ErrorCount() > 0
}

// ErrorCount returns the number of error and fatal issues.
func (r *Result) ErrorCount() int {
	return len(r.Errors())
}

// WarningCount returns the number of warning issues.
func (r *Result) WarningCount() int {
	return len(r.Warnings())
}

// InfoCount returns the number of informational issues.
func (r *Result) InfoCount() int {
	return len(r.filter(func(i issue.Issue) bool { return i.Severity == issue.SeverityInformation }))
}

// Errors returns all error and fatal issues.
func (r *Result) Errors() []issue.Issue {
	return r.filter(issue.Issue.IsError)
}

// Warnings returns all warning issues.
func (r *Result) Warnings() []issue.Issue {
	return r.filter(func(i issue.Issue) bool { return i.Severity == issue.SeverityWarning })
}

func (r *Result) filter(keep func(issue.Issue) bool) []issue.Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []issue.Issue
	for _, iss := range r.Issues {
		if keep(iss) {
			out = append(out, iss)
		}
	}
	return out
}

// Report returns the issues as an issue.Result, the form ACK generation
// consumes.
func (r *Result) Report() *issue.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := issue.NewResult()
	out.AddIssues(r.Issues)
	return out
}

// Clone creates a copy of the result (not pooled).
func (r *Result) Clone() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := &Result{
		Valid:       r.Valid,
		Issues:      make([]issue.Issue, len(r.Issues)),
		JobID:       r.JobID,
		MessageType: r.MessageType,
		ControlID:   r.ControlID,
		Version:     r.Version,
	}
	copy(clone.Issues, r.Issues)
	return clone
}

// NewResult creates a new (non-pooled) result.
func NewResult() *Result {
	return &Result{
		Valid:  true,
		Issues: make([]issue.Issue, 0, 8),
	}
}
