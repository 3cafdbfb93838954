package hl7v2

import (
	"sync"
	"testing"

	"github.com/gofhir/hl7v2/pkg/issue"
)

func warning() issue.Issue {
	return issue.New(issue.DiagMessageUnexpected, map[string]any{"id": "ZZ1", "structure": "ADT_A01"}, "ZZ1")
}

func fieldError() issue.Issue {
	return issue.New(issue.DiagFieldRequired, map[string]any{"name": "PID-3"}, "PID-3")
}

func TestResult_Basic(t *testing.T) {
	r := NewResult()

	if !r.Valid {
		t.Error("NewResult should be valid initially")
	}
	if len(r.Issues) != 0 {
		t.Errorf("len(Issues) = %d; want 0", len(r.Issues))
	}
}

func TestResult_AddIssue(t *testing.T) {
	r := NewResult()

	r.AddIssue(warning())
	if !r.Valid {
		t.Error("Result should still be valid after warning")
	}

	r.AddIssue(fieldError())
	if r.Valid {
		t.Error("Result should be invalid after error")
	}
	if len(r.Issues) != 2 {
		t.Errorf("len(Issues) = %d; want 2", len(r.Issues))
	}
}

func TestResult_AddIssues(t *testing.T) {
	r := NewResult()
	r.AddIssues(nil)
	if !r.Valid || len(r.Issues) != 0 {
		t.Error("adding no issues should not change the result")
	}

	r.AddIssues([]issue.Issue{warning(), fieldError(), fieldError()})
	if r.Valid {
		t.Error("Result should be invalid")
	}
	if r.ErrorCount() != 2 || r.WarningCount() != 1 || r.InfoCount() != 0 {
		t.Errorf("errors %d warnings %d info %d", r.ErrorCount(), r.WarningCount(), r.InfoCount())
	}
	if !r.HasErrors() {
		t.Error("HasErrors() should be true")
	}
	if got := r.Errors()[0].Address[0]; got != "PID-3" {
		t.Errorf("Errors()[0] address = %q", got)
	}
	if got := r.Warnings()[0].Address[0]; got != "ZZ1" {
		t.Errorf("Warnings()[0] address = %q", got)
	}
}

func TestResult_Pool(t *testing.T) {
	r := AcquireResult()
	r.AddIssue(fieldError())
	r.JobID = "7"
	r.MessageType = "ADT^A01"
	r.Release()

	r = AcquireResult()
	defer r.Release()
	if !r.Valid || len(r.Issues) != 0 || r.JobID != "" || r.MessageType != "" {
		t.Errorf("acquired result not reset: %+v", r)
	}

	var nilResult *Result
	nilResult.Release() // Should not panic
}

func TestResult_Report(t *testing.T) {
	r := NewResult()
	r.AddIssues([]issue.Issue{warning(), fieldError()})

	report := r.Report()
	if len(report.Issues) != 2 || !report.HasErrors() {
		t.Errorf("Report() = %+v", report.Issues)
	}

	report.Issues[0].Diagnostics = "changed"
	if r.Issues[0].Diagnostics == "changed" {
		t.Error("Report() should copy the issues")
	}
}

func TestResult_Clone(t *testing.T) {
	r := NewResult()
	r.MessageType = "RDE^O01"
	r.ControlID = "CTRL1"
	r.Version = "2.5.1"
	r.AddIssue(fieldError())

	clone := r.Clone()
	if clone.Valid || clone.MessageType != "RDE^O01" || clone.ControlID != "CTRL1" || clone.Version != "2.5.1" {
		t.Errorf("Clone() = %+v", clone)
	}
	clone.Issues[0].Diagnostics = "changed"
	if r.Issues[0].Diagnostics == "changed" {
		t.Error("Clone() should copy the issues")
	}
}

func TestResult_Concurrent(t *testing.T) {
	r := NewResult()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.AddIssue(warning())
			} else {
				r.AddIssue(fieldError())
			}
		}(i)
	}
	wg.Wait()

	if len(r.Issues) != 50 || r.ErrorCount() != 25 {
		t.Errorf("issues %d errors %d", len(r.Issues), r.ErrorCount())
	}
}
