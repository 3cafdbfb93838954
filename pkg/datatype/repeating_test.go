package datatype

import (
	"strings"
	"testing"

	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
)

func TestRepeatingDecodeEncode(t *testing.T) {
	r := NewRepeating(&Spec{Name: "Patient Identifier List", Type: "CX", Repeating: true}, ForType("CX"))
	raw := "12345^^^HOSP^MR~67890^^^CLINIC^PI"
	o := r.Decode(raw, d)
	if !o.HasValue() {
		t.Fatalf("state = %v", o.State)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", r.Len())
	}
	if id := r.At(1).(*ExtendedID).ID(); id != "67890" {
		t.Errorf("second id = %q", id)
	}
	if r.At(2) != nil || r.At(-1) != nil {
		t.Error("out of range At should return nil")
	}
	if got := r.Encode(d); got != raw {
		t.Errorf("Encode() = %q", got)
	}
}

func TestRepeatingFailedRepetition(t *testing.T) {
	r := NewRepeating(&Spec{Type: "DT", Repeating: true}, ForType("DT"))
	o := r.Decode("20250101~20251345", d)
	if !o.Failed() {
		t.Fatal("expected failure")
	}
	if !strings.Contains(o.Err.Error(), "repetition 2") {
		t.Errorf("error should name the repetition: %v", o.Err)
	}
	issues := r.Validate("PID-7")
	if len(issues) != 1 || issues[0].Address[0] != "PID-7[2]" {
		t.Errorf("unexpected issues %v", issues)
	}
	if r.Encode(d) != "20250101~20251345" {
		t.Errorf("raw should be kept: %q", r.Encode(d))
	}
}

func TestRepeatingSetRawStrict(t *testing.T) {
	r := NewRepeating(&Spec{Type: "DT", Repeating: true}, ForType("DT"))
	if err := r.SetRaw("20250101~20250202"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetRaw("20250101~2025"); !hlerrors.IsFormat(err) {
		t.Fatalf("expected format error, got %v", err)
	}
	if r.String() != "20250101~20250202" {
		t.Errorf("value changed: %q", r.String())
	}
	if err := r.AppendRaw("bad"); err == nil {
		t.Error("AppendRaw should reject bad dates")
	}
	if err := r.AppendRaw("20250303"); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestRepeatingRequired(t *testing.T) {
	r := NewRepeating(&Spec{Name: "Patient Identifier List", Type: "CX", Required: true, Repeating: true}, ForType("CX"))
	if issues := r.Validate("PID-3"); len(issues) != 1 {
		t.Fatalf("expected required issue, got %v", issues)
	}
	first := r.First().(*ExtendedID)
	if err := first.SetValue(Identifier{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	if issues := r.Validate("PID-3"); len(issues) != 0 {
		t.Errorf("unexpected issues %v", issues)
	}
	if r.First() != first {
		t.Error("First should return the existing repetition")
	}
	r.Clear()
	if !r.IsEmpty() || r.Outcome().State != StateEmpty {
		t.Error("Clear should remove all repetitions")
	}
}
