package segment

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gofhir/hl7v2/pkg/datatype"
	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

var d = encoding.Default

var testPID = &Schema{
	ID:   "PID",
	Name: "Patient Identification",
	Fields: []datatype.Spec{
		F("Set ID", "SI", 4),
		F("Patient ID", "CX", 20),
		R(Rep(F("Patient Identifier List", "CX", 250))),
		Rep(F("Alternate Patient ID", "CX", 20)),
		R(Rep(F("Patient Name", "XPN", 48))),
		Rep(F("Mother's Maiden Name", "XPN", 250)),
		F("Date/Time of Birth", "TS", 26),
		T(F("Administrative Sex", "IS", 1), "0001"),
	},
}

var testRXE = &Schema{
	ID: "RXE",
	Fields: []datatype.Spec{
		F("Quantity/Timing", "TQ", 200),
		R(F("Give Code", "CE", 250)),
		R(F("Give Amount - Minimum", "NM", 20)),
		F("Give Amount - Maximum", "NM", 20),
		R(F("Give Units", "CE", 250)),
	},
}

var testERR = &Schema{
	ID: "ERR",
	Fields: []datatype.Spec{
		Rep(F("Error Code and Location", "ELD", 493)),
		Rep(F("Error Location", "ERL", 18)),
		R(F("HL7 Error Code", "CWE", 705)),
		R(T(F("Severity", "ID", 2), "0516")),
	},
}

func TestNewBaseInitializesEverySlot(t *testing.T) {
	b := NewBase(testPID)
	for n := 1; n <= testPID.Len(); n++ {
		f := b.Field(n)
		if f == nil {
			t.Fatalf("slot %d is nil", n)
		}
		if !f.IsEmpty() {
			t.Errorf("slot %d should start empty", n)
		}
	}
	if _, ok := b.Field(5).(*datatype.Repeating); !ok {
		t.Errorf("PID-5 should be repeating, got %T", b.Field(5))
	}
	if b.Field(0) != nil || b.Field(9) != nil {
		t.Error("out of range slots should be nil")
	}
	if got := b.Encode(d); got != "PID" {
		t.Errorf("empty segment encodes as %q", got)
	}
}

func TestBaseRoundTrip(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"PID|1||12345^^^HOSP^MR||SMITH^JOHN||19800101|M", "PID|1||12345^^^HOSP^MR||SMITH^JOHN||19800101|M"},
		{"PID|1||12345||SMITH^JOHN|||", "PID|1||12345||SMITH^JOHN"},
		{"PID|||1~2||O\\T\\BRIEN", "PID|||1~2||O\\T\\BRIEN"},
		{"PID", "PID"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			p := NewPID(testPID)
			p.Decode(tt.line, d)
			if got := p.Encode(d); got != tt.want {
				t.Errorf("Encode() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestBaseDecodeResetsSlots(t *testing.T) {
	p := NewPID(testPID)
	p.Decode("PID|1||12345||SMITH^JOHN", d)
	p.Decode("PID|2", d)
	if p.Raw(5) != "" {
		t.Errorf("PID-5 should be cleared by a new decode, got %q", p.Raw(5))
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d; want 1", p.Len())
	}
}

func TestBaseInvalidFieldIsKept(t *testing.T) {
	p := NewPID(testPID)
	p.Decode("PID|1||123||DOE^JANE||20251345", d)
	if got := p.Raw(7); got != "20251345" {
		t.Errorf("Raw(7) = %q", got)
	}
	issues := p.Validate("PID")
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %v", issues)
	}
	if issues[0].Address[0] != "PID-7" || issues[0].Code != issue.CodeValue {
		t.Errorf("unexpected issue %+v", issues[0])
	}
	if !strings.Contains(issues[0].Diagnostics, "Date/Time of Birth") {
		t.Errorf("diagnostics should name the field: %s", issues[0].Diagnostics)
	}
}

func TestBaseExtraFields(t *testing.T) {
	p := NewPID(testPID)
	line := "PID|1||123||DOE||19800101|F|X|Y^Z"
	p.Decode(line, d)
	if got := p.Encode(d); got != line {
		t.Errorf("Encode() = %q; want %q", got, line)
	}
	if p.Raw(10) != "Y^Z" {
		t.Errorf("Raw(10) = %q", p.Raw(10))
	}
	issues := p.Validate("PID")
	if len(issues) != 1 || issues[0].Severity != issue.SeverityInformation {
		t.Fatalf("expected one informational issue, got %v", issues)
	}
	if issues[0].Address[0] != "PID-9" {
		t.Errorf("address = %v", issues[0].Address)
	}
}

func TestBaseRepetitionsInSingleSlot(t *testing.T) {
	p := NewPID(testPID)
	line := "PID|1||123||DOE||19800101|F~M~U"
	p.Decode(line, d)
	if p.Sex() != "F" {
		t.Errorf("Sex() = %q", p.Sex())
	}
	if got := p.Encode(d); got != line {
		t.Errorf("Encode() = %q; want %q", got, line)
	}
	issues := p.Validate("PID")
	if len(issues) != 1 || issues[0].MessageID != string(issue.DiagFieldNotRepeatable) {
		t.Fatalf("expected not-repeatable issue, got %v", issues)
	}
	if !strings.Contains(issues[0].Diagnostics, "3 repetitions") {
		t.Errorf("diagnostics = %s", issues[0].Diagnostics)
	}
	if err := p.SetSex("M"); err != nil {
		t.Fatal(err)
	}
	if p.Raw(8) != "M" {
		t.Errorf("setting the field should drop the extra repetitions, got %q", p.Raw(8))
	}
}

func TestBaseComponentsInPrimitiveSlot(t *testing.T) {
	tests := []struct {
		name string
		line string
		sex  string
	}{
		{"component", "PID|1||12345^^^HOSP^MR||DOE^JANE||19800102^X|F^Female", "F"},
		{"sub-component", "PID|1||12345||DOE||19800102|F&SUB", "F"},
		{"escaped head", `PID|1||12345||DOE||19800102|\S\^Female`, "^"},
		{"empty head", "PID|1||12345||DOE||19800102|^Female", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPID(testPID)
			p.Decode(tt.line, d)
			if p.Sex() != tt.sex {
				t.Errorf("Sex() = %q; want %q", p.Sex(), tt.sex)
			}
			if got := p.Encode(d); got != tt.line {
				t.Errorf("Encode() = %q; want %q", got, tt.line)
			}
		})
	}

	p := NewPID(testPID)
	p.Decode(tests[0].line, d)
	if err := p.SetSex("M"); err != nil {
		t.Fatal(err)
	}
	if p.Raw(8) != "M" {
		t.Errorf("setting the field should drop the kept components, got %q", p.Raw(8))
	}
}

func TestBaseComponentsInNumericSlot(t *testing.T) {
	r := NewRXE(testRXE)
	line := "RXE||00054^LISINOPRIL^NDC|10^MG|2&X|MG"
	r.Decode(line, d)
	if got := r.Encode(d); got != line {
		t.Errorf("Encode() = %q; want %q", got, line)
	}
	v, ok := r.GiveAmount()
	if !ok || !v.Equal(decimal.NewFromInt(10)) {
		t.Errorf("GiveAmount() = %s, %v", v, ok)
	}
	if r.Field(4).Outcome().Failed() {
		t.Errorf("RXE-4 failed: %v", r.Field(4).Outcome().Err)
	}
}

func TestSetTextRejectsComponentsOnString(t *testing.T) {
	p := NewPID(testPID)
	if err := p.setText(8, "F", "Female"); !hlerrors.IsConstraint(err) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if p.Raw(8) != "" {
		t.Errorf("field changed to %q", p.Raw(8))
	}
	if err := p.setText(8, "F", ""); err != nil {
		t.Fatalf("trailing empty component: %v", err)
	}
	if p.Raw(8) != "F" {
		t.Errorf("Raw(8) = %q", p.Raw(8))
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	p := NewPID(testPID)
	p.Decode("PID|x||||||2025134|Q|extra", d)
	first := p.Validate("PID")
	second := p.Validate("PID")
	if len(first) != len(second) {
		t.Fatalf("issue counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].String() != second[i].String() {
			t.Errorf("issue %d differs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	line := `MSH|^~\&|SEND|FAC|RCV|RFAC|20250115133045||RDE^O01|MSG0001|P|2.3`
	m := NewHeader()
	m.Decode(line, d)
	if got := m.Encode(d); got != line {
		t.Fatalf("Encode() = %q", got)
	}
	if m.Raw(1) != "|" || m.Raw(2) != `^~\&` {
		t.Errorf("MSH-1 = %q, MSH-2 = %q", m.Raw(1), m.Raw(2))
	}
	if m.MessageKey() != "RDE^O01" || m.ControlID() != "MSG0001" || m.Version() != "2.3" {
		t.Errorf("key %q control %q version %q", m.MessageKey(), m.ControlID(), m.Version())
	}
	if m.SendingApplication() != "SEND" || m.ReceivingFacility() != "RFAC" {
		t.Errorf("route = %s %s", m.SendingApplication(), m.ReceivingFacility())
	}
	if issues := m.Validate("MSH"); len(issues) != 0 {
		t.Errorf("unexpected issues %v", issues)
	}
	if err := m.SetRaw(1, "#"); !hlerrors.IsConstraint(err) {
		t.Errorf("MSH-1 should be read-only, got %v", err)
	}
}

func TestHeaderCustomDelimiters(t *testing.T) {
	line := `MSH#$*!%#SEND#FAC##RFAC#20250115##ADT$A01#1#P#2.5.1`
	custom, err := encoding.ParseDelimiters(line)
	if err != nil {
		t.Fatal(err)
	}
	m := NewHeader()
	m.Decode(line, custom)
	if m.MessageKey() != "ADT^A01" {
		t.Errorf("MessageKey() = %q", m.MessageKey())
	}
	if got := m.Encode(custom); got != line {
		t.Errorf("Encode(custom) = %q", got)
	}
	want := `MSH|^~\&|SEND|FAC||RFAC|20250115||ADT^A01|1|P|2.5.1`
	if got := m.Encode(d); got != want {
		t.Errorf("Encode(default) = %q; want %q", got, want)
	}
}

func TestHeaderSetters(t *testing.T) {
	m := NewHeader()
	at := time.Date(2025, 1, 15, 13, 30, 45, 0, time.UTC)
	if err := m.SetRoute("PHARM", "HOSP", "EHR", "HOSP"); err != nil {
		t.Fatal(err)
	}
	for _, err := range []error{
		m.SetDateTime(at),
		m.SetMessageType("RDE", "O01", ""),
		m.SetControlID("ABC"),
		m.SetProcessingID("P"),
		m.SetVersion("2.3"),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	want := `MSH|^~\&|PHARM|HOSP|EHR|HOSP|20250115133045+0000||RDE^O01|ABC|P|2.3`
	if got := m.Encode(d); got != want {
		t.Errorf("Encode() = %q; want %q", got, want)
	}
	if err := m.SetMessageType("rde", "O01", ""); !hlerrors.IsFormat(err) {
		t.Errorf("expected format error, got %v", err)
	}
	if m.MessageKey() != "RDE^O01" {
		t.Errorf("message type changed: %q", m.MessageKey())
	}
}

func TestPIDSetters(t *testing.T) {
	p := NewPID(testPID)
	birth := time.Date(1980, 1, 2, 0, 0, 0, 0, time.UTC)
	if err := p.SetBasicInfo("12345", "SMITH", "JOHN", birth, "M"); err != nil {
		t.Fatal(err)
	}
	if got := p.Encode(d); got != "PID|||12345||SMITH^JOHN||19800102|M" {
		t.Errorf("Encode() = %q", got)
	}
	if p.Name().Display() != "JOHN SMITH" {
		t.Errorf("Name() = %+v", p.Name())
	}
	if err := p.AddPatientID("999", "CLINIC", "PI"); err != nil {
		t.Fatal(err)
	}
	ids := p.Identifiers()
	if len(ids) != 2 || ids[1].Authority.Namespace != "CLINIC" {
		t.Errorf("Identifiers() = %+v", ids)
	}

	long := strings.Repeat("X", 60)
	if err := p.SetName(long, "JOHN"); !hlerrors.IsConstraint(err) {
		t.Fatalf("expected length violation, got %v", err)
	}
	if p.Name().Family != "SMITH" {
		t.Errorf("name changed to %+v", p.Name())
	}
}

func TestRXESetters(t *testing.T) {
	r := NewRXE(testRXE)
	if err := r.SetDrug("00054-0122-25", "LISINOPRIL 10MG"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetGiveUnits("TAB"); err != nil {
		t.Fatal(err)
	}
	if got := r.Encode(d); got != "RXE||00054-0122-25^LISINOPRIL 10MG^NDC|1||TAB" {
		t.Errorf("Encode() = %q", got)
	}
	if r.GiveCode().Text != "LISINOPRIL 10MG" {
		t.Errorf("GiveCode() = %+v", r.GiveCode())
	}
	if err := r.SetGiveAmount(decimal.RequireFromString("2.5"), decimal.NewFromInt(5)); err != nil {
		t.Fatal(err)
	}
	if v, ok := r.GiveAmount(); !ok || v.String() != "2.5" {
		t.Errorf("GiveAmount() = %s, %v", v, ok)
	}
	if r.Raw(4) != "5" {
		t.Errorf("RXE-4 = %q", r.Raw(4))
	}
}

func TestERRSetError(t *testing.T) {
	e := NewERR(testERR)
	if err := e.SetError("PID", 1, 7, "102", "Data type error", "E"); err != nil {
		t.Fatal(err)
	}
	want := "ERR|PID^1^7^102&Data type error&HL70357|PID^1^7|102^Data type error^HL70357|E"
	if got := e.Encode(d); got != want {
		t.Errorf("Encode() = %q; want %q", got, want)
	}
	if e.Code() != "102" {
		t.Errorf("Code() = %q", e.Code())
	}
	if issues := e.Validate("ERR"); len(issues) != 0 {
		t.Errorf("unexpected issues %v", issues)
	}
	if err := e.AppendError("RXE", 1, 2, "101", "Required field missing"); err != nil {
		t.Fatal(err)
	}
	if got, want := e.Raw(1), "PID^1^7^102&Data type error&HL70357~RXE^1^2^101&Required field missing&HL70357"; got != want {
		t.Errorf("Raw(1) = %q; want %q", got, want)
	}
}

func TestGenericByteExact(t *testing.T) {
	lines := []string{
		"ZZZ|a||b|",
		`ZPI|1|\F\raw^x~y&z||||`,
		"ZZZ",
		"ZZZ|",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			g := NewGeneric("")
			g.Decode(line, d)
			if g.ID() != line[:3] {
				t.Errorf("ID() = %q", g.ID())
			}
			if got := g.Encode(d); got != line {
				t.Errorf("Encode() = %q; want %q", got, line)
			}
		})
	}
}

func TestGenericFields(t *testing.T) {
	g := NewGeneric("")
	g.Decode("ZZZ|a||b", d)
	if g.Raw(1) != "a" || g.Raw(2) != "" || g.Raw(3) != "b" || g.Raw(4) != "" {
		t.Errorf("fields = %v", g.Fields())
	}
	if g.Len() != 3 {
		t.Errorf("Len() = %d", g.Len())
	}
	if err := g.SetField(5, "e"); err != nil {
		t.Fatal(err)
	}
	if got := g.Encode(d); got != "ZZZ|a||b||e" {
		t.Errorf("Encode() = %q", got)
	}
	if err := g.SetField(0, "x"); err == nil {
		t.Error("field 0 should not be settable")
	}
	issues := g.Validate("ZZZ")
	if len(issues) != 1 || issues[0].Severity != issue.SeverityInformation {
		t.Errorf("expected informational issue, got %v", issues)
	}
}

func TestGenericHeader(t *testing.T) {
	g := NewGeneric("")
	g.Decode(`FHS|^~\&|APP`, d)
	if g.Raw(1) != "|" || g.Raw(2) != `^~\&` || g.Raw(3) != "APP" {
		t.Errorf("Raw = %q %q %q", g.Raw(1), g.Raw(2), g.Raw(3))
	}
}

func TestIDHelpers(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"PID", true},
		{"ZP1", true},
		{"pid", false},
		{"PI", false},
		{"1AB", false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.valid {
			t.Errorf("ValidID(%q) = %v; want %v", tt.id, got, tt.valid)
		}
	}
	if IDOf("PID|1", d) != "PID" || IDOf("ZZZ", d) != "ZZZ" {
		t.Error("IDOf failed")
	}
	if testPID.Index("patient name") != 5 || testPID.Index("nope") != 0 {
		t.Error("Index failed")
	}
}
