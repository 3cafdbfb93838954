package message

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
	"github.com/gofhir/hl7v2/pkg/mllp"
	"github.com/gofhir/hl7v2/pkg/plugins"
	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/pkg/segment"
	"github.com/gofhir/hl7v2/pkg/structure"
)

var reg = plugins.MustDefault()

var clock = time.Date(2025, 1, 15, 13, 30, 45, 0, time.UTC)

func fixed() []Option {
	return []Option{
		WithClock(func() time.Time { return clock }),
		WithControlID(func() string { return "CTRL1" }),
	}
}

const adt = "MSH|^~\\&|SENDER|FAC|RECV|FAC2|20250115120000||ADT^A01|MSG0001|P|2.5.1\r" +
	"EVN|A01|20250115120000\r" +
	"PID|1||12345^^^HOSP^MR||DOE^JANE||19800102|F\r" +
	"PV1|1|I|ICU^101^A"

func ids(issues []issue.Issue) []string {
	var out []string
	for _, iss := range issues {
		out = append(out, iss.MessageID)
	}
	return out
}

func hasID(issues []issue.Issue, id issue.DiagnosticID) bool {
	for _, iss := range issues {
		if iss.MessageID == string(id) {
			return true
		}
	}
	return false
}

func TestPharmacyOrderScenario(t *testing.T) {
	m, err := NewPharmacyOrder(reg,
		Patient{ID: "12345", Family: "SMITH", Given: "JOHN"},
		Order{DrugCode: "00054-0122-25", DrugName: "LISINOPRIL 10MG"},
		fixed()...)
	if err != nil {
		t.Fatal(err)
	}
	got := m.Encode(true)
	lines := strings.Split(got, "\r")

	var order []string
	for _, l := range lines {
		order = append(order, l[:3])
	}
	if want := []string{"MSH", "EVN", "PID", "ORC", "RXE"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("segment order = %v; want %v", order, want)
	}
	if m.Header().Raw(9) != "RDE^O01" {
		t.Errorf("MSH-9 = %q", m.Header().Raw(9))
	}
	pid, _ := FirstOf[*segment.PID](m)
	if pid.Raw(5) != "SMITH^JOHN" {
		t.Errorf("PID-5 = %q", pid.Raw(5))
	}

	want := strings.Join([]string{
		`MSH|^~\&|||||20250115133045+0000||RDE^O01|CTRL1|P|2.5.1`,
		`EVN|O01|20250115133045`,
		`PID|||12345||SMITH^JOHN`,
		`ORC|NW||||||||20250115133045`,
		`RXE||00054-0122-25^LISINOPRIL 10MG^NDC|1`,
	}, "\r")
	if got != want {
		t.Errorf("Encode() =\n%q\nwant\n%q", got, want)
	}
	if res := m.Validate(); res.HasErrors() {
		t.Errorf("built order has errors: %v", res.Issues)
	}
}

func TestPharmacyOrderV23(t *testing.T) {
	opts := append(fixed(), WithVersion("2.3"))
	m, err := NewPharmacyOrder(reg,
		Patient{ID: "12345", Family: "SMITH", Given: "JOHN"},
		Order{DrugCode: "00054-0122-25", DrugName: "LISINOPRIL 10MG", Units: "TAB", Route: "PO", RouteText: "Oral", Instruction: "Take with food"},
		opts...)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []string{"MSH", "EVN", "PID", "ORC", "RXE", "NTE", "RXR"}) {
		t.Errorf("IDs() = %v", got)
	}
	if m.Version() != "2.3" {
		t.Errorf("Version() = %q", m.Version())
	}
	res := m.Validate()
	if res.HasErrors() {
		t.Errorf("unexpected errors: %v", res.Issues)
	}
}

func TestRoundTrip(t *testing.T) {
	built, err := NewADT(reg, "A01",
		Patient{ID: "555", Authority: "HOSP", IDType: "MR", Family: "O'BRIEN", Given: "ANN^MARIE", BirthDate: time.Date(1970, 5, 6, 0, 0, 0, 0, time.UTC), Sex: "F"},
		Visit{Class: "I", PointOfCare: "ICU", Room: "101", Bed: "A", Attending: Provider{ID: "99", Family: "HOUSE"}, Number: "V1"},
		fixed()...)
	if err != nil {
		t.Fatal(err)
	}
	text := built.Encode(true)
	parsed, err := Parse(text, reg)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Encode(true) != text {
		t.Errorf("round trip differs:\n%q\n%q", parsed.Encode(true), text)
	}
	pid, err := Get[*segment.PID](parsed, "PID")
	if err != nil {
		t.Fatal(err)
	}
	if pid.Name().Given != "ANN^MARIE" {
		t.Errorf("Given = %q", pid.Name().Given)
	}
	if !strings.Contains(text, `ANN\S\MARIE`) {
		t.Errorf("component delimiter not escaped: %q", text)
	}
}

func TestRoundTripUndeclaredComponents(t *testing.T) {
	for _, version := range []string{"2.3", "2.5.1"} {
		t.Run(version, func(t *testing.T) {
			text := "MSH|^~\\&|EHR|HOSP|LAB|HOSP|20250115120000||ADT^A01|MSG1|P|" + version + "\r" +
				"PID|1||12345^^^HOSP^MR||DOE^JANE||19800102^X|F^Female|||||||||||123-45^6789"
			m, err := Parse(text, reg)
			if err != nil {
				t.Fatal(err)
			}
			if got := m.Encode(true); got != text {
				t.Errorf("round trip differs:\n%q\n%q", got, text)
			}
			pid, err := Get[*segment.PID](m, "PID")
			if err != nil {
				t.Fatal(err)
			}
			if pid.Sex() != "F" {
				t.Errorf("Sex() = %q", pid.Sex())
			}
		})
	}
}

func TestParse(t *testing.T) {
	m, err := Parse(adt, reg)
	if err != nil {
		t.Fatal(err)
	}
	if m.Key() != (registry.Key{Standard: registry.StandardHL7v2, Version: "2.5.1", MessageType: "ADT^A01"}) {
		t.Errorf("Key() = %v", m.Key())
	}
	if m.Type() != "ADT^A01" || m.ControlID() != "MSG0001" {
		t.Errorf("Type/ControlID = %s %s", m.Type(), m.ControlID())
	}
	if _, ok := m.First("PV1").(*segment.PV1); !ok {
		t.Errorf("PV1 is %T", m.First("PV1"))
	}
	if res := m.Validate(); res.HasErrors() {
		t.Errorf("unexpected errors: %v", res.Issues)
	}
}

func TestParseLineEndings(t *testing.T) {
	for name, text := range map[string]string{
		"lf":    strings.ReplaceAll(adt, "\r", "\n"),
		"crlf":  strings.ReplaceAll(adt, "\r", "\r\n"),
		"blank": strings.ReplaceAll(adt, "\r", "\r\n\r\n") + "\r\n",
	} {
		t.Run(name, func(t *testing.T) {
			m, err := Parse(text, reg)
			if err != nil {
				t.Fatal(err)
			}
			if m.Len() != 4 || m.Encode(true) != adt {
				t.Errorf("got %d segments: %q", m.Len(), m.Encode(true))
			}
		})
	}
}

func TestParseLeniencyBoundary(t *testing.T) {
	for _, in := range []string{"", "   ", "\r\n\r\n", "\t \n"} {
		_, err := Parse(in, reg)
		if !errors.Is(err, hlerrors.ErrStructure) {
			t.Errorf("Parse(%q) error = %v; want StructuralError", in, err)
		}
	}
	if _, err := Parse("hello world", reg); !errors.Is(err, hlerrors.ErrStructure) {
		t.Errorf("free text error = %v", err)
	}
	if _, err := Parse("MSH|^~|x", reg); !errors.Is(err, hlerrors.ErrStructure) {
		t.Errorf("bad delimiters error = %v", err)
	}

	m, err := Parse("ZZZ|a|b", reg)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d", m.Len())
	}
	if _, ok := m.Segments()[0].(*segment.Generic); !ok {
		t.Errorf("segment is %T", m.Segments()[0])
	}
}

func TestUnknownSegmentPreserved(t *testing.T) {
	zpi := `ZPI|1|\F\raw^x~y&z||trailing||`
	text := adt + "\r" + zpi
	m, err := Parse(text, reg)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(m.Encode(true), "\r")
	if lines[len(lines)-1] != zpi {
		t.Errorf("ZPI = %q; want %q", lines[len(lines)-1], zpi)
	}
	res := m.Validate()
	if res.HasErrors() {
		t.Errorf("unexpected errors: %v", res.Issues)
	}
	if !hasID(res.Issues, issue.DiagSegmentUnknown) {
		t.Errorf("missing unknown-segment info: %v", ids(res.Issues))
	}
}

func TestParseCustomDelimiters(t *testing.T) {
	text := "MSH#$*@%#APP#FAC#####ADT$A01#1#P#2.5.1\rPID#1##12345##DOE$JANE"
	m, err := Parse(text, reg)
	if err != nil {
		t.Fatal(err)
	}
	if m.Delimiters().Field != '#' || m.Type() != "ADT^A01" {
		t.Fatalf("delims %v type %s", m.Delimiters(), m.Type())
	}
	pid, _ := FirstOf[*segment.PID](m)
	if pid.Name().Family != "DOE" {
		t.Errorf("Family = %q", pid.Name().Family)
	}
	if m.Encode(true) != text {
		t.Errorf("Encode() = %q", m.Encode(true))
	}
}

func TestParseBytes(t *testing.T) {
	m, err := ParseBytes(mllp.Wrap([]byte(adt)), reg)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 4 {
		t.Errorf("Len() = %d", m.Len())
	}
	back, err := mllp.Unwrap(m.Frame())
	if err != nil || string(back) != adt {
		t.Errorf("Frame() payload = %q, %v", back, err)
	}
	_, err = ParseBytes([]byte{mllp.StartBlock, 'M', 'S', 'H'}, reg)
	if !errors.Is(err, hlerrors.ErrStructure) {
		t.Errorf("truncated frame error = %v", err)
	}
}

func TestUnregisteredVersion(t *testing.T) {
	text := strings.Replace(adt, "|2.5.1", "|9.9", 1)
	m, err := Parse(text, reg)
	if err != nil {
		t.Fatal(err)
	}
	if m.Header() == nil {
		t.Fatal("header not typed under the built-in schema")
	}
	if _, err := Get[*segment.PID](m, "PID"); !errors.Is(err, hlerrors.ErrSchemaMismatch) {
		t.Errorf("Get PID error = %v", err)
	}
	if _, err := Get[*segment.NK1](m, "NK1"); !errors.Is(err, hlerrors.ErrStructure) {
		t.Errorf("Get NK1 error = %v", err)
	}
	res := m.Validate()
	if res.HasErrors() {
		t.Errorf("unexpected errors: %v", res.Issues)
	}
	if !hasID(res.Issues, issue.DiagMessageNoStructure) {
		t.Errorf("missing no-structure info: %v", ids(res.Issues))
	}
	if m.Encode(true) != text {
		t.Error("generic decoding is not lossless")
	}
}

func TestNilRegistry(t *testing.T) {
	m, err := Parse(adt, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Type() != "ADT^A01" || m.Encode(true) != adt {
		t.Errorf("Type %s encode %q", m.Type(), m.Encode(true))
	}
}

func TestValidateHeader(t *testing.T) {
	m, _ := Parse("PID|||1||A^B", reg)
	if res := m.Validate(); !hasID(res.Issues, issue.DiagMessageNoHeader) {
		t.Errorf("issues = %v", ids(res.Issues))
	}
	m, _ = Parse("EVN|A01\r"+adt, reg)
	if res := m.Validate(); !hasID(res.Issues, issue.DiagMessageHeaderNotFirst) {
		t.Errorf("issues = %v", ids(res.Issues))
	}
}

func TestValidateIdempotent(t *testing.T) {
	text := strings.Replace(adt, "19800102", "20251345", 1) + "\rZZ1|x\rEVN|A02"
	m, _ := Parse(text, reg)
	a, b := m.Validate(), m.Validate()
	if !reflect.DeepEqual(a.Issues, b.Issues) {
		t.Errorf("results differ:\n%v\n%v", a.Issues, b.Issues)
	}
	if !a.HasErrors() {
		t.Error("expected errors")
	}
}

func TestValidateLocations(t *testing.T) {
	m, _ := Parse(strings.Replace(adt, "19800102", "20251345", 1), reg)
	var found bool
	for _, iss := range m.Validate().Issues {
		if len(iss.Address) > 0 && iss.Address[0] == "PID-7" {
			found = true
			if iss.Location == nil || iss.Location.Line != 3 {
				t.Errorf("Location = %+v", iss.Location)
			}
		}
	}
	if !found {
		t.Error("no PID-7 issue")
	}

	m, _ = Parse(strings.Replace(adt, "19800102", "20251345", 1), reg, WithLocations(false))
	for _, iss := range m.Validate().Issues {
		if iss.Location != nil {
			t.Errorf("unexpected location on %v", iss)
		}
	}
}

func TestOrderingPolicy(t *testing.T) {
	swapped := "MSH|^~\\&|||||20250115120000||ADT^A01|1|P|2.5.1\rEVN|A01|20250115120000\rPV1|1|I\rPID|1||12345||DOE^JANE"
	severity := func(opts ...Option) issue.Severity {
		m, _ := Parse(swapped, reg, opts...)
		for _, iss := range m.Validate().Issues {
			if iss.MessageID == string(issue.DiagMessageSegmentOrder) {
				return iss.Severity
			}
		}
		return ""
	}
	if got := severity(); got != issue.SeverityWarning {
		t.Errorf("default ADT policy severity = %q", got)
	}
	if got := severity(WithTypePolicy("ADT", structure.Strict)); got != issue.SeverityError {
		t.Errorf("ADT strict severity = %q", got)
	}
	if got := severity(WithOrderingPolicy(structure.Strict), WithTypePolicy("ADT^A01", structure.Advisory)); got != issue.SeverityWarning {
		t.Errorf("specific override severity = %q", got)
	}
}

func TestTypeMismatch(t *testing.T) {
	m, _ := Parse(adt, reg)
	if err := m.Header().SetMessageType("ADT", "A08", ""); err != nil {
		t.Fatal(err)
	}
	if res := m.Validate(); !hasID(res.Issues, issue.DiagMessageTypeMismatch) {
		t.Errorf("issues = %v", ids(res.Issues))
	}
}

func TestPrimitives(t *testing.T) {
	m, _ := Parse(adt, reg)
	nk1 := m.NewSegment("NK1")
	if err := m.Insert(3, nk1); err != nil {
		t.Fatal(err)
	}
	if err := m.Insert(9, nk1); !errors.Is(err, hlerrors.ErrSegmentOutOfRange) {
		t.Errorf("Insert out of range = %v", err)
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []string{"MSH", "EVN", "PID", "NK1", "PV1"}) {
		t.Errorf("IDs() = %v", got)
	}
	m.Add(m.NewSegment("NK1"))
	if len(m.All("NK1")) != 2 || len(AllOf[*segment.NK1](m)) != 2 {
		t.Error("expected two NK1")
	}
	if m.First("NK1") != nk1 {
		t.Error("First(NK1) is not the inserted segment")
	}
	if n := m.RemoveAll("NK1"); n != 2 {
		t.Errorf("RemoveAll = %d", n)
	}
	s, err := m.Remove(1)
	if err != nil || s.ID() != "EVN" {
		t.Errorf("Remove(1) = %v, %v", s, err)
	}
	if _, err := m.Remove(5); !errors.Is(err, hlerrors.ErrSegmentOutOfRange) {
		t.Errorf("Remove out of range = %v", err)
	}
	if m.First("ZZZ") != nil || m.All("ZZZ") != nil {
		t.Error("lookup of absent id")
	}
}

func TestNewSkeleton(t *testing.T) {
	m, err := New(reg, registry.Key{MessageType: "ADT^A01"}, fixed()...)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []string{"MSH", "EVN", "PID", "PV1"}) {
		t.Errorf("IDs() = %v", got)
	}
	if m.Key().Version != DefaultVersion || m.ControlID() != "CTRL1" {
		t.Errorf("key %v control %s", m.Key(), m.ControlID())
	}
	m, err = New(reg, registry.Key{Version: "2.3", MessageType: "ZZZ^Z01"})
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 || len(m.ControlID()) != 20 {
		t.Errorf("Len %d control %q", m.Len(), m.ControlID())
	}
}

func TestNewDispense(t *testing.T) {
	m, err := NewDispense(reg,
		Patient{ID: "12345", Family: "SMITH", Given: "JOHN"},
		Dispense{Order: Order{DrugCode: "00054-0122-25", DrugName: "LISINOPRIL 10MG", Route: "PO"}, Prescription: "RX1", Amount: decimal.RequireFromString("30"), Units: "TAB"},
		fixed()...)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []string{"MSH", "EVN", "PID", "ORC", "RXD", "RXR"}) {
		t.Errorf("IDs() = %v", got)
	}
	rxd, _ := FirstOf[*segment.RXD](m)
	if rxd.PrescriptionNumber() != "RX1" {
		t.Errorf("RXD-7 = %q", rxd.PrescriptionNumber())
	}
	if res := m.Validate(); res.HasErrors() {
		t.Errorf("unexpected errors: %v", res.Issues)
	}
}

func TestNewOrderResponse(t *testing.T) {
	order, _ := NewPharmacyOrder(reg,
		Patient{ID: "12345", Family: "SMITH", Given: "JOHN"},
		Order{PlacerID: "ORD1", DrugCode: "00054-0122-25", DrugName: "LISINOPRIL 10MG"},
		fixed()...)
	_ = order.SetRoute(Route{SendingApplication: "EHR", ReceivingApplication: "PHARM"})

	m, err := NewOrderResponse(reg, order, AckAccept, "OK", WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.IDs(); !reflect.DeepEqual(got, []string{"MSH", "MSA", "PID", "ORC"}) {
		t.Errorf("IDs() = %v", got)
	}
	msa, _ := FirstOf[*segment.MSA](m)
	if msa.AckCode() != "AA" || msa.ControlID() != "CTRL1" {
		t.Errorf("MSA = %s %s", msa.AckCode(), msa.ControlID())
	}
	orc, _ := FirstOf[*segment.ORC](m)
	if orc.OrderControl() != "OK" || orc.PlacerOrderNumber() != "ORD1" {
		t.Errorf("ORC = %s %s", orc.OrderControl(), orc.PlacerOrderNumber())
	}
	if h := m.Header(); h.SendingApplication() != "PHARM" || h.ReceivingApplication() != "EHR" {
		t.Errorf("route = %s -> %s", h.SendingApplication(), h.ReceivingApplication())
	}
	if res := m.Validate(); res.HasErrors() {
		t.Errorf("unexpected errors: %v", res.Issues)
	}
}

func TestNewACK(t *testing.T) {
	received, _ := Parse(adt, reg)
	ack, err := NewACK(reg, received, received.Validate(), fixed()...)
	if err != nil {
		t.Fatal(err)
	}
	if ack.Type() != "ACK^A01" {
		t.Errorf("Type() = %s", ack.Type())
	}
	msa, _ := FirstOf[*segment.MSA](ack)
	if msa.AckCode() != AckAccept || msa.ControlID() != "MSG0001" {
		t.Errorf("MSA = %s %s", msa.AckCode(), msa.ControlID())
	}
	if h := ack.Header(); h.SendingApplication() != "RECV" || h.ReceivingFacility() != "FAC" {
		t.Errorf("route not reversed: %q", h.Encode(ack.Delimiters()))
	}

	bad, _ := Parse(strings.Replace(adt, "19800102", "20251345", 1), reg)
	ack, err = NewACK(reg, bad, bad.Validate(), fixed()...)
	if err != nil {
		t.Fatal(err)
	}
	msa, _ = FirstOf[*segment.MSA](ack)
	errs := AllOf[*segment.ERR](ack)
	if msa.AckCode() != AckError || len(errs) != 1 || errs[0].Code() != "102" {
		t.Errorf("ACK = %q", ack.Encode(true))
	}
	if res := ack.Validate(); res.HasErrors() {
		t.Errorf("ACK has errors: %v", res.Issues)
	}
}

func TestNewACKV23SingleERR(t *testing.T) {
	text := "MSH|^~\\&|A|B|C|D|20250115120000||ADT^A01|X1|P|2.3\rEVN|A01|20250115120000\rPID|1||12345||||20251345\rPV1|1|I"
	received, _ := Parse(text, reg)
	res := received.Validate()
	if res.ErrorCount() < 2 {
		t.Fatalf("expected at least two errors, got %v", res.Issues)
	}
	ack, err := NewACK(reg, received, res, fixed()...)
	if err != nil {
		t.Fatal(err)
	}
	errs := AllOf[*segment.ERR](ack)
	if len(errs) != 1 || !strings.Contains(errs[0].Raw(1), "~") {
		t.Errorf("ACK = %q", ack.Encode(true))
	}
	if res := ack.Validate(); res.HasErrors() {
		t.Errorf("ACK has errors: %v", res.Issues)
	}
}

func TestNewACKReject(t *testing.T) {
	received, _ := Parse("PID|||1", reg)
	ack, err := NewACK(reg, received, nil, fixed()...)
	if err != nil {
		t.Fatal(err)
	}
	msa, _ := FirstOf[*segment.MSA](ack)
	if msa.AckCode() != AckReject {
		t.Errorf("AckCode() = %s", msa.AckCode())
	}
}

func TestSplitBatch(t *testing.T) {
	text := "FHS|^~\\&\rBHS|^~\\&\r" + adt + "\r" + adt + "\rBTS|2\rFTS|1"
	got := SplitBatch(text)
	if len(got) != 2 || got[0] != adt || got[1] != adt {
		t.Errorf("SplitBatch() = %q", got)
	}
}
