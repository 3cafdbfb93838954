package datatype

import (
	"reflect"
	"testing"

	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

func TestPersonName(t *testing.T) {
	p := NewPersonName(&Spec{Name: "Patient Name", Type: "XPN"})
	if err := p.SetName("SMITH", "JOHN"); err != nil {
		t.Fatal(err)
	}
	if got := p.Encode(d); got != "SMITH^JOHN" {
		t.Errorf("Encode() = %q; want SMITH^JOHN", got)
	}
	if got := p.Display(); got != "JOHN SMITH" {
		t.Errorf("Display() = %q", got)
	}

	tests := []struct {
		name Name
		want string
	}{
		{Name{Family: "SMITH"}, "SMITH"},
		{Name{Family: "SMITH", Given: "JOHN", Middle: "Q"}, "JOHN Q SMITH"},
		{Name{Family: "SMITH", Given: "JOHN", Prefix: "DR", Suffix: "JR"}, "DR JOHN SMITH JR"},
		{Name{Given: "CHER"}, "CHER"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.name.Display(); got != tt.want {
				t.Errorf("Display() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestPersonNameDecode(t *testing.T) {
	p := NewPersonName(nil)
	p.Decode(`O\T\BRIEN^MARY^ANN^III^MS^MD`, d)
	want := Name{Family: "O&BRIEN", Given: "MARY", Middle: "ANN", Suffix: "III", Prefix: "MS", Degree: "MD"}
	if got := p.Value(); got != want {
		t.Errorf("Value() = %+v; want %+v", got, want)
	}
	if got := p.Encode(d); got != `O\T\BRIEN^MARY^ANN^III^MS^MD` {
		t.Errorf("Encode() = %q", got)
	}
}

func TestCompositeLength(t *testing.T) {
	p := NewPersonName(&Spec{Name: "Patient Name", Type: "XPN", MaxLength: 10})
	if err := p.SetName("SMITH", "JOHN"); err != nil {
		t.Fatal(err)
	}
	err := p.SetName("SCHWARZENEGGER", "ARNOLD")
	if !hlerrors.IsConstraint(err) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if p.Family() != "SMITH" {
		t.Errorf("value changed to %q", p.Family())
	}
}

func TestExtendedID(t *testing.T) {
	x := NewExtendedID(&Spec{Type: "CX"})
	x.Decode("12345^^^HOSP&1.2.840&ISO^MR", d)
	v := x.Value()
	if v.ID != "12345" || v.TypeCode != "MR" {
		t.Errorf("Value() = %+v", v)
	}
	if v.Authority != (Designator{Namespace: "HOSP", UniversalID: "1.2.840", UniversalIDType: "ISO"}) {
		t.Errorf("Authority = %+v", v.Authority)
	}

	y := NewExtendedID(nil)
	if err := y.SetValue(Identifier{ID: "999", Authority: Designator{Namespace: "CLINIC"}, TypeCode: "PI"}); err != nil {
		t.Fatal(err)
	}
	if got := y.Encode(d); got != "999^^^CLINIC^PI" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestCodedTable(t *testing.T) {
	c := NewCoded(&Spec{Name: "Order Control", Type: "CE", Table: "0119"})
	if err := c.SetCode("NW", "New order", "HL70119"); err != nil {
		t.Fatal(err)
	}
	if issues := c.Validate("ORC-1"); len(issues) != 0 {
		t.Errorf("NW should be valid: %v", issues)
	}
	if err := c.SetCode("ZZ", "", ""); err != nil {
		t.Fatal(err)
	}
	issues := c.Validate("ORC-1")
	if len(issues) != 1 || issues[0].Severity != issue.SeverityWarning {
		t.Errorf("expected table warning, got %v", issues)
	}
	if got := c.Value().String(); got != "ZZ" {
		t.Errorf("String() = %q", got)
	}
}

func TestMessageType(t *testing.T) {
	tests := []struct {
		raw       string
		wantState State
		key       string
	}{
		{"RDE^O01", StateValue, "RDE^O01"},
		{"RDE^O11^RDE_O11", StateValue, "RDE^O11"},
		{"ACK", StateValue, "ACK"},
		{"rde^o01", StateFailed, "rde^o01"},
		{"ADT^A01^BAD", StateFailed, "ADT^A01"},
		{"", StateEmpty, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			m := NewMessageType(&Spec{Type: "MSG"})
			o := m.Decode(tt.raw, d)
			if o.State != tt.wantState {
				t.Errorf("state = %v; want %v", o.State, tt.wantState)
			}
			if m.Key() != tt.key {
				t.Errorf("Key() = %q; want %q", m.Key(), tt.key)
			}
			if m.Encode(d) != tt.raw {
				t.Errorf("Encode() = %q; want %q", m.Encode(d), tt.raw)
			}
		})
	}

	m := NewMessageType(nil)
	if err := m.SetValue("ADT", "A01", "ADT_A01"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetValue("adt", "", ""); !hlerrors.IsFormat(err) {
		t.Errorf("expected format error, got %v", err)
	}
	if m.Structure() != "ADT_A01" {
		t.Errorf("value changed: %q", m.String())
	}
}

func TestCompositeAccessors(t *testing.T) {
	c := NewComposite(nil, nil)
	if err := c.SetComponent(3, "C"); err != nil {
		t.Fatal(err)
	}
	if got := c.Encode(d); got != "^^C" {
		t.Errorf("Encode() = %q", got)
	}
	if err := c.SetSubComponents(1, "A", "B"); err != nil {
		t.Fatal(err)
	}
	if got := c.Encode(d); got != "A&B^^C" {
		t.Errorf("Encode() = %q", got)
	}
	if c.SubComponent(1, 2) != "B" || c.Component(5) != "" || c.SubComponent(0, 1) != "" {
		t.Error("unexpected accessor results")
	}
	if !reflect.DeepEqual(c.SubComponents(1), []string{"A", "B"}) {
		t.Errorf("SubComponents(1) = %v", c.SubComponents(1))
	}
	if err := c.SetComponent(0, "x"); !hlerrors.IsConstraint(err) {
		t.Errorf("component 0 should be rejected, got %v", err)
	}
	c.Clear()
	if !c.IsEmpty() || c.Encode(d) != "" {
		t.Error("Clear should empty the composite")
	}
}

func TestCompositeCustomDelimiters(t *testing.T) {
	custom := encoding.Delimiters{Field: '#', Component: '$', Repetition: '*', Escape: '!', SubComponent: '%'}
	p := NewPersonName(nil)
	p.Decode("SMITH$JOHN", custom)
	if p.Family() != "SMITH" || p.Given() != "JOHN" {
		t.Fatalf("Value() = %+v", p.Value())
	}
	if got := p.Encode(d); got != "SMITH^JOHN" {
		t.Errorf("re-encode with default delimiters = %q", got)
	}
}

func TestAllEmptyCompositeIsEmpty(t *testing.T) {
	c := NewAddress(nil)
	if o := c.Decode("^^^", d); !o.IsEmpty() {
		t.Errorf("^^^ should decode as empty, got %v", o.State)
	}
}

func TestAddressAndTelecom(t *testing.T) {
	a := NewAddress(nil)
	a.Decode("123 MAIN ST^^SPRINGFIELD^IL^62701^USA^H", d)
	if got := a.Display(); got != "123 MAIN ST, SPRINGFIELD, IL 62701, USA" {
		t.Errorf("Display() = %q", got)
	}
	if a.Value().Type != "H" {
		t.Errorf("Type = %q", a.Value().Type)
	}

	tel := NewTelecom(nil)
	tel.Decode("^PRN^PH^^^217^5551234^12", d)
	if got := tel.Display(); got != "(217) 5551234 x12" {
		t.Errorf("Display() = %q", got)
	}
	if err := tel.SetValue(Phone{Number: "(217)555-1234", Use: "PRN"}); err != nil {
		t.Fatal(err)
	}
	if got := tel.Encode(d); got != "(217)555-1234^PRN" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestLocation(t *testing.T) {
	l := NewLocation(nil)
	l.Decode("ICU^101^A^HOSP&1.2.3&ISO", d)
	if l.Display() != "ICU 101-A" {
		t.Errorf("Display() = %q", l.Display())
	}
	if l.Facility().UniversalID != "1.2.3" {
		t.Errorf("Facility() = %+v", l.Facility())
	}
}

func TestProcessingTypeTable(t *testing.T) {
	p := NewProcessingType(&Spec{Type: "PT", Table: "0103"})
	p.Decode("P", d)
	if len(p.Validate("MSH-11")) != 0 {
		t.Error("P should be a valid processing id")
	}
	p.Decode("Q", d)
	if len(p.Validate("MSH-11")) != 1 {
		t.Error("Q should not be a valid processing id")
	}
}
