package segment

import (
	"strconv"
	"time"

	"github.com/gofhir/hl7v2/pkg/datatype"
)

// PID is the patient identification segment.
type PID struct {
	*Base
}

// NewPID creates an empty patient segment.
func NewPID(schema *Schema) *PID {
	return &PID{NewBase(schema)}
}

// SetID sets PID-1.
func (p *PID) SetID(n int) error { return p.setText(1, strconv.Itoa(n)) }

// Identifiers returns every repetition of PID-3.
func (p *PID) Identifiers() []datatype.Identifier {
	var out []datatype.Identifier
	forEach(p.Field(3), func(f datatype.Field) {
		if x, ok := f.(*datatype.ExtendedID); ok && !x.IsEmpty() {
			out = append(out, x.Value())
		}
	})
	return out
}

// SetPatientID sets the first repetition of PID-3.
func (p *PID) SetPatientID(id, authority, typeCode string) error {
	if x, ok := p.First(3).(*datatype.ExtendedID); ok {
		return x.SetValue(datatype.Identifier{
			ID:        id,
			Authority: datatype.Designator{Namespace: authority},
			TypeCode:  typeCode,
		})
	}
	return p.setText(3, id, "", "", authority, typeCode)
}

// AddPatientID appends a repetition to PID-3.
func (p *PID) AddPatientID(id, authority, typeCode string) error {
	r, ok := p.Field(3).(*datatype.Repeating)
	if !ok || r.Len() == 0 {
		return p.SetPatientID(id, authority, typeCode)
	}
	x := datatype.NewExtendedID(r.Spec())
	if err := x.SetValue(datatype.Identifier{
		ID:        id,
		Authority: datatype.Designator{Namespace: authority},
		TypeCode:  typeCode,
	}); err != nil {
		return err
	}
	return r.AppendRaw(x.String())
}

// Name returns the first patient name.
func (p *PID) Name() datatype.Name {
	if n, ok := p.peek(5).(*datatype.PersonName); ok {
		return n.Value()
	}
	return datatype.Name{Family: p.text(5)}
}

// SetName sets the family and given names of the first patient name.
func (p *PID) SetName(family, given string) error {
	return p.setText(5, family, given)
}

// BirthDate returns PID-7.
func (p *PID) BirthDate() (time.Time, bool) { return p.timeOf(7) }

// SetBirthDate sets PID-7 to day precision.
func (p *PID) SetBirthDate(t time.Time) error {
	return p.setTime(7, t, datatype.PrecisionDay, false)
}

// Sex returns PID-8.
func (p *PID) Sex() string { return p.text(8) }

// SetSex sets PID-8 (table 0001).
func (p *PID) SetSex(code string) error { return p.setText(8, code) }

// SetBasicInfo sets identifier, name, birth date and sex in one call.
// A zero birth date leaves PID-7 untouched.
func (p *PID) SetBasicInfo(id, family, given string, birth time.Time, sex string) error {
	if err := p.SetPatientID(id, "", ""); err != nil {
		return err
	}
	if err := p.SetName(family, given); err != nil {
		return err
	}
	if !birth.IsZero() {
		if err := p.SetBirthDate(birth); err != nil {
			return err
		}
	}
	if sex != "" {
		return p.SetSex(sex)
	}
	return nil
}

// Address returns the first patient address.
func (p *PID) Address() datatype.PostalAddress {
	if a, ok := p.peek(11).(*datatype.Address); ok {
		return a.Value()
	}
	return datatype.PostalAddress{}
}

// SetAddress sets the first patient address.
func (p *PID) SetAddress(a datatype.PostalAddress) error {
	return p.setText(11, a.Street, a.Other, a.City, a.State, a.Zip, a.Country, a.Type)
}

// SetHomePhone sets the first home phone number.
func (p *PID) SetHomePhone(number string) error { return p.setText(13, number) }

// AccountNumber returns PID-18.
func (p *PID) AccountNumber() string { return p.text(18) }

// SetAccountNumber sets PID-18.
func (p *PID) SetAccountNumber(id string) error { return p.setText(18, id) }

// PV1 is the patient visit segment.
type PV1 struct {
	*Base
}

// NewPV1 creates an empty visit segment.
func NewPV1(schema *Schema) *PV1 {
	return &PV1{NewBase(schema)}
}

// PatientClass returns PV1-2.
func (v *PV1) PatientClass() string { return v.text(2) }

// SetPatientClass sets PV1-2 (table 0004).
func (v *PV1) SetPatientClass(class string) error { return v.setText(2, class) }

// SetLocation sets PV1-3.
func (v *PV1) SetLocation(pointOfCare, room, bed string) error {
	return v.setText(3, pointOfCare, room, bed)
}

// Location returns PV1-3 for display.
func (v *PV1) Location() string {
	if l, ok := v.peek(3).(*datatype.Location); ok {
		return l.Display()
	}
	return v.text(3)
}

// SetAttendingDoctor sets the first repetition of PV1-7.
func (v *PV1) SetAttendingDoctor(id, family, given string) error {
	return v.setText(7, id, family, given)
}

// SetVisitNumber sets PV1-19.
func (v *PV1) SetVisitNumber(id string) error { return v.setText(19, id) }

// VisitNumber returns PV1-19.
func (v *PV1) VisitNumber() string { return v.text(19) }

// SetAdmitTime sets PV1-44.
func (v *PV1) SetAdmitTime(t time.Time) error {
	return v.setTime(44, t, datatype.PrecisionMinute, false)
}

// NK1 is the next of kin segment.
type NK1 struct {
	*Base
}

// NewNK1 creates an empty next of kin segment.
func NewNK1(schema *Schema) *NK1 {
	return &NK1{NewBase(schema)}
}

// SetContact sets set id, name and relationship code.
func (k *NK1) SetContact(setID int, family, given, relationship string) error {
	if err := k.setText(1, strconv.Itoa(setID)); err != nil {
		return err
	}
	if err := k.setText(2, family, given); err != nil {
		return err
	}
	return k.setText(3, relationship)
}

// Name returns the first contact name.
func (k *NK1) Name() datatype.Name {
	if n, ok := k.peek(2).(*datatype.PersonName); ok {
		return n.Value()
	}
	return datatype.Name{}
}

// Relationship returns the relationship code of NK1-3.
func (k *NK1) Relationship() string { return k.text(3) }

// SetPhone sets the first phone number of NK1-5.
func (k *NK1) SetPhone(number string) error { return k.setText(5, number) }

// AL1 is the patient allergy segment.
type AL1 struct {
	*Base
}

// NewAL1 creates an empty allergy segment.
func NewAL1(schema *Schema) *AL1 {
	return &AL1{NewBase(schema)}
}

// SetAllergy sets set id, allergen type (table 0127), allergen code and
// text, severity (table 0128) and reaction.
func (a *AL1) SetAllergy(setID int, allergenType, code, text, severity, reaction string) error {
	steps := []struct {
		n      int
		values []string
	}{
		{1, []string{strconv.Itoa(setID)}},
		{2, []string{allergenType}},
		{3, []string{code, text}},
		{4, []string{severity}},
		{5, []string{reaction}},
	}
	for _, s := range steps {
		if err := a.setText(s.n, s.values...); err != nil {
			return err
		}
	}
	return nil
}

// Allergen returns AL1-3.
func (a *AL1) Allergen() datatype.CodedValue {
	if c, ok := a.peek(3).(*datatype.Coded); ok {
		return c.Value()
	}
	return datatype.CodedValue{Identifier: a.text(3)}
}

// Severity returns AL1-4.
func (a *AL1) Severity() string { return a.text(4) }

func forEach(f datatype.Field, fn func(datatype.Field)) {
	if r, ok := f.(*datatype.Repeating); ok {
		for _, item := range r.Items() {
			fn(item)
		}
		return
	}
	if f != nil {
		fn(f)
	}
}
