package segment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gofhir/hl7v2/pkg/datatype"
)

// ORC is the common order segment.
type ORC struct {
	*Base
}

// NewORC creates an empty order segment.
func NewORC(schema *Schema) *ORC {
	return &ORC{NewBase(schema)}
}

// OrderControl returns ORC-1.
func (o *ORC) OrderControl() string { return o.text(1) }

// SetOrderControl sets ORC-1 (table 0119), e.g. "NW".
func (o *ORC) SetOrderControl(code string) error { return o.setText(1, code) }

// PlacerOrderNumber returns the entity id of ORC-2.
func (o *ORC) PlacerOrderNumber() string { return o.text(2) }

// SetPlacerOrderNumber sets ORC-2.
func (o *ORC) SetPlacerOrderNumber(id, namespace string) error { return o.setText(2, id, namespace) }

// FillerOrderNumber returns the entity id of ORC-3.
func (o *ORC) FillerOrderNumber() string { return o.text(3) }

// SetFillerOrderNumber sets ORC-3.
func (o *ORC) SetFillerOrderNumber(id, namespace string) error { return o.setText(3, id, namespace) }

// SetOrderStatus sets ORC-5.
func (o *ORC) SetOrderStatus(status string) error { return o.setText(5, status) }

// SetTransactionTime sets ORC-9.
func (o *ORC) SetTransactionTime(t time.Time) error {
	return o.setTime(9, t, datatype.PrecisionSecond, false)
}

// SetOrderingProvider sets the first repetition of ORC-12.
func (o *ORC) SetOrderingProvider(id, family, given string) error {
	return o.setText(12, id, family, given)
}

// SetOrder sets order control and placer order number in one call.
func (o *ORC) SetOrder(control, placer string) error {
	if err := o.SetOrderControl(control); err != nil {
		return err
	}
	if placer == "" {
		return nil
	}
	return o.SetPlacerOrderNumber(placer, "")
}

// RXE is the pharmacy/treatment encoded order segment.
type RXE struct {
	*Base
}

// NewRXE creates an empty encoded order segment.
func NewRXE(schema *Schema) *RXE {
	return &RXE{NewBase(schema)}
}

// GiveCode returns RXE-2.
func (r *RXE) GiveCode() datatype.CodedValue {
	if c, ok := r.peek(2).(*datatype.Coded); ok {
		return c.Value()
	}
	return datatype.CodedValue{Identifier: r.text(2)}
}

// SetGiveCode sets RXE-2, e.g. an NDC code and drug name.
func (r *RXE) SetGiveCode(code, text, system string) error {
	return r.setText(2, code, text, system)
}

// GiveAmount returns RXE-3.
func (r *RXE) GiveAmount() (decimal.Decimal, bool) { return r.numberOf(3) }

// SetGiveAmount sets RXE-3 and, when max is positive, RXE-4.
func (r *RXE) SetGiveAmount(min, max decimal.Decimal) error {
	if err := r.setNumber(3, min); err != nil {
		return err
	}
	if max.IsPositive() {
		return r.setNumber(4, max)
	}
	return nil
}

// SetGiveUnits sets RXE-5.
func (r *RXE) SetGiveUnits(code string) error { return r.setText(5, code) }

// SetDosageForm sets RXE-6.
func (r *RXE) SetDosageForm(code string) error { return r.setText(6, code) }

// SetDispense sets dispense amount (RXE-10) and units (RXE-11).
func (r *RXE) SetDispense(amount decimal.Decimal, units string) error {
	if err := r.setNumber(10, amount); err != nil {
		return err
	}
	return r.setText(11, units)
}

// SetRefills sets RXE-12.
func (r *RXE) SetRefills(n int64) error { return r.setNumber(12, decimal.NewFromInt(n)) }

// SetDrug sets the give code with the National Drug Code system and a
// default give amount of one.
func (r *RXE) SetDrug(ndc, name string) error {
	if err := r.SetGiveCode(ndc, name, "NDC"); err != nil {
		return err
	}
	if _, ok := r.GiveAmount(); ok {
		return nil
	}
	return r.SetGiveAmount(decimal.NewFromInt(1), decimal.Zero)
}

// RXR is the pharmacy/treatment route segment.
type RXR struct {
	*Base
}

// NewRXR creates an empty route segment.
func NewRXR(schema *Schema) *RXR {
	return &RXR{NewBase(schema)}
}

// Route returns RXR-1.
func (r *RXR) Route() string { return r.text(1) }

// SetRoute sets RXR-1 (table 0162).
func (r *RXR) SetRoute(code, text string) error { return r.setText(1, code, text, "HL70162") }

// SetSite sets RXR-2.
func (r *RXR) SetSite(code string) error { return r.setText(2, code) }

// RXD is the pharmacy/treatment dispense segment.
type RXD struct {
	*Base
}

// NewRXD creates an empty dispense segment.
func NewRXD(schema *Schema) *RXD {
	return &RXD{NewBase(schema)}
}

// SetDispenseCounter sets RXD-1.
func (r *RXD) SetDispenseCounter(n int64) error { return r.setNumber(1, decimal.NewFromInt(n)) }

// DispenseCode returns RXD-2.
func (r *RXD) DispenseCode() datatype.CodedValue {
	if c, ok := r.peek(2).(*datatype.Coded); ok {
		return c.Value()
	}
	return datatype.CodedValue{Identifier: r.text(2)}
}

// SetDispenseCode sets RXD-2.
func (r *RXD) SetDispenseCode(code, text, system string) error {
	return r.setText(2, code, text, system)
}

// DispensedAt returns RXD-3.
func (r *RXD) DispensedAt() (time.Time, bool) { return r.timeOf(3) }

// SetDispensedAt sets RXD-3.
func (r *RXD) SetDispensedAt(t time.Time) error {
	return r.setTime(3, t, datatype.PrecisionMinute, false)
}

// Amount returns RXD-4.
func (r *RXD) Amount() (decimal.Decimal, bool) { return r.numberOf(4) }

// SetAmount sets actual dispense amount (RXD-4) and units (RXD-5).
func (r *RXD) SetAmount(amount decimal.Decimal, units string) error {
	if err := r.setNumber(4, amount); err != nil {
		return err
	}
	return r.setText(5, units)
}

// SetPrescriptionNumber sets RXD-7.
func (r *RXD) SetPrescriptionNumber(id string) error { return r.setText(7, id) }

// PrescriptionNumber returns RXD-7.
func (r *RXD) PrescriptionNumber() string { return r.text(7) }
