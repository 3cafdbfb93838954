package segment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gofhir/hl7v2/pkg/datatype"
	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
)

type componentSetter interface {
	SetComponents(values ...string) error
}

type componentGetter interface {
	Component(n int) string
}

// peek returns slot n or its first existing repetition, without creating one.
func (b *Base) peek(n int) datatype.Field {
	f := b.Field(n)
	if r, ok := f.(*datatype.Repeating); ok {
		return r.At(0)
	}
	return f
}

// text returns component 1 of slot n, unescaped.
func (b *Base) text(n int) string {
	return componentOf(b.peek(n), 1)
}

func componentOf(f datatype.Field, n int) string {
	switch v := f.(type) {
	case nil:
		return ""
	case componentGetter:
		return v.Component(n)
	default:
		if n == 1 {
			return f.String()
		}
		return ""
	}
}

// setText sets slot n (its first repetition for repeating slots) from plain
// component values. All setters funnel through the field's own checks.
func (b *Base) setText(n int, values ...string) error {
	f := b.First(n)
	if f == nil {
		return hlerrors.NewConstraint(label(b.schema.ID, n), "range", "no such field")
	}
	var err error
	switch v := f.(type) {
	case componentSetter:
		err = v.SetComponents(values...)
	case *datatype.String:
		if len(values) == 0 {
			values = []string{""}
		}
		// Trailing empty components encode to nothing and may be dropped.
		for _, extra := range values[1:] {
			if extra != "" {
				return hlerrors.NewConstraint(label(b.schema.ID, n), "components",
					fmt.Sprintf("%s holds one value, got %d", v.Spec().Type, len(values)))
			}
		}
		err = v.SetValue(values[0])
	default:
		escaped := make([]string, len(values))
		for i, s := range values {
			escaped[i] = encoding.Default.EscapeText(s)
		}
		err = f.SetRaw(encoding.Default.JoinComponents(escaped))
	}
	return b.commit(n, err)
}

// commit drops verbatim extra repetitions of slot n once a setter succeeded.
func (b *Base) commit(n int, err error) error {
	if err == nil {
		delete(b.overflow, n)
	}
	return err
}

// setTime sets a DT, TS or TM slot.
func (b *Base) setTime(n int, t time.Time, p datatype.Precision, zone bool) error {
	var err error
	switch v := b.First(n).(type) {
	case *datatype.Timestamp:
		err = v.SetValueWithPrecision(t, p, 0, zone)
	case *datatype.Date:
		err = v.SetValue(t)
	case *datatype.Time:
		err = v.SetValue(t)
	default:
		err = hlerrors.NewConstraint(label(b.schema.ID, n), "type", "field does not hold a date or time")
	}
	return b.commit(n, err)
}

// timeOf returns the typed value of a DT, TS or TM slot.
func (b *Base) timeOf(n int) (time.Time, bool) {
	switch v := b.peek(n).(type) {
	case *datatype.Timestamp:
		return v.Value()
	case *datatype.Date:
		return v.Value()
	case *datatype.Time:
		return v.Value()
	default:
		return time.Time{}, false
	}
}

// setNumber sets an NM or SI slot.
func (b *Base) setNumber(n int, v decimal.Decimal) error {
	if f, ok := b.First(n).(*datatype.Numeric); ok {
		return b.commit(n, f.SetValue(v))
	}
	return b.setText(n, v.String())
}

// numberOf returns the typed value of an NM or SI slot.
func (b *Base) numberOf(n int) (decimal.Decimal, bool) {
	if f, ok := b.peek(n).(*datatype.Numeric); ok {
		return f.Value()
	}
	return decimal.Zero, false
}
