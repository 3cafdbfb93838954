package datatype

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
)

// Precision is the finest unit present in a DT, TM or TS value.
type Precision uint8

// Precision levels, coarsest first.
const (
	PrecisionYear Precision = iota + 1
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
)

// Plausible years for typed date setters.
const (
	MinPlausibleYear = 1800
	MaxPlausibleYear = 2200
)

func checkPlausible(name string, t time.Time) error {
	if y := t.Year(); y < MinPlausibleYear || y > MaxPlausibleYear {
		return hlerrors.NewConstraint(name, "plausibility",
			fmt.Sprintf("year %04d outside %d..%d", y, MinPlausibleYear, MaxPlausibleYear))
	}
	return nil
}

var datePattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)

// Date is the DT variant: exactly eight digits, YYYYMMDD, calendar-checked.
type Date struct {
	primitive
	value time.Time
}

// NewDate creates an empty Date field.
func NewDate(spec *Spec) *Date {
	return &Date{primitive: primitive{spec: orEmpty(spec), outcome: emptyOutcome}}
}

func parseDate(text string) (time.Time, error) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, hlerrors.NewFormat("DT", text, "expected YYYYMMDD")
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	t, err := civil(year, month, day, 0, 0, 0, 0, time.UTC)
	if err != nil {
		return time.Time{}, hlerrors.NewFormat("DT", text, err.Error())
	}
	return t, nil
}

// civil builds a time and rejects components that time.Date would normalize.
func civil(year, month, day, hour, minute, sec, nsec int, loc *time.Location) (time.Time, error) {
	switch {
	case month < 1 || month > 12:
		return time.Time{}, fmt.Errorf("month %02d out of range", month)
	case hour > 23:
		return time.Time{}, fmt.Errorf("hour %02d out of range", hour)
	case minute > 59:
		return time.Time{}, fmt.Errorf("minute %02d out of range", minute)
	case sec > 59:
		return time.Time{}, fmt.Errorf("second %02d out of range", sec)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, nsec, loc)
	if day < 1 || t.Day() != day {
		return time.Time{}, fmt.Errorf("day %02d out of range for %04d-%02d", day, year, month)
	}
	return t, nil
}

// Decode parses YYYYMMDD.
func (f *Date) Decode(raw string, d encoding.Delimiters) Outcome {
	f.text = d.Unescape(f.split(raw, d))
	f.value = time.Time{}
	switch f.text {
	case "":
		f.outcome = emptyOutcome
		return f.outcome
	case Null:
		f.outcome = valueOutcome
		return f.outcome
	}
	t, err := parseDate(f.text)
	if err != nil {
		f.outcome = failed(err)
		return f.outcome
	}
	f.value = t
	f.outcome = valueOutcome
	return f.outcome
}

// SetRaw strictly parses YYYYMMDD and applies the plausibility check of
// SetValue. On failure the field is unchanged.
func (f *Date) SetRaw(raw string) error {
	text := encoding.Default.Unescape(raw)
	if text == "" {
		f.Clear()
		return nil
	}
	t, err := parseDate(text)
	if err != nil {
		return err
	}
	if err := checkPlausible(f.spec.Name, t); err != nil {
		return err
	}
	f.text, f.value, f.outcome, f.trailer = text, t, valueOutcome, ""
	return nil
}

// SetValue sets the date part of t after a plausibility check.
func (f *Date) SetValue(t time.Time) error {
	if err := checkPlausible(f.spec.Name, t); err != nil {
		return err
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	f.text, f.value, f.outcome, f.trailer = day.Format("20060102"), day, valueOutcome, ""
	return nil
}

// Value returns the date and whether one is present.
func (f *Date) Value() (time.Time, bool) {
	return f.value, f.outcome.HasValue() && !f.IsNull()
}

// Clear empties the field.
func (f *Date) Clear() {
	f.reset()
	f.value = time.Time{}
}

// Validate checks requiredness and format.
func (f *Date) Validate(addr string) []issue.Issue {
	return validateCommon(addr, f.spec, f.outcome, "DT", runeLen(f.text))
}

var (
	timestampPattern = regexp.MustCompile(`^(\d{4})(?:(\d{2})(?:(\d{2})(?:(\d{2})(?:(\d{2})(?:(\d{2})(?:\.(\d{1,4}))?)?)?)?)?)?([+-]\d{4})?$`)
	timePattern      = regexp.MustCompile(`^(\d{2})(?:(\d{2})(?:(\d{2})(?:\.(\d{1,4}))?)?)?([+-]\d{4})?$`)
)

// instant is the parsed form shared by TM and TS.
type instant struct {
	t          time.Time
	precision  Precision
	fracDigits int
	hasZone    bool
}

func parseZone(z string) (*time.Location, error) {
	if z == "" {
		return time.UTC, nil
	}
	hh, _ := strconv.Atoi(z[1:3])
	mm, _ := strconv.Atoi(z[3:5])
	if hh > 14 || mm > 59 {
		return nil, fmt.Errorf("zone offset %s out of range", z)
	}
	offset := hh*3600 + mm*60
	if z[0] == '-' {
		offset = -offset
	}
	return time.FixedZone("", offset), nil
}

func fraction(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s + strings.Repeat("0", 9-len(s)))
	return n
}

func parseTimestamp(text string) (instant, error) {
	m := timestampPattern.FindStringSubmatch(text)
	if m == nil {
		return instant{}, hlerrors.NewFormat("TS", text, "expected YYYY[MM[DD[HH[MM[SS[.S{1,4}]]]]]][+/-ZZZZ]")
	}
	in := instant{precision: PrecisionYear, fracDigits: len(m[7]), hasZone: m[8] != ""}
	parts := []int{0, 1, 1, 0, 0, 0}
	for i := 1; i <= 6; i++ {
		if m[i] == "" {
			break
		}
		parts[i-1], _ = strconv.Atoi(m[i])
		in.precision = Precision(i)
	}
	loc, err := parseZone(m[8])
	if err != nil {
		return instant{}, hlerrors.NewFormat("TS", text, err.Error())
	}
	t, err := civil(parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], fraction(m[7]), loc)
	if err != nil {
		return instant{}, hlerrors.NewFormat("TS", text, err.Error())
	}
	in.t = t
	return in, nil
}

func parseTime(text string) (instant, error) {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return instant{}, hlerrors.NewFormat("TM", text, "expected HH[MM[SS[.S{1,4}]]][+/-ZZZZ]")
	}
	in := instant{precision: PrecisionHour, fracDigits: len(m[4]), hasZone: m[5] != ""}
	parts := []int{0, 0, 0}
	for i := 1; i <= 3; i++ {
		if m[i] == "" {
			break
		}
		parts[i-1], _ = strconv.Atoi(m[i])
		in.precision = PrecisionHour + Precision(i-1)
	}
	loc, err := parseZone(m[5])
	if err != nil {
		return instant{}, hlerrors.NewFormat("TM", text, err.Error())
	}
	t, err := civil(0, 1, 1, parts[0], parts[1], parts[2], fraction(m[4]), loc)
	if err != nil {
		return instant{}, hlerrors.NewFormat("TM", text, err.Error())
	}
	in.t = t
	return in, nil
}

// format renders the instant at its precision. Date units are skipped for TM.
func (in instant) format(withDate bool) string {
	var b strings.Builder
	if withDate {
		fmt.Fprintf(&b, "%04d", in.t.Year())
		if in.precision >= PrecisionMonth {
			fmt.Fprintf(&b, "%02d", int(in.t.Month()))
		}
		if in.precision >= PrecisionDay {
			fmt.Fprintf(&b, "%02d", in.t.Day())
		}
	}
	if in.precision >= PrecisionHour {
		fmt.Fprintf(&b, "%02d", in.t.Hour())
	}
	if in.precision >= PrecisionMinute {
		fmt.Fprintf(&b, "%02d", in.t.Minute())
	}
	if in.precision >= PrecisionSecond {
		fmt.Fprintf(&b, "%02d", in.t.Second())
		if in.fracDigits > 0 {
			frac := fmt.Sprintf("%09d", in.t.Nanosecond())
			b.WriteByte('.')
			b.WriteString(frac[:in.fracDigits])
		}
	}
	if in.hasZone {
		b.WriteString(in.t.Format("-0700"))
	}
	return b.String()
}

// Timestamp is the TS / DTM variant with partial precision from year down to
// fractional seconds and an optional zone offset. In versions where TS is a
// composite, components after the first are kept verbatim.
type Timestamp struct {
	primitive
	value instant
	tail  []string
}

// NewTimestamp creates an empty Timestamp field.
func NewTimestamp(spec *Spec) *Timestamp {
	return &Timestamp{primitive: primitive{spec: orEmpty(spec), outcome: emptyOutcome}}
}

// Decode parses the first component as a timestamp.
func (f *Timestamp) Decode(raw string, d encoding.Delimiters) Outcome {
	comps := d.SplitComponents(raw)
	f.text = d.Unescape(comps[0])
	f.tail = nil
	for _, c := range comps[1:] {
		f.tail = append(f.tail, d.Unescape(c))
	}
	f.value = instant{}
	switch f.text {
	case "":
		f.outcome = emptyOutcome
		return f.outcome
	case Null:
		f.outcome = valueOutcome
		return f.outcome
	}
	in, err := parseTimestamp(f.text)
	if err != nil {
		f.outcome = failed(err)
		return f.outcome
	}
	f.value = in
	f.outcome = valueOutcome
	return f.outcome
}

// Encode returns the timestamp text plus any retained trailing components.
func (f *Timestamp) Encode(d encoding.Delimiters) string {
	if len(f.tail) == 0 {
		return f.primitive.Encode(d)
	}
	comps := make([]string, 0, len(f.tail)+1)
	comps = append(comps, f.primitive.Encode(d))
	for _, c := range f.tail {
		comps = append(comps, d.EscapeText(c))
	}
	return d.JoinComponents(comps)
}

// SetRaw strictly parses a timestamp within the plausible years. On failure
// the field is unchanged.
func (f *Timestamp) SetRaw(raw string) error {
	text := encoding.Default.Unescape(raw)
	if text == "" {
		f.Clear()
		return nil
	}
	in, err := parseTimestamp(text)
	if err != nil {
		return err
	}
	if err := checkPlausible(f.spec.Name, in.t); err != nil {
		return err
	}
	f.text, f.value, f.outcome, f.tail = text, in, valueOutcome, nil
	return nil
}

// SetValue sets t at second precision including its zone offset.
func (f *Timestamp) SetValue(t time.Time) error {
	return f.SetValueWithPrecision(t, PrecisionSecond, 0, true)
}

// SetValueWithPrecision sets t rendered down to p, with fracDigits (0-4)
// fractional second digits when p is PrecisionSecond.
func (f *Timestamp) SetValueWithPrecision(t time.Time, p Precision, fracDigits int, zone bool) error {
	if err := checkPlausible(f.spec.Name, t); err != nil {
		return err
	}
	if p < PrecisionYear || p > PrecisionSecond {
		return hlerrors.NewConstraint(f.spec.Name, "range", fmt.Sprintf("invalid precision %d", p))
	}
	if fracDigits < 0 || fracDigits > 4 || (fracDigits > 0 && p != PrecisionSecond) {
		return hlerrors.NewConstraint(f.spec.Name, "range", fmt.Sprintf("invalid fraction digits %d", fracDigits))
	}
	in := instant{t: t, precision: p, fracDigits: fracDigits, hasZone: zone}
	text := in.format(true)
	if err := f.checkLength(text); err != nil {
		return err
	}
	f.text, f.value, f.outcome, f.tail = text, in, valueOutcome, nil
	return nil
}

// Value returns the instant and whether one is present.
func (f *Timestamp) Value() (time.Time, bool) {
	return f.value.t, f.outcome.HasValue() && !f.IsNull()
}

// Precision returns the precision of the current value.
func (f *Timestamp) Precision() Precision { return f.value.precision }

// HasZone reports whether the value carried an explicit zone offset.
func (f *Timestamp) HasZone() bool { return f.value.hasZone }

// Canonical re-renders the value at its own precision.
func (f *Timestamp) Canonical() string {
	if !f.outcome.HasValue() || f.IsNull() {
		return f.text
	}
	return f.value.format(true)
}

// Clear empties the field.
func (f *Timestamp) Clear() {
	f.reset()
	f.value = instant{}
	f.tail = nil
}

// Validate checks requiredness and format.
func (f *Timestamp) Validate(addr string) []issue.Issue {
	return validateCommon(addr, f.spec, f.outcome, specType(f.spec, "TS"), runeLen(f.text))
}

// Time is the TM variant: HH[MM[SS[.S{1,4}]]][+/-ZZZZ].
type Time struct {
	primitive
	value instant
}

// NewTime creates an empty Time field.
func NewTime(spec *Spec) *Time {
	return &Time{primitive: primitive{spec: orEmpty(spec), outcome: emptyOutcome}}
}

// Decode parses a time of day.
func (f *Time) Decode(raw string, d encoding.Delimiters) Outcome {
	f.text = d.Unescape(f.split(raw, d))
	f.value = instant{}
	switch f.text {
	case "":
		f.outcome = emptyOutcome
		return f.outcome
	case Null:
		f.outcome = valueOutcome
		return f.outcome
	}
	in, err := parseTime(f.text)
	if err != nil {
		f.outcome = failed(err)
		return f.outcome
	}
	f.value = in
	f.outcome = valueOutcome
	return f.outcome
}

// SetRaw strictly parses a time. On failure the field is unchanged.
func (f *Time) SetRaw(raw string) error {
	text := encoding.Default.Unescape(raw)
	if text == "" {
		f.Clear()
		return nil
	}
	in, err := parseTime(text)
	if err != nil {
		return err
	}
	f.text, f.value, f.outcome, f.trailer = text, in, valueOutcome, ""
	return nil
}

// SetValue sets the clock part of t at second precision without zone.
func (f *Time) SetValue(t time.Time) error {
	in := instant{t: t, precision: PrecisionSecond}
	f.text, f.value, f.outcome, f.trailer = in.format(false), in, valueOutcome, ""
	return nil
}

// Value returns the time of day (on 0000-01-01) and whether one is present.
func (f *Time) Value() (time.Time, bool) {
	return f.value.t, f.outcome.HasValue() && !f.IsNull()
}

// Precision returns the precision of the current value.
func (f *Time) Precision() Precision { return f.value.precision }

// Clear empties the field.
func (f *Time) Clear() {
	f.reset()
	f.value = instant{}
}

// Validate checks requiredness and format.
func (f *Time) Validate(addr string) []issue.Issue {
	return validateCommon(addr, f.spec, f.outcome, "TM", runeLen(f.text))
}
