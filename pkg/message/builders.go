package message

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gofhir/hl7v2/pkg/datatype"
	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/issue"
	"github.com/gofhir/hl7v2/pkg/location"
	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/pkg/segment"
)

// DefaultVersion is the version of built messages unless WithVersion is given.
const DefaultVersion = "2.5.1"

// New creates a message for key with a filled-in header followed by the
// mandatory segments of the structure registered for key. An empty key
// version falls back to WithVersion, then DefaultVersion.
func New(reg *registry.Registry, key registry.Key, opts ...Option) (*Message, error) {
	m, err := build(reg, key, opts)
	if err != nil {
		return nil, err
	}
	if st, ok := m.Structure(); ok {
		for _, id := range st.Skeleton() {
			if id != "MSH" {
				m.Append(id)
			}
		}
	}
	return m, nil
}

// build creates a message holding only its header.
func build(reg *registry.Registry, key registry.Key, opts []Option) (*Message, error) {
	cfg := newConfig(opts)
	if key.Standard == "" {
		key.Standard = cfg.standard
	}
	if key.Version == "" {
		key.Version = cfg.version
	}
	if key.Version == "" {
		key.Version = DefaultVersion
	}
	m := newMessage(reg, key, cfg)
	h, ok := m.NewSegment("MSH").(*segment.MSH)
	if !ok {
		return nil, fmt.Errorf("build %s: MSH: %w", key, hlerrors.ErrSchemaMismatch)
	}
	code, trigger, _ := strings.Cut(key.MessageType, "^")
	err := errors.Join(
		h.SetMessageType(code, trigger, ""),
		h.SetDateTime(cfg.now()),
		h.SetControlID(cfg.controlID()),
		h.SetProcessingID(cfg.processingID),
		h.SetVersion(key.Version),
	)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", key, err)
	}
	m.Add(h)
	return m, nil
}

// add creates the segment id, applies fill to its typed form and appends it.
func add[T segment.Segment](m *Message, id string, fill func(T) error) error {
	s, ok := m.NewSegment(id).(T)
	if !ok {
		return fmt.Errorf("%s for %s: %w", id, m.key, hlerrors.ErrSchemaMismatch)
	}
	if err := fill(s); err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	m.Add(s)
	return nil
}

// Route names the sending and receiving applications and facilities.
type Route struct {
	SendingApplication   string
	SendingFacility      string
	ReceivingApplication string
	ReceivingFacility    string
}

// SetRoute fills MSH-3 through MSH-6.
func (m *Message) SetRoute(r Route) error {
	h := m.Header()
	if h == nil {
		return hlerrors.NewStructural("message has no MSH segment")
	}
	return h.SetRoute(r.SendingApplication, r.SendingFacility, r.ReceivingApplication, r.ReceivingFacility)
}

// Patient identifies the subject of a built message.
type Patient struct {
	ID        string
	Authority string
	IDType    string
	Family    string
	Given     string
	BirthDate time.Time
	Sex       string
	Account   string
}

func (p Patient) fill(pid *segment.PID) error {
	if err := pid.SetPatientID(p.ID, p.Authority, p.IDType); err != nil {
		return err
	}
	if err := pid.SetName(p.Family, p.Given); err != nil {
		return err
	}
	if !p.BirthDate.IsZero() {
		if err := pid.SetBirthDate(p.BirthDate); err != nil {
			return err
		}
	}
	if p.Sex != "" {
		if err := pid.SetSex(p.Sex); err != nil {
			return err
		}
	}
	if p.Account != "" {
		return pid.SetAccountNumber(p.Account)
	}
	return nil
}

// Visit describes the patient visit of an ADT message.
type Visit struct {
	Class       string
	PointOfCare string
	Room        string
	Bed         string
	Attending   Provider
	Number      string
	AdmittedAt  time.Time
}

// Provider identifies a clinician.
type Provider struct {
	ID     string
	Family string
	Given  string
}

func (p Provider) empty() bool { return p == Provider{} }

// NewADT builds an ADT message for trigger (A01, A04, A08, ...):
// MSH, EVN, PID, PV1.
func NewADT(reg *registry.Registry, trigger string, p Patient, v Visit, opts ...Option) (*Message, error) {
	m, err := build(reg, registry.Key{MessageType: "ADT^" + trigger}, opts)
	if err != nil {
		return nil, err
	}
	now := m.cfg.now()
	err = errors.Join(
		add(m, "EVN", func(e *segment.EVN) error { return e.SetEvent(trigger, now) }),
		add(m, "PID", p.fill),
		add(m, "PV1", func(pv *segment.PV1) error {
			if v.Class == "" {
				v.Class = "U"
			}
			if err := pv.SetPatientClass(v.Class); err != nil {
				return err
			}
			if v.PointOfCare != "" || v.Room != "" || v.Bed != "" {
				if err := pv.SetLocation(v.PointOfCare, v.Room, v.Bed); err != nil {
					return err
				}
			}
			if !v.Attending.empty() {
				if err := pv.SetAttendingDoctor(v.Attending.ID, v.Attending.Family, v.Attending.Given); err != nil {
					return err
				}
			}
			if v.Number != "" {
				if err := pv.SetVisitNumber(v.Number); err != nil {
					return err
				}
			}
			if !v.AdmittedAt.IsZero() {
				return pv.SetAdmitTime(v.AdmittedAt)
			}
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("build ADT^%s: %w", trigger, err)
	}
	return m, nil
}

// Order describes a pharmacy order.
type Order struct {
	// Control is the order control code (table 0119); "NW" when empty.
	Control     string
	PlacerID    string
	DrugCode    string
	DrugName    string
	Amount      decimal.Decimal
	Units       string
	DosageForm  string
	Route       string
	RouteText   string
	Dispense    decimal.Decimal
	Refills     int64
	Prescriber  Provider
	Instruction string
}

func (o Order) control() string {
	if o.Control == "" {
		return "NW"
	}
	return o.Control
}

func (o Order) fillORC(now time.Time) func(*segment.ORC) error {
	return func(orc *segment.ORC) error {
		if err := orc.SetOrder(o.control(), o.PlacerID); err != nil {
			return err
		}
		if err := orc.SetTransactionTime(now); err != nil {
			return err
		}
		if !o.Prescriber.empty() {
			return orc.SetOrderingProvider(o.Prescriber.ID, o.Prescriber.Family, o.Prescriber.Given)
		}
		return nil
	}
}

func (o Order) fillRXE(rxe *segment.RXE) error {
	if err := rxe.SetDrug(o.DrugCode, o.DrugName); err != nil {
		return err
	}
	if o.Amount.IsPositive() {
		if err := rxe.SetGiveAmount(o.Amount, decimal.Zero); err != nil {
			return err
		}
	}
	if o.Units != "" {
		if err := rxe.SetGiveUnits(o.Units); err != nil {
			return err
		}
	}
	if o.DosageForm != "" {
		if err := rxe.SetDosageForm(o.DosageForm); err != nil {
			return err
		}
	}
	if o.Dispense.IsPositive() {
		if err := rxe.SetDispense(o.Dispense, o.Units); err != nil {
			return err
		}
	}
	if o.Refills > 0 {
		return rxe.SetRefills(o.Refills)
	}
	return nil
}

func (o Order) fillRXR(rxr *segment.RXR) error {
	return rxr.SetRoute(o.Route, o.RouteText)
}

// NewPharmacyOrder builds an RDE^O01 encoded pharmacy order:
// MSH, EVN, PID, ORC, RXE, followed by NTE when an instruction is given and
// RXR when a route is given.
func NewPharmacyOrder(reg *registry.Registry, p Patient, o Order, opts ...Option) (*Message, error) {
	m, err := build(reg, registry.Key{MessageType: "RDE^O01"}, opts)
	if err != nil {
		return nil, err
	}
	now := m.cfg.now()
	err = errors.Join(
		add(m, "EVN", func(e *segment.EVN) error { return e.SetEvent("O01", now) }),
		add(m, "PID", p.fill),
		add(m, "ORC", o.fillORC(now)),
		add(m, "RXE", o.fillRXE),
	)
	if err == nil && o.Instruction != "" {
		err = add(m, "NTE", func(n *segment.NTE) error { return n.SetComment(1, "P", o.Instruction) })
	}
	if err == nil && o.Route != "" {
		err = add(m, "RXR", o.fillRXR)
	}
	if err != nil {
		return nil, fmt.Errorf("build RDE^O01: %w", err)
	}
	return m, nil
}

// Dispense describes one dispense event.
type Dispense struct {
	Order        Order
	Counter      int64
	Prescription string
	Amount       decimal.Decimal
	Units        string
	DispensedAt  time.Time
}

// NewDispense builds an RDS^O01 dispense message:
// MSH, EVN, PID, ORC, RXD, followed by RXR when a route is given.
func NewDispense(reg *registry.Registry, p Patient, d Dispense, opts ...Option) (*Message, error) {
	m, err := build(reg, registry.Key{MessageType: "RDS^O01"}, opts)
	if err != nil {
		return nil, err
	}
	now := m.cfg.now()
	if d.DispensedAt.IsZero() {
		d.DispensedAt = now
	}
	if d.Counter <= 0 {
		d.Counter = 1
	}
	if d.Order.Control == "" {
		d.Order.Control = "RE"
	}
	err = errors.Join(
		add(m, "EVN", func(e *segment.EVN) error { return e.SetEvent("O01", now) }),
		add(m, "PID", p.fill),
		add(m, "ORC", d.Order.fillORC(now)),
		add(m, "RXD", func(rxd *segment.RXD) error {
			return errors.Join(
				rxd.SetDispenseCounter(d.Counter),
				rxd.SetDispenseCode(d.Order.DrugCode, d.Order.DrugName, "NDC"),
				rxd.SetDispensedAt(d.DispensedAt),
				rxd.SetAmount(d.Amount, d.Units),
				rxd.SetPrescriptionNumber(d.Prescription),
			)
		}),
	)
	if err == nil && d.Order.Route != "" {
		err = add(m, "RXR", d.Order.fillRXR)
	}
	if err != nil {
		return nil, fmt.Errorf("build RDS^O01: %w", err)
	}
	return m, nil
}

// NewOrderResponse builds an ORR^O02 response to a pharmacy order:
// MSH, MSA, then PID and one ORC per ORC of the order. control is the
// order control code of the response, e.g. "OK" or "UA".
func NewOrderResponse(reg *registry.Registry, order *Message, ackCode, control string, opts ...Option) (*Message, error) {
	opts = append([]Option{WithVersion(order.Version())}, opts...)
	m, err := build(reg, registry.Key{MessageType: "ORR^O02"}, opts)
	if err != nil {
		return nil, err
	}
	if err := m.SetRoute(reverseRoute(order.Header())); err != nil {
		return nil, fmt.Errorf("build ORR^O02: %w", err)
	}
	err = add(m, "MSA", func(a *segment.MSA) error { return a.SetAck(ackCode, order.ControlID(), "") })
	if pid, ok := FirstOf[*segment.PID](order); ok && err == nil {
		err = add(m, "PID", func(p *segment.PID) error {
			return errors.Join(p.SetRaw(3, wire(pid, 3)), p.SetRaw(5, wire(pid, 5)))
		})
	}
	for _, orc := range AllOf[*segment.ORC](order) {
		if err != nil {
			break
		}
		err = add(m, "ORC", func(o *segment.ORC) error {
			return errors.Join(
				o.SetOrderControl(control),
				o.SetRaw(2, wire(orc, 2)),
				o.SetRaw(3, wire(orc, 3)),
			)
		})
	}
	if err != nil {
		return nil, fmt.Errorf("build ORR^O02: %w", err)
	}
	return m, nil
}

// wire returns field n of a typed segment re-encoded in default delimiters,
// the form SetRaw expects.
func wire(s interface{ Field(int) datatype.Field }, n int) string {
	if f := s.Field(n); f != nil {
		return f.Encode(encoding.Default)
	}
	return ""
}

func reverseRoute(h *segment.MSH) Route {
	if h == nil {
		return Route{}
	}
	return Route{
		SendingApplication:   h.ReceivingApplication(),
		SendingFacility:      h.ReceivingFacility(),
		ReceivingApplication: h.SendingApplication(),
		ReceivingFacility:    h.SendingFacility(),
	}
}

// Acknowledgment codes (table 0008).
const (
	AckAccept = "AA"
	AckError  = "AE"
	AckReject = "AR"
)

// NewACK builds the acknowledgment of a received message: MSH, MSA and one
// ERR per error issue in result. The code is AA without errors, AE with
// errors, and AR when the received message has no usable header. result
// may be nil.
func NewACK(reg *registry.Registry, received *Message, result *issue.Result, opts ...Option) (*Message, error) {
	h := received.Header()
	code := AckAccept
	switch {
	case h == nil || h.ControlID() == "":
		code = AckReject
	case result != nil && result.HasErrors():
		code = AckError
	}
	opts = append([]Option{WithVersion(received.Version())}, opts...)
	trigger := ""
	if h != nil {
		if mt := h.MessageType(); mt != nil {
			trigger = mt.Trigger()
		}
	}
	msgType := "ACK"
	if trigger != "" {
		msgType += "^" + trigger
	}
	m, err := build(reg, registry.Key{MessageType: msgType}, opts)
	if err != nil {
		return nil, err
	}
	if err := m.SetRoute(reverseRoute(h)); err != nil {
		return nil, fmt.Errorf("build ACK: %w", err)
	}
	text := ""
	if code == AckReject {
		text = "message header missing or incomplete"
	}
	err = add(m, "MSA", func(a *segment.MSA) error { return a.SetAck(code, received.ControlID(), text) })
	if err == nil && result != nil {
		err = m.addErrors(result.Issues)
	}
	if err != nil {
		return nil, fmt.Errorf("build ACK: %w", err)
	}
	return m, nil
}

// addErrors appends ERR segments for the error issues. When the message
// structure does not let ERR repeat, every error goes into ERR-1
// repetitions of a single segment.
func (m *Message) addErrors(issues []issue.Issue) error {
	single := false
	if st, ok := m.Structure(); ok {
		single = !st.Repeats("ERR")
	}
	var last *segment.ERR
	for _, iss := range issues {
		if !iss.IsError() {
			continue
		}
		segID, seq, field := splitAddress(iss.Address)
		code := errorCode(iss.Code)
		if single && last != nil {
			if err := last.AppendError(segID, seq, field, code, errorText[code]); err != nil {
				return fmt.Errorf("ERR: %w", err)
			}
			continue
		}
		e, ok := m.NewSegment("ERR").(*segment.ERR)
		if !ok {
			return fmt.Errorf("ERR for %s: %w", m.key, hlerrors.ErrSchemaMismatch)
		}
		if err := errors.Join(
			e.SetError(segID, seq, field, code, errorText[code], iss.Severity.ERR()),
			e.SetUserMessage(iss.Diagnostics),
		); err != nil {
			return fmt.Errorf("ERR: %w", err)
		}
		m.Add(e)
		last = e
	}
	return nil
}

// splitAddress returns segment id, occurrence and field of the first
// address, or zero values when it does not parse.
func splitAddress(addrs []string) (string, int, int) {
	if len(addrs) == 0 {
		return "", 0, 0
	}
	a, err := location.Parse(addrs[0])
	if err != nil {
		return "", 0, 0
	}
	seq := a.Occurrence
	if seq == 0 {
		seq = 1
	}
	return a.Segment, seq, a.Field
}

// HL7 error codes (table 0357) used in ERR segments.
const (
	errCodeSegmentSequence = "100"
	errCodeRequiredMissing = "101"
	errCodeDataType        = "102"
	errCodeTableValue      = "103"
	errCodeUnsupported     = "200"
	errCodeApplication     = "207"
)

var errorText = map[string]string{
	errCodeSegmentSequence: "Segment sequence error",
	errCodeRequiredMissing: "Required field missing",
	errCodeDataType:        "Data type error",
	errCodeTableValue:      "Table value not found",
	errCodeUnsupported:     "Unsupported message type",
	errCodeApplication:     "Application internal error",
}

func errorCode(c issue.Code) string {
	switch c {
	case issue.CodeOrder, issue.CodeStructure, issue.CodeUnexpected:
		return errCodeSegmentSequence
	case issue.CodeRequired:
		return errCodeRequiredMissing
	case issue.CodeValue, issue.CodeTooLong, issue.CodeRange:
		return errCodeDataType
	case issue.CodeCodeInvalid:
		return errCodeTableValue
	case issue.CodeNotSupported:
		return errCodeUnsupported
	default:
		return errCodeApplication
	}
}
