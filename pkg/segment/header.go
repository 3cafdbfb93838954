package segment

import (
	"time"

	"github.com/gofhir/hl7v2/pkg/datatype"
)

// HeaderSchema is the built-in MSH layout used when no standard is
// registered for a message's version, so that delimiters and message
// identity stay readable. It follows the fields common to v2.3 and later.
var HeaderSchema = &Schema{
	ID:   "MSH",
	Name: "Message Header",
	Fields: []datatype.Spec{
		R(F("Field Separator", "ST", 1)),
		R(F("Encoding Characters", "ST", 5)),
		F("Sending Application", "HD", 227),
		F("Sending Facility", "HD", 227),
		F("Receiving Application", "HD", 227),
		F("Receiving Facility", "HD", 227),
		F("Date/Time of Message", "TS", 26),
		F("Security", "ST", 40),
		R(F("Message Type", "MSG", 15)),
		R(F("Message Control ID", "ST", 20)),
		R(T(F("Processing ID", "PT", 3), "0103")),
		R(F("Version ID", "varies", 60)),
	},
}

// MSH is the message header segment.
type MSH struct {
	*Base
}

// NewMSH creates an empty header for a schema.
func NewMSH(schema *Schema) *MSH {
	return &MSH{NewBase(schema)}
}

// NewHeader creates an empty header with the built-in schema.
func NewHeader() *MSH {
	return NewMSH(HeaderSchema)
}

// SendingApplication returns the namespace of MSH-3.
func (m *MSH) SendingApplication() string { return m.text(3) }

// SendingFacility returns the namespace of MSH-4.
func (m *MSH) SendingFacility() string { return m.text(4) }

// ReceivingApplication returns the namespace of MSH-5.
func (m *MSH) ReceivingApplication() string { return m.text(5) }

// ReceivingFacility returns the namespace of MSH-6.
func (m *MSH) ReceivingFacility() string { return m.text(6) }

// SetRoute sets the sending and receiving application and facility.
func (m *MSH) SetRoute(sendingApp, sendingFacility, receivingApp, receivingFacility string) error {
	for i, v := range []string{sendingApp, sendingFacility, receivingApp, receivingFacility} {
		if err := m.setText(3+i, v); err != nil {
			return err
		}
	}
	return nil
}

// DateTime returns MSH-7.
func (m *MSH) DateTime() (time.Time, bool) { return m.timeOf(7) }

// SetDateTime sets MSH-7 to second precision with zone offset.
func (m *MSH) SetDateTime(t time.Time) error {
	return m.setTime(7, t, datatype.PrecisionSecond, true)
}

// MessageType returns the MSH-9 field, or nil if the schema types it otherwise.
func (m *MSH) MessageType() *datatype.MessageType {
	mt, _ := m.Field(9).(*datatype.MessageType)
	return mt
}

// MessageKey returns "CODE^TRIGGER" from MSH-9.
func (m *MSH) MessageKey() string {
	if mt := m.MessageType(); mt != nil {
		return mt.Key()
	}
	code, trigger := componentOf(m.peek(9), 1), componentOf(m.peek(9), 2)
	if trigger == "" {
		return code
	}
	return code + "^" + trigger
}

// SetMessageType sets MSH-9. An empty structure is omitted.
func (m *MSH) SetMessageType(code, trigger, structure string) error {
	return m.setText(9, code, trigger, structure)
}

// ControlID returns MSH-10.
func (m *MSH) ControlID() string { return m.text(10) }

// SetControlID sets MSH-10.
func (m *MSH) SetControlID(id string) error { return m.setText(10, id) }

// ProcessingID returns the first component of MSH-11.
func (m *MSH) ProcessingID() string { return m.text(11) }

// SetProcessingID sets MSH-11 (P, D or T).
func (m *MSH) SetProcessingID(id string) error { return m.setText(11, id) }

// Version returns the version id from MSH-12, e.g. "2.5.1".
func (m *MSH) Version() string {
	v := m.Raw(12)
	for i, r := range v {
		if r == m.delims.Component {
			return v[:i]
		}
	}
	return v
}

// SetVersion sets MSH-12.
func (m *MSH) SetVersion(version string) error { return m.setText(12, version) }

// EVN is the event type segment.
type EVN struct {
	*Base
}

// NewEVN creates an empty event segment.
func NewEVN(schema *Schema) *EVN {
	return &EVN{NewBase(schema)}
}

// EventCode returns EVN-1.
func (e *EVN) EventCode() string { return e.text(1) }

// RecordedAt returns EVN-2.
func (e *EVN) RecordedAt() (time.Time, bool) { return e.timeOf(2) }

// SetEvent sets the event type code and recorded date/time.
func (e *EVN) SetEvent(code string, recorded time.Time) error {
	if err := e.setText(1, code); err != nil {
		return err
	}
	return e.setTime(2, recorded, datatype.PrecisionSecond, false)
}
