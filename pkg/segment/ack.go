package segment

import (
	"strconv"

	"github.com/gofhir/hl7v2/pkg/datatype"
	"github.com/gofhir/hl7v2/pkg/encoding"
	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
)

// MSA is the message acknowledgment segment.
type MSA struct {
	*Base
}

// NewMSA creates an empty acknowledgment segment.
func NewMSA(schema *Schema) *MSA {
	return &MSA{NewBase(schema)}
}

// AckCode returns MSA-1.
func (a *MSA) AckCode() string { return a.text(1) }

// ControlID returns MSA-2, the control id of the acknowledged message.
func (a *MSA) ControlID() string { return a.text(2) }

// Text returns MSA-3.
func (a *MSA) Text() string { return a.text(3) }

// SetAck sets acknowledgment code (table 0008), acknowledged control id and text.
func (a *MSA) SetAck(code, controlID, text string) error {
	if err := a.setText(1, code); err != nil {
		return err
	}
	if err := a.setText(2, controlID); err != nil {
		return err
	}
	return a.setText(3, text)
}

// ERR is the error segment.
type ERR struct {
	*Base
}

// NewERR creates an empty error segment.
func NewERR(schema *Schema) *ERR {
	return &ERR{NewBase(schema)}
}

// ErrorCodeTable is the HL7 table of message error codes.
const ErrorCodeTable = "HL70357"

// SetError records one error against a segment, its sequence and field.
// text is the description of code. ERR-1 carries the location and code in
// the layout every version accepts; schemas of the newer layout also get
// error location, HL7 error code and severity.
func (e *ERR) SetError(segmentID string, sequence, field int, code, text, severity string) error {
	seq, pos := positive(sequence), positive(field)
	if err := e.First(1).SetRaw(composeRaw([][]string{
		{segmentID}, {seq}, {pos}, {code, text, ErrorCodeTable},
	})); err != nil {
		return err
	}
	if n := e.schema.Index("Error Location"); n > 0 {
		if err := e.setText(n, segmentID, seq, pos); err != nil {
			return err
		}
	}
	if n := e.schema.Index("HL7 Error Code"); n > 0 {
		if err := e.setText(n, code, text, ErrorCodeTable); err != nil {
			return err
		}
	}
	if n := e.schema.Index("Severity"); n > 0 && severity != "" {
		return e.setText(n, severity)
	}
	return nil
}

// SetUserMessage stores a free-text explanation in the user message field,
// cut to the field's maximum length. Layouts without the field ignore it.
func (e *ERR) SetUserMessage(msg string) error {
	n := e.schema.Index("User Message")
	if n == 0 || msg == "" {
		return nil
	}
	if max := e.schema.Fields[n-1].MaxLength; max > 0 {
		if r := []rune(msg); len(r) > max {
			msg = string(r[:max])
		}
	}
	return e.setText(n, msg)
}

// AppendError adds one more error location and code as a new ERR-1
// repetition, for layouts where the segment itself does not repeat.
func (e *ERR) AppendError(segmentID string, sequence, field int, code, text string) error {
	r, ok := e.Field(1).(*datatype.Repeating)
	if !ok {
		return hlerrors.NewConstraint(label(e.schema.ID, 1), "repeat", "field does not repeat")
	}
	return e.commit(1, r.AppendRaw(composeRaw([][]string{
		{segmentID}, {positive(sequence)}, {positive(field)}, {code, text, ErrorCodeTable},
	})))
}

// Code returns the error code from ERR-1.
func (e *ERR) Code() string {
	return e.SubComponentOf(1, 4, 1)
}

// SubComponentOf returns sub-component m of component c of the first
// repetition of field n.
func (e *ERR) SubComponentOf(n, c, m int) string {
	if sc, ok := e.peek(n).(interface{ SubComponent(int, int) string }); ok {
		return sc.SubComponent(c, m)
	}
	return ""
}

// NTE is the notes and comments segment.
type NTE struct {
	*Base
}

// NewNTE creates an empty note segment.
func NewNTE(schema *Schema) *NTE {
	return &NTE{NewBase(schema)}
}

// SetComment sets set id, source of comment and the comment text.
func (n *NTE) SetComment(setID int, source, text string) error {
	if err := n.setText(1, strconv.Itoa(setID)); err != nil {
		return err
	}
	if err := n.setText(2, source); err != nil {
		return err
	}
	return n.setText(3, text)
}

// Comment returns the first comment line.
func (n *NTE) Comment() string { return n.text(3) }

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// composeRaw escapes and joins components of sub-components in default delimiters.
func composeRaw(comps [][]string) string {
	d := encoding.Default
	parts := make([]string, len(comps))
	for i, subs := range comps {
		escaped := make([]string, len(subs))
		for j, s := range subs {
			escaped[j] = d.EscapeText(s)
		}
		parts[i] = d.JoinSubComponents(escaped)
	}
	return d.JoinComponents(parts)
}
