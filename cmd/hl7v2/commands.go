package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	hl7v2 "github.com/gofhir/hl7v2"
	"github.com/gofhir/hl7v2/engine"
	"github.com/gofhir/hl7v2/pkg/fhirmap"
	"github.com/gofhir/hl7v2/pkg/issue"
	"github.com/gofhir/hl7v2/pkg/message"
	"github.com/gofhir/hl7v2/pkg/mllp"
	"github.com/gofhir/hl7v2/stream"
)

// ValidationOutput represents the JSON output of one validated message.
type ValidationOutput struct {
	Input       string        `json:"input"`
	Index       int           `json:"index"`
	MessageType string        `json:"messageType,omitempty"`
	ControlID   string        `json:"controlId,omitempty"`
	Version     string        `json:"version,omitempty"`
	Valid       bool          `json:"valid"`
	Errors      int           `json:"errors"`
	Warnings    int           `json:"warnings"`
	Info        int           `json:"info"`
	Issues      []IssueOutput `json:"issues,omitempty"`
}

// IssueOutput represents a single issue in JSON output.
type IssueOutput struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics"`
	Address     []string `json:"address,omitempty"`
	Line        int      `json:"line,omitempty"`
	Column      int      `json:"column,omitempty"`
}

// MessageOutput represents the JSON output of parse, serialize and ack.
type MessageOutput struct {
	Input       string            `json:"input"`
	Index       int               `json:"index"`
	MessageType string            `json:"messageType,omitempty"`
	ControlID   string            `json:"controlId,omitempty"`
	Version     string            `json:"version,omitempty"`
	Segments    []SegmentOutput   `json:"segments,omitempty"`
	Resources   []json.RawMessage `json:"resources,omitempty"`
	Text        string            `json:"text,omitempty"`
}

// SegmentOutput lists the populated fields of a segment by position.
type SegmentOutput struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields,omitempty"`
}

type cli struct {
	cfg     *Config
	codec   *engine.Codec
	out     io.Writer
	outputs []any
}

// process runs the command over every message of in. It returns false when
// any message failed to decode or, for validate, carried errors.
func (c *cli) process(ctx context.Context, in input) bool {
	rc, err := in.open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", in.name, err)
		return false
	}
	defer rc.Close()

	var results <-chan *stream.MessageResult
	if c.cfg.Parallel && c.cfg.Command == cmdValidate {
		results = c.codec.DecodeStreamParallel(ctx, rc)
	} else {
		results = c.codec.DecodeStream(ctx, rc)
	}

	ok := true
	for r := range results {
		if !c.handle(in.name, r) {
			ok = false
		}
		if r.Result != nil {
			r.Result.Release()
		}
	}
	return ok
}

func (c *cli) handle(name string, r *stream.MessageResult) bool {
	if r.Error != nil {
		label := name
		if r.Index >= 0 {
			label += " #" + strconv.Itoa(r.Index+1)
		}
		fmt.Fprintf(os.Stderr, "Error decoding %s: %v\n", label, r.Error)
		if c.cfg.Command == cmdValidate {
			c.emit(ValidationOutput{
				Input: name, Index: r.Index, Errors: 1,
				Issues: []IssueOutput{{Severity: string(issue.SeverityFatal), Code: string(issue.CodeStructure), Diagnostics: r.Error.Error()}},
			})
		}
		return false
	}

	switch c.cfg.Command {
	case cmdValidate:
		return c.validate(name, r)
	case cmdFrame:
		return c.frame(r)
	}

	// The stream already counted this parse.
	m, err := message.ParseBytes(r.Payload, c.codec.Registry(), c.codec.MessageOptions()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding %s #%d: %v\n", name, r.Index+1, err)
		return false
	}
	switch c.cfg.Command {
	case cmdParse:
		return c.parse(name, r.Index, m)
	case cmdSerialize:
		return c.write(name, r.Index, m)
	case cmdACK:
		ack, err := c.codec.ACK(m, r.Result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error acknowledging %s #%d: %v\n", name, r.Index+1, err)
			return false
		}
		return c.write(name, r.Index, ack)
	}
	return true
}

func (c *cli) validate(name string, r *stream.MessageResult) bool {
	res := r.Result
	out := ValidationOutput{
		Input:       name,
		Index:       r.Index,
		MessageType: res.MessageType,
		ControlID:   res.ControlID,
		Version:     res.Version,
		Valid:       res.Valid,
		Errors:      res.ErrorCount(),
		Warnings:    res.WarningCount(),
		Info:        res.InfoCount(),
	}
	for _, iss := range res.Issues {
		o := IssueOutput{
			Severity:    string(iss.Severity),
			Code:        string(iss.Code),
			Diagnostics: iss.Diagnostics,
			Address:     iss.Address,
		}
		if iss.Location != nil {
			o.Line, o.Column = iss.Location.Line, iss.Location.Column
		}
		out.Issues = append(out.Issues, o)
	}

	if c.cfg.Output == OutputJSON {
		c.emit(out)
	} else {
		c.printValidation(out, res)
	}
	return res.Valid
}

func (c *cli) printValidation(out ValidationOutput, res *hl7v2.Result) {
	status := "VALID"
	if !out.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(c.out, "== %s #%d ==\n", out.Input, out.Index+1)
	fmt.Fprintf(c.out, "Message: %s (control ID %s, version %s)\n", orDash(out.MessageType), orDash(out.ControlID), orDash(out.Version))
	fmt.Fprintf(c.out, "Status: %s\n", status)
	fmt.Fprintf(c.out, "Errors: %d, Warnings: %d, Info: %d\n", out.Errors, out.Warnings, out.Info)

	if len(res.Issues) > 0 {
		fmt.Fprintln(c.out, "\nIssues:")
		for _, iss := range res.Issues {
			if c.cfg.Quiet && iss.Severity == issue.SeverityInformation {
				continue
			}
			location := ""
			if len(iss.Address) > 0 {
				location = " @ " + strings.Join(iss.Address, ", ")
			}
			if iss.Location != nil {
				location += fmt.Sprintf(" (line %d, col %d)", iss.Location.Line, iss.Location.Column)
			}
			fmt.Fprintf(c.out, "  %s [%s] %s%s\n", severityLabel(iss.Severity), iss.Code, iss.Diagnostics, location)
		}
	}
	fmt.Fprintln(c.out)
}

func (c *cli) parse(name string, index int, m *message.Message) bool {
	out := MessageOutput{
		Input:       name,
		Index:       index,
		MessageType: m.Type(),
		ControlID:   m.ControlID(),
		Version:     m.Version(),
	}
	if c.cfg.FHIR {
		for _, res := range fhirmap.Project(m) {
			body, err := res.JSON()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error projecting %s #%d %s: %v\n", name, index+1, res.Segment, err)
				return false
			}
			out.Resources = append(out.Resources, body)
		}
	} else {
		for _, seg := range m.Segments() {
			so := SegmentOutput{ID: seg.ID(), Fields: make(map[string]string)}
			for n := 1; n <= seg.Len(); n++ {
				if raw := seg.Raw(n); raw != "" {
					so.Fields[strconv.Itoa(n)] = raw
				}
			}
			out.Segments = append(out.Segments, so)
		}
	}

	if c.cfg.Output == OutputJSON {
		c.emit(out)
		return true
	}

	fmt.Fprintf(c.out, "== %s #%d: %s ==\n", name, index+1, orDash(out.MessageType))
	if c.cfg.FHIR {
		for _, body := range out.Resources {
			var pretty strings.Builder
			if err := indentJSON(&pretty, body); err != nil {
				fmt.Fprintf(c.out, "%s\n", body)
				continue
			}
			fmt.Fprintln(c.out, pretty.String())
		}
		fmt.Fprintln(c.out)
		return true
	}
	for _, seg := range m.Segments() {
		fmt.Fprintln(c.out, seg.ID())
		for n := 1; n <= seg.Len(); n++ {
			if raw := seg.Raw(n); raw != "" {
				fmt.Fprintf(c.out, "  %s-%-3d %s\n", seg.ID(), n, raw)
			}
		}
	}
	fmt.Fprintln(c.out)
	return true
}

// write prints m as text, JSON or an MLLP frame.
func (c *cli) write(name string, index int, m *message.Message) bool {
	switch {
	case c.cfg.MLLP:
		if err := c.codec.WriteFrame(c.out, m); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s #%d: %v\n", name, index+1, err)
			return false
		}
	case c.cfg.Output == OutputJSON:
		c.emit(MessageOutput{
			Input:       name,
			Index:       index,
			MessageType: m.Type(),
			ControlID:   m.ControlID(),
			Version:     m.Version(),
			Text:        c.codec.Serialize(m, !c.cfg.LF),
		})
	default:
		fmt.Fprintln(c.out, c.codec.Serialize(m, !c.cfg.LF))
	}
	return true
}

// frame wraps the payload exactly as read.
func (c *cli) frame(r *stream.MessageResult) bool {
	if err := mllp.NewWriter(c.out, c.codec.Options().MaxPayload).WriteMessage(r.Payload); err != nil {
		fmt.Fprintf(os.Stderr, "Error framing message #%d: %v\n", r.Index+1, err)
		return false
	}
	return true
}

func (c *cli) emit(v any) {
	c.outputs = append(c.outputs, v)
}

// flush writes the collected JSON outputs as one array.
func (c *cli) flush() error {
	if c.cfg.Output != OutputJSON || c.cfg.MLLP || c.cfg.Command == cmdFrame {
		return nil
	}
	if c.outputs == nil {
		c.outputs = []any{}
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(c.outputs)
}

func indentJSON(w io.Writer, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func severityLabel(severity issue.Severity) string {
	switch severity {
	case issue.SeverityFatal:
		return "FATAL"
	case issue.SeverityError:
		return "ERROR"
	case issue.SeverityWarning:
		return "WARN "
	case issue.SeverityInformation:
		return "INFO "
	default:
		return "     "
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
