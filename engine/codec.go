// Package engine provides the Codec, the entry point tying parsing,
// validation, conformance rules, acknowledgment and metrics together.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	hl7v2 "github.com/gofhir/hl7v2"
	"github.com/gofhir/hl7v2/pkg/issue"
	"github.com/gofhir/hl7v2/pkg/location"
	"github.com/gofhir/hl7v2/pkg/logger"
	"github.com/gofhir/hl7v2/pkg/message"
	"github.com/gofhir/hl7v2/pkg/mllp"
	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/stream"
	"github.com/gofhir/hl7v2/worker"
)

// ErrUnsupportedVersion is returned by New when the configured version has
// no registered plugin.
var ErrUnsupportedVersion = errors.New("unsupported HL7 version")

// Codec decodes, validates and encodes HL7 v2 messages.
// A Codec is safe for concurrent use.
type Codec struct {
	options *hl7v2.Options
	reg     *registry.Registry
	metrics *hl7v2.Metrics
	log     *logger.Logger
	msgOpts []message.Option
}

// New creates a Codec. Without WithRegistry, the registry holds the built-in
// versions selected by WithVersions plus any WithPlugins.
func New(opts ...hl7v2.Option) (*Codec, error) {
	options := hl7v2.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	c := &Codec{
		options: options,
		metrics: options.Metrics,
		log:     options.Logger,
	}
	if c.metrics == nil {
		c.metrics = hl7v2.NewMetrics()
	}
	if c.log == nil {
		c.log = logger.Default()
	}
	c.log = c.log.With("subsystem", "codec")

	reg, err := buildRegistry(options)
	if err != nil {
		return nil, err
	}
	c.reg = reg

	if v := options.Version; v != "" && !reg.HasVersion(registry.StandardHL7v2, v) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
	}

	c.msgOpts = messageOptions(options)
	c.log.Debug("codec ready: versions %v, %d registry entries", reg.Versions(registry.StandardHL7v2), reg.Count())
	return c, nil
}

func buildRegistry(o *hl7v2.Options) (*registry.Registry, error) {
	if o.Registry != nil {
		return o.Registry, nil
	}
	versions := o.Versions
	if len(versions) == 0 {
		versions = hl7v2.Versions()
	}
	reg := registry.New()
	for _, v := range versions {
		p := v.Plugin()
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
		}
		if err := reg.Install(p); err != nil {
			return nil, err
		}
	}
	if err := reg.Install(o.Plugins...); err != nil {
		return nil, err
	}
	return reg.Freeze(), nil
}

func messageOptions(o *hl7v2.Options) []message.Option {
	opts := []message.Option{
		message.WithLocations(o.TrackLocations),
		message.WithProcessingID(o.ProcessingID),
	}
	if o.Version != "" {
		opts = append(opts, message.WithVersion(o.Version))
	}
	if o.OrderingPolicy != nil {
		opts = append(opts, message.WithOrderingPolicy(*o.OrderingPolicy))
	}
	for mt, p := range o.TypePolicies {
		opts = append(opts, message.WithTypePolicy(mt, p))
	}
	return opts
}

// MessageOptions returns the message options derived from the codec
// configuration, followed by extra. Use them with the message builders.
func (c *Codec) MessageOptions(extra ...message.Option) []message.Option {
	out := make([]message.Option, 0, len(c.msgOpts)+len(extra))
	out = append(out, c.msgOpts...)
	return append(out, extra...)
}

// Parse decodes message text. See message.Parse for the leniency rules.
func (c *Codec) Parse(text string) (*message.Message, error) {
	m, err := message.Parse(text, c.reg, c.msgOpts...)
	c.metrics.RecordParse(len(text), err == nil)
	if err != nil {
		c.log.Debug("parse failed: %v", err)
		return nil, err
	}
	return m, nil
}

// ParseBytes decodes a bare or MLLP-framed message, rejecting input larger
// than the configured maximum payload.
func (c *Codec) ParseBytes(b []byte) (*message.Message, error) {
	if limit := c.options.MaxPayload; limit > 0 && len(b) > limit {
		c.metrics.RecordParse(len(b), false)
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", mllp.ErrPayloadTooLarge, len(b), limit)
	}
	m, err := message.ParseBytes(b, c.reg, c.msgOpts...)
	c.metrics.RecordParse(len(b), err == nil)
	if err != nil {
		c.log.Debug("parse failed: %v", err)
		return nil, err
	}
	return m, nil
}

// Validate checks m structurally, then against the conformance rules. In
// strict mode warnings become errors. The result comes from a pool; call
// Release when done.
func (c *Codec) Validate(ctx context.Context, m *message.Message) (*hl7v2.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	report := m.Validate()
	if c.options.Rules != nil {
		ruleIssues := c.options.Rules.Evaluate(m)
		if c.options.TrackLocations && m.Source() != "" {
			locate(ruleIssues, m.Source())
		}
		report.AddIssues(ruleIssues)
	}
	if c.options.StrictMode {
		report.Escalate()
	}

	result := hl7v2.AcquireResult()
	result.MessageType = m.Type()
	result.ControlID = m.ControlID()
	result.Version = m.Version()
	result.AddIssues(report.Issues)

	for _, iss := range result.Issues {
		c.metrics.RecordIssue(iss.Severity)
	}
	c.metrics.RecordValidation(result.MessageType, time.Since(start), result.Valid, len(result.Issues))
	if !result.Valid {
		c.log.Debug("message %s (%s) has %d error(s)", result.ControlID, result.MessageType, result.ErrorCount())
	}
	return result, nil
}

func locate(issues []issue.Issue, source string) {
	for i := range issues {
		iss := &issues[i]
		if iss.Location != nil || len(iss.Address) == 0 {
			continue
		}
		if loc := location.Find(source, iss.Address[0]); loc != nil {
			iss.Location = &issue.Location{Line: loc.Line, Column: loc.Column}
		}
	}
}

// Decode parses and validates b.
func (c *Codec) Decode(ctx context.Context, b []byte) (*message.Message, *hl7v2.Result, error) {
	m, err := c.ParseBytes(b)
	if err != nil {
		return nil, nil, err
	}
	result, err := c.Validate(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return m, result, nil
}

// Check parses and validates b, keeping only the report.
func (c *Codec) Check(ctx context.Context, b []byte) (*hl7v2.Result, error) {
	_, result, err := c.Decode(ctx, b)
	return result, err
}

// Serialize encodes m with CR (useCR) or LF segment separators.
func (c *Codec) Serialize(m *message.Message, useCR bool) string {
	c.metrics.RecordEncode()
	return m.Encode(useCR)
}

// Frame encodes m and wraps it in an MLLP frame.
func (c *Codec) Frame(m *message.Message) []byte {
	c.metrics.RecordEncode()
	return m.Frame()
}

// WriteFrame encodes m as an MLLP frame on w.
func (c *Codec) WriteFrame(w io.Writer, m *message.Message) error {
	c.metrics.RecordEncode()
	return mllp.NewWriter(w, c.options.MaxPayload).WriteMessage([]byte(m.Encode(true)))
}

// ACK builds the acknowledgment of received. result may be nil, which
// acknowledges without errors.
func (c *Codec) ACK(received *message.Message, result *hl7v2.Result) (*message.Message, error) {
	var report *issue.Result
	if result != nil {
		report = result.Report()
	}
	ack, err := message.NewACK(c.reg, received, report, c.msgOpts...)
	if err != nil {
		return nil, err
	}
	c.metrics.RecordACK()
	return ack, nil
}

// NewMessage creates a message of messageType ("RDE^O01") holding a header
// and the mandatory segments of its structure.
func (c *Codec) NewMessage(messageType string) (*message.Message, error) {
	return message.New(c.reg, registry.Key{MessageType: messageType}, c.msgOpts...)
}

// DecodeBatch checks payloads in parallel. Result i belongs to payload i.
func (c *Codec) DecodeBatch(ctx context.Context, payloads [][]byte) *worker.BatchResult {
	return worker.NewBatchProcessor(c, c.options.Workers).ProcessBatch(ctx, payloads)
}

// DecodeStream checks the messages of r, MLLP framed or batch text, in
// stream order.
func (c *Codec) DecodeStream(ctx context.Context, r io.Reader) <-chan *stream.MessageResult {
	return c.streamProcessor().Process(ctx, r)
}

// DecodeStreamParallel is like DecodeStream but checks messages on several
// workers.
func (c *Codec) DecodeStreamParallel(ctx context.Context, r io.Reader) <-chan *stream.MessageResult {
	return c.streamProcessor().ProcessParallel(ctx, r)
}

func (c *Codec) streamProcessor() *stream.Processor {
	return stream.NewProcessor(c.Check).
		WithWorkerCount(c.options.Workers).
		WithMaxPayload(c.options.MaxPayload)
}

// Registry returns the frozen registry.
func (c *Codec) Registry() *registry.Registry {
	return c.reg
}

// Metrics returns the codec's metrics.
func (c *Codec) Metrics() *hl7v2.Metrics {
	return c.metrics
}

// Options returns the codec's options.
func (c *Codec) Options() *hl7v2.Options {
	return c.options
}
