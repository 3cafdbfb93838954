package hl7v2

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofhir/hl7v2/pkg/issue"
)

// Metrics counts codec activity with atomics. All methods are safe for
// concurrent use. The pkg/metrics collector exports it to Prometheus.
type Metrics struct {
	parses        atomic.Uint64
	parseFailures atomic.Uint64
	bytes         atomic.Uint64

	validations atomic.Uint64
	valid       atomic.Uint64
	timing      durations

	encoded atomic.Uint64
	acks    atomic.Uint64

	bySeverity [3]atomic.Uint64 // severityError, severityWarning, severityInfo

	types sync.Map // message type -> *typeCounters
}

const (
	severityError = iota
	severityWarning
	severityInfo
)

type typeCounters struct {
	messages atomic.Uint64
	invalid  atomic.Uint64
	issues   atomic.Uint64
}

// durations tracks the sum and extremes of observed durations in
// nanoseconds. min holds MaxUint64 until the first observation.
type durations struct {
	sum atomic.Uint64
	min atomic.Uint64
	max atomic.Uint64
}

func (d *durations) reset() {
	d.sum.Store(0)
	d.min.Store(math.MaxUint64)
	d.max.Store(0)
}

func (d *durations) observe(v time.Duration) {
	ns := uint64(max(v, 0))
	d.sum.Add(ns)
	for cur := d.min.Load(); ns < cur && !d.min.CompareAndSwap(cur, ns); cur = d.min.Load() {
	}
	for cur := d.max.Load(); ns > cur && !d.max.CompareAndSwap(cur, ns); cur = d.max.Load() {
	}
}

func (d *durations) minimum() time.Duration {
	v := d.min.Load()
	if v == math.MaxUint64 {
		return 0
	}
	return time.Duration(v) //nolint:gosec // observed durations fit in int64
}

func (d *durations) maximum() time.Duration {
	return time.Duration(d.max.Load()) //nolint:gosec // observed durations fit in int64
}

func (d *durations) average(n uint64) time.Duration {
	if n == 0 {
		return 0
	}
	return time.Duration(d.sum.Load() / n) //nolint:gosec // observed durations fit in int64
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.timing.reset()
	return m
}

// RecordParse records one parse attempt over n input bytes.
func (m *Metrics) RecordParse(n int, ok bool) {
	m.parses.Add(1)
	m.bytes.Add(uint64(max(n, 0)))
	if !ok {
		m.parseFailures.Add(1)
	}
}

// RecordValidation records a validated message. An empty messageType is
// counted as "unknown".
func (m *Metrics) RecordValidation(messageType string, duration time.Duration, valid bool, issues int) {
	m.validations.Add(1)
	if valid {
		m.valid.Add(1)
	}
	m.timing.observe(duration)

	if messageType == "" {
		messageType = "unknown"
	}
	tc := m.counters(messageType)
	tc.messages.Add(1)
	if !valid {
		tc.invalid.Add(1)
	}
	tc.issues.Add(uint64(max(issues, 0)))
}

// RecordEncode records a serialized or framed message.
func (m *Metrics) RecordEncode() { m.encoded.Add(1) }

// RecordACK records a built acknowledgment.
func (m *Metrics) RecordACK() { m.acks.Add(1) }

// RecordIssue counts one issue. Fatal issues count as errors.
func (m *Metrics) RecordIssue(severity issue.Severity) {
	switch severity {
	case issue.SeverityError, issue.SeverityFatal:
		m.bySeverity[severityError].Add(1)
	case issue.SeverityWarning:
		m.bySeverity[severityWarning].Add(1)
	case issue.SeverityInformation:
		m.bySeverity[severityInfo].Add(1)
	}
}

func (m *Metrics) counters(messageType string) *typeCounters {
	if v, ok := m.types.Load(messageType); ok {
		return v.(*typeCounters)
	}
	v, _ := m.types.LoadOrStore(messageType, &typeCounters{})
	return v.(*typeCounters)
}

// ParsedTotal returns the number of parse attempts.
func (m *Metrics) ParsedTotal() uint64 { return m.parses.Load() }

// ParseFailures returns the number of inputs the parser rejected.
func (m *Metrics) ParseFailures() uint64 { return m.parseFailures.Load() }

// BytesTotal returns the number of input bytes parsed.
func (m *Metrics) BytesTotal() uint64 { return m.bytes.Load() }

// ValidationsTotal returns the number of validated messages.
func (m *Metrics) ValidationsTotal() uint64 { return m.validations.Load() }

// ValidationsValid returns the number of messages validated without errors.
func (m *Metrics) ValidationsValid() uint64 { return m.valid.Load() }

// ValidationRate returns the share of valid messages, 0 before any
// validation.
func (m *Metrics) ValidationRate() float64 {
	n := m.validations.Load()
	if n == 0 {
		return 0
	}
	return float64(m.valid.Load()) / float64(n)
}

// AverageValidationTime returns the mean validation duration.
func (m *Metrics) AverageValidationTime() time.Duration {
	return m.timing.average(m.validations.Load())
}

// MinValidationTime returns the shortest validation duration.
func (m *Metrics) MinValidationTime() time.Duration { return m.timing.minimum() }

// MaxValidationTime returns the longest validation duration.
func (m *Metrics) MaxValidationTime() time.Duration { return m.timing.maximum() }

// EncodedTotal returns the number of serialized messages.
func (m *Metrics) EncodedTotal() uint64 { return m.encoded.Load() }

// ACKsTotal returns the number of built acknowledgments.
func (m *Metrics) ACKsTotal() uint64 { return m.acks.Load() }

// ErrorsTotal returns the number of error and fatal issues.
func (m *Metrics) ErrorsTotal() uint64 { return m.bySeverity[severityError].Load() }

// WarningsTotal returns the number of warnings.
func (m *Metrics) WarningsTotal() uint64 { return m.bySeverity[severityWarning].Load() }

// InfosTotal returns the number of informational issues.
func (m *Metrics) InfosTotal() uint64 { return m.bySeverity[severityInfo].Load() }

// TypeStats holds the counters of one message type.
type TypeStats struct {
	MessageType string `json:"message_type"`
	Messages    uint64 `json:"messages"`
	Invalid     uint64 `json:"invalid"`
	Issues      uint64 `json:"issues"`
}

// TypeStats returns the counters of a message type.
func (m *Metrics) TypeStats(messageType string) (TypeStats, bool) {
	v, ok := m.types.Load(messageType)
	if !ok {
		return TypeStats{MessageType: messageType}, false
	}
	return v.(*typeCounters).stats(messageType), true
}

// AllTypeStats returns the counters of every message type seen, sorted by
// message type.
func (m *Metrics) AllTypeStats() []TypeStats {
	var all []TypeStats
	m.types.Range(func(k, v any) bool {
		all = append(all, v.(*typeCounters).stats(k.(string)))
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].MessageType < all[j].MessageType })
	return all
}

func (tc *typeCounters) stats(messageType string) TypeStats {
	return TypeStats{
		MessageType: messageType,
		Messages:    tc.messages.Load(),
		Invalid:     tc.invalid.Load(),
		Issues:      tc.issues.Load(),
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	ParsedTotal   uint64 `json:"parsed_total"`
	ParseFailures uint64 `json:"parse_failures"`
	BytesTotal    uint64 `json:"bytes_total"`

	ValidationsTotal uint64  `json:"validations_total"`
	ValidationsValid uint64  `json:"validations_valid"`
	ValidationRate   float64 `json:"validation_rate"`

	AvgValidationTimeNs uint64 `json:"avg_validation_time_ns"`
	MinValidationTimeNs uint64 `json:"min_validation_time_ns"`
	MaxValidationTimeNs uint64 `json:"max_validation_time_ns"`

	EncodedTotal uint64 `json:"encoded_total"`
	ACKsTotal    uint64 `json:"acks_total"`

	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`
	InfosTotal    uint64 `json:"infos_total"`

	Types []TypeStats `json:"types,omitempty"`
}

// Snapshot copies the counters. Counters keep moving while it runs, so
// related values may be off by in-flight operations.
func (m *Metrics) Snapshot() Snapshot {
	n := m.validations.Load()
	return Snapshot{
		Timestamp:           time.Now(),
		ParsedTotal:         m.ParsedTotal(),
		ParseFailures:       m.ParseFailures(),
		BytesTotal:          m.BytesTotal(),
		ValidationsTotal:    n,
		ValidationsValid:    m.ValidationsValid(),
		ValidationRate:      m.ValidationRate(),
		AvgValidationTimeNs: uint64(m.timing.average(n)),
		MinValidationTimeNs: uint64(m.MinValidationTime()),
		MaxValidationTimeNs: uint64(m.MaxValidationTime()),
		EncodedTotal:        m.EncodedTotal(),
		ACKsTotal:           m.ACKsTotal(),
		ErrorsTotal:         m.ErrorsTotal(),
		WarningsTotal:       m.WarningsTotal(),
		InfosTotal:          m.InfosTotal(),
		Types:               m.AllTypeStats(),
	}
}

// Export returns the scalar counters as a flat map keyed by their JSON
// names.
func (m *Metrics) Export() map[string]any {
	s := m.Snapshot()
	return map[string]any{
		"parsed_total":           s.ParsedTotal,
		"parse_failures":         s.ParseFailures,
		"bytes_total":            s.BytesTotal,
		"validations_total":      s.ValidationsTotal,
		"validations_valid":      s.ValidationsValid,
		"validation_rate":        s.ValidationRate,
		"avg_validation_time_ns": s.AvgValidationTimeNs,
		"min_validation_time_ns": s.MinValidationTimeNs,
		"max_validation_time_ns": s.MaxValidationTimeNs,
		"encoded_total":          s.EncodedTotal,
		"acks_total":             s.ACKsTotal,
		"errors_total":           s.ErrorsTotal,
		"warnings_total":         s.WarningsTotal,
		"infos_total":            s.InfosTotal,
	}
}

// Reset zeroes every counter and forgets all message types.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Uint64{
		&m.parses, &m.parseFailures, &m.bytes,
		&m.validations, &m.valid,
		&m.encoded, &m.acks,
	} {
		c.Store(0)
	}
	for i := range m.bySeverity {
		m.bySeverity[i].Store(0)
	}
	m.timing.reset()
	m.types.Clear()
}
