// Package metrics exports codec counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	hl7v2 "github.com/gofhir/hl7v2"
)

// DefaultNamespace prefixes every metric name when none is given.
const DefaultNamespace = "hl7v2"

// Collector reads an hl7v2.Metrics snapshot on every scrape. The codec keeps
// its own atomic counters, so nothing is recorded twice.
type Collector struct {
	source *hl7v2.Metrics

	parsed        *prometheus.Desc
	parseFailures *prometheus.Desc
	bytes         *prometheus.Desc
	validations   *prometheus.Desc
	valid         *prometheus.Desc
	validationAvg *prometheus.Desc
	validationMax *prometheus.Desc
	encoded       *prometheus.Desc
	acks          *prometheus.Desc
	issues        *prometheus.Desc
	typeMessages  *prometheus.Desc
	typeInvalid   *prometheus.Desc
	typeIssues    *prometheus.Desc
}

// NewCollector returns a collector over m.
func NewCollector(namespace string, m *hl7v2.Metrics) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}
	return &Collector{
		source:        m,
		parsed:        desc("parse", "attempts_total", "Parse attempts."),
		parseFailures: desc("parse", "failures_total", "Inputs that held no readable message."),
		bytes:         desc("parse", "bytes_total", "Bytes of input parsed."),
		validations:   desc("validation", "messages_total", "Messages validated."),
		valid:         desc("validation", "valid_total", "Messages validated without errors."),
		validationAvg: desc("validation", "duration_average_seconds", "Average validation time."),
		validationMax: desc("validation", "duration_max_seconds", "Longest validation time."),
		encoded:       desc("encode", "messages_total", "Messages serialized or framed."),
		acks:          desc("ack", "messages_total", "Acknowledgments built."),
		issues:        desc("validation", "issues_total", "Issues found by severity.", "severity"),
		typeMessages:  desc("type", "messages_total", "Messages validated per message type.", "message_type"),
		typeInvalid:   desc("type", "invalid_total", "Messages with errors per message type.", "message_type"),
		typeIssues:    desc("type", "issues_total", "Issues per message type.", "message_type"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.parsed, c.parseFailures, c.bytes, c.validations, c.valid,
		c.validationAvg, c.validationMax, c.encoded, c.acks, c.issues,
		c.typeMessages, c.typeInvalid, c.typeIssues,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	s := c.source.Snapshot()

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}

	counter(c.parsed, s.ParsedTotal)
	counter(c.parseFailures, s.ParseFailures)
	counter(c.bytes, s.BytesTotal)
	counter(c.validations, s.ValidationsTotal)
	counter(c.valid, s.ValidationsValid)
	gauge(c.validationAvg, float64(s.AvgValidationTimeNs)/1e9)
	gauge(c.validationMax, float64(s.MaxValidationTimeNs)/1e9)
	counter(c.encoded, s.EncodedTotal)
	counter(c.acks, s.ACKsTotal)
	counter(c.issues, s.ErrorsTotal, "error")
	counter(c.issues, s.WarningsTotal, "warning")
	counter(c.issues, s.InfosTotal, "information")

	for _, t := range s.Types {
		counter(c.typeMessages, t.Messages, t.MessageType)
		counter(c.typeInvalid, t.Invalid, t.MessageType)
		counter(c.typeIssues, t.Issues, t.MessageType)
	}
}

// Register adds a collector over m to reg.
func Register(reg prometheus.Registerer, namespace string, m *hl7v2.Metrics) error {
	return reg.Register(NewCollector(namespace, m))
}

// Handler serves the metrics of m on its own registry.
func Handler(namespace string, m *hl7v2.Metrics) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(namespace, m))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
