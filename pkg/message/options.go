package message

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/pkg/structure"
)

// config holds parse, build and validation settings.
type config struct {
	standard     string
	version      string
	policy       *structure.Policy
	policies     map[string]structure.Policy
	locations    bool
	now          func() time.Time
	controlID    func() string
	processingID string
}

func defaultConfig() config {
	return config{
		standard:     registry.StandardHL7v2,
		locations:    true,
		now:          time.Now,
		controlID:    newControlID,
		processingID: "P",
	}
}

// newControlID returns 20 upper-case hex characters of a random UUID, the
// longest control id every version's MSH-10 accepts.
func newControlID() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:10]))
}

func newConfig(opts []Option) config {
	c := defaultConfig()
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Option configures parsing, building and validation.
type Option func(*config)

// WithStandard sets the standard family used to build registry keys.
func WithStandard(standard string) Option {
	return func(c *config) { c.standard = standard }
}

// WithVersion sets the version used when MSH-12 is empty, and the version
// of built messages.
func WithVersion(version string) Option {
	return func(c *config) { c.version = version }
}

// WithOrderingPolicy overrides the ordering policy of every structure.
func WithOrderingPolicy(p structure.Policy) Option {
	return func(c *config) { c.policy = &p }
}

// WithTypePolicy overrides the ordering policy for one message code
// ("ADT") or type ("ADT^A01"). The more specific entry wins.
func WithTypePolicy(messageType string, p structure.Policy) Option {
	return func(c *config) {
		if c.policies == nil {
			c.policies = make(map[string]structure.Policy)
		}
		c.policies[messageType] = p
	}
}

// WithLocations enables or disables line/column enrichment of issues for
// parsed messages.
func WithLocations(on bool) Option {
	return func(c *config) { c.locations = on }
}

// WithClock sets the clock used for MSH-7 and other build-time stamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithControlID sets the generator for MSH-10 of built messages.
func WithControlID(next func() string) Option {
	return func(c *config) { c.controlID = next }
}

// WithProcessingID sets MSH-11 of built messages (P, D or T).
func WithProcessingID(id string) Option {
	return func(c *config) { c.processingID = id }
}

// policyFor returns the ordering policy override for a message type.
func (c *config) policyFor(messageType string) (structure.Policy, bool) {
	if p, ok := c.policies[messageType]; ok {
		return p, true
	}
	if code, _, ok := strings.Cut(messageType, "^"); ok {
		if p, ok := c.policies[code]; ok {
			return p, true
		}
	}
	if c.policy != nil {
		return *c.policy, true
	}
	return structure.Strict, false
}
