// Package v23 registers the HL7 v2.3 segment schemas and message structures.
package v23

import (
	"github.com/gofhir/hl7v2/pkg/registry"
	s "github.com/gofhir/hl7v2/pkg/structure"
)

// Version is the HL7 version this package registers.
const Version = "2.3"

// Plugin installs v2.3 into a registry.
type Plugin struct{}

// New returns the v2.3 plugin.
func New() Plugin { return Plugin{} }

// Standard implements registry.Plugin.
func (Plugin) Standard() string { return registry.StandardHL7v2 }

// Version implements registry.Plugin.
func (Plugin) Version() string { return Version }

// Register adds the version-wide segment factories and one entry per
// supported message type.
func (p Plugin) Register(r *registry.Registry) error {
	key := registry.Key{Standard: p.Standard(), Version: Version}
	if err := r.Register(key, registry.Entry{Segments: Segments()}); err != nil {
		return err
	}
	for _, m := range Structures() {
		key.MessageType = m.Type
		if err := r.Register(key, registry.Entry{Structure: m.Structure}); err != nil {
			return err
		}
	}
	return nil
}

// Message pairs a message type key with its structure.
type Message struct {
	Type      string
	Structure *s.Structure
}

// Structures returns the v2.3 message structures in registration order.
// ADT is checked under the advisory ordering policy, everything else strictly.
func Structures() []Message {
	adt := ADTA01()
	rde := RDEO01()
	return []Message{
		{"ACK", ACK()},
		{"ADT", adt},
		{"ADT^A01", adt},
		{"ADT^A04", adt},
		{"ADT^A05", adt},
		{"ADT^A08", adt},
		{"ADT^A03", ADTA03()},
		{"RDE", rde},
		{"RDE^O01", rde},
		{"RDS^O01", RDSO01()},
		{"ORR^O02", ORRO02()},
	}
}

// ACK is the general acknowledgment.
func ACK() *s.Structure {
	return s.New("ACK", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Req(s.Seg("MSA")),
		s.Seg("ERR"),
	)
}

// ADTA01 is the admit/visit notification, shared by A04, A05 and A08.
func ADTA01() *s.Structure {
	return s.New("ADT_A01", s.Advisory,
		s.Req(s.Seg("MSH")),
		s.Req(s.Seg("EVN")),
		s.Req(s.Seg("PID")),
		s.Seg("PD1"),
		s.Many(s.Seg("NK1")),
		s.Req(s.Seg("PV1")),
		s.Seg("PV2"),
		s.Many(s.Seg("DB1")),
		s.Many(s.Seg("OBX")),
		s.Many(s.Seg("AL1")),
		s.Many(s.Seg("DG1")),
		s.Seg("DRG"),
		s.Many(s.Group("PROCEDURE",
			s.Req(s.Seg("PR1")),
			s.Many(s.Seg("ROL")),
		)),
		s.Many(s.Seg("GT1")),
		s.Many(s.Group("INSURANCE",
			s.Req(s.Seg("IN1")),
			s.Seg("IN2"),
			s.Seg("IN3"),
		)),
		s.Seg("ACC"),
		s.Seg("UB1"),
		s.Seg("UB2"),
	)
}

// ADTA03 is the discharge event.
func ADTA03() *s.Structure {
	return s.New("ADT_A03", s.Advisory,
		s.Req(s.Seg("MSH")),
		s.Req(s.Seg("EVN")),
		s.Req(s.Seg("PID")),
		s.Seg("PD1"),
		s.Req(s.Seg("PV1")),
		s.Seg("PV2"),
		s.Many(s.Seg("DG1")),
		s.Seg("DRG"),
		s.Many(s.Group("PROCEDURE",
			s.Req(s.Seg("PR1")),
			s.Many(s.Seg("ROL")),
		)),
		s.Many(s.Seg("OBX")),
	)
}

// RDEO01 is the pharmacy/treatment encoded order. EVN is accepted after
// the header and RXR is optional.
func RDEO01() *s.Structure {
	return s.New("RDE_O01", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Seg("EVN"),
		s.Many(s.Seg("NTE")),
		patient(),
		s.Req(s.Many(s.Group("ORDER",
			s.Req(s.Seg("ORC")),
			s.Seg("RXO"),
			s.Req(s.Seg("RXE")),
			s.Many(s.Seg("NTE")),
			s.Many(s.Seg("RXR")),
			s.Many(s.Seg("RXC")),
			s.Many(s.Group("OBSERVATION",
				s.Req(s.Seg("OBX")),
				s.Many(s.Seg("NTE")),
			)),
			s.Many(s.Seg("CTI")),
		))),
	)
}

// RDSO01 is the pharmacy/treatment dispense.
func RDSO01() *s.Structure {
	return s.New("RDS_O01", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Seg("EVN"),
		s.Many(s.Seg("NTE")),
		patient(),
		s.Req(s.Many(s.Group("ORDER",
			s.Req(s.Seg("ORC")),
			s.Seg("RXO"),
			s.Seg("RXE"),
			s.Req(s.Seg("RXD")),
			s.Many(s.Seg("RXR")),
			s.Many(s.Seg("RXC")),
			s.Many(s.Group("OBSERVATION",
				s.Req(s.Seg("OBX")),
				s.Many(s.Seg("NTE")),
			)),
		))),
	)
}

// ORRO02 is the pharmacy order response.
func ORRO02() *s.Structure {
	return s.New("ORR_O02", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Req(s.Seg("MSA")),
		s.Seg("ERR"),
		s.Many(s.Seg("NTE")),
		s.Group("RESPONSE",
			s.Group("PATIENT",
				s.Req(s.Seg("PID")),
				s.Many(s.Seg("NTE")),
			),
			s.Req(s.Many(s.Group("ORDER",
				s.Req(s.Seg("ORC")),
				s.Seg("RXO"),
				s.Seg("RXE"),
				s.Many(s.Seg("NTE")),
				s.Many(s.Seg("RXR")),
				s.Many(s.Seg("RXC")),
			))),
		),
	)
}

func patient() s.Node {
	return s.Group("PATIENT",
		s.Req(s.Seg("PID")),
		s.Seg("PD1"),
		s.Many(s.Seg("NTE")),
		s.Group("PATIENT_VISIT",
			s.Req(s.Seg("PV1")),
			s.Seg("PV2"),
		),
		s.Many(s.Group("INSURANCE",
			s.Req(s.Seg("IN1")),
			s.Seg("IN2"),
			s.Seg("IN3"),
		)),
		s.Seg("GT1"),
		s.Many(s.Seg("AL1")),
	)
}
