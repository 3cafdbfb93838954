// Package v251 registers the HL7 v2.5.1 segment schemas and message structures.
package v251

import (
	"github.com/gofhir/hl7v2/pkg/registry"
	s "github.com/gofhir/hl7v2/pkg/structure"
)

// Version is the HL7 version this package registers.
const Version = "2.5.1"

// Plugin installs v2.5.1 into a registry.
type Plugin struct{}

// New returns the v2.5.1 plugin.
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

// Structures returns the v2.5.1 message structures in registration order.
func Structures() []Message {
	adt := ADTA01()
	rde := RDEO11()
	rds := RDSO13()
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
		{"RDE^O11", rde},
		{"RDS^O01", rds},
		{"RDS^O13", rds},
		{"ORR^O02", ORRO02()},
		{"RRE^O12", RREO12()},
	}
}

// ACK is the general acknowledgment.
func ACK() *s.Structure {
	return s.New("ACK", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Many(s.Seg("SFT")),
		s.Req(s.Seg("MSA")),
		s.Many(s.Seg("ERR")),
	)
}

// ADTA01 is the admit/visit notification, shared by A04, A05 and A08.
func ADTA01() *s.Structure {
	return s.New("ADT_A01", s.Advisory,
		s.Req(s.Seg("MSH")),
		s.Many(s.Seg("SFT")),
		s.Req(s.Seg("EVN")),
		s.Req(s.Seg("PID")),
		s.Seg("PD1"),
		s.Many(s.Seg("ROL")),
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
		)),
		s.Many(s.Seg("GT1")),
		s.Many(s.Group("INSURANCE",
			s.Req(s.Seg("IN1")),
			s.Seg("IN2"),
			s.Many(s.Seg("IN3")),
		)),
		s.Seg("ACC"),
		s.Seg("UB1"),
		s.Seg("UB2"),
		s.Seg("PDA"),
	)
}

// ADTA03 is the discharge event.
func ADTA03() *s.Structure {
	return s.New("ADT_A03", s.Advisory,
		s.Req(s.Seg("MSH")),
		s.Many(s.Seg("SFT")),
		s.Req(s.Seg("EVN")),
		s.Req(s.Seg("PID")),
		s.Seg("PD1"),
		s.Many(s.Seg("ROL")),
		s.Many(s.Seg("NK1")),
		s.Req(s.Seg("PV1")),
		s.Seg("PV2"),
		s.Many(s.Seg("DB1")),
		s.Many(s.Seg("AL1")),
		s.Many(s.Seg("DG1")),
		s.Seg("DRG"),
		s.Many(s.Group("PROCEDURE",
			s.Req(s.Seg("PR1")),
		)),
		s.Many(s.Seg("OBX")),
		s.Many(s.Seg("GT1")),
		s.Seg("PDA"),
	)
}

// RDEO11 is the pharmacy/treatment encoded order. EVN is accepted after
// the header and RXR is optional.
func RDEO11() *s.Structure {
	return s.New("RDE_O11", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Seg("EVN"),
		s.Many(s.Seg("SFT")),
		s.Many(s.Seg("NTE")),
		patient(),
		s.Req(s.Many(s.Group("ORDER",
			s.Req(s.Seg("ORC")),
			s.Many(s.Group("TIMING",
				s.Req(s.Seg("TQ1")),
				s.Many(s.Seg("TQ2")),
			)),
			s.Seg("RXO"),
			s.Req(s.Seg("RXE")),
			s.Many(s.Seg("NTE")),
			s.Many(s.Seg("RXR")),
			s.Many(s.Seg("RXC")),
			s.Many(s.Group("OBSERVATION",
				s.Req(s.Seg("OBX")),
				s.Many(s.Seg("NTE")),
			)),
			s.Many(s.Seg("FT1")),
			s.Seg("BLG"),
			s.Many(s.Seg("CTI")),
		))),
	)
}

// RDSO13 is the pharmacy/treatment dispense.
func RDSO13() *s.Structure {
	return s.New("RDS_O13", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Seg("EVN"),
		s.Many(s.Seg("SFT")),
		s.Many(s.Seg("NTE")),
		patient(),
		s.Req(s.Many(s.Group("ORDER",
			s.Req(s.Seg("ORC")),
			s.Many(s.Group("TIMING",
				s.Req(s.Seg("TQ1")),
				s.Many(s.Seg("TQ2")),
			)),
			s.Seg("RXO"),
			s.Seg("RXE"),
			s.Req(s.Seg("RXD")),
			s.Many(s.Seg("NTE")),
			s.Many(s.Seg("RXR")),
			s.Many(s.Seg("RXC")),
			s.Many(s.Group("OBSERVATION",
				s.Req(s.Seg("OBX")),
				s.Many(s.Seg("NTE")),
			)),
			s.Many(s.Seg("FT1")),
		))),
	)
}

// ORRO02 is the pharmacy order response.
func ORRO02() *s.Structure {
	return s.New("ORR_O02", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Req(s.Seg("MSA")),
		s.Many(s.Seg("ERR")),
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

// RREO12 is the pharmacy/treatment encoded order acknowledgment.
func RREO12() *s.Structure {
	return s.New("RRE_O12", s.Strict,
		s.Req(s.Seg("MSH")),
		s.Req(s.Seg("MSA")),
		s.Many(s.Seg("ERR")),
		s.Many(s.Seg("SFT")),
		s.Many(s.Seg("NTE")),
		s.Group("RESPONSE",
			s.Group("PATIENT",
				s.Req(s.Seg("PID")),
				s.Many(s.Seg("NTE")),
			),
			s.Req(s.Many(s.Group("ORDER",
				s.Req(s.Seg("ORC")),
				s.Many(s.Group("TIMING",
					s.Req(s.Seg("TQ1")),
					s.Many(s.Seg("TQ2")),
				)),
				s.Seg("RXE"),
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
