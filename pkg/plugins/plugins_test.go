package plugins

import (
	"errors"
	"reflect"
	"testing"

	hlerrors "github.com/gofhir/hl7v2/pkg/errors"
	"github.com/gofhir/hl7v2/pkg/plugins/v23"
	"github.com/gofhir/hl7v2/pkg/plugins/v251"
	"github.com/gofhir/hl7v2/pkg/registry"
	"github.com/gofhir/hl7v2/pkg/segment"
	"github.com/gofhir/hl7v2/pkg/structure"
)

func key(version, msgType string) registry.Key {
	return registry.Key{Standard: registry.StandardHL7v2, Version: version, MessageType: msgType}
}

func TestDefault(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if !r.Frozen() {
		t.Error("registry not frozen")
	}
	if got := r.Versions(registry.StandardHL7v2); !reflect.DeepEqual(got, []string{"2.3", "2.5.1"}) {
		t.Errorf("Versions() = %v", got)
	}
	err = r.Register(key("2.6", ""), registry.Entry{})
	if !errors.Is(err, hlerrors.ErrRegistryFrozen) {
		t.Errorf("Register after Default = %v", err)
	}
}

func TestDefaultTwice(t *testing.T) {
	r := registry.New()
	if err := r.Install(All()...); err != nil {
		t.Fatal(err)
	}
	err := r.Install(v23.New())
	if !errors.Is(err, hlerrors.ErrDuplicatePlugin) {
		t.Errorf("second install = %v; want ErrDuplicatePlugin", err)
	}
}

func TestStructureResolution(t *testing.T) {
	r := MustDefault()
	tests := []struct {
		version string
		msgType string
		want    string
		policy  structure.Policy
	}{
		{"2.3", "ADT^A01", "ADT_A01", structure.Advisory},
		{"2.3", "ADT^A04", "ADT_A01", structure.Advisory},
		{"2.3", "ADT^A31", "ADT_A01", structure.Advisory},
		{"2.3", "ADT^A03", "ADT_A03", structure.Advisory},
		{"2.3", "RDE^O01", "RDE_O01", structure.Strict},
		{"2.3", "RDS^O01", "RDS_O01", structure.Strict},
		{"2.3", "ORR^O02", "ORR_O02", structure.Strict},
		{"2.3", "ACK^O01", "ACK", structure.Strict},
		{"2.5.1", "RDE^O01", "RDE_O11", structure.Strict},
		{"2.5.1", "RDE^O11", "RDE_O11", structure.Strict},
		{"2.5.1", "RDS^O13", "RDS_O13", structure.Strict},
		{"2.5.1", "RRE^O12", "RRE_O12", structure.Strict},
		{"2.5.1", "ACK", "ACK", structure.Strict},
	}
	for _, tt := range tests {
		t.Run(tt.version+" "+tt.msgType, func(t *testing.T) {
			s, ok := r.Structure(key(tt.version, tt.msgType))
			if !ok {
				t.Fatal("no structure")
			}
			if s.ID != tt.want || s.Policy != tt.policy {
				t.Errorf("got %s/%s; want %s/%s", s.ID, s.Policy, tt.want, tt.policy)
			}
		})
	}
}

func TestUnknownTypeFallsBackToSegments(t *testing.T) {
	r := MustDefault()
	k := key("2.5.1", "ZZZ^Z01")
	if _, ok := r.Structure(k); ok {
		t.Error("unexpected structure for ZZZ^Z01")
	}
	if _, ok := r.NewSegment(k, "PID").(*segment.PID); !ok {
		t.Error("PID did not resolve through the version default")
	}
	if _, ok := r.NewSegment(k, "ZPI").(*segment.Generic); !ok {
		t.Error("ZPI should be generic")
	}
}

func TestSkeletonsCheckClean(t *testing.T) {
	var all []v23.Message
	all = append(all, v23.Structures()...)
	for _, m := range v251.Structures() {
		all = append(all, v23.Message{Type: m.Type, Structure: m.Structure})
	}
	for _, m := range all {
		if issues := m.Structure.Check(m.Structure.Skeleton()); len(issues) != 0 {
			t.Errorf("%s: skeleton %v reports %v", m.Structure.ID, m.Structure.Skeleton(), issues)
		}
	}
}

func TestSegmentFactories(t *testing.T) {
	for version, segs := range map[string]map[string]segment.Factory{
		v23.Version:  v23.Segments(),
		v251.Version: v251.Segments(),
	} {
		for id, f := range segs {
			seg := f()
			if seg.ID() != id {
				t.Errorf("%s: factory for %s built %s", version, id, seg.ID())
			}
			schematic, ok := seg.(interface{ Schema() *segment.Schema })
			if !ok {
				t.Errorf("%s: %s (%T) carries no schema", version, id, seg)
				continue
			}
			if schematic.Schema().Len() == 0 {
				t.Errorf("%s: %s has no slots", version, id)
			}
		}
	}
}

func TestVersionsAreIndependent(t *testing.T) {
	if v23.PID == v251.PID {
		t.Fatal("PID schemas shared")
	}
	if v23.PID.Len() != 30 || v251.PID.Len() != 39 {
		t.Errorf("PID lengths = %d, %d", v23.PID.Len(), v251.PID.Len())
	}
	if v23.ERR.Len() != 1 || v251.ERR.Index("HL7 Error Code") != 3 {
		t.Error("ERR layouts not version specific")
	}
}

func TestPharmacyScenarioShape(t *testing.T) {
	r := MustDefault()
	for _, version := range []string{"2.3", "2.5.1"} {
		s, _ := r.Structure(key(version, "RDE^O01"))
		if issues := s.Check([]string{"MSH", "EVN", "PID", "ORC", "RXE"}); len(issues) != 0 {
			t.Errorf("%s: %v", version, issues)
		}
		if issues := s.Check([]string{"MSH", "PID", "ORC", "RXE", "RXR", "ORC", "RXE"}); len(issues) != 0 {
			t.Errorf("%s repeated orders: %v", version, issues)
		}
	}
}
