package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelcraft.ai/botcore/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundTrip marshals a Go message so the schema sees exactly what goes on the wire.
func roundTrip(t *testing.T, msg any) any {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return v
}

func TestSchemas_ClientMessages(t *testing.T) {
	cases := []struct {
		schema string
		msg    any
	}{
		{"hello.schema.json", protocol.HelloMsg{
			Type: protocol.TypeHello, ProtocolVersion: protocol.Version, AgentName: "bot1",
			SessionID: "6f1c", Capabilities: protocol.HelloCapabilities{Ack: true, MaxQueue: 8},
		}},
		{"destroy.schema.json", protocol.DestroyMsg{
			Type: protocol.TypeDestroy, ProtocolVersion: protocol.Version, Action: protocol.DestroyStart,
			Pos: [3]int{1, -2, 3}, Side: "UP", Seq: 4,
		}},
		{"place.schema.json", protocol.PlaceMsg{
			Type: protocol.TypePlace, ProtocolVersion: protocol.Version, Hand: "MAIN_HAND",
			Pos: [3]int{0, 1, 0}, Side: "NORTH", Seq: 9,
		}},
		{"hotbar_select.schema.json", protocol.HotbarSelectMsg{Type: protocol.TypeHotbarSelect, ProtocolVersion: protocol.Version, Slot: 3}},
		{"stance.schema.json", protocol.StanceMsg{Type: protocol.TypeStance, ProtocolVersion: protocol.Version, Sneak: true}},
		{"look.schema.json", protocol.LookMsg{Type: protocol.TypeLook, ProtocolVersion: protocol.Version, Yaw: -45, Pitch: 30}},
	}
	for _, tc := range cases {
		s := compile(t, tc.schema)
		if err := s.Validate(roundTrip(t, tc.msg)); err != nil {
			t.Fatalf("%s: %v", tc.schema, err)
		}
	}
}

func TestSchemas_ServerMessages(t *testing.T) {
	cases := []struct {
		schema string
		msg    any
	}{
		{"welcome.schema.json", protocol.WelcomeMsg{
			Type: protocol.TypeWelcome, ProtocolVersion: protocol.Version, AgentID: "A1",
			WorldParams: protocol.WorldParams{TickRateHz: 20},
			Catalogs: protocol.CatalogDigests{
				BlockPalette: protocol.PaletteDigest{Digest: "deadbeef", Count: 11},
				ItemPalette:  protocol.PaletteDigest{Digest: "deadbeef", Count: 17},
			},
			Eye:    [3]float64{0.5, 65.62, 0.5},
			Hotbar: []string{"IRON_PICKAXE", "STONE"},
		}},
		{"ack.schema.json", protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, Seq: 4, Accepted: false, Code: protocol.ErrOutOfReach}},
		{"block_update.schema.json", protocol.BlockUpdateMsg{Type: protocol.TypeBlockUpdate, ProtocolVersion: protocol.Version, Tick: 12, Pos: [3]int{1, 2, 3}, Block: 0}},
		{"entity.schema.json", protocol.EntityMsg{Type: protocol.TypeEntitySpawn, ProtocolVersion: protocol.Version, ID: "e1", Item: "STONE", Pos: [3]float64{1.5, 2.2, 3.5}}},
		{"entity.schema.json", protocol.EntityRemoveMsg{Type: protocol.TypeEntityRemove, ProtocolVersion: protocol.Version, ID: "e1"}},
		{"voxels.schema.json", protocol.VoxelsMsg{
			Type: protocol.TypeVoxels, ProtocolVersion: protocol.Version, Tick: 3,
			Center: [3]int{0, 64, 0}, Radius: 1, Encoding: protocol.VoxelsRLE, Data: "AQE=",
		}},
		{"voxels.schema.json", protocol.VoxelsMsg{
			Type: protocol.TypeVoxels, ProtocolVersion: protocol.Version, Tick: 4,
			Center: [3]int{0, 64, 0}, Radius: 1, Encoding: protocol.VoxelsDelta,
			Ops: []protocol.VoxelDeltaOp{{D: [3]int{0, -1, 0}, Block: 0}},
		}},
	}
	for _, tc := range cases {
		s := compile(t, tc.schema)
		if err := s.Validate(roundTrip(t, tc.msg)); err != nil {
			t.Fatalf("%s: %v", tc.schema, err)
		}
	}
}

func TestSchemas_RejectBadDestroy(t *testing.T) {
	s := compile(t, "destroy.schema.json")
	var v any
	_ = json.Unmarshal([]byte(`{"type":"DESTROY","protocol_version":"1.0","action":"SMASH","pos":[0,0,0],"side":"UP","seq":1}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("expected unknown action rejected")
	}
}
