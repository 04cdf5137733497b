package snapshot

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func sampleSnapshot() SnapshotV1 {
	return SnapshotV1{
		Header: Header{Version: Version, GameID: "test", Tick: 420},
		Tuning: TuningV1{TickSpeed: 2, MapSize: 1, Seed: "8667715887436237", SnapshotEveryTicks: 100, ClearRequestFailureEvery: 200, InventoryUpdateEvery: 16},
		RNG:    "1234567812345678",
		Map: MapV1{Cols: 2, Rows: 1, Tiles: []TileV1{
			{Owner: -1, Height: 3},
			{Paths: 5, Owner: 0, Object: 4, ObjIndex: 1, Serf: 1, IdleSerf: true},
		}},
		Players: []PlayerV1{{Index: 0, Name: "red", FlagPrio: []int{1, 2}, InventoryPrio: []int{2, 1}, ToolPrio: []int{10}, KnightMorale: 4096,
			InitialStock: map[string]int{"plank": 3}}},
		Flags: []FlagV1{{
			Index: 1, Pos: 1, PathCon: 5,
			Length:      []int{0, 0, 2, 0, 0, 0},
			Slots:       make([]SlotV1, 8),
			OtherEndDir: make([]int, 6),
			OtherEnd:    make([]uint32, 6),
			SearchDir:   -1,
		}},
		Serfs: []SerfV1{{Index: 1, Player: 0, Type: "transporter", State: "transporting", Pos: 1, Counter: 12,
			Payload: json.RawMessage(`{"Dir":2,"Waiting":false,"WaitCounter":0,"Res":-1,"Dest":0,"Surplus":0}`)}},
		Inventories: []InventoryV1{{Index: 1, Flag: 1, Building: 1, Resources: []int{1, 2, 3}, OutQueue: []QueuedV1{{Res: -1}, {Res: -1}}}},
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "420.snap.zst")
	in := sampleSnapshot()
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h != in.Header {
		t.Fatalf("header mismatch: %+v", h)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.RNG != in.RNG || out.Map.Tiles[1] != in.Map.Tiles[1] || string(out.Serfs[0].Payload) != string(in.Serfs[0].Payload) {
		t.Fatalf("content mismatch: %+v", out)
	}
}

func TestTextValidatesAndRoundTrips(t *testing.T) {
	in := sampleSnapshot()
	raw, err := MarshalText(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := Validate(raw); err != nil {
		t.Fatalf("validate: %v", err)
	}
	out, err := UnmarshalText(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(out.Flags, in.Flags) || !reflect.DeepEqual(out.Players, in.Players) {
		t.Fatalf("text round trip changed content")
	}

	path := filepath.Join(t.TempDir(), "420.json")
	if err := WriteText(path, in); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if _, err := ReadText(path); err != nil {
		t.Fatalf("read text: %v", err)
	}
}

func TestTextRejectsBadRNG(t *testing.T) {
	in := sampleSnapshot()
	in.RNG = "0000"
	raw, err := MarshalText(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := Validate(raw); err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestTextRejectsShortFlagArrays(t *testing.T) {
	in := sampleSnapshot()
	in.Flags[0].Length = []int{1}
	raw, _ := MarshalText(in)
	if _, err := UnmarshalText(raw); err == nil {
		t.Fatalf("expected error for truncated length array")
	}
}
