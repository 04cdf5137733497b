package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	GameID  string `json:"game_id"`
	Tick    uint32 `json:"tick"`
}

// SnapshotV1 is a complete save game. Object lists are in index order and
// carry their pool index, so references between objects survive a reload.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Tuning TuningV1 `json:"tuning"`

	// RNG is the generator state in seed string form.
	RNG                 string `json:"rng"`
	SearchID            uint16 `json:"search_id"`
	GoldTotal           int    `json:"gold_total"`
	LastInventoryUpdate uint32 `json:"last_inventory_update"`
	LastRequestClear    uint32 `json:"last_request_clear"`
	MapCursor           int    `json:"map_cursor"`

	Map         MapV1         `json:"map"`
	Players     []PlayerV1    `json:"players"`
	Flags       []FlagV1      `json:"flags"`
	Serfs       []SerfV1      `json:"serfs"`
	Buildings   []BuildingV1  `json:"buildings"`
	Inventories []InventoryV1 `json:"inventories"`
}

type TuningV1 struct {
	TickSpeed                int    `json:"tick_speed"`
	MapSize                  int    `json:"map_size"`
	Seed                     string `json:"seed"`
	SnapshotEveryTicks       int    `json:"snapshot_every_ticks"`
	ClearRequestFailureEvery int    `json:"clear_request_failure_every"`
	InventoryUpdateEvery     int    `json:"inventory_update_every"`
	LogStates                bool   `json:"log_states,omitempty"`
}

type MapV1 struct {
	Cols  int      `json:"cols"`
	Rows  int      `json:"rows"`
	Tiles []TileV1 `json:"tiles"`
}

// TileV1 keeps json keys short; a map has thousands of them.
type TileV1 struct {
	Paths    uint8  `json:"p"`
	Owner    int    `json:"o"`
	Height   uint8  `json:"h"`
	TypeUp   uint8  `json:"tu"`
	TypeDown uint8  `json:"td"`
	Object   uint8  `json:"ob"`
	ObjIndex uint32 `json:"oi"`
	Serf     uint32 `json:"s"`
	IdleSerf bool   `json:"i,omitempty"`
	Mineral  uint8  `json:"m"`
	Amount   uint8  `json:"a"`
}

type PlayerV1 struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Color int    `json:"color"`

	FlagPrio      []int `json:"flag_prio"`
	InventoryPrio []int `json:"inventory_prio"`
	ToolPrio      []int `json:"tool_prio"`

	BaseMorale    int    `json:"base_morale"`
	KnightMorale  int    `json:"knight_morale"`
	MilitaryScore int    `json:"military_score"`
	Castle        uint32 `json:"castle"`
	LastSpawn     uint32 `json:"last_spawn"`

	InitialSerfs   int            `json:"initial_serfs"`
	InitialKnights int            `json:"initial_knights"`
	InitialStock   map[string]int `json:"initial_stock,omitempty"`
}

type SlotV1 struct {
	Type int    `json:"type"`
	Dir  int    `json:"dir"`
	Dest uint32 `json:"dest"`
}

type FlagV1 struct {
	Index uint32 `json:"index"`
	Pos   uint32 `json:"pos"`

	PathCon     uint8    `json:"path_con"`
	EndPoint    uint8    `json:"end_point"`
	Transporter uint8    `json:"transporter"`
	Length      []int    `json:"length"`
	Slots       []SlotV1 `json:"slots"`
	OtherEndDir []int    `json:"other_end_dir"`
	OtherEnd    []uint32 `json:"other_end"`
	BldFlags    uint8    `json:"bld_flags"`
	BldFlags2   uint8    `json:"bld_flags2"`

	SearchNum uint16 `json:"search_num"`
	SearchDir int    `json:"search_dir"`
}

// SerfV1 wraps the state specific payload in an envelope: State names the
// payload type and Payload holds its JSON encoding.
type SerfV1 struct {
	Index     uint32          `json:"index"`
	Player    int             `json:"player"`
	Type      string          `json:"type"`
	State     string          `json:"state"`
	Pos       uint32          `json:"pos"`
	Counter   int             `json:"counter"`
	Animation int             `json:"animation"`
	Tick      uint32          `json:"tick"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type StockV1 struct {
	Type      int `json:"type"`
	Prio      int `json:"prio"`
	Available int `json:"available"`
	Requested int `json:"requested"`
	Maximum   int `json:"maximum"`
}

type BuildingV1 struct {
	Index uint32 `json:"index"`
	Type  string `json:"type"`
	Owner int    `json:"owner"`
	Pos   uint32 `json:"pos"`
	Flag  uint32 `json:"flag"`

	Done        bool `json:"done"`
	Leveled     bool `json:"leveled"`
	Active      bool `json:"active"`
	Burning     bool `json:"burning"`
	BurnCounter int  `json:"burn_counter"`
	Progress    int  `json:"progress"`
	ShieldNext  bool `json:"shield_next,omitempty"`

	SerfRequested     bool   `json:"serf_requested"`
	SerfRequestFailed bool   `json:"serf_request_failed"`
	Serf              uint32 `json:"serf"`
	FirstKnight       uint32 `json:"first_knight"`
	Inventory         uint32 `json:"inventory"`

	Stock []StockV1 `json:"stock"`
	Tick  uint32    `json:"tick"`
}

type QueuedV1 struct {
	Res  int    `json:"res"`
	Dest uint32 `json:"dest"`
}

type InventoryV1 struct {
	Index    uint32 `json:"index"`
	Owner    int    `json:"owner"`
	Flag     uint32 `json:"flag"`
	Building uint32 `json:"building"`

	Resources []int      `json:"resources"`
	OutQueue  []QueuedV1 `json:"out_queue"`
	ResMode   int        `json:"res_mode"`
	SerfMode  int        `json:"serf_mode"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	hline, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(hline, &h); err != nil {
		return snap, fmt.Errorf("parse header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader returns only the header line of a binary snapshot.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}
