package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// TickSpeed is how far the game tick advances per Step.
	TickSpeed int `yaml:"tick_speed"`
	// MapSize selects a (16<<MapSize) by (16<<MapSize) map.
	MapSize int    `yaml:"map_size"`
	Seed    string `yaml:"seed"`

	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	// ClearRequestFailureEvery is how often (in game ticks) failed transporter
	// requests are re-armed on every flag.
	ClearRequestFailureEvery int `yaml:"clear_request_failure_every"`
	// InventoryUpdateEvery controls how often inventories look for deliveries.
	InventoryUpdateEvery int `yaml:"inventory_update_every"`

	LogStates bool `yaml:"log_states"`

	Players []PlayerTuning `yaml:"players"`
}

type PlayerTuning struct {
	Name           string         `yaml:"name"`
	Color          int            `yaml:"color"`
	KnightMorale   int            `yaml:"knight_morale"`
	InitialSerfs   int            `yaml:"initial_serfs"`
	InitialKnights int            `yaml:"initial_knights"`
	InitialStock   map[string]int `yaml:"initial_stock"`
}

func Defaults() Tuning {
	return Tuning{
		TickSpeed:                2,
		MapSize:                  2,
		Seed:                     "8667715887436237",
		SnapshotEveryTicks:       6000,
		ClearRequestFailureEvery: 200,
		InventoryUpdateEvery:     16,
		Players: []PlayerTuning{
			{Name: "red", Color: 0, KnightMorale: 0x1000, InitialSerfs: 30, InitialKnights: 4, InitialStock: DefaultStock()},
			{Name: "blue", Color: 1, KnightMorale: 0x1000, InitialSerfs: 30, InitialKnights: 4, InitialStock: DefaultStock()},
		},
	}
}

func DefaultStock() map[string]int {
	return map[string]int{
		"plank": 30, "stone": 20, "lumber": 10, "fish": 8, "bread": 8, "meat": 4,
		"shovel": 4, "hammer": 6, "axe": 3, "saw": 2, "pick": 3, "scythe": 2,
		"rod": 2, "cleaver": 1, "pinchers": 1, "sword": 4, "shield": 4, "boat": 2,
		"coal": 4, "iron_ore": 4, "gold_bar": 4,
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	// A players list in the file replaces the default one wholesale.
	for i := range t.Players {
		if t.Players[i].InitialStock == nil {
			t.Players[i].InitialStock = DefaultStock()
		}
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickSpeed <= 0 || t.TickSpeed > 40 {
		return fmt.Errorf("tick_speed out of range: %d", t.TickSpeed)
	}
	if t.MapSize < 1 || t.MapSize > 6 {
		return fmt.Errorf("map_size out of range: %d", t.MapSize)
	}
	if len(t.Seed) != 16 {
		return fmt.Errorf("seed must be 16 characters, got %d", len(t.Seed))
	}
	if len(t.Players) == 0 || len(t.Players) > 4 {
		return fmt.Errorf("need 1..4 players, got %d", len(t.Players))
	}
	return nil
}
