package world

import (
	"fmt"
	"io"
	"log"

	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/rng"
	"serfcraft.dev/internal/sim/tuning"
)

// Game owns every simulated object. It is single threaded: all methods must
// be called from the goroutine driving Step.
type Game struct {
	cfg    tuning.Tuning
	logger *log.Logger

	m    *gamemap.Map
	rnd  *rng.Random
	tick uint32

	searchID  uint16
	goldTotal int

	flags       pool[Flag]
	serfs       pool[Serf]
	buildings   pool[Building]
	inventories pool[Inventory]
	players     []*Player

	lastInventoryUpdate uint32
	lastRequestClear    uint32
	mapCursor           int
}

// New creates a game on a generated map.
func New(cfg tuning.Tuning, logger *log.Logger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := rng.Parse(cfg.Seed)
	if err != nil {
		return nil, err
	}
	w := r.Words()
	seed := int64(w[0]) | int64(w[1])<<16 | int64(w[2])<<32
	m, err := gamemap.Generate(gamemap.DefaultGenConfig(cfg.MapSize, seed), rng.New(w[2], w[1], w[0]))
	if err != nil {
		return nil, fmt.Errorf("generate map: %w", err)
	}
	return NewWithMap(cfg, m, logger)
}

// NewWithMap creates a game on a prepared map.
func NewWithMap(cfg tuning.Tuning, m *gamemap.Map, logger *log.Logger) (*Game, error) {
	r, err := rng.Parse(cfg.Seed)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	g := &Game{
		cfg:         cfg,
		logger:      logger,
		m:           m,
		rnd:         r,
		flags:       newPool[Flag](),
		serfs:       newPool[Serf](),
		buildings:   newPool[Building](),
		inventories: newPool[Inventory](),
	}
	for i, pt := range cfg.Players {
		g.players = append(g.players, newPlayer(g, i, pt))
	}
	for i := 0; i < m.Size(); i++ {
		if min, n := m.Mineral(m.PosAt(i)); min == gamemap.MineralGold {
			g.goldTotal += n
		}
	}
	return g, nil
}

func (g *Game) Map() *gamemap.Map              { return g.m }
func (g *Game) Tick() uint32                   { return g.tick }
func (g *Game) Tuning() tuning.Tuning          { return g.cfg }
func (g *Game) GoldTotal() int                 { return g.goldTotal }
func (g *Game) Logger() *log.Logger            { return g.logger }
func (g *Game) PlayerCount() int               { return len(g.players) }
func (g *Game) Flag(i uint32) *Flag            { return g.flags.get(i) }
func (g *Game) Serf(i uint32) *Serf            { return g.serfs.get(i) }
func (g *Game) Building(i uint32) *Building    { return g.buildings.get(i) }
func (g *Game) Inventory(i uint32) *Inventory { return g.inventories.get(i) }

func (g *Game) Player(i int) *Player {
	if i < 0 || i >= len(g.players) {
		return nil
	}
	return g.players[i]
}

// RandomInt draws from the shared generator.
func (g *Game) RandomInt() uint16 { return g.rnd.Next() }

// NextSearchID returns a fresh flag search stamp. When the counter wraps all
// flag stamps are cleared before the new id is handed out.
func (g *Game) NextSearchID() uint16 {
	g.searchID++
	if g.searchID == 0 {
		g.flags.each(func(_ uint32, f *Flag) { f.searchNum = 0 })
		g.searchID = 1
	}
	return g.searchID
}

// FlagAt returns the flag at p, or nil.
func (g *Game) FlagAt(p gamemap.Pos) *Flag {
	if !g.m.HasFlag(p) {
		return nil
	}
	return g.flags.get(g.m.ObjIndex(p))
}

// BuildingAt returns the building at p, or nil.
func (g *Game) BuildingAt(p gamemap.Pos) *Building {
	if !g.m.HasBuilding(p) {
		return nil
	}
	return g.buildings.get(g.m.ObjIndex(p))
}

// SerfAt returns the serf standing at p, or nil.
func (g *Game) SerfAt(p gamemap.Pos) *Serf {
	return g.serfs.get(g.m.SerfIndex(p))
}

// Step advances the game by one update. A broken invariant aborts the tick
// and is returned wrapping ErrSimulationFault.
func (g *Game) Step() error {
	return guard(func() {
		g.tick += uint32(g.cfg.TickSpeed)
		g.updatePlayers()
		if g.tick-g.lastInventoryUpdate >= uint32(g.cfg.InventoryUpdateEvery) {
			g.lastInventoryUpdate = g.tick
			g.UpdateInventories()
		}
		if g.tick-g.lastRequestClear >= uint32(g.cfg.ClearRequestFailureEvery) {
			g.lastRequestClear = g.tick
			g.ClearSerfRequestFailure()
		}
		g.flags.each(func(_ uint32, f *Flag) { f.Update() })
		g.buildings.each(func(_ uint32, b *Building) { b.update() })
		g.serfs.each(func(_ uint32, s *Serf) { s.Update() })
		g.updateMapObjects()
	})
}

func (g *Game) updatePlayers() {
	for _, p := range g.players {
		p.update()
	}
}

// Counts summarizes live objects.
type Counts struct {
	Flags       int `json:"flags"`
	Serfs       int `json:"serfs"`
	Buildings   int `json:"buildings"`
	Inventories int `json:"inventories"`
}

func (g *Game) Counts() Counts {
	return Counts{
		Flags:       g.flags.count(),
		Serfs:       g.serfs.count(),
		Buildings:   g.buildings.count(),
		Inventories: g.inventories.count(),
	}
}

// EachFlag visits flags in index order.
func (g *Game) EachFlag(fn func(*Flag)) { g.flags.each(func(_ uint32, f *Flag) { fn(f) }) }

// EachSerf visits serfs in index order.
func (g *Game) EachSerf(fn func(*Serf)) { g.serfs.each(func(_ uint32, s *Serf) { fn(s) }) }

// EachBuilding visits buildings in index order.
func (g *Game) EachBuilding(fn func(*Building)) {
	g.buildings.each(func(_ uint32, b *Building) { fn(b) })
}

// EachInventory visits inventories in index order.
func (g *Game) EachInventory(fn func(*Inventory)) {
	g.inventories.each(func(_ uint32, inv *Inventory) { fn(inv) })
}

func (g *Game) logf(format string, args ...any) {
	g.logger.Printf(format, args...)
}

// LoseResource accounts for a resource that will never be delivered.
func (g *Game) LoseResource(res catalogs.Resource) {
	if res.IsGold() {
		g.goldTotal--
	}
}

// addGoldTotal adjusts the gold in the world when stock is created.
func (g *Game) addGoldTotal(n int) { g.goldTotal += n }
