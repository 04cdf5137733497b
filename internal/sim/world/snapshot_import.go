package world

import (
	"encoding/json"
	"fmt"
	"log"

	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/rng"
	"serfcraft.dev/internal/sim/tuning"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// Restore rebuilds a game from a snapshot. Object indices are kept, so the
// restored game steps exactly like the one that was saved.
func Restore(s snapshot.SnapshotV1, logger *log.Logger) (*Game, error) {
	if s.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	cfg := tuning.Tuning{
		TickSpeed:                s.Tuning.TickSpeed,
		MapSize:                  s.Tuning.MapSize,
		Seed:                     s.Tuning.Seed,
		SnapshotEveryTicks:       s.Tuning.SnapshotEveryTicks,
		ClearRequestFailureEvery: s.Tuning.ClearRequestFailureEvery,
		InventoryUpdateEvery:     s.Tuning.InventoryUpdateEvery,
		LogStates:                s.Tuning.LogStates,
	}
	for _, p := range s.Players {
		cfg.Players = append(cfg.Players, tuning.PlayerTuning{
			Name:           p.Name,
			Color:          p.Color,
			KnightMorale:   p.BaseMorale,
			InitialSerfs:   p.InitialSerfs,
			InitialKnights: p.InitialKnights,
			InitialStock:   p.InitialStock,
		})
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot tuning: %w", err)
	}

	m, err := importMap(cfg.MapSize, s.Map)
	if err != nil {
		return nil, err
	}
	g, err := NewWithMap(cfg, m, logger)
	if err != nil {
		return nil, err
	}
	if g.rnd, err = rng.Parse(s.RNG); err != nil {
		return nil, fmt.Errorf("snapshot rng: %w", err)
	}
	g.tick = s.Header.Tick
	g.searchID = s.SearchID
	g.goldTotal = s.GoldTotal
	g.lastInventoryUpdate = s.LastInventoryUpdate
	g.lastRequestClear = s.LastRequestClear
	g.mapCursor = s.MapCursor

	for i, ps := range s.Players {
		if err := importPlayer(g.players[i], ps); err != nil {
			return nil, err
		}
	}
	for _, fs := range s.Flags {
		if err := g.importFlag(fs); err != nil {
			return nil, err
		}
	}
	for _, ss := range s.Serfs {
		if err := g.importSerf(ss); err != nil {
			return nil, err
		}
	}
	for _, bs := range s.Buildings {
		if err := g.importBuilding(bs); err != nil {
			return nil, err
		}
	}
	for _, is := range s.Inventories {
		if err := g.importInventory(is); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func importMap(size int, ms snapshot.MapV1) (*gamemap.Map, error) {
	m, err := gamemap.New(size)
	if err != nil {
		return nil, err
	}
	if ms.Cols != m.Cols() || ms.Rows != m.Rows() || len(ms.Tiles) != m.Size() {
		return nil, fmt.Errorf("snapshot map is %dx%d with %d tiles, size %d needs %dx%d",
			ms.Cols, ms.Rows, len(ms.Tiles), size, m.Cols(), m.Rows())
	}
	for i, t := range ms.Tiles {
		m.SetTile(m.PosAt(i), gamemap.Tile{
			Paths:    t.Paths,
			Owner:    t.Owner,
			Height:   t.Height,
			TypeUp:   gamemap.Terrain(t.TypeUp),
			TypeDown: gamemap.Terrain(t.TypeDown),
			Object:   gamemap.Object(t.Object),
			ObjIndex: t.ObjIndex,
			Serf:     t.Serf,
			IdleSerf: t.IdleSerf,
			Mineral:  gamemap.Mineral(t.Mineral),
			Amount:   t.Amount,
		})
	}
	return m, nil
}

func copyInts(dst []int, src []int, what string) error {
	if len(src) != len(dst) {
		return fmt.Errorf("snapshot %s: %d entries, want %d", what, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

func importPlayer(p *Player, ps snapshot.PlayerV1) error {
	if ps.Index != p.index {
		return fmt.Errorf("snapshot player %d stored at %d", ps.Index, p.index)
	}
	if err := copyInts(p.flagPrio[:], ps.FlagPrio, "flag_prio"); err != nil {
		return err
	}
	if err := copyInts(p.inventoryPrio[:], ps.InventoryPrio, "inventory_prio"); err != nil {
		return err
	}
	if err := copyInts(p.toolPrio[:], ps.ToolPrio, "tool_prio"); err != nil {
		return err
	}
	p.baseMorale = ps.BaseMorale
	p.knightMorale = ps.KnightMorale
	p.militaryScore = ps.MilitaryScore
	p.castle = ps.Castle
	p.lastSpawn = ps.LastSpawn
	return nil
}

func (g *Game) importFlag(fs snapshot.FlagV1) error {
	if fs.Index == 0 {
		return fmt.Errorf("snapshot flag with index 0")
	}
	f := &Flag{
		g:           g,
		index:       fs.Index,
		pos:         gamemap.Pos(fs.Pos),
		pathCon:     fs.PathCon,
		endPoint:    fs.EndPoint,
		transporter: fs.Transporter,
		bldFlags:    fs.BldFlags,
		bldFlags2:   fs.BldFlags2,
		searchNum:   fs.SearchNum,
		searchDir:   geom.Direction(fs.SearchDir),
	}
	if len(fs.Length) != len(f.length) || len(fs.OtherEndDir) != len(f.otherEndDir) ||
		len(fs.OtherEnd) != len(f.otherEnd) || len(fs.Slots) != len(f.slots) {
		return fmt.Errorf("snapshot flag %d: bad array sizes", fs.Index)
	}
	for i, l := range fs.Length {
		f.length[i] = uint8(l)
	}
	for i, d := range fs.OtherEndDir {
		f.otherEndDir[i] = uint8(d)
	}
	copy(f.otherEnd[:], fs.OtherEnd)
	for i, sl := range fs.Slots {
		f.slots[i] = ResourceSlot{Type: catalogs.Resource(sl.Type), Dir: geom.Direction(sl.Dir), Dest: sl.Dest}
	}
	g.flags.put(f.index, f)
	return nil
}

func (g *Game) importSerf(ss snapshot.SerfV1) error {
	if ss.Index == 0 {
		return fmt.Errorf("snapshot serf with index 0")
	}
	typ, err := catalogs.ParseSerfType(ss.Type)
	if err != nil {
		return fmt.Errorf("snapshot serf %d: %w", ss.Index, err)
	}
	st, err := model.ParseState(ss.State)
	if err != nil {
		return fmt.Errorf("snapshot serf %d: %w", ss.Index, err)
	}
	s := &Serf{
		g:         g,
		index:     ss.Index,
		player:    ss.Player,
		typ:       typ,
		state:     st,
		payload:   model.NewPayload(st),
		pos:       gamemap.Pos(ss.Pos),
		counter:   ss.Counter,
		animation: ss.Animation,
		tick:      ss.Tick,
	}
	if s.payload != nil && len(ss.Payload) > 0 {
		if err := json.Unmarshal(ss.Payload, s.payload); err != nil {
			return fmt.Errorf("snapshot serf %d payload: %w", ss.Index, err)
		}
	}
	g.serfs.put(s.index, s)
	return nil
}

func (g *Game) importBuilding(bs snapshot.BuildingV1) error {
	if bs.Index == 0 {
		return fmt.Errorf("snapshot building with index 0")
	}
	typ, err := catalogs.ParseBuildingType(bs.Type)
	if err != nil {
		return fmt.Errorf("snapshot building %d: %w", bs.Index, err)
	}
	b := &Building{
		g:                 g,
		index:             bs.Index,
		typ:               typ,
		owner:             bs.Owner,
		pos:               gamemap.Pos(bs.Pos),
		flag:              bs.Flag,
		done:              bs.Done,
		leveled:           bs.Leveled,
		active:            bs.Active,
		burning:           bs.Burning,
		burnCounter:       bs.BurnCounter,
		progress:          bs.Progress,
		shieldNext:        bs.ShieldNext,
		serfRequested:     bs.SerfRequested,
		serfRequestFailed: bs.SerfRequestFailed,
		serf:              bs.Serf,
		firstKnight:       bs.FirstKnight,
		inventory:         bs.Inventory,
		tick:              bs.Tick,
	}
	if len(bs.Stock) != len(b.stock) {
		return fmt.Errorf("snapshot building %d: %d stocks", bs.Index, len(bs.Stock))
	}
	for i, st := range bs.Stock {
		b.stock[i] = stock{
			typ:       catalogs.Resource(st.Type),
			prio:      st.Prio,
			available: st.Available,
			requested: st.Requested,
			maximum:   st.Maximum,
		}
	}
	g.buildings.put(b.index, b)
	return nil
}

func (g *Game) importInventory(is snapshot.InventoryV1) error {
	if is.Index == 0 {
		return fmt.Errorf("snapshot inventory with index 0")
	}
	inv := &Inventory{
		g:        g,
		index:    is.Index,
		owner:    is.Owner,
		flag:     is.Flag,
		building: is.Building,
		resMode:  InventoryMode(is.ResMode),
		serfMode: InventoryMode(is.SerfMode),
	}
	if err := copyInts(inv.resources[:], is.Resources, fmt.Sprintf("inventory %d resources", is.Index)); err != nil {
		return err
	}
	if len(is.OutQueue) != len(inv.outQueue) {
		return fmt.Errorf("snapshot inventory %d: %d queue entries", is.Index, len(is.OutQueue))
	}
	for i, q := range is.OutQueue {
		inv.outQueue[i] = queuedResource{Res: catalogs.Resource(q.Res), Dest: q.Dest}
	}
	g.inventories.put(inv.index, inv)
	return nil
}
