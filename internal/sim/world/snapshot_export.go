package world

import (
	"encoding/json"
	"sort"

	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/gamemap"
)

// ExportSnapshot captures the whole game. It must be called between steps
// from the goroutine driving the game.
func (g *Game) ExportSnapshot(gameID string) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: snapshot.Version, GameID: gameID, Tick: g.tick},
		Tuning: snapshot.TuningV1{
			TickSpeed:                g.cfg.TickSpeed,
			MapSize:                  g.cfg.MapSize,
			Seed:                     g.cfg.Seed,
			SnapshotEveryTicks:       g.cfg.SnapshotEveryTicks,
			ClearRequestFailureEvery: g.cfg.ClearRequestFailureEvery,
			InventoryUpdateEvery:     g.cfg.InventoryUpdateEvery,
			LogStates:                g.cfg.LogStates,
		},
		RNG:                 g.rnd.String(),
		SearchID:            g.searchID,
		GoldTotal:           g.goldTotal,
		LastInventoryUpdate: g.lastInventoryUpdate,
		LastRequestClear:    g.lastRequestClear,
		MapCursor:           g.mapCursor,
		Map:                 exportMap(g.m),
	}
	for _, p := range g.players {
		s.Players = append(s.Players, exportPlayer(p))
	}
	g.flags.each(func(_ uint32, f *Flag) { s.Flags = append(s.Flags, exportFlag(f)) })
	g.serfs.each(func(_ uint32, sf *Serf) { s.Serfs = append(s.Serfs, exportSerf(sf)) })
	g.buildings.each(func(_ uint32, b *Building) { s.Buildings = append(s.Buildings, exportBuilding(b)) })
	g.inventories.each(func(_ uint32, inv *Inventory) { s.Inventories = append(s.Inventories, exportInventory(inv)) })
	return s
}

func exportMap(m *gamemap.Map) snapshot.MapV1 {
	out := snapshot.MapV1{Cols: m.Cols(), Rows: m.Rows(), Tiles: make([]snapshot.TileV1, m.Size())}
	for i := range out.Tiles {
		t := m.Tile(m.PosAt(i))
		out.Tiles[i] = snapshot.TileV1{
			Paths:    t.Paths,
			Owner:    t.Owner,
			Height:   t.Height,
			TypeUp:   uint8(t.TypeUp),
			TypeDown: uint8(t.TypeDown),
			Object:   uint8(t.Object),
			ObjIndex: t.ObjIndex,
			Serf:     t.Serf,
			IdleSerf: t.IdleSerf,
			Mineral:  uint8(t.Mineral),
			Amount:   t.Amount,
		}
	}
	return out
}

func exportPlayer(p *Player) snapshot.PlayerV1 {
	out := snapshot.PlayerV1{
		Index:          p.index,
		Name:           p.name,
		Color:          p.color,
		FlagPrio:       append([]int(nil), p.flagPrio[:]...),
		InventoryPrio:  append([]int(nil), p.inventoryPrio[:]...),
		ToolPrio:       append([]int(nil), p.toolPrio[:]...),
		BaseMorale:     p.baseMorale,
		KnightMorale:   p.knightMorale,
		MilitaryScore:  p.militaryScore,
		Castle:         p.castle,
		LastSpawn:      p.lastSpawn,
		InitialSerfs:   p.setup.InitialSerfs,
		InitialKnights: p.setup.InitialKnights,
	}
	if len(p.setup.InitialStock) > 0 {
		keys := make([]string, 0, len(p.setup.InitialStock))
		for k := range p.setup.InitialStock {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out.InitialStock = make(map[string]int, len(keys))
		for _, k := range keys {
			out.InitialStock[k] = p.setup.InitialStock[k]
		}
	}
	return out
}

func exportFlag(f *Flag) snapshot.FlagV1 {
	out := snapshot.FlagV1{
		Index:       f.index,
		Pos:         uint32(f.pos),
		PathCon:     f.pathCon,
		EndPoint:    f.endPoint,
		Transporter: f.transporter,
		Length:      make([]int, len(f.length)),
		Slots:       make([]snapshot.SlotV1, len(f.slots)),
		OtherEndDir: make([]int, len(f.otherEndDir)),
		OtherEnd:    append([]uint32(nil), f.otherEnd[:]...),
		BldFlags:    f.bldFlags,
		BldFlags2:   f.bldFlags2,
		SearchNum:   f.searchNum,
		SearchDir:   int(f.searchDir),
	}
	for i, l := range f.length {
		out.Length[i] = int(l)
	}
	for i, d := range f.otherEndDir {
		out.OtherEndDir[i] = int(d)
	}
	for i, sl := range f.slots {
		out.Slots[i] = snapshot.SlotV1{Type: int(sl.Type), Dir: int(sl.Dir), Dest: sl.Dest}
	}
	return out
}

func exportSerf(s *Serf) snapshot.SerfV1 {
	out := snapshot.SerfV1{
		Index:     s.index,
		Player:    s.player,
		Type:      s.typ.String(),
		State:     s.state.String(),
		Pos:       uint32(s.pos),
		Counter:   s.counter,
		Animation: s.animation,
		Tick:      s.tick,
	}
	if s.payload != nil {
		// Payloads are plain structs of numbers and bools; encoding cannot fail.
		out.Payload, _ = json.Marshal(s.payload)
	}
	return out
}

func exportBuilding(b *Building) snapshot.BuildingV1 {
	out := snapshot.BuildingV1{
		Index:             b.index,
		Type:              b.typ.String(),
		Owner:             b.owner,
		Pos:               uint32(b.pos),
		Flag:              b.flag,
		Done:              b.done,
		Leveled:           b.leveled,
		Active:            b.active,
		Burning:           b.burning,
		BurnCounter:       b.burnCounter,
		Progress:          b.progress,
		ShieldNext:        b.shieldNext,
		SerfRequested:     b.serfRequested,
		SerfRequestFailed: b.serfRequestFailed,
		Serf:              b.serf,
		FirstKnight:       b.firstKnight,
		Inventory:         b.inventory,
		Tick:              b.tick,
	}
	for _, st := range b.stock {
		out.Stock = append(out.Stock, snapshot.StockV1{
			Type:      int(st.typ),
			Prio:      st.prio,
			Available: st.available,
			Requested: st.requested,
			Maximum:   st.maximum,
		})
	}
	return out
}

func exportInventory(inv *Inventory) snapshot.InventoryV1 {
	out := snapshot.InventoryV1{
		Index:     inv.index,
		Owner:     inv.owner,
		Flag:      inv.flag,
		Building:  inv.building,
		Resources: append([]int(nil), inv.resources[:]...),
		ResMode:   int(inv.resMode),
		SerfMode:  int(inv.serfMode),
	}
	for _, q := range inv.outQueue {
		out.OutQueue = append(out.OutQueue, snapshot.QueuedV1{Res: int(q.Res), Dest: q.Dest})
	}
	return out
}
