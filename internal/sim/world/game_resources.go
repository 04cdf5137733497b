package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// Resource orders tried by UpdateInventories. One is picked at random on
// every update so no input is starved for long.
var (
	inventoryOrder1 = []catalogs.Resource{
		catalogs.Plank, catalogs.Stone, catalogs.Steel, catalogs.Coal, catalogs.Lumber, catalogs.IronOre,
		catalogs.GroupFood, catalogs.Pig, catalogs.Flour, catalogs.Wheat, catalogs.GoldBar, catalogs.GoldOre,
	}
	inventoryOrder2 = []catalogs.Resource{
		catalogs.Stone, catalogs.IronOre, catalogs.GoldOre, catalogs.Coal, catalogs.Steel, catalogs.GoldBar,
		catalogs.GroupFood, catalogs.Pig, catalogs.Flour, catalogs.Wheat, catalogs.Lumber, catalogs.Plank,
	}
	inventoryOrder3 = []catalogs.Resource{
		catalogs.GroupFood, catalogs.Wheat, catalogs.Pig, catalogs.Flour, catalogs.GoldBar, catalogs.Stone,
		catalogs.Plank, catalogs.Steel, catalogs.Coal, catalogs.Lumber, catalogs.GoldOre, catalogs.IronOre,
	}
)

const mapUpdateSlice = 64

// CancelTransportedResource releases the booking of res at the building of
// flag dest. Unknown destinations are ignored.
func (g *Game) CancelTransportedResource(res catalogs.Resource, dest uint32) {
	if dest == 0 {
		return
	}
	f := g.flags.get(dest)
	if f == nil {
		return
	}
	if b := f.Building(); b != nil {
		b.cancelTransportedResource(res)
	}
}

// GetSerfsRelatedTo lists the serfs on their way to take over the road
// leaving flag dest in direction dir.
func (g *Game) GetSerfsRelatedTo(dest uint32, dir geom.Direction) []*Serf {
	var out []*Serf
	g.serfs.each(func(_ uint32, s *Serf) {
		if s.IsRelatedTo(dest, dir) {
			out = append(out, s)
		}
	})
	return out
}

// SendSerfToFlag calls a serf of type t from the nearest inventory that
// can supply one to flag dest. Geologists start prospecting there; all
// others enter the building at dest.
func (g *Game) SendSerfToFlag(dest *Flag, t catalogs.SerfType) bool {
	var inv *Inventory
	SearchSingle(dest, func(o *Flag, _ int) bool {
		if !o.HasInventory() {
			return false
		}
		b := o.Building()
		if b == nil || b.owner != dest.Owner() {
			return false
		}
		if cand := g.inventories.get(b.inventory); cand != nil && cand.canCallOut(t) {
			inv = cand
			return true
		}
		return false
	}, true, false)
	if inv == nil {
		return false
	}
	s := inv.callOut(t)
	if s == nil {
		return false
	}
	mode := model.WalkEnterBuilding
	if t == catalogs.SerfGeologist {
		mode = model.WalkGeologist
	}
	s.GoOutFromInventory(inv.index, dest.index, mode)
	return true
}

// sendStrongerKnight sends the best idle knight of the nearest inventory
// holding one ranked above than.
func (g *Game) sendStrongerKnight(dest *Flag, than catalogs.SerfType) bool {
	var knight *Serf
	var inv *Inventory
	SearchSingle(dest, func(o *Flag, _ int) bool {
		b := o.Building()
		if !o.HasInventory() || b == nil || b.owner != dest.Owner() {
			return false
		}
		cand := g.inventories.get(b.inventory)
		if cand == nil {
			return false
		}
		if ks := cand.idleKnights(); len(ks) > 0 && ks[0].typ > than {
			knight, inv = ks[0], cand
			return true
		}
		return false
	}, true, false)
	if knight == nil {
		return false
	}
	knight.GoOutFromInventory(inv.index, dest.index, model.WalkEnterBuilding)
	return true
}

// SendGeologist sends a geologist to prospect around the flag at pos.
func (g *Game) SendGeologist(player int, pos gamemap.Pos) error {
	return g.command(func() error {
		f := g.FlagAt(pos)
		if f == nil {
			return ErrNoSuchObject
		}
		if f.Owner() != player {
			return ErrNotOwner
		}
		if !g.SendSerfToFlag(f, catalogs.SerfGeologist) {
			return ErrNoSerf
		}
		return nil
	})
}

// ClearSerfRequestFailure lets flags and buildings ask for serfs again.
func (g *Game) ClearSerfRequestFailure() {
	g.flags.each(func(_ uint32, f *Flag) { f.ClearSerfRequestFailure() })
	g.buildings.each(func(_ uint32, b *Building) { b.serfRequestFailed = false })
}

// UpdateInventories hands stored resources to buildings that want them
// and empties inventories set to push out.
func (g *Game) UpdateInventories() {
	var order []catalogs.Resource
	switch g.RandomInt() & 7 {
	case 0:
		order = inventoryOrder2
	case 1:
		order = inventoryOrder3
	default:
		order = inventoryOrder1
	}
	for _, p := range g.players {
		for _, res := range order {
			g.supplyFromInventories(p.index, res)
		}
		g.pushOutInventories(p.index)
	}
}

// takeFor picks the stored resource that satisfies res.
func (inv *Inventory) takeFor(res catalogs.Resource) catalogs.Resource {
	if res == catalogs.GroupFood {
		for _, f := range catalogs.FoodTypes {
			if inv.resources[f] > 0 {
				return f
			}
		}
		return catalogs.ResourceNone
	}
	if inv.resources[res] > 0 {
		return res
	}
	return catalogs.ResourceNone
}

// supplyFromInventories sends one res from the inventories of player to
// the nearest building asking for it.
func (g *Game) supplyFromInventories(player int, res catalogs.Resource) {
	search := NewFlagSearch(g)
	sources := 0
	g.inventories.each(func(_ uint32, inv *Inventory) {
		if inv.owner != player || inv.isQueueFull() || inv.takeFor(res) == catalogs.ResourceNone {
			return
		}
		if f := g.flags.get(inv.flag); f != nil {
			search.AddSourceTagged(f, int(inv.index))
			sources++
		}
	})
	if sources == 0 {
		return
	}
	search.Execute(func(o *Flag, origin int) bool {
		b := o.Building()
		if b == nil || b.owner != player || b.GetMaxPriorityForResource(res, unknownDestMinPrio) == 0 {
			return false
		}
		inv := g.inventories.get(uint32(origin))
		if inv == nil || !b.canBook(res) {
			return false
		}
		if !inv.addToQueue(inv.takeFor(res), o.index) {
			return false
		}
		if !b.AddRequestedResource(res, false) {
			g.fault("game.supply", "building %d refused a booked %s", b.index, res)
		}
		return true
	}, false, false)
}

// pushOutInventories moves resources and serfs out of inventories in out
// mode to the nearest inventory taking them.
func (g *Game) pushOutInventories(player int) {
	p := g.Player(player)
	g.inventories.each(func(_ uint32, inv *Inventory) {
		if inv.owner != player {
			return
		}
		f := g.flags.get(inv.flag)
		if f == nil {
			return
		}
		if inv.resMode == ModeOut && !inv.isQueueFull() {
			best := catalogs.ResourceNone
			for r := catalogs.Fish; r <= catalogs.Shield; r++ {
				if inv.resources[r] > 0 && (best == catalogs.ResourceNone || p.InventoryPriority(r) > p.InventoryPriority(best)) {
					best = r
				}
			}
			if best != catalogs.ResourceNone {
				if dest := f.FindNearestInventoryForResource(); dest != nil && dest != f {
					inv.addToQueue(best, dest.index)
				}
			}
		}
		if inv.serfMode == ModeOut {
			idle := inv.idleSerfs(catalogs.SerfNone)
			if len(idle) == 0 {
				return
			}
			if dest := f.FindNearestInventoryForSerf(); dest != nil && dest != f {
				idle[0].GoOutFromInventory(inv.index, dest.index, model.WalkToInventory)
			}
		}
	})
}

// updateMapObjects ages a slice of the map every tick: saplings grow,
// seeds ripen, stubs and old signs disappear.
func (g *Game) updateMapObjects() {
	m := g.m
	size := m.Size()
	for i := 0; i < mapUpdateSlice && i < size; i++ {
		g.mapCursor = (g.mapCursor + 1) % size
		p := m.PosAt(g.mapCursor)
		obj := m.Object(p)
		switch {
		case obj == gamemap.ObjectNewTree, obj == gamemap.ObjectNewPine,
			obj.IsSeeds(), obj == gamemap.ObjectFieldExpired, obj == gamemap.ObjectStub, obj.IsSign():
		case obj.IsField() && obj != gamemap.ObjectField5:
		default:
			continue
		}
		r := g.RandomInt()
		if r&7 != 0 {
			continue
		}
		switch {
		case obj == gamemap.ObjectNewTree:
			m.SetObject(p, gamemap.ObjectTree0+gamemap.Object((r>>3)&3), 0)
		case obj == gamemap.ObjectNewPine:
			m.SetObject(p, gamemap.ObjectTree4+gamemap.Object((r>>3)&3), 0)
		case obj == gamemap.ObjectSeeds5:
			m.SetObject(p, gamemap.ObjectField0, 0)
		case obj.IsSeeds(), obj.IsField():
			m.SetObject(p, obj+1, 0)
		default:
			m.SetObject(p, gamemap.ObjectNone, 0)
		}
	}
}
