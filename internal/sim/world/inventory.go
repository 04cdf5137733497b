package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// InventoryMode controls whether an inventory takes in, keeps, or pushes
// out its resources or serfs.
type InventoryMode int

const (
	ModeIn InventoryMode = iota
	ModeStop
	ModeOut
)

type queuedResource struct {
	Res  catalogs.Resource
	Dest uint32
}

// Inventory is the store of a castle or stock building.
type Inventory struct {
	g     *Game
	index uint32

	owner    int
	flag     uint32
	building uint32

	resources [catalogs.ResourceCount]int
	outQueue  [2]queuedResource
	resMode   InventoryMode
	serfMode  InventoryMode
}

func (g *Game) newInventory(b *Building) *Inventory {
	inv := &Inventory{g: g, owner: b.owner, flag: b.flag, building: b.index}
	for i := range inv.outQueue {
		inv.outQueue[i] = queuedResource{Res: catalogs.ResourceNone}
	}
	inv.index = g.inventories.alloc(inv)
	if f := g.flags.get(b.flag); f != nil {
		f.bldFlags |= bldFlagInventory
	}
	inv.applyModes()
	return inv
}

func (inv *Inventory) Index() uint32              { return inv.index }
func (inv *Inventory) Owner() int                 { return inv.owner }
func (inv *Inventory) FlagIndex() uint32          { return inv.flag }
func (inv *Inventory) BuildingIndex() uint32      { return inv.building }
func (inv *Inventory) ResMode() InventoryMode     { return inv.resMode }
func (inv *Inventory) SerfMode() InventoryMode    { return inv.serfMode }
func (inv *Inventory) Count(r catalogs.Resource) int {
	if !r.Valid() {
		return 0
	}
	return inv.resources[r]
}

// SetResMode changes how resources flow; only ModeIn accepts deliveries.
func (inv *Inventory) SetResMode(m InventoryMode) {
	inv.resMode = m
	inv.applyModes()
}

// SetSerfMode changes whether returning serfs are taken in.
func (inv *Inventory) SetSerfMode(m InventoryMode) {
	inv.serfMode = m
	inv.applyModes()
}

func (inv *Inventory) applyModes() {
	f := inv.g.flags.get(inv.flag)
	if f == nil {
		return
	}
	f.setAcceptsResources(inv.resMode == ModeIn)
	f.setAcceptsSerfs(inv.serfMode == ModeIn)
}

func (inv *Inventory) pushResource(r catalogs.Resource) { inv.resources[r]++ }

func (inv *Inventory) popResource(r catalogs.Resource) bool {
	if inv.resources[r] == 0 {
		return false
	}
	inv.resources[r]--
	return true
}

// idleSerfs lists the serfs of type t resting here, lowest index first.
func (inv *Inventory) idleSerfs(t catalogs.SerfType) []*Serf {
	var out []*Serf
	inv.g.serfs.each(func(_ uint32, s *Serf) {
		if s.state != model.StateIdleInStock || (t != catalogs.SerfNone && s.typ != t) {
			return
		}
		if p := s.payload.(*model.IdleInStock); p.Inventory == inv.index {
			out = append(out, s)
		}
	})
	return out
}

// IdleSerfCount is the number of serfs of type t resting here; SerfNone
// counts all.
func (inv *Inventory) IdleSerfCount(t catalogs.SerfType) int { return len(inv.idleSerfs(t)) }

// serfEnter takes s into the inventory as an idle serf.
func (inv *Inventory) serfEnter(s *Serf) {
	s.setState(model.StateIdleInStock)
	s.payload.(*model.IdleInStock).Inventory = inv.index
}

// spawnSerf creates a new idle serf of type t here.
func (inv *Inventory) spawnSerf(t catalogs.SerfType) *Serf {
	b := inv.g.buildings.get(inv.building)
	if b == nil {
		return nil
	}
	s := inv.g.newSerf(inv.owner, t, b.pos)
	inv.serfEnter(s)
	return s
}

func (inv *Inventory) hasTools(t catalogs.SerfType) bool {
	need := [catalogs.ResourceCount]int{}
	for _, r := range catalogs.Tools[t] {
		if r != catalogs.ResourceNone {
			need[r]++
			if inv.resources[r] < need[r] {
				return false
			}
		}
	}
	return true
}

// specialize turns an idle generic serf into type t, using up the tools.
func (inv *Inventory) specialize(t catalogs.SerfType) *Serf {
	gen := inv.idleSerfs(catalogs.SerfGeneric)
	if len(gen) == 0 || !inv.hasTools(t) {
		return nil
	}
	for _, r := range catalogs.Tools[t] {
		if r != catalogs.ResourceNone {
			inv.popResource(r)
		}
	}
	s := gen[0]
	s.setType(t)
	return s
}

// canSupplyTransporter reports whether a transporter (a sailor on water)
// could be sent from here.
func (inv *Inventory) canSupplyTransporter(water bool) bool {
	if water {
		return len(inv.idleSerfs(catalogs.SerfSailor)) > 0 ||
			(len(inv.idleSerfs(catalogs.SerfGeneric)) > 0 && inv.resources[catalogs.Boat] > 0)
	}
	return len(inv.idleSerfs(catalogs.SerfTransporter)) > 0 || len(inv.idleSerfs(catalogs.SerfGeneric)) > 0
}

// callTransporter hands out a transporter or sailor, specializing a
// generic serf when none is idle.
func (inv *Inventory) callTransporter(water bool) *Serf {
	t := catalogs.SerfTransporter
	if water {
		t = catalogs.SerfSailor
	}
	if idle := inv.idleSerfs(t); len(idle) > 0 {
		return idle[0]
	}
	return inv.specialize(t)
}

// callOut hands out a serf of type t. Any knight type asks for the best
// knight available; a generic serf with sword and shield becomes a new one.
func (inv *Inventory) callOut(t catalogs.SerfType) *Serf {
	if t.IsKnight() {
		for k := catalogs.SerfKnight4; k >= catalogs.SerfKnight0; k-- {
			if idle := inv.idleSerfs(k); len(idle) > 0 {
				return idle[0]
			}
		}
		return inv.specialize(catalogs.SerfKnight0)
	}
	if idle := inv.idleSerfs(t); len(idle) > 0 {
		return idle[0]
	}
	return inv.specialize(t)
}

// canCallOut reports whether callOut(t) would find a serf.
func (inv *Inventory) canCallOut(t catalogs.SerfType) bool {
	if t.IsKnight() {
		return len(inv.idleKnights()) > 0 || (len(inv.idleSerfs(catalogs.SerfGeneric)) > 0 && inv.hasTools(catalogs.SerfKnight0))
	}
	return len(inv.idleSerfs(t)) > 0 || (len(inv.idleSerfs(catalogs.SerfGeneric)) > 0 && inv.hasTools(t))
}

// idleKnights lists the resting knights, strongest first.
func (inv *Inventory) idleKnights() []*Serf {
	var out []*Serf
	for k := catalogs.SerfKnight4; k >= catalogs.SerfKnight0; k-- {
		out = append(out, inv.idleSerfs(k)...)
	}
	return out
}

func (inv *Inventory) isQueueFull() bool {
	return inv.outQueue[1].Res != catalogs.ResourceNone
}

// addToQueue takes res out of stock and queues it for the holder to carry
// out to flag dest.
func (inv *Inventory) addToQueue(res catalogs.Resource, dest uint32) bool {
	if inv.isQueueFull() || !inv.popResource(res) {
		return false
	}
	i := 0
	if inv.outQueue[0].Res != catalogs.ResourceNone {
		i = 1
	}
	inv.outQueue[i] = queuedResource{Res: res, Dest: dest}
	return true
}

func (inv *Inventory) popQueue() (catalogs.Resource, uint32, bool) {
	q := inv.outQueue[0]
	if q.Res == catalogs.ResourceNone {
		return catalogs.ResourceNone, 0, false
	}
	inv.outQueue[0] = inv.outQueue[1]
	inv.outQueue[1] = queuedResource{Res: catalogs.ResourceNone}
	return q.Res, q.Dest, true
}

// resetQueueForDest forgets flag as the destination of queued resources.
func (inv *Inventory) resetQueueForDest(flag uint32) {
	for i := range inv.outQueue {
		if inv.outQueue[i].Res != catalogs.ResourceNone && inv.outQueue[i].Dest == flag {
			inv.outQueue[i].Dest = 0
		}
	}
}

// cancelQueue returns queued resources to stock, releasing their bookings.
func (inv *Inventory) cancelQueue() {
	for i := range inv.outQueue {
		q := inv.outQueue[i]
		if q.Res == catalogs.ResourceNone {
			continue
		}
		inv.g.CancelTransportedResource(q.Res, q.Dest)
		inv.resources[q.Res]++
		inv.outQueue[i] = queuedResource{Res: catalogs.ResourceNone}
	}
}
