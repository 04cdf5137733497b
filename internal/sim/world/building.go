package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

const (
	dirBuildingToFlag = geom.DirDownRight
	dirFlagToBuilding = geom.DirUpLeft

	burnTicks = 2048

	// knightExchangeEvery is how often a full garrison looks for a
	// stronger knight to take in.
	knightExchangeEvery = 4096
)

// stock is one input store of a building.
type stock struct {
	typ       catalogs.Resource
	prio      int
	available int
	requested int
	maximum   int
}

// Building is a construction site or finished building. Its flag sits
// down-right of it.
type Building struct {
	g     *Game
	index uint32

	typ   catalogs.BuildingType
	owner int
	pos   gamemap.Pos
	flag  uint32

	done        bool
	leveled     bool
	active      bool // military: occupied at least once
	burning     bool
	burnCounter int
	progress    int // construction materials used
	shieldNext  bool

	serfRequested     bool
	serfRequestFailed bool
	serf              uint32 // builder, digger, worker or inventory holder
	firstKnight       uint32
	inventory         uint32

	stock [2]stock
	tick  uint32
}

func (b *Building) Index() uint32                { return b.index }
func (b *Building) Type() catalogs.BuildingType  { return b.typ }
func (b *Building) Owner() int                   { return b.owner }
func (b *Building) Pos() gamemap.Pos             { return b.pos }
func (b *Building) FlagIndex() uint32            { return b.flag }
func (b *Building) IsDone() bool                 { return b.done }
func (b *Building) IsBurning() bool              { return b.burning }
func (b *Building) Progress() int                { return b.progress }
func (b *Building) InventoryIndex() uint32       { return b.inventory }
func (b *Building) SerfRequestFailed() bool      { return b.serfRequestFailed }
func (b *Building) Worker() uint32               { return b.serf }
func (b *Building) StockCount(i int) (available, requested int) {
	return b.stock[i].available, b.stock[i].requested
}

func (g *Game) newBuilding(typ catalogs.BuildingType, owner int, pos gamemap.Pos, flag uint32) *Building {
	b := &Building{g: g, typ: typ, owner: owner, pos: pos, flag: flag, tick: g.tick}
	b.leveled = typ.Def().Size != catalogs.SizeLarge
	b.setConstructionStocks()
	b.index = g.buildings.alloc(b)
	return b
}

// setConstructionStocks turns the stocks into plank and stone stores.
func (b *Building) setConstructionStocks() {
	def := b.typ.Def()
	b.stock[0] = stock{typ: catalogs.ResourceNone}
	b.stock[1] = stock{typ: catalogs.ResourceNone}
	if def.Planks > 0 {
		b.stock[0] = stock{typ: catalogs.Plank, maximum: def.Planks}
	}
	if def.Stones > 0 {
		b.stock[1] = stock{typ: catalogs.Stone, maximum: def.Stones}
	}
}

// setProductionStocks switches to the inputs of the finished building.
func (b *Building) setProductionStocks() {
	for i, sd := range b.typ.Def().Stocks {
		b.stock[i] = stock{typ: sd.Resource, maximum: sd.Maximum}
	}
}

func (b *Building) flagOf() *Flag { return b.g.flags.get(b.flag) }

func (b *Building) stockIndexFor(res catalogs.Resource) int {
	for i := range b.stock {
		t := b.stock[i].typ
		if t == res || (t == catalogs.GroupFood && res.IsFood()) {
			return i
		}
	}
	return -1
}

// wantsInputs reports whether the stocks currently take deliveries.
func (b *Building) wantsInputs() bool {
	if b.burning {
		return false
	}
	if !b.done {
		return true
	}
	return !b.typ.IsMilitary() || b.active
}

func (b *Building) updatePriorities() {
	open := b.wantsInputs()
	for i := range b.stock {
		st := &b.stock[i]
		n := st.available + st.requested
		if !open || st.typ == catalogs.ResourceNone || n >= st.maximum {
			st.prio = 0
			continue
		}
		st.prio = 0xff >> uint(n)
	}
}

// GetMaxPriorityForResource is the highest priority among the stocks
// taking res, or 0 when none reaches minPrio.
func (b *Building) GetMaxPriorityForResource(res catalogs.Resource, minPrio int) int {
	best := 0
	for i := range b.stock {
		st := b.stock[i]
		if st.typ != res {
			continue
		}
		if st.prio >= minPrio && st.prio > best {
			best = st.prio
		}
	}
	return best
}

// AddRequestedResource books a delivery of res. With fixPriority the
// priority is recomputed right away.
func (b *Building) AddRequestedResource(res catalogs.Resource, fixPriority bool) bool {
	for i := range b.stock {
		st := &b.stock[i]
		if st.typ != res {
			continue
		}
		if st.available+st.requested >= st.maximum {
			return false
		}
		st.requested++
		if fixPriority {
			b.updatePriorities()
		} else {
			st.prio = 0
		}
		return true
	}
	return false
}

// canBook reports whether AddRequestedResource would take one more res.
func (b *Building) canBook(res catalogs.Resource) bool {
	for i := range b.stock {
		if st := &b.stock[i]; st.typ == res {
			return st.available+st.requested < st.maximum
		}
	}
	return false
}

// cancelTransportedResource releases a booked delivery that will not come.
func (b *Building) cancelTransportedResource(res catalogs.Resource) {
	if i := b.stockIndexFor(res); i >= 0 && b.stock[i].requested > 0 {
		b.stock[i].requested--
		b.updatePriorities()
	}
}

// requestedResourceDelivered stores res. It reports false when the
// building has no use for it any more.
func (b *Building) requestedResourceDelivered(res catalogs.Resource) bool {
	if b.inventory != 0 {
		inv := b.g.inventories.get(b.inventory)
		if inv == nil {
			return false
		}
		inv.pushResource(res)
		return true
	}
	i := b.stockIndexFor(res)
	if i < 0 {
		return false
	}
	st := &b.stock[i]
	if st.requested > 0 {
		st.requested--
	}
	st.available++
	b.updatePriorities()
	return true
}

// UseResourceInStock takes one unit out of stock i.
func (b *Building) UseResourceInStock(i int) bool {
	if b.stock[i].available <= 0 {
		return false
	}
	b.stock[i].available--
	b.updatePriorities()
	return true
}

// takeInputs consumes one of every input, or nothing when one is missing.
func (b *Building) takeInputs() bool {
	for i := range b.stock {
		if b.stock[i].typ != catalogs.ResourceNone && b.stock[i].available == 0 {
			return false
		}
	}
	for i := range b.stock {
		if b.stock[i].typ != catalogs.ResourceNone {
			b.UseResourceInStock(i)
		}
	}
	return true
}

func (b *Building) requestedSerfReached(s *Serf) {
	b.serfRequested = false
	if !s.typ.IsKnight() {
		b.serf = s.index
	}
}

func (b *Building) requestedSerfLost() {
	b.serfRequested = false
}

// requestSerf asks the road network for a serf of type t.
func (b *Building) requestSerf(t catalogs.SerfType) {
	f := b.flagOf()
	if f == nil {
		return
	}
	if b.g.SendSerfToFlag(f, t) {
		b.serfRequested = true
	} else {
		b.serfRequestFailed = true
	}
}

func (b *Building) update() {
	g := b.g
	delta := int(g.tick - b.tick)
	b.tick = g.tick
	if b.burning {
		b.burnCounter -= delta
		if b.burnCounter < 0 {
			g.removeBuilding(b)
		}
		return
	}
	b.updatePriorities()
	if b.typ == catalogs.BuildingCastle || b.serfRequested || b.serfRequestFailed {
		return
	}
	switch {
	case !b.done:
		if b.serf == 0 {
			if b.leveled {
				b.requestSerf(catalogs.SerfBuilder)
			} else {
				b.requestSerf(catalogs.SerfDigger)
			}
		}
	case b.typ.IsMilitary():
		switch n, want := b.knightCount(), b.typ.Def().Knights; {
		case n < want:
			b.requestSerf(catalogs.SerfKnight0)
		case n > want:
			if k := b.popKnight(true); k != nil {
				g.logf("knight %d (%s) leaves building %d", k.index, k.typ, b.index)
				k.GoOutFromBuilding(0, model.WalkToInventory)
			}
		case g.tick/knightExchangeEvery != (g.tick-uint32(delta))/knightExchangeEvery:
			b.exchangeWeakestKnight()
		}
	case b.serf == 0:
		b.requestSerf(b.typ.Def().Worker)
	}
}

// useConstructionMaterial takes the next plank, then stone, for the builder.
func (b *Building) useConstructionMaterial() bool {
	if b.progress < b.typ.Def().Planks {
		if !b.UseResourceInStock(0) {
			return false
		}
	} else if !b.UseResourceInStock(1) {
		return false
	}
	b.progress++
	return true
}

func (b *Building) constructionComplete() bool {
	def := b.typ.Def()
	return b.progress >= def.Planks+def.Stones
}

// finishConstruction turns the site into a working building.
func (b *Building) finishConstruction() {
	g := b.g
	b.done = true
	b.serf = 0
	b.progress = 0
	b.setProductionStocks()
	if b.typ.HasInventory() && b.inventory == 0 {
		inv := g.newInventory(b)
		b.inventory = inv.index
	}
	g.logf("building %d (%s) of player %d finished", b.index, b.typ, b.owner)
}

// knightState is the defending state of knights garrisoned in b.
func (b *Building) knightState() model.State {
	switch b.typ {
	case catalogs.BuildingHut:
		return model.StateDefendingHut
	case catalogs.BuildingTower:
		return model.StateDefendingTower
	case catalogs.BuildingFortress:
		return model.StateDefendingFortress
	}
	return model.StateDefendingCastle
}

// knights lists the garrison, first in line first.
func (b *Building) knights() []*Serf {
	var out []*Serf
	for idx := b.firstKnight; idx != 0; {
		s := b.g.serfs.get(idx)
		if s == nil || s.defending() == nil {
			break
		}
		out = append(out, s)
		idx = s.defending().NextKnight
	}
	return out
}

func (b *Building) knightCount() int { return len(b.knights()) }

// addKnight garrisons s. The first knight in takes the land.
func (b *Building) addKnight(s *Serf) {
	s.setState(b.knightState())
	s.defending().NextKnight = b.firstKnight
	b.firstKnight = s.index
	if !b.active {
		b.active = true
		b.g.claimLand(b, false)
	}
}

// removeKnight takes s out of the garrison list.
func (b *Building) removeKnight(s *Serf) {
	prev := (*Serf)(nil)
	for _, k := range b.knights() {
		if k == s {
			next := k.defending().NextKnight
			if prev == nil {
				b.firstKnight = next
			} else {
				prev.defending().NextKnight = next
			}
			return
		}
		prev = k
	}
}

// exchangeWeakestKnight calls in an idle knight stronger than the weakest
// one garrisoned. Once it has arrived the weakest is sent home.
func (b *Building) exchangeWeakestKnight() {
	weakest := catalogs.SerfKnight4
	for _, k := range b.knights() {
		if k.typ < weakest {
			weakest = k.typ
		}
	}
	if weakest == catalogs.SerfKnight4 {
		return
	}
	if f := b.flagOf(); f != nil && b.g.sendStrongerKnight(f, weakest) {
		b.serfRequested = true
	}
}

// popKnight removes and returns the strongest knight, or the weakest when
// weakest is set.
func (b *Building) popKnight(weakest bool) *Serf {
	var pick *Serf
	for _, k := range b.knights() {
		if pick == nil || (weakest && k.typ < pick.typ) || (!weakest && k.typ > pick.typ) {
			pick = k
		}
	}
	if pick != nil {
		b.removeKnight(pick)
	}
	return pick
}

// product is what one production cycle of b yields.
func (b *Building) product() catalogs.Resource {
	switch b.typ {
	case catalogs.BuildingSawmill:
		return catalogs.Plank
	case catalogs.BuildingMill:
		return catalogs.Flour
	case catalogs.BuildingBaker:
		return catalogs.Bread
	case catalogs.BuildingPigFarm:
		return catalogs.Pig
	case catalogs.BuildingButcher:
		return catalogs.Meat
	case catalogs.BuildingBoatBuilder:
		return catalogs.Boat
	case catalogs.BuildingSteelSmelter:
		return catalogs.Steel
	case catalogs.BuildingGoldSmelter:
		return catalogs.GoldBar
	case catalogs.BuildingWeaponSmith:
		b.shieldNext = !b.shieldNext
		if b.shieldNext {
			return catalogs.Sword
		}
		return catalogs.Shield
	case catalogs.BuildingToolMaker:
		return b.g.drawTool(b.owner)
	}
	return catalogs.ResourceNone
}

// drawTool picks the next tool for player at random, weighted by the
// player's tool priorities.
func (g *Game) drawTool(player int) catalogs.Resource {
	p := g.Player(player)
	total := 0
	for t := catalogs.Shovel; t <= catalogs.Pinchers; t++ {
		total += maxInt(p.ToolPriority(t), 0)
	}
	r := (total * int(g.RandomInt())) >> 16
	for t := catalogs.Shovel; t <= catalogs.Pinchers; t++ {
		if r -= maxInt(p.ToolPriority(t), 0); r < 0 {
			return t
		}
	}
	return catalogs.Shovel
}
