package world

import (
	"fmt"
	"sort"

	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// siteFree reports whether a building may stand at pos: open land with
// no flag or building next to it other than at flagPos.
func (g *Game) siteFree(pos, flagPos gamemap.Pos, large bool) bool {
	m := g.m
	if o := m.Object(pos); (o != gamemap.ObjectNone && !o.IsSign()) || m.Paths(pos) != 0 || m.IsWaterTile(pos) {
		return false
	}
	for _, d := range geom.CycleCW {
		p := m.Move(pos, d)
		if p == flagPos {
			continue
		}
		if m.HasBuilding(p) || m.HasFlag(p) {
			return false
		}
		if large && (m.IsWaterTile(p) || !m.Object(p).Walkable()) {
			return false
		}
	}
	return true
}

// BuildBuilding starts a construction site of type typ for player at pos.
// The flag down-right of it is reused or created.
func (g *Game) BuildBuilding(player int, typ catalogs.BuildingType, pos gamemap.Pos) (*Building, error) {
	var b *Building
	err := g.command(func() error {
		m := g.m
		if g.Player(player) == nil {
			return ErrBadPlayer
		}
		if typ <= catalogs.BuildingNone || typ >= catalogs.BuildingCastle {
			return fmt.Errorf("%w: cannot build %s", ErrCannotBuild, typ)
		}
		fpos := m.Move(pos, dirBuildingToFlag)
		if m.Owner(pos) != player || m.Owner(fpos) != player {
			return ErrNotOwner
		}
		if !g.siteFree(pos, fpos, typ.Def().Size != catalogs.SizeSmall) {
			return ErrOccupied
		}
		f := g.FlagAt(fpos)
		if f != nil {
			if f.Owner() != player {
				return ErrNotOwner
			}
			if f.HasBuilding() {
				return ErrOccupied
			}
		} else {
			if err := g.canPlaceFlag(player, fpos); err != nil {
				return err
			}
			f = g.placeFlag(player, fpos)
			if m.Paths(fpos) != 0 {
				g.splitRoad(f)
			}
		}
		b = g.newBuilding(typ, player, pos, f.index)
		g.attachBuilding(b, f)
		g.logf("player %d placed %s %d at %d", player, typ, b.index, pos)
		return nil
	})
	return b, err
}

func (g *Game) attachBuilding(b *Building, f *Flag) {
	m := g.m
	obj := gamemap.ObjectSmallBuilding
	switch b.typ.Def().Size {
	case catalogs.SizeLarge:
		obj = gamemap.ObjectLargeBuilding
	case catalogs.SizeCastle:
		obj = gamemap.ObjectCastle
	}
	m.SetObject(b.pos, obj, b.index)
	m.AddPath(b.pos, dirBuildingToFlag)
	m.AddPath(f.pos, dirFlagToBuilding)
	f.linkBuilding(b)
}

// BuildCastle places the first building of player: an inventory stocked
// from the player's setup, with its serfs and knights inside.
func (g *Game) BuildCastle(player int, pos gamemap.Pos) (*Building, error) {
	var b *Building
	err := g.command(func() error {
		m := g.m
		p := g.Player(player)
		if p == nil {
			return ErrBadPlayer
		}
		if p.castle != 0 {
			return fmt.Errorf("%w: player %d already has a castle", ErrCannotBuild, player)
		}
		fpos := m.Move(pos, dirBuildingToFlag)
		for _, q := range []gamemap.Pos{pos, fpos} {
			if m.HasOwner(q) && m.Owner(q) != player {
				return ErrNotOwner
			}
		}
		if !g.siteFree(pos, fpos, true) {
			return ErrOccupied
		}
		if o := m.Object(fpos); (o != gamemap.ObjectNone && !o.IsSign()) || m.Paths(fpos) != 0 || m.IsInWater(fpos) {
			return ErrOccupied
		}
		stock, err := parseStock(p.setup.InitialStock)
		if err != nil {
			return err
		}

		m.SetOwner(pos, player)
		m.SetOwner(fpos, player)
		f := g.placeFlag(player, fpos)
		b = g.newBuilding(catalogs.BuildingCastle, player, pos, f.index)
		b.leveled = true
		g.attachBuilding(b, f)
		inv := g.newInventory(b)
		b.inventory = inv.index
		for r, n := range stock {
			inv.resources[r] += n
			if catalogs.Resource(r).IsGold() {
				g.addGoldTotal(n)
			}
		}
		for i := 0; i < p.setup.InitialSerfs; i++ {
			inv.spawnSerf(catalogs.SerfGeneric)
		}
		for i := 0; i < p.setup.InitialKnights; i++ {
			b.addKnight(g.newSerf(player, catalogs.SerfKnight0, pos))
		}
		if !b.active {
			b.active = true
			g.claimLand(b, false)
		}
		holder := g.newSerf(player, catalogs.SerfTransporterInventory, pos)
		holder.setState(model.StateBuildingCastle)
		holder.payload.(*model.BuildingCastle).Inventory = inv.index
		b.serf = holder.index
		p.castle = b.index
		p.lastSpawn = g.tick
		g.logf("player %d castle %d at %d", player, b.index, pos)
		return nil
	})
	return b, err
}

// parseStock turns a name keyed stock table into counts per resource.
func parseStock(in map[string]int) ([catalogs.ResourceCount]int, error) {
	var out [catalogs.ResourceCount]int
	names := make([]string, 0, len(in))
	for k := range in {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		r, err := catalogs.ParseResource(name)
		if err != nil {
			return out, fmt.Errorf("initial stock: %w", err)
		}
		if !r.Valid() {
			return out, fmt.Errorf("initial stock: %s cannot be stored", name)
		}
		if in[name] < 0 {
			return out, fmt.Errorf("initial stock: negative count for %s", name)
		}
		out[r] += in[name]
	}
	return out, nil
}

// DemolishBuilding sets the building at pos on fire.
func (g *Game) DemolishBuilding(player int, pos gamemap.Pos) error {
	return g.command(func() error {
		b := g.BuildingAt(pos)
		if b == nil {
			return ErrNoSuchObject
		}
		if b.owner != player {
			return ErrNotOwner
		}
		if b.burning {
			return ErrCannotDemolish
		}
		g.burnBuilding(b)
		return nil
	})
}

// burnBuilding detaches b from its flag and drives everyone out. The
// remains are cleared once the fire is out.
func (g *Game) burnBuilding(b *Building) {
	if b.burning {
		return
	}
	m := g.m
	b.burning = true
	b.burnCounter = burnTicks
	for i := range b.stock {
		b.stock[i].requested = 0
		b.stock[i].prio = 0
	}
	b.serfRequested = false

	if f := b.flagOf(); f != nil {
		f.unlinkBuilding()
		m.DelPath(f.pos, dirFlagToBuilding)
		g.serfs.each(func(_ uint32, s *Serf) { s.ClearDestination(f.index) })
	}
	m.DelPath(b.pos, dirBuildingToFlag)

	if inv := g.inventories.get(b.inventory); inv != nil {
		inv.cancelQueue()
		for r, n := range inv.resources {
			for ; n > 0; n-- {
				g.LoseResource(catalogs.Resource(r))
			}
			inv.resources[r] = 0
		}
		g.inventories.free(inv.index)
		b.inventory = 0
	}

	b.firstKnight = 0
	b.serf = 0
	g.serfs.each(func(_ uint32, s *Serf) {
		if s.pos != b.pos {
			return
		}
		switch model.GroupOf(s.state) {
		case model.GroupIdleInStock, model.GroupDefending, model.GroupReadyToLeaveInventory, model.GroupBuildingCastle:
			s.setState(model.StateEscapeBuilding)
		}
		switch s.state {
		case model.StateKnightLeaveForFight, model.StateKnightPrepareDefending, model.StateKnightDefending:
			s.setState(model.StateEscapeBuilding)
		}
	})

	if p := g.Player(b.owner); p != nil && p.castle == b.index {
		p.castle = 0
	}
	g.logf("building %d (%s) of player %d burning", b.index, b.typ, b.owner)
}

// removeBuilding clears the burnt out remains of b.
func (g *Game) removeBuilding(b *Building) {
	if g.m.ObjIndex(b.pos) == b.index && g.m.HasBuilding(b.pos) {
		g.m.SetObject(b.pos, gamemap.ObjectNone, 0)
	}
	g.buildings.free(b.index)
	g.logf("building %d removed", b.index)
}

// claimLand takes the land around a garrisoned military building. With
// force, land already held by others is taken too, except under their
// flags, buildings and roads.
func (g *Game) claimLand(b *Building, force bool) {
	m := g.m
	r := b.typ.Def().Claim
	if r > gamemap.SpiralRadius {
		r = gamemap.SpiralRadius
	}
	n := gamemap.SpiralRingStart(r + 1)
	for i := 0; i < n; i++ {
		p := m.PosAddSpirally(b.pos, i)
		if m.Owner(p) == b.owner {
			continue
		}
		if m.HasOwner(p) {
			if !force || m.HasFlag(p) || m.HasBuilding(p) || m.Paths(p) != 0 {
				continue
			}
		}
		m.SetOwner(p, b.owner)
	}
}
