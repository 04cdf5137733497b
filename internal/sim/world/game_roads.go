package world

import (
	"fmt"

	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// canPlaceFlag checks pos for a new flag of player.
func (g *Game) canPlaceFlag(player int, pos gamemap.Pos) error {
	m := g.m
	if g.Player(player) == nil {
		return ErrBadPlayer
	}
	if m.Owner(pos) != player {
		return ErrNotOwner
	}
	if o := m.Object(pos); (o != gamemap.ObjectNone && !o.IsSign()) || m.IsInWater(pos) {
		return ErrOccupied
	}
	if m.Paths(pos) != 0 && m.PathCount(pos) != 2 {
		return ErrOccupied
	}
	for _, d := range geom.CycleCW {
		if m.HasFlag(m.Move(pos, d)) {
			return ErrOccupied
		}
	}
	return nil
}

// BuildFlag places a flag for player at pos. A flag put on a road splits
// it in two.
func (g *Game) BuildFlag(player int, pos gamemap.Pos) (*Flag, error) {
	var f *Flag
	err := g.command(func() error {
		if err := g.canPlaceFlag(player, pos); err != nil {
			return err
		}
		f = g.placeFlag(player, pos)
		if g.m.Paths(pos) != 0 {
			g.splitRoad(f)
		}
		return nil
	})
	return f, err
}

func (g *Game) placeFlag(player int, pos gamemap.Pos) *Flag {
	f := newFlag(g, pos, player)
	f.index = g.flags.alloc(f)
	g.m.SetObject(pos, gamemap.ObjectFlag, f.index)
	return f
}

// splitRoad cuts the road running through the new flag f.
func (g *Game) splitRoad(f *Flag) {
	m := g.m
	pos := f.pos
	dir1, dir2 := geom.DirNone, geom.DirNone
	for _, d := range geom.CycleCW {
		if m.HasPath(pos, d) {
			dir1 = d
			break
		}
	}
	for _, d := range geom.CycleCCW {
		if m.HasPath(pos, d) {
			dir2 = d
			break
		}
	}
	if !dir1.Valid() || dir1 == dir2 {
		g.fault("split_road", "flag %d: no road through %d", f.index, pos)
	}

	if m.IdleSerf(pos) {
		if s := g.idleSerfAt(pos); s != nil {
			s.ChangeTransporterStateAtPos(pos, model.StateWakeAtFlag)
		}
	}

	info1 := g.fillPathSerfInfo(pos, dir1)
	info2 := g.fillPathSerfInfo(pos, dir2)
	f1 := g.flags.get(info1.FlagIndex)
	f2 := g.flags.get(info2.FlagIndex)
	d1, d2 := info1.FlagDir, info2.FlagDir
	requested := f1.SerfRequested(d1)

	f.RestorePathSerfInfo(dir1, info1)
	f.RestorePathSerfInfo(dir2, info2)

	if !requested {
		return
	}
	// One serf was on its way for the old road; it keeps the half it was
	// heading for and the other half asks anew.
	sel := -1
	for _, s := range g.GetSerfsRelatedTo(f1.index, d1) {
		if v, ok := s.PathSplit(f1.index, d1, f2.index, d2); ok {
			sel = v
			break
		}
	}
	if sel < 0 {
		for _, s := range g.GetSerfsRelatedTo(f2.index, d2) {
			if v, ok := s.PathSplit(f1.index, d1, f2.index, d2); ok {
				sel = v
				break
			}
		}
	}
	if sel != 1 {
		f2.cancelSerfRequest(d2)
		f.cancelSerfRequest(dir2)
	}
	if sel != 0 {
		f1.cancelSerfRequest(d1)
		f.cancelSerfRequest(dir1)
	}
}

// BuildRoad lays a road for player from the flag at start along dirs. It
// must end on another flag of the player without crossing other roads.
func (g *Game) BuildRoad(player int, start gamemap.Pos, dirs []geom.Direction) error {
	return g.command(func() error {
		src, dest, water, err := g.checkRoad(player, start, dirs)
		if err != nil {
			return err
		}
		p := start
		for _, d := range dirs {
			next := g.m.Move(p, d)
			g.m.AddPath(p, d)
			g.m.AddPath(next, d.Reverse())
			p = next
		}
		src.LinkWithFlag(dest, water, len(dirs), dirs[len(dirs)-1].Reverse(), dirs[0])
		g.logf("player %d built road %d -> %d, length %d", player, src.index, dest.index, len(dirs))
		return nil
	})
}

// checkRoad validates a road and reports its end flags and whether it
// runs over water.
func (g *Game) checkRoad(player int, start gamemap.Pos, dirs []geom.Direction) (src, dest *Flag, water bool, err error) {
	m := g.m
	if g.Player(player) == nil {
		return nil, nil, false, ErrBadPlayer
	}
	if len(dirs) < 2 {
		return nil, nil, false, fmt.Errorf("%w: too short", ErrBadRoad)
	}
	src = g.FlagAt(start)
	if src == nil || src.Owner() != player {
		return nil, nil, false, fmt.Errorf("%w: no flag of player %d at start", ErrBadRoad, player)
	}
	water = m.IsInWater(m.Move(start, dirs[0]))
	seen := map[gamemap.Pos]bool{start: true}
	p := start
	for i, d := range dirs {
		if !d.Valid() {
			return nil, nil, false, fmt.Errorf("%w: bad direction %d", ErrBadRoad, int(d))
		}
		if m.HasPath(p, d) {
			return nil, nil, false, fmt.Errorf("%w: road exists at step %d", ErrBadRoad, i)
		}
		p = m.Move(p, d)
		if seen[p] {
			return nil, nil, false, fmt.Errorf("%w: loops at step %d", ErrBadRoad, i)
		}
		seen[p] = true
		if m.Owner(p) != player {
			return nil, nil, false, ErrNotOwner
		}
		if i == len(dirs)-1 {
			break
		}
		if m.Paths(p) != 0 || m.HasFlag(p) || m.IsInWater(p) != water {
			return nil, nil, false, fmt.Errorf("%w: blocked at step %d", ErrBadRoad, i)
		}
		if !water && !m.Object(p).Walkable() {
			return nil, nil, false, fmt.Errorf("%w: blocked at step %d", ErrBadRoad, i)
		}
	}
	dest = g.FlagAt(p)
	if dest == nil || dest.Owner() != player {
		return nil, nil, false, fmt.Errorf("%w: does not end on a flag", ErrBadRoad)
	}
	if dest.HasPath(dirs[len(dirs)-1].Reverse()) {
		return nil, nil, false, fmt.Errorf("%w: end flag taken", ErrBadRoad)
	}
	return src, dest, water, nil
}

// DemolishRoad removes the road passing through pos.
func (g *Game) DemolishRoad(player int, pos gamemap.Pos) error {
	return g.command(func() error {
		m := g.m
		if m.Owner(pos) != player {
			return ErrNotOwner
		}
		if m.Paths(pos) == 0 || m.HasFlag(pos) {
			return ErrNoSuchObject
		}
		d := geom.DirNone
		for _, dd := range geom.CycleCW {
			if m.HasPath(pos, dd) {
				d = dd
				break
			}
		}
		info := g.fillPathSerfInfo(pos, d)
		f := g.flags.get(info.FlagIndex)
		if f == nil {
			return ErrNoSuchObject
		}
		if f.HasBuilding() && info.FlagDir == dirFlagToBuilding {
			return ErrCannotDemolish
		}
		g.removeRoad(f, info.FlagDir)
		return nil
	})
}

// removeRoad tears down the road leaving f by d. Transporters on it get
// lost and both end flags forget it.
func (g *Game) removeRoad(f *Flag, d geom.Direction) {
	m := g.m
	other := f.OtherEndFlag(d)
	od := f.OtherEndDir(d)

	tiles := map[gamemap.Pos]bool{}
	p, dir := f.pos, d
	for n := 0; ; n++ {
		if n > m.Size() {
			g.fault("remove_road", "road from flag %d does not end", f.index)
		}
		next := m.Move(p, dir)
		m.DelPath(p, dir)
		m.DelPath(next, dir.Reverse())
		p = next
		if m.HasFlag(p) {
			break
		}
		tiles[p] = true
		dir = geom.DirNone
		for _, dd := range geom.CycleCW {
			if m.HasPath(p, dd) {
				dir = dd
				break
			}
		}
		if !dir.Valid() {
			g.fault("remove_road", "road from flag %d broken at %d", f.index, p)
		}
	}

	g.serfs.each(func(_ uint32, s *Serf) {
		switch {
		case tiles[s.pos] && (s.isParked() || s.state == model.StateTransporting):
		case s.state == model.StateTransporting && s.pos == f.pos && s.transporting().Dir == d:
		case other != nil && s.state == model.StateTransporting && s.pos == other.pos && s.transporting().Dir == od:
		default:
			return
		}
		if s.isParked() {
			m.SetIdleSerf(s.pos, false)
		}
		s.SetLostState()
	})

	f.DeletePath(d)
	if other != nil {
		other.DeletePath(od)
	}
}

// cutFlagRoads removes every road of f.
func (g *Game) cutFlagRoads(f *Flag) {
	for _, d := range geom.CycleCW {
		if d == dirFlagToBuilding && f.HasBuilding() {
			continue
		}
		if f.HasPath(d) {
			g.removeRoad(f, d)
		}
	}
}

// DemolishFlag removes the flag at pos. A flag joining exactly two roads
// leaves one road behind; otherwise its roads go with it.
func (g *Game) DemolishFlag(player int, pos gamemap.Pos) error {
	return g.command(func() error {
		f := g.FlagAt(pos)
		if f == nil {
			return ErrNoSuchObject
		}
		if f.Owner() != player {
			return ErrNotOwner
		}
		if f.HasBuilding() {
			return ErrCannotDemolish
		}
		g.removeFlag(f)
		return nil
	})
}

func (g *Game) removeFlag(f *Flag) {
	m := g.m
	pos := f.pos
	g.flagResetTransport(f)
	f.RemoveAllResources()
	if f.CanDemolish() {
		m.SetObject(pos, gamemap.ObjectNone, 0)
		f.MergePaths(pos)
	} else {
		g.cutFlagRoads(f)
		m.SetObject(pos, gamemap.ObjectNone, 0)
	}
	g.serfs.each(func(_ uint32, s *Serf) { s.ClearDestination(f.index) })
	g.flags.free(f.index)
	g.logf("flag %d at %d removed", f.index, pos)
}

// flagResetTransport makes every resource and serf bound for f route anew.
func (g *Game) flagResetTransport(f *Flag) {
	g.flags.each(func(_ uint32, other *Flag) {
		if other != f {
			f.ResetTransport(other)
		}
	})
	g.serfs.each(func(_ uint32, s *Serf) { s.ResetTransport(f) })
	g.inventories.each(func(_ uint32, inv *Inventory) { inv.resetQueueForDest(f.index) })
}
