package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// PathSerfInfo describes one road as seen from a position on it: where it
// ends, how long it is and which transporters are on it.
type PathSerfInfo struct {
	PathLen   int
	FlagIndex uint32
	FlagDir   geom.Direction
	Serfs     []uint32
}

// LinkWithFlag records a new road of the given length between f (leaving by
// outDir) and dest (entered by inDir).
func (f *Flag) LinkWithFlag(dest *Flag, water bool, length int, inDir, outDir geom.Direction) {
	dest.AddPath(inDir, water)
	f.AddPath(outDir, water)

	dest.otherEndDir[inDir] = (dest.otherEndDir[inDir] & 0xc7) | uint8(outDir)<<3
	f.otherEndDir[outDir] = (f.otherEndDir[outDir] & 0xc7) | uint8(inDir)<<3

	l := uint8(GetRoadLengthValue(length)) << 4
	dest.length[inDir] = l
	f.length[outDir] = l

	dest.otherEnd[inDir] = f.index
	f.otherEnd[outDir] = dest.index
}

// RestorePathSerfInfo rebuilds the road in direction d after the flag was
// placed on an existing road. Transporters beyond the new capacity leave.
func (f *Flag) RestorePathSerfInfo(d geom.Direction, info PathSerfInfo) {
	other := f.g.flags.get(info.FlagIndex)
	if other == nil {
		f.g.fault("flag.restore_path", "flag %d: no flag %d", f.index, info.FlagIndex)
	}
	otherDir := info.FlagDir

	f.AddPath(d, other.IsWaterPath(otherDir))
	other.transporter &^= otherDir.Bit()

	l := uint8(GetRoadLengthValue(info.PathLen)) << 4
	f.length[d] = l
	other.length[otherDir] = (other.length[otherDir] & lengthRequested) | l
	if other.SerfRequested(otherDir) {
		f.length[d] |= lengthRequested
	}

	f.otherEndDir[d] = (f.otherEndDir[d] & 0xc7) | uint8(otherDir)<<3
	other.otherEndDir[otherDir] = (other.otherEndDir[otherDir] & 0xc7) | uint8(d)<<3

	f.otherEnd[d] = other.index
	other.otherEnd[otherDir] = f.index

	maxSerfs := f.MaxTransporters(d)
	if f.SerfRequested(d) {
		maxSerfs--
	}
	serfs := info.Serfs
	if len(serfs) > maxSerfs {
		excess := len(serfs) - maxSerfs
		for _, idx := range serfs[:excess] {
			if s := f.g.serfs.get(idx); s != nil {
				s.leaveRoad()
			}
		}
		serfs = serfs[excess:]
	}
	if n := uint8(len(serfs)); n > 0 {
		f.length[d] += n
		other.length[otherDir] += n
	}
}

// fillPathSerfInfo traces the road leaving pos by dir to its far flag.
func (g *Game) fillPathSerfInfo(pos gamemap.Pos, dir geom.Direction) PathSerfInfo {
	var info PathSerfInfo
	if s := g.SerfAt(pos); s != nil && s.state == model.StateTransporting {
		if t := s.transporting(); t.Surplus >= 0 && t.Dir == dir {
			t.Surplus = 0
			info.Serfs = append(info.Serfs, s.index)
		}
	}

	for {
		info.PathLen++
		pos = g.m.Move(pos, dir)
		if info.PathLen > g.m.Size() {
			g.fault("fill_path_serf_info", "road from %d does not end", pos)
		}
		paths := g.m.Paths(pos) &^ dir.Reverse().Bit()
		if g.m.HasFlag(pos) {
			break
		}
		next := geom.DirNone
		for _, d := range geom.CycleCW {
			if paths&d.Bit() != 0 {
				next = d
				break
			}
		}
		if !next.Valid() {
			g.fault("fill_path_serf_info", "road broken at %d", pos)
		}
		dir = next

		if s := g.SerfAt(pos); s != nil && s.state == model.StateTransporting && s.transporting().Surplus >= 0 {
			info.Serfs = append(info.Serfs, s.index)
		}
		if g.m.IdleSerf(pos) {
			if s := g.idleSerfAt(pos); s != nil {
				info.Serfs = append(info.Serfs, s.index)
			}
		}
	}

	info.FlagIndex = g.m.ObjIndex(pos)
	info.FlagDir = dir.Reverse()
	return info
}

// idleSerfAt finds the transporter parked at pos.
func (g *Game) idleSerfAt(pos gamemap.Pos) *Serf {
	var found *Serf
	g.serfs.each(func(_ uint32, s *Serf) {
		if found == nil && s.pos == pos && s.isParked() {
			found = s
		}
	})
	return found
}

// MergePaths joins the two roads meeting at pos, where this flag is being
// removed, into one road between their far flags.
func (f *Flag) MergePaths(pos gamemap.Pos) {
	g := f.g
	m := g.m
	if m.Paths(pos) == 0 {
		return
	}

	dir1, dir2 := geom.DirRight, geom.DirRight
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

	info1 := g.fillPathSerfInfo(pos, dir1)
	info2 := g.fillPathSerfInfo(pos, dir2)

	f1 := g.flags.get(info1.FlagIndex)
	f2 := g.flags.get(info2.FlagIndex)
	d1, d2 := info1.FlagDir, info2.FlagDir

	f1.otherEndDir[d1] = (f1.otherEndDir[d1] & 0xc7) | uint8(d2)<<3
	f2.otherEndDir[d2] = (f2.otherEndDir[d2] & 0xc7) | uint8(d1)<<3
	f1.otherEnd[d1] = f2.index
	f2.otherEnd[d2] = f1.index
	f1.transporter &^= d1.Bit()
	f2.transporter &^= d2.Bit()

	l := uint8(GetRoadLengthValue(info1.PathLen+info2.PathLen)) << 4
	f1.length[d1] = l
	f2.length[d2] = l

	serfs := append(append([]uint32(nil), info1.Serfs...), info2.Serfs...)
	if max := f1.MaxTransporters(d1); len(serfs) > max {
		for _, idx := range serfs[max:] {
			if s := g.serfs.get(idx); s != nil {
				s.leaveRoad()
			}
		}
		serfs = serfs[:max]
	}
	if n := uint8(len(serfs)); n > 0 {
		f1.length[d1] += n
		f2.length[d2] += n
	}

	for _, s := range g.GetSerfsRelatedTo(f1.index, d1) {
		s.PathMergedInto(f1.index, d1, f2.index, d2)
	}
	for _, s := range g.GetSerfsRelatedTo(f2.index, d2) {
		s.PathMergedInto(f1.index, d1, f2.index, d2)
	}

	// Parked transporters facing the removed flag have nothing to face.
	g.serfs.each(func(_ uint32, s *Serf) {
		s.PathMerged(f.index)
		if s.state == model.StateIdleOnPath {
			if p := s.payload.(*model.IdleOnPath); p.Flag == f.index {
				s.setState(model.StateWakeOnPath)
			}
		}
	})
}

// ResetTransport forgets other's resources destined for this flag so they
// get routed anew.
func (f *Flag) ResetTransport(other *Flag) {
	for i := range other.slots {
		sl := &other.slots[i]
		if sl.Type == catalogs.ResourceNone || sl.Dest != f.index {
			continue
		}
		sl.Dest = 0
		other.endPoint |= endPointUnscheduled
		if sl.Dir != geom.DirNone {
			other.PrioritizePickup(sl.Dir, f.g.Player(other.Owner()))
		}
	}
}

// RemoveAllResources discards every resource at the flag.
func (f *Flag) RemoveAllResources() {
	for i := range f.slots {
		if f.slots[i].Type == catalogs.ResourceNone {
			continue
		}
		f.g.CancelTransportedResource(f.slots[i].Type, f.slots[i].Dest)
		f.g.LoseResource(f.slots[i].Type)
		f.slots[i] = emptySlot()
	}
	f.endPoint &^= endPointUnscheduled
}
