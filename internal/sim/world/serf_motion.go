package world

import (
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// walkTicks is the duration of one step indexed by height difference
// (-4..4, downhill first).
var walkTicks = [9]int{18, 20, 22, 26, 32, 38, 46, 56, 68}

const (
	waitTicks       = 16
	waitLoopOffFlag = 10
	waitLoopAtFlag  = 50
	waitChainMax    = 100
)

func (g *Game) stepTicks(from, to gamemap.Pos) int {
	dh := g.m.Height(to) - g.m.Height(from)
	if dh < -4 {
		dh = -4
	} else if dh > 4 {
		dh = 4
	}
	return walkTicks[dh+4]
}

// IsWaiting reports whether the serf is held up by another serf, on a
// road or off it, and the direction it wants to go.
func (s *Serf) IsWaiting() (geom.Direction, bool) {
	switch s.state {
	case model.StateWalking, model.StateTransporting, model.StateDelivering:
	case model.StateFreeWalking, model.StateStoneCutterFreeWalking,
		model.StateKnightFreeWalking, model.StateFreeSailing:
		fw := s.freeWalking()
		if fw == nil || !fw.Waiting {
			return geom.DirNone, false
		}
		return fw.WaitDir, true
	default:
		return geom.DirNone, false
	}
	mo := s.motion()
	if mo == nil || !mo.Waiting {
		return geom.DirNone, false
	}
	return mo.Dir, true
}

// SwitchWaiting makes a waiting serf take its step in direction d at once,
// trading places with the serf coming the other way.
func (s *Serf) SwitchWaiting(d geom.Direction) bool {
	if _, ok := s.IsWaiting(); !ok {
		return false
	}
	if fw := s.freeWalking(); fw != nil {
		oc, or := gamemap.Offset(d)
		fw.Dist1 -= oc
		fw.Dist2 -= or
		fw.Waiting = false
		return true
	}
	mo := s.motion()
	mo.Dir = d.Reverse()
	mo.Waiting = false
	return true
}

// changeDirection steps onto the next road tile in direction d. A serf in
// the way that waits to come here trades places; otherwise this serf waits.
// With altEnd any waiting serf is swapped with.
func (s *Serf) changeDirection(d geom.Direction, altEnd bool) {
	g := s.g
	m := g.m
	mo := s.motion()
	next := m.Move(s.pos, d)
	if m.HasSerf(next) {
		other := g.SerfAt(next)
		od, waiting := other.IsWaiting()
		if !waiting || (od != d.Reverse() && !altEnd) || !other.SwitchWaiting(d.Reverse()) {
			mo.Waiting = true
			mo.Dir = d
			s.counter += waitTicks
			return
		}
		other.pos = s.pos
		m.SetSerfIndex(other.pos, other.index)
		other.counter = g.stepTicks(next, other.pos)
	} else {
		m.SetSerfIndex(s.pos, 0)
	}
	if !m.HasFlag(next) {
		mo.WaitCounter = 0
	}
	mo.Waiting = false
	mo.Dir = d.Reverse()
	s.counter += g.stepTicks(s.pos, next)
	s.pos = next
	m.SetSerfIndex(next, s.index)
}

// retryWaiting tries the blocked step again. Every so often the chain of
// serfs waiting ahead is followed; if it leads back here the serf turns
// around.
func (s *Serf) retryWaiting(altEnd bool) {
	m := s.g.m
	mo := s.motion()
	d := mo.Dir
	mo.WaitCounter++
	if (!m.HasFlag(s.pos) && mo.WaitCounter >= waitLoopOffFlag) || mo.WaitCounter >= waitLoopAtFlag {
		mo.WaitCounter = 0
		p := s.pos
		cd := d
		for i := 0; i < waitChainMax; i++ {
			p = m.Move(p, cd)
			idx := m.SerfIndex(p)
			if idx == 0 {
				break
			}
			if idx == s.index {
				s.changeDirection(d.Reverse(), false)
				return
			}
			od, ok := s.g.serfs.get(idx).IsWaiting()
			if !ok || od == cd.Reverse() {
				break
			}
			cd = od
		}
	}
	s.changeDirection(d, altEnd)
}

// onwardDir is the road leaving the serf's tile other than back.
func (s *Serf) onwardDir(back geom.Direction) geom.Direction {
	paths := s.g.m.Paths(s.pos)
	if back.Valid() {
		paths &^= back.Bit()
	}
	for _, d := range geom.CycleCW {
		if paths&d.Bit() != 0 {
			return d
		}
	}
	return geom.DirNone
}

// hexLen is the step count of a column/row offset.
func hexLen(dc, dr int) int {
	if (dc >= 0) == (dr >= 0) {
		return maxInt(absInt(dc), absInt(dr))
	}
	return absInt(dc) + absInt(dr)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// freeMove steps off-road in direction d.
func (s *Serf) freeMove(d geom.Direction) {
	m := s.g.m
	next := m.Move(s.pos, d)
	if m.SerfIndex(s.pos) == s.index {
		m.SetSerfIndex(s.pos, 0)
	}
	s.counter += s.g.stepTicks(s.pos, next)
	s.pos = next
	m.SetSerfIndex(next, s.index)
}

// canCross reports whether an off-road walker may step on p. Sailors keep
// to open water and flags. The final tile of a walk may hold the object
// the serf works on.
func (s *Serf) canCross(p gamemap.Pos, water, final bool) bool {
	m := s.g.m
	if water {
		return m.IsInWater(p) || m.HasFlag(p)
	}
	if m.IsInWater(p) {
		return false
	}
	if final {
		return !m.HasBuilding(p)
	}
	return m.Object(p).Walkable()
}

// nextFreeStep picks the next off-road step towards the walker's target.
// A step that shortens the way is taken when the ground allows it. When
// the ground is in the way the walker keeps that obstacle on one hand and
// follows its edge until it is closer than where the edge was met. With
// blocked set the step is held up by another serf; DirNone means there is
// no way out at all.
func (s *Serf) nextFreeStep(fw *model.FreeWalking, water bool) (geom.Direction, bool) {
	m := s.g.m
	cur := hexLen(fw.Dist1, fw.Dist2)
	if fw.Hand == 0 || cur < fw.EdgeLen {
		pref, occupied := geom.DirNone, geom.DirNone
		best, bestLen, prefLen := geom.DirNone, cur, cur
		for _, d := range geom.CycleCW {
			oc, or := gamemap.Offset(d)
			nl := hexLen(fw.Dist1-oc, fw.Dist2-or)
			if nl >= cur {
				continue
			}
			if nl < prefLen {
				pref, prefLen = d, nl
			}
			next := m.Move(s.pos, d)
			if nl >= bestLen || !s.canCross(next, water, nl == 0) {
				continue
			}
			if m.HasSerf(next) {
				if !occupied.Valid() {
					occupied = d
				}
				continue
			}
			best, bestLen = d, nl
		}
		switch {
		case best.Valid():
			fw.Hand = 0
			return best, false
		case occupied.Valid():
			return occupied, true
		}
		s.meetEdge(fw, pref, cur, water)
		if fw.Hand == 0 {
			return geom.DirNone, false
		}
	}
	return s.followEdge(fw, water)
}

// meetEdge starts following the obstacle found in direction pref. The
// hand is the side needing fewer turns to get past it, clockwise on a tie.
func (s *Serf) meetEdge(fw *model.FreeWalking, pref geom.Direction, cur int, water bool) {
	m := s.g.m
	open := func(d geom.Direction) bool {
		oc, or := gamemap.Offset(d)
		return s.canCross(m.Move(s.pos, d), water, hexLen(fw.Dist1-oc, fw.Dist2-or) == 0)
	}
	cw, ccw := -1, -1
	for i := 1; i < geom.DirCount && (cw < 0 || ccw < 0); i++ {
		if cw < 0 && open(pref.Turn(i)) {
			cw = i
		}
		if ccw < 0 && open(pref.Turn(-i)) {
			ccw = i
		}
	}
	switch {
	case cw < 0:
		fw.Hand = 0
		return
	case ccw < 0 || cw <= ccw:
		fw.Hand = model.FollowCW
	default:
		fw.Hand = model.FollowCCW
	}
	fw.EdgeLen = cur
	fw.Stuck = 0
	// followEdge starts its scan two turns back from the heading, which
	// makes the first scan start at the obstacle itself.
	fw.Heading = pref.Turn(2 * fw.Hand)
}

// followEdge takes the next step along the obstacle: the scan starts
// turned towards the wall and rotates away from it until the ground
// allows a step.
func (s *Serf) followEdge(fw *model.FreeWalking, water bool) (geom.Direction, bool) {
	m := s.g.m
	start := fw.Heading.Turn(-2 * fw.Hand)
	for i := 0; i < geom.DirCount; i++ {
		d := start.Turn(i * fw.Hand)
		oc, or := gamemap.Offset(d)
		next := m.Move(s.pos, d)
		if !s.canCross(next, water, hexLen(fw.Dist1-oc, fw.Dist2-or) == 0) {
			continue
		}
		if m.HasSerf(next) {
			return d, true
		}
		fw.Heading = d
		return d, false
	}
	return geom.DirNone, false
}

// swapFree trades places with the serf on the tile in direction d when it
// is waiting to step onto this serf's tile.
func (s *Serf) swapFree(d geom.Direction) bool {
	g := s.g
	m := g.m
	next := m.Move(s.pos, d)
	other := g.SerfAt(next)
	if other == nil {
		return false
	}
	od, ok := other.IsWaiting()
	if !ok || od != d.Reverse() || !other.SwitchWaiting(d.Reverse()) {
		return false
	}
	other.pos = s.pos
	m.SetSerfIndex(other.pos, other.index)
	other.counter = g.stepTicks(next, other.pos)
	return true
}
