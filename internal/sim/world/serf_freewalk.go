package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

const (
	fieldWorkTicks = 128
	lostRetryTicks = 64
	stuckLimit     = 128
	stuckLimitHome = 512

	workRadius  = 6
	planTries   = 8
	geoRadius   = 4
	lostProbes  = 258
	lostRandMax = 200
)

func (s *Serf) handleFreeWalking() {
	st := s.state
	water := st == model.StateFreeSailing || st == model.StateLostSailor
	for s.counter < 0 && s.state == st {
		fw := s.freeWalking()
		if fw.Dist1 == 0 && fw.Dist2 == 0 {
			s.freeWalkArrived(fw)
			return
		}
		if st == model.StateKnightFreeWalking && s.knightMeetsDefender(fw) {
			return
		}
		limit := stuckLimit
		if fw.Returning || fw.NegDist1 == model.FreeWalkHome {
			limit = stuckLimitHome
		}
		d, blocked := s.nextFreeStep(fw, water)
		if !d.Valid() {
			s.SetLostState()
			return
		}
		if blocked && !s.swapFree(d) {
			fw.Waiting, fw.WaitDir = true, d
			if fw.Stuck++; fw.Stuck > limit {
				s.SetLostState()
				return
			}
			s.counter += waitTicks
			continue
		}
		fw.Waiting = false
		if fw.Hand != 0 {
			if fw.Stuck++; fw.Stuck > limit {
				s.SetLostState()
				return
			}
		} else {
			fw.Stuck = 0
		}
		oc, or := gamemap.Offset(d)
		fw.Dist1 -= oc
		fw.Dist2 -= or
		s.freeMove(d)
	}
}

func (s *Serf) freeWalkArrived(fw *model.FreeWalking) {
	switch {
	case fw.NegDist1 == model.FreeWalkLost:
		s.lostArrived()
	case fw.NegDist1 == model.FreeWalkAttack:
		s.attackArrived(fw)
	case fw.NegDist1 == model.FreeWalkHome:
		s.homeArrived(fw)
	case fw.Returning:
		s.workerHome(fw)
	default:
		s.startFieldWork()
	}
}

// startFreeWalk sends a serf standing on the map off-road by (d1, d2)
// with a marker telling what to do on arrival.
func (s *Serf) startFreeWalk(d1, d2, marker int) {
	st := model.StateFreeWalking
	switch {
	case s.typ == catalogs.SerfSailor:
		st = model.StateFreeSailing
	case s.typ.IsKnight():
		st = model.StateKnightFreeWalking
	}
	s.setState(st)
	fw := s.freeWalking()
	fw.StartLeg(d1, d2)
	fw.NegDist1 = marker
}

// lostArrived ends a lost walk: on an own flag the serf heads for an
// inventory, anywhere else it keeps looking.
func (s *Serf) lostArrived() {
	if f := s.g.FlagAt(s.pos); f != nil && f.Owner() == s.player {
		s.setState(model.StateWalking)
		w := s.walking()
		w.Dest = 0
		w.Mode = model.WalkToInventory
		return
	}
	s.becomeLost()
	if l, ok := s.payload.(*model.Lost); ok {
		l.Far = true
	}
}

// lostTarget is a reachable flag of the serf's player within the spiral.
func (s *Serf) lostTarget(far bool) (gamemap.Pos, bool) {
	m := s.g.m
	for i := 0; i < lostProbes; i++ {
		k := 1 + i
		if far {
			k = lostProbes - i
		}
		p := m.PosAddSpirally(s.pos, k)
		if !m.HasFlag(p) || m.Owner(p) != s.player {
			continue
		}
		f := s.g.FlagAt(p)
		if f != nil && (f.LandPaths() != 0 || (f.HasInventory() && f.AcceptsSerfs())) {
			return p, true
		}
	}
	return gamemap.BadPos, false
}

func (s *Serf) handleLost() {
	if s.counter >= 0 {
		return
	}
	m := s.g.m
	l := s.payload.(*model.Lost)
	if p, ok := s.lostTarget(l.Far); ok {
		s.startFreeWalk(m.DistX(s.pos, p), m.DistY(s.pos, p), model.FreeWalkLost)
		return
	}
	size, tries := 16, 10
	for i := 0; i < lostRandMax; i++ {
		if tries--; tries < 0 {
			tries = 19
			if size < 64 {
				size *= 2
			} else {
				size = 16
			}
		}
		r := int(s.g.RandomInt())
		dc := (r & (size - 1)) - size/2
		dr := ((r >> 8) & (size - 1)) - size/2
		p := m.PosAdd(s.pos, dc, dr)
		if (m.Object(p) == gamemap.ObjectNone && !m.IsInWater(p)) || (m.HasFlag(p) && m.Owner(p) == s.player) {
			s.startFreeWalk(dc, dr, model.FreeWalkLost)
			return
		}
	}
	s.counter = lostRetryTicks
}

func (s *Serf) handleLostSailor() {
	if s.counter >= 0 {
		return
	}
	m := s.g.m
	if p, ok := s.lostTarget(false); ok {
		s.startFreeWalk(m.DistX(s.pos, p), m.DistY(s.pos, p), model.FreeWalkLost)
		return
	}
	for i := 0; i < lostRandMax; i++ {
		r := int(s.g.RandomInt())
		dc := (r & 31) - 16
		dr := ((r >> 8) & 31) - 16
		if m.IsInWater(m.PosAdd(s.pos, dc, dr)) {
			s.startFreeWalk(dc, dr, model.FreeWalkLost)
			return
		}
	}
	s.counter = lostRetryTicks
}

// isWorkSpot reports whether p is worth walking to from planning state st.
func (s *Serf) isWorkSpot(st model.State, p gamemap.Pos) bool {
	m := s.g.m
	obj := m.Object(p)
	free := obj == gamemap.ObjectNone && m.Paths(p) == 0 && !m.IsWaterTile(p) && m.Owner(p) == s.player
	switch st {
	case model.StatePlanningLogging:
		return obj.IsTree()
	case model.StatePlanningStoneCutting:
		return obj.IsStone()
	case model.StatePlanningPlanting:
		return free
	case model.StatePlanningFarming:
		return obj.IsField() || free
	case model.StatePlanningFishing:
		if m.IsInWater(p) || !obj.Walkable() || m.HasSerf(p) {
			return false
		}
		for _, d := range geom.CycleCW {
			if min, n := m.Mineral(m.Move(p, d)); min == gamemap.MineralFish && n > 0 {
				return true
			}
		}
	}
	return false
}

// handlePlanning picks a spot around the building and sends the worker
// out to it.
func (s *Serf) handlePlanning() {
	if s.counter >= 0 {
		return
	}
	b := s.building()
	if b == nil || b.burning {
		s.setState(model.StateEscapeBuilding)
		return
	}
	m := s.g.m
	fpos := m.Move(b.pos, dirBuildingToFlag)
	n := gamemap.SpiralRingStart(workRadius + 1)
	for i := 0; i < planTries; i++ {
		p := m.PosAddSpirally(b.pos, 1+int(s.g.RandomInt())%(n-1))
		if p == fpos || !s.isWorkSpot(s.state, p) {
			continue
		}
		next := model.StateFreeWalking
		if s.state == model.StatePlanningStoneCutting {
			next = model.StateStoneCutterFreeWalking
		}
		l := s.goOut(next)
		l.Dist1 = m.DistX(fpos, p)
		l.Dist2 = m.DistY(fpos, p)
		return
	}
	s.counter = planTicks
}

func (s *Serf) startFieldWork() {
	var st model.State
	switch s.typ {
	case catalogs.SerfLumberjack:
		st = model.StateLogging
	case catalogs.SerfForester:
		st = model.StatePlanting
	case catalogs.SerfStonecutter:
		st = model.StateStoneCutting
	case catalogs.SerfFisher:
		st = model.StateFishing
	case catalogs.SerfFarmer:
		st = model.StateFarming
	case catalogs.SerfGeologist:
		st = model.StateSamplingGeoSpot
	default:
		s.SetLostState()
		return
	}
	s.setState(st)
	s.counter = fieldWorkTicks
}

var signs = map[gamemap.Mineral][2]gamemap.Object{
	gamemap.MineralGold:  {gamemap.ObjectSignSmallGold, gamemap.ObjectSignLargeGold},
	gamemap.MineralIron:  {gamemap.ObjectSignSmallIron, gamemap.ObjectSignLargeIron},
	gamemap.MineralCoal:  {gamemap.ObjectSignSmallCoal, gamemap.ObjectSignLargeCoal},
	gamemap.MineralStone: {gamemap.ObjectSignSmallStone, gamemap.ObjectSignLargeStone},
}

// handleFieldWork does the job at the spot, then heads home.
func (s *Serf) handleFieldWork() {
	if s.counter >= 0 {
		return
	}
	g := s.g
	m := g.m
	fw := s.freeWalking()
	obj := m.Object(s.pos)
	switch s.state {
	case model.StateLogging:
		if obj.IsTree() {
			m.SetObject(s.pos, gamemap.ObjectStub, 0)
			fw.Res = catalogs.Lumber
		}
	case model.StatePlanting:
		if obj == gamemap.ObjectNone {
			sapling := gamemap.ObjectNewTree
			if g.RandomInt()&1 != 0 {
				sapling = gamemap.ObjectNewPine
			}
			m.SetObject(s.pos, sapling, 0)
		}
	case model.StateStoneCutting:
		if obj.IsStone() {
			if obj == gamemap.ObjectStone0 {
				m.SetObject(s.pos, gamemap.ObjectNone, 0)
			} else {
				m.SetObject(s.pos, obj-1, 0)
			}
			fw.Res = catalogs.Stone
		}
	case model.StateFishing:
		for _, d := range geom.CycleCW {
			if m.RemoveMineral(m.Move(s.pos, d), gamemap.MineralFish) {
				fw.Res = catalogs.Fish
				break
			}
		}
	case model.StateFarming:
		switch {
		case obj.IsField():
			m.SetObject(s.pos, gamemap.ObjectFieldExpired, 0)
			fw.Res = catalogs.Wheat
		case obj == gamemap.ObjectNone:
			m.SetObject(s.pos, gamemap.ObjectSeeds0, 0)
		}
	case model.StateSamplingGeoSpot:
		if obj == gamemap.ObjectNone {
			sign := gamemap.ObjectSignEmpty
			if min, n := m.Mineral(s.pos); n > 0 {
				if pair, ok := signs[min]; ok {
					sign = pair[0]
					if n >= 8 {
						sign = pair[1]
					}
				}
			}
			m.SetObject(s.pos, sign, 0)
		}
		fw.Flags--
		s.setState(model.StateLookingForGeoSpot)
		return
	}
	s.returnHome(fw)
}

// returnHome turns a worker around towards the flag it came from.
func (s *Serf) returnHome(fw *model.FreeWalking) {
	fw.StartLeg(fw.NegDist1, fw.NegDist2)
	fw.NegDist1, fw.NegDist2 = 0, 0
	fw.Returning = true
	next := model.StateFreeWalking
	if s.typ == catalogs.SerfStonecutter {
		next = model.StateStoneCutterFreeWalking
	}
	s.setState(next)
}

// workerHome is a worker back on its flag. With its building still there
// it goes in with what it found; otherwise the find is left at the flag.
func (s *Serf) workerHome(fw *model.FreeWalking) {
	g := s.g
	f := g.FlagAt(s.pos)
	res := fw.Res
	fw.Res = catalogs.ResourceNone
	var b *Building
	if f != nil {
		b = f.Building()
	}
	if s.typ != catalogs.SerfGeologist && b != nil && !b.burning && b.serf == s.index {
		s.enterBuilding(0, res, model.StateNull)
		return
	}
	if res != catalogs.ResourceNone && (f == nil || !f.DropResource(res, 0)) {
		g.LoseResource(res)
	}
	if f == nil {
		s.SetLostState()
		return
	}
	g.releaseWorker(s)
	s.setState(model.StateWalking)
	w := s.walking()
	w.Dest = 0
	w.Mode = model.WalkToInventory
}

// handleLookingForGeoSpot picks the next spot around the flag, or heads
// back once all samples are taken. NegDist tracks the way to the flag.
func (s *Serf) handleLookingForGeoSpot() {
	if s.counter >= 0 {
		return
	}
	fw := s.freeWalking()
	if fw.Flags <= 0 {
		s.returnHome(fw)
		return
	}
	r := int(s.g.RandomInt())
	tc := (r & (2*geoRadius - 1)) - geoRadius
	tr := ((r >> 8) & (2*geoRadius - 1)) - geoRadius
	fw.StartLeg(tc+fw.NegDist1, tr+fw.NegDist2)
	fw.NegDist1, fw.NegDist2 = -tc, -tr
	s.setState(model.StateFreeWalking)
}
