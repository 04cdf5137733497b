package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// geologistSamples is how many spots a geologist samples per trip.
const geologistSamples = 8

func (s *Serf) handleWalking() {
	for s.counter < 0 && s.state == model.StateWalking {
		if s.walking().Waiting {
			s.retryWaiting(false)
			continue
		}
		s.walkStep()
	}
}

func (s *Serf) walkStep() {
	g := s.g
	w := s.walking()
	if !g.m.HasFlag(s.pos) {
		d := s.onwardDir(w.Dir)
		if !d.Valid() {
			s.SetLostState()
			return
		}
		s.changeDirection(d, false)
		return
	}

	f := g.FlagAt(s.pos)
	if w.Dest == 0 {
		inv := f.FindNearestInventoryForSerf()
		if inv == nil {
			s.SetLostState()
			return
		}
		w.Dest = inv.index
		w.Mode = model.WalkToInventory
	}
	if f.index == w.Dest {
		s.walkingDestReached(f)
		return
	}
	d, ok := s.routeFrom(f, w.Dest)
	if !ok {
		s.SetLostState()
		return
	}
	s.changeDirection(d, false)
}

// routeFrom finds the land road at f that leads towards flag dest.
func (s *Serf) routeFrom(f *Flag, dest uint32) (geom.Direction, bool) {
	search := NewFlagSearch(s.g)
	f.searchNum = search.ID()
	for _, d := range geom.CycleCW {
		if !f.HasPath(d) || f.IsWaterPath(d) {
			continue
		}
		o := f.OtherEndFlag(d)
		if o == nil || o.searchNum == search.ID() {
			continue
		}
		o.searchDir = d
		search.AddSource(o)
	}
	dir := geom.DirNone
	search.Execute(func(o *Flag, _ int) bool {
		if o.index != dest {
			return false
		}
		dir = o.searchDir
		return true
	}, true, false)
	return dir, dir.Valid()
}

func (s *Serf) walkingDestReached(f *Flag) {
	w := s.walking()
	switch {
	case w.Mode == model.WalkEnterBuilding:
		b := f.Building()
		if b == nil || b.burning {
			w.Dest = 0
			w.Mode = model.WalkToInventory
			return
		}
		b.requestedSerfReached(s)
		s.enterBuilding(model.WalkEnterBuilding, catalogs.ResourceNone, model.StateNull)

	case w.Mode == model.WalkToInventory:
		b := f.Building()
		if b == nil || b.burning || !f.AcceptsSerfs() {
			w.Dest = 0
			return
		}
		s.enterBuilding(model.WalkToInventory, catalogs.ResourceNone, model.StateNull)

	case w.Mode == model.WalkGeologist:
		s.setState(model.StateLookingForGeoSpot)
		s.freeWalking().Flags = geologistSamples

	default:
		d := geom.Direction(w.Mode)
		other := f.OtherEndFlag(d)
		if !d.Valid() || other == nil {
			w.Dest = 0
			w.Mode = model.WalkToInventory
			return
		}
		f.completeSerfRequest(d)
		other.completeSerfRequest(f.OtherEndDir(d))
		s.setState(model.StateTransporting)
		s.transporting().Dir = d
		s.transporterMoveToFlag(f)
	}
}

// GoOutFromInventory sends an idle serf out of inventory inv, walking to
// flag dest in the given mode.
func (s *Serf) GoOutFromInventory(inv, dest uint32, mode int) {
	s.setState(model.StateReadyToLeaveInventory)
	r := s.payload.(*model.ReadyToLeaveInventory)
	r.Mode = mode
	r.Dest = dest
	r.Inventory = inv
}

// GoOutFromBuilding walks a serf out of the building it is in and on to
// flag dest (0 for the nearest inventory).
func (s *Serf) GoOutFromBuilding(dest uint32, mode int) {
	l := s.goOut(model.StateWalking)
	l.Dest = dest
	l.Mode = mode
}

func (s *Serf) handleReadyToLeaveInventory() {
	if s.counter >= 0 {
		return
	}
	m := s.g.m
	if m.HasSerf(s.pos) || m.HasSerf(m.Move(s.pos, dirBuildingToFlag)) {
		s.counter = waitTicks
		return
	}
	r := s.payload.(*model.ReadyToLeaveInventory)
	s.GoOutFromBuilding(r.Dest, r.Mode)
}
