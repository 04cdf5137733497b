package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// roadTarget returns the destination flag and mode of a serf on its way to
// a road or building, if it has one.
func (s *Serf) roadTarget() (dest *uint32, mode *int) {
	switch s.state {
	case model.StateWalking:
		w := s.walking()
		return &w.Dest, &w.Mode
	case model.StateReadyToLeaveInventory:
		r := s.payload.(*model.ReadyToLeaveInventory)
		return &r.Dest, &r.Mode
	case model.StateLeavingBuilding, model.StateReadyToLeave:
		l := s.leaving()
		if l.NextState == model.StateWalking {
			return &l.Dest, &l.Mode
		}
	}
	return nil, nil
}

// IsRelatedTo reports whether the serf is on its way to take over the road
// leaving flag dest in direction dir.
func (s *Serf) IsRelatedTo(dest uint32, dir geom.Direction) bool {
	d, m := s.roadTarget()
	return d != nil && *d == dest && *m == int(dir)
}

// PathDeleted sends a serf heading for the deleted road to an inventory.
func (s *Serf) PathDeleted(dest uint32, dir geom.Direction) {
	if d, m := s.roadTarget(); d != nil && *d == dest && *m == int(dir) {
		*d = 0
		*m = model.WalkToInventory
	}
}

// PathMerged sends serfs heading for the removed flag to an inventory.
func (s *Serf) PathMerged(flag uint32) {
	if d, m := s.roadTarget(); d != nil && *d == flag {
		*d = 0
		*m = model.WalkToInventory
	}
}

// PathMergedInto handles a serf that was walking to one end of a road that
// has been joined with another. The road still needs a transporter, so the
// serf is pointed at the surviving end f1.
func (s *Serf) PathMergedInto(f1 uint32, d1 geom.Direction, f2 uint32, d2 geom.Direction) {
	d, m := s.roadTarget()
	if d == nil {
		return
	}
	if (*d == f1 && *m == int(d1)) || (*d == f2 && *m == int(d2)) {
		*d = f1
		*m = int(d1)
	}
}

// PathSplit is called for a serf related to a road that a new flag cut in
// two. sel tells which part the serf should take: 0 the part at f1, 1 the
// part at f2. ok is false when the serf was not headed for either end.
func (s *Serf) PathSplit(f1 uint32, d1 geom.Direction, f2 uint32, d2 geom.Direction) (sel int, ok bool) {
	d, m := s.roadTarget()
	if d == nil {
		return 0, false
	}
	switch {
	case *d == f1 && *m == int(d1):
		return 0, true
	case *d == f2 && *m == int(d2):
		return 1, true
	}
	return 0, false
}

// ClearDestination makes serfs returning to flag dest look for another
// inventory.
func (s *Serf) ClearDestination(dest uint32) {
	if d, m := s.roadTarget(); d != nil && *d == dest && *m == model.WalkToInventory {
		*d = 0
	}
}

// ResetTransport forgets flag as the destination of anything the serf
// carries or walks to.
func (s *Serf) ResetTransport(flag *Flag) {
	switch s.state {
	case model.StateWalking:
		w := s.walking()
		if w.Dest == flag.index && w.Mode == model.WalkToInventory {
			w.Dest = 0
		}
	case model.StateReadyToLeaveInventory:
		r := s.payload.(*model.ReadyToLeaveInventory)
		if r.Dest == flag.index && r.Mode == model.WalkToInventory {
			r.Dest = 0
		}
	case model.StateLeavingBuilding, model.StateReadyToLeave:
		l := s.leaving()
		if l.Dest == flag.index && l.NextState == model.StateWalking && l.Mode == model.WalkToInventory {
			l.Dest = 0
		}
	case model.StateTransporting, model.StateDelivering:
		t := s.transporting()
		if t.Res != catalogs.ResourceNone && t.Dest == flag.index {
			t.Dest = 0
		}
	case model.StateMoveResourceOut, model.StateDropResourceOut:
		mo := s.moveOut()
		if mo.Res != catalogs.ResourceNone && mo.ResDest == flag.index {
			mo.ResDest = 0
		}
	}
}

// ChangeTransporterStateAtPos moves a parked or waking transporter at pos
// to state st. It reports whether the serf was affected.
func (s *Serf) ChangeTransporterStateAtPos(pos gamemap.Pos, st model.State) bool {
	if s.pos != pos || !s.isParked() {
		return false
	}
	s.setState(st)
	return true
}

// becomeLost starts the lost search for a serf standing on the map.
func (s *Serf) becomeLost() {
	if s.typ == catalogs.SerfSailor {
		s.setState(model.StateLostSailor)
		s.freeWalking().NegDist1 = model.FreeWalkLost
		return
	}
	s.setState(model.StateLost)
}

// SetLostState abandons whatever the serf was doing. Requests it was
// fulfilling are cancelled and anything carried is lost.
func (s *Serf) SetLostState() {
	g := s.g
	switch s.state {
	case model.StateWalking:
		w := s.walking()
		switch {
		case w.Mode >= 0 && w.Mode < geom.DirCount:
			if f := g.flags.get(w.Dest); f != nil {
				d := geom.Direction(w.Mode)
				f.cancelSerfRequest(d)
				if o := f.OtherEndFlag(d); o != nil {
					o.cancelSerfRequest(f.OtherEndDir(d))
				}
			}
		case w.Mode == model.WalkEnterBuilding:
			if f := g.flags.get(w.Dest); f != nil {
				if b := f.Building(); b != nil {
					b.requestedSerfLost()
				}
			}
		}
	case model.StateTransporting, model.StateDelivering:
		if t := s.transporting(); t.Res != catalogs.ResourceNone {
			g.CancelTransportedResource(t.Res, t.Dest)
			g.LoseResource(t.Res)
		}
	case model.StateMoveResourceOut, model.StateDropResourceOut:
		if mo := s.moveOut(); mo.Res != catalogs.ResourceNone {
			g.CancelTransportedResource(mo.Res, mo.ResDest)
			g.LoseResource(mo.Res)
		}
	case model.StateIdleOnPath, model.StateWaitIdleOnPath, model.StateWakeOnPath:
		s.setState(model.StateWakeAtFlag)
		return
	case model.StateWakeAtFlag, model.StateLost, model.StateLostSailor:
		return
	default:
		if fw := s.freeWalking(); fw != nil && fw.Res != catalogs.ResourceNone {
			g.LoseResource(fw.Res)
		}
	}
	g.releaseWorker(s)
	s.becomeLost()
}

// releaseWorker detaches s from any building that counts on it.
func (g *Game) releaseWorker(s *Serf) {
	g.buildings.each(func(_ uint32, b *Building) {
		if b.serf == s.index {
			b.serf = 0
		}
	})
}
