package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

const (
	deliverTicks = 16
	// surplusVisits is how many idle flag visits a transporter on an
	// overstaffed road makes before leaving it.
	surplusVisits = 3
)

func (s *Serf) handleTransporting() {
	for s.counter < 0 && s.state == model.StateTransporting {
		if s.transporting().Waiting {
			s.retryWaiting(true)
			continue
		}
		s.transportStep()
	}
}

func (s *Serf) transportStep() {
	g := s.g
	m := g.m
	t := s.transporting()

	if m.HasFlag(s.pos) {
		f := g.FlagAt(s.pos)
		switch {
		case t.Surplus < 0:
			s.setState(model.StateWalking)
			w := s.walking()
			w.Dest = 0
			w.Mode = model.WalkToInventory
		case t.Res != catalogs.ResourceNone && t.Dest == f.index:
			s.startDelivering(f)
		default:
			s.transporterMoveToFlag(f)
		}
		return
	}

	d := s.onwardDir(t.Dir)
	if !d.Valid() {
		s.SetLostState()
		return
	}
	if t.Res == catalogs.ResourceNone && t.Surplus >= 0 {
		if f := g.FlagAt(m.Move(s.pos, d)); f != nil {
			rev := d.Reverse()
			if f.HasPath(rev) && !f.IsScheduled(rev) {
				other := f.OtherEndFlag(rev)
				od := f.OtherEndDir(rev)
				if f.FreeTransporterCount(rev) > 1 {
					t.Surplus++
					if t.Surplus > surplusVisits {
						f.transporterToServe(rev)
						if other != nil {
							other.transporterToServe(od)
						}
						t.Surplus = -1
					}
				} else if other != nil && !other.IsScheduled(od) {
					s.parkOnPath(f, rev)
					return
				}
			}
		}
	}
	s.changeDirection(d, true)
}

// transporterMoveToFlag trades loads at flag f and heads back onto the
// road in the served direction.
func (s *Serf) transporterMoveToFlag(f *Flag) {
	t := s.transporting()
	d := t.Dir
	if f.IsScheduled(d) {
		t.Surplus = 0
		res, dest := t.Res, t.Dest
		if nr, nd, ok := f.PickUpResource(f.ScheduledSlot(d)); ok {
			t.Res, t.Dest = nr, nd
			if res != catalogs.ResourceNone && !f.DropResource(res, dest) {
				s.g.CancelTransportedResource(res, dest)
				s.g.LoseResource(res)
			}
		}
		f.PrioritizePickup(d, s.g.Player(f.Owner()))
	} else if t.Res != catalogs.ResourceNone {
		if f.DropResource(t.Res, t.Dest) {
			t.Res = catalogs.ResourceNone
			t.Dest = 0
		}
	}
	s.changeDirection(d, true)
}

func (s *Serf) startDelivering(f *Flag) {
	if b := f.Building(); b == nil || b.burning {
		s.transporting().Dest = 0
		s.transporterMoveToFlag(f)
		return
	}
	s.setState(model.StateDelivering)
	s.transporting().WaitCounter = 0
	s.counter = deliverTicks
}

// handleDelivering hands the load in at the building door, then returns to
// the flag to carry on.
func (s *Serf) handleDelivering() {
	if s.counter >= 0 {
		return
	}
	g := s.g
	t := s.transporting()
	f := g.FlagAt(s.pos)
	if f == nil {
		s.SetLostState()
		return
	}
	if t.WaitCounter == 0 {
		if t.Res != catalogs.ResourceNone {
			b := f.Building()
			if b == nil || b.burning || !b.requestedResourceDelivered(t.Res) {
				if !f.DropResource(t.Res, 0) {
					g.LoseResource(t.Res)
				}
			}
			t.Res = catalogs.ResourceNone
			t.Dest = 0
		}
		t.WaitCounter = 1
		s.counter += deliverTicks
		return
	}
	t.WaitCounter = 0
	s.setState(model.StateTransporting)
	if f.HasPath(t.Dir) {
		s.transporterMoveToFlag(f)
		return
	}
	s.SetLostState()
}

// parkOnPath takes an idle transporter off the serf index next to flag f.
func (s *Serf) parkOnPath(f *Flag, rev geom.Direction) {
	m := s.g.m
	m.SetSerfIndex(s.pos, 0)
	m.SetIdleSerf(s.pos, true)
	s.setState(model.StateIdleOnPath)
	p := s.idleOnPath()
	p.RevDir = rev
	p.Flag = f.index
}

func (s *Serf) handleIdleOnPath() {
	p := s.idleOnPath()
	f := s.g.flags.get(p.Flag)
	if f == nil || !f.HasPath(p.RevDir) {
		s.setState(model.StateWakeAtFlag)
		return
	}
	toFlag := p.RevDir.Reverse()
	if f.IsScheduled(p.RevDir) {
		p.ResumeDir = geom.DirNone
		paths := s.g.m.Paths(s.pos) &^ toFlag.Bit()
		for _, d := range geom.CycleCW {
			if paths&d.Bit() != 0 {
				p.ResumeDir = d
				break
			}
		}
	} else {
		other := f.OtherEndFlag(p.RevDir)
		if other == nil || !other.IsScheduled(f.OtherEndDir(p.RevDir)) {
			return
		}
		p.ResumeDir = toFlag
	}
	s.resumeFromPath()
}

func (s *Serf) handleWaitIdleOnPath() { s.resumeFromPath() }

// resumeFromPath puts a parked transporter back on the serf index once
// its tile is free.
func (s *Serf) resumeFromPath() {
	m := s.g.m
	if m.HasSerf(s.pos) {
		if s.state != model.StateWaitIdleOnPath {
			s.setState(model.StateWaitIdleOnPath)
		}
		return
	}
	dir := s.idleOnPath().ResumeDir
	m.SetIdleSerf(s.pos, false)
	m.SetSerfIndex(s.pos, s.index)
	if !dir.Valid() {
		s.SetLostState()
		return
	}
	s.setState(model.StateTransporting)
	s.transporting().Dir = dir
}

func (s *Serf) handleWakeAtFlag() {
	m := s.g.m
	if m.HasSerf(s.pos) {
		return
	}
	m.SetIdleSerf(s.pos, false)
	m.SetSerfIndex(s.pos, s.index)
	s.becomeLost()
}

func (s *Serf) handleWakeOnPath() {
	p := s.idleOnPath()
	p.ResumeDir = geom.DirNone
	for _, d := range geom.CycleCCW {
		if s.g.m.HasPath(s.pos, d) {
			p.ResumeDir = d
			break
		}
	}
	s.setState(model.StateWaitIdleOnPath)
}

// leaveRoad takes a transporter off a road that no longer needs it.
func (s *Serf) leaveRoad() {
	if s.isParked() {
		s.setState(model.StateWakeAtFlag)
		return
	}
	if t := s.transporting(); t != nil && s.state == model.StateTransporting && t.Res == catalogs.ResourceNone {
		t.Surplus = -1
		return
	}
	s.SetLostState()
}
