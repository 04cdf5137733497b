package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

const (
	planTicks        = 64
	digTicks         = 16
	buildTicks       = 24
	buildStepsPerRes = 8
	castleSteps      = 64
	castleStepTicks  = 16
	holderIdleTicks  = 32
)

// enterBuilding walks a serf standing on a flag into the building behind
// it. mode, res and next say what it does once inside.
func (s *Serf) enterBuilding(mode int, res catalogs.Resource, next model.State) {
	s.setState(model.StateReadyToEnter)
	e := s.entering()
	e.Mode = mode
	e.Res = res
	e.NextState = next
	s.tryEnter()
}

func (s *Serf) tryEnter() {
	m := s.g.m
	bpos := m.Move(s.pos, dirFlagToBuilding)
	if m.HasSerf(bpos) {
		s.counter = waitTicks
		return
	}
	step := s.g.stepTicks(s.pos, bpos)
	m.SetSerfIndex(s.pos, 0)
	s.pos = bpos
	m.SetSerfIndex(bpos, s.index)
	s.setState(model.StateEnteringBuilding)
	s.counter = step
}

func (s *Serf) handleReadyToEnter() {
	if s.counter < 0 {
		s.tryEnter()
	}
}

func (s *Serf) handleEnteringBuilding() {
	if s.counter >= 0 {
		return
	}
	m := s.g.m
	if m.SerfIndex(s.pos) == s.index {
		m.SetSerfIndex(s.pos, 0)
	}
	e := *s.entering()
	b := s.building()
	if b == nil || b.burning {
		if e.Res != catalogs.ResourceNone {
			s.g.LoseResource(e.Res)
		}
		s.setState(model.StateEscapeBuilding)
		return
	}
	switch {
	case e.Res != catalogs.ResourceNone:
		next := e.NextState
		if next == model.StateNull {
			next = workState(b.typ)
		}
		s.pushOut(e.Res, 0, next)
	case e.NextState != model.StateNull:
		s.setState(e.NextState)
	case e.Mode == model.WalkToInventory:
		inv := s.g.inventories.get(b.inventory)
		if inv == nil {
			s.setState(model.StateEscapeBuilding)
			return
		}
		inv.serfEnter(s)
	default:
		s.startWork(b)
	}
}

// workState is the first state of a worker inside a building of type t.
func workState(t catalogs.BuildingType) model.State {
	switch t {
	case catalogs.BuildingFisher:
		return model.StatePlanningFishing
	case catalogs.BuildingLumberjack:
		return model.StatePlanningLogging
	case catalogs.BuildingStonecutter:
		return model.StatePlanningStoneCutting
	case catalogs.BuildingForester:
		return model.StatePlanningPlanting
	case catalogs.BuildingFarm:
		return model.StatePlanningFarming
	case catalogs.BuildingStoneMine, catalogs.BuildingCoalMine, catalogs.BuildingIronMine, catalogs.BuildingGoldMine:
		return model.StateMining
	case catalogs.BuildingSawmill:
		return model.StateSawing
	case catalogs.BuildingMill:
		return model.StateMilling
	case catalogs.BuildingBaker:
		return model.StateBaking
	case catalogs.BuildingPigFarm:
		return model.StatePigFarming
	case catalogs.BuildingButcher:
		return model.StateButchering
	case catalogs.BuildingToolMaker:
		return model.StateMakingTool
	case catalogs.BuildingWeaponSmith:
		return model.StateMakingWeapon
	case catalogs.BuildingBoatBuilder:
		return model.StateBuildingBoat
	case catalogs.BuildingSteelSmelter, catalogs.BuildingGoldSmelter:
		return model.StateSmelting
	case catalogs.BuildingStock, catalogs.BuildingCastle:
		return model.StateWaitForResourceOut
	}
	return model.StateNull
}

// startWork sets a serf that has just arrived inside b to its job.
func (s *Serf) startWork(b *Building) {
	m := s.g.m
	if !b.done {
		switch {
		case s.typ == catalogs.SerfDigger && !b.leveled:
			s.setState(model.StateDigging)
			sum := m.Height(b.pos)
			for _, d := range geom.CycleCW {
				sum += m.Height(m.Move(b.pos, d))
			}
			s.payload.(*model.Digging).TargetH = (sum + 3) / 7
		case s.typ == catalogs.SerfBuilder && b.leveled:
			s.setState(model.StateBuilding)
			s.payload.(*model.Building).Building = b.index
		default:
			s.GoOutFromBuilding(0, model.WalkToInventory)
		}
		return
	}
	if b.typ.IsMilitary() {
		if s.typ.IsKnight() {
			b.addKnight(s)
			return
		}
		s.GoOutFromBuilding(0, model.WalkToInventory)
		return
	}
	st := workState(b.typ)
	if st == model.StateNull || s.typ != b.typ.Def().Worker {
		s.GoOutFromBuilding(0, model.WalkToInventory)
		return
	}
	b.serf = s.index
	s.setState(st)
	s.counter = planTicks
}

// goOut starts leaving the building; the caller fills in the payload.
func (s *Serf) goOut(next model.State) *model.LeavingBuilding {
	s.setState(model.StateReadyToLeave)
	l := s.leaving()
	*l = model.LeavingBuilding{NextState: next}
	return l
}

func (s *Serf) handleReadyToLeave() {
	if s.counter >= 0 {
		return
	}
	m := s.g.m
	if m.HasSerf(s.pos) {
		s.counter = waitTicks
		return
	}
	m.SetSerfIndex(s.pos, s.index)
	step := s.g.stepTicks(s.pos, m.Move(s.pos, dirBuildingToFlag))
	s.setState(model.StateLeavingBuilding)
	s.counter = step
}

func (s *Serf) handleLeavingBuilding() {
	if s.counter >= 0 {
		return
	}
	m := s.g.m
	fpos := m.Move(s.pos, dirBuildingToFlag)
	if m.HasSerf(fpos) {
		s.counter = waitTicks
		return
	}
	m.SetSerfIndex(s.pos, 0)
	s.pos = fpos
	m.SetSerfIndex(fpos, s.index)
	s.continueAfterLeaving(*s.leaving())
}

// continueAfterLeaving starts what the serf left the building for.
func (s *Serf) continueAfterLeaving(l model.LeavingBuilding) {
	switch l.NextState {
	case model.StateWalking:
		s.setState(model.StateWalking)
		w := s.walking()
		w.Dest = l.Dest
		w.Mode = l.Mode
		w.Dir = dirFlagToBuilding
	case model.StateFreeWalking, model.StateStoneCutterFreeWalking:
		s.setState(l.NextState)
		fw := s.freeWalking()
		fw.StartLeg(l.Dist1, l.Dist2)
		fw.NegDist1, fw.NegDist2 = -l.Dist1, -l.Dist2
	case model.StateKnightFreeWalking:
		s.startAttackWalk(l.Dest)
	case model.StateLost:
		s.SetLostState()
	default:
		s.setState(l.NextState)
	}
}

func (s *Serf) handleEscapeBuilding() {
	if s.counter >= 0 {
		return
	}
	m := s.g.m
	if idx := m.SerfIndex(s.pos); idx != 0 && idx != s.index {
		s.counter = waitTicks
		return
	}
	m.SetSerfIndex(s.pos, s.index)
	s.g.releaseWorker(s)
	s.becomeLost()
}

func (s *Serf) handleScatter() {
	if s.counter < 0 {
		s.SetLostState()
	}
}

func (s *Serf) handleFinishedBuilding() {
	if s.counter < 0 {
		s.GoOutFromBuilding(0, model.WalkToInventory)
	}
}

// pushOut carries res out to the flag, then returns to state next.
func (s *Serf) pushOut(res catalogs.Resource, dest uint32, next model.State) {
	s.setState(model.StateMoveResourceOut)
	mo := s.moveOut()
	mo.Res = res
	mo.ResDest = dest
	mo.NextState = next
}

func (s *Serf) handleMoveResourceOut() {
	if s.counter >= 0 {
		return
	}
	g := s.g
	m := g.m
	mo := s.moveOut()
	fpos := m.Move(s.pos, dirBuildingToFlag)
	f := g.FlagAt(fpos)
	if f == nil {
		g.CancelTransportedResource(mo.Res, mo.ResDest)
		g.LoseResource(mo.Res)
		s.setState(model.StateEscapeBuilding)
		return
	}
	if m.HasSerf(s.pos) || m.HasSerf(fpos) || !f.HasEmptySlot() {
		s.counter = waitTicks
		return
	}
	step := g.stepTicks(s.pos, fpos)
	s.pos = fpos
	m.SetSerfIndex(fpos, s.index)
	s.setState(model.StateDropResourceOut)
	s.counter = step
}

func (s *Serf) handleDropResourceOut() {
	if s.counter >= 0 {
		return
	}
	mo := s.moveOut()
	f := s.g.FlagAt(s.pos)
	if f == nil {
		s.SetLostState()
		return
	}
	if !f.DropResource(mo.Res, mo.ResDest) {
		s.counter = waitTicks
		return
	}
	mo.Res = catalogs.ResourceNone
	next := mo.NextState
	if f.Building() == nil {
		s.SetLostState()
		return
	}
	s.enterBuilding(0, catalogs.ResourceNone, next)
}

// handleWaitForResourceOut is the inventory holder waiting for the out
// queue to fill.
func (s *Serf) handleWaitForResourceOut() {
	if s.counter >= 0 {
		return
	}
	b := s.building()
	if b == nil || b.burning {
		s.setState(model.StateEscapeBuilding)
		return
	}
	inv := s.g.inventories.get(b.inventory)
	if inv == nil {
		s.setState(model.StateEscapeBuilding)
		return
	}
	res, dest, ok := inv.popQueue()
	if !ok {
		s.counter = holderIdleTicks
		return
	}
	s.pushOut(res, dest, model.StateWaitForResourceOut)
}

func (s *Serf) handleDigging() {
	m := s.g.m
	for s.counter < 0 && s.state == model.StateDigging {
		b := s.building()
		if b == nil || b.burning {
			s.setState(model.StateEscapeBuilding)
			return
		}
		d := s.payload.(*model.Digging)
		if d.DigPos > geom.DirCount {
			b.leveled = true
			b.serf = 0
			s.setState(model.StateFinishedBuilding)
			return
		}
		p := b.pos
		if d.DigPos > 0 {
			p = m.Move(b.pos, geom.Direction(d.DigPos-1))
		}
		switch h := m.Height(p); {
		case h < d.TargetH:
			m.SetHeight(p, h+1)
		case h > d.TargetH:
			m.SetHeight(p, h-1)
		default:
			d.DigPos++
		}
		s.counter += digTicks
	}
}

func (s *Serf) handleBuilding() {
	for s.counter < 0 && s.state == model.StateBuilding {
		b := s.building()
		if b == nil || b.burning {
			s.setState(model.StateEscapeBuilding)
			return
		}
		p := s.payload.(*model.Building)
		if p.Steps > 0 {
			p.Steps--
			s.counter += buildTicks
			continue
		}
		if b.constructionComplete() {
			b.finishConstruction()
			s.setState(model.StateFinishedBuilding)
			return
		}
		if !b.useConstructionMaterial() {
			s.counter += buildTicks
			continue
		}
		p.Steps = buildStepsPerRes
	}
}

// handleBuildingCastle raises the castle around its future holder.
func (s *Serf) handleBuildingCastle() {
	for s.counter < 0 && s.state == model.StateBuildingCastle {
		b := s.building()
		if b == nil || b.burning {
			s.setState(model.StateEscapeBuilding)
			return
		}
		b.progress++
		if b.progress >= castleSteps {
			b.done = true
			b.serf = s.index
			s.setState(model.StateWaitForResourceOut)
			return
		}
		s.counter += castleStepTicks
	}
}
