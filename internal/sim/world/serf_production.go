package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

const (
	productionTicks      = 256
	productionRetryTicks = 64
	miningTicks          = 320
	mineProbes           = 8
	mineRadius           = 2
)

// produce runs one step of a workshop cycle: mode 0 waits for and takes
// the inputs, mode 1 finishes the product and carries it out.
func (s *Serf) produce(mode *int) {
	if s.counter >= 0 {
		return
	}
	b := s.building()
	if b == nil || b.burning {
		s.setState(model.StateEscapeBuilding)
		return
	}
	if *mode == 0 {
		if !b.takeInputs() {
			s.counter = productionRetryTicks
			return
		}
		*mode = 1
		s.counter = productionTicks
		return
	}
	res := b.product()
	if res == catalogs.ResourceNone {
		s.g.fault("serf.production", "building %d (%s) has no product", b.index, b.typ)
	}
	s.pushOut(res, 0, s.state)
}

func (s *Serf) handleProduction() { s.produce(&s.payload.(*model.Production).Mode) }

func (s *Serf) handleSmelting() { s.produce(&s.payload.(*model.Smelting).Mode) }

func mineralFor(t catalogs.BuildingType) gamemap.Mineral {
	switch t {
	case catalogs.BuildingStoneMine:
		return gamemap.MineralStone
	case catalogs.BuildingCoalMine:
		return gamemap.MineralCoal
	case catalogs.BuildingIronMine:
		return gamemap.MineralIron
	case catalogs.BuildingGoldMine:
		return gamemap.MineralGold
	}
	return gamemap.MineralNone
}

// handleMining eats one food, then digs at a few random spots under the
// mine for its mineral.
func (s *Serf) handleMining() {
	if s.counter >= 0 {
		return
	}
	b := s.building()
	if b == nil || b.burning {
		s.setState(model.StateEscapeBuilding)
		return
	}
	p := s.payload.(*model.Mining)
	if p.Substate == 0 {
		if !b.takeInputs() {
			s.counter = productionRetryTicks
			return
		}
		p.Substate = 1
		s.counter = miningTicks
		return
	}
	p.Substate = 0
	m := s.g.m
	min := mineralFor(b.typ)
	n := gamemap.SpiralRingStart(mineRadius + 1)
	for i := 0; i < mineProbes; i++ {
		pos := m.PosAddSpirally(b.pos, int(s.g.RandomInt())%n)
		if m.RemoveMineral(pos, min) {
			p.Res = b.typ.MineOutput()
			s.pushOut(p.Res, 0, model.StateMining)
			return
		}
	}
	s.counter = productionRetryTicks
}
