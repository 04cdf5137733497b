package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

const (
	fightTicks     = 96
	victoryTicks   = 32
	prepareTicks   = 16
	freeFightRange = 4

	homeMorale = 0x1000
)

// rank is 0 for the weakest knight and 4 for the strongest.
func (s *Serf) rank() int {
	if !s.typ.IsKnight() {
		return 0
	}
	return int(s.typ - catalogs.SerfKnight0)
}

// fightValue weighs a knight by rank and morale. On its own land a knight
// fights at full morale.
func (s *Serf) fightValue() int {
	morale := homeMorale
	if s.g.m.Owner(s.pos) != s.player {
		if p := s.g.Player(s.player); p != nil {
			morale = p.KnightMorale()
		}
	}
	return (0x400 * (1 << uint(s.rank())) * morale) >> 16
}

// SetFightOutcome decides a fight between s and defender and reports
// whether s won. The loser's player loses military score.
func (s *Serf) SetFightOutcome(defender *Serf) bool {
	ma := s.fightValue()
	md := defender.fightValue()
	r := ((ma + md) * int(s.g.RandomInt())) >> 16
	won := r < ma
	winner, loser := s, defender
	if !won {
		winner, loser = defender, s
	}
	if p := s.g.Player(loser.player); p != nil {
		p.decreaseMilitaryScore(1 << uint(loser.rank()))
	}
	if p := s.g.Player(winner.player); p != nil {
		p.increaseMilitaryScore(1 << uint(loser.rank()))
	}
	switch a := s.payload.(type) {
	case *model.Attacking:
		a.Won = won
	case *model.AttackingFree:
		a.Won = won
	}
	return won
}

func (g *Game) killKnight(s *Serf) {
	g.logf("knight %d of player %d killed", s.index, s.player)
	g.deleteSerf(s)
}

// startAttackWalk sends a knight on the map towards the flag of the
// building it attacks.
func (s *Serf) startAttackWalk(target uint32) {
	g := s.g
	b := g.buildings.get(target)
	if b == nil || b.burning {
		s.SetLostState()
		return
	}
	fpos := g.m.Move(b.pos, dirBuildingToFlag)
	s.startFreeWalk(g.m.DistX(s.pos, fpos), g.m.DistY(s.pos, fpos), model.FreeWalkAttack)
	s.freeWalking().Flags = int(target)
}

// returnToBuilding walks a knight back to the flag of home, or sends it
// looking for the road network when home is gone.
func (s *Serf) returnToBuilding(home uint32) {
	g := s.g
	b := g.buildings.get(home)
	if b == nil || b.burning || b.owner != s.player || !b.typ.IsMilitary() {
		s.SetLostState()
		return
	}
	fpos := g.m.Move(b.pos, dirBuildingToFlag)
	s.startFreeWalk(g.m.DistX(s.pos, fpos), g.m.DistY(s.pos, fpos), model.FreeWalkHome)
	s.freeWalking().Flags = int(home)
}

func (s *Serf) homeArrived(fw *model.FreeWalking) {
	b := s.g.buildings.get(uint32(fw.Flags))
	if b == nil || b.burning || b.owner != s.player || !b.done ||
		s.g.m.Move(b.pos, dirBuildingToFlag) != s.pos {
		s.SetLostState()
		return
	}
	s.enterBuilding(0, catalogs.ResourceNone, model.StateNull)
}

// attackArrived is an attacker reaching the flag of its target.
func (s *Serf) attackArrived(fw *model.FreeWalking) {
	target := uint32(fw.Flags)
	b := s.g.buildings.get(target)
	if b == nil || b.burning {
		s.SetLostState()
		return
	}
	s.setState(model.StateKnightEngagingBuilding)
	s.attacking().Target = target
}

// buildingOpponent is the knight paired with s in a fight at a building,
// or nil when the pairing broke.
func (s *Serf) buildingOpponent() *Serf {
	a := s.attacking()
	if a == nil {
		return nil
	}
	o := s.g.serfs.get(a.Opponent)
	if o == nil {
		return nil
	}
	if oa := o.attacking(); oa == nil || oa.Opponent != s.index {
		return nil
	}
	return o
}

// handleKnightEngagingBuilding calls the next defender out, or moves in
// when the building is empty.
func (s *Serf) handleKnightEngagingBuilding() {
	if s.counter >= 0 {
		return
	}
	a := s.attacking()
	b := s.g.buildings.get(a.Target)
	if b == nil || b.burning {
		s.SetLostState()
		return
	}
	if b.owner == s.player {
		s.setState(model.StateKnightOccupyEnemyBuilding)
		return
	}
	d := b.popKnight(false)
	if d == nil {
		s.setState(model.StateKnightOccupyEnemyBuilding)
		return
	}
	d.setState(model.StateKnightLeaveForFight)
	da := d.attacking()
	da.Target = b.index
	da.Opponent = s.index
	d.counter = prepareTicks
	s.setState(model.StateKnightPrepareAttacking)
	a.Opponent = d.index
}

// handleKnightLeaveForFight is a defender stepping into the doorway.
func (s *Serf) handleKnightLeaveForFight() {
	if s.counter < 0 {
		s.setState(model.StateKnightPrepareDefending)
	}
}

func (s *Serf) handleKnightPrepareAttacking() {
	o := s.buildingOpponent()
	if o == nil {
		s.setState(model.StateKnightEngagingBuilding)
		return
	}
	if o.state != model.StateKnightPrepareDefending {
		return
	}
	s.setState(model.StateKnightAttacking)
	s.counter = fightTicks
	o.setState(model.StateKnightDefending)
}

func (s *Serf) handleKnightAttacking() {
	if s.counter >= 0 {
		return
	}
	o := s.buildingOpponent()
	if o == nil {
		s.setState(model.StateKnightEngagingBuilding)
		return
	}
	b := s.g.buildings.get(s.attacking().Target)
	if s.SetFightOutcome(o) {
		s.g.killKnight(o)
		s.setState(model.StateKnightAttackingVictory)
		s.counter = victoryTicks
		return
	}
	if b != nil && !b.burning && b.owner == o.player {
		b.addKnight(o)
	} else {
		o.setState(model.StateEscapeBuilding)
	}
	s.setState(model.StateKnightAttackingDefeat)
	s.counter = victoryTicks
}

func (s *Serf) handleKnightAttackingVictory() {
	if s.counter < 0 {
		s.setState(model.StateKnightEngagingBuilding)
	}
}

// handleKnightDefeat removes a beaten knight once it has fallen.
func (s *Serf) handleKnightDefeat() {
	if s.counter < 0 {
		s.g.killKnight(s)
	}
}

// handleKnightOccupyEnemyBuilding takes over the empty building and moves
// in, or goes home when there is no room.
func (s *Serf) handleKnightOccupyEnemyBuilding() {
	if s.counter >= 0 {
		return
	}
	g := s.g
	b := g.buildings.get(s.attacking().Target)
	if b == nil || b.burning {
		s.SetLostState()
		return
	}
	if b.owner != s.player {
		if b.knightCount() > 0 {
			s.setState(model.StateKnightEngagingBuilding)
			return
		}
		g.captureBuilding(b, s.player)
	}
	if b.burning || b.owner != s.player || b.knightCount() >= b.typ.Def().Knights {
		s.SetLostState()
		return
	}
	s.enterBuilding(0, catalogs.ResourceNone, model.StateNull)
}

// captureBuilding hands b over to player. Its roads are cut and the land
// around it claimed. A castle burns instead.
func (g *Game) captureBuilding(b *Building, player int) {
	old := b.owner
	if b.typ == catalogs.BuildingCastle {
		g.logf("castle %d of player %d taken by player %d", b.index, old, player)
		g.burnBuilding(b)
		return
	}
	f := b.flagOf()
	if f != nil {
		g.cutFlagRoads(f)
		g.flagResetTransport(f)
		f.RemoveAllResources()
		f.setOwner(player)
		g.m.SetOwner(f.pos, player)
	}
	for i := range b.stock {
		b.stock[i].requested = 0
	}
	b.serfRequested = false
	b.owner = player
	b.active = true
	g.m.SetOwner(b.pos, player)
	g.claimLand(b, true)
	g.logf("building %d (%s) of player %d taken by player %d", b.index, b.typ, old, player)
}

// knightMeetsDefender sends a defender out of the attacked building once
// the attacker comes close. It reports whether the attacker stopped.
func (s *Serf) knightMeetsDefender(fw *model.FreeWalking) bool {
	if fw.NegDist1 != model.FreeWalkAttack || hexLen(fw.Dist1, fw.Dist2) > freeFightRange {
		return false
	}
	b := s.g.buildings.get(uint32(fw.Flags))
	if b == nil || b.burning || b.owner == s.player || b.knightCount() < 2 {
		return false
	}
	d := b.popKnight(false)
	d.setState(model.StateKnightLeaveForWalkToFight)
	df := d.defendingFree()
	df.Opponent = s.index
	df.Home = b.index
	d.counter = prepareTicks
	s.setState(model.StateKnightEngageAttackingFree)
	af := s.attackingFree()
	af.Target = b.index
	af.Opponent = d.index
	return true
}

// freeOpponent is the knight paired with s in the open, or nil.
func (s *Serf) freeOpponent() *Serf {
	var idx uint32
	switch p := s.payload.(type) {
	case *model.AttackingFree:
		idx = p.Opponent
	case *model.DefendingFree:
		idx = p.Opponent
	default:
		return nil
	}
	o := s.g.serfs.get(idx)
	if o == nil {
		return nil
	}
	switch p := o.payload.(type) {
	case *model.AttackingFree:
		if p.Opponent == s.index {
			return o
		}
	case *model.DefendingFree:
		if p.Opponent == s.index {
			return o
		}
	}
	return nil
}

func (s *Serf) resumeAttack() { s.startAttackWalk(s.attackingFree().Target) }

func (s *Serf) defenderReturn() { s.returnToBuilding(s.defendingFree().Home) }

// handleKnightLeaveForWalkToFight puts the defender on its flag.
func (s *Serf) handleKnightLeaveForWalkToFight() {
	if s.counter >= 0 {
		return
	}
	g := s.g
	df := s.defendingFree()
	b := g.buildings.get(df.Home)
	if b == nil || b.burning {
		s.SetLostState()
		return
	}
	if s.freeOpponent() == nil {
		b.addKnight(s)
		return
	}
	fpos := g.m.Move(b.pos, dirBuildingToFlag)
	if g.m.HasSerf(fpos) {
		s.counter = waitTicks
		return
	}
	step := g.stepTicks(s.pos, fpos)
	s.pos = fpos
	g.m.SetSerfIndex(fpos, s.index)
	s.setState(model.StateKnightEngageDefendingFree)
	s.counter = step
}

// handleKnightEngageDefendingFree walks the defender up to its attacker.
func (s *Serf) handleKnightEngageDefendingFree() {
	m := s.g.m
	for s.counter < 0 && s.state == model.StateKnightEngageDefendingFree {
		o := s.freeOpponent()
		if o == nil {
			s.defenderReturn()
			return
		}
		dc, dr := m.DistX(s.pos, o.pos), m.DistY(s.pos, o.pos)
		if hexLen(dc, dr) <= 1 {
			s.setState(model.StateKnightPrepareDefendingFreeWait)
			return
		}
		fw := model.FreeWalking{Dist1: dc, Dist2: dr}
		d, blocked := s.nextFreeStep(&fw, false)
		if !d.Valid() {
			s.defenderReturn()
			return
		}
		if blocked {
			s.counter += waitTicks
			continue
		}
		s.freeMove(d)
	}
}

// handleKnightEngageAttackingFree holds the attacker until its defender
// has come up.
func (s *Serf) handleKnightEngageAttackingFree() {
	o := s.freeOpponent()
	if o == nil {
		s.resumeAttack()
		return
	}
	if o.state == model.StateKnightPrepareDefendingFreeWait {
		s.setState(model.StateKnightEngageAttackingFreeJoin)
		s.counter = prepareTicks
	}
}

func (s *Serf) handleKnightEngageAttackingFreeJoin() {
	if s.counter >= 0 {
		return
	}
	o := s.freeOpponent()
	if o == nil {
		s.resumeAttack()
		return
	}
	s.setState(model.StateKnightPrepareAttackingFree)
	s.counter = prepareTicks
	o.setState(model.StateKnightPrepareDefendingFree)
}

func (s *Serf) handleKnightPrepareDefendingFree() {
	if s.freeOpponent() == nil {
		s.defenderReturn()
	}
}

func (s *Serf) handleKnightPrepareAttackingFree() {
	if s.counter >= 0 {
		return
	}
	o := s.freeOpponent()
	if o == nil {
		s.resumeAttack()
		return
	}
	s.setState(model.StateKnightAttackingFree)
	s.counter = fightTicks
	o.setState(model.StateKnightDefendingFree)
}

func (s *Serf) handleKnightAttackingFree() {
	if s.counter >= 0 {
		return
	}
	o := s.freeOpponent()
	if o == nil {
		s.resumeAttack()
		return
	}
	if s.SetFightOutcome(o) {
		s.g.killKnight(o)
		s.setState(model.StateKnightAttackingVictoryFree)
	} else {
		o.setState(model.StateKnightDefendingVictoryFree)
		o.counter = victoryTicks
		s.setState(model.StateKnightAttackingDefeatFree)
	}
	s.counter = victoryTicks
}

// handleKnightAttackingVictoryFree goes on with the attack, waiting first
// if another defender is already on its way.
func (s *Serf) handleKnightAttackingVictoryFree() {
	if s.counter >= 0 {
		return
	}
	if s.engagedBy() != nil {
		s.setState(model.StateKnightAttackingFreeWait)
		return
	}
	s.resumeAttack()
}

func (s *Serf) handleKnightDefendingVictoryFree() {
	if s.counter < 0 {
		s.defenderReturn()
	}
}

// engagedBy is a defender heading for s, if any.
func (s *Serf) engagedBy() *Serf {
	var found *Serf
	s.g.serfs.each(func(_ uint32, o *Serf) {
		if found != nil || o == s {
			return
		}
		if df := o.defendingFree(); df != nil && df.Opponent == s.index {
			found = o
		}
	})
	return found
}

// handleKnightWaitForOpponent covers the states where a knight of a free
// fight waits on the other side.
func (s *Serf) handleKnightWaitForOpponent() {
	if s.state == model.StateKnightAttackingFreeWait {
		d := s.engagedBy()
		if d == nil {
			s.resumeAttack()
			return
		}
		s.setState(model.StateKnightEngageAttackingFree)
		s.attackingFree().Opponent = d.index
		return
	}
	if s.freeOpponent() == nil {
		s.defenderReturn()
	}
}

// militaryAround lists the finished military buildings of player within
// radius of p.
func (g *Game) militaryAround(player int, p gamemap.Pos, radius int) []*Building {
	var out []*Building
	g.buildings.each(func(_ uint32, b *Building) {
		if b.owner != player || !b.done || b.burning || !b.typ.IsMilitary() {
			return
		}
		if g.m.Dist(b.pos, p) <= radius {
			out = append(out, b)
		}
	})
	return out
}

// trainingTicks is the time between two training rolls of a garrisoned
// knight.
const trainingTicks = 6000

// knightTraining is the chance, out of 0x10000, that one roll moves a
// garrisoned knight of rank 0..3 up a rank. Bigger buildings train faster.
var knightTraining = map[model.State][4]int{
	model.StateDefendingHut:      {250, 125, 62, 31},
	model.StateDefendingTower:    {1000, 500, 250, 125},
	model.StateDefendingFortress: {2000, 1000, 500, 250},
	model.StateDefendingCastle:   {4000, 2000, 1000, 500},
}

// handleDefending trains a knight sitting in a military building.
func (s *Serf) handleDefending() {
	chance := knightTraining[s.state]
	for s.counter < 0 {
		if r := s.rank(); s.typ.IsKnight() && r < 4 && int(s.g.RandomInt()) < chance[r] {
			s.setType(s.typ + 1)
			s.counter = trainingTicks
			s.g.logf("knight %d of player %d trained to %s", s.index, s.player, s.typ)
			return
		}
		s.counter += trainingTicks
	}
}
