package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// Serf is one worker of a player. What it does is entirely determined by
// its state and the payload belonging to that state.
type Serf struct {
	g     *Game
	index uint32

	player    int
	typ       catalogs.SerfType
	state     model.State
	payload   model.Payload
	pos       gamemap.Pos
	counter   int
	animation int
	tick      uint32
}

func (s *Serf) Index() uint32            { return s.index }
func (s *Serf) Player() int              { return s.player }
func (s *Serf) Type() catalogs.SerfType  { return s.typ }
func (s *Serf) State() model.State       { return s.state }
func (s *Serf) Pos() gamemap.Pos         { return s.pos }
func (s *Serf) Counter() int             { return s.counter }
func (s *Serf) Animation() int           { return s.animation }
func (s *Serf) LastTick() uint32         { return s.tick }
func (s *Serf) Payload() model.Payload   { return s.payload }
func (s *Serf) setType(t catalogs.SerfType) { s.typ = t }

// newSerf allocates a serf in the null state. It is not placed on the map.
func (g *Game) newSerf(player int, typ catalogs.SerfType, pos gamemap.Pos) *Serf {
	s := &Serf{g: g, player: player, typ: typ, pos: pos, tick: g.tick}
	s.index = g.serfs.alloc(s)
	return s
}

// deleteSerf removes s from the game and from the map.
func (g *Game) deleteSerf(s *Serf) {
	if g.m.SerfIndex(s.pos) == s.index {
		g.m.SetSerfIndex(s.pos, 0)
	}
	g.logf("serf %d (%s) removed in %s", s.index, s.typ, s.state)
	g.serfs.free(s.index)
}

// setState switches state and rearms the counter. The payload is kept when
// the new state belongs to the same group, otherwise it starts from zero.
func (s *Serf) setState(st model.State) {
	if s.g.cfg.LogStates {
		s.g.logf("serf %d (%s): %s -> %s", s.index, s.typ, s.state, st)
	}
	old := s.state
	s.state = st
	s.counter = 0
	s.animation = 0
	if s.payload == nil || model.GroupOf(old) != model.GroupOf(st) {
		s.payload = model.NewPayload(st)
	}
}

func (s *Serf) walking() *model.Walking {
	p, _ := s.payload.(*model.Walking)
	return p
}

func (s *Serf) transporting() *model.Transporting {
	p, _ := s.payload.(*model.Transporting)
	return p
}

func (s *Serf) entering() *model.EnteringBuilding {
	p, _ := s.payload.(*model.EnteringBuilding)
	return p
}

func (s *Serf) leaving() *model.LeavingBuilding {
	p, _ := s.payload.(*model.LeavingBuilding)
	return p
}

func (s *Serf) freeWalking() *model.FreeWalking {
	p, _ := s.payload.(*model.FreeWalking)
	return p
}

func (s *Serf) idleOnPath() *model.IdleOnPath {
	p, _ := s.payload.(*model.IdleOnPath)
	return p
}

func (s *Serf) moveOut() *model.MoveResourceOut {
	p, _ := s.payload.(*model.MoveResourceOut)
	return p
}

func (s *Serf) attacking() *model.Attacking {
	p, _ := s.payload.(*model.Attacking)
	return p
}

func (s *Serf) attackingFree() *model.AttackingFree {
	p, _ := s.payload.(*model.AttackingFree)
	return p
}

func (s *Serf) defendingFree() *model.DefendingFree {
	p, _ := s.payload.(*model.DefendingFree)
	return p
}

func (s *Serf) defending() *model.Defending {
	p, _ := s.payload.(*model.Defending)
	return p
}

// motion returns the road stepping state of walking and transporting serfs.
func (s *Serf) motion() *model.Motion {
	switch p := s.payload.(type) {
	case *model.Walking:
		return &p.Motion
	case *model.Transporting:
		return &p.Motion
	}
	return nil
}

// isParked reports a transporter resting on its road off the serf index.
func (s *Serf) isParked() bool {
	return model.GroupOf(s.state) == model.GroupIdleOnPath
}

// building is the building the serf is inside of, or nil.
func (s *Serf) building() *Building {
	return s.g.BuildingAt(s.pos)
}

// flagBelow is the flag in front of the building the serf is in.
func (s *Serf) flagBelow() *Flag {
	return s.g.FlagAt(s.g.m.Move(s.pos, dirBuildingToFlag))
}

type serfHandler func(*Serf)

var serfHandlers [model.StateCount]serfHandler

func init() {
	h := &serfHandlers
	h[model.StateNull] = (*Serf).handleNull
	h[model.StateIdleInStock] = (*Serf).handleIdle
	h[model.StateWalking] = (*Serf).handleWalking
	h[model.StateTransporting] = (*Serf).handleTransporting
	h[model.StateEnteringBuilding] = (*Serf).handleEnteringBuilding
	h[model.StateLeavingBuilding] = (*Serf).handleLeavingBuilding
	h[model.StateReadyToEnter] = (*Serf).handleReadyToEnter
	h[model.StateReadyToLeave] = (*Serf).handleReadyToLeave
	h[model.StateDigging] = (*Serf).handleDigging
	h[model.StateBuilding] = (*Serf).handleBuilding
	h[model.StateBuildingCastle] = (*Serf).handleBuildingCastle
	h[model.StateMoveResourceOut] = (*Serf).handleMoveResourceOut
	h[model.StateWaitForResourceOut] = (*Serf).handleWaitForResourceOut
	h[model.StateDropResourceOut] = (*Serf).handleDropResourceOut
	h[model.StateDelivering] = (*Serf).handleDelivering
	h[model.StateReadyToLeaveInventory] = (*Serf).handleReadyToLeaveInventory
	h[model.StateFreeWalking] = (*Serf).handleFreeWalking
	h[model.StateLogging] = (*Serf).handleFieldWork
	h[model.StatePlanningLogging] = (*Serf).handlePlanning
	h[model.StatePlanningPlanting] = (*Serf).handlePlanning
	h[model.StatePlanting] = (*Serf).handleFieldWork
	h[model.StatePlanningStoneCutting] = (*Serf).handlePlanning
	h[model.StateStoneCutterFreeWalking] = (*Serf).handleFreeWalking
	h[model.StateStoneCutting] = (*Serf).handleFieldWork
	h[model.StateSawing] = (*Serf).handleProduction
	h[model.StateLost] = (*Serf).handleLost
	h[model.StateLostSailor] = (*Serf).handleLostSailor
	h[model.StateFreeSailing] = (*Serf).handleFreeWalking
	h[model.StateEscapeBuilding] = (*Serf).handleEscapeBuilding
	h[model.StateMining] = (*Serf).handleMining
	h[model.StateSmelting] = (*Serf).handleSmelting
	h[model.StatePlanningFishing] = (*Serf).handlePlanning
	h[model.StateFishing] = (*Serf).handleFieldWork
	h[model.StatePlanningFarming] = (*Serf).handlePlanning
	h[model.StateFarming] = (*Serf).handleFieldWork
	h[model.StateMilling] = (*Serf).handleProduction
	h[model.StateBaking] = (*Serf).handleProduction
	h[model.StatePigFarming] = (*Serf).handleProduction
	h[model.StateButchering] = (*Serf).handleProduction
	h[model.StateMakingWeapon] = (*Serf).handleProduction
	h[model.StateMakingTool] = (*Serf).handleProduction
	h[model.StateBuildingBoat] = (*Serf).handleProduction
	h[model.StateLookingForGeoSpot] = (*Serf).handleLookingForGeoSpot
	h[model.StateSamplingGeoSpot] = (*Serf).handleFieldWork
	h[model.StateKnightEngagingBuilding] = (*Serf).handleKnightEngagingBuilding
	h[model.StateKnightPrepareAttacking] = (*Serf).handleKnightPrepareAttacking
	h[model.StateKnightLeaveForFight] = (*Serf).handleKnightLeaveForFight
	h[model.StateKnightPrepareDefending] = (*Serf).handleIdle
	h[model.StateKnightAttacking] = (*Serf).handleKnightAttacking
	h[model.StateKnightDefending] = (*Serf).handleIdle
	h[model.StateKnightAttackingVictory] = (*Serf).handleKnightAttackingVictory
	h[model.StateKnightAttackingDefeat] = (*Serf).handleKnightDefeat
	h[model.StateKnightOccupyEnemyBuilding] = (*Serf).handleKnightOccupyEnemyBuilding
	h[model.StateKnightFreeWalking] = (*Serf).handleFreeWalking
	h[model.StateKnightEngageDefendingFree] = (*Serf).handleKnightEngageDefendingFree
	h[model.StateKnightEngageAttackingFree] = (*Serf).handleKnightEngageAttackingFree
	h[model.StateKnightEngageAttackingFreeJoin] = (*Serf).handleKnightEngageAttackingFreeJoin
	h[model.StateKnightPrepareAttackingFree] = (*Serf).handleKnightPrepareAttackingFree
	h[model.StateKnightPrepareDefendingFree] = (*Serf).handleKnightPrepareDefendingFree
	h[model.StateKnightPrepareDefendingFreeWait] = (*Serf).handleKnightWaitForOpponent
	h[model.StateKnightAttackingFree] = (*Serf).handleKnightAttackingFree
	h[model.StateKnightDefendingFree] = (*Serf).handleKnightWaitForOpponent
	h[model.StateKnightAttackingVictoryFree] = (*Serf).handleKnightAttackingVictoryFree
	h[model.StateKnightDefendingVictoryFree] = (*Serf).handleKnightDefendingVictoryFree
	h[model.StateKnightAttackingFreeWait] = (*Serf).handleKnightWaitForOpponent
	h[model.StateKnightLeaveForWalkToFight] = (*Serf).handleKnightLeaveForWalkToFight
	h[model.StateIdleOnPath] = (*Serf).handleIdleOnPath
	h[model.StateWaitIdleOnPath] = (*Serf).handleWaitIdleOnPath
	h[model.StateWakeAtFlag] = (*Serf).handleWakeAtFlag
	h[model.StateWakeOnPath] = (*Serf).handleWakeOnPath
	h[model.StateDefendingHut] = (*Serf).handleDefending
	h[model.StateDefendingTower] = (*Serf).handleDefending
	h[model.StateDefendingFortress] = (*Serf).handleDefending
	h[model.StateScatter] = (*Serf).handleScatter
	h[model.StateFinishedBuilding] = (*Serf).handleFinishedBuilding
	h[model.StateDefendingCastle] = (*Serf).handleDefending
	h[model.StateKnightAttackingDefeatFree] = (*Serf).handleKnightDefeat
}

// Update advances the serf to the current game tick. The elapsed ticks are
// taken off the counter; handlers act once it has gone negative.
func (s *Serf) Update() {
	delta := int(s.g.tick - s.tick)
	s.tick = s.g.tick
	s.counter -= delta
	if !s.state.Valid() {
		s.g.fault("serf.update", "serf %d: bad state %d", s.index, int(s.state))
	}
	serfHandlers[s.state](s)
}

func (s *Serf) handleNull() {}

// handleIdle covers states that only wait for someone else to move them on.
func (s *Serf) handleIdle() {}
