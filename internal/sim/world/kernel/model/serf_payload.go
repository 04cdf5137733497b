package model

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
)

// Group identifies which payload type a state carries.
type Group int

const (
	GroupNone Group = iota
	GroupIdleInStock
	GroupWalking
	GroupTransporting
	GroupEnteringBuilding
	GroupLeavingBuilding
	GroupDigging
	GroupBuilding
	GroupBuildingCastle
	GroupMoveResourceOut
	GroupReadyToLeaveInventory
	GroupFreeWalking
	GroupProduction
	GroupLost
	GroupMining
	GroupSmelting
	GroupAttacking
	GroupAttackingFree
	GroupDefendingFree
	GroupIdleOnPath
	GroupDefending
)

// Payload is the state specific part of a serf. Exactly one concrete type
// belongs to each state; see GroupOf. States of the same group share the
// payload across transitions.
type Payload interface {
	Group() Group
}

type IdleInStock struct {
	Inventory uint32
}

// Motion is the stepping state shared by serfs moving along roads. While
// moving, Dir points back to the tile the serf came from; while Waiting it
// is the direction the serf wants to go.
type Motion struct {
	Dir         geom.Direction
	Waiting     bool
	WaitCounter int
}

// Walking moves a serf along roads towards Dest (a flag index).
// Mode tells what happens there: WalkEnterBuilding enters the attached
// building as a requested serf, WalkToInventory enters it as a returning
// serf, 0..5 takes over the path in that direction and WalkGeologist
// starts prospecting.
type Walking struct {
	Motion
	Mode int
	Dest uint32
}

const (
	WalkToInventory   = -2
	WalkEnterBuilding = -1
	WalkGeologist     = 6
)

// Transporting is shared by transporters on their path and by serfs
// delivering into a building. At a flag Dir is the path being served.
// Surplus counts flag visits with nothing to do; -1 means the transporter
// was released from its road and heads for an inventory.
type Transporting struct {
	Motion
	Res     catalogs.Resource
	Dest    uint32
	Surplus int
}

// EnteringBuilding walks a serf from the flag into the building. Mode is
// one of the Walk* modes or 0 for a worker coming home. Res is a product
// the worker brings back; NextState, if set, is resumed inside.
type EnteringBuilding struct {
	Mode      int
	Res       catalogs.Resource
	NextState State
}

// LeavingBuilding walks a serf out to the flag and then continues into
// NextState. Dest and Mode seed a Walking next state; Dist1/Dist2 are the
// target offset from the flag for free walking ones. Knights leaving to
// attack carry the target building in Dest.
type LeavingBuilding struct {
	Dest      uint32
	Mode      int
	Dist1     int
	Dist2     int
	NextState State
}

// Digging levels the seven tiles of a large construction site.
type Digging struct {
	TargetH int
	DigPos  int
}

// Building is a builder working on a construction site. Steps is what is
// left of the current material.
type Building struct {
	Building uint32
	Steps    int
}

type BuildingCastle struct {
	Inventory uint32
}

type MoveResourceOut struct {
	Res       catalogs.Resource
	ResDest   uint32
	NextState State
}

type ReadyToLeaveInventory struct {
	Mode      int
	Dest      uint32
	Inventory uint32
}

// FreeWalking holds the remaining offset to the target and the way back.
// NegDist1 may instead hold a FreeWalk* marker. For knights Flags is the
// building attacked or returned to; geologists count samples in it.
type FreeWalking struct {
	Dist1     int
	Dist2     int
	NegDist1  int
	NegDist2  int
	Flags     int
	Res       catalogs.Resource
	Stuck     int
	Returning bool

	// Hand is set while the walker follows the edge of an obstacle:
	// FollowCW scans clockwise away from the wall, FollowCCW the other way.
	// Heading is the last step along the edge; EdgeLen the distance left
	// when the edge was met.
	Hand    int
	Heading geom.Direction
	EdgeLen int

	// WaitDir is the step a walker held up by another serf wants to take.
	Waiting bool
	WaitDir geom.Direction
}

const (
	FollowCW  = 1
	FollowCCW = -1
)

// StartLeg aims the walker at a new offset and drops any edge it was
// following.
func (fw *FreeWalking) StartLeg(d1, d2 int) {
	fw.Dist1, fw.Dist2 = d1, d2
	fw.Stuck = 0
	fw.Hand = 0
	fw.EdgeLen = 0
	fw.Waiting = false
}

const (
	FreeWalkLost   = -128
	FreeWalkAttack = -127
	FreeWalkHome   = -126
)

// Production drives the simple one-input workshops.
type Production struct {
	Mode int
}

// Lost searches the spiral around the serf for a flag to head for; Far
// scans it from the outer ring inwards.
type Lost struct {
	Far bool
}

type Mining struct {
	Substate int
	Res      catalogs.Resource
}

type Smelting struct {
	Mode int
}

// Attacking links a knight to its opponent during a building fight.
// Target is the building fought over; Won is the attacker's result.
type Attacking struct {
	Target   uint32
	Opponent uint32
	Won      bool
}

type AttackingFree struct {
	Target   uint32
	Opponent uint32
	Won      bool
}

// DefendingFree is a knight sent out of Home to meet an attacker.
type DefendingFree struct {
	Opponent uint32
	Home     uint32
}

// IdleOnPath parks a transporter on its road. Flag is the flag it faces
// through RevDir; ResumeDir is the back direction used when it wakes.
type IdleOnPath struct {
	RevDir    geom.Direction
	Flag      uint32
	ResumeDir geom.Direction
}

type Defending struct {
	NextKnight uint32
}

func (*IdleInStock) Group() Group           { return GroupIdleInStock }
func (*Walking) Group() Group               { return GroupWalking }
func (*Transporting) Group() Group          { return GroupTransporting }
func (*EnteringBuilding) Group() Group      { return GroupEnteringBuilding }
func (*LeavingBuilding) Group() Group       { return GroupLeavingBuilding }
func (*Digging) Group() Group               { return GroupDigging }
func (*Building) Group() Group              { return GroupBuilding }
func (*BuildingCastle) Group() Group        { return GroupBuildingCastle }
func (*MoveResourceOut) Group() Group       { return GroupMoveResourceOut }
func (*ReadyToLeaveInventory) Group() Group { return GroupReadyToLeaveInventory }
func (*FreeWalking) Group() Group           { return GroupFreeWalking }
func (*Production) Group() Group            { return GroupProduction }
func (*Lost) Group() Group                  { return GroupLost }
func (*Mining) Group() Group                { return GroupMining }
func (*Smelting) Group() Group              { return GroupSmelting }
func (*Attacking) Group() Group             { return GroupAttacking }
func (*AttackingFree) Group() Group         { return GroupAttackingFree }
func (*DefendingFree) Group() Group         { return GroupDefendingFree }
func (*IdleOnPath) Group() Group            { return GroupIdleOnPath }
func (*Defending) Group() Group             { return GroupDefending }

var stateGroups = [StateCount]Group{
	StateIdleInStock:                    GroupIdleInStock,
	StateWalking:                        GroupWalking,
	StateTransporting:                   GroupTransporting,
	StateDelivering:                     GroupTransporting,
	StateEnteringBuilding:               GroupEnteringBuilding,
	StateReadyToEnter:                   GroupEnteringBuilding,
	StateLeavingBuilding:                GroupLeavingBuilding,
	StateReadyToLeave:                   GroupLeavingBuilding,
	StateDigging:                        GroupDigging,
	StateBuilding:                       GroupBuilding,
	StateBuildingCastle:                 GroupBuildingCastle,
	StateMoveResourceOut:                GroupMoveResourceOut,
	StateDropResourceOut:                GroupMoveResourceOut,
	StateReadyToLeaveInventory:          GroupReadyToLeaveInventory,
	StateFreeWalking:                    GroupFreeWalking,
	StateLogging:                        GroupFreeWalking,
	StatePlanting:                       GroupFreeWalking,
	StateStoneCutterFreeWalking:         GroupFreeWalking,
	StateStoneCutting:                   GroupFreeWalking,
	StateLostSailor:                     GroupFreeWalking,
	StateFreeSailing:                    GroupFreeWalking,
	StateFishing:                        GroupFreeWalking,
	StateFarming:                        GroupFreeWalking,
	StateLookingForGeoSpot:              GroupFreeWalking,
	StateSamplingGeoSpot:                GroupFreeWalking,
	StateKnightFreeWalking:              GroupFreeWalking,
	StateSawing:                         GroupProduction,
	StateMilling:                        GroupProduction,
	StateBaking:                         GroupProduction,
	StatePigFarming:                     GroupProduction,
	StateButchering:                     GroupProduction,
	StateMakingWeapon:                   GroupProduction,
	StateMakingTool:                     GroupProduction,
	StateBuildingBoat:                   GroupProduction,
	StateLost:                           GroupLost,
	StateMining:                         GroupMining,
	StateSmelting:                       GroupSmelting,
	StateKnightEngagingBuilding:         GroupAttacking,
	StateKnightPrepareAttacking:         GroupAttacking,
	StateKnightLeaveForFight:            GroupAttacking,
	StateKnightPrepareDefending:         GroupAttacking,
	StateKnightAttacking:                GroupAttacking,
	StateKnightDefending:                GroupAttacking,
	StateKnightAttackingVictory:         GroupAttacking,
	StateKnightAttackingDefeat:          GroupAttacking,
	StateKnightOccupyEnemyBuilding:      GroupAttacking,
	StateKnightEngageAttackingFree:      GroupAttackingFree,
	StateKnightEngageAttackingFreeJoin:  GroupAttackingFree,
	StateKnightPrepareAttackingFree:     GroupAttackingFree,
	StateKnightAttackingFree:            GroupAttackingFree,
	StateKnightAttackingVictoryFree:     GroupAttackingFree,
	StateKnightAttackingFreeWait:        GroupAttackingFree,
	StateKnightAttackingDefeatFree:      GroupAttackingFree,
	StateKnightEngageDefendingFree:      GroupDefendingFree,
	StateKnightPrepareDefendingFree:     GroupDefendingFree,
	StateKnightPrepareDefendingFreeWait: GroupDefendingFree,
	StateKnightDefendingFree:            GroupDefendingFree,
	StateKnightDefendingVictoryFree:     GroupDefendingFree,
	StateKnightLeaveForWalkToFight:      GroupDefendingFree,
	StateIdleOnPath:                     GroupIdleOnPath,
	StateWaitIdleOnPath:                 GroupIdleOnPath,
	StateWakeAtFlag:                     GroupIdleOnPath,
	StateWakeOnPath:                     GroupIdleOnPath,
	StateDefendingHut:                   GroupDefending,
	StateDefendingTower:                 GroupDefending,
	StateDefendingFortress:              GroupDefending,
	StateDefendingCastle:                GroupDefending,
}

// GroupOf returns the payload group of s.
func GroupOf(s State) Group {
	if !s.Valid() {
		return GroupNone
	}
	return stateGroups[s]
}

// NewPayload returns a zero payload for s, or nil for states without one.
func NewPayload(s State) Payload {
	switch GroupOf(s) {
	case GroupIdleInStock:
		return &IdleInStock{}
	case GroupWalking:
		return &Walking{Motion: Motion{Dir: geom.DirNone}}
	case GroupTransporting:
		return &Transporting{Motion: Motion{Dir: geom.DirNone}, Res: catalogs.ResourceNone}
	case GroupEnteringBuilding:
		return &EnteringBuilding{Res: catalogs.ResourceNone}
	case GroupLeavingBuilding:
		return &LeavingBuilding{}
	case GroupDigging:
		return &Digging{}
	case GroupBuilding:
		return &Building{}
	case GroupBuildingCastle:
		return &BuildingCastle{}
	case GroupMoveResourceOut:
		return &MoveResourceOut{Res: catalogs.ResourceNone}
	case GroupReadyToLeaveInventory:
		return &ReadyToLeaveInventory{}
	case GroupFreeWalking:
		return &FreeWalking{Res: catalogs.ResourceNone}
	case GroupProduction:
		return &Production{}
	case GroupLost:
		return &Lost{}
	case GroupMining:
		return &Mining{Res: catalogs.ResourceNone}
	case GroupSmelting:
		return &Smelting{}
	case GroupAttacking:
		return &Attacking{}
	case GroupAttackingFree:
		return &AttackingFree{}
	case GroupDefendingFree:
		return &DefendingFree{}
	case GroupIdleOnPath:
		return &IdleOnPath{RevDir: geom.DirNone, ResumeDir: geom.DirNone}
	case GroupDefending:
		return &Defending{}
	}
	return nil
}
