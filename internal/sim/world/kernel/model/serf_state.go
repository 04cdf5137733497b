package model

import "fmt"

// State is the behaviour a serf is currently running.
type State int

const (
	StateNull State = iota
	StateIdleInStock
	StateWalking
	StateTransporting
	StateEnteringBuilding
	StateLeavingBuilding
	StateReadyToEnter
	StateReadyToLeave
	StateDigging
	StateBuilding
	StateBuildingCastle
	StateMoveResourceOut
	StateWaitForResourceOut
	StateDropResourceOut
	StateDelivering
	StateReadyToLeaveInventory
	StateFreeWalking
	StateLogging
	StatePlanningLogging
	StatePlanningPlanting
	StatePlanting
	StatePlanningStoneCutting
	StateStoneCutterFreeWalking
	StateStoneCutting
	StateSawing
	StateLost
	StateLostSailor
	StateFreeSailing
	StateEscapeBuilding
	StateMining
	StateSmelting
	StatePlanningFishing
	StateFishing
	StatePlanningFarming
	StateFarming
	StateMilling
	StateBaking
	StatePigFarming
	StateButchering
	StateMakingWeapon
	StateMakingTool
	StateBuildingBoat
	StateLookingForGeoSpot
	StateSamplingGeoSpot
	StateKnightEngagingBuilding
	StateKnightPrepareAttacking
	StateKnightLeaveForFight
	StateKnightPrepareDefending
	StateKnightAttacking
	StateKnightDefending
	StateKnightAttackingVictory
	StateKnightAttackingDefeat
	StateKnightOccupyEnemyBuilding
	StateKnightFreeWalking
	StateKnightEngageDefendingFree
	StateKnightEngageAttackingFree
	StateKnightEngageAttackingFreeJoin
	StateKnightPrepareAttackingFree
	StateKnightPrepareDefendingFree
	StateKnightPrepareDefendingFreeWait
	StateKnightAttackingFree
	StateKnightDefendingFree
	StateKnightAttackingVictoryFree
	StateKnightDefendingVictoryFree
	StateKnightAttackingFreeWait
	StateKnightLeaveForWalkToFight
	StateIdleOnPath
	StateWaitIdleOnPath
	StateWakeAtFlag
	StateWakeOnPath
	StateDefendingHut
	StateDefendingTower
	StateDefendingFortress
	StateScatter
	StateFinishedBuilding
	StateDefendingCastle
	StateKnightAttackingDefeatFree
)

// StateCount is the number of serf states.
const StateCount = int(StateKnightAttackingDefeatFree) + 1

var stateNames = [StateCount]string{
	"null", "idle_in_stock", "walking", "transporting", "entering_building",
	"leaving_building", "ready_to_enter", "ready_to_leave", "digging", "building",
	"building_castle", "move_resource_out", "wait_for_resource_out", "drop_resource_out",
	"delivering", "ready_to_leave_inventory", "free_walking", "logging",
	"planning_logging", "planning_planting", "planting", "planning_stonecutting",
	"stonecutter_free_walking", "stonecutting", "sawing", "lost", "lost_sailor",
	"free_sailing", "escape_building", "mining", "smelting", "planning_fishing",
	"fishing", "planning_farming", "farming", "milling", "baking", "pigfarming",
	"butchering", "making_weapon", "making_tool", "building_boat",
	"looking_for_geo_spot", "sampling_geo_spot", "knight_engaging_building",
	"knight_prepare_attacking", "knight_leave_for_fight", "knight_prepare_defending",
	"knight_attacking", "knight_defending", "knight_attacking_victory",
	"knight_attacking_defeat", "knight_occupy_enemy_building", "knight_free_walking",
	"knight_engage_defending_free", "knight_engage_attacking_free",
	"knight_engage_attacking_free_join", "knight_prepare_attacking_free",
	"knight_prepare_defending_free", "knight_prepare_defending_free_wait",
	"knight_attacking_free", "knight_defending_free", "knight_attacking_victory_free",
	"knight_defending_victory_free", "knight_attacking_free_wait",
	"knight_leave_for_walk_to_fight", "idle_on_path", "wait_idle_on_path",
	"wake_at_flag", "wake_on_path", "defending_hut", "defending_tower",
	"defending_fortress", "scatter", "finished_building", "defending_castle",
	"knight_attacking_defeat_free",
}

func (s State) String() string {
	if s < 0 || int(s) >= StateCount {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) Valid() bool { return s >= 0 && int(s) < StateCount }

func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateNull, fmt.Errorf("unknown serf state %q", name)
}

// IsDefending reports whether s is one of the garrison states.
func (s State) IsDefending() bool {
	switch s {
	case StateDefendingHut, StateDefendingTower, StateDefendingFortress, StateDefendingCastle:
		return true
	}
	return false
}
