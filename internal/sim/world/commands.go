package world

import (
	"fmt"

	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
)

const (
	OpBuildFlag        = "BUILD_FLAG"
	OpBuildRoad        = "BUILD_ROAD"
	OpDemolishFlag     = "DEMOLISH_FLAG"
	OpDemolishRoad     = "DEMOLISH_ROAD"
	OpBuildCastle      = "BUILD_CASTLE"
	OpBuildBuilding    = "BUILD_BUILDING"
	OpDemolishBuilding = "DEMOLISH_BUILDING"
	OpAttack           = "ATTACK"
	OpSendGeologist    = "SEND_GEOLOGIST"
	OpSetFlagPrio      = "SET_FLAG_PRIO"
	OpSetInventoryPrio = "SET_INVENTORY_PRIO"
	OpSetToolPrio      = "SET_TOOL_PRIO"
)

// Command is a player order as it travels over the wire and through the
// tick log. Positions are map columns and rows.
type Command struct {
	Player   int      `json:"player"`
	Op       string   `json:"op"`
	Col      int      `json:"col"`
	Row      int      `json:"row"`
	Dirs     []string `json:"dirs,omitempty"`
	Building string   `json:"building,omitempty"`
	Resource string   `json:"resource,omitempty"`
	Prio     int      `json:"prio,omitempty"`
	Knights  int      `json:"knights,omitempty"`
}

// CommandResult is what Apply reports back to the sender.
type CommandResult struct {
	Tick uint32 `json:"tick"`
	Op   string `json:"op"`
	OK   bool   `json:"ok"`
	Err  string `json:"err,omitempty"`
	// Sent is the number of knights dispatched by an attack.
	Sent int `json:"sent,omitempty"`
}

func (g *Game) commandPos(c Command) (gamemap.Pos, error) {
	if c.Col < 0 || c.Row < 0 || c.Col >= g.m.Cols() || c.Row >= g.m.Rows() {
		return 0, fmt.Errorf("%w: position %d,%d off the map", ErrNoSuchObject, c.Col, c.Row)
	}
	return g.m.Pos(c.Col, c.Row), nil
}

// Apply executes one command against the game. A rejected command leaves
// the game unchanged and is reported in the result, not as an error; the
// returned error is only set when the command tripped a simulation fault.
func (g *Game) Apply(c Command) (CommandResult, error) {
	res := CommandResult{Tick: g.tick, Op: c.Op}
	sent, err := g.apply(c)
	if err != nil {
		res.Err = err.Error()
		if IsFault(err) {
			return res, err
		}
		return res, nil
	}
	res.OK = true
	res.Sent = sent
	return res, nil
}

func (g *Game) apply(c Command) (int, error) {
	pos, err := g.commandPos(c)
	if err != nil {
		return 0, err
	}
	switch c.Op {
	case OpBuildFlag:
		_, err = g.BuildFlag(c.Player, pos)
		return 0, err
	case OpBuildRoad:
		dirs := make([]geom.Direction, 0, len(c.Dirs))
		for _, s := range c.Dirs {
			d, err := geom.ParseDirection(s)
			if err != nil || !d.Valid() {
				return 0, fmt.Errorf("%w: direction %q", ErrBadRoad, s)
			}
			dirs = append(dirs, d)
		}
		return 0, g.BuildRoad(c.Player, pos, dirs)
	case OpDemolishFlag:
		return 0, g.DemolishFlag(c.Player, pos)
	case OpDemolishRoad:
		return 0, g.DemolishRoad(c.Player, pos)
	case OpBuildCastle:
		_, err = g.BuildCastle(c.Player, pos)
		return 0, err
	case OpBuildBuilding:
		typ, err := catalogs.ParseBuildingType(c.Building)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCannotBuild, err)
		}
		_, err = g.BuildBuilding(c.Player, typ, pos)
		return 0, err
	case OpDemolishBuilding:
		return 0, g.DemolishBuilding(c.Player, pos)
	case OpAttack:
		return g.Attack(c.Player, pos, c.Knights)
	case OpSendGeologist:
		return 0, g.SendGeologist(c.Player, pos)
	case OpSetFlagPrio, OpSetInventoryPrio, OpSetToolPrio:
		return 0, g.setPriority(c)
	default:
		return 0, fmt.Errorf("unknown op %q", c.Op)
	}
}

func (g *Game) setPriority(c Command) error {
	p := g.Player(c.Player)
	if p == nil {
		return ErrBadPlayer
	}
	r, err := catalogs.ParseResource(c.Resource)
	if err != nil || !r.Valid() {
		return fmt.Errorf("bad resource %q", c.Resource)
	}
	if c.Prio < 0 || c.Prio > 0xffff {
		return fmt.Errorf("priority %d out of range", c.Prio)
	}
	switch c.Op {
	case OpSetFlagPrio:
		p.SetFlagPriority(r, c.Prio)
	case OpSetInventoryPrio:
		p.SetInventoryPriority(r, c.Prio)
	default:
		if r < catalogs.Shovel || r > catalogs.Pinchers {
			return fmt.Errorf("%s is not a tool", r)
		}
		p.SetToolPriority(r, c.Prio)
	}
	return nil
}
