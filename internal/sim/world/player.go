package world

import (
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/tuning"
)

const (
	serfSpawnInterval = 800
	maxSerfsPerPlayer = 300
)

// Player holds per player economy settings and scores.
type Player struct {
	g     *Game
	index int
	name  string
	color int

	flagPrio      [catalogs.ResourceCount]int
	inventoryPrio [catalogs.ResourceCount]int
	toolPrio      [catalogs.Pinchers - catalogs.Shovel + 1]int

	baseMorale    int
	knightMorale  int
	militaryScore int

	castle    uint32
	lastSpawn uint32

	setup tuning.PlayerTuning
}

func newPlayer(g *Game, index int, pt tuning.PlayerTuning) *Player {
	p := &Player{
		g:          g,
		index:      index,
		name:       pt.Name,
		color:      pt.Color,
		baseMorale: pt.KnightMorale,
		setup:      pt,
	}
	if p.baseMorale <= 0 {
		p.baseMorale = 0x1000
	}
	p.knightMorale = p.baseMorale
	p.flagPrio = catalogs.DefaultFlagPriority
	for i := range p.inventoryPrio {
		p.inventoryPrio[i] = catalogs.ResourceCount - i
	}
	for i := range p.toolPrio {
		p.toolPrio[i] = 10 + i
	}
	return p
}

func (p *Player) Index() int         { return p.index }
func (p *Player) Name() string       { return p.name }
func (p *Player) Color() int         { return p.color }
func (p *Player) KnightMorale() int  { return p.knightMorale }
func (p *Player) MilitaryScore() int { return p.militaryScore }
func (p *Player) Castle() uint32     { return p.castle }

// FlagPriority is the transport priority of res; higher moves first.
func (p *Player) FlagPriority(res catalogs.Resource) int {
	if !res.Valid() {
		return 0
	}
	return p.flagPrio[res]
}

func (p *Player) SetFlagPriority(res catalogs.Resource, prio int) {
	if res.Valid() {
		p.flagPrio[res] = prio
	}
}

// InventoryPriority orders resources pushed out of inventories in out mode.
func (p *Player) InventoryPriority(res catalogs.Resource) int {
	if !res.Valid() {
		return 0
	}
	return p.inventoryPrio[res]
}

func (p *Player) SetInventoryPriority(res catalogs.Resource, prio int) {
	if res.Valid() {
		p.inventoryPrio[res] = prio
	}
}

// ToolPriority is the toolmaker preference for tool.
func (p *Player) ToolPriority(tool catalogs.Resource) int {
	if tool < catalogs.Shovel || tool > catalogs.Pinchers {
		return 0
	}
	return p.toolPrio[tool-catalogs.Shovel]
}

func (p *Player) SetToolPriority(tool catalogs.Resource, prio int) {
	if tool >= catalogs.Shovel && tool <= catalogs.Pinchers {
		p.toolPrio[tool-catalogs.Shovel] = prio
	}
}

func (p *Player) decreaseMilitaryScore(v int) { p.militaryScore -= v }
func (p *Player) increaseMilitaryScore(v int) { p.militaryScore += v }

// goldHeld counts gold bars stored by the player.
func (p *Player) goldHeld() int {
	n := 0
	p.g.inventories.each(func(_ uint32, inv *Inventory) {
		if inv.owner == p.index {
			n += inv.resources[catalogs.GoldBar]
		}
	})
	p.g.buildings.each(func(_ uint32, b *Building) {
		if b.owner == p.index && b.typ.IsMilitary() {
			n += b.stock[0].available
		}
	})
	return n
}

func (p *Player) update() {
	total := p.g.goldTotal
	if total > 0 {
		held := p.goldHeld()
		if held > total {
			held = total
		}
		p.knightMorale = p.baseMorale/4 + (3*p.baseMorale/4)*held/total
	} else {
		p.knightMorale = p.baseMorale
	}

	if p.castle == 0 || p.g.tick-p.lastSpawn < serfSpawnInterval {
		return
	}
	p.lastSpawn = p.g.tick
	castle := p.g.buildings.get(p.castle)
	if castle == nil || !castle.done {
		return
	}
	inv := p.g.inventories.get(castle.inventory)
	if inv == nil || p.serfCount() >= maxSerfsPerPlayer {
		return
	}
	inv.spawnSerf(catalogs.SerfGeneric)
}

func (p *Player) serfCount() int {
	n := 0
	p.g.serfs.each(func(_ uint32, s *Serf) {
		if s.player == p.index {
			n++
		}
	})
	return n
}

// PlayerSummary is the per-player line of an observer tick.
type PlayerSummary struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	Serfs         int    `json:"serfs"`
	Gold          int    `json:"gold"`
	KnightMorale  int    `json:"knight_morale"`
	MilitaryScore int    `json:"military_score"`
}

func (p *Player) Summary() PlayerSummary {
	return PlayerSummary{
		Index:         p.index,
		Name:          p.name,
		Serfs:         p.serfCount(),
		Gold:          p.goldHeld(),
		KnightMorale:  p.knightMorale,
		MilitaryScore: p.militaryScore,
	}
}
