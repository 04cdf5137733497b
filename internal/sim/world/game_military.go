package world

import (
	"sort"

	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// attackRadius is how far knights are gathered from for an attack.
const attackRadius = 16

// Attack sends up to n knights of player against the military building at
// target. Every building knights are taken from keeps one. It returns the
// number of knights sent.
func (g *Game) Attack(player int, target gamemap.Pos, n int) (int, error) {
	sent := 0
	err := g.command(func() error {
		if g.Player(player) == nil {
			return ErrBadPlayer
		}
		b := g.BuildingAt(target)
		if b == nil {
			return ErrNoSuchObject
		}
		if !b.typ.IsMilitary() || b.owner == player || !b.done || !b.active || b.burning {
			return ErrBadTarget
		}
		srcs := g.militaryAround(player, b.pos, attackRadius)
		sort.SliceStable(srcs, func(i, j int) bool {
			return g.m.Dist(srcs[i].pos, b.pos) < g.m.Dist(srcs[j].pos, b.pos)
		})
		for _, src := range srcs {
			for sent < n && src.knightCount() > 1 {
				k := src.popKnight(false)
				k.goOut(model.StateKnightFreeWalking).Dest = b.index
				sent++
			}
		}
		if sent == 0 {
			return ErrNoKnights
		}
		g.logf("player %d attacks building %d with %d knights", player, b.index, sent)
		return nil
	})
	return sent, err
}
