package world

import (
	"testing"

	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/tuning"
)

// newTestGame makes a game on a flat, unowned 64x64 grass map.
func newTestGame(t *testing.T, players int) *Game {
	t.Helper()
	cfg := tuning.Defaults()
	cfg.MapSize = 2
	cfg.Players = cfg.Players[:players]
	m, err := gamemap.New(cfg.MapSize)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	g, err := NewWithMap(cfg, m, nil)
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	return g
}

// own hands a rectangle of the map to player.
func own(g *Game, player, c0, r0, c1, r1 int) {
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			g.m.SetOwner(g.m.Pos(c, r), player)
		}
	}
}

func repeatDir(d geom.Direction, n int) []geom.Direction {
	out := make([]geom.Direction, n)
	for i := range out {
		out[i] = d
	}
	return out
}

// straightRoad places flags at (c,r) and (c+n,r) and joins them.
func straightRoad(t *testing.T, g *Game, player, c, r, n int) (*Flag, *Flag) {
	t.Helper()
	a, err := g.BuildFlag(player, g.m.Pos(c, r))
	if err != nil {
		t.Fatalf("flag a: %v", err)
	}
	b, err := g.BuildFlag(player, g.m.Pos(c+n, r))
	if err != nil {
		t.Fatalf("flag b: %v", err)
	}
	if err := g.BuildRoad(player, a.pos, repeatDir(geom.DirRight, n)); err != nil {
		t.Fatalf("road: %v", err)
	}
	return a, b
}

// checkPathSymmetry verifies that every road is known the same way from
// both of its ends.
func checkPathSymmetry(t *testing.T, g *Game) {
	t.Helper()
	g.EachFlag(func(f *Flag) {
		for _, d := range geom.CycleCW {
			if !f.HasPath(d) || (d == geom.DirUpLeft && f.HasBuilding()) {
				continue
			}
			o := f.OtherEndFlag(d)
			if o == nil {
				t.Fatalf("flag %d dir %s: no other end", f.index, d)
			}
			od := f.OtherEndDir(d)
			if !o.HasPath(od) || o.OtherEndFlag(od) != f || o.OtherEndDir(od) != d {
				t.Fatalf("flag %d dir %s: other end %d/%s does not point back", f.index, d, o.index, od)
			}
			if o.LengthCategory(od) != f.LengthCategory(d) {
				t.Fatalf("flag %d dir %s: length category %d vs %d", f.index, d, f.LengthCategory(d), o.LengthCategory(od))
			}
			if o.IsWaterPath(od) != f.IsWaterPath(d) {
				t.Fatalf("flag %d dir %s: water mismatch", f.index, d)
			}
		}
	})
}
