package gamemap

import (
	"testing"

	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/rng"
)

func TestMoveReverseReturns(t *testing.T) {
	m, err := New(1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, p := range []Pos{m.Pos(0, 0), m.Pos(5, 7), m.Pos(m.Cols()-1, m.Rows()-1)} {
		for d := geom.DirRight; d <= geom.DirUp; d++ {
			q := m.Move(p, d)
			if back := m.Move(q, d.Reverse()); back != p {
				t.Fatalf("move %v from %d and back gave %d", d, p, back)
			}
			if m.Dist(p, q) != 1 {
				t.Fatalf("neighbour distance %d", m.Dist(p, q))
			}
		}
	}
}

func TestDistWraps(t *testing.T) {
	m, _ := New(1)
	a := m.Pos(0, 0)
	b := m.Pos(m.Cols()-1, 0)
	if dx := m.DistX(a, b); dx != -1 {
		t.Fatalf("DistX across seam = %d", dx)
	}
	if d := m.Dist(a, m.Pos(3, -2)); d != 5 {
		t.Fatalf("Dist(0,0 -> 3,-2) = %d want 5", d)
	}
}

func TestSpiralRings(t *testing.T) {
	m, _ := New(2)
	center := m.Pos(20, 20)
	seen := map[Pos]bool{}
	for i := 0; i < SpiralLen(); i++ {
		p := m.PosAddSpirally(center, i)
		if seen[p] {
			t.Fatalf("spiral entry %d repeats a position", i)
		}
		seen[p] = true
	}
	for r := 1; r <= SpiralRadius; r++ {
		for i := SpiralRingStart(r); i < SpiralRingStart(r+1) && i < SpiralLen(); i++ {
			if d := m.Dist(center, m.PosAddSpirally(center, i)); d != r {
				t.Fatalf("entry %d in ring %d has distance %d", i, r, d)
			}
		}
	}
	if SpiralLen() < 258 {
		t.Fatalf("spiral table too short: %d", SpiralLen())
	}
}

func TestGenerateDeterministic(t *testing.T) {
	gen := func() *Map {
		r, err := rng.Parse("8667715887436237")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		m, err := Generate(DefaultGenConfig(1, 99), r)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		return m
	}
	a, b := gen(), gen()
	for i := 0; i < a.Size(); i++ {
		if a.Tile(a.PosAt(i)) != b.Tile(b.PosAt(i)) {
			t.Fatalf("tile %d differs", i)
		}
	}
}

func TestRemoveMineral(t *testing.T) {
	m, _ := New(1)
	p := m.Pos(1, 1)
	m.SetMineral(p, MineralCoal, 1)
	if m.RemoveMineral(p, MineralGold) {
		t.Fatalf("removed wrong mineral")
	}
	if !m.RemoveMineral(p, MineralCoal) {
		t.Fatalf("expected coal")
	}
	if min, n := m.Mineral(p); min != MineralNone || n != 0 {
		t.Fatalf("deposit not exhausted: %v %d", min, n)
	}
}
