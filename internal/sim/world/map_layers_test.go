package world

import (
	"testing"

	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/geom"
)

func TestMapLayersReflectCastle(t *testing.T) {
	g := newTestGame(t, 1)
	pos := g.m.Pos(16, 16)
	if _, err := g.BuildCastle(0, pos); err != nil {
		t.Fatalf("castle: %v", err)
	}
	l := g.MapLayers()
	if l.Cols != 64 || l.Rows != 64 {
		t.Fatalf("layers %dx%d", l.Cols, l.Rows)
	}
	if o, err := l.OwnerAt(16, 16); err != nil || o != 0 {
		t.Fatalf("owner at castle = %d %v", o, err)
	}
	if o, _ := l.OwnerAt(60, 60); o != -1 {
		t.Fatalf("far tile owner = %d", o)
	}
	if obj, err := l.ObjectAt(16, 16); err != nil || obj != gamemap.ObjectCastle {
		t.Fatalf("object at castle = %d %v", obj, err)
	}
	fp := g.m.Move(pos, geom.DirDownRight)
	if obj, _ := l.ObjectAt(g.m.Col(fp), g.m.Row(fp)); obj != gamemap.ObjectFlag {
		t.Fatalf("object at castle flag = %d", obj)
	}
}
