package main

import (
	"path/filepath"
	"strings"
	"testing"

	persistlog "serfcraft.dev/internal/persistence/log"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/tuning"
	"serfcraft.dev/internal/sim/world"
)

func newGame(t *testing.T) *world.Game {
	t.Helper()
	cfg := tuning.Defaults()
	m, err := gamemap.New(cfg.MapSize)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	g, err := world.NewWithMap(cfg, m, nil)
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	return g
}

// record plays a short scripted game and logs every step. corrupt, when
// non-zero, replaces the digest logged at that tick.
func record(t *testing.T, dir string, corrupt uint32) *world.Game {
	t.Helper()
	g := newGame(t)
	script := map[int][]world.Command{
		0: {{Player: 0, Op: world.OpBuildCastle, Col: 16, Row: 16}},
		1: {{Player: 1, Op: world.OpBuildCastle, Col: 46, Row: 46}},
		3: {
			{Player: 0, Op: world.OpBuildFlag, Col: 22, Row: 17},
			{Player: 0, Op: world.OpBuildRoad, Col: 17, Row: 17, Dirs: []string{"right", "right", "right", "right", "right"}},
		},
		5: {{Player: 0, Op: world.OpBuildBuilding, Col: 21, Row: 16, Building: "lumberjack"}},
	}
	l := persistlog.NewTickLogger(dir)
	for i := 0; i < 150; i++ {
		entry, _, err := g.StepOnce(script[i])
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if entry.Tick == corrupt {
			entry.Digest = strings.Repeat("0", 64)
		}
		if err := l.WriteTick(entry); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}
	return g
}

func TestReplayMatchesRecordedGame(t *testing.T) {
	dir := t.TempDir()
	start := newGame(t).ExportSnapshot("replay")
	want := record(t, dir, 0)

	g, err := world.Restore(start, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	checked, err := replay(g, filepath.Join(dir, "events"), 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 150 {
		t.Fatalf("checked %d ticks", checked)
	}
	if g.StateDigest() != want.StateDigest() {
		t.Fatalf("replayed game differs from the recorded one")
	}
}

func TestReplayStopsAtToTick(t *testing.T) {
	dir := t.TempDir()
	start := newGame(t).ExportSnapshot("replay")
	record(t, dir, 0)

	g, _ := world.Restore(start, nil)
	checked, err := replay(g, filepath.Join(dir, "events"), 0, 40)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 20 || g.Tick() != 40 {
		t.Fatalf("checked=%d tick=%d", checked, g.Tick())
	}
}

func TestReplayDetectsDigestMismatch(t *testing.T) {
	dir := t.TempDir()
	start := newGame(t).ExportSnapshot("replay")
	record(t, dir, 100)

	g, _ := world.Restore(start, nil)
	_, err := replay(g, filepath.Join(dir, "events"), 0, 0)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 100") {
		t.Fatalf("err = %v", err)
	}
}
