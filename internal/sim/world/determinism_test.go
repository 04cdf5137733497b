package world

import (
	"path/filepath"
	"reflect"
	"testing"

	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
	"serfcraft.dev/internal/sim/world/kernel/model"
)

// buildEconomy sets up two castles, a road and a construction site so that
// stepping moves serfs and resources around.
func buildEconomy(t *testing.T) *Game {
	t.Helper()
	g := newTestGame(t, 2)
	if _, err := g.BuildCastle(0, g.m.Pos(16, 16)); err != nil {
		t.Fatalf("castle 0: %v", err)
	}
	if _, err := g.BuildCastle(1, g.m.Pos(46, 46)); err != nil {
		t.Fatalf("castle 1: %v", err)
	}
	castleFlag := g.m.Pos(17, 17)
	f, err := g.BuildFlag(0, g.m.Pos(22, 17))
	if err != nil {
		t.Fatalf("flag: %v", err)
	}
	if err := g.BuildRoad(0, castleFlag, repeatDir(geom.DirRight, 5)); err != nil {
		t.Fatalf("road: %v", err)
	}
	if _, err := g.BuildBuilding(0, catalogs.BuildingLumberjack, g.m.Move(f.pos, geom.DirUpLeft)); err != nil {
		t.Fatalf("building: %v", err)
	}
	return g
}

func stepN(t *testing.T, g *Game, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := g.Step(); err != nil {
			t.Fatalf("step at tick %d: %v", g.Tick(), err)
		}
	}
}

func TestSameCommandsSameDigests(t *testing.T) {
	a := buildEconomy(t)
	b := buildEconomy(t)
	if a.StateDigest() != b.StateDigest() {
		t.Fatalf("digests differ before the first step")
	}
	for i := 0; i < 600; i++ {
		stepN(t, a, 1)
		stepN(t, b, 1)
		if da, db := a.StateDigest(), b.StateDigest(); da != db {
			t.Fatalf("tick %d: digest %s != %s", a.Tick(), da, db)
		}
	}
}

func TestDigestSeesChanges(t *testing.T) {
	g := buildEconomy(t)
	before := g.StateDigest()
	g.Player(0).SetFlagPriority(catalogs.Plank, 99)
	if g.StateDigest() == before {
		t.Fatalf("digest ignored a flag priority change")
	}
}

func TestRestoredGameStepsIdentically(t *testing.T) {
	a := buildEconomy(t)
	stepN(t, a, 300)

	snap := a.ExportSnapshot("determinism")
	b, err := Restore(snap, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if a.StateDigest() != b.StateDigest() {
		t.Fatalf("restored digest differs")
	}
	if a.Counts() != b.Counts() {
		t.Fatalf("counts %+v vs %+v", a.Counts(), b.Counts())
	}
	for i := 0; i < 300; i++ {
		stepN(t, a, 1)
		stepN(t, b, 1)
		if a.StateDigest() != b.StateDigest() {
			t.Fatalf("diverged at tick %d", a.Tick())
		}
	}
}

func TestSnapshotFilesRestore(t *testing.T) {
	g := buildEconomy(t)
	stepN(t, g, 200)
	want := g.StateDigest()
	snap := g.ExportSnapshot("files")

	bin := filepath.Join(t.TempDir(), "g.snap.zst")
	if err := snapshot.WriteSnapshot(bin, snap); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	fromBin, err := snapshot.ReadSnapshot(bin)
	if err != nil {
		t.Fatalf("read binary: %v", err)
	}
	gb, err := Restore(fromBin, nil)
	if err != nil {
		t.Fatalf("restore binary: %v", err)
	}
	if gb.StateDigest() != want {
		t.Fatalf("binary snapshot changed the game")
	}

	raw, err := snapshot.MarshalText(snap)
	if err != nil {
		t.Fatalf("marshal text: %v", err)
	}
	fromText, err := snapshot.UnmarshalText(raw)
	if err != nil {
		t.Fatalf("text snapshot: %v", err)
	}
	gt, err := Restore(fromText, nil)
	if err != nil {
		t.Fatalf("restore text: %v", err)
	}
	if gt.StateDigest() != want {
		t.Fatalf("text snapshot changed the game")
	}
}

func TestRestoreRejectsBadSerfState(t *testing.T) {
	g := buildEconomy(t)
	snap := g.ExportSnapshot("bad")
	snap.Serfs[0].State = "dancing"
	if _, err := Restore(snap, nil); err == nil {
		t.Fatalf("unknown serf state accepted")
	}
}

// fillPayload gives every field of the payload struct v a distinct non-zero
// value small enough to be a valid direction or state.
func fillPayload(v reflect.Value, n *int) {
	for i := 0; i < v.NumField(); i++ {
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Struct:
			fillPayload(fv, n)
			continue
		case reflect.Bool:
			fv.SetBool(true)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(int64(1 + *n%5))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fv.SetUint(uint64(1 + *n%5))
		}
		*n++
	}
}

func TestSnapshotKeepsEveryPayload(t *testing.T) {
	g := newTestGame(t, 1)
	serfs := map[model.State]*Serf{}
	n := 0
	for st := model.StateNull; int(st) < model.StateCount; st++ {
		s := placeSerf(g, catalogs.SerfGeneric, 1+int(st)%60, 1+int(st)/60)
		s.setState(st)
		if s.payload != nil {
			fillPayload(reflect.ValueOf(s.payload).Elem(), &n)
		}
		serfs[st] = s
	}

	r, err := Restore(g.ExportSnapshot("payloads"), nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	for st, s := range serfs {
		got := r.Serf(s.index)
		if got == nil {
			t.Fatalf("%s: serf %d missing", st, s.index)
		}
		if got.state != st {
			t.Fatalf("serf %d: state %s, want %s", s.index, got.state, st)
		}
		if !reflect.DeepEqual(got.payload, s.payload) {
			t.Fatalf("%s: payload %+v, want %+v", st, got.payload, s.payload)
		}
	}
	if r.StateDigest() != g.StateDigest() {
		t.Fatalf("restored digest differs")
	}
}
