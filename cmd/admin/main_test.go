package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"serfcraft.dev/internal/persistence/indexdb"
	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/tuning"
	"serfcraft.dev/internal/sim/world"
	"serfcraft.dev/internal/transport/observer"
)

func playedGame(t *testing.T) *world.Game {
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
	if _, _, err := g.StepOnce([]world.Command{{Player: 0, Op: world.OpBuildCastle, Col: 16, Row: 16}}); err != nil {
		t.Fatalf("castle: %v", err)
	}
	for i := 0; i < 30; i++ {
		if _, _, err := g.StepOnce(nil); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	return g
}

func TestExportImportKeepsDigest(t *testing.T) {
	dir := t.TempDir()
	g := playedGame(t)
	bin := filepath.Join(dir, "62.snap.zst")
	if err := snapshot.WriteSnapshot(bin, g.ExportSnapshot("admin")); err != nil {
		t.Fatalf("write: %v", err)
	}

	text := filepath.Join(dir, "62.json")
	if err := exportSnapshot(bin, text); err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := os.ReadFile(text)
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	if err := snapshot.Validate(raw); err != nil {
		t.Fatalf("exported text does not validate: %v", err)
	}

	back := filepath.Join(dir, "back.snap.zst")
	digest, err := importSnapshot(text, back)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if digest != g.StateDigest() {
		t.Fatalf("digest changed across export/import")
	}

	line, err := describe(back)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if !strings.Contains(line, "game=admin") || !strings.Contains(line, "digest="+digest) {
		t.Fatalf("describe = %q", line)
	}
}

func TestImportRejectsInvalidText(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(in, []byte(`{"header":{"version":1}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := filepath.Join(dir, "bad.snap.zst")
	if _, err := importSnapshot(in, out); err == nil {
		t.Fatalf("expected an error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("binary written for invalid input: %v", err)
	}
}

func TestLatestSnapshotPicksHighestTick(t *testing.T) {
	gameDir := t.TempDir()
	dir := filepath.Join(gameDir, "snapshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"8.snap.zst", "120.snap.zst", "40.snap.zst", "notes.txt", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := latestSnapshot(gameDir); filepath.Base(got) != "120.snap.zst" {
		t.Fatalf("latest = %q", got)
	}
	if got := latestSnapshot(t.TempDir()); got != "" {
		t.Fatalf("latest in empty dir = %q", got)
	}
}

func TestRunQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cmd := world.Command{Player: 1, Op: world.OpBuildFlag, Col: 4, Row: 5}
	_ = idx.WriteTick(world.TickLogEntry{Tick: 2, Digest: "abc", Commands: []world.Command{cmd}})
	_ = idx.WriteTick(world.TickLogEntry{Tick: 4, Digest: "def"})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 2, Client: "bob", Cmd: cmd, Reason: "not owner"})
	idx.RecordSnapshot("/snaps/4.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, GameID: "g", Tick: 4}})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	idx, err = indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	var out bytes.Buffer
	if err := runQuery(ctx, &out, idx, []string{"ticks", "-from", "1", "-to", "3"}); err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if !strings.Contains(out.String(), "2\tabc\tcmds=1") || strings.Contains(out.String(), "def") {
		t.Fatalf("ticks output %q", out.String())
	}

	out.Reset()
	if err := runQuery(ctx, &out, idx, []string{"audits", "-client", "bob"}); err != nil {
		t.Fatalf("audits: %v", err)
	}
	if !strings.Contains(out.String(), "rejected: not owner") {
		t.Fatalf("audits output %q", out.String())
	}

	out.Reset()
	if err := runQuery(ctx, &out, idx, []string{"snapshot"}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !strings.HasPrefix(out.String(), "4\t/snaps/4.snap.zst") {
		t.Fatalf("snapshot output %q", out.String())
	}

	if err := runQuery(ctx, &out, idx, []string{"bogus"}); err == nil {
		t.Fatalf("expected unknown query error")
	}
}

func TestIssueToken(t *testing.T) {
	secret := "admin-test-secret-123"
	tok, err := issueToken(secret, "bob", "0, 2", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	auth, _ := observer.NewTokenAuth(secret, "serfcraft")
	c, err := auth.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Client != "bob" || !c.Allows(0) || !c.Allows(2) || c.Allows(1) {
		t.Fatalf("claims %+v", c)
	}
	if _, err := issueToken(secret, "bob", "x", time.Hour); err == nil {
		t.Fatalf("accepted a bad player list")
	}
	if _, err := issueToken(secret, "", "0", time.Hour); err == nil {
		t.Fatalf("accepted an empty client")
	}
	if _, err := issueToken("", "bob", "0", time.Hour); err == nil {
		t.Fatalf("accepted an empty secret")
	}
}
