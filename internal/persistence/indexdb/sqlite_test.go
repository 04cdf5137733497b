package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/tuning"
	"serfcraft.dev/internal/sim/world"
)

func TestSQLiteIndex_WritesAndQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cmd := world.Command{Player: 1, Op: world.OpBuildFlag, Col: 4, Row: 5}
	for tick := uint32(2); tick <= 10; tick += 2 {
		e := world.TickLogEntry{Tick: tick, Digest: "d", Counts: world.Counts{Serfs: int(tick)}}
		if tick == 4 {
			e.Commands = []world.Command{cmd, cmd}
		}
		_ = idx.WriteTick(e)
	}
	_ = idx.WriteAudit(world.AuditEntry{Tick: 4, Client: "c1", Cmd: cmd, OK: true})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 4, Client: "c1", Cmd: cmd, Reason: "position occupied"})
	idx.RecordSnapshot("/tmp/a.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, GameID: "g", Tick: 4}})
	idx.RecordSnapshot("/tmp/b.snap.zst", snapshot.SnapshotV1{Header: snapshot.Header{Version: 1, GameID: "g", Tick: 8}})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	rows, err := idx.Ticks(ctx, 4, 8)
	if err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if len(rows) != 3 || rows[0].Tick != 4 || rows[0].Commands != 2 || rows[2].Serfs != 8 {
		t.Fatalf("ticks = %+v", rows)
	}

	snap, ok, err := idx.LatestSnapshot(ctx, 0)
	if err != nil || !ok || snap.Path != "/tmp/b.snap.zst" {
		t.Fatalf("latest = %+v %v %v", snap, ok, err)
	}
	snap, ok, err = idx.LatestSnapshot(ctx, 6)
	if err != nil || !ok || snap.Tick != 4 {
		t.Fatalf("latest <= 6 = %+v %v %v", snap, ok, err)
	}
	if _, ok, _ := idx.LatestSnapshot(ctx, 2); ok {
		t.Fatalf("found a snapshot before the first one")
	}

	audits, err := idx.Audits(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("audits: %v", err)
	}
	if len(audits) != 2 || !audits[0].OK || audits[1].OK || audits[1].Seq != 1 || audits[1].Reason != "position occupied" {
		t.Fatalf("audits = %+v", audits)
	}
}

func TestSQLiteIndex_Tuning(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "game.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()
	if v, err := idx.Meta(ctx, "tuning_digest"); err != nil || v != "" {
		t.Fatalf("meta before upsert = %q %v", v, err)
	}
	if err := idx.UpsertTuning(ctx, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	v, err := idx.Meta(ctx, "tuning_digest")
	if err != nil || len(v) != 64 {
		t.Fatalf("digest = %q %v", v, err)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(world.AuditEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropAuditTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_CountsWriteFailures(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "game.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}
	_ = idx.WriteTick(world.TickLogEntry{Tick: 2, Digest: "d"})
	_ = idx.Close()

	st := idx.Stats()
	if st.WriteFailTotal == 0 || st.LastError == "" {
		t.Fatalf("stats = %+v", st)
	}
}
