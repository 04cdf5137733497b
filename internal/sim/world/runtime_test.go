package world

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/catalogs"
	"serfcraft.dev/internal/sim/geom"
)

type memTicks struct {
	mu      sync.Mutex
	entries []TickLogEntry
}

func (m *memTicks) WriteTick(e TickLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memTicks) snapshot() []TickLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TickLogEntry(nil), m.entries...)
}

type memAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (m *memAudit) WriteAudit(e AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func TestApplyReportsRejections(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)

	res, err := g.Apply(Command{Player: 0, Op: OpBuildFlag, Col: 5, Row: 5})
	if err != nil || !res.OK {
		t.Fatalf("build flag: %+v %v", res, err)
	}
	res, err = g.Apply(Command{Player: 0, Op: OpBuildFlag, Col: 6, Row: 5})
	if err != nil || res.OK || res.Err == "" {
		t.Fatalf("adjacent flag: %+v %v", res, err)
	}
	res, _ = g.Apply(Command{Player: 0, Op: OpBuildFlag, Col: 500, Row: 5})
	if res.OK {
		t.Fatalf("off-map flag accepted")
	}
	res, _ = g.Apply(Command{Player: 0, Op: "FLY"})
	if res.OK {
		t.Fatalf("unknown op accepted")
	}
}

func TestApplyBuildsRoadFromNames(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	g.Apply(Command{Op: OpBuildFlag, Col: 5, Row: 5})
	g.Apply(Command{Op: OpBuildFlag, Col: 9, Row: 5})
	res, err := g.Apply(Command{Op: OpBuildRoad, Col: 5, Row: 5, Dirs: []string{"right", "right", "right", "right"}})
	if err != nil || !res.OK {
		t.Fatalf("road: %+v %v", res, err)
	}
	a := g.FlagAt(g.m.Pos(5, 5))
	if a.OtherEndFlag(geom.DirRight) != g.FlagAt(g.m.Pos(9, 5)) {
		t.Fatalf("road not linked")
	}
	res, _ = g.Apply(Command{Op: OpBuildRoad, Col: 9, Row: 5, Dirs: []string{"sideways"}})
	if res.OK {
		t.Fatalf("bad direction accepted")
	}
}

func TestApplySetsPriorities(t *testing.T) {
	g := newTestGame(t, 1)
	if res, _ := g.Apply(Command{Op: OpSetToolPrio, Resource: "saw", Prio: 1234}); !res.OK {
		t.Fatalf("tool prio: %+v", res)
	}
	if g.Player(0).ToolPriority(catalogs.Saw) != 1234 {
		t.Fatalf("tool priority not stored")
	}
	if res, _ := g.Apply(Command{Op: OpSetToolPrio, Resource: "plank", Prio: 1}); res.OK {
		t.Fatalf("plank accepted as a tool")
	}
	if res, _ := g.Apply(Command{Op: OpSetFlagPrio, Resource: "stone", Prio: 7}); !res.OK {
		t.Fatalf("flag prio: %+v", res)
	}
	if g.Player(0).FlagPriority(catalogs.Stone) != 7 {
		t.Fatalf("flag priority not stored")
	}
}

func TestStepOnceRecordsCommands(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	cmds := []Command{{Op: OpBuildFlag, Col: 5, Row: 5}, {Op: OpBuildFlag, Col: 6, Row: 5}}
	entry, results, err := g.StepOnce(cmds)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(results) != 2 || !results[0].OK || results[1].OK {
		t.Fatalf("results %+v", results)
	}
	if entry.Tick != g.Tick() || len(entry.Commands) != 2 || entry.Digest != g.StateDigest() {
		t.Fatalf("entry %+v", entry)
	}
	if entry.Counts.Flags != 1 {
		t.Fatalf("counts %+v", entry.Counts)
	}
}

func TestRuntimeStepsAndFeedsSinks(t *testing.T) {
	g := newTestGame(t, 1)
	own(g, 0, 0, 0, 30, 30)
	g.cfg.SnapshotEveryTicks = 4

	ticks := &memTicks{}
	audits := &memAudit{}
	var (
		snapMu sync.Mutex
		snaps  []snapshot.SnapshotV1
	)
	rt := NewRuntime(g, RuntimeConfig{
		GameID:     "rt",
		TickRateHz: 1000,
		TickSinks:  []TickSink{ticks},
		AuditSinks: []AuditSink{audits},
		OnSnapshot: func(s snapshot.SnapshotV1) {
			snapMu.Lock()
			snaps = append(snaps, s)
			snapMu.Unlock()
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	obs := make(chan TickSummary, 4)
	rt.ObserverJoin() <- ObserverJoinRequest{SessionID: "o1", Out: obs}

	resp := make(chan CommandResult, 1)
	rt.Inbox() <- CommandEnvelope{Client: "c1", Cmd: Command{Op: OpBuildFlag, Col: 5, Row: 5}, Resp: resp}
	select {
	case res := <-resp:
		if !res.OK {
			t.Fatalf("command rejected: %+v", res)
		}
	case <-ctx.Done():
		t.Fatalf("no command result")
	}

	var sum TickSummary
	select {
	case sum = <-obs:
	case <-ctx.Done():
		t.Fatalf("no observer tick")
	}
	if len(sum.Players) != 1 || sum.Digest == "" {
		t.Fatalf("summary %+v", sum)
	}

	for rt.CurrentTick() < 20 {
		if ctx.Err() != nil {
			t.Fatalf("runtime stalled at tick %d", rt.CurrentTick())
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, err := rt.RequestSnapshot(ctx)
	if err != nil {
		t.Fatalf("request snapshot: %v", err)
	}
	rt.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	if snap.Header.GameID != "rt" || len(snap.Flags) != 1 {
		t.Fatalf("snapshot header %+v flags %d", snap.Header, len(snap.Flags))
	}
	entries := ticks.snapshot()
	if len(entries) < 10 {
		t.Fatalf("only %d tick entries", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Tick != entries[i-1].Tick+uint32(g.cfg.TickSpeed) {
			t.Fatalf("tick gap %d -> %d", entries[i-1].Tick, entries[i].Tick)
		}
	}
	if len(audits.entries) != 1 || audits.entries[0].Client != "c1" || !audits.entries[0].OK {
		t.Fatalf("audits %+v", audits.entries)
	}
	snapMu.Lock()
	defer snapMu.Unlock()
	if len(snaps) == 0 {
		t.Fatalf("no periodic snapshot")
	}
}

func TestRuntimeServesMapLayers(t *testing.T) {
	g := newTestGame(t, 2)
	rt := NewRuntime(g, RuntimeConfig{GameID: "layers", TickRateHz: 1000})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = rt.Run(ctx)
		close(done)
	}()

	reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
	defer reqCancel()
	l, err := rt.RequestMapLayers(reqCtx)
	if err != nil {
		t.Fatalf("layers: %v", err)
	}
	if l.Cols != 64 || l.Owners == "" {
		t.Fatalf("layers %+v", l)
	}
	cancel()
	<-done
}

func TestRuntimeRateLimitsClients(t *testing.T) {
	g := newTestGame(t, 2)
	audits := &memAudit{}
	rt := NewRuntime(g, RuntimeConfig{
		GameID:             "limits",
		TickRateHz:         1,
		AuditSinks:         []AuditSink{audits},
		CommandWindowTicks: 1000,
		CommandsPerWindow:  2,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = rt.Run(ctx)
		close(done)
	}()

	resps := make([]chan CommandResult, 3)
	for i := range resps {
		resps[i] = make(chan CommandResult, 1)
		rt.Inbox() <- CommandEnvelope{Client: "spammer", Cmd: Command{Player: 0, Op: OpBuildFlag, Col: 3, Row: 3}, Resp: resps[i]}
	}
	other := make(chan CommandResult, 1)
	rt.Inbox() <- CommandEnvelope{Client: "calm", Cmd: Command{Player: 1, Op: OpBuildFlag, Col: 3, Row: 3}, Resp: other}

	select {
	case res := <-resps[2]:
		if res.OK || res.Err != "rate limited: retry in 1000 ticks" {
			t.Fatalf("third command %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no answer for the limited command")
	}
	select {
	case res := <-other:
		if strings.HasPrefix(res.Err, "rate limited") {
			t.Fatalf("other client limited: %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no answer for the other client")
	}
	cancel()
	<-done

	audits.mu.Lock()
	defer audits.mu.Unlock()
	limited := 0
	for _, e := range audits.entries {
		if strings.HasPrefix(e.Reason, "rate limited") {
			limited++
			if e.Client != "spammer" {
				t.Fatalf("limited audit for %s", e.Client)
			}
		}
	}
	if limited != 1 {
		t.Fatalf("limited audits = %d", limited)
	}
}
