package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/world/logic/rates"
)

// TickSink receives every tick log entry produced by a Runtime.
type TickSink interface {
	WriteTick(TickLogEntry) error
}

// AuditSink receives one entry per client command.
type AuditSink interface {
	WriteAudit(AuditEntry) error
}

// CommandEnvelope carries a client command into the runtime loop. Resp, when
// set, receives the result after the command has been applied.
type CommandEnvelope struct {
	Client string
	Cmd    Command
	Resp   chan CommandResult
}

// TickSummary is what observers receive after every step.
type TickSummary struct {
	Tick      uint32          `json:"tick"`
	Digest    string          `json:"digest"`
	Counts    Counts          `json:"counts"`
	GoldTotal int             `json:"gold_total"`
	Players   []PlayerSummary `json:"players"`
}

// ObserverJoinRequest registers a read-only session fed by the loop.
type ObserverJoinRequest struct {
	SessionID string
	Out       chan TickSummary
}

type RuntimeConfig struct {
	GameID     string
	TickRateHz int
	TickSinks  []TickSink
	AuditSinks []AuditSink
	// OnSnapshot is called from the loop every SnapshotEveryTicks game ticks.
	OnSnapshot func(snapshot.SnapshotV1)
	// Per-client command limit: at most CommandsPerWindow commands in any
	// window of CommandWindowTicks game ticks. Zero disables it.
	CommandWindowTicks uint32
	CommandsPerWindow  int
}

// Runtime drives a Game from a single goroutine. Commands, observer joins
// and snapshots are all serialized through Run.
type Runtime struct {
	g   *Game
	cfg RuntimeConfig

	inbox         chan CommandEnvelope
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	snapReq       chan chan snapshot.SnapshotV1
	layersReq     chan chan MapLayers
	stop          chan struct{}
	stopOnce      sync.Once

	tick      atomic.Uint32
	observers map[string]chan TickSummary
	lastSnap  uint32
	limits    map[string]*rates.Window
}

func NewRuntime(g *Game, cfg RuntimeConfig) *Runtime {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	r := &Runtime{
		g:             g,
		cfg:           cfg,
		inbox:         make(chan CommandEnvelope, 1024),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		snapReq:       make(chan chan snapshot.SnapshotV1, 4),
		layersReq:     make(chan chan MapLayers, 4),
		stop:          make(chan struct{}),
		observers:     map[string]chan TickSummary{},
		limits:        map[string]*rates.Window{},
		lastSnap:      g.Tick(),
	}
	r.tick.Store(g.Tick())
	return r
}

func (r *Runtime) Inbox() chan<- CommandEnvelope            { return r.inbox }
func (r *Runtime) ObserverJoin() chan<- ObserverJoinRequest { return r.observerJoin }
func (r *Runtime) ObserverLeave() chan<- string             { return r.observerLeave }
func (r *Runtime) CurrentTick() uint32                      { return r.tick.Load() }
func (r *Runtime) GameID() string                           { return r.cfg.GameID }
func (r *Runtime) Stop()                                    { r.stopOnce.Do(func() { close(r.stop) }) }

// MapSize and PlayerNames never change after start, so they are safe to
// read outside the loop.
func (r *Runtime) MapSize() (cols, rows int) { return r.g.m.Cols(), r.g.m.Rows() }

func (r *Runtime) PlayerNames() []string {
	out := make([]string, 0, len(r.g.players))
	for _, p := range r.g.players {
		out = append(out, p.name)
	}
	return out
}

// RequestSnapshot asks the loop for a snapshot taken between two steps.
func (r *Runtime) RequestSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	resp := make(chan snapshot.SnapshotV1, 1)
	select {
	case r.snapReq <- resp:
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
	select {
	case s := <-resp:
		return s, nil
	case <-ctx.Done():
		return snapshot.SnapshotV1{}, ctx.Err()
	}
}

// RequestMapLayers asks the loop for the current map layers.
func (r *Runtime) RequestMapLayers(ctx context.Context) (MapLayers, error) {
	resp := make(chan MapLayers, 1)
	select {
	case r.layersReq <- resp:
	case <-ctx.Done():
		return MapLayers{}, ctx.Err()
	}
	select {
	case l := <-resp:
		return l, nil
	case <-ctx.Done():
		return MapLayers{}, ctx.Err()
	}
}

// Run steps the game at TickRateHz until ctx ends, Stop is called or a
// step faults. A fault is returned; the game must not be stepped again.
func (r *Runtime) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(r.cfg.TickRateHz))
	defer ticker.Stop()
	defer r.closeObservers()

	var pending []CommandEnvelope
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case req := <-r.observerJoin:
			r.observers[req.SessionID] = req.Out
		case id := <-r.observerLeave:
			if ch, ok := r.observers[id]; ok {
				delete(r.observers, id)
				close(ch)
			}
		case resp := <-r.snapReq:
			resp <- r.g.ExportSnapshot(r.cfg.GameID)
		case resp := <-r.layersReq:
			resp <- r.g.MapLayers()
		case env := <-r.inbox:
			if r.admit(env) {
				pending = append(pending, env)
			}
		case <-ticker.C:
			if err := r.stepOnce(pending); err != nil {
				return err
			}
			pending = pending[:0]
		}
	}
}

func (r *Runtime) stepOnce(pending []CommandEnvelope) error {
	cmds := make([]Command, 0, len(pending))
	for _, env := range pending {
		cmds = append(cmds, env.Cmd)
	}
	entry, results, err := r.g.StepOnce(cmds)
	for i, res := range results {
		env := pending[i]
		r.audit(AuditEntry{Tick: res.Tick, Client: env.Client, Cmd: env.Cmd, OK: res.OK, Reason: res.Err})
		if env.Resp != nil {
			select {
			case env.Resp <- res:
			default:
			}
		}
	}
	if err != nil {
		r.g.logf("step stopped at tick %d: %v", r.g.Tick(), err)
		return err
	}
	r.tick.Store(entry.Tick)
	if len(r.limits) > 256 {
		r.pruneLimits()
	}

	for _, s := range r.cfg.TickSinks {
		if err := s.WriteTick(entry); err != nil {
			r.g.logf("tick log: %v", err)
		}
	}
	r.broadcast(entry)

	every := uint32(r.g.cfg.SnapshotEveryTicks)
	if r.cfg.OnSnapshot != nil && every > 0 && entry.Tick-r.lastSnap >= every {
		r.lastSnap = entry.Tick
		r.cfg.OnSnapshot(r.g.ExportSnapshot(r.cfg.GameID))
	}
	return nil
}

// admit applies the per-client command limit. A refused command is answered
// and audited here and never reaches the game.
func (r *Runtime) admit(env CommandEnvelope) bool {
	length, max := r.cfg.CommandWindowTicks, r.cfg.CommandsPerWindow
	if length == 0 || max <= 0 {
		return true
	}
	now := r.g.Tick()
	w := r.limits[env.Client]
	if w == nil {
		w = &rates.Window{Start: now}
		r.limits[env.Client] = w
	}
	ok, cooldown := w.Allow(now, length, max)
	if ok {
		return true
	}
	res := CommandResult{Tick: now, Op: env.Cmd.Op, Err: fmt.Sprintf("rate limited: retry in %d ticks", cooldown)}
	r.audit(AuditEntry{Tick: now, Client: env.Client, Cmd: env.Cmd, Reason: res.Err})
	if env.Resp != nil {
		select {
		case env.Resp <- res:
		default:
		}
	}
	return false
}

func (r *Runtime) pruneLimits() {
	now := r.g.Tick()
	for id, w := range r.limits {
		if w.Expired(now, r.cfg.CommandWindowTicks) {
			delete(r.limits, id)
		}
	}
}

func (r *Runtime) audit(e AuditEntry) {
	for _, s := range r.cfg.AuditSinks {
		if err := s.WriteAudit(e); err != nil {
			r.g.logf("audit log: %v", err)
		}
	}
}

func (r *Runtime) broadcast(entry TickLogEntry) {
	if len(r.observers) == 0 {
		return
	}
	sum := TickSummary{
		Tick:      entry.Tick,
		Digest:    entry.Digest,
		Counts:    entry.Counts,
		GoldTotal: r.g.goldTotal,
		Players:   make([]PlayerSummary, 0, len(r.g.players)),
	}
	for _, p := range r.g.players {
		sum.Players = append(sum.Players, p.Summary())
	}
	for _, ch := range r.observers {
		sendLatest(ch, sum)
	}
}

func (r *Runtime) closeObservers() {
	for id, ch := range r.observers {
		delete(r.observers, id)
		close(ch)
	}
}

// sendLatest never blocks: a slow observer loses its oldest tick.
func sendLatest(ch chan TickSummary, v TickSummary) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// IsFault reports whether err came from a broken simulation invariant.
func IsFault(err error) bool { return errors.Is(err, ErrSimulationFault) }
