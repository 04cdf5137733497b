package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/tuning"
	"serfcraft.dev/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of the tick log, the audit log
// and written snapshots. Writes are queued and never block the simulation;
// the JSONL logs stay the source of truth.
type SQLiteIndex struct {
	db *sqlx.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick     atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64

	writeFail atomic.Uint64
	lastErr   atomic.Value // string
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	snapshot SnapshotRow
}

// SnapshotRow describes one snapshot file on disk.
type SnapshotRow struct {
	Tick        uint32 `db:"tick"`
	Path        string `db:"path"`
	GameID      string `db:"game_id"`
	Flags       int    `db:"flags"`
	Serfs       int    `db:"serfs"`
	Buildings   int    `db:"buildings"`
	Inventories int    `db:"inventories"`
}

// TickRow is the indexed form of a tick log entry.
type TickRow struct {
	Tick     uint32 `db:"tick"`
	Digest   string `db:"digest"`
	Commands int    `db:"commands"`
	Serfs    int    `db:"serfs"`
	RawJSON  string `db:"raw_json"`
}

// AuditRow is one recorded client command.
type AuditRow struct {
	Tick   uint32 `db:"tick"`
	Seq    int    `db:"seq"`
	Client string `db:"client"`
	Player int    `db:"player"`
	Op     string `db:"op"`
	OK     bool   `db:"ok"`
	Reason string `db:"reason"`
}

// Stats reports how far the writer has fallen behind.
type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTickTotal     uint64
	DropAuditTotal    uint64
	DropSnapshotTotal uint64
	WriteFailTotal    uint64
	LastError         string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tuning (
		digest TEXT PRIMARY KEY,
		json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ticks (
		tick INTEGER PRIMARY KEY,
		digest TEXT NOT NULL,
		commands INTEGER NOT NULL,
		flags INTEGER NOT NULL,
		serfs INTEGER NOT NULL,
		buildings INTEGER NOT NULL,
		raw_json TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS commands (
		tick INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		player INTEGER NOT NULL,
		op TEXT NOT NULL,
		cmd_json TEXT NOT NULL,
		PRIMARY KEY (tick, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_commands_player_tick ON commands(player, tick);
	CREATE TABLE IF NOT EXISTS audits (
		tick INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		client TEXT NOT NULL,
		player INTEGER NOT NULL,
		op TEXT NOT NULL,
		ok INTEGER NOT NULL,
		reason TEXT NOT NULL,
		raw_json TEXT NOT NULL,
		PRIMARY KEY (tick, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_audits_client_tick ON audits(client, tick);
	CREATE TABLE IF NOT EXISTS snapshots (
		tick INTEGER PRIMARY KEY,
		path TEXT NOT NULL,
		game_id TEXT NOT NULL,
		flags INTEGER NOT NULL,
		serfs INTEGER NOT NULL,
		buildings INTEGER NOT NULL,
		inventories INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	lastErr, _ := s.lastErr.Load().(string)
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		WriteFailTotal:    s.writeFail.Load(),
		LastError:         lastErr,
	}
}

func (s *SQLiteIndex) fail(op string, err error) {
	s.writeFail.Add(1)
	s.lastErr.Store(op + ": " + err.Error())
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := SnapshotRow{
		Tick:        snap.Header.Tick,
		Path:        path,
		GameID:      snap.Header.GameID,
		Flags:       len(snap.Flags),
		Serfs:       len(snap.Serfs),
		Buildings:   len(snap.Buildings),
		Inventories: len(snap.Inventories),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertTuning stores the tuning the game actually runs with.
func (s *SQLiteIndex) UpsertTuning(ctx context.Context, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_digest',?)`, digest); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO tuning(digest,json,updated_at) VALUES(?,?,?)`, digest, string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

// Meta returns a value from the meta table, or "" when unset.
func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// LatestSnapshot returns the newest recorded snapshot at or before tick; a
// zero tick means no upper bound.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context, tick uint32) (SnapshotRow, bool, error) {
	var row SnapshotRow
	q := `SELECT tick, path, game_id, flags, serfs, buildings, inventories FROM snapshots`
	args := []any{}
	if tick != 0 {
		q += ` WHERE tick <= ?`
		args = append(args, int64(tick))
	}
	q += ` ORDER BY tick DESC LIMIT 1`
	err := s.db.GetContext(ctx, &row, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRow{}, false, nil
	}
	if err != nil {
		return SnapshotRow{}, false, err
	}
	return row, true, nil
}

// Ticks lists indexed ticks in [from, to], oldest first.
func (s *SQLiteIndex) Ticks(ctx context.Context, from, to uint32) ([]TickRow, error) {
	var rows []TickRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT tick, digest, commands, serfs, raw_json FROM ticks WHERE tick >= ? AND tick <= ? ORDER BY tick`,
		int64(from), int64(to))
	return rows, err
}

// Audits lists recorded commands from one client, oldest first.
func (s *SQLiteIndex) Audits(ctx context.Context, client string, limit int) ([]AuditRow, error) {
	var rows []AuditRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT tick, seq, client, player, op, ok, reason FROM audits WHERE client = ? ORDER BY tick, seq LIMIT ?`,
		client, limit)
	return rows, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sqlx.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastAuditTick uint32
		auditSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			s.fail("begin", err)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.fail("commit", err)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(q string, args ...any) bool {
		if _, err := tx.Exec(q, args...); err != nil {
			s.fail("exec", err)
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			b, _ := json.Marshal(t)
			if !exec(`INSERT OR REPLACE INTO ticks(tick,digest,commands,flags,serfs,buildings,raw_json) VALUES(?,?,?,?,?,?,?)`,
				int64(t.Tick), t.Digest, len(t.Commands), t.Counts.Flags, t.Counts.Serfs, t.Counts.Buildings, string(b)) {
				continue
			}
			for i, c := range t.Commands {
				cj, _ := json.Marshal(c)
				if !exec(`INSERT OR REPLACE INTO commands(tick,seq,player,op,cmd_json) VALUES(?,?,?,?,?)`,
					int64(t.Tick), i, c.Player, c.Op, string(cj)) {
					break
				}
			}

		case reqAudit:
			a := r.audit
			if a.Tick != lastAuditTick {
				lastAuditTick = a.Tick
				auditSeq = 0
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			exec(`INSERT OR REPLACE INTO audits(tick,seq,client,player,op,ok,reason,raw_json) VALUES(?,?,?,?,?,?,?,?)`,
				int64(a.Tick), seq, a.Client, a.Cmd.Player, a.Cmd.Op, a.OK, a.Reason, string(raw))

		case reqSnapshot:
			sn := r.snapshot
			exec(`INSERT OR REPLACE INTO snapshots(tick,path,game_id,flags,serfs,buildings,inventories) VALUES(?,?,?,?,?,?,?)`,
				int64(sn.Tick), sn.Path, sn.GameID, sn.Flags, sn.Serfs, sn.Buildings, sn.Inventories)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
