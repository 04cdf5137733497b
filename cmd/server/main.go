package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"serfcraft.dev/internal/persistence/archive"
	persistlog "serfcraft.dev/internal/persistence/log"
	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/tuning"
	"serfcraft.dev/internal/sim/world"
	"serfcraft.dev/internal/transport/observer"
	"serfcraft.dev/internal/transport/redisfeed"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		gameID     = flag.String("game", "game_1", "game id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		tickRate   = flag.Int("tick_rate", 20, "steps per second")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")
		allowAny   = flag.Bool("allow_remote", false, "accept observer connections from non-loopback addresses")
		cmdWindow  = flag.Uint("cmd_window_ticks", 200, "per-client command limit window in game ticks (0: unlimited)")
		wsMsgRate  = flag.Float64("ws_msg_rate", 50, "observer messages per second per connection")
		cmdMax     = flag.Int("cmd_per_window", 50, "commands a client may send per window")
		redisAddr  = flag.String("redis_addr", "", "mirror ticks to this redis server (optional)")
		redisDB    = flag.Int("redis_db", 0, "redis database index")
		tokenEnv   = flag.String("token_secret_env", "SC_TOKEN_SECRET", "env var holding the command token secret (unset: commands need no token)")
		keepSnaps  = flag.Int("keep_snapshots", 24, "rolling snapshots kept in <game>/snapshots (0: keep all)")
		archiveAt  = flag.Uint("archive_every", 20000, "copy snapshots at multiples of this tick into <game>/archives (0: off)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	gameDir := filepath.Join(*dataDir, "games", *gameID)
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	idx, err := openRuntimeIndex(gameDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(gameDir)
	}

	gameLogger := log.New(os.Stdout, "[game] ", log.LstdFlags|log.Lmicroseconds)
	var g *world.Game
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.GameID != "" && snap.Header.GameID != *gameID {
			logger.Fatalf("snapshot game id mismatch: flag=%s snap=%s", *gameID, snap.Header.GameID)
		}
		g, err = world.Restore(snap, gameLogger)
		if err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), g.Tick())
	} else {
		tune, err := tuning.Load(tp)
		if errors.Is(err, os.ErrNotExist) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune, err = tuning.Defaults(), nil
		}
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		g, err = world.New(tune, gameLogger)
		if err != nil {
			logger.Fatalf("game: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	if idx != nil {
		if err := idx.UpsertTuning(ctx, g.Tuning()); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	tickLog := persistlog.NewTickLogger(gameDir)
	auditLog := persistlog.NewAuditLogger(gameDir)
	defer tickLog.Close()
	defer auditLog.Close()

	rcfg := world.RuntimeConfig{
		GameID:     *gameID,
		TickRateHz: *tickRate,
		TickSinks:  []world.TickSink{tickLog},
		AuditSinks: []world.AuditSink{auditLog},

		CommandWindowTicks: uint32(*cmdWindow),
		CommandsPerWindow:  *cmdMax,
	}
	if idx != nil {
		rcfg.TickSinks = append(rcfg.TickSinks, idx)
		rcfg.AuditSinks = append(rcfg.AuditSinks, idx)
	}
	var feed *redisfeed.Publisher
	if *redisAddr != "" {
		feed, err = redisfeed.Dial(ctx, *redisAddr, os.Getenv("SC_REDIS_PASSWORD"), *redisDB, *gameID, logger)
		if err != nil {
			logger.Fatalf("redis feed: %v", err)
		}
		defer feed.Close()
		rcfg.TickSinks = append(rcfg.TickSinks, feed)
		logger.Printf("mirroring ticks to redis %s channel %s", *redisAddr, feed.Channel())
	}

	var snapMu sync.Mutex
	saveSnapshot := func(snap snapshot.SnapshotV1) error {
		snapMu.Lock()
		defer snapMu.Unlock()
		path, err := writeSnapshot(gameDir, snap)
		if err != nil {
			return err
		}
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
		if dst, ok, err := archive.ArchiveMilestone(gameDir, path, snap, uint32(*archiveAt)); err != nil {
			logger.Printf("archive: %v", err)
		} else if ok {
			logger.Printf("archived tick %d -> %s", snap.Header.Tick, dst)
		}
		if _, err := archive.PruneSnapshots(gameDir, *keepSnaps); err != nil {
			logger.Printf("prune snapshots: %v", err)
		}
		return nil
	}

	// Snapshot files are written off the loop.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	rcfg.OnSnapshot = func(s snapshot.SnapshotV1) {
		select {
		case snapCh <- s:
		default:
			logger.Printf("snapshot writer busy; skipped tick %d", s.Header.Tick)
		}
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				if err := saveSnapshot(snap); err != nil {
					logger.Printf("snapshot write: %v", err)
				}
			}
		}
	}()

	rt := world.NewRuntime(g, rcfg)
	go func() {
		if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("game stopped: %v", err)
			cancel()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(rw, "# HELP serfcraft_game_tick Current game tick.\n")
		fmt.Fprintf(rw, "# TYPE serfcraft_game_tick gauge\n")
		fmt.Fprintf(rw, "serfcraft_game_tick{game=%q} %d\n", *gameID, rt.CurrentTick())
		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# TYPE serfcraft_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "serfcraft_index_queue_depth{game=%q} %d\n", *gameID, st.QueueDepth)
			fmt.Fprintf(rw, "# TYPE serfcraft_index_dropped_total counter\n")
			fmt.Fprintf(rw, "serfcraft_index_dropped_total{game=%q} %d\n", *gameID, st.DropTickTotal+st.DropAuditTotal+st.DropSnapshotTotal)
			fmt.Fprintf(rw, "# TYPE serfcraft_index_write_failed_total counter\n")
			fmt.Fprintf(rw, "serfcraft_index_write_failed_total{game=%q} %d\n", *gameID, st.WriteFailTotal)
		}
		if feed != nil {
			st := feed.Stats()
			fmt.Fprintf(rw, "# TYPE serfcraft_redis_published_total counter\n")
			fmt.Fprintf(rw, "serfcraft_redis_published_total{game=%q} %d\n", *gameID, st.Published)
			fmt.Fprintf(rw, "# TYPE serfcraft_redis_dropped_total counter\n")
			fmt.Fprintf(rw, "serfcraft_redis_dropped_total{game=%q} %d\n", *gameID, st.DropTotal)
			fmt.Fprintf(rw, "# TYPE serfcraft_redis_failed_total counter\n")
			fmt.Fprintf(rw, "serfcraft_redis_failed_total{game=%q} %d\n", *gameID, st.FailTotal)
		}
	})
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		rw.Header().Set("Content-Type", "application/json")
		snap, err := rt.RequestSnapshot(ctx2)
		if err == nil {
			err = saveSnapshot(snap)
		}
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": snap.Header.Tick})
	})

	obsSrv := observer.NewServer(rt, logger)
	obsSrv.AllowRemote = *allowAny
	obsSrv.MsgRate = rate.Limit(*wsMsgRate)
	if secret := strings.TrimSpace(os.Getenv(*tokenEnv)); secret != "" {
		auth, err := observer.NewTokenAuth(secret, "serfcraft")
		if err != nil {
			logger.Fatalf("command tokens: %v", err)
		}
		obsSrv.Auth = auth
		logger.Printf("observer commands require a token")
	}
	mux.HandleFunc("/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/observer/ws", obsSrv.WSHandler())
	mux.HandleFunc("/observer/map", obsSrv.MapHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func writeSnapshot(gameDir string, snap snapshot.SnapshotV1) (string, error) {
	path := filepath.Join(gameDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	return path, snapshot.WriteSnapshot(path, snap)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(gameDir string) string {
	dir := filepath.Join(gameDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
