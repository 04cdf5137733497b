package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"serfcraft.dev/internal/persistence/indexdb"
	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/tuning"
	"serfcraft.dev/internal/sim/world"
)

type runtimeIndex interface {
	world.TickSink
	world.AuditSink
	Close() error
	UpsertTuning(ctx context.Context, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(gameDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(gameDir, "index", "game.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported SC_INDEX_BACKEND: %s", backend)
	}
}
