package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"serfcraft.dev/internal/persistence/indexdb"
)

// dbCmd queries the per-game sqlite index.
//
//	admin db -game g ticks -from 100 -to 200
//	admin db -game g audits -client bob -limit 20
//	admin db -game g snapshot -tick 500
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "game_1", "game id")
	dbPath := fs.String("db", "", "index path (default: <data>/games/<game>/index/game.sqlite)")
	_ = fs.Parse(args)

	path := *dbPath
	if path == "" {
		path = filepath.Join(*dataDir, "games", *gameID, "index", "game.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fail(1, "index:", err)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fail(1, "open index:", err)
	}
	defer idx.Close()

	if err := runQuery(context.Background(), os.Stdout, idx, fs.Args()); err != nil {
		fail(1, "db:", err)
	}
}

func runQuery(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: db [ticks|audits|snapshot|meta] ...")
	}
	switch args[0] {
	case "ticks":
		fs := flag.NewFlagSet("ticks", flag.ContinueOnError)
		from := fs.Uint("from", 0, "first tick")
		to := fs.Uint("to", 1<<31, "last tick")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		rows, err := idx.Ticks(ctx, uint32(*from), uint32(*to))
		if err != nil {
			return err
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\tcmds=%d serfs=%d\n", r.Tick, r.Digest, r.Commands, r.Serfs)
		}
	case "audits":
		fs := flag.NewFlagSet("audits", flag.ContinueOnError)
		client := fs.String("client", "", "filter by client (optional)")
		limit := fs.Int("limit", 50, "max rows")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		rows, err := idx.Audits(ctx, *client, *limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			status := "ok"
			if !r.OK {
				status = "rejected: " + r.Reason
			}
			fmt.Fprintf(w, "%d\t%s\tp%d\t%s\t%s\n", r.Tick, r.Client, r.Player, r.Op, status)
		}
	case "snapshot":
		fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
		tick := fs.Uint("tick", 0, "latest snapshot at or before this tick (0: newest)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		row, ok, err := idx.LatestSnapshot(ctx, uint32(*tick))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no snapshot at or before tick %d", *tick)
		}
		fmt.Fprintf(w, "%d\t%s\tflags=%d serfs=%d buildings=%d inventories=%d\n",
			row.Tick, row.Path, row.Flags, row.Serfs, row.Buildings, row.Inventories)
	case "meta":
		if len(args) < 2 {
			return fmt.Errorf("usage: db meta <key>")
		}
		v, err := idx.Meta(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, v)
	default:
		return fmt.Errorf("unknown query %q", args[0])
	}
	return nil
}
