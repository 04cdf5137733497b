package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"serfcraft.dev/internal/persistence/snapshot"
	"serfcraft.dev/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "export":
			exportCmd(os.Args[2:])
			return
		case "import":
			importCmd(os.Args[2:])
			return
		case "validate":
			validateCmd(os.Args[2:])
			return
		case "info":
			infoCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "token":
			tokenCmd(os.Args[2:])
			return
		case "schema":
			fmt.Print(snapshot.SchemaJSON())
			return
		}
	}
	listCmd(os.Args[1:])
}

func fail(code int, args ...any) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(code)
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "games")
	if *gameID != "" {
		base = filepath.Join(base, *gameID, "snapshots")
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		fail(1, "read:", err)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// exportCmd turns a binary snapshot into validated JSON text.
func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	in := fs.String("in", "", "binary snapshot (.snap.zst)")
	out := fs.String("out", "", "text snapshot path (default: stdout)")
	_ = fs.Parse(args)
	if *in == "" {
		fail(2, "missing -in")
	}
	if err := exportSnapshot(*in, *out); err != nil {
		fail(1, "export:", err)
	}
}

func exportSnapshot(in, out string) error {
	snap, err := snapshot.ReadSnapshot(in)
	if err != nil {
		return err
	}
	if out == "" {
		raw, err := snapshot.MarshalText(snap)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(raw)
		return err
	}
	return snapshot.WriteText(out, snap)
}

// importCmd turns a JSON text snapshot into a binary one. The result is
// restored once so an inconsistent file is rejected before it is written.
func importCmd(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	in := fs.String("in", "", "text snapshot (.json)")
	out := fs.String("out", "", "binary snapshot path")
	_ = fs.Parse(args)
	if *in == "" || *out == "" {
		fail(2, "need -in and -out")
	}
	digest, err := importSnapshot(*in, *out)
	if err != nil {
		fail(1, "import:", err)
	}
	fmt.Printf("import ok: out=%s digest=%s\n", *out, digest)
}

func importSnapshot(in, out string) (string, error) {
	snap, err := snapshot.ReadText(in)
	if err != nil {
		return "", err
	}
	g, err := world.Restore(snap, nil)
	if err != nil {
		return "", err
	}
	if err := snapshot.WriteSnapshot(out, snap); err != nil {
		return "", err
	}
	return g.StateDigest(), nil
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fail(2, "usage: admin validate <snapshot.json> ...")
	}
	bad := 0
	for _, path := range fs.Args() {
		raw, err := os.ReadFile(path)
		if err == nil {
			err = snapshot.Validate(raw)
		}
		if err != nil {
			bad++
			fmt.Printf("%s: %v\n", path, err)
			continue
		}
		fmt.Printf("%s: ok\n", path)
	}
	if bad > 0 {
		os.Exit(1)
	}
}

// infoCmd prints a one-line summary and the state digest of a snapshot.
func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id, used to find the latest snapshot when no path is given")
	_ = fs.Parse(args)

	path := fs.Arg(0)
	if path == "" && *gameID != "" {
		path = latestSnapshot(filepath.Join(*dataDir, "games", *gameID))
	}
	if path == "" {
		fail(2, "usage: admin info [-game id] [snapshot]")
	}
	line, err := describe(path)
	if err != nil {
		fail(1, "info:", err)
	}
	fmt.Println(line)
}

func describe(path string) (string, error) {
	var (
		snap snapshot.SnapshotV1
		err  error
	)
	if strings.HasSuffix(path, ".json") {
		snap, err = snapshot.ReadText(path)
	} else {
		snap, err = snapshot.ReadSnapshot(path)
	}
	if err != nil {
		return "", err
	}
	g, err := world.Restore(snap, nil)
	if err != nil {
		return "", err
	}
	c := g.Counts()
	return fmt.Sprintf("game=%s tick=%d map=%dx%d players=%d flags=%d serfs=%d buildings=%d inventories=%d gold=%d digest=%s",
		snap.Header.GameID, snap.Header.Tick, snap.Map.Cols, snap.Map.Rows, g.PlayerCount(),
		c.Flags, c.Serfs, c.Buildings, c.Inventories, g.GoldTotal(), g.StateDigest()), nil
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
