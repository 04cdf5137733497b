package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"serfcraft.dev/internal/persistence/snapshot"
)

const snapSuffix = ".snap.zst"

type MilestoneMeta struct {
	GameID      string `json:"game_id"`
	Tick        uint32 `json:"tick"`
	Seed        string `json:"seed"`
	Snapshot    string `json:"snapshot"`
	CreatedAt   string `json:"created_at"`
	Players     int    `json:"players"`
	Flags       int    `json:"flags"`
	Serfs       int    `json:"serfs"`
	Buildings   int    `json:"buildings"`
	Inventories int    `json:"inventories"`
}

// ArchiveMilestone copies a snapshot into `gameDir/archives/tick_<NNNNNNNNNN>/`
// when its tick is a multiple of every. Archived snapshots are never pruned.
// It returns (archivedPath, archived=true) when a copy was made.
func ArchiveMilestone(gameDir, snapshotPath string, snap snapshot.SnapshotV1, every uint32) (string, bool, error) {
	if every == 0 || snap.Header.Tick == 0 || snap.Header.Tick%every != 0 {
		return "", false, nil
	}
	dir := filepath.Join(gameDir, "archives", fmt.Sprintf("tick_%010d", snap.Header.Tick))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := MilestoneMeta{
		GameID:      snap.Header.GameID,
		Tick:        snap.Header.Tick,
		Seed:        snap.Tuning.Seed,
		Snapshot:    filepath.Base(dst),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		Players:     len(snap.Players),
		Flags:       len(snap.Flags),
		Serfs:       len(snap.Serfs),
		Buildings:   len(snap.Buildings),
		Inventories: len(snap.Inventories),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, true, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return dst, true, fmt.Errorf("write milestone meta: %w", err)
	}
	return dst, true, nil
}

// PruneSnapshots keeps the newest keep snapshots in `gameDir/snapshots` and
// removes the rest. keep <= 0 disables pruning.
func PruneSnapshots(gameDir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	dir := filepath.Join(gameDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type snapFile struct {
		tick uint64
		name string
	}
	var files []snapFile
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapSuffix) {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, snapSuffix), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, snapFile{tick: tick, name: name})
	}
	if len(files) <= keep {
		return nil, nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].tick < files[j].tick })

	var removed []string
	for _, f := range files[:len(files)-keep] {
		path := filepath.Join(dir, f.name)
		if err := os.Remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
