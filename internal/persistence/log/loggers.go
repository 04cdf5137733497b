package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"serfcraft.dev/internal/sim/world"
)

const (
	hourFormat = "2006-01-02-15"
	fileSuffix = ".jsonl.zst"
)

// segment is the open file of one hour. Every record is flushed through to
// the zstd frame on write; the frame is closed when the hour changes.
type segment struct {
	hour string
	file *os.File
	zw   *zstd.Encoder
	buf  *bufio.Writer
	enc  *json.Encoder
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	buf := bufio.NewWriterSize(zw, 128<<10)
	return &segment{hour: hour, file: file, zw: zw, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (s *segment) append(v any) error {
	if err := s.enc.Encode(v); err != nil {
		return err
	}
	return s.buf.Flush()
}

func (s *segment) close() error {
	return errors.Join(s.buf.Flush(), s.zw.Close(), s.file.Close())
}

// Hourly is an append only log of T records, one JSON object per line, in
// files named <prefix>-<UTC hour>.jsonl.zst. Reopening an hour appends a new
// zstd frame to its file.
type Hourly[T any] struct {
	dir    string
	prefix string
	clock  func() time.Time

	mu  sync.Mutex
	cur *segment
}

func NewHourly[T any](dir, prefix string) *Hourly[T] {
	return &Hourly[T]{dir: dir, prefix: prefix, clock: time.Now}
}

// Path is the file holding records written during the hour of t.
func (h *Hourly[T]) Path(t time.Time) string {
	return filepath.Join(h.dir, h.prefix+"-"+t.UTC().Format(hourFormat)+fileSuffix)
}

func (h *Hourly[T]) Append(rec T) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock()
	if hour := now.UTC().Format(hourFormat); h.cur == nil || h.cur.hour != hour {
		if err := h.closeCur(); err != nil {
			return err
		}
		seg, err := openSegment(h.Path(now), hour)
		if err != nil {
			return err
		}
		h.cur = seg
	}
	return h.cur.append(rec)
}

func (h *Hourly[T]) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeCur()
}

func (h *Hourly[T]) closeCur() error {
	if h.cur == nil {
		return nil
	}
	err := h.cur.close()
	h.cur = nil
	return err
}

// TickLogger keeps the per-tick event log under <game>/events.
type TickLogger struct{ log *Hourly[world.TickLogEntry] }

func NewTickLogger(gameDir string) *TickLogger {
	return &TickLogger{log: NewHourly[world.TickLogEntry](filepath.Join(gameDir, "events"), "events")}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.log.Append(e) }
func (l *TickLogger) Close() error                         { return l.log.Close() }

// AuditLogger keeps one record per client command under <game>/audit.
type AuditLogger struct{ log *Hourly[world.AuditEntry] }

func NewAuditLogger(gameDir string) *AuditLogger {
	return &AuditLogger{log: NewHourly[world.AuditEntry](filepath.Join(gameDir, "audit"), "audit")}
}

func (l *AuditLogger) WriteAudit(e world.AuditEntry) error { return l.log.Append(e) }
func (l *AuditLogger) Close() error                        { return l.log.Close() }
