// Package redisfeed mirrors the tick stream into Redis: every tick is
// published on <prefix>:ticks and the newest one is kept at <prefix>:latest.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"serfcraft.dev/internal/sim/world"
)

// TickMsg is the payload published for each tick.
type TickMsg struct {
	Game     string       `json:"game"`
	Tick     uint32       `json:"tick"`
	Digest   string       `json:"digest"`
	Commands int          `json:"commands"`
	Counts   world.Counts `json:"counts"`
}

type Stats struct {
	QueueDepth     int
	Published      uint64
	DropTotal      uint64
	FailTotal      uint64
	LastFailReason string
}

type Publisher struct {
	rdb    *redis.Client
	game   string
	prefix string
	log    *log.Logger

	ch     chan []byte
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	lastFail  atomic.Value
}

// Dial connects to addr and starts the publishing goroutine.
func Dial(ctx context.Context, addr, password string, db int, gameID string, logger *log.Logger) (*Publisher, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	p := newPublisher(rdb, gameID, 4096, logger)
	p.wg.Add(1)
	go p.loop()
	return p, nil
}

func newPublisher(rdb *redis.Client, gameID string, queue int, logger *log.Logger) *Publisher {
	return &Publisher{
		rdb:    rdb,
		game:   gameID,
		prefix: "serfcraft:" + gameID,
		log:    logger,
		ch:     make(chan []byte, queue),
	}
}

func (p *Publisher) Channel() string   { return p.prefix + ":ticks" }
func (p *Publisher) LatestKey() string { return p.prefix + ":latest" }

// WriteTick never blocks the game loop: when the queue is full the tick is
// dropped and counted.
func (p *Publisher) WriteTick(entry world.TickLogEntry) error {
	if p == nil || p.closed.Load() {
		return nil
	}
	b, err := json.Marshal(TickMsg{
		Game:     p.game,
		Tick:     entry.Tick,
		Digest:   entry.Digest,
		Commands: len(entry.Commands),
		Counts:   entry.Counts,
	})
	if err != nil {
		return err
	}
	select {
	case p.ch <- b:
	default:
		p.dropped.Add(1)
	}
	return nil
}

func (p *Publisher) Stats() Stats {
	s := Stats{
		QueueDepth: len(p.ch),
		Published:  p.published.Load(),
		DropTotal:  p.dropped.Load(),
		FailTotal:  p.failed.Load(),
	}
	if v, ok := p.lastFail.Load().(string); ok {
		s.LastFailReason = v
	}
	return s
}

func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.ch)
		p.wg.Wait()
		err = p.rdb.Close()
	})
	return err
}

func (p *Publisher) loop() {
	defer p.wg.Done()
	ctx := context.Background()
	for msg := range p.ch {
		pipe := p.rdb.Pipeline()
		pipe.Publish(ctx, p.Channel(), msg)
		pipe.Set(ctx, p.LatestKey(), msg, 0)
		if _, err := pipe.Exec(ctx); err != nil {
			if p.failed.Add(1) == 1 && p.log != nil {
				p.log.Printf("redis feed: %v", err)
			}
			p.lastFail.Store(err.Error())
			continue
		}
		p.published.Add(1)
	}
}
