package redisfeed

import (
	"encoding/json"
	"testing"

	"github.com/go-redis/redis/v8"

	"serfcraft.dev/internal/sim/world"
)

func TestWriteTickQueuesAndDrops(t *testing.T) {
	// Nothing listens here; the client only dials on first use.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	p := newPublisher(rdb, "g1", 2, nil)
	defer rdb.Close()

	for tick := uint32(2); tick <= 6; tick += 2 {
		if err := p.WriteTick(world.TickLogEntry{Tick: tick, Digest: "d", Commands: make([]world.Command, int(tick)), Counts: world.Counts{Serfs: 7}}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	st := p.Stats()
	if st.QueueDepth != 2 || st.DropTotal != 1 {
		t.Fatalf("stats %+v", st)
	}

	var msg TickMsg
	if err := json.Unmarshal(<-p.ch, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Game != "g1" || msg.Tick != 2 || msg.Commands != 2 || msg.Counts.Serfs != 7 {
		t.Fatalf("msg %+v", msg)
	}
	if p.Channel() != "serfcraft:g1:ticks" || p.LatestKey() != "serfcraft:g1:latest" {
		t.Fatalf("keys %s %s", p.Channel(), p.LatestKey())
	}
}

func TestLoopCountsFailures(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	p := newPublisher(rdb, "g1", 4, nil)
	p.wg.Add(1)
	go p.loop()

	_ = p.WriteTick(world.TickLogEntry{Tick: 2})
	_ = p.WriteTick(world.TickLogEntry{Tick: 4})
	_ = p.Close()

	st := p.Stats()
	if st.FailTotal != 2 || st.Published != 0 || st.LastFailReason == "" {
		t.Fatalf("stats %+v", st)
	}
	if err := p.WriteTick(world.TickLogEntry{Tick: 6}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
	if p.Stats().DropTotal != 0 {
		t.Fatalf("write after close was counted")
	}
}
