package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"serfcraft.dev/internal/observerproto"
	"serfcraft.dev/internal/sim/gamemap"
	"serfcraft.dev/internal/sim/tuning"
	"serfcraft.dev/internal/sim/world"
)

func startRuntime(t *testing.T) (*world.Runtime, func()) {
	t.Helper()
	cfg := tuning.Defaults()
	m, err := gamemap.New(cfg.MapSize)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	g, err := world.NewWithMap(cfg, m, nil)
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	rt := world.NewRuntime(g, world.RuntimeConfig{GameID: "obs", TickRateHz: 200})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rt.Run(ctx)
		close(done)
	}()
	return rt, func() {
		cancel()
		<-done
	}
}

func TestBootstrap(t *testing.T) {
	rt, stop := startRuntime(t)
	defer stop()
	srv := httptest.NewServer(NewServer(rt, nil).BootstrapHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var b observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.GameID != "obs" || b.MapCols != 64 || len(b.Players) != 2 || b.ProtocolVersion != observerproto.Version {
		t.Fatalf("bootstrap %+v", b)
	}
}

func TestMapLayers(t *testing.T) {
	rt, stop := startRuntime(t)
	defer stop()
	srv := httptest.NewServer(NewServer(rt, nil).MapHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var m observerproto.MapResponse
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Cols != 64 || m.Rows != 64 || m.ProtocolVersion != observerproto.Version {
		t.Fatalf("map %+v", m)
	}
	if o, err := m.OwnerAt(10, 10); err != nil || o != -1 {
		t.Fatalf("owner = %d %v", o, err)
	}
}

func TestWSStreamsTicksAndAcks(t *testing.T) {
	rt, stop := startRuntime(t)
	defer stop()
	srv := httptest.NewServer(NewServer(rt, nil).WSHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version, Client: "tester"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cmd := observerproto.CommandMsg{
		Type:            observerproto.TypeCommand,
		ProtocolVersion: observerproto.Version,
		Cmd:             world.Command{Player: 0, Op: world.OpBuildFlag, Col: 3, Row: 3},
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("command: %v", err)
	}

	var sawTick, sawAck bool
	deadline := time.Now().Add(5 * time.Second)
	for !(sawTick && sawAck) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v (tick=%v ack=%v)", err, sawTick, sawAck)
		}
		var base observerproto.BaseMsg
		if err := json.Unmarshal(msg, &base); err != nil {
			t.Fatalf("decode: %v", err)
		}
		switch base.Type {
		case observerproto.TypeTick:
			var tm observerproto.TickMsg
			if err := json.Unmarshal(msg, &tm); err != nil {
				t.Fatalf("tick: %v", err)
			}
			if tm.Digest == "" || len(tm.Players) != 2 {
				t.Fatalf("tick %+v", tm)
			}
			sawTick = true
		case observerproto.TypeAck:
			var am observerproto.AckMsg
			if err := json.Unmarshal(msg, &am); err != nil {
				t.Fatalf("ack: %v", err)
			}
			// Nobody owns the land yet.
			if am.Result.Op != world.OpBuildFlag || am.Result.OK || am.Result.Err == "" {
				t.Fatalf("ack %+v", am.Result)
			}
			sawAck = true
		}
	}
}

func TestWSRejectsMissingSubscribe(t *testing.T) {
	rt, stop := startRuntime(t)
	defer stop()
	srv := httptest.NewServer(NewServer(rt, nil).WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoopbackCheck(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:443":    true,
		"10.0.0.2:80":  false,
		"garbage":      false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v", addr, got)
		}
	}
}

func TestWSThrottlesFloods(t *testing.T) {
	rt, stop := startRuntime(t)
	defer stop()
	s := NewServer(rt, nil)
	s.MsgRate, s.MsgBurst = 0.01, 1
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cmd := observerproto.CommandMsg{Type: observerproto.TypeCommand, ProtocolVersion: observerproto.Version, Cmd: world.Command{Op: world.OpBuildFlag, Col: 3, Row: 3}}
	for i := 0; i < 2; i++ {
		if err := conn.WriteJSON(cmd); err != nil {
			t.Fatalf("command: %v", err)
		}
	}

	var throttled, applied int
	deadline := time.Now().Add(5 * time.Second)
	for throttled+applied < 2 {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var am observerproto.AckMsg
		if err := json.Unmarshal(msg, &am); err != nil || am.Type != observerproto.TypeAck {
			continue
		}
		if am.Result.Err == "slow down" {
			throttled++
		} else {
			applied++
		}
	}
	if throttled != 1 || applied != 1 {
		t.Fatalf("throttled=%d applied=%d", throttled, applied)
	}
}
