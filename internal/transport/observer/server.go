package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"serfcraft.dev/internal/observerproto"
	"serfcraft.dev/internal/sim/world"
)

// Server exposes a running game over websocket: every step is pushed as a
// TICK message and CMD messages are queued into the runtime inbox.
type Server struct {
	rt  *world.Runtime
	log *log.Logger

	upgrader websocket.Upgrader
	// AllowRemote lifts the loopback-only restriction.
	AllowRemote bool
	// Auth, when set, requires a token to send commands. Sessions without
	// one only watch.
	Auth *TokenAuth
	// Per-connection message rate, checked before commands reach the runtime.
	MsgRate  rate.Limit
	MsgBurst int
}

func NewServer(rt *world.Runtime, logger *log.Logger) *Server {
	return &Server{
		rt:  rt,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
			Subprotocols:    []string{"access_token"},
		},
		MsgRate:  50,
		MsgBurst: 100,
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) allowed(r *http.Request) bool {
	return s.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		cols, rows := s.rt.MapSize()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			GameID:          s.rt.GameID(),
			Tick:            s.rt.CurrentTick(),
			MapCols:         cols,
			MapRows:         rows,
			Players:         s.rt.PlayerNames(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

// MapHandler serves the RLE map layers, read between two steps.
func (s *Server) MapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		layers, err := s.rt.RequestMapLayers(ctx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(observerproto.MapResponse{ProtocolVersion: observerproto.Version, MapLayers: layers})
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		var claims *Claims
		if s.Auth != nil {
			if tok := tokenFromRequest(r); tok != "" {
				c, err := s.Auth.Validate(tok)
				if err != nil {
					http.Error(rw, "invalid token", http.StatusUnauthorized)
					return
				}
				claims = c
			}
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		sid := uuid.NewString()
		client := sub.Client
		if claims != nil {
			client = claims.Client
		}
		if client == "" {
			client = sid
		}
		ticks := make(chan world.TickSummary, 8)
		acks := make(chan world.CommandResult, 64)

		select {
		case s.rt.ObserverJoin() <- world.ObserverJoinRequest{SessionID: sid, Out: ticks}:
		default:
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer func() {
			select {
			case s.rt.ObserverLeave() <- sid:
			default:
			}
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		lim := rate.NewLimiter(s.MsgRate, s.MsgBurst)
		writeErr := make(chan error, 1)
		go func() { writeErr <- writeLoop(ctx, conn, ticks, acks) }()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var cm observerproto.CommandMsg
			if err := json.Unmarshal(msg, &cm); err != nil {
				continue
			}
			if cm.Type != observerproto.TypeCommand || cm.ProtocolVersion != observerproto.Version {
				continue
			}
			reason := s.authorize(claims, cm.Cmd)
			if reason == "" && !lim.Allow() {
				reason = "slow down"
			}
			if reason != "" {
				select {
				case acks <- world.CommandResult{Tick: s.rt.CurrentTick(), Op: cm.Cmd.Op, Err: reason}:
				default:
				}
				continue
			}
			env := world.CommandEnvelope{Client: client, Cmd: cm.Cmd, Resp: acks}
			select {
			case s.rt.Inbox() <- env:
			default:
				s.logf("observer %s: inbox full, dropped %s", sid, cm.Cmd.Op)
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) authorize(claims *Claims, cmd world.Command) string {
	if s.Auth == nil {
		return ""
	}
	if claims == nil {
		return "read-only session"
	}
	if !claims.Allows(cmd.Player) {
		return fmt.Sprintf("not permitted to command player %d", cmd.Player)
	}
	return ""
}

func writeLoop(ctx context.Context, conn *websocket.Conn, ticks <-chan world.TickSummary, acks <-chan world.CommandResult) error {
	for {
		var v any
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sum, ok := <-ticks:
			if !ok {
				return nil
			}
			v = observerproto.TickMsg{Type: observerproto.TypeTick, ProtocolVersion: observerproto.Version, TickSummary: sum}
		case res := <-acks:
			v = observerproto.AckMsg{Type: observerproto.TypeAck, ProtocolVersion: observerproto.Version, Result: res}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return err
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
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
