package observerproto

import "serfcraft.dev/internal/sim/world"

// Version is the observer protocol version.
const Version = "1.0"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeCommand   = "CMD"
	TypeTick      = "TICK"
	TypeAck       = "CMD_ACK"
)

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Client names the session in the audit log.
	Client string `json:"client,omitempty"`
}

// Client -> Server. A player command, applied before the next step.
type CommandMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Cmd             world.Command `json:"cmd"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	GameID          string   `json:"game_id"`
	Tick            uint32   `json:"tick"`
	MapCols         int      `json:"map_cols"`
	MapRows         int      `json:"map_rows"`
	Players         []string `json:"players"`
}

// MapResponse is served by GET /observer/map.
type MapResponse struct {
	ProtocolVersion string `json:"protocol_version"`
	world.MapLayers
}

// Server -> Client. Sent after every step, latest wins.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	world.TickSummary
}

// Server -> Client. Result of a CommandMsg.
type AckMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocol_version"`
	Result          world.CommandResult `json:"result"`
}

// BaseMsg holds the fields every message carries.
type BaseMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}
