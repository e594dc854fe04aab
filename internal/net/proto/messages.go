package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/movement"
)

const (
	// Version tracks the wire-protocol revision shared with the server.
	Version = 1
)

// Client message type identifiers.
const (
	TypeMove = "move"
	TypeTurn = "turn"
	TypePing = "ping"
)

// Server message type identifiers. Ping is echoed with the client time.
const (
	TypeMoveResp     = "moveResp"
	TypeTurnResp     = "turnResp"
	TypeMoveTooEarly = "moveTooEarly"
	TypeLocation     = "location"
)

// Tile is the wire form of grid.Coordinate.
type Tile struct {
	X     int `json:"x" jsonschema:"required"`
	Y     int `json:"y" jsonschema:"required"`
	Layer int `json:"layer" jsonschema:"description=Map layer; tiles on different layers never connect"`
}

// TileFrom converts a coordinate to its wire form.
func TileFrom(c grid.Coordinate) *Tile {
	return &Tile{X: c.X, Y: c.Y, Layer: c.Layer}
}

// Coordinate converts the tile back to a grid coordinate.
func (t Tile) Coordinate() grid.Coordinate {
	return grid.At(t.X, t.Y, t.Layer)
}

// ClientMessage is an outbound websocket message.
type ClientMessage struct {
	Ver       int    `json:"ver" jsonschema:"required,description=Protocol version"`
	Type      string `json:"type" jsonschema:"required,enum=move,enum=turn,enum=ping"`
	ID        string `json:"id,omitempty" jsonschema:"description=Client generated command id"`
	Player    string `json:"player,omitempty" jsonschema:"description=Local player id"`
	Mode      string `json:"mode,omitempty" jsonschema:"enum=walk,enum=run,enum=push"`
	Direction string `json:"direction,omitempty" jsonschema:"enum=north,enum=northeast,enum=east,enum=southeast,enum=south,enum=southwest,enum=west,enum=northwest"`
	From      *Tile  `json:"from,omitempty" jsonschema:"description=Tile the client believes it is leaving"`
	SentAt    int64  `json:"sentAt,omitempty" jsonschema:"description=Client send time in unix milliseconds"`
}

// ServerMessage is an inbound websocket message.
type ServerMessage struct {
	Ver        int    `json:"ver" jsonschema:"required,description=Protocol version"`
	Type       string `json:"type" jsonschema:"required,enum=moveResp,enum=turnResp,enum=moveTooEarly,enum=location,enum=ping"`
	ID         string `json:"id,omitempty" jsonschema:"description=Id of the client command this message answers"`
	Mode       string `json:"mode,omitempty" jsonschema:"enum=walk,enum=run,enum=push"`
	Target     *Tile  `json:"target,omitempty" jsonschema:"description=Authoritative tile after the move or resync"`
	DurationMs int64  `json:"durationMs,omitempty" jsonschema:"minimum=0,description=Authoritative move duration"`
	Direction  string `json:"direction,omitempty"`
	ClientTime int64  `json:"clientTime,omitempty" jsonschema:"description=Echo of the ping sentAt"`
	ServerTime int64  `json:"serverTime,omitempty"`
}

// EncodeCommand renders a movement command.
func EncodeCommand(cmd movement.Command) ([]byte, error) {
	msg := ClientMessage{
		Ver:    Version,
		ID:     cmd.ID,
		Player: cmd.PlayerID,
		SentAt: cmd.IssuedAt.UnixMilli(),
	}
	switch cmd.Type {
	case movement.CommandMove:
		if cmd.Move == nil {
			return nil, fmt.Errorf("move command %s has no payload", cmd.ID)
		}
		msg.Type = TypeMove
		msg.Mode = cmd.Move.Mode.String()
		msg.Direction = cmd.Move.Direction.String()
		msg.From = TileFrom(cmd.Move.From)
	case movement.CommandTurn:
		if cmd.Turn == nil {
			return nil, fmt.Errorf("turn command %s has no payload", cmd.ID)
		}
		msg.Type = TypeTurn
		msg.Direction = cmd.Turn.Direction.String()
	default:
		return nil, fmt.Errorf("unsupported command type %q", cmd.Type)
	}
	return json.Marshal(msg)
}

// EncodePing renders a round-trip probe.
func EncodePing(sentAt time.Time) ([]byte, error) {
	return json.Marshal(ClientMessage{Ver: Version, Type: TypePing, SentAt: sentAt.UnixMilli()})
}

// DecodeClientMessage parses an outbound message. Servers and tests use it.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// DecodeServerMessage converts raw websocket payloads into a structured message.
func DecodeServerMessage(payload []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported server protocol version %d", msg.Ver)
	}
	return msg, nil
}

// MoveResponse extracts the payload of a moveResp message.
func (m ServerMessage) MoveResponse() (motion.Mode, grid.Coordinate, time.Duration, error) {
	if m.Target == nil {
		return motion.ModeNone, grid.Coordinate{}, 0, fmt.Errorf("%s without target", m.Type)
	}
	mode, err := motion.ParseMode(m.Mode)
	if err != nil {
		return motion.ModeNone, grid.Coordinate{}, 0, err
	}
	if m.DurationMs < 0 {
		return motion.ModeNone, grid.Coordinate{}, 0, fmt.Errorf("negative duration %d", m.DurationMs)
	}
	return mode, m.Target.Coordinate(), time.Duration(m.DurationMs) * time.Millisecond, nil
}

// TurnResponse extracts the payload of a turnResp message.
func (m ServerMessage) TurnResponse() (grid.Direction, error) {
	dir, err := grid.ParseDirection(m.Direction)
	if err != nil {
		return grid.NoDirection, err
	}
	if !dir.Valid() {
		return grid.NoDirection, fmt.Errorf("%s without direction", m.Type)
	}
	return dir, nil
}

// Location extracts the payload of a location message.
func (m ServerMessage) Location() (grid.Coordinate, error) {
	if m.Target == nil {
		return grid.Coordinate{}, fmt.Errorf("%s without target", m.Type)
	}
	return m.Target.Coordinate(), nil
}

// EncodeMoveResp renders a server move confirmation for command id.
func EncodeMoveResp(id string, mode motion.Mode, target grid.Coordinate, duration time.Duration) ([]byte, error) {
	return json.Marshal(ServerMessage{
		Ver:        Version,
		Type:       TypeMoveResp,
		ID:         id,
		Mode:       mode.String(),
		Target:     TileFrom(target),
		DurationMs: duration.Milliseconds(),
	})
}

// EncodeTurnResp renders a server turn confirmation.
func EncodeTurnResp(dir grid.Direction) ([]byte, error) {
	return json.Marshal(ServerMessage{Ver: Version, Type: TypeTurnResp, Direction: dir.String()})
}

// EncodeMoveTooEarly renders a premature-command rejection.
func EncodeMoveTooEarly() ([]byte, error) {
	return json.Marshal(ServerMessage{Ver: Version, Type: TypeMoveTooEarly})
}

// EncodeLocation renders an authoritative location reset.
func EncodeLocation(target grid.Coordinate) ([]byte, error) {
	return json.Marshal(ServerMessage{Ver: Version, Type: TypeLocation, Target: TileFrom(target)})
}

// EncodePingEcho renders the server's answer to a ping.
func EncodePingEcho(clientTime int64, serverTime time.Time) ([]byte, error) {
	return json.Marshal(ServerMessage{Ver: Version, Type: TypePing, ClientTime: clientTime, ServerTime: serverTime.UnixMilli()})
}
