package movement

import (
	"time"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
)

// CommandType enumerates the supported movement commands.
type CommandType string

const (
	CommandMove CommandType = "move"
	CommandTurn CommandType = "turn"
)

// Command is an outbound request for the authoritative server.
type Command struct {
	ID       string
	PlayerID string
	Type     CommandType
	IssuedAt time.Time
	Move     *MoveCommand
	Turn     *TurnCommand
}

// MoveCommand requests one step. From is the location the client believes it
// is leaving.
type MoveCommand struct {
	Mode      motion.Mode
	Direction grid.Direction
	From      grid.Coordinate
}

// TurnCommand requests a facing change.
type TurnCommand struct {
	Direction grid.Direction
}

// NetworkClient delivers commands to the server.
type NetworkClient interface {
	SendCommand(Command) error
}

// Identity resolves the local player. ok is false until the server has
// assigned one.
type Identity interface {
	PlayerID() (id string, ok bool)
}

// StaticIdentity is a fixed player id; the empty string is unknown.
type StaticIdentity string

func (s StaticIdentity) PlayerID() (string, bool) {
	return string(s), s != ""
}
