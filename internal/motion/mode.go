package motion

import (
	"fmt"
	"strings"
)

// Mode is the way a character performs a step.
type Mode int

const (
	// ModeNone requests a stationary turn.
	ModeNone Mode = iota
	ModeWalk
	ModeRun
	ModePush
)

var modeNames = [...]string{
	ModeNone: "none",
	ModeWalk: "walk",
	ModeRun:  "run",
	ModePush: "push",
}

// StepLength is the number of tiles a single step of this mode covers.
func (m Mode) StepLength() int {
	switch m {
	case ModeWalk, ModePush:
		return 1
	case ModeRun:
		return 2
	default:
		return 0
	}
}

func (m Mode) String() string {
	if m < ModeNone || m > ModePush {
		return "unknown"
	}
	return modeNames[m]
}

// ParseMode accepts the names produced by String, case-insensitively.
func ParseMode(raw string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for m, candidate := range modeNames {
		if candidate == name {
			return Mode(m), nil
		}
	}
	return ModeNone, fmt.Errorf("unknown movement mode %q", raw)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
