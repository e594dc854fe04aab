package grid

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Direction identifies one of the eight compass directions a character can
// step or face. North points towards negative Y.
type Direction int

const (
	NoDirection Direction = iota - 1
	North
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// Directions lists every compass direction in clockwise order starting at North.
var Directions = [...]Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var directionOffsets = [...]struct{ dx, dy int }{
	North:     {0, -1},
	NorthEast: {1, -1},
	East:      {1, 0},
	SouthEast: {1, 1},
	South:     {0, 1},
	SouthWest: {-1, 1},
	West:      {-1, 0},
	NorthWest: {-1, -1},
}

var directionNames = [...]string{
	North:     "north",
	NorthEast: "northeast",
	East:      "east",
	SouthEast: "southeast",
	South:     "south",
	SouthWest: "southwest",
	West:      "west",
	NorthWest: "northwest",
}

// Valid reports whether d is one of the eight compass directions.
func (d Direction) Valid() bool {
	return d >= North && d <= NorthWest
}

// Offset returns the unit tile offset of the direction.
func (d Direction) Offset() (int, int) {
	if !d.Valid() {
		return 0, 0
	}
	off := directionOffsets[d]
	return off.dx, off.dy
}

// Vector returns the unit tile offset as a vector. Diagonals are not normalised.
func (d Direction) Vector() mgl64.Vec2 {
	dx, dy := d.Offset()
	return mgl64.Vec2{float64(dx), float64(dy)}
}

// IsDiagonal reports whether the direction moves along both axes.
func (d Direction) IsDiagonal() bool {
	dx, dy := d.Offset()
	return dx != 0 && dy != 0
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	if !d.Valid() {
		return NoDirection
	}
	return Directions[(int(d)+4)%len(Directions)]
}

// FromVector reduces v to the signs of its components and returns the matching
// compass direction. A zero vector yields NoDirection.
func FromVector(v mgl64.Vec2) Direction {
	return FromOffset(sign(v.X()), sign(v.Y()))
}

// FromOffset returns the direction whose unit offset equals (dx, dy) after
// sign reduction.
func FromOffset(dx, dy int) Direction {
	dx, dy = signInt(dx), signInt(dy)
	for _, d := range Directions {
		off := directionOffsets[d]
		if off.dx == dx && off.dy == dy {
			return d
		}
	}
	return NoDirection
}

func (d Direction) String() string {
	if !d.Valid() {
		return "none"
	}
	return directionNames[d]
}

// ParseDirection accepts the names produced by String, case-insensitively.
func ParseDirection(raw string) (Direction, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" || name == "none" {
		return NoDirection, nil
	}
	for _, d := range Directions {
		if directionNames[d] == name {
			return d, nil
		}
	}
	return NoDirection, fmt.Errorf("unknown direction %q", raw)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func signInt(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
