package grid

import (
	"fmt"
	"math"
)

// Unreachable is the StepDistance reported between coordinates on different
// layers.
const Unreachable = math.MaxInt32

// Coordinate is an immutable tile position. Copies received from the server
// are authoritative; copies derived locally are predictions.
type Coordinate struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Layer int `json:"layer"`
}

// At builds a coordinate on the given layer.
func At(x, y, layer int) Coordinate {
	return Coordinate{X: x, Y: y, Layer: layer}
}

// Add returns the coordinate n tiles away in direction d.
func (c Coordinate) Add(d Direction, n int) Coordinate {
	dx, dy := d.Offset()
	return Coordinate{X: c.X + dx*n, Y: c.Y + dy*n, Layer: c.Layer}
}

// StepDistance is the number of single-tile steps between c and other when
// diagonal steps are allowed.
func (c Coordinate) StepDistance(other Coordinate) int {
	if c.Layer != other.Layer {
		return Unreachable
	}
	dx := absInt(other.X - c.X)
	dy := absInt(other.Y - c.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// DirectionTo returns the compass direction that best points from c towards
// other. The angle is snapped to the nearest of the eight directions, so a
// target three tiles east and one tile north resolves to East.
func (c Coordinate) DirectionTo(other Coordinate) Direction {
	dx := float64(other.X - c.X)
	dy := float64(other.Y - c.Y)
	if dx == 0 && dy == 0 {
		return NoDirection
	}
	// atan2 with Y flipped so 0 rad is East and angles grow counter-clockwise.
	angle := math.Atan2(-dy, dx)
	sector := int(math.Round(angle/(math.Pi/4))) & 7
	switch sector {
	case 0:
		return East
	case 1:
		return NorthEast
	case 2:
		return North
	case 3:
		return NorthWest
	case 4:
		return West
	case 5:
		return SouthWest
	case 6:
		return South
	default:
		return SouthEast
	}
}

// LineDirection returns the direction of a straight or diagonal line from c
// to other, or NoDirection if other is not on such a line.
func (c Coordinate) LineDirection(other Coordinate) Direction {
	if c.Layer != other.Layer {
		return NoDirection
	}
	dx := other.X - c.X
	dy := other.Y - c.Y
	if dx == 0 && dy == 0 {
		return NoDirection
	}
	if dx != 0 && dy != 0 && absInt(dx) != absInt(dy) {
		return NoDirection
	}
	return FromOffset(dx, dy)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Layer)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
