package motion

import (
	"math"
	"time"

	"tilewalk/client/internal/grid"
)

const (
	// MinWalkCost and MaxWalkCost bound the straight walking duration in
	// milliseconds before diagonal and running scaling.
	MinWalkCost = 300
	MaxWalkCost = 5000

	// Blocked is returned instead of a duration when a step is impossible.
	Blocked = -1

	costGrid        = 100
	runningFactor   = 0.6
	baseCostScale   = 100
	agilityBaseline = 10
	agilityStep     = 0.025
	maxAgility      = 20
	loadThreshold   = 0.5
)

// StepCost computes the duration of one step in milliseconds. The evaluation
// order and the float64 operations are shared with the server, which computes
// the same value independently; changing either breaks agreement.
func StepCost(baseTileCost int, modifier float64, diagonal, running bool) int {
	if baseTileCost < 0 {
		return Blocked
	}
	cost := float64(baseTileCost) * baseCostScale * modifier
	if cost < MinWalkCost {
		cost = MinWalkCost
	} else if cost > MaxWalkCost {
		cost = MaxWalkCost
	}
	if diagonal {
		cost *= math.Sqrt2
	}
	if running {
		cost *= runningFactor
	}
	return int(math.Floor(cost/costGrid)) * costGrid
}

// Modifier combines agility and carried load into the cost multiplier.
// Higher agility lowers the cost; load above half capacity raises it.
func Modifier(agility int, loadFactor float64) float64 {
	if agility < 0 {
		agility = 0
	} else if agility > maxAgility {
		agility = maxAgility
	}
	agilityModifier := 1 + float64(agilityBaseline-agility)*agilityStep
	loadModifier := 1.0
	if loadFactor > loadThreshold {
		loadModifier += loadFactor - loadThreshold
	}
	return agilityModifier * loadModifier
}

// TileOracle answers terrain questions about the tile grid.
type TileOracle interface {
	IsBlocked(c grid.Coordinate) bool
	// MovementCost returns the base cost of entering c.
	MovementCost(c grid.Coordinate) int
}

// CarryLoadProvider reports the player's carried load.
type CarryLoadProvider interface {
	IsRunningPossible() bool
	LoadFactor() float64
}

// AgilityProvider reports the player's agility attribute.
type AgilityProvider interface {
	Agility() int
}

// Model evaluates step costs against live terrain and character state.
type Model struct {
	Tiles   TileOracle
	Load    CarryLoadProvider
	Agility AgilityProvider
}

// Modifier returns the current combined agility/load modifier.
func (m Model) Modifier() float64 {
	agility := agilityBaseline
	if m.Agility != nil {
		agility = m.Agility.Agility()
	}
	load := 0.0
	if m.Load != nil {
		load = m.Load.LoadFactor()
	}
	return Modifier(agility, load)
}

// RunningPossible reports whether the character may currently run.
func (m Model) RunningPossible() bool {
	if m.Load == nil {
		return true
	}
	return m.Load.IsRunningPossible()
}

// Evaluate returns the cost of stepping from origin in direction dir with the
// given mode, or Blocked. Running covers two tiles and requires both to be free.
func (m Model) Evaluate(origin grid.Coordinate, mode Mode, dir grid.Direction) int {
	if !dir.Valid() {
		return Blocked
	}
	length := mode.StepLength()
	if length == 0 || m.Tiles == nil {
		return Blocked
	}
	if mode == ModeRun && !m.RunningPossible() {
		return Blocked
	}
	for i := 1; i <= length; i++ {
		if m.Tiles.IsBlocked(origin.Add(dir, i)) {
			return Blocked
		}
	}
	dest := origin.Add(dir, length)
	return StepCost(m.Tiles.MovementCost(dest), m.Modifier(), dir.IsDiagonal(), mode == ModeRun)
}

// Duration is Evaluate as a time.Duration. The second result is false when
// the step is blocked.
func (m Model) Duration(origin grid.Coordinate, mode Mode, dir grid.Direction) (time.Duration, bool) {
	cost := m.Evaluate(origin, mode, dir)
	if cost == Blocked {
		return 0, false
	}
	return time.Duration(cost) * time.Millisecond, true
}

// LowerBound is the cheapest cost any single step of mode can have.
func LowerBound(mode Mode) int {
	switch mode {
	case ModeRun:
		return StepCost(0, 0, false, true)
	case ModeWalk, ModePush:
		return StepCost(0, 0, false, false)
	default:
		return 0
	}
}
