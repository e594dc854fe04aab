package movement

import (
	"fmt"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
)

// StepKind discriminates Step.
type StepKind int

const (
	StepIdle StepKind = iota
	StepTurn
	StepMove
)

// Step is the decision a handler returns for one decision cycle.
type Step struct {
	Kind      StepKind
	Mode      motion.Mode
	Direction grid.Direction
	// Callback runs on the worker after the step has been dispatched.
	Callback func()
}

// Idle is the step that does nothing.
func Idle() Step { return Step{Kind: StepIdle, Direction: grid.NoDirection} }

// Turn faces dir without moving.
func Turn(dir grid.Direction) Step {
	if !dir.Valid() {
		return Idle()
	}
	return Step{Kind: StepTurn, Direction: dir}
}

// Move steps in dir using mode.
func Move(mode motion.Mode, dir grid.Direction) Step {
	if !dir.Valid() || mode.StepLength() == 0 {
		return Idle()
	}
	return Step{Kind: StepMove, Mode: mode, Direction: dir}
}

// Then attaches a callback to the step.
func (s Step) Then(callback func()) Step {
	s.Callback = callback
	return s
}

func (s Step) String() string {
	switch s.Kind {
	case StepTurn:
		return fmt.Sprintf("turn(%s)", s.Direction)
	case StepMove:
		return fmt.Sprintf("move(%s,%s)", s.Mode, s.Direction)
	default:
		return "idle"
	}
}
