package movement

import (
	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
)

// FollowMouse steps toward the pointer while the button is held.
type FollowMouse struct {
	c        *Coordinator
	pointer  grid.Coordinate
	held     bool
	turnOnly bool
}

func newFollowMouse(c *Coordinator) *FollowMouse {
	return &FollowMouse{c: c}
}

func (f *FollowMouse) Name() string { return "followMouse" }

// Press starts following the pointer at tile.
func (f *FollowMouse) Press(tile grid.Coordinate) {
	f.c.post(func() {
		f.pointer = tile
		f.held = true
		f.c.assumeControl(f)
	})
}

// Move updates the pointer tile.
func (f *FollowMouse) Move(tile grid.Coordinate) {
	f.c.post(func() {
		if f.pointer == tile {
			return
		}
		f.pointer = tile
		if f.held {
			f.c.tickIfActive(f)
		}
	})
}

// Release stops following and gives up control.
func (f *FollowMouse) Release() {
	f.c.post(func() {
		f.held = false
		if f.c.active == f {
			f.c.disengage(f)
		}
	})
}

// SetTurnModifier toggles turn-only mode.
func (f *FollowMouse) SetTurnModifier(held bool) {
	f.c.post(func() {
		f.turnOnly = held
		f.c.tickIfActive(f)
	})
}

func (f *FollowMouse) disengaged() {
	f.held = false
}

func (f *FollowMouse) NextStep(current grid.Coordinate) Step {
	if !f.held {
		return Idle()
	}
	pointer := grid.At(f.pointer.X, f.pointer.Y, current.Layer)
	distance := current.StepDistance(pointer)
	if distance == 0 {
		return Idle()
	}
	dir := current.DirectionTo(pointer)
	if f.turnOnly || (distance == 1 && f.c.cfg.TurnWhenAdjacent) {
		return Turn(dir)
	}
	mode := motion.ModeWalk
	if distance >= f.c.cfg.RunDistance {
		mode = motion.ModeRun
	}
	return f.c.chooseMove(current, dir, mode)
}
