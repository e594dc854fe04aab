// Package animation plays predicted and confirmed movement for the local
// player. The Animator is not safe for concurrent use; the movement
// coordinator drives it from its worker goroutine.
package animation

import (
	"time"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
)

// EarlyReadyCeiling caps how long before the end of a move the animator asks
// for the next step.
const EarlyReadyCeiling = 60 * time.Millisecond

// Clock reports the measured network round trip.
type Clock interface {
	Ping() time.Duration
}

// RenderTarget receives the visual state of the local player.
type RenderTarget interface {
	SetLocation(at grid.Coordinate)
	SetMoveProgress(from, to grid.Coordinate, mode motion.Mode, progress float64)
	SetFacing(dir grid.Direction)
}

type taskKind int

const (
	taskMove taskKind = iota
	taskTurn
)

type task struct {
	kind      taskKind
	mode      motion.Mode
	from      grid.Coordinate
	target    grid.Coordinate
	direction grid.Direction
	duration  time.Duration
	elapsed   time.Duration
	confirmed bool
	started   bool
}

// Animator is a FIFO of move and turn tasks with at most one running.
type Animator struct {
	clock   Clock
	render  RenderTarget
	onReady func()

	tasks    []*task
	location grid.Coordinate
	facing   grid.Direction
	signaled bool
}

// New constructs an animator. onReady fires once per move when the move is
// close enough to completion for the next step to be requested, and again
// whenever the queue runs dry.
func New(clock Clock, render RenderTarget, onReady func()) *Animator {
	return &Animator{clock: clock, render: render, onReady: onReady, facing: grid.South}
}

// Location is where the last queued task leaves the player.
func (a *Animator) Location() grid.Coordinate {
	for i := len(a.tasks) - 1; i >= 0; i-- {
		if a.tasks[i].kind == taskMove {
			return a.tasks[i].target
		}
	}
	return a.location
}

// Facing is the direction the player currently faces on screen.
func (a *Animator) Facing() grid.Direction {
	return a.facing
}

// Busy reports whether any task is running or queued.
func (a *Animator) Busy() bool {
	return len(a.tasks) > 0
}

// Pending reports the number of running plus queued tasks.
func (a *Animator) Pending() int {
	return len(a.tasks)
}

// QueueTurn appends a turn.
func (a *Animator) QueueTurn(dir grid.Direction) {
	if !dir.Valid() {
		return
	}
	a.tasks = append(a.tasks, &task{kind: taskTurn, direction: dir})
}

// QueueMove appends a speculative move toward target.
func (a *Animator) QueueMove(mode motion.Mode, target grid.Coordinate, duration time.Duration) {
	a.enqueueMove(mode, target, duration, false)
}

func (a *Animator) enqueueMove(mode motion.Mode, target grid.Coordinate, duration time.Duration, confirmed bool) {
	a.tasks = append(a.tasks, &task{
		kind:      taskMove,
		mode:      mode,
		from:      a.Location(),
		target:    target,
		direction: a.Location().DirectionTo(target),
		duration:  duration,
		confirmed: confirmed,
	})
}

// ConfirmMove reconciles a server-confirmed move with the speculative queue.
// A matching unconfirmed move adopts the authoritative duration and keeps its
// progress. A divergent target snaps to the server location. A move that was
// never predicted is queued as confirmed.
func (a *Animator) ConfirmMove(mode motion.Mode, target grid.Coordinate, duration time.Duration) {
	for _, t := range a.tasks {
		if t.kind != taskMove || t.confirmed {
			continue
		}
		if t.target != target {
			a.CancelMove(target)
			return
		}
		t.mode = mode
		t.duration = duration
		t.confirmed = true
		if t.started && t.elapsed >= t.duration {
			a.advance(0)
		}
		return
	}
	a.enqueueMove(mode, target, duration, true)
}

// CancelMove clears every task and snaps to target.
func (a *Animator) CancelMove(target grid.Coordinate) {
	a.tasks = a.tasks[:0]
	a.signaled = false
	a.location = target
	if a.render != nil {
		a.render.SetLocation(target)
	}
}

// Reset is the hard resync: like CancelMove, but also applied when no
// animation was ever played.
func (a *Animator) Reset(target grid.Coordinate) {
	a.CancelMove(target)
	if a.render != nil {
		a.render.SetFacing(a.facing)
	}
}

// DiscardQueued drops tasks that have not started. The running task, if any,
// completes normally.
func (a *Animator) DiscardQueued() int {
	if len(a.tasks) == 0 {
		return 0
	}
	keep := 0
	if a.tasks[0].started {
		keep = 1
	}
	dropped := len(a.tasks) - keep
	for i := keep; i < len(a.tasks); i++ {
		a.tasks[i] = nil
	}
	a.tasks = a.tasks[:keep]
	return dropped
}

// Update advances animation by delta.
func (a *Animator) Update(delta time.Duration) {
	if delta < 0 {
		delta = 0
	}
	a.advance(delta)
}

func (a *Animator) advance(delta time.Duration) {
	for len(a.tasks) > 0 {
		current := a.tasks[0]
		if !current.started {
			current.started = true
			a.signaled = false
		}
		if current.kind == taskTurn {
			a.facing = current.direction
			if a.render != nil {
				a.render.SetFacing(current.direction)
			}
			a.pop()
			if len(a.tasks) == 0 && !a.signaled {
				a.signal()
			}
			continue
		}

		current.elapsed += delta
		delta = 0
		if current.elapsed < current.duration {
			if a.render != nil {
				progress := float64(current.elapsed) / float64(current.duration)
				a.render.SetMoveProgress(current.from, current.target, current.mode, progress)
			}
			if !a.signaled && current.duration-current.elapsed < a.readyThreshold() {
				a.signal()
			}
			return
		}
		delta = current.elapsed - current.duration
		a.location = current.target
		if a.render != nil {
			a.render.SetLocation(current.target)
		}
		a.pop()
		if !a.signaled {
			a.signal()
		}
	}
}

func (a *Animator) pop() {
	a.tasks[0] = nil
	a.tasks = a.tasks[1:]
	if len(a.tasks) == 0 {
		a.tasks = nil
	}
}

func (a *Animator) signal() {
	a.signaled = true
	if a.onReady != nil {
		a.onReady()
	}
}

// readyThreshold is min(EarlyReadyCeiling, 1.5 × ping).
func (a *Animator) readyThreshold() time.Duration {
	if a.clock == nil {
		return 0
	}
	threshold := a.clock.Ping() * 3 / 2
	if threshold > EarlyReadyCeiling {
		threshold = EarlyReadyCeiling
	}
	return threshold
}
