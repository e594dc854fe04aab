package movement

import (
	"context"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/pathfinding"
	"tilewalk/client/internal/telemetry"
	movementlog "tilewalk/client/logging/movement"
)

// preferenceDiscount is subtracted from the cost of steps that keep heading
// straight at the target in the default mode, so that equally cheap routes
// resolve toward the direct line.
const preferenceDiscount = 1

type preferenceCosts struct {
	model     motion.Model
	preferred grid.Direction
	mode      motion.Mode
}

func (p preferenceCosts) StepCost(origin grid.Coordinate, method motion.Mode, dir grid.Direction) int {
	cost := p.model.Evaluate(origin, method, dir)
	if cost != motion.Blocked && dir == p.preferred && method == p.mode {
		cost -= preferenceDiscount
	}
	return cost
}

func (p preferenceCosts) LowerBound(method motion.Mode) int {
	return motion.LowerBound(method) - preferenceDiscount
}

// walker follows a cached path to a target. It backs both WalkTo and
// WalkToMouse.
type walker struct {
	c         *Coordinator
	target    grid.Coordinate
	active    bool
	accept    int
	action    func()
	path      *pathfinding.Path
	preferred grid.Direction
}

func (w *walker) set(target grid.Coordinate, accept int, action func()) {
	if accept < 0 {
		accept = 0
	}
	w.target = target
	w.accept = accept
	w.action = action
	w.active = true
	w.path = nil
}

func (w *walker) clear() {
	w.active = false
	w.action = nil
	w.path = nil
}

// Target reports the current walk target. Worker only.
func (w *walker) Target() (grid.Coordinate, bool) {
	return w.target, w.active
}

func (w *walker) next(current grid.Coordinate) Step {
	if !w.active {
		return Idle()
	}
	target := w.target
	distance := current.StepDistance(target)
	if distance <= w.accept {
		action := w.action
		w.clear()
		step := Idle()
		if distance > 0 {
			step = Turn(current.DirectionTo(target))
		}
		if action != nil {
			step = step.Then(action)
		}
		return step
	}

	for attempt := 0; attempt < 2; attempt++ {
		if !w.path.Valid(target) && !w.plan(current) {
			break
		}
		node, _ := w.path.Next()
		if dir, ok := w.stepTo(current, node); ok {
			return Move(node.Method, dir)
		}
		w.path = nil
	}
	return w.giveUp(current)
}

// stepTo checks that node is exactly one step of its method away.
func (w *walker) stepTo(current grid.Coordinate, node pathfinding.Node) (grid.Direction, bool) {
	if node.Coordinate.Layer != current.Layer {
		return grid.NoDirection, false
	}
	dir := current.LineDirection(node.Coordinate)
	if !dir.Valid() {
		return grid.NoDirection, false
	}
	if current.StepDistance(node.Coordinate) != node.Method.StepLength() {
		return grid.NoDirection, false
	}
	if node.Method == motion.ModeRun && !w.c.model.RunningPossible() {
		return grid.NoDirection, false
	}
	return dir, true
}

func (w *walker) plan(current grid.Coordinate) bool {
	w.path = nil
	w.preferred = current.DirectionTo(w.target)
	methods := []motion.Mode{motion.ModeWalk}
	if w.c.cfg.DefaultMode == motion.ModeRun && w.c.model.RunningPossible() {
		methods = append(methods, motion.ModeRun)
	}
	finder := pathfinding.NewFinder(preferenceCosts{
		model:     w.c.model,
		preferred: w.preferred,
		mode:      w.c.cfg.DefaultMode,
	})
	w.c.metrics.Add(telemetry.KeyPathSearches, 1)
	path, ok := finder.Find(current, w.target, pathfinding.Options{
		Methods:    methods,
		GoalRadius: w.accept,
		MaxNodes:   w.c.cfg.MaxPathNodes,
	})
	if !ok || path.Len() == 0 {
		w.c.metrics.Add(telemetry.KeyPathFailures, 1)
		return false
	}
	w.path = path
	return true
}

func (w *walker) giveUp(current grid.Coordinate) Step {
	target := w.target
	w.clear()
	movementlog.PathUnreachable(context.Background(), w.c.publisher, w.c.dispatched, w.c.actor(), movementlog.PathPayload{
		From:   current.String(),
		Target: target.String(),
	}, nil)
	return Turn(current.DirectionTo(target))
}

// WalkTo walks to a target and optionally runs an action on arrival.
type WalkTo struct {
	walker
}

func newWalkTo(c *Coordinator) *WalkTo {
	return &WalkTo{walker: walker{c: c}}
}

func (w *WalkTo) Name() string { return "walkTo" }

// Walk starts walking until within acceptDistance of target, then faces the
// target and runs action.
func (w *WalkTo) Walk(target grid.Coordinate, acceptDistance int, action func()) {
	w.c.post(func() {
		w.set(target, acceptDistance, action)
		w.c.assumeControl(w)
	})
}

func (w *WalkTo) NextStep(current grid.Coordinate) Step {
	return w.next(current)
}

func (w *WalkTo) disengaged() {
	w.clear()
}

// WalkToMouse walks to the pointer tile, following it while the button is held.
type WalkToMouse struct {
	walker
	held bool
}

func newWalkToMouse(c *Coordinator) *WalkToMouse {
	return &WalkToMouse{walker: walker{c: c}}
}

func (w *WalkToMouse) Name() string { return "walkToMouse" }

// Press starts walking to tile.
func (w *WalkToMouse) Press(tile grid.Coordinate) {
	w.c.post(func() {
		w.held = true
		w.set(w.onPlayerLayer(tile), 0, nil)
		w.c.assumeControl(w)
	})
}

// Move retargets the walk while the button is held.
func (w *WalkToMouse) Move(tile grid.Coordinate) {
	w.c.post(func() {
		if !w.held {
			return
		}
		tile = w.onPlayerLayer(tile)
		if w.active && w.target == tile {
			return
		}
		w.set(tile, 0, nil)
		w.c.tickIfActive(w)
	})
}

// Release stops following the pointer; the walk to the last tile continues.
func (w *WalkToMouse) Release() {
	w.c.post(func() { w.held = false })
}

func (w *WalkToMouse) onPlayerLayer(tile grid.Coordinate) grid.Coordinate {
	return grid.At(tile.X, tile.Y, w.c.location.Layer)
}

func (w *WalkToMouse) NextStep(current grid.Coordinate) Step {
	return w.next(current)
}

func (w *WalkToMouse) disengaged() {
	w.held = false
	w.clear()
}

// TurnTo faces a target tile once.
type TurnTo struct {
	c       *Coordinator
	target  grid.Coordinate
	pending bool
}

func newTurnTo(c *Coordinator) *TurnTo {
	return &TurnTo{c: c}
}

func (t *TurnTo) Name() string { return "turnTo" }

// Face turns toward target.
func (t *TurnTo) Face(target grid.Coordinate) {
	t.c.post(func() {
		t.target = target
		t.pending = true
		t.c.assumeControl(t)
	})
}

func (t *TurnTo) NextStep(current grid.Coordinate) Step {
	if !t.pending {
		return Idle()
	}
	t.pending = false
	return Turn(current.DirectionTo(t.target))
}

func (t *TurnTo) disengaged() {
	t.pending = false
}
