package animation

import (
	"math"
	"testing"
	"time"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
)

type fixedPing time.Duration

func (p fixedPing) Ping() time.Duration { return time.Duration(p) }

type progressCall struct {
	from, to grid.Coordinate
	mode     motion.Mode
	progress float64
}

type recordingTarget struct {
	locations []grid.Coordinate
	progress  []progressCall
	facings   []grid.Direction
}

func (r *recordingTarget) SetLocation(at grid.Coordinate) { r.locations = append(r.locations, at) }

func (r *recordingTarget) SetMoveProgress(from, to grid.Coordinate, mode motion.Mode, progress float64) {
	r.progress = append(r.progress, progressCall{from: from, to: to, mode: mode, progress: progress})
}

func (r *recordingTarget) SetFacing(dir grid.Direction) { r.facings = append(r.facings, dir) }

func (r *recordingTarget) lastProgress() float64 {
	if len(r.progress) == 0 {
		return -1
	}
	return r.progress[len(r.progress)-1].progress
}

func newTestAnimator(ping time.Duration) (*Animator, *recordingTarget, *int) {
	target := &recordingTarget{}
	ready := 0
	a := New(fixedPing(ping), target, func() { ready++ })
	a.Reset(grid.At(0, 0, 0))
	target.locations = nil
	target.facings = nil
	return a, target, &ready
}

func TestConfirmMoveAdjustsDurationWithoutRestart(t *testing.T) {
	a, target, _ := newTestAnimator(0)
	dest := grid.At(1, 0, 0)
	a.QueueMove(motion.ModeWalk, dest, 450*time.Millisecond)

	a.Update(300 * time.Millisecond)
	if got := target.lastProgress(); math.Abs(got-300.0/450.0) > 1e-9 {
		t.Fatalf("expected progress 300/450, got %f", got)
	}

	a.ConfirmMove(motion.ModeWalk, dest, 400*time.Millisecond)
	if a.Pending() != 1 {
		t.Fatalf("expected the running move to be kept, got %d tasks", a.Pending())
	}

	a.Update(99 * time.Millisecond)
	if got := target.lastProgress(); math.Abs(got-399.0/400.0) > 1e-9 {
		t.Fatalf("expected progress 399/400 after reconciliation, got %f", got)
	}
	if len(target.locations) != 0 {
		t.Fatalf("expected move still running, got locations %v", target.locations)
	}

	a.Update(1 * time.Millisecond)
	if len(target.locations) != 1 || target.locations[0] != dest {
		t.Fatalf("expected move to finish at %v after 400ms total, got %v", dest, target.locations)
	}
	if a.Busy() {
		t.Fatalf("expected animator idle after completion")
	}
}

func TestConfirmMoveFinishesOverdueAnimation(t *testing.T) {
	a, target, _ := newTestAnimator(0)
	dest := grid.At(0, 1, 0)
	a.QueueMove(motion.ModeWalk, dest, 600*time.Millisecond)
	a.Update(500 * time.Millisecond)

	a.ConfirmMove(motion.ModeWalk, dest, 400*time.Millisecond)
	if a.Busy() || len(target.locations) != 1 || target.locations[0] != dest {
		t.Fatalf("expected overdue move to complete on confirmation, got %v", target.locations)
	}
}

func TestEarlyReadySignalFiresOnce(t *testing.T) {
	a, _, ready := newTestAnimator(20 * time.Millisecond)
	a.QueueMove(motion.ModeWalk, grid.At(1, 0, 0), 400*time.Millisecond)

	a.Update(360 * time.Millisecond)
	if *ready != 0 {
		t.Fatalf("expected no signal 40ms before completion with a 30ms threshold")
	}
	a.Update(15 * time.Millisecond)
	if *ready != 1 {
		t.Fatalf("expected early signal once below threshold, got %d", *ready)
	}
	a.Update(10 * time.Millisecond)
	a.Update(15 * time.Millisecond)
	if *ready != 1 {
		t.Fatalf("expected a single signal per move, got %d", *ready)
	}
}

func TestReadyThresholdIsCapped(t *testing.T) {
	a, _, ready := newTestAnimator(time.Second)
	a.QueueMove(motion.ModeWalk, grid.At(1, 0, 0), 400*time.Millisecond)
	a.Update(339 * time.Millisecond)
	if *ready != 0 {
		t.Fatalf("expected ceiling of %s to apply", EarlyReadyCeiling)
	}
	a.Update(2 * time.Millisecond)
	if *ready != 1 {
		t.Fatalf("expected signal inside the ceiling window")
	}
}

func TestSignalWhenQueueDrainsWithoutPing(t *testing.T) {
	a, _, ready := newTestAnimator(0)
	a.QueueTurn(grid.East)
	a.Update(0)
	if *ready != 1 {
		t.Fatalf("expected ready signal once the turn drained the queue, got %d", *ready)
	}
	if a.Facing() != grid.East {
		t.Fatalf("expected facing east, got %s", a.Facing())
	}
}

func TestConfirmMoveDivergentTargetSnaps(t *testing.T) {
	a, target, _ := newTestAnimator(0)
	a.QueueMove(motion.ModeWalk, grid.At(1, 0, 0), 400*time.Millisecond)
	a.Update(100 * time.Millisecond)

	server := grid.At(1, 1, 0)
	a.ConfirmMove(motion.ModeWalk, server, 500*time.Millisecond)
	if a.Busy() {
		t.Fatalf("expected queue cleared on divergence")
	}
	if got := target.locations[len(target.locations)-1]; got != server {
		t.Fatalf("expected snap to %v, got %v", server, got)
	}
	if a.Location() != server {
		t.Fatalf("expected animator location %v, got %v", server, a.Location())
	}
}

func TestConfirmMoveWithoutPredictionQueues(t *testing.T) {
	a, target, _ := newTestAnimator(0)
	dest := grid.At(-1, 0, 0)
	a.ConfirmMove(motion.ModeWalk, dest, 300*time.Millisecond)
	if a.Pending() != 1 {
		t.Fatalf("expected unpredicted move to be queued")
	}
	a.Update(300 * time.Millisecond)
	if target.locations[len(target.locations)-1] != dest {
		t.Fatalf("expected queued move to finish at %v", dest)
	}
}

func TestCancelMoveClearsQueueAndSnaps(t *testing.T) {
	a, target, _ := newTestAnimator(0)
	a.QueueTurn(grid.East)
	a.QueueMove(motion.ModeWalk, grid.At(1, 0, 0), 400*time.Millisecond)
	a.Update(50 * time.Millisecond)

	origin := grid.At(0, 0, 0)
	a.CancelMove(origin)
	if a.Busy() {
		t.Fatalf("expected empty queue after cancel")
	}
	if target.locations[len(target.locations)-1] != origin {
		t.Fatalf("expected snap back to origin")
	}
}

func TestDiscardQueuedKeepsRunningTask(t *testing.T) {
	a, _, _ := newTestAnimator(0)
	a.QueueMove(motion.ModeWalk, grid.At(1, 0, 0), 400*time.Millisecond)
	a.QueueMove(motion.ModeWalk, grid.At(2, 0, 0), 400*time.Millisecond)
	a.QueueTurn(grid.North)
	a.Update(10 * time.Millisecond)

	if dropped := a.DiscardQueued(); dropped != 2 {
		t.Fatalf("expected 2 queued tasks dropped, got %d", dropped)
	}
	if a.Pending() != 1 {
		t.Fatalf("expected running task retained, got %d", a.Pending())
	}
	if a.Location() != grid.At(1, 0, 0) {
		t.Fatalf("expected end location of running move, got %v", a.Location())
	}
}

func TestUpdateCarriesOverflowIntoNextMove(t *testing.T) {
	a, target, _ := newTestAnimator(0)
	a.QueueMove(motion.ModeWalk, grid.At(1, 0, 0), 400*time.Millisecond)
	a.QueueMove(motion.ModeWalk, grid.At(2, 0, 0), 400*time.Millisecond)
	a.Update(600 * time.Millisecond)

	if len(target.locations) != 1 || target.locations[0] != grid.At(1, 0, 0) {
		t.Fatalf("expected first move complete, got %v", target.locations)
	}
	last := target.progress[len(target.progress)-1]
	if last.from != grid.At(1, 0, 0) || math.Abs(last.progress-0.5) > 1e-9 {
		t.Fatalf("expected second move half done, got %+v", last)
	}
}
