package movement

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/telemetry"
	"tilewalk/client/internal/worker"
	"tilewalk/client/logging"
	"tilewalk/client/logging/sinks"
)

type fakeNetwork struct {
	commands []Command
	fail     bool
}

func (n *fakeNetwork) SendCommand(cmd Command) error {
	if n.fail {
		return errors.New("connection lost")
	}
	n.commands = append(n.commands, cmd)
	return nil
}

func (n *fakeNetwork) moves() []Command {
	var out []Command
	for _, cmd := range n.commands {
		if cmd.Type == CommandMove {
			out = append(out, cmd)
		}
	}
	return out
}

type fakeTiles struct {
	blocked map[grid.Coordinate]bool
	costs   map[grid.Coordinate]int
}

func newFakeTiles() *fakeTiles {
	return &fakeTiles{blocked: make(map[grid.Coordinate]bool), costs: make(map[grid.Coordinate]int)}
}

func (f *fakeTiles) IsBlocked(c grid.Coordinate) bool { return f.blocked[c] }

func (f *fakeTiles) MovementCost(c grid.Coordinate) int {
	if cost, ok := f.costs[c]; ok {
		return cost
	}
	return 4
}

type fakeLoad struct{ canRun bool }

func (f fakeLoad) IsRunningPossible() bool { return f.canRun }
func (f fakeLoad) LoadFactor() float64     { return 0 }

type fakeRender struct {
	locations []grid.Coordinate
	facings   []grid.Direction
}

func (r *fakeRender) SetLocation(at grid.Coordinate) { r.locations = append(r.locations, at) }
func (r *fakeRender) SetMoveProgress(grid.Coordinate, grid.Coordinate, motion.Mode, float64) {}
func (r *fakeRender) SetFacing(dir grid.Direction) { r.facings = append(r.facings, dir) }

type manualTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

type manualScheduler struct {
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	timer := &manualTimer{fn: f}
	s.timers = append(s.timers, timer)
	return timer
}

// fire runs every outstanding timer.
func (s *manualScheduler) fire() {
	for _, timer := range s.timers {
		if timer.stopped || timer.fired {
			continue
		}
		timer.fired = true
		timer.fn()
	}
}

type harness struct {
	t        *testing.T
	c        *Coordinator
	queue    *worker.Queue
	network  *fakeNetwork
	tiles    *fakeTiles
	render   *fakeRender
	sched    *manualScheduler
	events   *sinks.MemorySink
	counters *telemetry.Counters
}

type harnessOptions struct {
	cfg      Config
	identity Identity
	canRun   bool
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.identity == nil {
		opts.identity = StaticIdentity("p1")
	}
	cfg := opts.cfg
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	h := &harness{
		t:        t,
		queue:    worker.New(worker.Config{}, nil, nil),
		network:  &fakeNetwork{},
		tiles:    newFakeTiles(),
		render:   &fakeRender{},
		sched:    &manualScheduler{},
		events:   sinks.NewMemorySink(),
		counters: telemetry.NewCounters(),
	}
	ids := 0
	c, err := New(cfg, Dependencies{
		Network:   h.network,
		Identity:  opts.identity,
		Model:     motion.Model{Tiles: h.tiles, Load: fakeLoad{canRun: opts.canRun}},
		Render:    h.render,
		Queue:     h.queue,
		Scheduler: h.sched,
		Publisher: h.events,
		Metrics:   h.counters,
		NewID: func() string {
			ids++
			return fmt.Sprintf("cmd-%d", ids)
		},
		Now: func() time.Time { return time.Unix(0, 0) },
	})
	if err != nil {
		t.Fatalf("failed to construct coordinator: %v", err)
	}
	h.c = c
	return h
}

func (h *harness) run() {
	h.queue.RunPending()
}

// place performs the initial resync and drains the queue.
func (h *harness) place(at grid.Coordinate) {
	h.c.ExecuteServerLocation(at)
	h.run()
}

func (h *harness) expectCommands(n int) []Command {
	h.t.Helper()
	if len(h.network.commands) != n {
		h.t.Fatalf("expected %d commands, got %d: %+v", n, len(h.network.commands), h.network.commands)
	}
	return h.network.commands
}

func (h *harness) expectEvents(eventType logging.EventType, n int) []logging.Event {
	h.t.Helper()
	events := h.events.OfType(eventType)
	if len(events) != n {
		h.t.Fatalf("expected %d %s events, got %d", n, eventType, len(events))
	}
	return events
}
