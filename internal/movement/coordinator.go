// Package movement arbitrates movement intent between input handlers, sends
// steps to the server, plays them speculatively and reconciles the
// predictions with the server's answers.
//
// Every mutation runs on a single worker goroutine. Exported methods that
// change state post a task and return immediately; Snapshot is the only
// accessor safe to call from other goroutines.
package movement

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tilewalk/client/internal/animation"
	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/telemetry"
	"tilewalk/client/internal/worker"
	"tilewalk/client/logging"
	movementlog "tilewalk/client/logging/movement"
)

const (
	defaultKeyDebounce = 100 * time.Millisecond
	defaultRunDistance = 3
)

// Config tunes handler behaviour.
type Config struct {
	// DefaultMode is the preferred locomotion, Walk or Run.
	DefaultMode motion.Mode
	// KeyDebounce delays the first step after a key press from an empty set
	// so that a second key can join into a diagonal.
	KeyDebounce time.Duration
	// RunDistance is the pointer distance at which mouse-follow runs.
	RunDistance int
	// TurnWhenAdjacent makes mouse-follow turn instead of stepping onto an
	// adjacent pointer tile.
	TurnWhenAdjacent bool
	// MaxPathNodes bounds each path search.
	MaxPathNodes int
}

// DefaultConfig returns the standard handler configuration.
func DefaultConfig() Config {
	return Config{
		DefaultMode:      motion.ModeWalk,
		KeyDebounce:      defaultKeyDebounce,
		RunDistance:      defaultRunDistance,
		TurnWhenAdjacent: true,
	}
}

func (c Config) normalized() Config {
	if c.DefaultMode != motion.ModeRun {
		c.DefaultMode = motion.ModeWalk
	}
	if c.KeyDebounce < 0 {
		c.KeyDebounce = 0
	}
	if c.RunDistance < 1 {
		c.RunDistance = defaultRunDistance
	}
	return c
}

// Dependencies are the collaborators a Coordinator consumes.
type Dependencies struct {
	Network   NetworkClient
	Identity  Identity
	Model     motion.Model
	Render    animation.RenderTarget
	Clock     animation.Clock
	Queue     *worker.Queue
	Scheduler Scheduler
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	NewID     func() string
	Now       func() time.Time
}

// Snapshot is a consistent read-only view of the coordinator state.
type Snapshot struct {
	Location       grid.Coordinate
	Known          bool
	Facing         grid.Direction
	Active         string
	StepInProgress bool
	State          StepState
	Dispatched     uint64
}

type serverMove struct {
	id       string
	mode     motion.Mode
	target   grid.Coordinate
	duration time.Duration
}

// Coordinator owns the authoritative movement state of the local player.
type Coordinator struct {
	cfg       Config
	network   NetworkClient
	identity  Identity
	model     motion.Model
	animator  *animation.Animator
	queue     *worker.Queue
	scheduler Scheduler
	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	newID     func() string
	now       func() time.Time

	keyboard    *Keyboard
	followMouse *FollowMouse
	walkTo      *WalkTo
	walkToMouse *WalkToMouse
	turnTo      *TurnTo

	// Worker-owned state.
	active            Handler
	location          grid.Coordinate
	known             bool
	facing            grid.Direction
	stepInProgress    bool
	nextStepRequested bool
	state             StepState
	pending           *Command
	predicted         grid.Coordinate
	lastConfirmed     *serverMove
	dispatched        uint64

	snapshot atomic.Pointer[Snapshot]
}

// New constructs a coordinator and its handlers.
func New(cfg Config, deps Dependencies) (*Coordinator, error) {
	if deps.Network == nil {
		return nil, errors.New("movement: network client is required")
	}
	if deps.Queue == nil {
		return nil, errors.New("movement: worker queue is required")
	}
	if deps.Model.Tiles == nil {
		return nil, errors.New("movement: tile oracle is required")
	}
	if deps.Identity == nil {
		deps.Identity = StaticIdentity("")
	}
	if deps.Scheduler == nil {
		deps.Scheduler = SystemScheduler{}
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics{}
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c := &Coordinator{
		cfg:               cfg.normalized(),
		network:           deps.Network,
		identity:          deps.Identity,
		model:             deps.Model,
		queue:             deps.Queue,
		scheduler:         deps.Scheduler,
		publisher:         deps.Publisher,
		logger:            deps.Logger,
		metrics:           deps.Metrics,
		newID:             deps.NewID,
		now:               deps.Now,
		facing:            grid.South,
		nextStepRequested: true,
	}
	c.animator = animation.New(deps.Clock, deps.Render, c.onAnimatorReady)
	c.keyboard = newKeyboard(c)
	c.followMouse = newFollowMouse(c)
	c.walkTo = newWalkTo(c)
	c.walkToMouse = newWalkToMouse(c)
	c.turnTo = newTurnTo(c)
	c.publish()
	return c, nil
}

func (c *Coordinator) Keyboard() *Keyboard       { return c.keyboard }
func (c *Coordinator) FollowMouse() *FollowMouse { return c.followMouse }
func (c *Coordinator) WalkTo() *WalkTo           { return c.walkTo }
func (c *Coordinator) WalkToMouse() *WalkToMouse { return c.walkToMouse }
func (c *Coordinator) TurnTo() *TurnTo           { return c.turnTo }

// Snapshot returns the most recently published state. Safe from any goroutine.
func (c *Coordinator) Snapshot() Snapshot {
	if snap := c.snapshot.Load(); snap != nil {
		return *snap
	}
	return Snapshot{Facing: grid.South}
}

// AssumeControl makes handler the active handler and runs a decision cycle.
func (c *Coordinator) AssumeControl(handler Handler) {
	c.post(func() { c.assumeControl(handler) })
}

// Disengage releases control if handler is active.
func (c *Coordinator) Disengage(handler Handler) {
	c.post(func() { c.disengage(handler) })
}

// Frame advances animation by delta.
func (c *Coordinator) Frame(delta time.Duration) {
	c.post(func() { c.animator.Update(delta) })
}

// RequestNextStep lets the next step be dispatched before the current
// animation has finished.
func (c *Coordinator) RequestNextStep() {
	c.post(c.onAnimatorReady)
}

// ExecuteServerRespMove applies the server's answer to move command id. An
// empty id is matched against the last confirmed response instead.
func (c *Coordinator) ExecuteServerRespMove(id string, mode motion.Mode, target grid.Coordinate, duration time.Duration) {
	c.post(func() { c.executeServerRespMove(serverMove{id: id, mode: mode, target: target, duration: duration}) })
}

// ExecuteServerRespTurn applies the server's answer to a turn command.
func (c *Coordinator) ExecuteServerRespTurn(dir grid.Direction) {
	c.post(func() { c.executeServerRespTurn(dir) })
}

// ExecuteServerRespMoveTooEarly resends the last command.
func (c *Coordinator) ExecuteServerRespMoveTooEarly() {
	c.post(c.executeServerRespMoveTooEarly)
}

// ExecuteServerLocation hard-resets the player to target.
func (c *Coordinator) ExecuteServerLocation(target grid.Coordinate) {
	c.post(func() { c.executeServerLocation(target) })
}

func (c *Coordinator) post(task func()) {
	if !c.queue.Post(task) {
		c.metrics.Add(telemetry.KeyDispatchDropped, 1)
		c.logger.Printf("[movement] worker closed, dropping task")
	}
}

func (c *Coordinator) actor() logging.EntityRef {
	id, ok := c.identity.PlayerID()
	if !ok {
		return logging.EntityRef{Kind: logging.EntityKindClient}
	}
	return logging.EntityRef{ID: id, Kind: logging.EntityKindPlayer}
}

func handlerName(h Handler) string {
	if h == nil {
		return ""
	}
	return h.Name()
}

func (c *Coordinator) assumeControl(handler Handler) {
	if handler == nil {
		return
	}
	if c.active != handler {
		previous := c.active
		if previous != nil {
			c.release(previous)
		}
		c.active = handler
		movementlog.HandlerChanged(context.Background(), c.publisher, c.dispatched, c.actor(), movementlog.HandlerPayload{
			Previous: handlerName(previous),
			Current:  handler.Name(),
		}, nil)
		c.publish()
	}
	c.tick()
}

func (c *Coordinator) disengage(handler Handler) {
	if handler == nil || c.active != handler {
		c.logger.Printf("[movement] disengage ignored for inactive handler %s", handlerName(handler))
		return
	}
	c.release(handler)
	movementlog.HandlerChanged(context.Background(), c.publisher, c.dispatched, c.actor(), movementlog.HandlerPayload{
		Previous: handler.Name(),
	}, nil)
	c.publish()
}

// release detaches handler and drops animation tasks that have not started.
// A dropped turn never reaches the render target, so facing follows the
// animator again.
func (c *Coordinator) release(handler Handler) {
	c.active = nil
	handler.disengaged()
	c.animator.DiscardQueued()
	c.facing = c.animator.Facing()
}

func (c *Coordinator) tickIfActive(handler Handler) {
	if c.active == handler {
		c.tick()
	}
}

func (c *Coordinator) onAnimatorReady() {
	c.nextStepRequested = true
	c.tick()
}

// tick runs one decision cycle.
func (c *Coordinator) tick() {
	if !c.known || c.stepInProgress || c.active == nil {
		return
	}
	if !c.nextStepRequested && c.animator.Busy() {
		return
	}
	step := c.active.NextStep(c.location)
	switch step.Kind {
	case StepTurn:
		c.dispatchTurn(step.Direction)
	case StepMove:
		c.dispatchMove(step.Mode, step.Direction)
	}
	if step.Callback != nil {
		step.Callback()
	}
}

func (c *Coordinator) dispatchTurn(dir grid.Direction) {
	if dir == c.facing {
		return
	}
	cmd, ok := c.newCommand(CommandTurn)
	if !ok {
		return
	}
	cmd.Turn = &TurnCommand{Direction: dir}
	if !c.send(cmd) {
		return
	}
	c.nextStepRequested = false
	c.facing = dir
	c.animator.QueueTurn(dir)
	c.metrics.Add(telemetry.KeyTurnsDispatched, 1)
	movementlog.StepDispatched(context.Background(), c.publisher, c.dispatched, c.actor(), cmd.ID, movementlog.StepPayload{
		Kind:      string(CommandTurn),
		Direction: dir.String(),
		From:      c.location.String(),
	}, nil)
	c.publish()
}

func (c *Coordinator) dispatchMove(mode motion.Mode, dir grid.Direction) {
	cmd, ok := c.newCommand(CommandMove)
	if !ok {
		return
	}
	cmd.Move = &MoveCommand{Mode: mode, Direction: dir, From: c.location}
	c.state = StateRequested
	c.stepInProgress = true
	if !c.send(cmd) {
		c.stepInProgress = false
		c.state = StateIdle
		return
	}
	c.state = StateAwaitingConfirm
	c.nextStepRequested = false

	estimate, feasible := c.model.Duration(c.location, mode, dir)
	if !feasible {
		estimate = time.Duration(motion.MinWalkCost) * time.Millisecond
	}
	if c.facing != dir {
		c.facing = dir
		c.animator.QueueTurn(dir)
	}
	c.predicted = c.location.Add(dir, mode.StepLength())
	c.animator.QueueMove(mode, c.predicted, estimate)
	c.metrics.Add(telemetry.KeyStepsDispatched, 1)
	movementlog.StepDispatched(context.Background(), c.publisher, c.dispatched, c.actor(), cmd.ID, movementlog.StepPayload{
		Kind:      string(CommandMove),
		Mode:      mode.String(),
		Direction: dir.String(),
		From:      c.location.String(),
		Predicted: estimate.Milliseconds(),
	}, nil)
	c.publish()
}

func (c *Coordinator) newCommand(kind CommandType) (Command, bool) {
	playerID, ok := c.identity.PlayerID()
	if !ok {
		c.metrics.Add(telemetry.KeyDispatchDropped, 1)
		movementlog.DispatchDropped(context.Background(), c.publisher, c.dispatched, c.actor(), movementlog.DropPayload{
			Kind:   string(kind),
			Reason: "local player unknown",
		}, nil)
		return Command{}, false
	}
	return Command{
		ID:       c.newID(),
		PlayerID: playerID,
		Type:     kind,
		IssuedAt: c.now(),
	}, true
}

func (c *Coordinator) send(cmd Command) bool {
	if err := c.network.SendCommand(cmd); err != nil {
		c.metrics.Add(telemetry.KeyNetworkSendDrops, 1)
		c.logger.Printf("[movement] failed to send %s command %s: %v", cmd.Type, cmd.ID, err)
		return false
	}
	c.dispatched++
	stored := cmd
	c.pending = &stored
	return true
}

func (c *Coordinator) executeServerRespMove(response serverMove) {
	if !c.known {
		c.logger.Printf("[movement] move response before location is known, ignoring")
		return
	}
	if c.staleResponse(response) {
		c.logger.Printf("[movement] ignoring stale move response %q to %s", response.id, response.target)
		return
	}
	mode, target, duration := response.mode, response.target, response.duration
	ctx := context.Background()
	if target == c.location {
		c.animator.CancelMove(target)
		c.facing = c.animator.Facing()
		c.state = StateCancelled
		c.metrics.Add(telemetry.KeyStepsCancelled, 1)
		movementlog.StepCancelled(ctx, c.publisher, c.dispatched, c.actor(), movementlog.CancelPayload{Location: target.String()}, nil)
	} else {
		diverged := !c.stepInProgress || c.predicted != target
		c.animator.ConfirmMove(mode, target, duration)
		if dir := c.location.DirectionTo(target); diverged && dir.Valid() {
			c.facing = dir
		}
		c.location = target
		c.state = StateConfirmed
		c.metrics.Add(telemetry.KeyStepsConfirmed, 1)
		if diverged {
			c.metrics.Add(telemetry.KeyDrift, 1)
		}
		movementlog.StepConfirmed(ctx, c.publisher, c.dispatched, c.actor(), movementlog.ConfirmPayload{
			Mode:       mode.String(),
			Target:     target.String(),
			DurationMs: duration.Milliseconds(),
			Diverged:   diverged,
		}, nil)
	}
	c.lastConfirmed = &response
	c.stepInProgress = false
	c.publish()
	c.tick()
}

// staleResponse reports whether r answers a command that was already settled
// or is no longer pending.
func (c *Coordinator) staleResponse(r serverMove) bool {
	if r.id != "" {
		if c.lastConfirmed != nil && c.lastConfirmed.id == r.id {
			return true
		}
		return c.pending == nil || c.pending.ID != r.id
	}
	if c.lastConfirmed == nil || *c.lastConfirmed != r {
		return false
	}
	if !c.stepInProgress {
		return true
	}
	// A repeat of the previous answer while the next step, which starts
	// where that answer ended, is still unanswered.
	return r.target == c.location && c.pending != nil && c.pending.Move != nil && c.pending.Move.From == r.target
}

func (c *Coordinator) executeServerRespTurn(dir grid.Direction) {
	if !dir.Valid() || dir == c.facing {
		return
	}
	c.facing = dir
	c.animator.QueueTurn(dir)
	c.publish()
}

func (c *Coordinator) executeServerRespMoveTooEarly() {
	ctx := context.Background()
	if c.pending == nil {
		movementlog.MoveTooEarly(ctx, c.publisher, c.dispatched, c.actor(), "", movementlog.TooEarlyPayload{Resent: false}, nil)
		return
	}
	cmd := *c.pending
	c.state = StateRejectedTooEarly
	c.metrics.Add(telemetry.KeyResends, 1)
	movementlog.MoveTooEarly(ctx, c.publisher, c.dispatched, c.actor(), cmd.ID, movementlog.TooEarlyPayload{Resent: true}, nil)
	if err := c.network.SendCommand(cmd); err != nil {
		c.metrics.Add(telemetry.KeyNetworkSendDrops, 1)
		c.logger.Printf("[movement] failed to resend %s command %s: %v", cmd.Type, cmd.ID, err)
	}
	if c.stepInProgress {
		c.state = StateAwaitingConfirm
	}
	c.publish()
}

func (c *Coordinator) executeServerLocation(target grid.Coordinate) {
	previous := ""
	if c.known {
		previous = c.location.String()
	}
	if c.active != nil {
		handler := c.active
		c.release(handler)
		movementlog.HandlerChanged(context.Background(), c.publisher, c.dispatched, c.actor(), movementlog.HandlerPayload{
			Previous: handler.Name(),
		}, nil)
	}
	c.stepInProgress = false
	c.nextStepRequested = true
	c.state = StateIdle
	c.pending = nil
	c.lastConfirmed = nil
	c.location = target
	c.known = true
	c.animator.Reset(target)
	c.facing = c.animator.Facing()
	c.metrics.Add(telemetry.KeyResyncs, 1)
	movementlog.Resync(context.Background(), c.publisher, c.dispatched, c.actor(), movementlog.ResyncPayload{
		Previous: previous,
		Location: target.String(),
	}, nil)
	c.publish()
}

func (c *Coordinator) publish() {
	c.snapshot.Store(&Snapshot{
		Location:       c.location,
		Known:          c.known,
		Facing:         c.facing,
		Active:         handlerName(c.active),
		StepInProgress: c.stepInProgress,
		State:          c.state,
		Dispatched:     c.dispatched,
	})
}

// chooseMove picks the locomotion for a step in dir: the preferred mode when
// the model allows it, walking otherwise, and a turn when the way is blocked.
func (c *Coordinator) chooseMove(current grid.Coordinate, dir grid.Direction, preferred motion.Mode) Step {
	if preferred == motion.ModeRun && c.model.RunningPossible() && c.model.Evaluate(current, motion.ModeRun, dir) != motion.Blocked {
		return Move(motion.ModeRun, dir)
	}
	if c.model.Evaluate(current, motion.ModeWalk, dir) != motion.Blocked {
		return Move(motion.ModeWalk, dir)
	}
	return Turn(dir)
}
