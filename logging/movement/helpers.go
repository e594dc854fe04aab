// Package movement defines the structured events emitted by the movement
// coordinator.
package movement

import (
	"context"

	"tilewalk/client/logging"
)

const (
	// EventStepDispatched is emitted when a move or turn command leaves the client.
	EventStepDispatched logging.EventType = "movement.step_dispatched"
	// EventStepConfirmed is emitted when the server confirms a move.
	EventStepConfirmed logging.EventType = "movement.step_confirmed"
	// EventStepCancelled is emitted when the server answers with the prior location.
	EventStepCancelled logging.EventType = "movement.step_cancelled"
	// EventMoveTooEarly is emitted when the server rejects a command as premature.
	EventMoveTooEarly logging.EventType = "movement.move_too_early"
	// EventResync is emitted on an authoritative location reset.
	EventResync logging.EventType = "movement.resync"
	// EventHandlerChanged is emitted when the active handler changes.
	EventHandlerChanged logging.EventType = "movement.handler_changed"
	// EventPathUnreachable is emitted when a walk target cannot be reached.
	EventPathUnreachable logging.EventType = "movement.path_unreachable"
	// EventDispatchDropped is emitted when a command cannot be addressed to a player.
	EventDispatchDropped logging.EventType = "movement.dispatch_dropped"
)

// StepPayload describes a dispatched command.
type StepPayload struct {
	Kind      string `json:"kind"`
	Mode      string `json:"mode,omitempty"`
	Direction string `json:"direction"`
	From      string `json:"from"`
	Predicted int64  `json:"predictedMs,omitempty"`
}

// ConfirmPayload describes a reconciled server move.
type ConfirmPayload struct {
	Mode       string `json:"mode"`
	Target     string `json:"target"`
	DurationMs int64  `json:"durationMs"`
	Diverged   bool   `json:"diverged,omitempty"`
}

// CancelPayload describes a move the server refused by answering with the prior location.
type CancelPayload struct {
	Location string `json:"location"`
}

// TooEarlyPayload records whether a command was available for resend.
type TooEarlyPayload struct {
	Resent bool `json:"resent"`
}

// ResyncPayload captures the authoritative reset.
type ResyncPayload struct {
	Previous string `json:"previous,omitempty"`
	Location string `json:"location"`
}

// HandlerPayload names the handlers involved in a control change.
type HandlerPayload struct {
	Previous string `json:"previous,omitempty"`
	Current  string `json:"current,omitempty"`
}

// PathPayload identifies an abandoned walk.
type PathPayload struct {
	From   string `json:"from"`
	Target string `json:"target"`
}

// DropPayload explains why a command was not sent.
type DropPayload struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, step uint64, actor logging.EntityRef, commandID string, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:      eventType,
		Step:      step,
		Actor:     actor,
		Severity:  severity,
		Category:  logging.CategoryMovement,
		Payload:   payload,
		Extra:     extra,
		CommandID: commandID,
	})
}

// StepDispatched publishes a debug event for every command sent.
func StepDispatched(ctx context.Context, pub logging.Publisher, step uint64, actor logging.EntityRef, commandID string, payload StepPayload, extra map[string]any) {
	publish(ctx, pub, EventStepDispatched, logging.SeverityDebug, step, actor, commandID, payload, extra)
}

// StepConfirmed publishes a confirmation; divergent targets are reported at info.
func StepConfirmed(ctx context.Context, pub logging.Publisher, step uint64, actor logging.EntityRef, payload ConfirmPayload, extra map[string]any) {
	severity := logging.SeverityDebug
	if payload.Diverged {
		severity = logging.SeverityInfo
	}
	publish(ctx, pub, EventStepConfirmed, severity, step, actor, "", payload, extra)
}

// StepCancelled publishes an info event when the server keeps the player in place.
func StepCancelled(ctx context.Context, pub logging.Publisher, step uint64, actor logging.EntityRef, payload CancelPayload, extra map[string]any) {
	publish(ctx, pub, EventStepCancelled, logging.SeverityInfo, step, actor, "", payload, extra)
}

// MoveTooEarly publishes a rejection; a rejection with nothing to resend is a warning.
func MoveTooEarly(ctx context.Context, pub logging.Publisher, step uint64, actor logging.EntityRef, commandID string, payload TooEarlyPayload, extra map[string]any) {
	severity := logging.SeverityDebug
	if !payload.Resent {
		severity = logging.SeverityWarn
	}
	publish(ctx, pub, EventMoveTooEarly, severity, step, actor, commandID, payload, extra)
}

// Resync publishes an info event on authoritative location reset.
func Resync(ctx context.Context, pub logging.Publisher, step uint64, actor logging.EntityRef, payload ResyncPayload, extra map[string]any) {
	publish(ctx, pub, EventResync, logging.SeverityInfo, step, actor, "", payload, extra)
}

// HandlerChanged publishes a debug event when control moves between handlers.
func HandlerChanged(ctx context.Context, pub logging.Publisher, step uint64, actor logging.EntityRef, payload HandlerPayload, extra map[string]any) {
	publish(ctx, pub, EventHandlerChanged, logging.SeverityDebug, step, actor, "", payload, extra)
}

// PathUnreachable publishes an info event when a walk is abandoned.
func PathUnreachable(ctx context.Context, pub logging.Publisher, step uint64, actor logging.EntityRef, payload PathPayload, extra map[string]any) {
	publish(ctx, pub, EventPathUnreachable, logging.SeverityInfo, step, actor, "", payload, extra)
}

// DispatchDropped publishes an error event when a command is discarded.
func DispatchDropped(ctx context.Context, pub logging.Publisher, step uint64, actor logging.EntityRef, payload DropPayload, extra map[string]any) {
	publish(ctx, pub, EventDispatchDropped, logging.SeverityError, step, actor, "", payload, extra)
}
