package movement

// StepState tracks the lifecycle of the most recent movement step.
type StepState int

const (
	StateIdle StepState = iota
	StateRequested
	StateAwaitingConfirm
	StateConfirmed
	StateCancelled
	StateRejectedTooEarly
)

var stepStateNames = [...]string{
	StateIdle:             "idle",
	StateRequested:        "requested",
	StateAwaitingConfirm:  "awaiting_confirm",
	StateConfirmed:        "confirmed",
	StateCancelled:        "cancelled",
	StateRejectedTooEarly: "rejected_too_early",
}

func (s StepState) String() string {
	if s < 0 || int(s) >= len(stepStateNames) {
		return "unknown"
	}
	return stepStateNames[s]
}

// InFlight reports whether a step is waiting for the server.
func (s StepState) InFlight() bool {
	return s == StateRequested || s == StateAwaitingConfirm || s == StateRejectedTooEarly
}
