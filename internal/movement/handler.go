package movement

import "tilewalk/client/internal/grid"

// Handler turns one source of movement intent into steps. The coordinator
// calls NextStep only while the handler is active, on the worker goroutine.
type Handler interface {
	Name() string
	NextStep(current grid.Coordinate) Step
	// disengaged drops transient intent once the handler loses control.
	disengaged()
}
