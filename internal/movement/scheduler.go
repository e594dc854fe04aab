package movement

import "time"

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay. Callbacks run on an arbitrary
// goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules on the runtime timer heap.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
