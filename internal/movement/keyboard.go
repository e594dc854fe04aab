package movement

import (
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"

	"tilewalk/client/internal/grid"
)

// Keyboard steps in the direction of the held arrow keys. Two held keys
// combine into a diagonal.
type Keyboard struct {
	c          *Coordinator
	held       *orderedmap.OrderedMap[grid.Direction, struct{}]
	turnOnly   bool
	debouncing bool
	generation uint64
	timer      Timer
}

func newKeyboard(c *Coordinator) *Keyboard {
	return &Keyboard{c: c, held: orderedmap.NewOrderedMap[grid.Direction, struct{}]()}
}

func (k *Keyboard) Name() string { return "keyboard" }

// Press records a held key and takes control.
func (k *Keyboard) Press(dir grid.Direction) {
	k.c.post(func() { k.press(dir) })
}

// Release forgets a held key. Releasing the last key gives up control.
func (k *Keyboard) Release(dir grid.Direction) {
	k.c.post(func() { k.release(dir) })
}

// SetTurnModifier toggles turn-only mode.
func (k *Keyboard) SetTurnModifier(held bool) {
	k.c.post(func() {
		if k.turnOnly == held {
			return
		}
		k.turnOnly = held
		k.c.tickIfActive(k)
	})
}

// Held lists the held directions in press order. Worker only.
func (k *Keyboard) Held() []grid.Direction {
	return k.held.Keys()
}

func (k *Keyboard) press(dir grid.Direction) {
	if !dir.Valid() {
		return
	}
	if _, ok := k.held.Get(dir); ok {
		return
	}
	first := k.held.Len() == 0
	k.held.Set(dir, struct{}{})
	if first {
		k.startDebounce()
	}
	k.c.assumeControl(k)
}

func (k *Keyboard) release(dir grid.Direction) {
	if !k.held.Delete(dir) {
		return
	}
	if k.held.Len() == 0 {
		k.stopDebounce()
		if k.c.active == k {
			k.c.disengage(k)
		}
		return
	}
	k.c.tickIfActive(k)
}

func (k *Keyboard) startDebounce() {
	k.stopDebounce()
	delay := k.c.cfg.KeyDebounce
	if delay <= 0 {
		return
	}
	k.generation++
	generation := k.generation
	k.debouncing = true
	k.timer = k.c.scheduler.AfterFunc(delay, func() {
		k.c.post(func() { k.debounceElapsed(generation) })
	})
}

func (k *Keyboard) stopDebounce() {
	if k.timer != nil {
		k.timer.Stop()
		k.timer = nil
	}
	k.debouncing = false
}

func (k *Keyboard) debounceElapsed(generation uint64) {
	if generation != k.generation || !k.debouncing {
		return
	}
	k.timer = nil
	k.debouncing = false
	k.c.tickIfActive(k)
}

func (k *Keyboard) disengaged() {
	k.stopDebounce()
	for _, dir := range k.held.Keys() {
		k.held.Delete(dir)
	}
}

func (k *Keyboard) NextStep(current grid.Coordinate) Step {
	if k.debouncing || k.held.Len() == 0 || k.held.Len() > 2 {
		return Idle()
	}
	var sum mgl64.Vec2
	for _, dir := range k.held.Keys() {
		sum = sum.Add(dir.Vector())
	}
	dir := grid.FromVector(sum)
	if !dir.Valid() {
		return Idle()
	}
	if k.turnOnly {
		return Turn(dir)
	}
	return k.c.chooseMove(current, dir, k.c.cfg.DefaultMode)
}
