package app

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"tilewalk/client/internal/character"
	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/movement"
	"tilewalk/client/internal/telemetry"
)

// coordinatorControls maps console input onto the coordinator's handlers.
type coordinatorControls struct {
	coordinator *movement.Coordinator
	sheet       *character.Sheet
}

func (c coordinatorControls) Walk(target grid.Coordinate) {
	c.coordinator.WalkTo().Walk(target, 0, nil)
}

func (c coordinatorControls) Face(target grid.Coordinate) {
	c.coordinator.TurnTo().Face(target)
}

func (c coordinatorControls) Key(dir grid.Direction, down bool) {
	if down {
		c.coordinator.Keyboard().Press(dir)
		return
	}
	c.coordinator.Keyboard().Release(dir)
}

func (c coordinatorControls) TurnModifier(held bool) {
	c.coordinator.Keyboard().SetTurnModifier(held)
	c.coordinator.FollowMouse().SetTurnModifier(held)
}

func (c coordinatorControls) Follow(tile grid.Coordinate) {
	c.coordinator.FollowMouse().Press(tile)
}

func (c coordinatorControls) Pointer(tile grid.Coordinate) {
	c.coordinator.FollowMouse().Move(tile)
	c.coordinator.WalkToMouse().Move(tile)
}

func (c coordinatorControls) ReleasePointer() {
	c.coordinator.FollowMouse().Release()
	c.coordinator.WalkToMouse().Release()
}

func (c coordinatorControls) Click(tile grid.Coordinate) {
	c.coordinator.WalkToMouse().Press(tile)
	c.coordinator.WalkToMouse().Release()
}

func (c coordinatorControls) SetCarried(weight float64) {
	c.sheet.SetCarried(weight)
}

const shortUnitsSpec = "y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us"

var shortUnits = mustDecodeUnits(shortUnitsSpec)

func mustDecodeUnits(spec string) durafmt.Units {
	units, err := durafmt.DefaultUnitsCoder.Decode(spec)
	if err != nil {
		panic(fmt.Sprintf("app: invalid duration units %q: %v", spec, err))
	}
	return units
}

type statusInput struct {
	snapshot movement.Snapshot
	render   renderView
	ping     time.Duration
	uptime   time.Duration
	counters map[string]uint64
}

func formatStatus(in statusInput) string {
	snap := in.snapshot
	location := "unknown"
	if snap.Known {
		location = snap.Location.String()
	}
	active := snap.Active
	if active == "" {
		active = "none"
	}
	state := snap.State.String()
	if snap.State.InFlight() {
		state += "(waiting)"
	}
	animation := "idle"
	if in.render.Moving {
		animation = fmt.Sprintf("%s %.0f%%", in.render.Mode, in.render.Progress*100)
	}
	return fmt.Sprintf(
		"at %s facing %s handler=%s state=%s anim=%s steps=%s confirmed=%s resyncs=%s ping=%s up %s",
		location,
		snap.Facing,
		active,
		state,
		animation,
		humanize.Comma(int64(snap.Dispatched)),
		humanize.Comma(int64(in.counters[telemetry.KeyStepsConfirmed])),
		humanize.Comma(int64(in.counters[telemetry.KeyResyncs])),
		in.ping.Round(time.Millisecond),
		durafmt.Parse(in.uptime).LimitFirstN(2).Format(shortUnits),
	)
}
