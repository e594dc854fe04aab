package grid

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDirectionOppositeRoundTrip(t *testing.T) {
	for _, d := range Directions {
		if got := d.Opposite().Opposite(); got != d {
			t.Fatalf("opposite of opposite of %s = %s", d, got)
		}
		dx, dy := d.Offset()
		ox, oy := d.Opposite().Offset()
		if dx != -ox || dy != -oy {
			t.Fatalf("opposite of %s has offset (%d,%d), want (%d,%d)", d, ox, oy, -dx, -dy)
		}
	}
	if NoDirection.Opposite() != NoDirection {
		t.Fatalf("expected NoDirection to have no opposite")
	}
}

func TestFromVectorSignReduces(t *testing.T) {
	cases := []struct {
		name string
		v    mgl64.Vec2
		want Direction
	}{
		{name: "north plus east", v: North.Vector().Add(East.Vector()), want: NorthEast},
		{name: "scaled south", v: mgl64.Vec2{0, 7}, want: South},
		{name: "north plus south", v: North.Vector().Add(South.Vector()), want: NoDirection},
		{name: "west plus southwest", v: West.Vector().Add(SouthWest.Vector()), want: SouthWest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromVector(tc.v); got != tc.want {
				t.Fatalf("FromVector(%v) = %s, want %s", tc.v, got, tc.want)
			}
		})
	}
}

func TestDirectionToSnapsToCompass(t *testing.T) {
	origin := At(0, 0, 0)
	cases := []struct {
		target Coordinate
		want   Direction
	}{
		{At(5, 0, 0), East},
		{At(0, -3, 0), North},
		{At(-2, 2, 0), SouthWest},
		{At(3, -1, 0), East},
		{At(2, -2, 0), NorthEast},
		{At(-1, -4, 0), North},
		{At(0, 0, 0), NoDirection},
	}
	for _, tc := range cases {
		if got := origin.DirectionTo(tc.target); got != tc.want {
			t.Fatalf("DirectionTo(%s) = %s, want %s", tc.target, got, tc.want)
		}
	}
}

func TestStepDistance(t *testing.T) {
	a := At(1, 1, 0)
	if got := a.StepDistance(At(4, 3, 0)); got != 3 {
		t.Fatalf("expected chebyshev distance 3, got %d", got)
	}
	if got := a.StepDistance(At(1, 1, 1)); got != Unreachable {
		t.Fatalf("expected different layers to be unreachable, got %d", got)
	}
}

func TestLineDirection(t *testing.T) {
	origin := At(0, 0, 0)
	if got := origin.LineDirection(At(2, 0, 0)); got != East {
		t.Fatalf("expected East, got %s", got)
	}
	if got := origin.LineDirection(At(-2, 2, 0)); got != SouthWest {
		t.Fatalf("expected SouthWest, got %s", got)
	}
	if got := origin.LineDirection(At(2, 1, 0)); got != NoDirection {
		t.Fatalf("expected knight offset to have no line direction, got %s", got)
	}
}

func TestDirectionTextRoundTrip(t *testing.T) {
	for _, d := range Directions {
		text, err := d.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%s) returned error: %v", d, err)
		}
		var decoded Direction
		if err := decoded.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) returned error: %v", text, err)
		}
		if decoded != d {
			t.Fatalf("round trip mismatch: got %s want %s", decoded, d)
		}
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Fatalf("expected unknown direction to fail")
	}
}
