package intake

import (
	"fmt"
	"testing"

	"tilewalk/client/internal/grid"
)

type recordingControls struct {
	calls []string
}

func (r *recordingControls) record(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recordingControls) Walk(target grid.Coordinate) { r.record("walk %v", target) }
func (r *recordingControls) Face(target grid.Coordinate) { r.record("face %v", target) }
func (r *recordingControls) Key(dir grid.Direction, down bool) { r.record("key %s %t", dir, down) }
func (r *recordingControls) TurnModifier(held bool) { r.record("shift %t", held) }
func (r *recordingControls) Follow(tile grid.Coordinate) { r.record("follow %v", tile) }
func (r *recordingControls) Pointer(tile grid.Coordinate) { r.record("pointer %v", tile) }
func (r *recordingControls) ReleasePointer() { r.record("release") }
func (r *recordingControls) Click(tile grid.Coordinate) { r.record("click %v", tile) }
func (r *recordingControls) SetCarried(weight float64) { r.record("load %.1f", weight) }

func TestParseAcceptsCommands(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"walk 3 4", Command{Kind: KindWalk, Tile: grid.At(3, 4, 0)}},
		{"WALK -1 2 1", Command{Kind: KindWalk, Tile: grid.At(-1, 2, 1)}},
		{"turn 0 5", Command{Kind: KindTurn, Tile: grid.At(0, 5, 0)}},
		{"key north down", Command{Kind: KindKey, Direction: grid.North, Down: true}},
		{"key east up", Command{Kind: KindKey, Direction: grid.East}},
		{"shift down", Command{Kind: KindShift, Down: true}},
		{"click 7 7", Command{Kind: KindClick, Tile: grid.At(7, 7, 0)}},
		{"load 12.5", Command{Kind: KindLoad, Weight: 12.5}},
		{"release", Command{Kind: KindRelease}},
		{"status", Command{Kind: KindStatus}},
		{"", Command{}},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got, err := Parse(tc.line)
			if err != nil {
				t.Fatalf("expected %q to parse, got %v", tc.line, err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, line := range []string{
		"walk 3",
		"walk a b",
		"key up down",
		"key north sideways",
		"shift",
		"load -1",
		"quit now",
		"dance",
	} {
		if _, err := Parse(line); err == nil {
			t.Fatalf("expected %q to be rejected", line)
		}
	}
}

func TestStageDrivesControls(t *testing.T) {
	controls := &recordingControls{}
	lines := []string{"walk 1 2", "key west down", "mouse 4 4", "release", "load 3"}
	for _, line := range lines {
		cmd, err := Parse(line)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", line, err)
		}
		if ok, reason := Stage(controls, cmd); !ok {
			t.Fatalf("expected %q to stage, got %s", line, reason)
		}
	}
	want := []string{"walk (1,2,0)", "key west true", "pointer (4,4,0)", "release", "load 3.0"}
	if len(controls.calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), controls.calls)
	}
	for i := range want {
		if controls.calls[i] != want[i] {
			t.Fatalf("call %d: expected %q, got %q", i, want[i], controls.calls[i])
		}
	}
}

func TestStageRejectsNonMovementCommands(t *testing.T) {
	if ok, reason := Stage(&recordingControls{}, Command{Kind: KindStatus}); ok || reason != RejectUnknownCommand {
		t.Fatalf("expected status to be rejected, got %t %s", ok, reason)
	}
	if ok, reason := Stage(nil, Command{Kind: KindWalk}); ok || reason != RejectUnavailable {
		t.Fatalf("expected missing controls to be rejected, got %t %s", ok, reason)
	}
}
