// Package intake turns console lines into movement input.
package intake

import (
	"fmt"
	"strconv"
	"strings"

	"tilewalk/client/internal/grid"
)

// Kind names a console command.
type Kind string

const (
	KindWalk    Kind = "walk"
	KindTurn    Kind = "turn"
	KindKey     Kind = "key"
	KindShift   Kind = "shift"
	KindFollow  Kind = "follow"
	KindMouse   Kind = "mouse"
	KindRelease Kind = "release"
	KindClick   Kind = "click"
	KindLoad    Kind = "load"
	KindStatus  Kind = "status"
	KindQuit    Kind = "quit"
)

// Reject reasons returned by Stage.
const (
	RejectUnknownCommand = "unknown_command"
	RejectInvalidArgs    = "invalid_args"
	RejectUnavailable    = "unavailable"
)

// Command is one parsed console line.
type Command struct {
	Kind      Kind
	Tile      grid.Coordinate
	Direction grid.Direction
	Down      bool
	Weight    float64
}

// Controls is the input surface commands drive.
type Controls interface {
	Walk(target grid.Coordinate)
	Face(target grid.Coordinate)
	Key(dir grid.Direction, down bool)
	TurnModifier(held bool)
	Follow(tile grid.Coordinate)
	Pointer(tile grid.Coordinate)
	ReleasePointer()
	Click(tile grid.Coordinate)
	SetCarried(weight float64)
}

// Parse reads a single line. Blank lines parse to the zero Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, nil
	}
	cmd := Command{Kind: Kind(strings.ToLower(fields[0]))}
	args := fields[1:]
	switch cmd.Kind {
	case KindWalk, KindTurn, KindFollow, KindMouse, KindClick:
		tile, err := parseTile(args)
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", cmd.Kind, err)
		}
		cmd.Tile = tile
	case KindKey:
		if len(args) != 2 {
			return Command{}, fmt.Errorf("key: expected DIRECTION down|up")
		}
		dir, err := grid.ParseDirection(args[0])
		if err != nil || !dir.Valid() {
			return Command{}, fmt.Errorf("key: invalid direction %q", args[0])
		}
		down, err := parseUpDown(args[1])
		if err != nil {
			return Command{}, fmt.Errorf("key: %w", err)
		}
		cmd.Direction = dir
		cmd.Down = down
	case KindShift:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("shift: expected down|up")
		}
		down, err := parseUpDown(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("shift: %w", err)
		}
		cmd.Down = down
	case KindLoad:
		if len(args) != 1 {
			return Command{}, fmt.Errorf("load: expected WEIGHT")
		}
		weight, err := strconv.ParseFloat(args[0], 64)
		if err != nil || weight < 0 {
			return Command{}, fmt.Errorf("load: invalid weight %q", args[0])
		}
		cmd.Weight = weight
	case KindRelease, KindStatus, KindQuit:
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%s: takes no arguments", cmd.Kind)
		}
	default:
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	return cmd, nil
}

func parseTile(args []string) (grid.Coordinate, error) {
	if len(args) != 2 && len(args) != 3 {
		return grid.Coordinate{}, fmt.Errorf("expected X Y [LAYER]")
	}
	values := make([]int, 3)
	for i, raw := range args {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return grid.Coordinate{}, fmt.Errorf("invalid coordinate %q", raw)
		}
		values[i] = v
	}
	return grid.At(values[0], values[1], values[2]), nil
}

func parseUpDown(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "down":
		return true, nil
	case "up":
		return false, nil
	default:
		return false, fmt.Errorf("expected down or up, got %q", raw)
	}
}

// Stage applies a movement command to controls. Status and quit are left to
// the caller and are rejected here.
func Stage(controls Controls, cmd Command) (bool, string) {
	if controls == nil {
		return false, RejectUnavailable
	}
	switch cmd.Kind {
	case KindWalk:
		controls.Walk(cmd.Tile)
	case KindTurn:
		controls.Face(cmd.Tile)
	case KindKey:
		if !cmd.Direction.Valid() {
			return false, RejectInvalidArgs
		}
		controls.Key(cmd.Direction, cmd.Down)
	case KindShift:
		controls.TurnModifier(cmd.Down)
	case KindFollow:
		controls.Follow(cmd.Tile)
	case KindMouse:
		controls.Pointer(cmd.Tile)
	case KindRelease:
		controls.ReleasePointer()
	case KindClick:
		controls.Click(cmd.Tile)
	case KindLoad:
		if cmd.Weight < 0 {
			return false, RejectInvalidArgs
		}
		controls.SetCarried(cmd.Weight)
	default:
		return false, RejectUnknownCommand
	}
	return true, ""
}
