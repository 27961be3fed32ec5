package maze

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the robot's absolute facing, cyclic modulo 4
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// NormalizeDirection maps any integer onto 0..3
func NormalizeDirection(d int) Direction {
	return Direction(((d % 4) + 4) % 4)
}

// Left returns the facing after a counter-clockwise quarter turn
func (d Direction) Left() Direction { return NormalizeDirection(int(d) - 1) }

// Right returns the facing after a clockwise quarter turn
func (d Direction) Right() Direction { return NormalizeDirection(int(d) + 1) }

// Reverse returns the opposite facing
func (d Direction) Reverse() Direction { return NormalizeDirection(int(d) + 2) }

// Delta returns the unit displacement for one cell in this facing.
// y grows downward, so Up is (0,-1).
func (d Direction) Delta() (dx, dy int) {
	switch NormalizeDirection(int(d)) {
	case Up:
		return 0, -1
	case Right:
		return 1, 0
	case Down:
		return 0, 1
	default:
		return -1, 0
	}
}

func (d Direction) String() string {
	switch NormalizeDirection(int(d)) {
	case Up:
		return "Up"
	case Right:
		return "Right"
	case Down:
		return "Down"
	default:
		return "Left"
	}
}

// ParseDirection accepts a name (up/right/down/left, case-insensitive) or a digit 0..3
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "0", "n", "north":
		return Up, nil
	case "right", "1", "e", "east":
		return Right, nil
	case "down", "2", "s", "south":
		return Down, nil
	case "left", "3", "w", "west":
		return Left, nil
	}
	return Up, fmt.Errorf("unknown direction %q", s)
}

// MarshalText lets directions appear by name in YAML and JSON
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(d.String())), nil
}

// UnmarshalText accepts the forms ParseDirection does
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Move is a pose transition request
type Move int

const (
	MoveForward Move = iota
	MoveLeft
	MoveRight
	MoveBackward
	MoveRotate180
)

var moveNames = map[Move]string{
	MoveForward:   "forward",
	MoveLeft:      "left",
	MoveRight:     "right",
	MoveBackward:  "backward",
	MoveRotate180: "rotate_180",
}

func (m Move) String() string {
	if s, ok := moveNames[m]; ok {
		return s
	}
	return fmt.Sprintf("move(%d)", int(m))
}

// ParseMove accepts the move names, plus "rotate_back" used by older front ends
func ParseMove(s string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "f":
		return MoveForward, nil
	case "left", "l":
		return MoveLeft, nil
	case "right", "r":
		return MoveRight, nil
	case "backward", "back", "b":
		return MoveBackward, nil
	case "rotate_180", "rotate_back", "rotate", "u":
		return MoveRotate180, nil
	}
	return MoveForward, fmt.Errorf("unknown move %q", s)
}

// CellState is the visitation state of one grid cell
type CellState int

const (
	Unvisited CellState = iota
	Visited
	Available
	Current
)

func (c CellState) String() string {
	switch c {
	case Visited:
		return "visited"
	case Available:
		return "available"
	case Current:
		return "current"
	default:
		return "unvisited"
	}
}

// MarshalText renders the state name in JSON
func (c CellState) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText accepts the names MarshalText produces
func (c *CellState) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "unvisited":
		*c = Unvisited
	case "visited":
		*c = Visited
	case "available":
		*c = Available
	case "current":
		*c = Current
	default:
		return fmt.Errorf("unknown cell state %q", b)
	}
	return nil
}

// Pose is the robot's cell and facing
type Pose struct {
	X   int       `json:"x"`
	Y   int       `json:"y"`
	Dir Direction `json:"direction"`
}

func (p Pose) String() string {
	return fmt.Sprintf("(%d, %d) %s", p.X, p.Y, p.Dir)
}

// Availability holds the per-direction open flags relative to the current facing
type Availability struct {
	Forward bool `json:"forward"`
	Left    bool `json:"left"`
	Right   bool `json:"right"`
}

// AllOpen is the optimistic availability used before the first report
func AllOpen() Availability {
	return Availability{Forward: true, Left: true, Right: true}
}

// Allows reports whether the flag gating m is set. Backward and rotations are never gated.
func (a Availability) Allows(m Move) bool {
	switch m {
	case MoveForward:
		return a.Forward
	case MoveLeft:
		return a.Left
	case MoveRight:
		return a.Right
	default:
		return true
	}
}

func (a Availability) String() string {
	return fmt.Sprintf("forward:%t, left:%t, right:%t", a.Forward, a.Left, a.Right)
}

// TurnPolicy selects how left/right moves behave
type TurnPolicy string

const (
	// TurnRotate turns on the spot
	TurnRotate TurnPolicy = "rotate"
	// TurnFused turns and then advances in the new facing
	TurnFused TurnPolicy = "fused"
)

// Valid reports whether p is a known policy
func (p TurnPolicy) Valid() bool { return p == TurnRotate || p == TurnFused }

// Mode selects which input drives the pose
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// ParseMode accepts "auto"/"manual" and the "Auto Mode"/"Manual Mode" labels
func ParseMode(s string) (Mode, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), " mode") {
	case "auto", "a":
		return ModeAuto, nil
	case "manual", "m":
		return ModeManual, nil
	}
	return ModeAuto, fmt.Errorf("unknown mode %q", s)
}

// Observation is one parsed telemetry record
type Observation struct {
	NodeID       string          `json:"node_id,omitempty"`
	HasNode      bool            `json:"-"`
	Ways         Availability    `json:"possible_ways"`
	RawWays      map[string]bool `json:"-"`
	DistanceCM   float64         `json:"distance"`
	Direction    Direction       `json:"current_direction,omitempty"`
	HasDirection bool            `json:"-"`
	Return       bool            `json:"return,omitempty"`
	ReceivedAt   time.Time       `json:"-"`
}
