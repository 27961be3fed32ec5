package maze

import (
	"errors"
	"fmt"
)

var (
	// ErrTerminated is returned by Session.Run when the termination token arrives
	ErrTerminated = errors.New("telemetry stream terminated")
	// ErrWrongMode is returned when a manual command is issued outside Manual mode
	ErrWrongMode = errors.New("manual commands are only accepted in manual mode")
	// ErrUnknownNode is returned when a path endpoint is not a known node
	ErrUnknownNode = errors.New("unknown node")
	// ErrSameNode is returned when both path endpoints are the same node
	ErrSameNode = errors.New("path endpoints must differ")
	// ErrSessionClosed is returned by Submit once the session loop has exited
	ErrSessionClosed = errors.New("session is not running")
	// ErrStateChanged is returned when a sent manual move no longer fits the pose
	ErrStateChanged = errors.New("state changed while the command was in flight")
)

// ParseError describes a telemetry line that could not be decoded
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StructuralError reports an inconsistency in the exploration tree:
// an unknown parent, a malformed node id, or a skipped update.
type StructuralError struct {
	NodeID string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error at %s: %s", e.NodeID, e.Reason)
}

// BoundsError reports a move that would leave the grid
type BoundsError struct {
	Move Move
	X, Y int
	Size int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s would move to (%d, %d), outside %dx%d grid", e.Move, e.X, e.Y, e.Size, e.Size)
}

// AvailabilityError reports a move whose direction is not currently open
type AvailabilityError struct {
	Move Move
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("cannot %s: path not available", e.Move)
}
