package maze

import (
	"fmt"
	"strings"
)

// DefaultRoot is the root marker the controller prefixes every node id with
const DefaultRoot = "Rt_"

// Step is one discrete move encoded in a node id
type Step byte

const (
	StepForward Step = 'F'
	StepLeft    Step = 'L'
	StepRight   Step = 'R'
)

func (s Step) String() string { return string(s) }

// Valid reports whether s is one of F, L, R
func (s Step) Valid() bool {
	return s == StepForward || s == StepLeft || s == StepRight
}

// Move maps a tree step onto the pose move it represents
func (s Step) Move() Move {
	switch s {
	case StepLeft:
		return MoveLeft
	case StepRight:
		return MoveRight
	default:
		return MoveForward
	}
}

// NodeID identifies an exploration node by the steps taken from the root.
// The wire form is root + one character per step.
type NodeID struct {
	root  string
	steps string
}

// RootID returns the id of the root node for the given marker
func RootID(root string) NodeID {
	return NodeID{root: root}
}

// ParseNodeID parses a wire node id such as "Rt_FLF"
func ParseNodeID(s, root string) (NodeID, error) {
	if !strings.HasPrefix(s, root) {
		return NodeID{}, &StructuralError{NodeID: s, Reason: fmt.Sprintf("missing root marker %q", root)}
	}
	steps := s[len(root):]
	for i := 0; i < len(steps); i++ {
		if !Step(steps[i]).Valid() {
			return NodeID{}, &StructuralError{NodeID: s, Reason: fmt.Sprintf("invalid move %q at position %d", steps[i], len(root)+i)}
		}
	}
	return NodeID{root: root, steps: steps}, nil
}

// String returns the wire form
func (id NodeID) String() string { return id.root + id.steps }

// Label is the short form shown on tree nodes: the steps, or "Rt" for the root
func (id NodeID) Label() string {
	if id.steps == "" {
		return strings.TrimSuffix(id.root, "_")
	}
	return id.steps
}

// Depth is the number of steps from the root
func (id NodeID) Depth() int { return len(id.steps) }

// IsRoot reports whether id has no steps
func (id NodeID) IsRoot() bool { return id.steps == "" }

// Steps returns the move sequence
func (id NodeID) Steps() []Step {
	out := make([]Step, len(id.steps))
	for i := 0; i < len(id.steps); i++ {
		out[i] = Step(id.steps[i])
	}
	return out
}

// Last returns the trailing step; ok is false for the root
func (id NodeID) Last() (Step, bool) {
	if id.steps == "" {
		return 0, false
	}
	return Step(id.steps[len(id.steps)-1]), true
}

// Parent returns all-but-the-last step; ok is false for the root
func (id NodeID) Parent() (NodeID, bool) {
	if id.steps == "" {
		return NodeID{}, false
	}
	return NodeID{root: id.root, steps: id.steps[:len(id.steps)-1]}, true
}

// Child returns id extended by one step
func (id NodeID) Child(s Step) NodeID {
	return NodeID{root: id.root, steps: id.steps + string(s)}
}

// Extends reports whether id is prev plus exactly one trailing step, and returns that step
func (id NodeID) Extends(prev NodeID) (Step, bool) {
	if id.root != prev.root || len(id.steps) != len(prev.steps)+1 {
		return 0, false
	}
	if !strings.HasPrefix(id.steps, prev.steps) {
		return 0, false
	}
	return Step(id.steps[len(id.steps)-1]), true
}

// HasPrefix reports whether prefix is an ancestor of (or equal to) id
func (id NodeID) HasPrefix(prefix NodeID) bool {
	return id.root == prefix.root && strings.HasPrefix(id.steps, prefix.steps)
}
