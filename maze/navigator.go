package maze

// Navigator holds the current NavState and applies moves to it. A move that
// fails leaves the state untouched.
type Navigator struct {
	state NavState
}

// NewNavigator places the robot at start on a size x size grid
func NewNavigator(size int, start Pose) (*Navigator, error) {
	s, err := NewNavState(size, start)
	if err != nil {
		return nil, err
	}
	return &Navigator{state: s}, nil
}

// State returns the current state
func (n *Navigator) State() NavState { return n.state }

// Move applies move and reports whether it succeeded, with the reason when it did not
func (n *Navigator) Move(move Move, distanceCM float64, avail Availability, policy TurnPolicy) (bool, error) {
	next, err := ApplyMove(n.state, move, distanceCM, avail, policy)
	if err != nil {
		return false, err
	}
	n.state = next
	return true, nil
}

// Preview computes the result of move without committing it
func (n *Navigator) Preview(move Move, distanceCM float64, avail Availability, policy TurnPolicy) (NavState, error) {
	return ApplyMove(n.state, move, distanceCM, avail, policy)
}

// Commit replaces the state with one produced by Preview
func (n *Navigator) Commit(s NavState) { n.state = s }

// UpdateAvailable records new ways and repaints the neighbours
func (n *Navigator) UpdateAvailable(ways Availability) {
	n.state = UpdateAvailableCells(n.state, ways)
}

// SetDirection overrides the facing
func (n *Navigator) SetDirection(d Direction) {
	n.state = WithDirection(n.state, d)
}
