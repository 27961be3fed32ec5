package maze

import (
	"fmt"
	"math"
)

const (
	// CellPitchCM is the edge length of one grid cell
	CellPitchCM = 30.0
	// MinCellsPerMove and MaxCellsPerMove bound how far one advance may go
	MinCellsPerMove = 1
	MaxCellsPerMove = 2
	// DefaultGridSize is the side length of the square grid
	DefaultGridSize = 9
)

// Grid is a square board of cell states, stored row-major
type Grid struct {
	Size  int         `json:"size"`
	Cells []CellState `json:"cells"`
}

// NewGrid returns an all-unvisited grid
func NewGrid(size int) Grid {
	return Grid{Size: size, Cells: make([]CellState, size*size)}
}

// InBounds reports whether (x, y) lies on the grid
func (g Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Size && y < g.Size
}

// At returns the state at (x, y); out-of-bounds reads as Unvisited
func (g Grid) At(x, y int) CellState {
	if !g.InBounds(x, y) {
		return Unvisited
	}
	return g.Cells[y*g.Size+x]
}

func (g Grid) set(x, y int, s CellState) {
	if g.InBounds(x, y) {
		g.Cells[y*g.Size+x] = s
	}
}

// Clone returns a deep copy
func (g Grid) Clone() Grid {
	cells := make([]CellState, len(g.Cells))
	copy(cells, g.Cells)
	return Grid{Size: g.Size, Cells: cells}
}

// Count returns how many cells are in state s
func (g Grid) Count(s CellState) int {
	n := 0
	for _, c := range g.Cells {
		if c == s {
			n++
		}
	}
	return n
}

// NavState is the full pose and grid model. Values are treated as immutable:
// every transition returns a new NavState.
type NavState struct {
	Pose  Pose         `json:"pose"`
	Grid  Grid         `json:"grid"`
	Ways  Availability `json:"ways"`
	Trail []Pose       `json:"trail"`
}

// NewNavState places the robot at start with every way open
func NewNavState(size int, start Pose) (NavState, error) {
	if size <= 0 {
		return NavState{}, fmt.Errorf("grid size must be positive, got %d", size)
	}
	g := NewGrid(size)
	if !g.InBounds(start.X, start.Y) {
		return NavState{}, &BoundsError{Move: MoveForward, X: start.X, Y: start.Y, Size: size}
	}
	start.Dir = NormalizeDirection(int(start.Dir))
	g.set(start.X, start.Y, Current)
	s := NavState{Pose: start, Grid: g, Trail: []Pose{start}}
	return UpdateAvailableCells(s, AllOpen()), nil
}

func (s NavState) clone() NavState {
	trail := make([]Pose, len(s.Trail))
	copy(trail, s.Trail)
	return NavState{Pose: s.Pose, Grid: s.Grid.Clone(), Ways: s.Ways, Trail: trail}
}

// CellsForDistance converts a reported distance to a cell count in [1, 2]
func CellsForDistance(distanceCM float64) int {
	if math.IsNaN(distanceCM) || math.IsInf(distanceCM, 0) {
		return MinCellsPerMove
	}
	n := math.Round(distanceCM / CellPitchCM)
	n = math.Max(MinCellsPerMove, math.Min(MaxCellsPerMove, n))
	return int(n)
}

// ApplyMove computes the state after move. It never mutates s, so a failed
// move leaves the caller's state exactly as it was. Availability is checked
// before anything else; bounds are checked before any cell is touched.
func ApplyMove(s NavState, move Move, distanceCM float64, avail Availability, policy TurnPolicy) (NavState, error) {
	switch move {
	case MoveRotate180:
		next := s.clone()
		next.Pose.Dir = s.Pose.Dir.Reverse()
		return next.settle(), nil

	case MoveLeft, MoveRight:
		turned := s.Pose.Dir.Left()
		if move == MoveRight {
			turned = s.Pose.Dir.Right()
		}
		if policy != TurnFused {
			next := s.clone()
			next.Pose.Dir = turned
			return next.settle(), nil
		}
		if !avail.Allows(move) {
			return s, &AvailabilityError{Move: move}
		}
		return s.advance(move, turned, CellsForDistance(distanceCM))

	case MoveForward:
		if !avail.Forward {
			return s, &AvailabilityError{Move: move}
		}
		return s.advance(move, s.Pose.Dir, CellsForDistance(distanceCM))

	case MoveBackward:
		dx, dy := s.Pose.Dir.Reverse().Delta()
		x, y := s.Pose.X+dx, s.Pose.Y+dy
		if !s.Grid.InBounds(x, y) {
			return s, &BoundsError{Move: move, X: x, Y: y, Size: s.Grid.Size}
		}
		next := s.clone()
		next.Grid.set(s.Pose.X, s.Pose.Y, Visited)
		next.Grid.set(x, y, Current)
		next.Pose.X, next.Pose.Y = x, y
		next.Trail = append(next.Trail, next.Pose)
		return next.settle(), nil
	}
	return s, fmt.Errorf("unsupported move %s", move)
}

// advance walks n cells facing dir, leaving every cell behind Visited
func (s NavState) advance(move Move, dir Direction, n int) (NavState, error) {
	dx, dy := dir.Delta()
	x, y := s.Pose.X+dx*n, s.Pose.Y+dy*n
	if !s.Grid.InBounds(x, y) {
		return s, &BoundsError{Move: move, X: x, Y: y, Size: s.Grid.Size}
	}
	next := s.clone()
	next.Grid.set(s.Pose.X, s.Pose.Y, Visited)
	for i := 1; i < n; i++ {
		next.Grid.set(s.Pose.X+dx*i, s.Pose.Y+dy*i, Visited)
	}
	next.Grid.set(x, y, Current)
	next.Pose = Pose{X: x, Y: y, Dir: dir}
	next.Trail = append(next.Trail, next.Pose)
	return next.settle(), nil
}

// settle recomputes neighbour availability from the last known ways
func (s NavState) settle() NavState {
	return UpdateAvailableCells(s, s.Ways)
}

// WithDirection returns s facing d, with availability recomputed
func WithDirection(s NavState, d Direction) NavState {
	next := s.clone()
	next.Pose.Dir = NormalizeDirection(int(d))
	return next.settle()
}

// Neighbors returns the forward, left and right cells relative to the facing
func (p Pose) Neighbors() (forward, left, right [2]int) {
	fx, fy := p.Dir.Delta()
	lx, ly := p.Dir.Left().Delta()
	rx, ry := p.Dir.Right().Delta()
	return [2]int{p.X + fx, p.Y + fy}, [2]int{p.X + lx, p.Y + ly}, [2]int{p.X + rx, p.Y + ry}
}

// UpdateAvailableCells records ways as the current availability and repaints
// the Available cells: stale Available cells drop back to Unvisited, and each
// open neighbour that is in bounds, not current and not visited becomes
// Available. Visited cells are never changed.
func UpdateAvailableCells(s NavState, ways Availability) NavState {
	next := s.clone()
	next.Ways = ways
	for i, c := range next.Grid.Cells {
		if c == Available {
			next.Grid.Cells[i] = Unvisited
		}
	}
	fwd, left, right := next.Pose.Neighbors()
	for _, n := range []struct {
		open bool
		cell [2]int
	}{{ways.Forward, fwd}, {ways.Left, left}, {ways.Right, right}} {
		if !n.open {
			continue
		}
		x, y := n.cell[0], n.cell[1]
		if !next.Grid.InBounds(x, y) {
			continue
		}
		if x == next.Pose.X && y == next.Pose.Y {
			continue
		}
		if next.Grid.At(x, y) == Visited {
			continue
		}
		next.Grid.set(x, y, Available)
	}
	return next
}
