package maze

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func centreState(t *testing.T) NavState {
	t.Helper()
	s, err := NewNavState(9, Pose{X: 4, Y: 4, Dir: Up})
	require.NoError(t, err)
	return s
}

func TestNewNavState(t *testing.T) {
	s := centreState(t)

	assert.Equal(t, Current, s.Grid.At(4, 4))
	assert.Equal(t, 1, s.Grid.Count(Current))
	assert.Equal(t, AllOpen(), s.Ways)
	// all-open start marks the three neighbours in front and to the sides
	assert.Equal(t, Available, s.Grid.At(4, 3))
	assert.Equal(t, Available, s.Grid.At(3, 4))
	assert.Equal(t, Available, s.Grid.At(5, 4))
	assert.Equal(t, Unvisited, s.Grid.At(4, 5))
	assert.Len(t, s.Trail, 1)
}

func TestNewNavState_Invalid(t *testing.T) {
	_, err := NewNavState(0, Pose{})
	assert.Error(t, err)

	_, err = NewNavState(9, Pose{X: 9, Y: 0})
	var be *BoundsError
	assert.True(t, errors.As(err, &be))
}

func TestCellsForDistance(t *testing.T) {
	tests := []struct {
		cm   float64
		want int
	}{
		{0, 1},
		{10, 1},
		{20, 1},
		{30, 1},
		{40, 1},
		{45, 2},
		{60, 2},
		{200, 2},
		{-10, 1},
		{math.NaN(), 1},
		{math.Inf(1), 1},
	}
	for _, tt := range tests {
		if got := CellsForDistance(tt.cm); got != tt.want {
			t.Errorf("CellsForDistance(%v) = %d, want %d", tt.cm, got, tt.want)
		}
	}
}

func TestApplyMove_Forward(t *testing.T) {
	s := centreState(t)
	next, err := ApplyMove(s, MoveForward, 30, s.Ways, TurnRotate)
	require.NoError(t, err)

	assert.Equal(t, Pose{X: 4, Y: 3, Dir: Up}, next.Pose)
	assert.Equal(t, Visited, next.Grid.At(4, 4))
	assert.Equal(t, Current, next.Grid.At(4, 3))
	assert.Equal(t, 1, next.Grid.Count(Current))
	assert.Len(t, next.Trail, 2)

	// the input state is untouched
	assert.Equal(t, Current, s.Grid.At(4, 4))
	assert.Equal(t, Pose{X: 4, Y: 4, Dir: Up}, s.Pose)
}

func TestApplyMove_ForwardTwoCells(t *testing.T) {
	s := centreState(t)
	next, err := ApplyMove(s, MoveForward, 60, s.Ways, TurnRotate)
	require.NoError(t, err)

	assert.Equal(t, 4, next.Pose.X)
	assert.Equal(t, 2, next.Pose.Y)
	assert.Equal(t, Visited, next.Grid.At(4, 3), "skipped-over cell is visited")
	assert.Equal(t, Visited, next.Grid.At(4, 4))
}

func TestApplyMove_OutOfBounds(t *testing.T) {
	s, err := NewNavState(9, Pose{X: 0, Y: 4, Dir: Left})
	require.NoError(t, err)

	next, err := ApplyMove(s, MoveForward, 30, AllOpen(), TurnRotate)
	var be *BoundsError
	require.True(t, errors.As(err, &be), "err = %v", err)
	assert.Equal(t, -1, be.X)
	assert.Equal(t, s.Pose, next.Pose)
	assert.Equal(t, Current, next.Grid.At(0, 4))
}

func TestApplyMove_Unavailable(t *testing.T) {
	s := centreState(t)
	closed := Availability{Left: true, Right: true}

	_, err := ApplyMove(s, MoveForward, 30, closed, TurnRotate)
	var ae *AvailabilityError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, MoveForward, ae.Move)

	// fused turns are gated too
	_, err = ApplyMove(s, MoveLeft, 30, Availability{Forward: true}, TurnFused)
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, MoveLeft, ae.Move)
}

func TestApplyMove_RotateTurns(t *testing.T) {
	s := centreState(t)

	left, err := ApplyMove(s, MoveLeft, 30, Availability{}, TurnRotate)
	require.NoError(t, err)
	assert.Equal(t, Pose{X: 4, Y: 4, Dir: Left}, left.Pose)

	right, err := ApplyMove(s, MoveRight, 30, Availability{}, TurnRotate)
	require.NoError(t, err)
	assert.Equal(t, Pose{X: 4, Y: 4, Dir: Right}, right.Pose)
	assert.Equal(t, Current, right.Grid.At(4, 4))
}

func TestApplyMove_FusedTurns(t *testing.T) {
	s := centreState(t)

	left, err := ApplyMove(s, MoveLeft, 30, s.Ways, TurnFused)
	require.NoError(t, err)
	assert.Equal(t, Pose{X: 3, Y: 4, Dir: Left}, left.Pose)
	assert.Equal(t, Visited, left.Grid.At(4, 4))

	right, err := ApplyMove(s, MoveRight, 30, s.Ways, TurnFused)
	require.NoError(t, err)
	assert.Equal(t, Pose{X: 5, Y: 4, Dir: Right}, right.Pose)
}

func TestApplyMove_Rotate180Twice(t *testing.T) {
	s := centreState(t)

	once, err := ApplyMove(s, MoveRotate180, 30, s.Ways, TurnRotate)
	require.NoError(t, err)
	assert.Equal(t, Down, once.Pose.Dir)

	twice, err := ApplyMove(once, MoveRotate180, 30, once.Ways, TurnRotate)
	require.NoError(t, err)
	assert.Equal(t, s.Pose, twice.Pose)
	assert.Equal(t, s.Grid.Cells, twice.Grid.Cells)
}

func TestApplyMove_Backward(t *testing.T) {
	s := centreState(t)

	// backward ignores availability and keeps the facing
	next, err := ApplyMove(s, MoveBackward, 60, Availability{}, TurnRotate)
	require.NoError(t, err)
	assert.Equal(t, Pose{X: 4, Y: 5, Dir: Up}, next.Pose)
	assert.Equal(t, Visited, next.Grid.At(4, 4))

	edge, err := NewNavState(9, Pose{X: 4, Y: 8, Dir: Up})
	require.NoError(t, err)
	_, err = ApplyMove(edge, MoveBackward, 30, AllOpen(), TurnRotate)
	var be *BoundsError
	assert.True(t, errors.As(err, &be))
}

func TestUpdateAvailableCells(t *testing.T) {
	s := centreState(t)

	s = UpdateAvailableCells(s, Availability{Left: true})
	assert.Equal(t, Available, s.Grid.At(3, 4))
	assert.Equal(t, Unvisited, s.Grid.At(4, 3), "stale available cell cleared")
	assert.Equal(t, Unvisited, s.Grid.At(5, 4))
	assert.Equal(t, 1, s.Grid.Count(Available))
}

func TestUpdateAvailableCells_KeepsVisited(t *testing.T) {
	s := centreState(t)
	s, err := ApplyMove(s, MoveForward, 30, s.Ways, TurnRotate)
	require.NoError(t, err)
	s = WithDirection(s, Down)

	// the cell behind is now "forward" and must stay visited
	s = UpdateAvailableCells(s, AllOpen())
	assert.Equal(t, Visited, s.Grid.At(4, 4))
	assert.Equal(t, Available, s.Grid.At(3, 3))
	assert.Equal(t, Available, s.Grid.At(5, 3))
}

func TestUpdateAvailableCells_EdgeNeighbours(t *testing.T) {
	s, err := NewNavState(3, Pose{X: 0, Y: 0, Dir: Up})
	require.NoError(t, err)

	s = UpdateAvailableCells(s, AllOpen())
	assert.Equal(t, 1, s.Grid.Count(Available), "only the right neighbour is on the board")
	assert.Equal(t, Available, s.Grid.At(1, 0))
}
