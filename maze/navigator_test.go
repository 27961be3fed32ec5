package maze

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNavigator_OutOfBounds(t *testing.T) {
	_, err := NewNavigator(5, Pose{X: 5, Y: 0})
	assert.Error(t, err)
}

func TestNavigator_MoveFailureLeavesState(t *testing.T) {
	nav, err := NewNavigator(5, Pose{X: 2, Y: 0, Dir: Up})
	require.NoError(t, err)
	before := nav.State()

	ok, err := nav.Move(MoveForward, 30, AllOpen(), TurnFused)
	assert.False(t, ok)
	var be *BoundsError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, before, nav.State())

	ok, err = nav.Move(MoveForward, 30, Availability{}, TurnFused)
	assert.False(t, ok)
	var ae *AvailabilityError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, before, nav.State())
}

func TestNavigator_PreviewThenCommit(t *testing.T) {
	nav, err := NewNavigator(5, Pose{X: 2, Y: 4, Dir: Up})
	require.NoError(t, err)

	next, err := nav.Preview(MoveForward, 60, AllOpen(), TurnFused)
	require.NoError(t, err)
	assert.Equal(t, Pose{X: 2, Y: 2, Dir: Up}, next.Pose)
	assert.Equal(t, Pose{X: 2, Y: 4, Dir: Up}, nav.State().Pose, "preview does not commit")

	nav.Commit(next)
	s := nav.State()
	assert.Equal(t, Current, s.Grid.At(2, 2))
	assert.Equal(t, Visited, s.Grid.At(2, 3))
	assert.Equal(t, Visited, s.Grid.At(2, 4))
}

func TestNavigator_SetDirectionAndWays(t *testing.T) {
	nav, err := NewNavigator(5, Pose{X: 2, Y: 2, Dir: Up})
	require.NoError(t, err)

	nav.UpdateAvailable(Availability{Left: true})
	s := nav.State()
	assert.Equal(t, Available, s.Grid.At(1, 2))
	assert.Equal(t, 1, s.Grid.Count(Available))

	nav.SetDirection(Right)
	s = nav.State()
	assert.Equal(t, Right, s.Pose.Dir)
	// left of Right is Up
	assert.Equal(t, Available, s.Grid.At(2, 1))
	assert.Equal(t, Unvisited, s.Grid.At(1, 2))
}

func TestNavigator_RotateTurnSucceedsAtEdge(t *testing.T) {
	nav, err := NewNavigator(9, Pose{X: 0, Y: 0, Dir: Up})
	require.NoError(t, err)

	ok, err := nav.Move(MoveForward, 30, AllOpen(), TurnRotate)
	assert.False(t, ok)
	assert.Error(t, err)

	ok, err = nav.Move(MoveRight, 30, AllOpen(), TurnRotate)
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, Pose{X: 0, Y: 0, Dir: Right}, nav.State().Pose)
}
