package maze

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures commands; err, when set, fails every send
type recordingSender struct {
	mu   sync.Mutex
	cmds []string
	err  error
}

func (r *recordingSender) Send(_ context.Context, cmd string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recordingSender) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cmds...)
}

func (r *recordingSender) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func TestMoveCode(t *testing.T) {
	want := map[Move]string{
		MoveForward:   "w",
		MoveLeft:      "a",
		MoveRight:     "d",
		MoveBackward:  "s",
		MoveRotate180: "b",
	}
	for m, code := range want {
		got, err := MoveCode(m)
		require.NoError(t, err)
		assert.Equal(t, code, got, m.String())

		back, ok := MoveForCode(code)
		assert.True(t, ok)
		assert.Equal(t, m, back)
	}
	_, err := MoveCode(Move(42))
	assert.Error(t, err)
	_, ok := MoveForCode("q")
	assert.False(t, ok)
}

func TestStartCode(t *testing.T) {
	assert.Equal(t, "a", StartCode(ModeAuto))
	assert.Equal(t, "m", StartCode(ModeManual))
}

func TestValidatePathRequest(t *testing.T) {
	tr := NewTree(DefaultRoot)
	tr.Insert("Rt_")
	tr.Insert("Rt_F")

	assert.NoError(t, ValidatePathRequest(tr, "Rt_", "Rt_F"))
	assert.ErrorIs(t, ValidatePathRequest(tr, "Rt_", "Rt_L"), ErrUnknownNode)
	assert.ErrorIs(t, ValidatePathRequest(tr, "Rt_Q", "Rt_F"), ErrUnknownNode)
	assert.ErrorIs(t, ValidatePathRequest(tr, "Rt_F", "Rt_F"), ErrSameNode)
	assert.Equal(t, "path Rt_ Rt_F", PathCommand("Rt_", "Rt_F"))
}

func TestLimitedSender_Forwards(t *testing.T) {
	rec := &recordingSender{}
	ls := NewLimitedSender(rec, 0, 0)

	for _, c := range []string{"w", "a", "d"} {
		require.NoError(t, ls.Send(context.Background(), c))
	}
	assert.Equal(t, []string{"w", "a", "d"}, rec.sent())
}

func TestLimitedSender_HonoursContext(t *testing.T) {
	rec := &recordingSender{}
	ls := NewLimitedSender(rec, 0.01, 1)

	require.NoError(t, ls.Send(context.Background(), "w"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := ls.Send(ctx, "a")
	assert.Error(t, err, "second send should not get a token before the deadline")
	assert.Equal(t, []string{"w"}, rec.sent())
}

func TestLimitedSender_PropagatesError(t *testing.T) {
	boom := errors.New("link down")
	rec := &recordingSender{err: boom}
	ls := NewLimitedSender(rec, 100, 5)
	assert.ErrorIs(t, ls.Send(context.Background(), "w"), boom)
}
