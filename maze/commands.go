package maze

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// Outbound command codes understood by the robot controller
const (
	CodeForward   = "w"
	CodeLeft      = "a"
	CodeRight     = "d"
	CodeBackward  = "s"
	CodeRotate180 = "b"

	CodeStartAuto   = "a"
	CodeStartManual = "m"

	CodeSelectPath = "y"
	CodeTerminate  = "x"
)

// MoveCode returns the single-character code for a manual move
func MoveCode(m Move) (string, error) {
	switch m {
	case MoveForward:
		return CodeForward, nil
	case MoveLeft:
		return CodeLeft, nil
	case MoveRight:
		return CodeRight, nil
	case MoveBackward:
		return CodeBackward, nil
	case MoveRotate180:
		return CodeRotate180, nil
	}
	return "", fmt.Errorf("no command code for %s", m)
}

// MoveForCode maps a key back to its move
func MoveForCode(code string) (Move, bool) {
	switch strings.TrimSpace(code) {
	case CodeForward:
		return MoveForward, true
	case CodeLeft:
		return MoveLeft, true
	case CodeRight:
		return MoveRight, true
	case CodeBackward:
		return MoveBackward, true
	case CodeRotate180:
		return MoveRotate180, true
	}
	return MoveForward, false
}

// StartCode is the handshake sent once when a session begins in mode m
func StartCode(m Mode) string {
	if m == ModeManual {
		return CodeStartManual
	}
	return CodeStartAuto
}

// PathCommand formats the path request handed to the backend
func PathCommand(from, to string) string {
	return fmt.Sprintf("path %s %s", from, to)
}

// ValidatePathRequest checks that both endpoints are distinct known nodes
func ValidatePathRequest(t *Tree, from, to string) error {
	if !t.Contains(from) {
		return fmt.Errorf("path from %q: %w", from, ErrUnknownNode)
	}
	if !t.Contains(to) {
		return fmt.Errorf("path to %q: %w", to, ErrUnknownNode)
	}
	if from == to {
		return fmt.Errorf("path %q to %q: %w", from, to, ErrSameNode)
	}
	return nil
}

// Sender delivers one command string to the robot
type Sender interface {
	Send(ctx context.Context, cmd string) error
}

// LimitedSender paces outbound commands with a token bucket
type LimitedSender struct {
	next    Sender
	limiter *rate.Limiter
}

// NewLimitedSender wraps next; a non-positive rate disables limiting
func NewLimitedSender(next Sender, perSecond float64, burst int) *LimitedSender {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &LimitedSender{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Send waits for a token, then forwards cmd
func (l *LimitedSender) Send(ctx context.Context, cmd string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("command %q: %w", cmd, err)
	}
	return l.next.Send(ctx, cmd)
}
