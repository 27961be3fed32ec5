package maze

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Transport moves telemetry lines in and command strings out
type Transport interface {
	// Stream delivers telemetry lines to out until ctx is done, the
	// termination token has been forwarded, or the source fails for good.
	Stream(ctx context.Context, out chan<- string) error
	// Send delivers one command to the robot
	Send(ctx context.Context, cmd string) error
	// Terminate asks the remote end to close its telemetry stream
	Terminate(ctx context.Context) error
	Close() error
}

// NewTransport builds the transport selected by cfg.Transport.Kind. in and
// out back the stdin transport and are ignored by the others.
func NewTransport(cfg *Config, in io.Reader, out io.Writer) (Transport, error) {
	token := cfg.Telemetry.TerminateToken
	switch cfg.Transport.Kind {
	case TransportSSH:
		return NewSSHTransport(cfg.Transport.SSH, token)
	case TransportMQTT:
		return NewMQTTTransport(cfg.Transport.MQTT, token)
	case TransportFile:
		return NewFileTransport(cfg.Transport.File, token), nil
	case TransportWebSocket:
		return NewWebSocketTransport(cfg.Transport.WebSocket, token), nil
	case TransportStdin:
		return NewReaderTransport(in, out, token), nil
	}
	return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
}

// emit forwards one line, reporting false when ctx ended first
func emit(ctx context.Context, out chan<- string, line string) bool {
	select {
	case out <- line:
		return true
	case <-ctx.Done():
		return false
	}
}

// emitPayload splits a multi-line payload and forwards every non-empty line.
// It returns terminated=true once the termination token has been forwarded.
func emitPayload(ctx context.Context, out chan<- string, payload []byte, token string) (ok, terminated bool) {
	sc := bufio.NewScanner(bytes.NewReader(payload))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !emit(ctx, out, line) {
			return false, false
		}
		if line == token {
			return true, true
		}
	}
	return true, false
}

// ReaderTransport reads telemetry from an io.Reader and writes commands to an
// io.Writer, one per line. It backs the stdin transport and replays.
type ReaderTransport struct {
	in    io.Reader
	out   io.Writer
	token string
	mu    sync.Mutex
}

// NewReaderTransport wraps in and out; out may be nil to discard commands
func NewReaderTransport(in io.Reader, out io.Writer, token string) *ReaderTransport {
	if token == "" {
		token = DefaultTerminateToken
	}
	if out == nil {
		out = io.Discard
	}
	return &ReaderTransport{in: in, out: out, token: token}
}

// Stream forwards every line of the reader. It returns nil at EOF.
func (t *ReaderTransport) Stream(ctx context.Context, out chan<- string) error {
	sc := bufio.NewScanner(t.in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !emit(ctx, out, line) {
			return ctx.Err()
		}
		if line == t.token {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading telemetry: %w", err)
	}
	return nil
}

// Send writes cmd and a newline
func (t *ReaderTransport) Send(ctx context.Context, cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.out, cmd)
	countCommand(TransportStdin, err)
	return err
}

// Terminate writes the termination token to the command side
func (t *ReaderTransport) Terminate(ctx context.Context) error {
	return t.Send(ctx, t.token)
}

// Close closes the reader if it is closable
func (t *ReaderTransport) Close() error {
	if c, ok := t.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
