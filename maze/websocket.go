package maze

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport dials a controller that speaks telemetry over a
// websocket. Text frames may carry several lines; commands go back as frames.
type WebSocketTransport struct {
	cfg    WebSocketConfig
	token  string
	dialer *websocket.Dialer
	retry  time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketTransport returns a transport for cfg; Stream dials it
func NewWebSocketTransport(cfg WebSocketConfig, token string) *WebSocketTransport {
	if token == "" {
		token = DefaultTerminateToken
	}
	return &WebSocketTransport{
		cfg:   cfg,
		token: token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		retry: time.Second,
	}
}

func (t *WebSocketTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", t.cfg.URL, err)
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	log.Printf("[WS] Connected to %s", t.cfg.URL)
	return conn, nil
}

// Stream reads frames until the token arrives or ctx ends, redialing on failure
func (t *WebSocketTransport) Stream(ctx context.Context, out chan<- string) error {
	for {
		terminated, err := t.streamOnce(ctx, out)
		if terminated {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[WS] Telemetry reader: %v", err)
		reconnectsTotal.WithLabelValues(TransportWebSocket).Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retry):
		}
	}
}

func (t *WebSocketTransport) streamOnce(ctx context.Context, out chan<- string) (bool, error) {
	conn, err := t.dial(ctx)
	if err != nil {
		return false, err
	}
	defer t.drop(conn)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		ok, terminated := emitPayload(ctx, out, data, t.token)
		if !ok {
			return false, ctx.Err()
		}
		if terminated {
			return true, nil
		}
	}
}

func (t *WebSocketTransport) drop(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn.Close()
	if t.conn == conn {
		t.conn = nil
	}
}

var errNotConnected = errors.New("websocket not connected")

func writeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(5 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

func (t *WebSocketTransport) write(ctx context.Context, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return errNotConnected
	}
	if err := t.conn.SetWriteDeadline(writeDeadline(ctx)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Send writes cmd as one text frame
func (t *WebSocketTransport) Send(ctx context.Context, cmd string) error {
	err := t.write(ctx, cmd)
	countCommand(TransportWebSocket, err)
	if err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	return nil
}

// Terminate sends the token; the controller is expected to echo it and hang up.
// Once Stream has returned there is no connection left, so the token goes out
// on a short-lived one.
func (t *WebSocketTransport) Terminate(ctx context.Context) error {
	err := t.write(ctx, t.token)
	if !errors.Is(err, errNotConnected) {
		return err
	}
	conn, _, err := t.dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("terminate: dialing %s: %w", t.cfg.URL, err)
	}
	defer conn.Close()
	log.Printf("[WS] Reconnected to %s to terminate", t.cfg.URL)

	deadline := writeDeadline(ctx)
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(t.token)); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}
	bye := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, bye, deadline); err != nil {
		log.Printf("[WS] Close after terminate: %v", err)
	}
	return nil
}

// Close closes the active connection
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
