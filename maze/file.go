package maze

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileTransport tails a local telemetry file. fsnotify wakes the reader on
// writes; a poll ticker covers filesystems that do not deliver events.
type FileTransport struct {
	cfg   FileConfig
	token string
	mu    sync.Mutex
}

// NewFileTransport returns a transport for cfg
func NewFileTransport(cfg FileConfig, token string) *FileTransport {
	if token == "" {
		token = DefaultTerminateToken
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return &FileTransport{cfg: cfg, token: token}
}

// Stream forwards each complete line appended to the file, starting from the
// beginning. A partial trailing line is held until its newline arrives.
func (t *FileTransport) Stream(ctx context.Context, out chan<- string) error {
	f, err := t.open(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(t.cfg.Path)); err != nil {
		log.Printf("[FILE] Watch failed, polling only: %v", err)
	}

	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	r := bufio.NewReader(f)
	var partial strings.Builder
	for {
		// drain everything available
		for {
			chunk, err := r.ReadString('\n')
			partial.WriteString(chunk)
			if err == nil {
				line := strings.TrimSpace(partial.String())
				partial.Reset()
				if !emit(ctx, out, line) {
					return ctx.Err()
				}
				if line == t.token {
					return nil
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("reading %s: %w", t.cfg.Path, err)
		}
		if strings.TrimSpace(partial.String()) == t.token {
			emit(ctx, out, t.token)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if ok && ev.Name != filepath.Clean(t.cfg.Path) {
				continue
			}
		case werr, ok := <-watcher.Errors:
			if ok {
				log.Printf("[FILE] Watcher error: %v", werr)
			}
		case <-ticker.C:
		}
	}
}

// open waits for the file to appear
func (t *FileTransport) open(ctx context.Context) (*os.File, error) {
	for {
		f, err := os.Open(t.cfg.Path)
		if err == nil {
			return f, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("opening telemetry file: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

func (t *FileTransport) appendLine(path, line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	return err
}

// Send appends cmd to the command file
func (t *FileTransport) Send(ctx context.Context, cmd string) error {
	if t.cfg.CommandPath == "" {
		return errors.New("file transport has no command path")
	}
	err := t.appendLine(t.cfg.CommandPath, cmd)
	countCommand(TransportFile, err)
	if err != nil {
		return fmt.Errorf("file send: %w", err)
	}
	return nil
}

// Terminate appends the token to the telemetry file
func (t *FileTransport) Terminate(ctx context.Context) error {
	return t.appendLine(t.cfg.Path, t.token)
}

// Close is a no-op; Stream releases its handles when it returns
func (t *FileTransport) Close() error { return nil }
