package maze

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StateTracker keeps the latest session snapshot for HTTP and TUI readers
type StateTracker struct {
	mu      sync.RWMutex
	latest  Snapshot
	has     bool
	nextID  int
	subs    map[int]chan Snapshot
	session *Session
}

// NewStateTracker creates a new state tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{
		subs: make(map[int]chan Snapshot),
	}
}

// Attach binds the tracker to a session so manual requests can be forwarded
func (st *StateTracker) Attach(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session = s
}

// Session returns the attached session, or nil
func (st *StateTracker) Session() *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.session
}

// OnSnapshot stores snap and fans it out to subscribers. Slow subscribers
// miss intermediate snapshots rather than stalling the session.
func (st *StateTracker) OnSnapshot(snap Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.latest = snap
	st.has = true
	for _, ch := range st.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale one and keep the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Latest returns the current snapshot and whether one has arrived
func (st *StateTracker) Latest() (Snapshot, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.latest, st.has
}

// Subscribe returns a channel that receives the newest snapshot after each
// change, and a function that cancels the subscription.
func (st *StateTracker) Subscribe() (<-chan Snapshot, func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	id := st.nextID
	st.nextID++
	ch := make(chan Snapshot, 1)
	if st.has {
		ch <- st.latest
	}
	st.subs[id] = ch
	return ch, func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		if _, ok := st.subs[id]; ok {
			delete(st.subs, id)
			close(ch)
		}
	}
}

// SaveSnapshot writes a snapshot to disk as JSON
func SaveSnapshot(snap Snapshot, path string) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
