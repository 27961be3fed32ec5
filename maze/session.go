package maze

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable view of the session state handed to listeners
type Snapshot struct {
	SessionID       string       `json:"sessionId"`
	Seq             uint64       `json:"seq"`
	Mode            Mode         `json:"mode"`
	Tree            TreeSnapshot `json:"tree"`
	Nav             NavState     `json:"nav"`
	LastObservation *Observation `json:"lastObservation,omitempty"`
	Status          string       `json:"status,omitempty"`
	LastError       string       `json:"lastError,omitempty"`
	Complete        bool         `json:"complete"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Listener receives every snapshot the session publishes. It is called from
// the session loop and must not block.
type Listener interface {
	OnSnapshot(Snapshot)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Snapshot)

// OnSnapshot calls f
func (f ListenerFunc) OnSnapshot(s Snapshot) { f(s) }

// SessionConfig is everything a session needs to start
type SessionConfig struct {
	GridSize  int
	Start     Pose
	Mode      ModeConfig
	Ingest    IngestOptions
	Root      string
	Handshake bool
}

// DefaultSessionConfig starts at the centre of a default grid facing up
func DefaultSessionConfig() SessionConfig {
	c := DefaultGridSize / 2
	return SessionConfig{
		GridSize: DefaultGridSize,
		Start:    Pose{X: c, Y: c, Dir: Up},
		Mode:     DefaultModeConfig(),
		Ingest:   DefaultIngestOptions(),
		Root:     DefaultRoot,
	}
}

type requestKind int

const (
	reqMove requestKind = iota
	reqCommit
	reqMode
	reqPath
	reqFailed
)

type request struct {
	kind     requestKind
	move     *pendingMove
	mode     Mode
	from, to string
	err      error
	reply    chan error
}

// pendingMove carries a manual move from its preview in the loop, through the
// send, to its commit
type pendingMove struct {
	move     Move
	code     string
	ways     Availability
	distance float64
	policy   TurnPolicy
	next     NavState
	seq      uint64
}

// Session owns the tree, the navigator and the mode controller. Only the Run
// loop mutates them; callers reach it through Command, SwitchMode and
// RequestPath.
type Session struct {
	id        string
	cfg       SessionConfig
	tree      *Tree
	nav       *Navigator
	ctrl      *Controller
	sender    Sender
	listeners []Listener

	requests chan request
	done     chan struct{}
	sendMu   sync.Mutex

	lastNode     NodeID
	hasLast      bool
	lastDistance float64
	lastObs      *Observation
	status       string
	lastErr      string
	complete     bool
	seq          uint64

	mu     sync.RWMutex
	latest Snapshot
}

// NewSession builds a session. sender may be nil for read-only replays.
func NewSession(cfg SessionConfig, sender Sender, listeners ...Listener) (*Session, error) {
	if cfg.GridSize == 0 {
		cfg.GridSize = DefaultGridSize
	}
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	nav, err := NewNavigator(cfg.GridSize, cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("placing robot at %s: %w", cfg.Start, err)
	}
	s := &Session{
		id:           uuid.NewString(),
		cfg:          cfg,
		tree:         NewTree(cfg.Root),
		nav:          nav,
		ctrl:         NewController(cfg.Mode),
		sender:       sender,
		listeners:    listeners,
		requests:     make(chan request),
		done:         make(chan struct{}),
		lastDistance: DefaultDistanceCM,
	}
	s.latest = s.snapshot()
	return s, nil
}

// ID returns the session's unique id
func (s *Session) ID() string { return s.id }

// AddListener registers l. It must be called before Run.
func (s *Session) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Snapshot returns the most recently published state
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Run consumes lines until the channel closes (nil), the termination token
// arrives (ErrTerminated) or ctx is done (ctx.Err()).
func (s *Session) Run(ctx context.Context, lines <-chan string) error {
	defer close(s.done)
	log.Printf("[SESSION] %s started in %s mode at %s", s.id, s.ctrl.Mode(), s.nav.State().Pose)

	if s.cfg.Handshake && s.sender != nil {
		if err := s.send(ctx, StartCode(s.ctrl.Mode())); err != nil {
			log.Printf("[SESSION] Start handshake failed: %v", err)
		}
	}
	s.publish()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				log.Printf("[SESSION] Telemetry stream closed")
				return nil
			}
			if s.handleLine(line) {
				log.Printf("[SESSION] Termination token received")
				return ErrTerminated
			}
		case req := <-s.requests:
			req.reply <- s.handleRequest(req)
		}
	}
}

// submit hands a request to the loop and waits for its outcome
func (s *Session) submit(ctx context.Context, req request) error {
	req.reply = make(chan error, 1)
	select {
	case s.requests <- req:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Command issues a manual move. The loop checks and previews it, the command
// is sent from the caller's goroutine, and the loop commits it once the send
// succeeded. Telemetry keeps flowing while the send is in progress.
func (s *Session) Command(ctx context.Context, m Move) error {
	p := &pendingMove{move: m}
	if err := s.submit(ctx, request{kind: reqMove, move: p}); err != nil {
		return err
	}
	if s.sender != nil {
		if err := s.send(ctx, p.code); err != nil {
			movesTotal.WithLabelValues("manual", "send_failed").Inc()
			return s.fail(ctx, fmt.Errorf("manual %s: %w", m, err))
		}
	}
	// the robot already has the command, so the commit outlives the caller
	return s.submit(context.WithoutCancel(ctx), request{kind: reqCommit, move: p})
}

// SwitchMode changes mode
func (s *Session) SwitchMode(ctx context.Context, m Mode) error {
	return s.submit(ctx, request{kind: reqMode, mode: m})
}

// RequestPath asks the backend for the route between two known nodes
func (s *Session) RequestPath(ctx context.Context, from, to string) error {
	if err := s.submit(ctx, request{kind: reqPath, from: from, to: to}); err != nil {
		return err
	}
	if err := s.send(ctx, CodeSelectPath, PathCommand(from, to)); err != nil {
		return s.fail(ctx, fmt.Errorf("path %s -> %s: %w", from, to, err))
	}
	log.Printf("[SESSION] Requested path %s -> %s", from, to)
	return nil
}

// send delivers cmds back to back; concurrent callers never interleave
func (s *Session) send(ctx context.Context, cmds ...string) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	for _, cmd := range cmds {
		if err := s.sender.Send(ctx, cmd); err != nil {
			return fmt.Errorf("sending %q: %w", cmd, err)
		}
	}
	return nil
}

// fail records err as the session's last error and returns it
func (s *Session) fail(ctx context.Context, err error) error {
	_ = s.submit(context.WithoutCancel(ctx), request{kind: reqFailed, err: err})
	return err
}

// handleLine applies one line and reports whether it was the termination token
func (s *Session) handleLine(line string) bool {
	msg := ParseLine(line, s.cfg.Ingest)
	linesTotal.WithLabelValues(MessageKind(msg)).Inc()

	switch m := msg.(type) {
	case Terminate:
		return true
	case Status:
		s.status = m.Text
	case Finished:
		log.Printf("[SESSION] Labyrinth mapping complete (%d nodes)", s.tree.Len())
		s.complete = true
		s.status = "Mapping complete"
	case Malformed:
		log.Printf("[SESSION] Dropping line: %v", m.Err)
		s.lastErr = m.Err.Error()
	case Observation:
		s.applyObservation(m)
	}
	s.publish()
	return false
}

func (s *Session) applyObservation(obs Observation) {
	delta := s.tree.Ingest(obs)
	treeDeltas.WithLabelValues(delta.Kind.String()).Inc()
	treeNodes.Set(float64(s.tree.Len()))
	if delta.Err != nil {
		log.Printf("[SESSION] %v", delta.Err)
		s.lastErr = delta.Err.Error()
	}
	for _, kid := range delta.Linked {
		log.Printf("[SESSION] Linked orphan %s under %s", kid, delta.Node)
	}

	s.lastDistance = obs.DistanceCM
	o := obs
	s.lastObs = &o

	// only a node seen for the first time is a step; revisits leave the pose alone
	if s.ctrl.AutoAdvance() && (delta.Kind == Added || delta.Kind == Orphan) {
		s.autoAdvance(delta.Node, obs)
	}

	if obs.HasDirection {
		s.nav.SetDirection(obs.Direction)
	}
	s.nav.UpdateAvailable(obs.Ways)

	if obs.HasNode && delta.Kind != Rejected {
		s.lastNode = delta.Node
		s.hasLast = true
	}
}

// autoAdvance moves the pose by the step between the previous node and id,
// gated by the availability reported at the previous node
func (s *Session) autoAdvance(id NodeID, obs Observation) {
	if !s.hasLast {
		return
	}
	step, ok, err := DeriveStep(s.lastNode, id)
	if err != nil {
		log.Printf("[SESSION] %v", err)
		s.lastErr = err.Error()
		return
	}
	if !ok {
		return
	}
	move := step.Move()
	prev := s.nav.State().Ways
	if _, err := s.nav.Move(move, obs.DistanceCM, prev, s.ctrl.Policy(ModeAuto)); err != nil {
		movesTotal.WithLabelValues("auto", moveResult(err)).Inc()
		log.Printf("[SESSION] Auto %s from %s rejected: %v", move, s.lastNode, err)
		s.lastErr = err.Error()
		return
	}
	movesTotal.WithLabelValues("auto", "ok").Inc()
	log.Printf("[SESSION] Auto %s to %s", move, s.nav.State().Pose)
}

func (s *Session) handleRequest(req request) error {
	var err error
	switch req.kind {
	case reqMove:
		if err = s.prepareMove(req.move); err == nil {
			return nil
		}
	case reqCommit:
		err = s.commitMove(req.move)
	case reqMode:
		err = s.ctrl.SetMode(req.mode)
		if err == nil {
			log.Printf("[SESSION] Switched to %s mode", req.mode)
		}
	case reqPath:
		if err = s.checkPath(req.from, req.to); err == nil {
			return nil
		}
	case reqFailed:
		err = req.err
	}
	if err != nil {
		s.lastErr = err.Error()
	}
	s.publish()
	return err
}

// prepareMove permits and previews p.move against the current state. Nothing
// is committed here.
func (s *Session) prepareMove(p *pendingMove) error {
	state := s.nav.State()
	if err := s.ctrl.Permit(p.move, state.Ways); err != nil {
		movesTotal.WithLabelValues("manual", moveResult(err)).Inc()
		return err
	}
	policy := s.ctrl.Policy(ModeManual)
	next, err := s.nav.Preview(p.move, s.lastDistance, state.Ways, policy)
	if err != nil {
		movesTotal.WithLabelValues("manual", moveResult(err)).Inc()
		return err
	}
	if s.sender != nil {
		if p.code, err = MoveCode(p.move); err != nil {
			return err
		}
	}
	p.ways, p.distance, p.policy = state.Ways, s.lastDistance, policy
	p.next, p.seq = next, s.seq
	return nil
}

// commitMove applies a sent move. If the state moved on since the preview,
// the move is replayed on the current pose with the ways it was sent under,
// and the latest ways are painted on top.
func (s *Session) commitMove(p *pendingMove) error {
	next := p.next
	if s.seq != p.seq {
		cur := s.nav.State()
		replayed, err := ApplyMove(cur, p.move, p.distance, p.ways, p.policy)
		if err != nil {
			movesTotal.WithLabelValues("manual", moveResult(err)).Inc()
			log.Printf("[SESSION] Manual %s no longer applies: %v", p.move, err)
			return fmt.Errorf("%w: %w", ErrStateChanged, err)
		}
		next = UpdateAvailableCells(replayed, cur.Ways)
	}
	s.nav.Commit(next)
	movesTotal.WithLabelValues("manual", "ok").Inc()
	log.Printf("[SESSION] Manual %s to %s", p.move, next.Pose)
	return nil
}

func (s *Session) checkPath(from, to string) error {
	if err := ValidatePathRequest(s.tree, from, to); err != nil {
		return err
	}
	if s.sender == nil {
		return errors.New("no transport to send path request")
	}
	return nil
}

func moveResult(err error) string {
	var be *BoundsError
	var ae *AvailabilityError
	switch {
	case errors.As(err, &be):
		return "out_of_bounds"
	case errors.As(err, &ae):
		return "unavailable"
	case errors.Is(err, ErrWrongMode):
		return "wrong_mode"
	default:
		return "error"
	}
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.id,
		Seq:       s.seq,
		Mode:      s.ctrl.Mode(),
		Tree:      s.tree.Snapshot(),
		Nav:       s.nav.State(),
		Status:    s.status,
		LastError: s.lastErr,
		Complete:  s.complete,
		UpdatedAt: time.Now(),
	}
	if s.lastObs != nil {
		o := *s.lastObs
		snap.LastObservation = &o
	}
	return snap
}

func (s *Session) publish() {
	s.seq++
	snap := s.snapshot()
	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()
	for _, l := range s.listeners {
		l.OnSnapshot(snap)
	}
}
