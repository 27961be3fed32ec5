package maze

import (
	"fmt"
	"sync"
)

// ModeConfig selects the starting mode and the turn policy used in each mode
type ModeConfig struct {
	Initial    Mode       `yaml:"initial"`
	AutoTurn   TurnPolicy `yaml:"autoTurn"`
	ManualTurn TurnPolicy `yaml:"manualTurn"`
}

// DefaultModeConfig starts in Auto with fused telemetry turns and on-the-spot manual turns
func DefaultModeConfig() ModeConfig {
	return ModeConfig{Initial: ModeAuto, AutoTurn: TurnFused, ManualTurn: TurnRotate}
}

// Controller gates which input drives the pose
type Controller struct {
	mu     sync.RWMutex
	mode   Mode
	policy map[Mode]TurnPolicy
}

// NewController returns a controller in cfg.Initial
func NewController(cfg ModeConfig) *Controller {
	def := DefaultModeConfig()
	if cfg.Initial == "" {
		cfg.Initial = def.Initial
	}
	if !cfg.AutoTurn.Valid() {
		cfg.AutoTurn = def.AutoTurn
	}
	if !cfg.ManualTurn.Valid() {
		cfg.ManualTurn = def.ManualTurn
	}
	return &Controller{
		mode: cfg.Initial,
		policy: map[Mode]TurnPolicy{
			ModeAuto:   cfg.AutoTurn,
			ModeManual: cfg.ManualTurn,
		},
	}
}

// Mode returns the active mode
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetMode switches mode immediately
func (c *Controller) SetMode(m Mode) error {
	if m != ModeAuto && m != ModeManual {
		return fmt.Errorf("unknown mode %q", m)
	}
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
	return nil
}

// Policy returns the turn policy for mode m
func (c *Controller) Policy(m Mode) TurnPolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy[m]
}

// AutoAdvance reports whether telemetry should move the pose
func (c *Controller) AutoAdvance() bool { return c.Mode() == ModeAuto }

// DeriveStep returns the single step by which next extends last. Any other
// relationship yields no step. A descendant more than one step deeper is a
// skipped update: no step is taken and a *StructuralError describes the gap.
func DeriveStep(last, next NodeID) (Step, bool, error) {
	if s, ok := next.Extends(last); ok {
		return s, true, nil
	}
	if next.Depth() > last.Depth()+1 && next.HasPrefix(last) {
		return 0, false, &StructuralError{
			NodeID: next.String(),
			Reason: fmt.Sprintf("skipped %d update(s) after %s", next.Depth()-last.Depth()-1, last),
		}
	}
	return 0, false, nil
}

// Permit decides whether a manual move may be attempted now
func (c *Controller) Permit(move Move, avail Availability) error {
	if c.Mode() != ModeManual {
		return ErrWrongMode
	}
	if (move == MoveLeft || move == MoveRight) && c.Policy(ModeManual) == TurnRotate {
		return nil
	}
	if !avail.Allows(move) {
		return &AvailabilityError{Move: move}
	}
	return nil
}
