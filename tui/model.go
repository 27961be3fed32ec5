// Package tui is the terminal view of a live session: the grid, the pose and
// the mode, with keyboard control of manual moves.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kwv/mazetrack/maze"
)

// Controller is the part of a session the TUI drives
type Controller interface {
	Command(ctx context.Context, m maze.Move) error
	SwitchMode(ctx context.Context, m maze.Mode) error
}

// snapshotMsg carries a new session snapshot
type snapshotMsg maze.Snapshot

// closedMsg means the snapshot feed ended
type closedMsg struct{}

// resultMsg is the outcome of a command or mode switch
type resultMsg struct {
	action string
	err    error
}

// commandTimeout bounds how long one key press may wait on the robot
const commandTimeout = 5 * time.Second

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boardStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))

	cellStyles = map[maze.CellState]lipgloss.Style{
		maze.Unvisited: lipgloss.NewStyle().Background(lipgloss.Color("255")),
		maze.Visited:   lipgloss.NewStyle().Background(lipgloss.Color("160")),
		maze.Available: lipgloss.NewStyle().Background(lipgloss.Color("77")),
		maze.Current:   lipgloss.NewStyle().Background(lipgloss.Color("27")).Foreground(lipgloss.Color("15")).Bold(true),
	}
)

var keyMoves = map[string]maze.Move{
	"w": maze.MoveForward, "up": maze.MoveForward,
	"a": maze.MoveLeft, "left": maze.MoveLeft,
	"d": maze.MoveRight, "right": maze.MoveRight,
	"s": maze.MoveBackward, "down": maze.MoveBackward,
	"b": maze.MoveRotate180,
}

// Model is the bubbletea model for a live session
type Model struct {
	ctrl    Controller
	updates <-chan maze.Snapshot

	snap    maze.Snapshot
	has     bool
	message string
	failed  bool
	closed  bool

	width    int
	quitting bool
}

// NewModel builds a model fed by updates and driving ctrl. ctrl may be nil
// for a read-only view.
func NewModel(ctrl Controller, updates <-chan maze.Snapshot) Model {
	return Model{ctrl: ctrl, updates: updates}
}

// waitForSnapshot blocks on the next snapshot
func waitForSnapshot(ch <-chan maze.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(s)
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	return waitForSnapshot(m.updates)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = maze.Snapshot(msg)
		m.has = true
		return m, waitForSnapshot(m.updates)

	case closedMsg:
		m.closed = true
		m.message = "session ended"
		m.failed = false
		return m, nil

	case resultMsg:
		m.failed = msg.err != nil
		if msg.err != nil {
			m.message = fmt.Sprintf("%s: %v", msg.action, msg.err)
		} else {
			m.message = msg.action
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "m":
		if m.ctrl == nil || !m.has {
			return m, nil
		}
		next := maze.ModeManual
		if m.snap.Mode == maze.ModeManual {
			next = maze.ModeAuto
		}
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			return resultMsg{action: "switch to " + string(next), err: ctrl.SwitchMode(ctx, next)}
		}
	}

	move, ok := keyMoves[key]
	if !ok || m.ctrl == nil {
		return m, nil
	}
	ctrl := m.ctrl
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return resultMsg{action: move.String(), err: ctrl.Command(ctx, move)}
	}
}

// arrow marks the robot's cell with its facing
func arrow(d maze.Direction) string {
	switch d {
	case maze.Up:
		return "▲"
	case maze.Right:
		return "▶"
	case maze.Down:
		return "▼"
	default:
		return "◀"
	}
}

// renderGrid draws two terminal columns per cell
func renderGrid(s maze.NavState) string {
	var b strings.Builder
	for y := 0; y < s.Grid.Size; y++ {
		for x := 0; x < s.Grid.Size; x++ {
			st := s.Grid.At(x, y)
			text := "  "
			if x == s.Pose.X && y == s.Pose.Y {
				text = arrow(s.Pose.Dir) + " "
			}
			b.WriteString(cellStyles[st].Render(text))
		}
		if y < s.Grid.Size-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("mazetrack"))
	b.WriteString("\n\n")

	if !m.has {
		b.WriteString(infoStyle.Render("waiting for telemetry..."))
		b.WriteString("\n")
	} else {
		s := m.snap
		b.WriteString(infoStyle.Render(fmt.Sprintf("mode: %s   pose: %s   nodes: %d", s.Mode, s.Nav.Pose, len(s.Tree.Nodes))))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render(fmt.Sprintf("ways: %s   node: %s", s.Nav.Ways, valueOr(s.Tree.Current, "-"))))
		b.WriteString("\n")
		if s.Complete {
			b.WriteString(okStyle.Render("labyrinth mapped"))
			b.WriteString("\n")
		}
		b.WriteString(boardStyle.Render(renderGrid(s.Nav)))
		b.WriteString("\n")
		if s.LastError != "" {
			b.WriteString(errStyle.Render("last error: " + s.LastError))
			b.WriteString("\n")
		}
	}

	if m.message != "" {
		style := okStyle
		if m.failed {
			style = errStyle
		}
		b.WriteString(style.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("w/a/d/s move  b turn around  m toggle mode  q quit"))
	b.WriteString("\n")
	return b.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Run shows the TUI until the user quits or ctx is done
func Run(ctx context.Context, ctrl Controller, updates <-chan maze.Snapshot) error {
	p := tea.NewProgram(NewModel(ctrl, updates), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
