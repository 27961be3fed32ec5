package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kwv/mazetrack/maze"
)

type fakeController struct {
	mu    sync.Mutex
	moves []maze.Move
	modes []maze.Mode
	err   error
}

func (f *fakeController) Command(_ context.Context, m maze.Move) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, m)
	return f.err
}

func (f *fakeController) SwitchMode(_ context.Context, m maze.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, m)
	return f.err
}

func testSnapshot(t *testing.T, mode maze.Mode) maze.Snapshot {
	t.Helper()
	nav, err := maze.NewNavState(5, maze.Pose{X: 2, Y: 2, Dir: maze.Right})
	if err != nil {
		t.Fatalf("NewNavState: %v", err)
	}
	return maze.Snapshot{
		Mode: mode,
		Nav:  nav,
		Tree: maze.TreeSnapshot{Root: "Rt_", Nodes: []string{"Rt_"}, Current: "Rt_"},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel_WaitsForTelemetry(t *testing.T) {
	model := NewModel(nil, nil)
	if model.Init() != nil {
		t.Error("Init without a feed should not schedule anything")
	}
	if !strings.Contains(model.View(), "waiting for telemetry") {
		t.Errorf("View() = %q", model.View())
	}
}

func TestModel_SnapshotFeed(t *testing.T) {
	ch := make(chan maze.Snapshot, 1)
	ch <- testSnapshot(t, maze.ModeAuto)
	model := NewModel(nil, ch)

	msg := model.Init()()
	next, cmd := model.Update(msg)
	if cmd == nil {
		t.Error("model should keep listening after a snapshot")
	}
	view := next.View()
	for _, want := range []string{"mode: auto", "(2, 2) Right", "node: Rt_", "▶"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}

	close(ch)
	next, _ = next.Update(cmd())
	if !strings.Contains(next.View(), "session ended") {
		t.Error("closed feed should be reported")
	}
}

func TestModel_MoveKeys(t *testing.T) {
	ctrl := &fakeController{}
	model := NewModel(ctrl, nil)

	keys := map[string]maze.Move{
		"w": maze.MoveForward,
		"a": maze.MoveLeft,
		"d": maze.MoveRight,
		"s": maze.MoveBackward,
		"b": maze.MoveRotate180,
	}
	for k, want := range keys {
		_, cmd := model.Update(key(k))
		if cmd == nil {
			t.Fatalf("key %q produced no command", k)
		}
		res, ok := cmd().(resultMsg)
		if !ok || res.err != nil {
			t.Fatalf("key %q result = %#v", k, res)
		}
		if got := ctrl.moves[len(ctrl.moves)-1]; got != want {
			t.Errorf("key %q sent %v, want %v", k, got, want)
		}
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyUp})
	if cmd == nil {
		t.Fatal("arrow key produced no command")
	}
	cmd()
	if got := ctrl.moves[len(ctrl.moves)-1]; got != maze.MoveForward {
		t.Errorf("up arrow sent %v", got)
	}
}

func TestModel_CommandErrorShown(t *testing.T) {
	ctrl := &fakeController{err: maze.ErrWrongMode}
	model := NewModel(ctrl, nil)

	_, cmd := model.Update(key("w"))
	next, _ := model.Update(cmd())
	view := next.View()
	if !strings.Contains(view, "forward") || !strings.Contains(view, "manual mode") {
		t.Errorf("error not shown:\n%s", view)
	}
}

func TestModel_ToggleMode(t *testing.T) {
	ctrl := &fakeController{}
	model := NewModel(ctrl, nil)

	// no snapshot yet: nothing to toggle from
	if _, cmd := model.Update(key("m")); cmd != nil {
		t.Error("toggle before first snapshot should be ignored")
	}

	next, _ := model.Update(snapshotMsg(testSnapshot(t, maze.ModeAuto)))
	_, cmd := next.Update(key("m"))
	cmd()
	next, _ = next.Update(snapshotMsg(testSnapshot(t, maze.ModeManual)))
	_, cmd = next.Update(key("m"))
	cmd()

	if len(ctrl.modes) != 2 || ctrl.modes[0] != maze.ModeManual || ctrl.modes[1] != maze.ModeAuto {
		t.Errorf("modes = %v, want [manual auto]", ctrl.modes)
	}
}

func TestModel_Quit(t *testing.T) {
	model := NewModel(nil, nil)
	next, cmd := model.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
	if next.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestModel_ReadOnlyIgnoresMoves(t *testing.T) {
	model := NewModel(nil, nil)
	if _, cmd := model.Update(key("w")); cmd != nil {
		t.Error("read-only model should not issue commands")
	}
	if _, cmd := model.Update(key("z")); cmd != nil {
		t.Error("unbound key should do nothing")
	}
}
