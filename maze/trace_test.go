package maze

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTraceLabyrinth(t *testing.T) {
	tr := NewTree(DefaultRoot)
	for _, id := range []string{"Rt_", "Rt_F", "Rt_FL", "Rt_FLF"} {
		tr.Insert(id)
	}

	lab := TraceLabyrinth(tr.Snapshot(), Down)

	want := []TracedCell{
		{X: 0, Y: 0, Label: "Start", Start: true},
		{X: 0, Y: 1, Label: "F"},
		{X: 1, Y: 1, Label: "FL"},
		{X: 2, Y: 1, Label: "FLF"},
	}
	if diff := cmp.Diff(want, lab.Cells); diff != "" {
		t.Errorf("Cells mismatch (-want +got):\n%s", diff)
	}
	if lab.MinX != 0 || lab.MinY != 0 || lab.MaxX != 2 || lab.MaxY != 1 {
		t.Errorf("bounds = (%d,%d)-(%d,%d)", lab.MinX, lab.MinY, lab.MaxX, lab.MaxY)
	}
}

func TestTraceLabyrinth_DeeperNodeTakesLabel(t *testing.T) {
	snap := TreeSnapshot{
		Root:  "Rt_",
		Nodes: []string{"Rt_", "Rt_LLLL", "Rt_F"},
	}
	// four left turns walk a square back onto the start cell
	lab := TraceLabyrinth(snap, Up)

	if len(lab.Cells) != 2 {
		t.Fatalf("got %d cells, want 2: %+v", len(lab.Cells), lab.Cells)
	}
	start := lab.Cells[0]
	if start.Label != "LLLL" || !start.Start {
		t.Errorf("start cell = %+v, want relabelled start", start)
	}
	if lab.Cells[1] != (TracedCell{X: 0, Y: -1, Label: "F"}) {
		t.Errorf("forward cell = %+v", lab.Cells[1])
	}
	if lab.MinY != -1 {
		t.Errorf("MinY = %d, want -1", lab.MinY)
	}
}
