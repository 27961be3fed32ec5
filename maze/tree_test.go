package maze

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func insertAll(t *testing.T, tr *Tree, ids ...string) []TreeDelta {
	t.Helper()
	out := make([]TreeDelta, 0, len(ids))
	for _, id := range ids {
		out = append(out, tr.Insert(id))
	}
	return out
}

func TestTree_BuildsEdgesInOrder(t *testing.T) {
	tr := NewTree(DefaultRoot)
	deltas := insertAll(t, tr, "Rt_", "Rt_F", "Rt_FL", "Rt_FLF")

	wantKinds := []DeltaKind{Added, Added, Added, Added}
	for i, d := range deltas {
		if d.Kind != wantKinds[i] {
			t.Errorf("delta %d kind = %v, want %v", i, d.Kind, wantKinds[i])
		}
	}

	want := []Edge{
		{Parent: "Rt_", Child: "Rt_F"},
		{Parent: "Rt_F", Child: "Rt_FL"},
		{Parent: "Rt_FL", Child: "Rt_FLF"},
	}
	if diff := cmp.Diff(want, tr.Edges()); diff != "" {
		t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
	}
	if tr.Current() != "Rt_FLF" {
		t.Errorf("Current() = %q", tr.Current())
	}
	if tr.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tr.Len())
	}
}

func TestTree_DuplicateIsUnchanged(t *testing.T) {
	tr := NewTree(DefaultRoot)
	insertAll(t, tr, "Rt_", "Rt_F", "Rt_FL")

	d := tr.Insert("Rt_F")
	if d.Kind != Unchanged {
		t.Errorf("duplicate kind = %v, want unchanged", d.Kind)
	}
	if len(tr.Edges()) != 2 {
		t.Errorf("duplicate should not add edges, got %d", len(tr.Edges()))
	}
	if tr.Current() != "Rt_F" {
		t.Errorf("duplicate should still move current, got %q", tr.Current())
	}
}

func TestTree_ObservationWithoutNode(t *testing.T) {
	tr := NewTree(DefaultRoot)
	d := tr.Ingest(Observation{Ways: AllOpen()})
	if d.Kind != Unchanged || tr.Len() != 0 {
		t.Errorf("node-less observation changed tree: %v, len %d", d.Kind, tr.Len())
	}
}

func TestTree_RejectsMalformedID(t *testing.T) {
	tr := NewTree(DefaultRoot)
	d := tr.Insert("Rt_FQ")
	if d.Kind != Rejected {
		t.Fatalf("kind = %v, want rejected", d.Kind)
	}
	var se *StructuralError
	if !errors.As(d.Err, &se) {
		t.Errorf("err = %v, want *StructuralError", d.Err)
	}
	if tr.Len() != 0 {
		t.Error("rejected id should not be recorded")
	}
}

func TestTree_OrphanLinkedWhenParentArrives(t *testing.T) {
	tr := NewTree(DefaultRoot)
	insertAll(t, tr, "Rt_", "Rt_F")

	d := tr.Insert("Rt_FLR")
	if d.Kind != Orphan {
		t.Fatalf("kind = %v, want orphan", d.Kind)
	}
	var se *StructuralError
	if !errors.As(d.Err, &se) {
		t.Errorf("orphan err = %v, want *StructuralError", d.Err)
	}
	if diff := cmp.Diff([]string{"Rt_FLR"}, tr.Orphans()); diff != "" {
		t.Errorf("Orphans() mismatch (-want +got):\n%s", diff)
	}
	if !tr.Contains("Rt_FLR") {
		t.Error("orphan should still be recorded")
	}

	d = tr.Insert("Rt_FL")
	if d.Kind != Added {
		t.Fatalf("parent kind = %v, want added", d.Kind)
	}
	if len(d.Linked) != 1 || d.Linked[0].String() != "Rt_FLR" {
		t.Errorf("Linked = %v", d.Linked)
	}
	if len(tr.Orphans()) != 0 {
		t.Errorf("orphans left: %v", tr.Orphans())
	}

	want := []Edge{
		{Parent: "Rt_", Child: "Rt_F"},
		{Parent: "Rt_F", Child: "Rt_FL"},
		{Parent: "Rt_FL", Child: "Rt_FLR"},
	}
	if diff := cmp.Diff(want, tr.Edges()); diff != "" {
		t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
	}
}

func TestTree_RootIsNotImplicit(t *testing.T) {
	tr := NewTree(DefaultRoot)
	d := tr.Insert("Rt_F")
	if d.Kind != Orphan {
		t.Errorf("child before root kind = %v, want orphan", d.Kind)
	}
	if tr.Contains("Rt_") {
		t.Error("root should not be created implicitly")
	}
	d = tr.Insert("Rt_")
	if len(d.Linked) != 1 {
		t.Errorf("root should adopt waiting child, linked %v", d.Linked)
	}
}

func TestTree_ChildrenBuckets(t *testing.T) {
	tr := NewTree(DefaultRoot)
	insertAll(t, tr, "Rt_", "Rt_R", "Rt_F", "Rt_L")

	b := tr.Children("Rt_")
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	if len(b.Left) != 1 || b.Left[0].String() != "Rt_L" {
		t.Errorf("Left = %v", b.Left)
	}
	if len(b.Forward) != 1 || b.Forward[0].String() != "Rt_F" {
		t.Errorf("Forward = %v", b.Forward)
	}
	if len(b.Right) != 1 || b.Right[0].String() != "Rt_R" {
		t.Errorf("Right = %v", b.Right)
	}
	if tr.Children("Rt_F").Len() != 0 {
		t.Error("leaf should have no children")
	}
}

func TestTree_SnapshotIsCopy(t *testing.T) {
	tr := NewTree(DefaultRoot)
	insertAll(t, tr, "Rt_", "Rt_F")

	snap := tr.Snapshot()
	tr.Insert("Rt_FF")

	want := TreeSnapshot{
		Root:    "Rt_",
		Nodes:   []string{"Rt_", "Rt_F"},
		Edges:   []Edge{{Parent: "Rt_", Child: "Rt_F"}},
		Current: "Rt_F",
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestTree_CustomRoot(t *testing.T) {
	tr := NewTree("S:")
	insertAll(t, tr, "S:", "S:F")
	if tr.Root().String() != "S:" || len(tr.Edges()) != 1 {
		t.Errorf("custom root tree: root %q edges %v", tr.Root(), tr.Edges())
	}
	if d := tr.Insert("Rt_F"); d.Kind != Rejected {
		t.Errorf("foreign root kind = %v, want rejected", d.Kind)
	}
}
