package maze

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestLayoutTree_SingleChildren(t *testing.T) {
	tr := NewTree(DefaultRoot)
	tr.Insert("Rt_")
	tr.Insert("Rt_F")
	tr.Insert("Rt_FL")
	tr.Insert("Rt_FR")

	pos := tr.Layout(800, 100)
	if len(pos) != 4 {
		t.Fatalf("positioned %d nodes, want 4", len(pos))
	}

	root := pos["Rt_"]
	if !near(root.X, 400) || !near(root.Y, 50) {
		t.Errorf("root at %+v, want (400, 50)", root)
	}
	f := pos["Rt_F"]
	if !near(f.X, 400) || !near(f.Y, 150) {
		t.Errorf("forward child at %+v, want directly below root", f)
	}

	// Rt_F has width 480, two children: section 240, spread 80
	l, r := pos["Rt_FL"], pos["Rt_FR"]
	if !near(l.X, 320) || !near(r.X, 480) {
		t.Errorf("left/right at %.1f/%.1f, want 320/480", l.X, r.X)
	}
	if !near(l.Y, 250) || !near(r.Y, 250) {
		t.Errorf("grandchildren should share a level, got %.1f/%.1f", l.Y, r.Y)
	}
}

func TestLayoutTree_LeftOfForwardOfRight(t *testing.T) {
	tr := NewTree(DefaultRoot)
	for _, id := range []string{"Rt_", "Rt_R", "Rt_F", "Rt_L"} {
		tr.Insert(id)
	}
	pos := tr.Layout(600, 80)
	if !(pos["Rt_L"].X < pos["Rt_F"].X && pos["Rt_F"].X < pos["Rt_R"].X) {
		t.Errorf("children not ordered left < forward < right: %+v", pos)
	}
}

func TestLayoutTree_SkipsUnreachable(t *testing.T) {
	tr := NewTree(DefaultRoot)
	tr.Insert("Rt_")
	tr.Insert("Rt_LL")

	pos := tr.Layout(800, 100)
	if _, ok := pos["Rt_LL"]; ok {
		t.Error("orphan should not be positioned")
	}
	if len(LayoutTree(TreeSnapshot{Root: "Rt_"}, 800, 100)) != 0 {
		t.Error("empty tree should have no positions")
	}
}
