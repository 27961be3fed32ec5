package maze

import "sort"

// TracedCell is where a node's step sequence ends on an unbounded board
type TracedCell struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label"`
	Start bool   `json:"start,omitempty"`
}

// Labyrinth is the whole explored maze replayed from the origin
type Labyrinth struct {
	Cells          []TracedCell `json:"cells"`
	MinX, MinY     int          `json:"-"`
	MaxX, MaxY     int          `json:"-"`
	StartDirection Direction    `json:"startDirection"`
}

// TraceLabyrinth replays every node id from (0, 0) facing start. F advances
// one cell; L and R turn and then advance. Shallower nodes are traced first,
// so a deeper node landing on the same cell takes its label.
func TraceLabyrinth(snap TreeSnapshot, start Direction) Labyrinth {
	lab := Labyrinth{StartDirection: start}
	byCell := map[[2]int]int{{0, 0}: 0}
	lab.Cells = append(lab.Cells, TracedCell{Label: "Start", Start: true})

	nodes := make([]string, len(snap.Nodes))
	copy(nodes, snap.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return len(nodes[i]) < len(nodes[j]) })

	root := snap.Root
	for _, raw := range nodes {
		if raw == root || len(raw) < len(root) {
			continue
		}
		steps := raw[len(root):]
		x, y, dir := 0, 0, start
		for i := 0; i < len(steps); i++ {
			switch Step(steps[i]) {
			case StepLeft:
				dir = dir.Left()
			case StepRight:
				dir = dir.Right()
			}
			dx, dy := dir.Delta()
			x, y = x+dx, y+dy
		}
		key := [2]int{x, y}
		if idx, ok := byCell[key]; ok {
			lab.Cells[idx] = TracedCell{X: x, Y: y, Label: steps, Start: lab.Cells[idx].Start}
			continue
		}
		byCell[key] = len(lab.Cells)
		lab.Cells = append(lab.Cells, TracedCell{X: x, Y: y, Label: steps})
	}

	for _, c := range lab.Cells {
		lab.MinX, lab.MaxX = min(lab.MinX, c.X), max(lab.MaxX, c.X)
		lab.MinY, lab.MaxY = min(lab.MinY, c.Y), max(lab.MaxY, c.Y)
	}
	return lab
}
