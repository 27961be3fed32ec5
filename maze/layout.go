package maze

// LayoutPoint is a node's position in tree-view coordinates
type LayoutPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// levelShrink is the width factor applied per tree level
const levelShrink = 0.6

// Layout positions every node reachable from the root
func (t *Tree) Layout(width, spacing float64) map[string]LayoutPoint {
	return LayoutTree(t.Snapshot(), width, spacing)
}

// LayoutTree places the root at the top centre and walks breadth first.
// Forward children sit directly below their parent, left children spread to
// the left and right children to the right, and the usable width shrinks by
// levelShrink at each level. Nodes not reachable from the root are omitted.
func LayoutTree(snap TreeSnapshot, width, spacing float64) map[string]LayoutPoint {
	pos := make(map[string]LayoutPoint)
	if len(snap.Nodes) == 0 {
		return pos
	}
	rootKnown := false
	for _, n := range snap.Nodes {
		if n == snap.Root {
			rootKnown = true
			break
		}
	}
	if !rootKnown {
		return pos
	}

	children := make(map[string][]string)
	for _, e := range snap.Edges {
		children[e.Parent] = append(children[e.Parent], e.Child)
	}

	type item struct {
		id    string
		x, y  float64
		width float64
	}
	root := item{id: snap.Root, x: width / 2, y: spacing / 2, width: width}
	pos[root.id] = LayoutPoint{X: root.x, Y: root.y}
	queue := []item{root}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		kids := children[cur.id]
		if len(kids) == 0 {
			continue
		}

		var fCount, lCount, rCount int
		for _, k := range kids {
			switch lastStep(k) {
			case StepLeft:
				lCount++
			case StepRight:
				rCount++
			default:
				fCount++
			}
		}
		total := max(1, fCount+lCount+rCount)
		section := cur.width / float64(total)
		spread := cur.width / 6
		lIndex, rIndex := 0, lCount+fCount

		childY := cur.y + spacing
		for _, k := range kids {
			x := cur.x
			switch lastStep(k) {
			case StepLeft:
				x = cur.x - spread + float64(lIndex)*section
				lIndex++
			case StepRight:
				x = cur.x + spread - float64(total-rIndex-1)*section
				rIndex++
			}
			pos[k] = LayoutPoint{X: x, Y: childY}
			queue = append(queue, item{id: k, x: x, y: childY, width: cur.width * levelShrink})
		}
	}
	return pos
}

func lastStep(id string) Step {
	if id == "" {
		return 0
	}
	return Step(id[len(id)-1])
}
