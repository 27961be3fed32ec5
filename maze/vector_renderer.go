package maze

import (
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// View names accepted by the vector renderer
const (
	ViewTree      = "tree"
	ViewGrid      = "grid"
	ViewLabyrinth = "labyrinth"
)

// VectorRenderer draws the tree, grid and labyrinth views as vector graphics
type VectorRenderer struct {
	TreeWidth   float64 // Horizontal room given to the root level
	TreeSpacing float64 // Vertical distance between levels
	NodeRadius  float64
	CellSize    float64
	Padding     float64
	Colors      CellColors
	Resolution  canvas.Resolution // Resolution for PNG output
}

// NewVectorRenderer creates a vector renderer with default settings
func NewVectorRenderer() *VectorRenderer {
	return &VectorRenderer{
		TreeWidth:   800,
		TreeSpacing: 100,
		NodeRadius:  15,
		CellSize:    40,
		Padding:     20,
		Colors:      DefaultCellColors(),
		Resolution:  canvas.DPI(96),
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// scene draws into a renderer of the given size
type scene struct {
	width, height float64
	draw          func(canvasRenderer)
}

func (sc scene) svg(w io.Writer) error {
	r := svg.New(w, sc.width, sc.height, nil)
	sc.draw(r)
	return r.Close()
}

func (sc scene) png(w io.Writer, res canvas.Resolution) error {
	rast := rasterizer.New(sc.width, sc.height, res, canvas.DefaultColorSpace)
	sc.draw(rast)
	return png.Encode(w, rast)
}

// Render writes view in format ("svg" or "png")
func (r *VectorRenderer) Render(w io.Writer, view, format string, snap Snapshot) error {
	var sc scene
	switch view {
	case ViewTree:
		sc = r.treeScene(snap.Tree)
	case ViewGrid:
		sc = r.gridScene(snap.Nav)
	case ViewLabyrinth:
		sc = r.labyrinthScene(TraceLabyrinth(snap.Tree, Down))
	default:
		return fmt.Errorf("unknown view %q", view)
	}
	switch format {
	case "svg":
		return sc.svg(w)
	case "png":
		return sc.png(w, r.Resolution)
	}
	return fmt.Errorf("unknown format %q", format)
}

// RenderTreeSVG writes the exploration tree as SVG
func (r *VectorRenderer) RenderTreeSVG(w io.Writer, t TreeSnapshot) error {
	return r.treeScene(t).svg(w)
}

// RenderGridSVG writes the grid as SVG
func (r *VectorRenderer) RenderGridSVG(w io.Writer, s NavState) error {
	return r.gridScene(s).svg(w)
}

// RenderLabyrinthSVG writes the traced labyrinth as SVG
func (r *VectorRenderer) RenderLabyrinthSVG(w io.Writer, lab Labyrinth) error {
	return r.labyrinthScene(lab).svg(w)
}

func fillStyle(c color.RGBA) canvas.Style {
	st := canvas.DefaultStyle
	st.Fill = canvas.Paint{Color: c}
	st.Stroke = canvas.Paint{Color: canvas.Black}
	st.StrokeWidth = 1.0
	return st
}

func background(renderer canvasRenderer, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)
}

var (
	nodeCurrent = color.RGBA{0, 128, 0, 255}     // Green
	nodeVisited = color.RGBA{173, 216, 230, 255} // Light blue
	nodeOrphan  = color.RGBA{255, 165, 0, 255}   // Orange
)

// treeScene draws edges shortened to the node rims, then the nodes
func (r *VectorRenderer) treeScene(t TreeSnapshot) scene {
	pos := LayoutTree(t, r.TreeWidth, r.TreeSpacing)
	maxY := r.TreeSpacing
	for _, p := range pos {
		maxY = math.Max(maxY, p.Y)
	}
	width := r.TreeWidth
	height := maxY + r.TreeSpacing/2

	return scene{width: width, height: height, draw: func(renderer canvasRenderer) {
		background(renderer, width, height)

		edgeStyle := canvas.DefaultStyle
		edgeStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		edgeStyle.Stroke = canvas.Paint{Color: canvas.Black}
		edgeStyle.StrokeWidth = 2.0

		for _, e := range t.Edges {
			a, okA := pos[e.Parent]
			b, okB := pos[e.Child]
			if !okA || !okB {
				continue
			}
			x1, y1, x2, y2 := a.X, a.Y, b.X, b.Y
			dx, dy := x2-x1, y2-y1
			length := math.Hypot(dx, dy)
			if length > 2*r.NodeRadius {
				x1 += dx * r.NodeRadius / length
				y1 += dy * r.NodeRadius / length
				x2 -= dx * r.NodeRadius / length
				y2 -= dy * r.NodeRadius / length
			}
			p := &canvas.Path{}
			p.MoveTo(x1, height-y1)
			p.LineTo(x2, height-y2)
			renderer.RenderPath(p, edgeStyle, canvas.Identity)
		}

		orphans := make(map[string]bool, len(t.Orphans))
		for _, o := range t.Orphans {
			orphans[o] = true
		}
		for _, id := range t.Nodes {
			p, ok := pos[id]
			if !ok {
				continue
			}
			fill := nodeVisited
			switch {
			case id == t.Current:
				fill = nodeCurrent
			case orphans[id]:
				fill = nodeOrphan
			}
			circle := canvas.Circle(r.NodeRadius).Translate(p.X, height-p.Y)
			renderer.RenderPath(circle, fillStyle(fill), canvas.Identity)
		}
	}}
}

// gridScene draws the board with row 0 at the top, matching the raster view
func (r *VectorRenderer) gridScene(s NavState) scene {
	size := float64(s.Grid.Size)
	side := size*r.CellSize + 2*r.Padding

	return scene{width: side, height: side, draw: func(renderer canvasRenderer) {
		background(renderer, side, side)
		for y := 0; y < s.Grid.Size; y++ {
			for x := 0; x < s.Grid.Size; x++ {
				x0 := r.Padding + float64(x)*r.CellSize
				y0 := side - r.Padding - float64(y+1)*r.CellSize
				cell := canvas.Rectangle(r.CellSize, r.CellSize).Translate(x0, y0)
				renderer.RenderPath(cell, fillStyle(r.Colors[s.Grid.At(x, y)]), canvas.Identity)
			}
		}

		// facing arrow
		cx := r.Padding + (float64(s.Pose.X)+0.5)*r.CellSize
		cy := side - r.Padding - (float64(s.Pose.Y)+0.5)*r.CellSize
		dx, dy := s.Pose.Dir.Delta()
		fx, fy := float64(dx), -float64(dy)
		half := r.CellSize * 0.35
		arrow := &canvas.Path{}
		arrow.MoveTo(cx+fx*half, cy+fy*half)
		arrow.LineTo(cx-fx*half*0.6-fy*half*0.6, cy-fy*half*0.6+fx*half*0.6)
		arrow.LineTo(cx-fx*half*0.6+fy*half*0.6, cy-fy*half*0.6-fx*half*0.6)
		arrow.Close()
		arrowStyle := canvas.DefaultStyle
		arrowStyle.Fill = canvas.Paint{Color: canvas.White}
		arrowStyle.Stroke = canvas.Paint{Color: canvas.Transparent}
		renderer.RenderPath(arrow, arrowStyle, canvas.Identity)
	}}
}

var (
	labyrinthStart = color.RGBA{220, 20, 60, 255}  // Red
	labyrinthEmpty = color.RGBA{128, 128, 128, 255} // Gray
)

// labyrinthScene draws the traced labyrinth with one cell of padding all round
func (r *VectorRenderer) labyrinthScene(lab Labyrinth) scene {
	minX, maxX := lab.MinX-1, lab.MaxX+1
	minY, maxY := lab.MinY-1, lab.MaxY+1
	cols := float64(maxX - minX + 1)
	rows := float64(maxY - minY + 1)
	width := cols*r.CellSize + 2*r.Padding
	height := rows*r.CellSize + 2*r.Padding

	occupied := make(map[[2]int]TracedCell, len(lab.Cells))
	for _, c := range lab.Cells {
		occupied[[2]int{c.X, c.Y}] = c
	}

	return scene{width: width, height: height, draw: func(renderer canvasRenderer) {
		background(renderer, width, height)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				fill := labyrinthEmpty
				if c, ok := occupied[[2]int{x, y}]; ok {
					fill = nodeVisited
					if c.Start {
						fill = labyrinthStart
					}
				}
				x0 := r.Padding + float64(x-minX)*r.CellSize
				y0 := height - r.Padding - float64(y-minY+1)*r.CellSize
				cell := canvas.Rectangle(r.CellSize, r.CellSize).Translate(x0, y0)
				renderer.RenderPath(cell, fillStyle(fill), canvas.Identity)
			}
		}
	}}
}
