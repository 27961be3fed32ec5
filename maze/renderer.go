package maze

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CellColors maps each cell state to its fill
type CellColors map[CellState]color.RGBA

// DefaultCellColors returns the grid palette
func DefaultCellColors() CellColors {
	return CellColors{
		Unvisited: {255, 255, 255, 255}, // White
		Visited:   {220, 20, 60, 255},   // Red
		Available: {50, 205, 50, 255},   // Green
		Current:   {30, 90, 255, 255},   // Blue
	}
}

// GridRenderer draws a NavState as a raster image
type GridRenderer struct {
	CellSize int
	Padding  int
	Colors   CellColors
	Legend   bool
}

// NewGridRenderer creates a renderer with default settings
func NewGridRenderer() *GridRenderer {
	return &GridRenderer{
		CellSize: 48,
		Padding:  20,
		Colors:   DefaultCellColors(),
		Legend:   true,
	}
}

const legendHeight = 40

// Render draws every cell, the grid lines, the facing arrow and the legend
func (r *GridRenderer) Render(s NavState) *image.RGBA {
	size := s.Grid.Size
	side := size*r.CellSize + 2*r.Padding
	height := side
	if r.Legend {
		height += legendHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, side, height))
	fillRect(img, img.Bounds(), color.RGBA{245, 245, 245, 255})

	lineColor := color.RGBA{40, 40, 40, 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			x0 := r.Padding + x*r.CellSize
			y0 := r.Padding + y*r.CellSize
			cell := image.Rect(x0, y0, x0+r.CellSize, y0+r.CellSize)
			fillRect(img, cell, r.Colors[s.Grid.At(x, y)])
			strokeRect(img, cell, lineColor)
		}
	}

	cx := r.Padding + s.Pose.X*r.CellSize + r.CellSize/2
	cy := r.Padding + s.Pose.Y*r.CellSize + r.CellSize/2
	drawArrow(img, cx, cy, r.CellSize*2/5, s.Pose.Dir, color.RGBA{255, 255, 255, 255})

	if r.Legend {
		r.drawLegend(img, side, s)
	}
	return img
}

// drawLegend adds state swatches and the pose below the grid
func (r *GridRenderer) drawLegend(img *image.RGBA, top int, s NavState) {
	x := r.Padding
	y := top + 4
	for _, st := range []CellState{Unvisited, Visited, Available, Current} {
		sw := image.Rect(x, y, x+12, y+12)
		fillRect(img, sw, r.Colors[st])
		strokeRect(img, sw, color.RGBA{0, 0, 0, 255})
		drawText(img, x+16, y+11, st.String(), color.RGBA{0, 0, 0, 255})
		x += 16 + len(st.String())*7 + 12
	}
	drawText(img, r.Padding, y+30, fmt.Sprintf("pose %s", s.Pose), color.RGBA{0, 0, 0, 255})
}

// EncodePNG renders s and writes it as PNG
func (r *GridRenderer) EncodePNG(w io.Writer, s NavState) error {
	return png.Encode(w, r.Render(s))
}

// SavePNG renders s to a file
func (r *GridRenderer) SavePNG(path string, s NavState) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return r.EncodePNG(f, s)
}

func fillRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	rect = rect.Intersect(img.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func strokeRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	b := img.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(b) {
			img.SetRGBA(x, y, c)
		}
	}
	for x := rect.Min.X; x < rect.Max.X; x++ {
		set(x, rect.Min.Y)
		set(x, rect.Max.Y-1)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		set(rect.Min.X, y)
		set(rect.Max.X-1, y)
	}
}

// drawArrow draws a filled triangle pointing along dir
func drawArrow(img *image.RGBA, cx, cy, size int, dir Direction, c color.RGBA) {
	dx, dy := dir.Delta()
	angle := math.Atan2(float64(dy), float64(dx))
	tip := [2]float64{float64(size), 0}
	left := [2]float64{-float64(size) * 0.6, -float64(size) * 0.6}
	right := [2]float64{-float64(size) * 0.6, float64(size) * 0.6}
	rot := func(p [2]float64) [2]float64 {
		cos, sin := math.Cos(angle), math.Sin(angle)
		return [2]float64{float64(cx) + p[0]*cos - p[1]*sin, float64(cy) + p[0]*sin + p[1]*cos}
	}
	a, b, d := rot(tip), rot(left), rot(right)

	minX := int(math.Floor(math.Min(a[0], math.Min(b[0], d[0]))))
	maxX := int(math.Ceil(math.Max(a[0], math.Max(b[0], d[0]))))
	minY := int(math.Floor(math.Min(a[1], math.Min(b[1], d[1]))))
	maxY := int(math.Ceil(math.Max(a[1], math.Max(b[1], d[1]))))
	edge := func(p, q [2]float64, x, y float64) float64 {
		return (q[0]-p[0])*(y-p[1]) - (q[1]-p[1])*(x-p[0])
	}
	bounds := img.Bounds()
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			e1, e2, e3 := edge(a, b, px, py), edge(b, d, px, py), edge(d, a, px, py)
			inside := (e1 >= 0 && e2 >= 0 && e3 >= 0) || (e1 <= 0 && e2 <= 0 && e3 <= 0)
			if inside && image.Pt(x, y).In(bounds) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// TreeRenderer draws the exploration tree as a labelled raster image
type TreeRenderer struct {
	Width      int
	Spacing    int
	NodeRadius int
}

// NewTreeRenderer creates a renderer with default settings
func NewTreeRenderer() *TreeRenderer {
	return &TreeRenderer{Width: 800, Spacing: 100, NodeRadius: 15}
}

// Render lays the tree out and labels each node with its step suffix
func (r *TreeRenderer) Render(t TreeSnapshot) *image.RGBA {
	pos := LayoutTree(t, float64(r.Width), float64(r.Spacing))
	height := r.Spacing
	for _, p := range pos {
		height = max(height, int(p.Y)+r.Spacing/2)
	}
	img := image.NewRGBA(image.Rect(0, 0, r.Width, height))
	fillRect(img, img.Bounds(), color.RGBA{255, 255, 255, 255})

	black := color.RGBA{0, 0, 0, 255}
	for _, e := range t.Edges {
		a, okA := pos[e.Parent]
		b, okB := pos[e.Child]
		if okA && okB {
			drawLine(img, a.X, a.Y, b.X, b.Y, black)
		}
	}
	for _, id := range t.Nodes {
		p, ok := pos[id]
		if !ok {
			continue
		}
		fill := color.RGBA{173, 216, 230, 255}
		if id == t.Current {
			fill = color.RGBA{0, 128, 0, 255}
		}
		drawCircle(img, int(p.X), int(p.Y), r.NodeRadius+1, black)
		drawCircle(img, int(p.X), int(p.Y), r.NodeRadius, fill)

		label := nodeLabel(id, t.Root)
		drawText(img, int(p.X)-len(label)*7/2, int(p.Y)+4, label, black)
	}
	return img
}

// EncodePNG renders t and writes it as PNG
func (r *TreeRenderer) EncodePNG(w io.Writer, t TreeSnapshot) error {
	return png.Encode(w, r.Render(t))
}

// nodeLabel is the step suffix, or the root marker without its underscore
func nodeLabel(id, root string) string {
	if id == root {
		if len(root) > 1 && root[len(root)-1] == '_' {
			return root[:len(root)-1]
		}
		return root
	}
	if len(id) > len(root) {
		return id[len(root):]
	}
	return id
}

// drawCircle draws a filled circle
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				x, y := cx+dx, cy+dy
				if image.Pt(x, y).In(img.Bounds()) {
					img.SetRGBA(x, y, c)
				}
			}
		}
	}
}

// drawLine draws a two-pixel line between two points
func drawLine(img *image.RGBA, x1, y1, x2, y2 float64, c color.RGBA) {
	steps := int(math.Max(math.Abs(x2-x1), math.Abs(y2-y1)))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(x1 + t*(x2-x1))
		y := int(y1 + t*(y2-y1))
		for _, p := range []image.Point{{x, y}, {x + 1, y}, {x, y + 1}} {
			if p.In(img.Bounds()) {
				img.SetRGBA(p.X, p.Y, c)
			}
		}
	}
}
