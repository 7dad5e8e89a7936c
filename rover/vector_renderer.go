package rover

import (
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// VectorRenderer draws a MapView with tdewolff/canvas. Canvas y points up,
// so world coordinates map onto it without flipping.
type VectorRenderer struct {
	View        MapView
	CellSize    float64           // canvas units (mm) per grid cell
	GridSpacing int               // cells between grid lines; 0 disables
	Resolution  canvas.Resolution // PNG output resolution
}

// NewVectorRenderer creates a renderer with default sizing.
func NewVectorRenderer(v MapView) *VectorRenderer {
	return &VectorRenderer{
		View:        v,
		CellSize:    2,
		GridSpacing: 20,
		Resolution:  canvas.DPI(96),
	}
}

type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

func (r *VectorRenderer) extent() float64 {
	return float64(r.View.World.Size()) * r.CellSize
}

// RenderToSVG writes the map as SVG.
func (r *VectorRenderer) RenderToSVG(w io.Writer) error {
	side := r.extent()
	out := svg.New(w, side, side, nil)
	r.render(out)
	return out.Close()
}

// RenderToPNG rasterizes the map and writes it as PNG.
func (r *VectorRenderer) RenderToPNG(w io.Writer) error {
	side := r.extent()
	rast := rasterizer.New(side, side, r.Resolution, canvas.DefaultColorSpace)
	r.render(rast)
	return png.Encode(w, rast)
}

// cellClass buckets evidence into the three drawn layers; zero is unseen.
func cellClass(e CellEvidence) int {
	switch {
	case e.Empty():
		return 0
	case e.Target > 0:
		return 3
	case e.Obstacle > e.Navigable:
		return 2
	default:
		return 1
	}
}

// rowRuns collapses each grid row into maximal runs of one class.
func rowRuns(m *WorldMap) map[int][]cellRun {
	size := m.Size()
	classes := make([]int, size*size)
	m.Cells(func(wp WorldPoint, e CellEvidence) {
		classes[wp.Row*size+wp.Col] = cellClass(e)
	})

	runs := make(map[int][]cellRun)
	for row := 0; row < size; row++ {
		start := 0
		for col := 1; col <= size; col++ {
			prev := classes[row*size+start]
			if col < size && classes[row*size+col] == prev {
				continue
			}
			if prev != 0 {
				runs[prev] = append(runs[prev], cellRun{row: row, col: start, length: col - start})
			}
			start = col
		}
	}
	return runs
}

type cellRun struct {
	row, col, length int
}

func fillStyle(c canvas.Paint) canvas.Style {
	s := canvas.DefaultStyle
	s.Fill = c
	s.Stroke = canvas.Paint{Color: canvas.Transparent}
	return s
}

func (r *VectorRenderer) render(out canvasRenderer) {
	side := r.extent()
	cs := r.CellSize
	mpc := r.View.MetersPerCell
	if mpc <= 0 {
		mpc = 1
	}
	toCanvas := func(p Point) (float64, float64) {
		return p.X / mpc * cs, p.Y / mpc * cs
	}

	out.RenderPath(canvas.Rectangle(side, side), fillStyle(canvas.Paint{Color: canvas.Black}), canvas.Identity)

	layerColors := map[int]canvas.Paint{
		1: {Color: colorNavigable},
		2: {Color: colorObstacle},
		3: {Color: colorTarget},
	}
	runs := rowRuns(r.View.World)
	for class := 1; class <= 3; class++ {
		style := fillStyle(layerColors[class])
		for _, run := range runs[class] {
			rect := canvas.Rectangle(float64(run.length)*cs, cs).
				Translate(float64(run.col)*cs, float64(run.row)*cs)
			out.RenderPath(rect, style, canvas.Identity)
		}
	}

	if r.GridSpacing > 0 {
		grid := canvas.DefaultStyle
		grid.Fill = canvas.Paint{Color: canvas.Transparent}
		grid.Stroke = canvas.Paint{Color: canvas.Gray}
		grid.StrokeWidth = cs / 8
		grid.Dashes = []float64{cs, cs}
		for i := r.GridSpacing; i < r.View.World.Size(); i += r.GridSpacing {
			at := float64(i) * cs
			v := &canvas.Path{}
			v.MoveTo(at, 0)
			v.LineTo(at, side)
			out.RenderPath(v, grid, canvas.Identity)
			h := &canvas.Path{}
			h.MoveTo(0, at)
			h.LineTo(side, at)
			out.RenderPath(h, grid, canvas.Identity)
		}
	}

	if len(r.View.Trail) > 1 {
		trail := canvas.DefaultStyle
		trail.Fill = canvas.Paint{Color: canvas.Transparent}
		trail.Stroke = canvas.Paint{Color: colorTrail}
		trail.StrokeWidth = cs / 3
		p := &canvas.Path{}
		for i, pt := range r.View.Trail {
			x, y := toCanvas(pt)
			if i == 0 {
				p.MoveTo(x, y)
			} else {
				p.LineTo(x, y)
			}
		}
		out.RenderPath(p, trail, canvas.Identity)
	}

	if r.View.Start != nil {
		x, y := toCanvas(*r.View.Start)
		out.RenderPath(canvas.Rectangle(2*cs, 2*cs).Translate(x-cs, y-cs), fillStyle(canvas.Paint{Color: colorStart}), canvas.Identity)
	}

	for _, s := range r.View.Samples {
		style := fillStyle(canvas.Paint{Color: colorTarget})
		if s.Collected {
			style.Fill = canvas.Paint{Color: colorCollected}
		}
		style.Stroke = canvas.Paint{Color: canvas.White}
		style.StrokeWidth = cs / 4
		x, y := toCanvas(s.Position())
		out.RenderPath(canvas.Circle(cs).Translate(x, y), style, canvas.Identity)
	}

	if r.View.Pose != nil {
		x, y := toCanvas(r.View.Pose.Position())
		arrow := &canvas.Path{}
		arrow.MoveTo(2*cs, 0)
		arrow.LineTo(-cs, cs)
		arrow.LineTo(-cs, -cs)
		arrow.Close()
		m := canvas.Identity.Translate(x, y).Rotate(r.View.Pose.Yaw)
		out.RenderPath(arrow, fillStyle(canvas.Paint{Color: colorRover}), m)
	}
}
