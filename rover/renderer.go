package rover

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	colorBackground = color.RGBA{0, 0, 0, 255}
	colorObstacle   = color.RGBA{220, 40, 40, 255}
	colorNavigable  = color.RGBA{40, 90, 230, 255}
	colorTarget     = color.RGBA{255, 215, 0, 255}
	colorCollected  = color.RGBA{120, 120, 120, 255}
	colorTrail      = color.RGBA{255, 255, 255, 255}
	colorStart      = color.RGBA{0, 220, 220, 255}
	colorRover      = color.RGBA{255, 0, 255, 255}
	colorLegend     = color.RGBA{255, 255, 255, 255}
)

// MapView is everything drawn on a world map image.
type MapView struct {
	World         *WorldMap
	Samples       []Sample
	Pose          *Pose
	Start         *Point
	Trail         []Point
	MetersPerCell float64
	Total         int
}

// cellColor picks the display color of one cell. Target evidence wins,
// then whichever of navigable and obstacle has more votes. Intensity grows
// with the vote count.
func cellColor(e CellEvidence) color.RGBA {
	if e.Target > 0 {
		return colorTarget
	}
	base, votes := colorNavigable, e.Navigable
	if e.Obstacle > e.Navigable {
		base, votes = colorObstacle, e.Obstacle
	}
	k := math.Min(1, 0.35+float64(votes)/20)
	return color.RGBA{
		R: uint8(float64(base.R) * k),
		G: uint8(float64(base.G) * k),
		B: uint8(float64(base.B) * k),
		A: 255,
	}
}

// RenderWorldMap draws the evidence grid north-up at scale pixels per cell,
// with the trail, samples, start and rover overlaid.
func RenderWorldMap(v MapView, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	size := v.World.Size()
	mpc := v.MetersPerCell
	if mpc <= 0 {
		mpc = 1
	}

	grid := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.Draw(grid, grid.Bounds(), image.NewUniform(colorBackground), image.Point{}, xdraw.Src)
	v.World.Cells(func(wp WorldPoint, e CellEvidence) {
		grid.SetRGBA(wp.Col, size-1-wp.Row, cellColor(e))
	})

	img := image.NewRGBA(image.Rect(0, 0, size*scale, size*scale))
	xdraw.NearestNeighbor.Scale(img, img.Bounds(), grid, grid.Bounds(), xdraw.Src, nil)

	toPixel := func(p Point) (int, int) {
		x := p.X / mpc * float64(scale)
		y := (float64(size) - p.Y/mpc) * float64(scale)
		return int(math.Round(x)), int(math.Round(y))
	}

	for _, p := range v.Trail {
		x, y := toPixel(p)
		drawCircle(img, x, y, max(1, scale/3), colorTrail)
	}
	if v.Start != nil {
		x, y := toPixel(*v.Start)
		drawSquare(img, x, y, 2*scale+1, colorStart)
	}
	for _, s := range v.Samples {
		c := colorTarget
		if s.Collected {
			c = colorCollected
		}
		x, y := toPixel(s.Position())
		drawCircle(img, x, y, scale+1, c)
	}
	if v.Pose != nil {
		x, y := toPixel(v.Pose.Position())
		drawHeading(img, x, y, 3*scale, v.Pose.Yaw, colorRover)
	}

	collected := 0
	for _, s := range v.Samples {
		if s.Collected {
			collected++
		}
	}
	drawText(img, 4, 14, fmt.Sprintf("samples %d/%d collected %d", len(v.Samples), v.Total, collected), colorLegend)
	return img
}

// RenderVision draws the latest top-down masks at scale pixels per mask
// pixel: obstacle red, target green, navigable blue.
func RenderVision(m Masks, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	var w, h int
	if m.Navigable != nil {
		w, h = m.Navigable.Width, m.Navigable.Height
	}

	raw := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c color.RGBA
			c.A = 255
			if m.Obstacle.At(x, y) {
				c.R = 255
			}
			if m.Target.At(x, y) {
				c.G = 255
			}
			if m.Navigable.At(x, y) {
				c.B = 255
			}
			raw.SetRGBA(x, y, c)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	xdraw.NearestNeighbor.Scale(img, img.Bounds(), raw, raw.Bounds(), xdraw.Src, nil)
	return img
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}

func inImage(img *image.RGBA, x, y int) bool {
	return image.Pt(x, y).In(img.Bounds())
}

func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius && inImage(img, cx+dx, cy+dy) {
				img.SetRGBA(cx+dx, cy+dy, c)
			}
		}
	}
}

func drawSquare(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	half := size / 2
	for dy := -half; dy <= half; dy++ {
		for dx := -half; dx <= half; dx++ {
			if inImage(img, cx+dx, cy+dy) {
				img.SetRGBA(cx+dx, cy+dy, c)
			}
		}
	}
}

// drawHeading draws a dot with a line pointing along yaw. Yaw is measured
// counter-clockwise from +x, so image y is negated.
func drawHeading(img *image.RGBA, cx, cy, length int, yawDeg float64, c color.RGBA) {
	drawCircle(img, cx, cy, max(2, length/3), c)
	rad := yawDeg * math.Pi / 180
	for i := 0; i <= length; i++ {
		x := cx + int(math.Round(float64(i)*math.Cos(rad)))
		y := cy - int(math.Round(float64(i)*math.Sin(rad)))
		if inImage(img, x, y) {
			img.SetRGBA(x, y, c)
		}
	}
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
