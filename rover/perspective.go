package rover

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// calibrationTolerance is how far, in top-down pixels, a fitted homography
// may place a calibration point from its target.
const calibrationTolerance = 1e-3

// Perspective maps camera pixels onto a top-down raster using a planar
// homography fitted to four calibration point pairs.
type Perspective struct {
	Width  int
	Height int

	forward [9]float64 // camera -> top-down
	inverse [9]float64 // top-down -> camera
}

// NewPerspective solves the homography that takes each src point to the
// matching dst point. The warped raster has the given width and height.
// Returns ErrDegenerateProjection when the quadrilaterals are collinear or
// otherwise produce a non-invertible mapping.
func NewPerspective(src, dst [4]Point, width, height int) (*Perspective, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: raster size %dx%d", ErrDegenerateProjection, width, height)
	}

	// Eight unknowns h0..h7 with h8 fixed to 1:
	//   u = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
	//   v = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateProjection, err)
	}

	p := &Perspective{Width: width, Height: height}
	for i := 0; i < 8; i++ {
		p.forward[i] = h.AtVec(i)
	}
	p.forward[8] = 1

	fwd := mat.NewDense(3, 3, p.forward[:])
	var inv mat.Dense
	if err := inv.Inverse(fwd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateProjection, err)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			v := inv.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrDegenerateProjection
			}
			p.inverse[r*3+c] = v
		}
	}

	// A nearly singular system solves without error but misses the points.
	for i := range src {
		got, ok := p.Project(src[i])
		if !ok || Distance(got, dst[i]) > calibrationTolerance {
			return nil, fmt.Errorf("%w: calibration point %d maps to %v, want %v",
				ErrDegenerateProjection, i, got, dst[i])
		}
	}
	return p, nil
}

// Project maps a camera pixel to top-down coordinates. ok is false when the
// point lies on the horizon line of the mapping.
func (p *Perspective) Project(pt Point) (Point, bool) {
	return applyHomography(p.forward, pt)
}

// Unproject maps a top-down coordinate back to the camera image.
func (p *Perspective) Unproject(pt Point) (Point, bool) {
	return applyHomography(p.inverse, pt)
}

func applyHomography(h [9]float64, pt Point) (Point, bool) {
	w := h[6]*pt.X + h[7]*pt.Y + h[8]
	if math.Abs(w) < 1e-12 {
		return Point{}, false
	}
	return Point{
		X: (h[0]*pt.X + h[1]*pt.Y + h[2]) / w,
		Y: (h[3]*pt.X + h[4]*pt.Y + h[5]) / w,
	}, true
}

// Warp produces the top-down view of a frame using nearest-neighbour
// sampling. The returned mask marks the output pixels that received camera
// data; pixels that map outside the camera image stay black and unset.
func (p *Perspective) Warp(f *Frame) (*Frame, *Mask) {
	out := NewFrame(p.Width, p.Height)
	valid := NewMask(p.Width, p.Height)

	for row := 0; row < p.Height; row++ {
		for col := 0; col < p.Width; col++ {
			src, ok := p.Unproject(Point{X: float64(col), Y: float64(row)})
			if !ok {
				continue
			}
			sx := int(math.Round(src.X))
			sy := int(math.Round(src.Y))
			if sx < 0 || sy < 0 || sx >= f.Width || sy >= f.Height {
				continue
			}
			r, g, b := f.RGB(sx, sy)
			out.SetRGB(col, row, r, g, b)
			valid.Set(col, row, true)
		}
	}
	return out, valid
}
