package rover

import (
	"image"
	"image/color"
)

// Point represents a continuous 2D coordinate in meters. In the rover-centric
// frame X points forward and Y points left; in the world frame X and Y are the
// simulator's global axes.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// PolarPoint is a rover-centric point expressed as distance (meters) and
// angle (radians, (-π, π], 0 = straight ahead, positive = left).
type PolarPoint struct {
	Dist  float64 `json:"dist"`
	Angle float64 `json:"angle"`
}

// WorldPoint is an integer cell of the square world grid. Row follows the
// world Y axis and Col the world X axis.
type WorldPoint struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// AffineMatrix for 2D transforms: x' = ax + by + tx, y' = cx + dy + ty
type AffineMatrix struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity returns an identity matrix (no transformation)
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: 0, C: 0, D: 1, Ty: 0}
}

// Pose is the rover's world-frame position and attitude. Angles are degrees;
// yaw wraps in [0, 360) and increases counter-clockwise.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Position returns the pose's world position.
func (p Pose) Position() Point {
	return Point{X: p.X, Y: p.Y}
}

// Frame is a fixed-resolution RGB raster, three bytes per pixel, row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// FrameFromImage copies any decoded image into an RGB frame.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			f.SetRGB(x, y, c.R, c.G, c.B)
		}
	}
	return f
}

// RGB returns the channels of the pixel at (col, row).
func (f *Frame) RGB(col, row int) (r, g, b uint8) {
	i := (row*f.Width + col) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the pixel at (col, row).
func (f *Frame) SetRGB(col, row int, r, g, b uint8) {
	i := (row*f.Width + col) * 3
	f.Pix[i] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
}

// Fill paints every pixel inside rect (clipped to the frame) with one color.
func (f *Frame) Fill(rect image.Rectangle, r, g, b uint8) {
	rect = rect.Intersect(image.Rect(0, 0, f.Width, f.Height))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			f.SetRGB(x, y, r, g, b)
		}
	}
}

// Image converts the frame to a standard library image for encoding.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGB(x, y)
			img.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return img
}

// Mask is a binary raster with the same extent as the frame it came from.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask allocates an all-false mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// At reports whether (col, row) is set. Out-of-range pixels are unset.
func (m *Mask) At(col, row int) bool {
	if m == nil || col < 0 || row < 0 || col >= m.Width || row >= m.Height {
		return false
	}
	return m.Bits[row*m.Width+col]
}

// Set marks (col, row).
func (m *Mask) Set(col, row int, v bool) {
	m.Bits[row*m.Width+col] = v
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Masks holds the three classifications of one frame.
type Masks struct {
	Navigable *Mask
	Obstacle  *Mask
	Target    *Mask
}

// Telemetry is the per-tick input record delivered by the simulator link.
type Telemetry struct {
	Frame           *Frame
	Position        Point
	Yaw             float64
	Pitch           float64
	Roll            float64
	Velocity        float64
	NearTarget      bool
	PickingUp       bool
	PickupConfirmed bool
}

// Pose extracts the pose part of the record.
func (t *Telemetry) Pose() Pose {
	return Pose{X: t.Position.X, Y: t.Position.Y, Yaw: t.Yaw, Pitch: t.Pitch, Roll: t.Roll}
}

// ActuationCommand is the controller output for one tick. Steer is degrees,
// positive turns left.
type ActuationCommand struct {
	Throttle float64 `json:"throttle"`
	Brake    float64 `json:"brake"`
	Steer    float64 `json:"steer"`
	Pickup   bool    `json:"pickup"`
}
