package rover

import (
	"errors"
	"math"
	"testing"
)

func TestNewPerspective_MapsCalibrationPoints(t *testing.T) {
	cam := DefaultConfig().Camera
	src, dst := cam.SourceQuad(), cam.DestinationQuad()

	p, err := NewPerspective(src, dst, cam.Width, cam.Height)
	if err != nil {
		t.Fatalf("NewPerspective: %v", err)
	}

	for i := range src {
		got, ok := p.Project(src[i])
		if !ok {
			t.Fatalf("Project(%v) not defined", src[i])
		}
		if math.Abs(got.X-dst[i].X) > 1e-6 || math.Abs(got.Y-dst[i].Y) > 1e-6 {
			t.Errorf("Project(%v) = %v, want %v", src[i], got, dst[i])
		}

		back, ok := p.Unproject(dst[i])
		if !ok {
			t.Fatalf("Unproject(%v) not defined", dst[i])
		}
		if math.Abs(back.X-src[i].X) > 1e-6 || math.Abs(back.Y-src[i].Y) > 1e-6 {
			t.Errorf("Unproject(%v) = %v, want %v", dst[i], back, src[i])
		}
	}
}

func TestNewPerspective_Degenerate(t *testing.T) {
	collinear := [4]Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	square := [4]Point{{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}

	if _, err := NewPerspective(collinear, square, 20, 20); !errors.Is(err, ErrDegenerateProjection) {
		t.Errorf("collinear source: err = %v, want ErrDegenerateProjection", err)
	}
	if _, err := NewPerspective(square, square, 0, 20); !errors.Is(err, ErrDegenerateProjection) {
		t.Errorf("zero width: err = %v, want ErrDegenerateProjection", err)
	}
}

func TestWarp_IdentityCalibration(t *testing.T) {
	square := [4]Point{{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	p, err := NewPerspective(square, square, 8, 6)
	if err != nil {
		t.Fatalf("NewPerspective: %v", err)
	}

	f := NewFrame(8, 6)
	for row := 0; row < 6; row++ {
		for col := 0; col < 8; col++ {
			f.SetRGB(col, row, uint8(col*10), uint8(row*10), 7)
		}
	}

	warped, valid := p.Warp(f)
	if valid.Count() != 48 {
		t.Errorf("valid pixels = %d, want 48", valid.Count())
	}
	for row := 0; row < 6; row++ {
		for col := 0; col < 8; col++ {
			r, g, b := warped.RGB(col, row)
			if r != uint8(col*10) || g != uint8(row*10) || b != 7 {
				t.Fatalf("warped(%d,%d) = (%d,%d,%d), want (%d,%d,7)", col, row, r, g, b, col*10, row*10)
			}
		}
	}
}

func TestWarp_OutsideCameraIsInvalid(t *testing.T) {
	// Shift the view right by 4 pixels: the left 4 output columns sample
	// camera columns -4..-1.
	src := [4]Point{{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}
	dst := [4]Point{{X: 4, Y: 10}, {X: 14, Y: 10}, {X: 14, Y: 0}, {X: 4, Y: 0}}
	p, err := NewPerspective(src, dst, 8, 4)
	if err != nil {
		t.Fatalf("NewPerspective: %v", err)
	}

	f := NewFrame(8, 4)
	f.Fill(f.Image().Bounds(), 200, 200, 200)
	warped, valid := p.Warp(f)

	for row := 0; row < 4; row++ {
		for col := 0; col < 8; col++ {
			want := col >= 4
			if valid.At(col, row) != want {
				t.Errorf("valid(%d,%d) = %v, want %v", col, row, valid.At(col, row), want)
			}
			if r, _, _ := warped.RGB(col, row); (r == 200) != want {
				t.Errorf("warped(%d,%d) red = %d", col, row, r)
			}
		}
	}
}
