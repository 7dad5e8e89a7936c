package rover

import (
	"fmt"
	"image"
)

// Classifier projects a camera frame to a top-down view and thresholds it
// into navigable, obstacle and target masks. It holds no per-frame state.
type Classifier struct {
	perspective *Perspective
	cfg         ClassifierConfig
	ignore      image.Rectangle
}

// NewClassifier builds the perspective mapping from the camera calibration.
func NewClassifier(cam CameraConfig, cfg ClassifierConfig) (*Classifier, error) {
	if len(cam.Source) != 4 {
		return nil, fmt.Errorf("camera source needs 4 points, got %d", len(cam.Source))
	}
	p, err := NewPerspective(cam.SourceQuad(), cam.DestinationQuad(), cam.Width, cam.Height)
	if err != nil {
		return nil, fmt.Errorf("building perspective: %w", err)
	}
	return &Classifier{
		perspective: p,
		cfg:         cfg,
		ignore:      cfg.TargetIgnore.Rect(),
	}, nil
}

// Perspective returns the calibrated projection.
func (c *Classifier) Perspective() *Perspective {
	return c.perspective
}

// Classify warps the frame and thresholds it. Obstacle is the complement of
// navigable inside the projected area; pixels outside it are in no mask.
func (c *Classifier) Classify(f *Frame) Masks {
	warped, valid := c.perspective.Warp(f)
	return c.Threshold(warped, valid)
}

// Threshold applies the color rules to an already projected raster. A nil
// valid mask treats every pixel as projected.
func (c *Classifier) Threshold(warped *Frame, valid *Mask) Masks {
	w, h := warped.Width, warped.Height
	masks := Masks{
		Navigable: NewMask(w, h),
		Obstacle:  NewMask(w, h),
		Target:    NewMask(w, h),
	}

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if valid != nil && !valid.At(col, row) {
				continue
			}
			r, g, b := warped.RGB(col, row)

			if aboveThreshold(r, g, b, c.cfg.Navigable) {
				masks.Navigable.Set(col, row, true)
			} else {
				masks.Obstacle.Set(col, row, true)
			}

			if inBand(r, g, b, c.cfg.TargetLow, c.cfg.TargetHigh) &&
				!image.Pt(col, row).In(c.ignore) {
				masks.Target.Set(col, row, true)
			}
		}
	}
	return masks
}

func aboveThreshold(r, g, b uint8, t RGB) bool {
	return int(r) > t.R && int(g) > t.G && int(b) > t.B
}

func inBand(r, g, b uint8, low, high RGB) bool {
	return int(r) >= low.R && int(r) < high.R &&
		int(g) >= low.G && int(g) < high.G &&
		int(b) >= low.B && int(b) < high.B
}
