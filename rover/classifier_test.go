package rover

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	cfg := DefaultConfig()
	c, err := NewClassifier(cfg.Camera, cfg.Classifier)
	require.NoError(t, err)
	return c
}

func TestThreshold_ColorRules(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		rgb      [3]uint8
		col      int
		nav      bool
		obstacle bool
		target   bool
	}{
		{"bright ground", [3]uint8{200, 200, 200}, 100, true, false, false},
		{"exactly at threshold is not navigable", [3]uint8{160, 161, 161}, 100, false, true, false},
		{"dark rock wall", [3]uint8{60, 50, 40}, 100, false, true, false},
		{"gold sample", [3]uint8{180, 150, 40}, 100, false, true, true},
		{"band low edge included", [3]uint8{121, 101, 0}, 100, false, true, true},
		{"band high edge excluded", [3]uint8{220, 150, 40}, 100, false, true, false},
		{"sample in ignore region", [3]uint8{180, 150, 40}, 10, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(320, 160)
			f.SetRGB(tt.col, 80, tt.rgb[0], tt.rgb[1], tt.rgb[2])
			masks := c.Threshold(f, nil)

			assert.Equal(t, tt.nav, masks.Navigable.At(tt.col, 80), "navigable")
			assert.Equal(t, tt.obstacle, masks.Obstacle.At(tt.col, 80), "obstacle")
			assert.Equal(t, tt.target, masks.Target.At(tt.col, 80), "target")
		})
	}
}

func TestThreshold_RespectsValidArea(t *testing.T) {
	c := newTestClassifier(t)
	f := NewFrame(320, 160)
	f.Fill(image.Rect(0, 0, 320, 160), 30, 30, 30)

	valid := NewMask(320, 160)
	valid.Set(200, 150, true)
	masks := c.Threshold(f, valid)

	assert.Equal(t, 1, masks.Obstacle.Count(), "only the projected pixel is an obstacle")
	assert.True(t, masks.Obstacle.At(200, 150))
	assert.Zero(t, masks.Navigable.Count())
}

func TestClassify_BrightFrame(t *testing.T) {
	c := newTestClassifier(t)
	f := NewFrame(320, 160)
	f.Fill(image.Rect(0, 0, 320, 160), 200, 200, 200)

	_, valid := c.Perspective().Warp(f)
	masks := c.Classify(f)

	require.Greater(t, valid.Count(), 0)
	assert.Equal(t, valid.Count(), masks.Navigable.Count())
	assert.Zero(t, masks.Obstacle.Count())
	assert.Zero(t, masks.Target.Count())
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier(t)
	f := NewFrame(320, 160)
	f.Fill(image.Rect(0, 80, 320, 160), 200, 200, 200)
	f.Fill(image.Rect(140, 100, 180, 130), 180, 150, 40)

	first := c.Classify(f)
	second := c.Classify(f)
	assert.Equal(t, first.Navigable.Bits, second.Navigable.Bits)
	assert.Equal(t, first.Obstacle.Bits, second.Obstacle.Bits)
	assert.Equal(t, first.Target.Bits, second.Target.Bits)
}
