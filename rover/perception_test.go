package rover

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPerception(t *testing.T) *Perception {
	t.Helper()
	p, err := NewPerception(DefaultConfig())
	require.NoError(t, err)
	return p
}

// uniformFrame returns a default-size camera frame filled with one color.
func uniformFrame(r, g, b uint8) *Frame {
	f := NewFrame(320, 160)
	f.Fill(image.Rect(0, 0, 320, 160), r, g, b)
	return f
}

func TestPerception_Stable(t *testing.T) {
	p := newTestPerception(t)

	tests := []struct {
		name        string
		pitch, roll float64
		want        bool
	}{
		{"level", 0, 0, true},
		{"slight pitch", 0.9, 0, true},
		{"roll wrapped below zero", 0, 359.2, true},
		{"at band edge", 1.0, 359.0, true},
		{"pitched", 1.5, 0, false},
		{"rolled wrapped", 0, 358.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Stable(Pose{Pitch: tt.pitch, Roll: tt.roll})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPerceive_UnstableIsEmpty(t *testing.T) {
	p := newTestPerception(t)
	res := p.Perceive(Pose{X: 10, Y: 10, Pitch: 3}, uniformFrame(200, 200, 200))

	assert.False(t, res.Stable)
	assert.Empty(t, res.NavPolar)
	assert.Empty(t, res.TargetPolar)
	assert.Empty(t, res.NavCells)
	assert.Empty(t, res.ObstacleCells)
	assert.Empty(t, res.TargetCells)
	assert.Nil(t, res.TargetWorld)
	assert.Nil(t, res.Masks.Navigable)
}

func TestPerceive_BrightGround(t *testing.T) {
	p := newTestPerception(t)
	pose := Pose{X: 10, Y: 10, Yaw: 0}
	res := p.Perceive(pose, uniformFrame(200, 200, 200))

	require.True(t, res.Stable)
	require.NotEmpty(t, res.NavPolar)
	assert.Empty(t, res.TargetPolar)
	assert.Nil(t, res.TargetWorld)
	assert.NotEmpty(t, res.NavCells)

	for _, pp := range res.NavPolar {
		assert.Greater(t, pp.Dist, 0.0)
	}
	// Facing +X from (10,10) with a 5 m horizon.
	for _, c := range res.NavCells {
		assert.GreaterOrEqual(t, c.Col, 10)
		assert.LessOrEqual(t, c.Col, 15)
		assert.GreaterOrEqual(t, c.Row, 5)
		assert.LessOrEqual(t, c.Row, 15)
	}
}

func TestPerceive_TargetCandidate(t *testing.T) {
	p := newTestPerception(t)
	pose := Pose{X: 50, Y: 50, Yaw: 90}
	res := p.Perceive(pose, uniformFrame(180, 150, 40))

	require.True(t, res.Stable)
	require.GreaterOrEqual(t, len(res.TargetPolar), 2)
	require.NotNil(t, res.TargetWorld)

	// Facing +Y: the candidate lies north of the rover and within range.
	assert.Greater(t, res.TargetWorld.Y, pose.Y)
	assert.Less(t, Distance(*res.TargetWorld, pose.Position()), 5.0)
	assert.NotEmpty(t, res.TargetCells)
	assert.Empty(t, res.NavCells, "gold pixels are not bright enough to be ground")
}

func TestPerceive_ClampsNearGridEdge(t *testing.T) {
	p := newTestPerception(t)
	res := p.Perceive(Pose{X: 199, Y: 199, Yaw: 45}, uniformFrame(200, 200, 200))

	require.NotEmpty(t, res.NavCells)
	for _, c := range res.NavCells {
		assert.Equal(t, c, ClampCell(c, 200))
	}
}
