package rover

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// SampleTracker
// ---------------------------------------------------------------------------

func TestSampleTracker_ReobservationDoesNotGrow(t *testing.T) {
	tr := NewSampleTracker(3, 6)

	idx, isNew := tr.Observe(Point{X: 10, Y: 10})
	assert.True(t, isNew)
	assert.Equal(t, 0, idx)

	idx, isNew = tr.Observe(Point{X: 11, Y: 10})
	assert.False(t, isNew)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, tr.Found())

	s := tr.Samples()[0]
	assert.Equal(t, Sample{X: 10.5, Y: 10, Observations: 2}, s)
}

func TestSampleTracker_DistinctPositionsGrowByOne(t *testing.T) {
	tr := NewSampleTracker(3, 6)

	positions := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	for i, p := range positions {
		_, isNew := tr.Observe(p)
		assert.True(t, isNew, "position %v", p)
		assert.Equal(t, i+1, tr.Found())
	}
	assert.Equal(t, 2, tr.Remaining())
}

func TestSampleTracker_RadiusBoundary(t *testing.T) {
	tr := NewSampleTracker(3, 6)
	tr.Observe(Point{X: 0, Y: 0})

	_, isNew := tr.Observe(Point{X: 3, Y: 0})
	assert.False(t, isNew, "exactly at the radius is a re-observation")

	_, isNew = tr.Observe(Point{X: 10, Y: 0})
	assert.True(t, isNew)
}

func TestSampleTracker_MergeFoldsNeighbours(t *testing.T) {
	tr := NewSampleTracker(3, 6)
	tr.Observe(Point{X: 0, Y: 0})
	tr.Observe(Point{X: 3.5, Y: 0})
	require.Equal(t, 2, tr.Found())

	// Averaging pulls the first entry to (0.75, 0), inside the radius of the
	// second one; the two collapse.
	idx, isNew := tr.Observe(Point{X: 1.5, Y: 0})
	assert.False(t, isNew)
	assert.Equal(t, 0, idx)
	require.Equal(t, 1, tr.Found())
	assert.Equal(t, 3, tr.Samples()[0].Observations)
	assert.InDelta(t, 2.125, tr.Samples()[0].X, 1e-9)
}

func TestSampleTracker_SeparationInvariant(t *testing.T) {
	tr := NewSampleTracker(3, 20)
	candidates := []Point{
		{X: 0, Y: 0}, {X: 2.9, Y: 0}, {X: 5, Y: 1}, {X: 7, Y: 0}, {X: 3.1, Y: 3},
		{X: 50, Y: 50}, {X: 52, Y: 50}, {X: 54, Y: 51}, {X: 48, Y: 47}, {X: 4, Y: 0},
	}
	for _, c := range candidates {
		tr.Observe(c)
		samples := tr.Samples()
		for i := range samples {
			for j := i + 1; j < len(samples); j++ {
				d := planar.Distance(orb.Point{samples[i].X, samples[i].Y}, orb.Point{samples[j].X, samples[j].Y})
				assert.Greater(t, d, 3.0, "entries %d and %d too close after observing %v", i, j, c)
			}
		}
	}
}

func TestSampleTracker_RemainingFloorsAtZero(t *testing.T) {
	tr := NewSampleTracker(1, 2)
	tr.Observe(Point{X: 0, Y: 0})
	tr.Observe(Point{X: 10, Y: 0})
	tr.Observe(Point{X: 20, Y: 0})
	assert.Equal(t, 3, tr.Found())
	assert.Equal(t, 0, tr.Remaining())
}

func TestSampleTracker_Pursued(t *testing.T) {
	tr := NewSampleTracker(3, 6)
	_, ok := tr.Pursued()
	assert.False(t, ok)

	tr.SetPursued(Point{X: 4, Y: 5})
	p, ok := tr.Pursued()
	assert.True(t, ok)
	assert.Equal(t, Point{X: 4, Y: 5}, p)

	tr.ClearPursued()
	_, ok = tr.Pursued()
	assert.False(t, ok)
}

func TestSampleTracker_MarkCollected(t *testing.T) {
	tr := NewSampleTracker(3, 6)
	tr.Observe(Point{X: 10, Y: 10})
	tr.Observe(Point{X: 30, Y: 30})

	assert.False(t, tr.MarkCollected(Point{X: 20, Y: 20}), "nothing within radius")
	assert.True(t, tr.MarkCollected(Point{X: 11, Y: 9}))
	assert.False(t, tr.MarkCollected(Point{X: 11, Y: 9}), "already collected")
	assert.Equal(t, 1, tr.Collected())
	assert.True(t, tr.Samples()[0].Collected)
}

// ---------------------------------------------------------------------------
// MissionFeatures
// ---------------------------------------------------------------------------

func TestMissionFeatures(t *testing.T) {
	samples := []Sample{{X: 1, Y: 2, Observations: 3}, {X: 40, Y: 41, Observations: 1, Collected: true}}
	start := &Point{X: 5, Y: 5}
	trail := []Point{{X: 5, Y: 5}, {X: 6, Y: 5.01}, {X: 7, Y: 5}, {X: 7, Y: 9}}

	fc := MissionFeatures(samples, start, trail, 0.1)
	require.Len(t, fc.Features, 4)

	assert.Equal(t, "sample", fc.Features[0].Properties["kind"])
	assert.Equal(t, orb.Point{1, 2}, fc.Features[0].Geometry)
	assert.Equal(t, true, fc.Features[1].Properties["collected"])
	assert.Equal(t, "start", fc.Features[2].Properties["kind"])

	ls, ok := fc.Features[3].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.LineString{{5, 5}, {7, 5}, {7, 9}}, ls, "collinear vertex simplified away")

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	decoded, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, decoded.Features, 4)
}

func TestMissionFeatures_Empty(t *testing.T) {
	fc := MissionFeatures(nil, nil, []Point{{X: 1, Y: 1}}, 0)
	assert.Empty(t, fc.Features)
}
