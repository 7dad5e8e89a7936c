package rover

import (
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Sample is one discovered target in world meters.
type Sample struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Observations int     `json:"observations"`
	Collected    bool    `json:"collected"`
}

// Position returns the sample location.
func (s Sample) Position() Point {
	return Point{X: s.X, Y: s.Y}
}

func (s Sample) orbPoint() orb.Point {
	return orb.Point{s.X, s.Y}
}

// SampleTracker is the deduplicated registry of discovered samples. No two
// entries are ever within the dedup radius of each other.
type SampleTracker struct {
	radius  float64
	total   int
	samples []Sample

	pursued    Point
	hasPursued bool
}

// NewSampleTracker creates an empty registry. total is the number of
// samples placed in the mission and only feeds Remaining.
func NewSampleTracker(radius float64, total int) *SampleTracker {
	return &SampleTracker{radius: radius, total: total}
}

// Observe registers a candidate position. A candidate farther than the dedup
// radius from every entry is appended; otherwise it is averaged into the
// nearest entry. Returns the index of the affected entry and whether it was
// newly appended.
func (t *SampleTracker) Observe(candidate Point) (int, bool) {
	cp := orb.Point{candidate.X, candidate.Y}

	nearest, best := -1, 0.0
	for i, s := range t.samples {
		d := planar.Distance(cp, s.orbPoint())
		if d <= t.radius && (nearest < 0 || d < best) {
			nearest, best = i, d
		}
	}

	if nearest < 0 {
		t.samples = append(t.samples, Sample{X: candidate.X, Y: candidate.Y, Observations: 1})
		log.Printf("[SAMPLE] New sample %d at (%.1f, %.1f), %d remaining",
			len(t.samples), candidate.X, candidate.Y, t.Remaining())
		return len(t.samples) - 1, true
	}

	s := &t.samples[nearest]
	s.X = (s.X + candidate.X) / 2
	s.Y = (s.Y + candidate.Y) / 2
	s.Observations++
	return t.fold(nearest), false
}

// fold merges entries that a moved entry has drifted into the radius of,
// restoring the separation invariant. Returns the surviving index of idx.
func (t *SampleTracker) fold(idx int) int {
	for {
		other := -1
		for i := range t.samples {
			if i == idx {
				continue
			}
			if planar.Distance(t.samples[idx].orbPoint(), t.samples[i].orbPoint()) <= t.radius {
				other = i
				break
			}
		}
		if other < 0 {
			return idx
		}

		keep, drop := idx, other
		if drop < keep {
			keep, drop = drop, keep
		}
		a, b := t.samples[keep], t.samples[drop]
		t.samples[keep] = Sample{
			X:            (a.X + b.X) / 2,
			Y:            (a.Y + b.Y) / 2,
			Observations: a.Observations + b.Observations,
			Collected:    a.Collected || b.Collected,
		}
		t.samples = append(t.samples[:drop], t.samples[drop+1:]...)
		idx = keep
	}
}

// MarkCollected flags the entry nearest to p, if one lies within the dedup
// radius. Returns true when an entry changed.
func (t *SampleTracker) MarkCollected(p Point) bool {
	pp := orb.Point{p.X, p.Y}
	nearest, best := -1, 0.0
	for i, s := range t.samples {
		d := planar.Distance(pp, s.orbPoint())
		if d <= t.radius && (nearest < 0 || d < best) {
			nearest, best = i, d
		}
	}
	if nearest < 0 || t.samples[nearest].Collected {
		return false
	}
	t.samples[nearest].Collected = true
	return true
}

// Samples returns a copy of the registry.
func (t *SampleTracker) Samples() []Sample {
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Found returns the number of distinct samples discovered.
func (t *SampleTracker) Found() int {
	return len(t.samples)
}

// Collected returns the number of samples confirmed picked up.
func (t *SampleTracker) Collected() int {
	n := 0
	for _, s := range t.samples {
		if s.Collected {
			n++
		}
	}
	return n
}

// Remaining returns how many mission samples are still undiscovered.
func (t *SampleTracker) Remaining() int {
	r := t.total - t.Found()
	if r < 0 {
		return 0
	}
	return r
}

// Pursued returns the last known position of the sample being approached.
func (t *SampleTracker) Pursued() (Point, bool) {
	return t.pursued, t.hasPursued
}

// SetPursued records the sample being approached.
func (t *SampleTracker) SetPursued(p Point) {
	t.pursued = p
	t.hasPursued = true
}

// ClearPursued forgets the pursued sample after pickup or abandonment.
func (t *SampleTracker) ClearPursued() {
	t.pursued = Point{}
	t.hasPursued = false
}
