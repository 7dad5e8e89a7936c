package rover

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// MissionFeatures exports the sample registry, the start position and the
// rover's driven trail as GeoJSON in world meters. The trail is simplified
// with Douglas-Peucker at the given tolerance; zero keeps every vertex.
func MissionFeatures(samples []Sample, start *Point, trail []Point, tolerance float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i, s := range samples {
		f := geojson.NewFeature(s.orbPoint())
		f.Properties["kind"] = "sample"
		f.Properties["index"] = i
		f.Properties["observations"] = s.Observations
		f.Properties["collected"] = s.Collected
		fc.Append(f)
	}

	if start != nil {
		f := geojson.NewFeature(orb.Point{start.X, start.Y})
		f.Properties["kind"] = "start"
		fc.Append(f)
	}

	if len(trail) >= 2 {
		ls := make(orb.LineString, len(trail))
		for i, p := range trail {
			ls[i] = orb.Point{p.X, p.Y}
		}
		if tolerance > 0 {
			if simplified, ok := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone()).(orb.LineString); ok {
				ls = simplified
			}
		}
		f := geojson.NewFeature(ls)
		f.Properties["kind"] = "trail"
		f.Properties["vertices"] = len(ls)
		fc.Append(f)
	}

	return fc
}
