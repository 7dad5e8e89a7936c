package rover

import "fmt"

// PerceptionResult is everything one frame contributes to a tick.
type PerceptionResult struct {
	// Stable is false when the body was too far from level to trust the
	// projection; every other field is then empty.
	Stable bool

	Masks Masks

	// Polar readings of every navigable and target pixel, used for steering.
	NavPolar    []PolarPoint
	TargetPolar []PolarPoint

	// Range-filtered world cells, ready for the world map.
	NavCells      []WorldPoint
	ObstacleCells []WorldPoint
	TargetCells   []WorldPoint

	// TargetWorld is the mean world position of the range-filtered target
	// pixels, nil when too few are visible.
	TargetWorld *Point
}

// Perception runs classification and the coordinate pipeline for one frame.
type Perception struct {
	classifier *Classifier
	camera     CameraConfig
	cfg        PerceptionConfig
	mapCfg     MapConfig
}

// NewPerception calibrates the classifier from the configuration.
func NewPerception(cfg *Config) (*Perception, error) {
	classifier, err := NewClassifier(cfg.Camera, cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("creating classifier: %w", err)
	}
	return &Perception{
		classifier: classifier,
		camera:     cfg.Camera,
		cfg:        cfg.Perception,
		mapCfg:     cfg.Map,
	}, nil
}

// Stable reports whether pitch and roll are both inside the stability band.
func (p *Perception) Stable(pose Pose) bool {
	return LevelDeviation(pose.Pitch) <= p.cfg.StabilityDeg &&
		LevelDeviation(pose.Roll) <= p.cfg.StabilityDeg
}

// Perceive classifies the frame and converts the masks to polar readings
// and world cells for the given pose. An unstable pose skips the classifier
// entirely and returns an empty result.
func (p *Perception) Perceive(pose Pose, f *Frame) PerceptionResult {
	if !p.Stable(pose) {
		return PerceptionResult{}
	}

	masks := p.classifier.Classify(f)
	ppm := p.camera.PixelsPerMeter

	nav := MaskToRover(masks.Navigable, ppm)
	obstacle := MaskToRover(masks.Obstacle, ppm)
	target := MaskToRover(masks.Target, ppm)

	res := PerceptionResult{
		Stable:      true,
		Masks:       masks,
		NavPolar:    ToPolar(nav),
		TargetPolar: ToPolar(target),
	}

	navWorld := RoverToWorld(FilterRange(nav, p.cfg.NavigableMinRange, p.cfg.NavigableMaxRange), pose)
	obstacleWorld := RoverToWorld(FilterRange(obstacle, 0, p.cfg.ObstacleMaxRange), pose)
	targetWorld := RoverToWorld(FilterRange(target, 0, p.cfg.TargetMaxRange), pose)

	size, mpc := p.mapCfg.WorldSize, p.mapCfg.MetersPerCell
	res.NavCells = WorldToCells(navWorld, mpc, size)
	res.ObstacleCells = WorldToCells(obstacleWorld, mpc, size)
	res.TargetCells = WorldToCells(targetWorld, mpc, size)

	if len(targetWorld) >= p.cfg.TargetMinPixels && len(targetWorld) > 0 {
		c := Centroid(targetWorld)
		res.TargetWorld = &c
	}
	return res
}
