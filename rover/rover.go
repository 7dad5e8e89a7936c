package rover

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// trailSpacing is the distance in meters the rover must cover before a new
// trail vertex is recorded.
const trailSpacing = 0.5

// TickResult is what one call to Step produced.
type TickResult struct {
	Tick      uint64           `json:"tick"`
	Mode      Mode             `json:"mode"`
	Command   ActuationCommand `json:"command"`
	Stable    bool             `json:"stable"`
	NewSample bool             `json:"newSample"`
	MapFill   int              `json:"mapFill"`
}

// Snapshot is a read-only view of the rover after the latest tick.
type Snapshot struct {
	MissionID        string           `json:"missionId"`
	Tick             uint64           `json:"tick"`
	Pose             Pose             `json:"pose"`
	Velocity         float64          `json:"velocity"`
	Stable           bool             `json:"stable"`
	Command          ActuationCommand `json:"command"`
	Navigation       NavigationState  `json:"navigation"`
	MapFill          int              `json:"mapFill"`
	SamplesFound     int              `json:"samplesFound"`
	SamplesRemaining int              `json:"samplesRemaining"`
	SamplesCollected int              `json:"samplesCollected"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Rover owns the mission state and runs the per-tick pipeline: validate,
// perceive, accumulate, decide. Step serialises ticks; the accessors are
// safe to call from other goroutines.
type Rover struct {
	mu sync.RWMutex

	cfg        *Config
	missionID  uuid.UUID
	perception *Perception
	controller *Controller

	world   *WorldMap
	samples *SampleTracker
	nav     *NavigationState

	tick           uint64
	snapshot       Snapshot
	masks          Masks
	trail          []Point
	lastConfirmed  bool
	pendingCollect bool
}

// NewRover creates a rover for a fresh mission.
func NewRover(cfg *Config) (*Rover, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	perception, err := NewPerception(cfg)
	if err != nil {
		return nil, err
	}

	r := &Rover{
		cfg:        cfg,
		missionID:  uuid.New(),
		perception: perception,
		controller: NewController(cfg.Navigation),
		world:      NewWorldMap(cfg.Map.WorldSize),
		samples:    NewSampleTracker(cfg.Map.DedupRadius, cfg.Map.TotalSamples),
		nav:        NewNavigationState(cfg.Navigation),
	}
	r.snapshot = r.buildSnapshot(Pose{}, 0, false)
	log.Printf("[TICK] Mission %s started (world %dx%d, %d samples)",
		r.missionID, cfg.Map.WorldSize, cfg.Map.WorldSize, cfg.Map.TotalSamples)
	return r, nil
}

// Step runs one control tick. Invalid telemetry is rejected before any
// state changes.
func (r *Rover) Step(t *Telemetry) (TickResult, error) {
	if err := t.Validate(r.cfg.Camera); err != nil {
		return TickResult{}, fmt.Errorf("rejecting telemetry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pose := t.Pose()
	res := r.perception.Perceive(pose, t.Frame)

	if t.PickupConfirmed && !r.lastConfirmed {
		r.pendingCollect = true
	}
	r.lastConfirmed = t.PickupConfirmed

	newSample := false
	if res.Stable {
		if err := r.world.Accumulate(res.NavCells, res.ObstacleCells, res.TargetCells); err != nil {
			return TickResult{}, fmt.Errorf("accumulating world map: %w", err)
		}
		newSample = r.trackTarget(res)
		if r.pendingCollect {
			if r.samples.MarkCollected(pose.Position()) {
				log.Printf("[SAMPLE] Collected sample near (%.1f, %.1f), %d/%d collected",
					pose.X, pose.Y, r.samples.Collected(), r.cfg.Map.TotalSamples)
			}
			r.pendingCollect = false
		}
		r.masks = res.Masks
	} else if r.cfg.Log.Debug {
		log.Printf("[TICK] %d: unstable pitch %.2f roll %.2f, skipping perception", r.tick+1, pose.Pitch, pose.Roll)
	}

	cmd := r.controller.Decide(r.nav, DecisionInput{
		Pose:            pose,
		Velocity:        t.Velocity,
		NearTarget:      t.NearTarget,
		PickingUp:       t.PickingUp,
		PickupConfirmed: t.PickupConfirmed,
		Vision:          res.Stable,
		NavPolar:        res.NavPolar,
		TargetPolar:     res.TargetPolar,
		MapFill:         r.world.FillCount(),
		Pursuit:         r.samples,
	})

	r.tick++
	r.recordTrail(pose.Position())
	r.snapshot = r.buildSnapshot(pose, t.Velocity, res.Stable)

	if r.cfg.Log.Debug {
		log.Printf("[TICK] %d: mode=%s nav=%d target=%d fill=%d cmd=%+v",
			r.tick, r.nav.Mode, len(res.NavPolar), len(res.TargetPolar), r.world.FillCount(), cmd)
	}

	return TickResult{
		Tick:      r.tick,
		Mode:      r.nav.Mode,
		Command:   cmd,
		Stable:    res.Stable,
		NewSample: newSample,
		MapFill:   r.world.FillCount(),
	}, nil
}

// trackTarget registers the sighted sample and makes it the pursued one. A
// target seen only beyond the fix range replaces the pursuit with nothing
// rather than leave an older sample's position behind. Must be called with
// r.mu held.
func (r *Rover) trackTarget(res PerceptionResult) bool {
	if res.TargetWorld == nil {
		if len(res.TargetPolar) > 0 {
			r.samples.ClearPursued()
		}
		return false
	}
	idx, isNew := r.samples.Observe(*res.TargetWorld)
	r.samples.SetPursued(r.samples.Samples()[idx].Position())
	return isNew
}

func (r *Rover) recordTrail(p Point) {
	if n := len(r.trail); n > 0 && Distance(r.trail[n-1], p) < trailSpacing {
		return
	}
	r.trail = append(r.trail, p)
}

// buildSnapshot must be called with r.mu held.
func (r *Rover) buildSnapshot(pose Pose, velocity float64, stable bool) Snapshot {
	nav := *r.nav
	if nav.Start != nil {
		start := *nav.Start
		nav.Start = &start
	}
	return Snapshot{
		MissionID:        r.missionID.String(),
		Tick:             r.tick,
		Pose:             pose,
		Velocity:         velocity,
		Stable:           stable,
		Command:          nav.Last,
		Navigation:       nav,
		MapFill:          r.world.FillCount(),
		SamplesFound:     r.samples.Found(),
		SamplesRemaining: r.samples.Remaining(),
		SamplesCollected: r.samples.Collected(),
		UpdatedAt:        time.Now(),
	}
}

// MissionID returns the identifier stamped on this mission.
func (r *Rover) MissionID() string {
	return r.missionID.String()
}

// Config returns the configuration the rover was built with.
func (r *Rover) Config() *Config {
	return r.cfg
}

// Snapshot returns the state after the latest tick.
func (r *Rover) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// WorldMap returns a copy of the evidence grid.
func (r *Rover) WorldMap() *WorldMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.world.Clone()
}

// Samples returns a copy of the sample registry.
func (r *Rover) Samples() []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.samples.Samples()
}

// VisionMasks returns the masks of the latest stable tick. Masks are
// replaced, never modified, so the result can be read without copying.
func (r *Rover) VisionMasks() Masks {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.masks
}

// Trail returns the positions the rover has driven through.
func (r *Rover) Trail() []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Point, len(r.trail))
	copy(out, r.trail)
	return out
}

// RestoreWorldMap replaces the evidence grid, typically with a cached map
// from an earlier run over the same terrain.
func (r *Rover) RestoreWorldMap(m *WorldMap) error {
	if m.Size() != r.cfg.Map.WorldSize {
		return fmt.Errorf("cached world map is %dx%d, want %dx%d",
			m.Size(), m.Size(), r.cfg.Map.WorldSize, r.cfg.Map.WorldSize)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world = m.Clone()
	r.snapshot.MapFill = r.world.FillCount()
	log.Printf("[TICK] Restored world map with %d filled cells", r.world.FillCount())
	return nil
}
