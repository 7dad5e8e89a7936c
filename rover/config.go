package rover

import (
	"fmt"
	"image"
)

// Config represents the full configuration file
type Config struct {
	MQTT       MQTTConfig       `yaml:"mqtt" json:"mqtt"`
	Camera     CameraConfig     `yaml:"camera" json:"camera"`
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`
	Perception PerceptionConfig `yaml:"perception" json:"perception"`
	Map        MapConfig        `yaml:"map" json:"map"`
	Navigation NavigationConfig `yaml:"navigation" json:"navigation"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker         string `yaml:"broker" json:"broker"`
	PublishPrefix  string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID       string `yaml:"clientId" json:"clientId"`
	Username       string `yaml:"username,omitempty" json:"username,omitempty"`
	Password       string `yaml:"password,omitempty" json:"password,omitempty"`
	TelemetryTopic string `yaml:"telemetryTopic" json:"telemetryTopic"`
	CommandTopic   string `yaml:"commandTopic" json:"commandTopic"`

	// QoS applies to the telemetry subscription and every publish.
	QoS          byte `yaml:"qos" json:"qos"`
	RetainStatus bool `yaml:"retainStatus" json:"retainStatus"`
}

// CameraConfig is the fixed calibration of the forward camera.
type CameraConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	// Source is the calibration quadrilateral in camera pixels: bottom-left,
	// bottom-right, top-right, top-left of a 1 m grid square.
	Source []Point `yaml:"source" json:"source"`
	// DestSize is half the side of the destination square in top-down pixels.
	DestSize       float64 `yaml:"destSize" json:"destSize"`
	BottomOffset   float64 `yaml:"bottomOffset" json:"bottomOffset"`
	PixelsPerMeter float64 `yaml:"pixelsPerMeter" json:"pixelsPerMeter"`
}

// SourceQuad returns the calibration source as a fixed quadrilateral.
func (c CameraConfig) SourceQuad() [4]Point {
	var q [4]Point
	copy(q[:], c.Source)
	return q
}

// DestinationQuad places the calibration square centered just above the
// bottom edge of the top-down raster.
func (c CameraConfig) DestinationQuad() [4]Point {
	cx := float64(c.Width) / 2
	bottom := float64(c.Height) - c.BottomOffset
	top := bottom - 2*c.DestSize
	return [4]Point{
		{X: cx - c.DestSize, Y: bottom},
		{X: cx + c.DestSize, Y: bottom},
		{X: cx + c.DestSize, Y: top},
		{X: cx - c.DestSize, Y: top},
	}
}

// RGB is a per-channel threshold triple.
type RGB struct {
	R int `yaml:"r" json:"r"`
	G int `yaml:"g" json:"g"`
	B int `yaml:"b" json:"b"`
}

// Region is a rectangle of top-down raster pixels, max exclusive.
type Region struct {
	MinCol int `yaml:"minCol" json:"minCol"`
	MinRow int `yaml:"minRow" json:"minRow"`
	MaxCol int `yaml:"maxCol" json:"maxCol"`
	MaxRow int `yaml:"maxRow" json:"maxRow"`
}

// Rect converts the region to an image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.MinCol, r.MinRow, r.MaxCol, r.MaxRow)
}

// ClassifierConfig holds the fixed color thresholds.
type ClassifierConfig struct {
	// Navigable requires every channel strictly above the threshold.
	Navigable RGB `yaml:"navigable" json:"navigable"`
	// TargetLow and TargetHigh bound the target band as [low, high) per channel.
	TargetLow  RGB `yaml:"targetLow" json:"targetLow"`
	TargetHigh RGB `yaml:"targetHigh" json:"targetHigh"`
	// TargetIgnore is forced negative in the target mask.
	TargetIgnore Region `yaml:"targetIgnore" json:"targetIgnore"`
}

// PerceptionConfig holds range filters and the stability band.
type PerceptionConfig struct {
	// StabilityDeg is the largest pitch or roll deviation from level at
	// which the projection is trusted.
	StabilityDeg      float64 `yaml:"stabilityDeg" json:"stabilityDeg"`
	NavigableMinRange float64 `yaml:"navigableMinRange" json:"navigableMinRange"`
	NavigableMaxRange float64 `yaml:"navigableMaxRange" json:"navigableMaxRange"`
	TargetMaxRange    float64 `yaml:"targetMaxRange" json:"targetMaxRange"`
	ObstacleMaxRange  float64 `yaml:"obstacleMaxRange" json:"obstacleMaxRange"`
	// TargetMinPixels is the smallest target blob that yields a sample candidate.
	TargetMinPixels int `yaml:"targetMinPixels" json:"targetMinPixels"`
}

// MapConfig sizes the world grid and the sample registry.
type MapConfig struct {
	WorldSize     int     `yaml:"worldSize" json:"worldSize"`
	MetersPerCell float64 `yaml:"metersPerCell" json:"metersPerCell"`
	DedupRadius   float64 `yaml:"dedupRadius" json:"dedupRadius"`
	TotalSamples  int     `yaml:"totalSamples" json:"totalSamples"`
}

// NavigationConfig holds every tuning constant of the state machine.
type NavigationConfig struct {
	ThrottleSet   float64 `yaml:"throttleSet" json:"throttleSet"`
	ThrottleCrawl float64 `yaml:"throttleCrawl" json:"throttleCrawl"`
	ThrottleHome  float64 `yaml:"throttleHome" json:"throttleHome"`
	BrakeSet      float64 `yaml:"brakeSet" json:"brakeSet"`
	PickupBrake   float64 `yaml:"pickupBrake" json:"pickupBrake"`
	NearBrake     float64 `yaml:"nearBrake" json:"nearBrake"`
	FarBrake      float64 `yaml:"farBrake" json:"farBrake"`

	MaxVel          float64 `yaml:"maxVel" json:"maxVel"`
	ApproachVel     float64 `yaml:"approachVel" json:"approachVel"`
	StopVel         float64 `yaml:"stopVel" json:"stopVel"`
	StationaryVel   float64 `yaml:"stationaryVel" json:"stationaryVel"`
	StuckVel        float64 `yaml:"stuckVel" json:"stuckVel"`
	CirclingVel     float64 `yaml:"circlingVel" json:"circlingVel"`
	CirclingSteer   float64 `yaml:"circlingSteer" json:"circlingSteer"`
	MaxSteer        float64 `yaml:"maxSteer" json:"maxSteer"`
	TurnSteer       float64 `yaml:"turnSteer" json:"turnSteer"`
	ForwardBias     float64 `yaml:"forwardBias" json:"forwardBias"`
	TargetOffset    float64 `yaml:"targetOffset" json:"targetOffset"`
	AlignTolerance  float64 `yaml:"alignTolerance" json:"alignTolerance"`
	UnstuckYawDelta float64 `yaml:"unstuckYawDelta" json:"unstuckYawDelta"`

	StopForward      int `yaml:"stopForward" json:"stopForward"`
	GoForward        int `yaml:"goForward" json:"goForward"`
	GoForwardRelaxed int `yaml:"goForwardRelaxed" json:"goForwardRelaxed"`
	MinTargetAngles  int `yaml:"minTargetAngles" json:"minTargetAngles"`

	StuckFrames    int `yaml:"stuckFrames" json:"stuckFrames"`
	CirclingFrames int `yaml:"circlingFrames" json:"circlingFrames"`
	StallFrames    int `yaml:"stallFrames" json:"stallFrames"`
	RelaxedFrames  int `yaml:"relaxedFrames" json:"relaxedFrames"`
	TryHomeFrames  int `yaml:"tryHomeFrames" json:"tryHomeFrames"`
	DanceFrames    int `yaml:"danceFrames" json:"danceFrames"`

	TargetCloseRange   float64 `yaml:"targetCloseRange" json:"targetCloseRange"`
	PursuitNearRange   float64 `yaml:"pursuitNearRange" json:"pursuitNearRange"`
	PursuitAdjacent    float64 `yaml:"pursuitAdjacent" json:"pursuitAdjacent"`
	HomeFillThreshold  int     `yaml:"homeFillThreshold" json:"homeFillThreshold"`
	HomeProximity      float64 `yaml:"homeProximity" json:"homeProximity"`
	HomeArriveDistance float64 `yaml:"homeArriveDistance" json:"homeArriveDistance"`
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Debug bool `yaml:"debug" json:"debug"`
}

// DefaultConfig returns the calibration and tuning of the reference mission.
func DefaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker:         "mqtt://localhost:1883",
			PublishPrefix:  "rovermesh",
			ClientID:       "rovermesh",
			TelemetryTopic: "rover/telemetry",
			CommandTopic:   "rover/command",
			RetainStatus:   true,
		},
		Camera: CameraConfig{
			Width:          320,
			Height:         160,
			Source:         []Point{{X: 14, Y: 140}, {X: 301, Y: 140}, {X: 200, Y: 96}, {X: 118, Y: 96}},
			DestSize:       5,
			BottomOffset:   6,
			PixelsPerMeter: 10,
		},
		Classifier: ClassifierConfig{
			Navigable:    RGB{R: 160, G: 160, B: 160},
			TargetLow:    RGB{R: 121, G: 101, B: 0},
			TargetHigh:   RGB{R: 220, G: 180, B: 90},
			TargetIgnore: Region{MinCol: 0, MinRow: 0, MaxCol: 40, MaxRow: 160},
		},
		Perception: PerceptionConfig{
			StabilityDeg:      1.0,
			NavigableMinRange: 0.5,
			NavigableMaxRange: 5,
			TargetMaxRange:    5,
			ObstacleMaxRange:  5,
			TargetMinPixels:   2,
		},
		Map: MapConfig{
			WorldSize:     200,
			MetersPerCell: 1,
			DedupRadius:   3,
			TotalSamples:  6,
		},
		Navigation: NavigationConfig{
			ThrottleSet:   0.2,
			ThrottleCrawl: 0.1,
			ThrottleHome:  0.05,
			BrakeSet:      10,
			PickupBrake:   3,
			NearBrake:     8,
			FarBrake:      6,

			MaxVel:          2,
			ApproachVel:     0.5,
			StopVel:         0.2,
			StationaryVel:   0.01,
			StuckVel:        0.1,
			CirclingVel:     0.2,
			CirclingSteer:   13.5,
			MaxSteer:        15,
			TurnSteer:       2,
			ForwardBias:     14,
			TargetOffset:    -10,
			AlignTolerance:  5,
			UnstuckYawDelta: 10,

			StopForward:      50,
			GoForward:        500,
			GoForwardRelaxed: 100,
			MinTargetAngles:  2,

			StuckFrames:    50,
			CirclingFrames: 500,
			StallFrames:    500,
			RelaxedFrames:  500,
			TryHomeFrames:  500,
			DanceFrames:    20,

			TargetCloseRange:   1.5,
			PursuitNearRange:   10,
			PursuitAdjacent:    1,
			HomeFillThreshold:  7000,
			HomeProximity:      5,
			HomeArriveDistance: 1,
		},
	}
}

// Validate checks the values every component relies on.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.TelemetryTopic == "" {
		return fmt.Errorf("mqtt.telemetryTopic is required")
	}
	if c.MQTT.CommandTopic == "" {
		return fmt.Errorf("mqtt.commandTopic is required")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if len(c.Camera.Source) != 4 {
		return fmt.Errorf("camera.source must have 4 points, got %d", len(c.Camera.Source))
	}
	if c.Camera.DestSize <= 0 {
		return fmt.Errorf("camera.destSize must be positive")
	}
	if c.Camera.PixelsPerMeter <= 0 {
		return fmt.Errorf("camera.pixelsPerMeter must be positive")
	}
	if c.Perception.StabilityDeg < 0 {
		return fmt.Errorf("perception.stabilityDeg must not be negative")
	}
	if c.Perception.NavigableMinRange < 0 || c.Perception.NavigableMinRange >= c.Perception.NavigableMaxRange {
		return fmt.Errorf("perception navigable range [%v, %v) is empty",
			c.Perception.NavigableMinRange, c.Perception.NavigableMaxRange)
	}
	if c.Perception.TargetMaxRange <= 0 || c.Perception.ObstacleMaxRange <= 0 {
		return fmt.Errorf("perception target and obstacle ranges must be positive")
	}
	if c.Map.WorldSize <= 0 {
		return fmt.Errorf("map.worldSize must be positive")
	}
	if c.Map.MetersPerCell <= 0 {
		return fmt.Errorf("map.metersPerCell must be positive")
	}
	if c.Map.DedupRadius < 0 {
		return fmt.Errorf("map.dedupRadius must not be negative")
	}
	if c.Navigation.MaxSteer <= 0 {
		return fmt.Errorf("navigation.maxSteer must be positive")
	}
	if c.Navigation.DanceFrames <= 0 {
		return fmt.Errorf("navigation.danceFrames must be positive")
	}
	return nil
}
