package rover

import "fmt"

// Mode is the behavioral state of the navigation state machine.
type Mode int

const (
	ModeForward Mode = iota + 1
	ModeStop
	ModePickup
	ModeUnstuck
	ModeHome
	ModeHomeDance
)

var modeNames = map[Mode]string{
	ModeForward:   "forward",
	ModeStop:      "stop",
	ModePickup:    "pickup",
	ModeUnstuck:   "unstuck",
	ModeHome:      "home",
	ModeHomeDance: "home_dance",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	if _, ok := modeNames[m]; !ok {
		return nil, fmt.Errorf("unknown mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode returns the mode with the given name.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", name)
}

// Counters are the frame counters the heuristics keep between ticks.
type Counters struct {
	Stuck      int `json:"stuck"`      // ticks commanding throttle without moving
	Unstuck    int `json:"unstuck"`    // ticks spent in stop or unstuck
	MaxSteer   int `json:"maxSteer"`   // ticks at near-full steer while driving
	LowForward int `json:"lowForward"` // ticks with the relaxed go-forward threshold
	TryHome    int `json:"tryHome"`    // countdown before retrying home after a stuck
	HomeDance  int `json:"homeDance"`
}

// NavigationState is the mutable control-loop state. It is created once per
// mission and changed only by Controller.Decide.
type NavigationState struct {
	Mode     Mode     `json:"mode"`
	Counters Counters `json:"counters"`

	// GoForward is the navigable pixel count needed to leave stop. It drops
	// to the relaxed value after a long stall.
	GoForward int `json:"goForward"`

	Start           *Point  `json:"start,omitempty"`
	DistanceToStart float64 `json:"distanceToStart"`
	ReadyForHome    bool    `json:"readyForHome"`

	// StuckYaw is the heading recorded when unstuck was entered.
	StuckYaw       float64 `json:"stuckYaw"`
	DanceIncrement bool    `json:"danceIncrement"`

	// Last is the previous tick's command.
	Last ActuationCommand `json:"last"`
}

// NewNavigationState returns the state at mission start.
func NewNavigationState(cfg NavigationConfig) *NavigationState {
	return &NavigationState{
		Mode:           ModeForward,
		GoForward:      cfg.GoForward,
		DanceIncrement: true,
	}
}
