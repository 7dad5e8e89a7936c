package rover

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder for camera frames
	"image/png"
	"math"
)

// telemetryWire is the JSON layout of one telemetry record. Pointer fields
// and the nil slice distinguish a missing key from a zero value.
type telemetryWire struct {
	Image           *string   `json:"image"`
	Position        []float64 `json:"position"`
	Yaw             *float64  `json:"yaw"`
	Pitch           *float64  `json:"pitch"`
	Roll            *float64  `json:"roll"`
	Velocity        *float64  `json:"velocity"`
	NearSample      *bool     `json:"near_sample"`
	PickingUp       *bool     `json:"picking_up"`
	PickupConfirmed *bool     `json:"pickup_confirmed"`
}

// DecodeTelemetry parses a telemetry record. The image is a base64 JPEG or
// PNG. Every field is required; a missing or unusable one yields
// ErrMalformedTelemetry.
func DecodeTelemetry(data []byte) (*Telemetry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedTelemetry)
	}

	var w telemetryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTelemetry, err)
	}

	missing := func(field string) error {
		return fmt.Errorf("%w: missing %s", ErrMalformedTelemetry, field)
	}
	switch {
	case w.Image == nil:
		return nil, missing("image")
	case w.Position == nil:
		return nil, missing("position")
	case w.Yaw == nil:
		return nil, missing("yaw")
	case w.Pitch == nil:
		return nil, missing("pitch")
	case w.Roll == nil:
		return nil, missing("roll")
	case w.Velocity == nil:
		return nil, missing("velocity")
	case w.NearSample == nil:
		return nil, missing("near_sample")
	case w.PickingUp == nil:
		return nil, missing("picking_up")
	case w.PickupConfirmed == nil:
		return nil, missing("pickup_confirmed")
	case len(w.Position) != 2:
		return nil, fmt.Errorf("%w: position must have 2 elements, got %d", ErrMalformedTelemetry, len(w.Position))
	}

	frame, err := decodeFrame(*w.Image)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Frame:           frame,
		Position:        Point{X: w.Position[0], Y: w.Position[1]},
		Yaw:             *w.Yaw,
		Pitch:           *w.Pitch,
		Roll:            *w.Roll,
		Velocity:        *w.Velocity,
		NearTarget:      *w.NearSample,
		PickingUp:       *w.PickingUp,
		PickupConfirmed: *w.PickupConfirmed,
	}, nil
}

func decodeFrame(encoded string) (*Frame, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: image base64: %v", ErrMalformedTelemetry, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: image decode: %v", ErrMalformedTelemetry, err)
	}
	return FrameFromImage(img), nil
}

// EncodeTelemetry is the inverse of DecodeTelemetry, with the frame stored
// as PNG. Used to record and replay missions.
func EncodeTelemetry(t *Telemetry) ([]byte, error) {
	if t.Frame == nil {
		return nil, fmt.Errorf("%w: missing frame", ErrMalformedTelemetry)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, t.Frame.Image()); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	img := base64.StdEncoding.EncodeToString(buf.Bytes())

	return json.Marshal(telemetryWire{
		Image:           &img,
		Position:        []float64{t.Position.X, t.Position.Y},
		Yaw:             &t.Yaw,
		Pitch:           &t.Pitch,
		Roll:            &t.Roll,
		Velocity:        &t.Velocity,
		NearSample:      &t.NearTarget,
		PickingUp:       &t.PickingUp,
		PickupConfirmed: &t.PickupConfirmed,
	})
}

// Validate checks a record against the camera calibration before any state
// is touched.
func (t *Telemetry) Validate(cam CameraConfig) error {
	if t == nil || t.Frame == nil {
		return fmt.Errorf("%w: missing frame", ErrMalformedTelemetry)
	}
	if t.Frame.Width != cam.Width || t.Frame.Height != cam.Height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrFrameSize, t.Frame.Width, t.Frame.Height, cam.Width, cam.Height)
	}
	if len(t.Frame.Pix) != t.Frame.Width*t.Frame.Height*3 {
		return fmt.Errorf("%w: pixel buffer length %d", ErrMalformedTelemetry, len(t.Frame.Pix))
	}
	for name, v := range map[string]float64{
		"position.x": t.Position.X,
		"position.y": t.Position.Y,
		"yaw":        t.Yaw,
		"pitch":      t.Pitch,
		"roll":       t.Roll,
		"velocity":   t.Velocity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrMalformedTelemetry, name)
		}
	}
	return nil
}
