package rover

import "errors"

var (
	// ErrMalformedTelemetry is returned when a telemetry record is missing a
	// required field or carries an unusable value.
	ErrMalformedTelemetry = errors.New("malformed telemetry")

	// ErrFrameSize is returned when a frame does not match the calibrated camera resolution.
	ErrFrameSize = errors.New("frame size does not match calibration")

	// ErrOutOfBounds is returned when a world cell lies outside the grid.
	ErrOutOfBounds = errors.New("world cell out of bounds")

	// ErrDegenerateProjection is returned when the calibration quadrilaterals
	// do not define an invertible perspective mapping.
	ErrDegenerateProjection = errors.New("degenerate perspective calibration")
)
