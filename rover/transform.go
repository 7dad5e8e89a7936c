package rover

import "math"

// TransformPoint applies an affine transform to a point
// x' = a*x + b*y + tx
// y' = c*x + d*y + ty
func TransformPoint(p Point, m AffineMatrix) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.Tx,
		Y: m.C*p.X + m.D*p.Y + m.Ty,
	}
}

// TransformPoints applies an affine transform to multiple points
func TransformPoints(points []Point, m AffineMatrix) []Point {
	result := make([]Point, len(points))
	for i, p := range points {
		result[i] = TransformPoint(p, m)
	}
	return result
}

// NormalizeAngle normalizes an angle in degrees to the range [0, 360).
func NormalizeAngle(degrees float64) float64 {
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}
	return degrees
}

// SignedAngleDiff returns the shortest rotation in degrees that takes from to
// to, in (-180, 180]. Positive means counter-clockwise.
func SignedAngleDiff(from, to float64) float64 {
	d := NormalizeAngle(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}

// LevelDeviation returns how far an attitude angle (pitch or roll, degrees,
// wrapping at 360) is from level.
func LevelDeviation(degrees float64) float64 {
	return math.Abs(SignedAngleDiff(0, degrees))
}

// MultiplyMatrices returns the transform that applies b first, then a.
func MultiplyMatrices(a, b AffineMatrix) AffineMatrix {
	out := AffineMatrix{
		A: a.A*b.A + a.B*b.C,
		B: a.A*b.B + a.B*b.D,
		C: a.C*b.A + a.D*b.C,
		D: a.C*b.B + a.D*b.D,
	}
	origin := TransformPoint(Point{X: b.Tx, Y: b.Ty}, a)
	out.Tx, out.Ty = origin.X, origin.Y
	return out
}

// InvertMatrix returns the inverse transform, or the identity when m is
// singular.
func InvertMatrix(m AffineMatrix) AffineMatrix {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < 1e-10 {
		return Identity()
	}
	inv := AffineMatrix{A: m.D / det, B: -m.B / det, C: -m.C / det, D: m.A / det}
	// The inverse carries m's translated origin back to zero.
	origin := TransformPoint(Point{X: -m.Tx, Y: -m.Ty}, inv)
	inv.Tx, inv.Ty = origin.X, origin.Y
	return inv
}

func Translation(tx, ty float64) AffineMatrix {
	return AffineMatrix{A: 1, Tx: tx, D: 1, Ty: ty}
}

// Rotation turns counter-clockwise about the origin by angle radians.
func Rotation(angle float64) AffineMatrix {
	sin, cos := math.Sincos(angle)
	return AffineMatrix{A: cos, B: -sin, C: sin, D: cos}
}

func RotationDeg(degrees float64) AffineMatrix {
	return Rotation(degrees * math.Pi / 180)
}

// Distance calculates Euclidean distance between two points
func Distance(p1, p2 Point) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Centroid calculates the center of mass of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point{X: sumX / n, Y: sumY / n}
}

// BearingDeg returns the world heading in [0, 360) that points from one
// position to another.
func BearingDeg(from, to Point) float64 {
	return NormalizeAngle(math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi)
}

// MaskToRover converts every set pixel of a top-down mask to rover-centric
// meters. Rows measure forward distance up from the bottom edge, columns
// measure lateral offset from the horizontal center (left positive).
func MaskToRover(m *Mask, pixelsPerMeter float64) []Point {
	if m == nil || pixelsPerMeter <= 0 {
		return nil
	}
	halfWidth := float64(m.Width) / 2
	height := float64(m.Height)

	var points []Point
	for row := 0; row < m.Height; row++ {
		for col := 0; col < m.Width; col++ {
			if !m.Bits[row*m.Width+col] {
				continue
			}
			points = append(points, Point{
				X: (height - float64(row)) / pixelsPerMeter,
				Y: -(float64(col) - halfWidth) / pixelsPerMeter,
			})
		}
	}
	return points
}

// ToPolar converts rover-centric points to distance/angle pairs.
func ToPolar(points []Point) []PolarPoint {
	result := make([]PolarPoint, len(points))
	for i, p := range points {
		result[i] = PolarPoint{
			Dist:  math.Hypot(p.X, p.Y),
			Angle: math.Atan2(p.Y, p.X),
		}
	}
	return result
}

// FilterRange keeps the points whose distance from the rover lies in
// [minRange, maxRange).
func FilterRange(points []Point, minRange, maxRange float64) []Point {
	kept := make([]Point, 0, len(points))
	for _, p := range points {
		d := math.Hypot(p.X, p.Y)
		if d >= minRange && d < maxRange {
			kept = append(kept, p)
		}
	}
	return kept
}

// RoverToWorldMatrix builds the transform that rotates rover-centric
// coordinates by the pose yaw and translates them to the pose position.
func RoverToWorldMatrix(pose Pose) AffineMatrix {
	return MultiplyMatrices(Translation(pose.X, pose.Y), RotationDeg(pose.Yaw))
}

// WorldToRover expresses a world position in the rover frame: +X ahead,
// +Y to the left.
func WorldToRover(p Point, pose Pose) Point {
	return TransformPoint(p, InvertMatrix(RoverToWorldMatrix(pose)))
}

// RoverToWorld converts rover-centric points to continuous world meters.
func RoverToWorld(points []Point, pose Pose) []Point {
	return TransformPoints(points, RoverToWorldMatrix(pose))
}

// WorldToCell scales a world position to a grid cell and clamps it into
// [0, worldSize-1] on both axes.
func WorldToCell(p Point, metersPerCell float64, worldSize int) WorldPoint {
	return ClampCell(WorldPoint{
		Row: int(math.Floor(p.Y / metersPerCell)),
		Col: int(math.Floor(p.X / metersPerCell)),
	}, worldSize)
}

// WorldToCells converts many world positions to clamped grid cells.
func WorldToCells(points []Point, metersPerCell float64, worldSize int) []WorldPoint {
	cells := make([]WorldPoint, len(points))
	for i, p := range points {
		cells[i] = WorldToCell(p, metersPerCell, worldSize)
	}
	return cells
}

// ClampCell clamps a cell into the grid. Cells already inside are unchanged.
func ClampCell(wp WorldPoint, worldSize int) WorldPoint {
	return WorldPoint{
		Row: clampInt(wp.Row, 0, worldSize-1),
		Col: clampInt(wp.Col, 0, worldSize-1),
	}
}

// MeanAngleDeg returns the mean of the polar angles in degrees, or 0 when
// there are none.
func MeanAngleDeg(points []PolarPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Angle
	}
	return sum / float64(len(points)) * 180 / math.Pi
}

// MeanDist returns the mean polar distance, or 0 when there are none.
func MeanDist(points []PolarPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Dist
	}
	return sum / float64(len(points))
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func clampInt(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
