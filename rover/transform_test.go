package rover

import (
	"math"
	"testing"
)

const epsilon = 1e-9

// almostEqual checks if two floats are equal within epsilon tolerance
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// pointsEqual checks if two points are equal within epsilon tolerance
func pointsEqual(p1, p2 Point) bool {
	return almostEqual(p1.X, p2.X) && almostEqual(p1.Y, p2.Y)
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name   string
		point  Point
		matrix AffineMatrix
		want   Point
	}{
		{
			name:   "identity transform",
			point:  Point{X: 10, Y: 20},
			matrix: Identity(),
			want:   Point{X: 10, Y: 20},
		},
		{
			name:   "translation only",
			point:  Point{X: 5, Y: 5},
			matrix: Translation(10, 15),
			want:   Point{X: 15, Y: 20},
		},
		{
			name:   "90 degree rotation",
			point:  Point{X: 1, Y: 0},
			matrix: RotationDeg(90),
			want:   Point{X: 0, Y: 1},
		},
		{
			name:   "rotate then translate",
			point:  Point{X: 2, Y: 0},
			matrix: RoverToWorldMatrix(Pose{X: 10, Y: 10, Yaw: 180}),
			want:   Point{X: 8, Y: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformPoint(tt.point, tt.matrix)
			if !pointsEqual(got, tt.want) {
				t.Errorf("TransformPoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotationRoundTrip(t *testing.T) {
	points := []Point{{X: 1, Y: 0}, {X: 3.5, Y: -2.25}, {X: -4, Y: 7}, {X: 0, Y: 0}}
	for _, yaw := range []float64{0, 12.5, 90, 179.9, 270, 359} {
		for _, p := range points {
			rotated := TransformPoint(p, RotationDeg(yaw))
			back := TransformPoint(rotated, RotationDeg(-yaw))
			if !pointsEqual(back, p) {
				t.Errorf("yaw %v: round trip of %v = %v", yaw, p, back)
			}
		}
	}
}

func TestMultiplyMatrices(t *testing.T) {
	// Rotate 90 then translate: (1, 2) -> (-2, 1) -> (1, 5)
	got := TransformPoint(Point{X: 1, Y: 2}, MultiplyMatrices(Translation(3, 4), RotationDeg(90)))
	if want := (Point{X: 1, Y: 5}); !pointsEqual(got, want) {
		t.Errorf("rotate then translate = %v, want %v", got, want)
	}

	// Translate then rotate: (1, 2) -> (4, 6) -> (-6, 4)
	got = TransformPoint(Point{X: 1, Y: 2}, MultiplyMatrices(RotationDeg(90), Translation(3, 4)))
	if want := (Point{X: -6, Y: 4}); !pointsEqual(got, want) {
		t.Errorf("translate then rotate = %v, want %v", got, want)
	}
}

func TestInvertMatrix(t *testing.T) {
	tests := []struct {
		name   string
		matrix AffineMatrix
	}{
		{"identity", Identity()},
		{"translation", Translation(5, -3)},
		{"rotation", RotationDeg(37)},
		{"rotation translation", RoverToWorldMatrix(Pose{X: 100, Y: 40, Yaw: 215})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Point{X: 7, Y: -11}
			back := TransformPoint(TransformPoint(p, tt.matrix), InvertMatrix(tt.matrix))
			if !pointsEqual(back, p) {
				t.Errorf("inverse round trip = %v, want %v", back, p)
			}
		})
	}

	singular := AffineMatrix{A: 1, B: 2, C: 2, D: 4}
	if got := InvertMatrix(singular); got != Identity() {
		t.Errorf("InvertMatrix(singular) = %+v, want identity", got)
	}
}

func TestWorldToRover(t *testing.T) {
	tests := []struct {
		name  string
		world Point
		pose  Pose
		want  Point
	}{
		{"ahead facing east", Point{X: 15, Y: 10}, Pose{X: 10, Y: 10, Yaw: 0}, Point{X: 5, Y: 0}},
		{"left facing east", Point{X: 10, Y: 12}, Pose{X: 10, Y: 10, Yaw: 0}, Point{X: 0, Y: 2}},
		{"ahead facing north", Point{X: 10, Y: 13}, Pose{X: 10, Y: 10, Yaw: 90}, Point{X: 3, Y: 0}},
		{"behind facing west", Point{X: 14, Y: 10}, Pose{X: 10, Y: 10, Yaw: 180}, Point{X: -4, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WorldToRover(tt.world, tt.pose)
			if !pointsEqual(got, tt.want) {
				t.Errorf("WorldToRover() = %v, want %v", got, tt.want)
			}
			if back := RoverToWorld([]Point{got}, tt.pose)[0]; !pointsEqual(back, tt.world) {
				t.Errorf("RoverToWorld(WorldToRover()) = %v, want %v", back, tt.world)
			}
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{-10, 350},
		{725, 5},
		{359.5, 359.5},
	}
	for _, tt := range tests {
		if got := NormalizeAngle(tt.in); !almostEqual(got, tt.want) {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSignedAngleDiff(t *testing.T) {
	tests := []struct {
		name     string
		from, to float64
		want     float64
	}{
		{"same", 45, 45, 0},
		{"small left", 10, 20, 10},
		{"small right", 20, 10, -10},
		{"across zero left", 350, 5, 15},
		{"across zero right", 5, 350, -15},
		{"opposite", 0, 180, 180},
		{"just past opposite", 0, 181, -179},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SignedAngleDiff(tt.from, tt.to); !almostEqual(got, tt.want) {
				t.Errorf("SignedAngleDiff(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestLevelDeviation(t *testing.T) {
	if got := LevelDeviation(359.5); !almostEqual(got, 0.5) {
		t.Errorf("LevelDeviation(359.5) = %v, want 0.5", got)
	}
	if got := LevelDeviation(0.8); !almostEqual(got, 0.8) {
		t.Errorf("LevelDeviation(0.8) = %v, want 0.8", got)
	}
	if got := LevelDeviation(5); !almostEqual(got, 5) {
		t.Errorf("LevelDeviation(5) = %v, want 5", got)
	}
}

func TestMaskToRover(t *testing.T) {
	m := NewMask(10, 20)
	m.Set(5, 19, true) // bottom row, center column
	m.Set(0, 0, true)  // top left

	got := MaskToRover(m, 10)
	if len(got) != 2 {
		t.Fatalf("MaskToRover() returned %d points, want 2", len(got))
	}
	// Row-major scan: top-left first.
	if !pointsEqual(got[0], Point{X: 2.0, Y: 0.5}) {
		t.Errorf("top-left = %v, want {2 0.5}", got[0])
	}
	if !pointsEqual(got[1], Point{X: 0.1, Y: 0}) {
		t.Errorf("bottom-center = %v, want {0.1 0}", got[1])
	}

	if MaskToRover(nil, 10) != nil {
		t.Error("MaskToRover(nil) should be nil")
	}
}

func TestToPolar(t *testing.T) {
	got := ToPolar([]Point{{X: 3, Y: 4}, {X: 0, Y: -2}, {X: -1, Y: 0}})
	want := []PolarPoint{
		{Dist: 5, Angle: math.Atan2(4, 3)},
		{Dist: 2, Angle: -math.Pi / 2},
		{Dist: 1, Angle: math.Pi},
	}
	for i := range want {
		if !almostEqual(got[i].Dist, want[i].Dist) || !almostEqual(got[i].Angle, want[i].Angle) {
			t.Errorf("ToPolar()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFilterRange(t *testing.T) {
	points := []Point{{X: 0.2, Y: 0}, {X: 0.5, Y: 0}, {X: 3, Y: 4}, {X: 4, Y: 0}, {X: 6, Y: 0}}
	got := FilterRange(points, 0.5, 5)
	want := []Point{{X: 0.5, Y: 0}, {X: 4, Y: 0}}
	if len(got) != len(want) {
		t.Fatalf("FilterRange() = %v, want %v", got, want)
	}
	for i := range want {
		if !pointsEqual(got[i], want[i]) {
			t.Errorf("FilterRange()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRoverToWorld(t *testing.T) {
	pose := Pose{X: 10, Y: 10, Yaw: 90}
	got := RoverToWorld([]Point{{X: 2, Y: 0}, {X: 0, Y: 1}}, pose)
	want := []Point{{X: 10, Y: 12}, {X: 9, Y: 10}}
	for i := range want {
		if !pointsEqual(got[i], want[i]) {
			t.Errorf("RoverToWorld()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWorldToCell(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want WorldPoint
	}{
		{"inside", Point{X: 12.7, Y: 30.2}, WorldPoint{Row: 30, Col: 12}},
		{"negative clamps to zero", Point{X: -3, Y: -0.5}, WorldPoint{Row: 0, Col: 0}},
		{"beyond clamps to edge", Point{X: 500, Y: 199.9}, WorldPoint{Row: 199, Col: 199}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorldToCell(tt.p, 1, 200); got != tt.want {
				t.Errorf("WorldToCell(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestClampCellIdempotent(t *testing.T) {
	for row := 0; row < 20; row += 3 {
		for col := 0; col < 20; col += 7 {
			wp := WorldPoint{Row: row, Col: col}
			if got := ClampCell(wp, 20); got != wp {
				t.Errorf("ClampCell(%v) = %v, want unchanged", wp, got)
			}
			if twice := ClampCell(ClampCell(wp, 20), 20); twice != wp {
				t.Errorf("ClampCell twice (%v) = %v", wp, twice)
			}
		}
	}
}

func TestMeanAngleDeg(t *testing.T) {
	if got := MeanAngleDeg(nil); got != 0 {
		t.Errorf("MeanAngleDeg(nil) = %v, want 0", got)
	}
	got := MeanAngleDeg([]PolarPoint{{Angle: math.Pi / 4}, {Angle: -math.Pi / 4}, {Angle: math.Pi / 2}})
	if !almostEqual(got, 30) {
		t.Errorf("MeanAngleDeg() = %v, want 30", got)
	}
}

func TestBearingDeg(t *testing.T) {
	if got := BearingDeg(Point{X: 0, Y: 0}, Point{X: 0, Y: 5}); !almostEqual(got, 90) {
		t.Errorf("BearingDeg north = %v, want 90", got)
	}
	if got := BearingDeg(Point{X: 5, Y: 5}, Point{X: 5, Y: 0}); !almostEqual(got, 270) {
		t.Errorf("BearingDeg south = %v, want 270", got)
	}
}

func TestDistanceAndCentroid(t *testing.T) {
	if got := Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}); !almostEqual(got, 5) {
		t.Errorf("Distance() = %v, want 5", got)
	}
	c := Centroid([]Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}})
	if !pointsEqual(c, Point{X: 2, Y: 2}) {
		t.Errorf("Centroid() = %v, want {2 2}", c)
	}
}

func BenchmarkMaskToRover(b *testing.B) {
	m := NewMask(320, 160)
	for i := range m.Bits {
		m.Bits[i] = i%3 == 0
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MaskToRover(m, 10)
	}
}
