package uav

import (
	"math"
	"testing"
)

func TestVec2Rotated(t *testing.T) {
	tests := []struct {
		name  string
		v     Vec2
		angle float64
		want  Vec2
	}{
		{"quarter turn", Vec2{1, 0}, math.Pi / 2, Vec2{0, 1}},
		{"half turn", Vec2{1, 0}, math.Pi, Vec2{-1, 0}},
		{"negative quarter", Vec2{0, 1}, -math.Pi / 2, Vec2{1, 0}},
		{"identity", Vec2{0.3, -0.7}, 0, Vec2{0.3, -0.7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.Rotated(tt.angle)
			if math.Abs(got.X-tt.want.X) > 1e-12 || math.Abs(got.Y-tt.want.Y) > 1e-12 {
				t.Errorf("rotated vector: got (%.6f, %.6f), expected (%.6f, %.6f)",
					got.X, got.Y, tt.want.X, tt.want.Y)
			}
		})
	}
}

func TestVec2RotateRoundTrip(t *testing.T) {
	v := Vec2{0.42, -1.7}
	got := v.Rotated(1.234).Rotated(-1.234)
	if math.Abs(got.X-v.X) > 1e-12 || math.Abs(got.Y-v.Y) > 1e-12 {
		t.Errorf("rotate round trip drifted: got (%.9f, %.9f)", got.X, got.Y)
	}
}

func TestVec3Mul(t *testing.T) {
	gains := Vec3{2, 3, 4}
	err := Vec3{0.5, -1, 0.25}
	got := gains.Mul(err)
	want := Vec3{1, -3, 1}
	if got != want {
		t.Errorf("component-wise product: got %v, expected %v", got, want)
	}
}

func TestVec3IsValid(t *testing.T) {
	if !(Vec3{1, 2, 3}).IsValid() {
		t.Error("finite vector reported invalid")
	}
	if (Vec3{math.NaN(), 0, 0}).IsValid() {
		t.Error("NaN vector reported valid")
	}
	if (Vec3{0, math.Inf(1), 0}).IsValid() {
		t.Error("Inf vector reported valid")
	}
}

func TestMotorParamsHoverThrust(t *testing.T) {
	m := MotorParams{A: 0.175, B: 0.026}
	got := m.HoverThrust(3.0, 9.81)
	want := math.Sqrt(3.0*9.81)*0.175 + 0.026
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("hover thrust: got %.6f, expected %.6f", got, want)
	}
}
