package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

func TestGetTrajectory(t *testing.T) {
	for _, name := range []string{"hover", "step", "circle"} {
		traj, err := GetTrajectory(name)
		if err != nil {
			t.Errorf("GetTrajectory(%q) failed: %v", name, err)
			continue
		}
		if traj.Name() != name {
			t.Errorf("name mismatch: got %q, expected %q", traj.Name(), name)
		}
	}

	if _, err := GetTrajectory("spiral"); !errors.Is(err, ErrUnknownTrajectory) {
		t.Errorf("unknown name should be rejected, got %v", err)
	}
}

func TestListTrajectories(t *testing.T) {
	names := ListTrajectories()
	if len(names) != 3 {
		t.Fatalf("trajectory count: got %d, expected 3", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}

func TestHover_ConstantReference(t *testing.T) {
	traj := &Hover{Position: uav.Vec3{X: 1, Y: 2, Z: 3}, Yaw: 0.5}

	for _, tm := range []float64{0, 1.5, 100} {
		ref := traj.Reference(tm)
		if ref.Position != traj.Position {
			t.Errorf("t=%.1f: position %v, expected %v", tm, ref.Position, traj.Position)
		}
		if ref.Velocity != (uav.Vec3{}) || ref.Acceleration != (uav.Vec3{}) {
			t.Errorf("t=%.1f: hover should have zero velocity and acceleration", tm)
		}
		if ref.Yaw != 0.5 {
			t.Errorf("t=%.1f: yaw %v, expected 0.5", tm, ref.Yaw)
		}
	}
}

func TestStep_SwitchesAtTime(t *testing.T) {
	traj := &Step{
		From: uav.Vec3{Z: 1},
		To:   uav.Vec3{X: 1, Z: 2},
		At:   1.0,
	}

	if ref := traj.Reference(0.99); ref.Position != traj.From {
		t.Errorf("before the step: got %v, expected %v", ref.Position, traj.From)
	}
	if ref := traj.Reference(1.0); ref.Position != traj.To {
		t.Errorf("at the step: got %v, expected %v", ref.Position, traj.To)
	}
	if ref := traj.Reference(5.0); ref.Position != traj.To {
		t.Errorf("after the step: got %v, expected %v", ref.Position, traj.To)
	}
}

// The circle's velocity and acceleration must be the actual derivatives of
// its position, otherwise the feed-forward terms fight the position loop.
func TestCircle_ConsistentDerivatives(t *testing.T) {
	traj := &Circle{
		Center: uav.Vec3{Z: 1.5},
		Radius: 2.0,
		Omega:  0.7,
	}

	const h = 1e-6
	for _, tm := range []float64{0, 0.3, 2.1, 7.9} {
		ref := traj.Reference(tm)
		plus := traj.Reference(tm + h)
		minus := traj.Reference(tm - h)

		numVX := (plus.Position.X - minus.Position.X) / (2 * h)
		numVY := (plus.Position.Y - minus.Position.Y) / (2 * h)
		if math.Abs(numVX-ref.Velocity.X) > 1e-5 || math.Abs(numVY-ref.Velocity.Y) > 1e-5 {
			t.Errorf("t=%.1f: velocity (%.6f, %.6f) disagrees with position derivative (%.6f, %.6f)",
				tm, ref.Velocity.X, ref.Velocity.Y, numVX, numVY)
		}

		numAX := (plus.Velocity.X - minus.Velocity.X) / (2 * h)
		numAY := (plus.Velocity.Y - minus.Velocity.Y) / (2 * h)
		if math.Abs(numAX-ref.Acceleration.X) > 1e-5 || math.Abs(numAY-ref.Acceleration.Y) > 1e-5 {
			t.Errorf("t=%.1f: acceleration (%.6f, %.6f) disagrees with velocity derivative (%.6f, %.6f)",
				tm, ref.Acceleration.X, ref.Acceleration.Y, numAX, numAY)
		}
	}
}

func TestCircle_TangentYaw(t *testing.T) {
	traj := &Circle{Radius: 1.0, Omega: 0.5, TangentYaw: true}

	for _, tm := range []float64{0, 1.0, 4.2} {
		ref := traj.Reference(tm)
		want := math.Atan2(ref.Velocity.Y, ref.Velocity.X)
		if math.Abs(ref.Yaw-want) > 1e-12 {
			t.Errorf("t=%.1f: yaw %.6f, expected tangent %.6f", tm, ref.Yaw, want)
		}
	}

	fixed := &Circle{Radius: 1.0, Omega: 0.5, Yaw: 0.25}
	if ref := fixed.Reference(3.0); ref.Yaw != 0.25 {
		t.Errorf("fixed yaw: got %v, expected 0.25", ref.Yaw)
	}
}
