package metrics

import (
	"math"
	"testing"

	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

func stateAt(pos uav.Vec3) sim.State {
	return sim.State{pos.X, pos.Y, pos.Z, 0, 0, 0, 0, 0, 0}
}

func TestTrackingError_RMS(t *testing.T) {
	m := NewTrackingError()
	ref := &uav.Reference{Position: uav.Vec3{Z: 1.0}}

	m.Observe(stateAt(uav.Vec3{Z: 1.0}), sim.Control{0, 0, 0, 0.6}, ref, 0)
	m.Observe(stateAt(uav.Vec3{Z: 0.0}), sim.Control{0, 0, 0, 0.6}, ref, 0.01)

	// Errors 0 and 1: RMS is sqrt(1/2).
	expected := math.Sqrt(0.5)
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("RMS tracking error: got %.9f, expected %.9f", m.Value(), expected)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("value after reset: got %.9f, expected 0", m.Value())
	}
}

func TestControlEffort_IgnoresYaw(t *testing.T) {
	m := NewControlEffort()
	ref := &uav.Reference{}

	m.Observe(stateAt(uav.Vec3{}), sim.Control{0.1, -0.2, 3.0, 0.6}, ref, 0)

	// |roll| + |pitch| + thrust; the yaw component must not count.
	if math.Abs(m.Value()-0.9) > 1e-12 {
		t.Errorf("control effort: got %.9f, expected 0.9", m.Value())
	}
}

func TestSaturation_Fraction(t *testing.T) {
	m := NewSaturation(0.7854, 0.8)
	ref := &uav.Reference{}

	m.Observe(stateAt(uav.Vec3{}), sim.Control{0.7854, 0, 0, 0.6}, ref, 0)
	m.Observe(stateAt(uav.Vec3{}), sim.Control{0.1, 0, 0, 0.8}, ref, 0.01)
	m.Observe(stateAt(uav.Vec3{}), sim.Control{0.1, 0, 0, 0.6}, ref, 0.02)
	m.Observe(stateAt(uav.Vec3{}), sim.Control{0.1, 0, 0, 0.0}, ref, 0.03)

	if math.Abs(m.Value()-0.75) > 1e-12 {
		t.Errorf("saturation fraction: got %.6f, expected 0.75", m.Value())
	}
}

func TestSettling_LastViolation(t *testing.T) {
	m := NewSettling(0.05)
	ref := &uav.Reference{Position: uav.Vec3{Z: 1.0}}

	m.Observe(stateAt(uav.Vec3{Z: 0.0}), sim.Control{0, 0, 0, 0.6}, ref, 0)
	m.Observe(stateAt(uav.Vec3{Z: 0.9}), sim.Control{0, 0, 0, 0.6}, ref, 0.5)
	m.Observe(stateAt(uav.Vec3{Z: 0.99}), sim.Control{0, 0, 0, 0.6}, ref, 1.0)
	m.Observe(stateAt(uav.Vec3{Z: 1.0}), sim.Control{0, 0, 0, 0.6}, ref, 1.5)

	if m.Value() != 0.5 {
		t.Errorf("settling time: got %.6f, expected 0.5", m.Value())
	}
}
