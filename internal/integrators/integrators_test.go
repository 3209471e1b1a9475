package integrators

import (
	"math"
	"testing"

	"github.com/zejdajan/mrs-uav-controllers/internal/plant"
	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// lagDynamics is a first-order response toward a commanded value, the same
// shape as the plant's attitude channels, with the closed form
// u + (x0-u)*exp(-t/tau).
type lagDynamics struct {
	tau float64
}

func (l *lagDynamics) StateDim() int   { return 1 }
func (l *lagDynamics) ControlDim() int { return 1 }

func (l *lagDynamics) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	return sim.State{(u[0] - x[0]) / l.tau}
}

func exactLag(x0, u, tau, t float64) float64 {
	return u + (x0-u)*math.Exp(-t/tau)
}

func TestEuler_FirstOrderLag(t *testing.T) {
	dyn := &lagDynamics{tau: 0.15}
	integ := NewEuler()

	u := sim.Control{0.5}
	dt := 0.001
	steps := 1000

	x := sim.State{0.0}
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, u, float64(i)*dt, dt)
	}

	expected := exactLag(0.0, 0.5, 0.15, float64(steps)*dt)
	if math.Abs(x[0]-expected) > 5e-3 {
		t.Errorf("lag response error too large: got %.6f, expected %.6f", x[0], expected)
	}
}

func TestRK4_FirstOrderLag(t *testing.T) {
	dyn := &lagDynamics{tau: 0.15}
	integ := NewRK4()

	u := sim.Control{0.5}
	dt := 0.01
	steps := 100

	x := sim.State{0.0}
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, u, float64(i)*dt, dt)
	}

	expected := exactLag(0.0, 0.5, 0.15, float64(steps)*dt)
	if math.Abs(x[0]-expected) > 1e-6 {
		t.Errorf("lag response error too large: got %.9f, expected %.9f", x[0], expected)
	}
}

func TestRK4_MoreAccurateThanEuler(t *testing.T) {
	dyn := &lagDynamics{tau: 0.15}
	euler := NewEuler()
	rk4 := NewRK4()

	u := sim.Control{0.5}
	dt := 0.01
	steps := 100

	xe := sim.State{0.0}
	xr := sim.State{0.0}
	for i := 0; i < steps; i++ {
		xe = euler.Step(dyn, xe, u, float64(i)*dt, dt)
		xr = rk4.Step(dyn, xr, u, float64(i)*dt, dt)
	}

	expected := exactLag(0.0, 0.5, 0.15, float64(steps)*dt)
	if math.Abs(xr[0]-expected) >= math.Abs(xe[0]-expected) {
		t.Errorf("RK4 error %.2e should beat Euler error %.2e",
			math.Abs(xr[0]-expected), math.Abs(xe[0]-expected))
	}
}

func TestRK45_AdaptiveStepSizing(t *testing.T) {
	dyn := &lagDynamics{tau: 0.15}
	integ := NewRK45()
	u := sim.Control{0.5}

	// Smooth dynamics at a loose tolerance: the suggested step grows.
	x, dtNew, err := integ.StepAdaptive(dyn, sim.State{0.0}, u, 0, 0.001, 1e-3)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if dtNew <= 0.001 {
		t.Errorf("loose tolerance should suggest a larger step, got %.6f", dtNew)
	}

	// A huge step at a tight tolerance: the suggested step shrinks.
	_, dtNew, err = integ.StepAdaptive(dyn, sim.State{0.0}, u, 0, 0.5, 1e-12)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if dtNew >= 0.5 {
		t.Errorf("tight tolerance should suggest a smaller step, got %.6f", dtNew)
	}
}

func TestRK45_FirstOrderLag(t *testing.T) {
	dyn := &lagDynamics{tau: 0.15}
	integ := NewRK45()

	u := sim.Control{0.5}
	dt := 0.01
	steps := 100

	x := sim.State{0.0}
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, u, float64(i)*dt, dt)
	}

	expected := exactLag(0.0, 0.5, 0.15, float64(steps)*dt)
	if math.Abs(x[0]-expected) > 1e-7 {
		t.Errorf("lag response error too large: got %.12f, expected %.12f", x[0], expected)
	}
}

func benchStep(b *testing.B, integ sim.Integrator) {
	q := plant.NewQuadrotor()
	x := q.InitialState(uav.Vec3{Z: 1.0})
	u := q.ControlVector(q.HoverCommand())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(q, x, u, 0, 0.01)
	}
}

func BenchmarkEuler(b *testing.B) { benchStep(b, NewEuler()) }
func BenchmarkRK4(b *testing.B)   { benchStep(b, NewRK4()) }
func BenchmarkRK45(b *testing.B)  { benchStep(b, NewRK45()) }
