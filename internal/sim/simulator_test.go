package sim_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/config"
	"github.com/zejdajan/mrs-uav-controllers/internal/integrators"
	"github.com/zejdajan/mrs-uav-controllers/internal/metrics"
	"github.com/zejdajan/mrs-uav-controllers/internal/nsf"
	"github.com/zejdajan/mrs-uav-controllers/internal/pid"
	"github.com/zejdajan/mrs-uav-controllers/internal/plant"
	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

func nsfLoop(t *testing.T, traj sim.Trajectory) (*sim.Simulator, *nsf.Controller, *plant.Quadrotor) {
	t.Helper()
	cfg := config.DefaultConfig()
	ctrl, err := nsf.New(cfg, nil, telemetry.Nop())
	if err != nil {
		t.Fatalf("nsf.New failed: %v", err)
	}
	q := plant.FromConfig(cfg)
	if !ctrl.Activate(q.HoverCommand()) {
		t.Fatal("activation failed")
	}
	return sim.New(q, integrators.NewRK4(), ctrl, traj), ctrl, q
}

func pidLoop(t *testing.T, traj sim.Trajectory) (*sim.Simulator, *plant.Quadrotor) {
	t.Helper()
	cfg := config.DefaultConfig()
	ctrl, err := pid.New(cfg, telemetry.Nop())
	if err != nil {
		t.Fatalf("pid.New failed: %v", err)
	}
	q := plant.FromConfig(cfg)
	ctrl.Activate(nil)
	return sim.New(q, integrators.NewRK4(), ctrl, traj), q
}

func TestClosedLoop_NSFHover(t *testing.T) {
	traj := &sim.Hover{Position: uav.Vec3{Z: 1.0}}
	s, _, q := nsfLoop(t, traj)
	s.AddMetric(metrics.NewTrackingError())

	cfg := sim.DefaultConfig()
	cfg.Duration = 8.0
	cfg.FilterRate = config.DefaultFilterRate

	result, err := s.Run(context.Background(), q.InitialState(uav.Vec3{Z: 0.8}), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 800 {
		t.Errorf("steps taken: got %d, expected 800", result.StepsTaken)
	}

	final := result.States[len(result.States)-1]
	if math.Abs(final[2]-1.0) > 0.05 {
		t.Errorf("final altitude: got %.4f, expected 1.0", final[2])
	}
	if math.Abs(final[5]) > 0.05 {
		t.Errorf("final climb rate: got %.4f, expected ~0", final[5])
	}

	rms := result.Metrics["tracking_error_rms"]
	if rms <= 0 || rms > 0.5 {
		t.Errorf("tracking RMS out of range: %.4f", rms)
	}
}

func TestClosedLoop_NSFWindRejection(t *testing.T) {
	traj := &sim.Hover{Position: uav.Vec3{Z: 1.0}}
	s, ctrl, q := nsfLoop(t, traj)
	q.Wind = uav.Vec2{X: 2.0}

	cfg := sim.DefaultConfig()
	cfg.Duration = 12.0
	cfg.FilterRate = config.DefaultFilterRate

	result, err := s.Run(context.Background(), q.InitialState(uav.Vec3{Z: 1.0}), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	final := result.States[len(result.States)-1]
	if math.Abs(final[0]) > 0.05 {
		t.Errorf("wind offset not rejected: x = %.4f", final[0])
	}

	// The integrals must have picked up the wind: the compensation tilts
	// against +X.
	st := q.UAVState(final, time.Now().Add(time.Hour))
	cmd := ctrl.Update(st, traj.Reference(cfg.Duration))
	if cmd == nil {
		t.Fatal("update returned nil")
	}
	total := cmd.Disturbance.WorldAngle.X + cmd.Disturbance.BodyAngle.X
	if total >= -0.005 {
		t.Errorf("disturbance integrals should lean against the wind, got %.5f", total)
	}
}

func TestClosedLoop_PIDStep(t *testing.T) {
	traj, err := sim.GetTrajectory("step")
	if err != nil {
		t.Fatalf("GetTrajectory failed: %v", err)
	}
	s, q := pidLoop(t, traj)

	cfg := sim.DefaultConfig()
	cfg.Duration = 8.0

	result, runErr := s.Run(context.Background(), q.InitialState(uav.Vec3{Z: 1.0}), cfg)
	if runErr != nil {
		t.Fatalf("run failed: %v", runErr)
	}

	final := result.States[len(result.States)-1]
	want := traj.Reference(cfg.Duration).Position
	if math.Abs(final[0]-want.X) > 0.1 ||
		math.Abs(final[1]-want.Y) > 0.1 ||
		math.Abs(final[2]-want.Z) > 0.1 {
		t.Errorf("final position [%.3f, %.3f, %.3f], expected [%.3f, %.3f, %.3f]",
			final[0], final[1], final[2], want.X, want.Y, want.Z)
	}
}

func TestClosedLoop_NSFCircle(t *testing.T) {
	traj, err := sim.GetTrajectory("circle")
	if err != nil {
		t.Fatalf("GetTrajectory failed: %v", err)
	}
	s, _, q := nsfLoop(t, traj)
	s.AddMetric(metrics.NewTrackingError())

	cfg := sim.DefaultConfig()
	cfg.Duration = 15.0
	cfg.FilterRate = config.DefaultFilterRate

	// Start on the circle.
	x0 := q.InitialState(uav.Vec3{X: 1.0, Z: 1.0})
	result, runErr := s.Run(context.Background(), x0, cfg)
	if runErr != nil {
		t.Fatalf("run failed: %v", runErr)
	}

	final := result.States[len(result.States)-1]
	want := traj.Reference(cfg.Duration)
	dx := final[0] - want.Position.X
	dy := final[1] - want.Position.Y
	dz := final[2] - want.Position.Z
	if dist := math.Sqrt(dx*dx + dy*dy + dz*dz); dist > 0.2 {
		t.Errorf("final tracking distance: got %.4f, expected < 0.2", dist)
	}

	// Yaw follows the tangent, allowing for the attitude lag.
	yawErr := math.Atan2(math.Sin(final[8]-want.Yaw), math.Cos(final[8]-want.Yaw))
	if math.Abs(yawErr) > 0.3 {
		t.Errorf("yaw tracking error: got %.4f", yawErr)
	}

	if rms := result.Metrics["tracking_error_rms"]; rms > 0.3 {
		t.Errorf("tracking RMS too high: %.4f", rms)
	}
}

type divergingVehicle struct{}

func (divergingVehicle) StateDim() int   { return 1 }
func (divergingVehicle) ControlDim() int { return 4 }

func (divergingVehicle) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	return sim.State{x[0]}
}

func (divergingVehicle) UAVState(x sim.State, stamp time.Time) *uav.State {
	return &uav.State{Stamp: stamp, FrameID: "diverge", Orientation: uav.Quaternion{W: 1}}
}

func (divergingVehicle) ControlVector(cmd *uav.AttitudeCommand) sim.Control {
	return sim.Control{cmd.Roll, cmd.Pitch, cmd.Yaw, cmd.Thrust}
}

func TestSimulator_DivergenceDetected(t *testing.T) {
	cfg := config.DefaultConfig()
	ctrl, err := pid.New(cfg, telemetry.Nop())
	if err != nil {
		t.Fatalf("pid.New failed: %v", err)
	}
	ctrl.Activate(nil)

	s := sim.New(divergingVehicle{}, integrators.NewRK4(), ctrl, &sim.Hover{})

	scfg := sim.DefaultConfig()
	scfg.Duration = 5.0

	result, runErr := s.Run(context.Background(), sim.State{100.0}, scfg)
	if !errors.Is(runErr, sim.ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", runErr)
	}

	var stepErr *sim.StepError
	if !errors.As(runErr, &stepErr) {
		t.Fatal("expected a StepError")
	}
	if stepErr.Step <= 0 {
		t.Errorf("divergence step: got %d", stepErr.Step)
	}
	if result == nil || result.StepsTaken == 0 {
		t.Error("partial result expected before divergence")
	}
}

type nanVehicle struct{ divergingVehicle }

func (nanVehicle) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	if t > 0.1 {
		return sim.State{math.NaN()}
	}
	return sim.State{0}
}

func TestSimulator_InvalidStateDetected(t *testing.T) {
	cfg := config.DefaultConfig()
	ctrl, err := pid.New(cfg, telemetry.Nop())
	if err != nil {
		t.Fatalf("pid.New failed: %v", err)
	}
	ctrl.Activate(nil)

	s := sim.New(nanVehicle{}, integrators.NewEuler(), ctrl, &sim.Hover{})

	scfg := sim.DefaultConfig()
	scfg.Duration = 1.0

	_, runErr := s.Run(context.Background(), sim.State{0.0}, scfg)
	if !errors.Is(runErr, sim.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", runErr)
	}
}

func TestSimulator_ContextCanceled(t *testing.T) {
	traj := &sim.Hover{Position: uav.Vec3{Z: 1.0}}
	s, _, q := nsfLoop(t, traj)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, q.InitialState(uav.Vec3{Z: 1.0}), sim.DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulator_ConfigValidation(t *testing.T) {
	traj := &sim.Hover{Position: uav.Vec3{Z: 1.0}}
	s, _, q := nsfLoop(t, traj)

	cfg := sim.DefaultConfig()
	cfg.Dt = 0
	if _, err := s.Run(context.Background(), q.InitialState(uav.Vec3{}), cfg); !errors.Is(err, sim.ErrConfig) {
		t.Errorf("zero dt should be rejected, got %v", err)
	}

	if _, err := s.Run(context.Background(), sim.State{1, 2}, sim.DefaultConfig()); !errors.Is(err, sim.ErrDimensionMismatch) {
		t.Errorf("wrong state size should be rejected, got %v", err)
	}
}

type countingController struct {
	ticks int
}

func (c *countingController) Activate(last *uav.AttitudeCommand) bool               { return true }
func (c *countingController) Deactivate()                                           {}
func (c *countingController) Update(st *uav.State, ref *uav.Reference) *uav.AttitudeCommand { return nil }
func (c *countingController) Status() uav.Status                                    { return uav.Status{Active: true} }
func (c *countingController) SwitchOdometrySource(frameID string)                   {}
func (c *countingController) ResetDisturbanceEstimators()                           {}
func (c *countingController) GainFilterTick()                                       { c.ticks++ }

func TestSimulator_GainFilterTicks(t *testing.T) {
	ctrl := &countingController{}
	q := plant.NewQuadrotor()
	s := sim.New(q, integrators.NewEuler(), ctrl, &sim.Hover{Position: uav.Vec3{Z: 1.0}})

	cfg := sim.DefaultConfig()
	cfg.Duration = 1.0
	cfg.FilterRate = 40.0
	cfg.Bound = 0

	if _, err := s.Run(context.Background(), q.InitialState(uav.Vec3{Z: 1.0}), cfg); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if ctrl.ticks < 38 || ctrl.ticks > 41 {
		t.Errorf("filter ticks over 1 s at 40 Hz: got %d", ctrl.ticks)
	}
}

type stepCounter struct {
	steps int
}

func (o *stepCounter) OnStep(x sim.State, u sim.Control, ref *uav.Reference, t float64) {
	o.steps++
}

func TestSimulator_ObserversSeeEveryStep(t *testing.T) {
	traj := &sim.Hover{Position: uav.Vec3{Z: 1.0}}
	s, _, q := nsfLoop(t, traj)

	counter := &stepCounter{}
	s.AddObserver(counter)

	cfg := sim.DefaultConfig()
	cfg.Duration = 1.0

	result, err := s.Run(context.Background(), q.InitialState(uav.Vec3{Z: 1.0}), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if counter.steps != result.StepsTaken {
		t.Errorf("observer steps: got %d, expected %d", counter.steps, result.StepsTaken)
	}
}

func TestSimulator_CallbackStopsRun(t *testing.T) {
	traj := &sim.Hover{Position: uav.Vec3{Z: 1.0}}
	s, _, q := nsfLoop(t, traj)

	calls := 0
	err := s.RunWithCallback(context.Background(), q.InitialState(uav.Vec3{Z: 1.0}), sim.DefaultConfig(),
		func(x sim.State, u sim.Control, ref *uav.Reference, t float64) bool {
			calls++
			return calls < 10
		})
	if err != nil {
		t.Fatalf("callback run failed: %v", err)
	}
	if calls != 10 {
		t.Errorf("callback calls: got %d, expected 10", calls)
	}
}

func TestSweep_IndependentVariants(t *testing.T) {
	drags := []float64{0.05, 0.1, 0.2}

	build := func(variant int) (*sim.Simulator, sim.State) {
		cfg := config.DefaultConfig()
		ctrl, err := nsf.New(cfg, nil, telemetry.Nop())
		if err != nil {
			t.Errorf("nsf.New failed: %v", err)
			return nil, nil
		}
		q := plant.FromConfig(cfg)
		q.DragCoeff = drags[variant]
		ctrl.Activate(q.HoverCommand())

		s := sim.New(q, integrators.NewRK4(), ctrl, &sim.Hover{Position: uav.Vec3{Z: 1.0}})
		s.AddMetric(metrics.NewTrackingError())
		return s, q.InitialState(uav.Vec3{Z: 0.9})
	}

	sweep := sim.NewSweep(build, len(drags))

	cfg := sim.DefaultConfig()
	cfg.Duration = 3.0
	cfg.FilterRate = config.DefaultFilterRate

	results, err := sweep.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != len(drags) {
		t.Fatalf("results: got %d, expected %d", len(results), len(drags))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("variant %d returned no result", i)
		}
		if r.StepsTaken != 300 {
			t.Errorf("variant %d steps: got %d, expected 300", i, r.StepsTaken)
		}
		if _, ok := r.Metrics["tracking_error_rms"]; !ok {
			t.Errorf("variant %d missing tracking metric", i)
		}
	}
}
