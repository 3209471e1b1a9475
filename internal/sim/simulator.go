package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// Simulator drives one controller against one vehicle along a trajectory.
//
// The controller must already be active when Run is called; activating it is
// the caller's handover decision, not the simulator's. When the controller
// returns nil (inactive, or a first-iteration handover) the previous control
// vector is held, zero before the first command.
type Simulator struct {
	vehicle    Vehicle
	integrator Integrator
	controller uav.Controller
	trajectory Trajectory
	metrics    []Metric
	observers  []Observer
}

func New(vehicle Vehicle, integrator Integrator, controller uav.Controller, trajectory Trajectory) *Simulator {
	return &Simulator{
		vehicle:    vehicle,
		integrator: integrator,
		controller: controller,
		trajectory: trajectory,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		Times:    make([]float64, 0, steps+1),
		States:   make([]State, 0, steps+1),
		Controls: make([]Control, 0, steps),
		Refs:     make([]uav.Vec3, 0, steps),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	u := make(Control, s.vehicle.ControlDim())
	epoch := time.Now()

	if ca, ok := s.controller.(ClockAware); ok {
		ca.SetClock(func() time.Time { return epoch.Add(simDuration(t)) })
	}

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	ticker, _ := s.controller.(GainFilterTicker)
	filterPeriod := 0.0
	if cfg.FilterRate > 0 {
		filterPeriod = 1.0 / cfg.FilterRate
	}
	nextFilter := filterPeriod

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		ref := s.trajectory.Reference(t)
		st := s.vehicle.UAVState(x, epoch.Add(simDuration(t)))
		if cmd := s.controller.Update(st, ref); cmd != nil {
			u = s.vehicle.ControlVector(cmd)
		}

		for _, m := range s.metrics {
			m.Observe(x, u, ref, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, ref, t)
		}

		newX := s.integrator.Step(s.vehicle, x, u, t, cfg.Dt)

		if cfg.ValidateState && !newX.IsValid() {
			return result, &StepError{Step: i, Time: t, Wrapped: ErrInvalidState}
		}
		if cfg.Bound > 0 && newX.Norm() > cfg.Bound {
			return result, &StepError{Step: i, Time: t, Wrapped: ErrUnstable}
		}

		x = newX
		t += cfg.Dt
		result.StepsTaken++

		if ticker != nil && filterPeriod > 0 {
			for nextFilter <= t {
				ticker.GainFilterTick()
				nextFilter += filterPeriod
			}
		}

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u.Clone())
		result.Refs = append(result.Refs, ref.Position)
		result.Times = append(result.Times, t)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback streams steps to the callback instead of collecting a
// result; returning false stops the run. Live views use this.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 State, cfg Config, callback func(x State, u Control, ref *uav.Reference, t float64) bool) error {
	if err := s.validate(x0, cfg); err != nil {
		return err
	}

	x := x0.Clone()
	t := 0.0
	u := make(Control, s.vehicle.ControlDim())
	epoch := time.Now()

	if ca, ok := s.controller.(ClockAware); ok {
		ca.SetClock(func() time.Time { return epoch.Add(simDuration(t)) })
	}

	ticker, _ := s.controller.(GainFilterTicker)
	filterPeriod := 0.0
	if cfg.FilterRate > 0 {
		filterPeriod = 1.0 / cfg.FilterRate
	}
	nextFilter := filterPeriod

	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ref := s.trajectory.Reference(t)
		st := s.vehicle.UAVState(x, epoch.Add(simDuration(t)))
		if cmd := s.controller.Update(st, ref); cmd != nil {
			u = s.vehicle.ControlVector(cmd)
		}

		if !callback(x, u, ref, t) {
			return nil
		}

		x = s.integrator.Step(s.vehicle, x, u, t, cfg.Dt)
		t += cfg.Dt

		if cfg.ValidateState && !x.IsValid() {
			return fmt.Errorf("invalid state at t=%.4f: %w", t, ErrInvalidState)
		}

		if ticker != nil && filterPeriod > 0 {
			for nextFilter <= t {
				ticker.GainFilterTick()
				nextFilter += filterPeriod
			}
		}
	}

	return nil
}

func (s *Simulator) validate(x0 State, cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrConfig, cfg.Duration)
	}
	if len(x0) != s.vehicle.StateDim() {
		return fmt.Errorf("%w: got %d, vehicle wants %d", ErrDimensionMismatch, len(x0), s.vehicle.StateDim())
	}
	return nil
}

func simDuration(t float64) time.Duration {
	return time.Duration(t * float64(time.Second))
}
