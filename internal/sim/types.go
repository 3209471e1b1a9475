// Package sim closes the loop between an attitude controller and a vehicle
// model.
//
// States are flat vectors so integrators stay generic; the [Vehicle]
// interface owns the translation between vectors and the odometry/command
// types the controllers speak.
package sim

import (
	"math"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Vehicle is a Dynamics that can speak the controller's types.
type Vehicle interface {
	Dynamics
	UAVState(x State, stamp time.Time) *uav.State
	ControlVector(cmd *uav.AttitudeCommand) Control
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

// GainFilterTicker is implemented by controllers whose gains are retuned by
// a fixed-rate filter; the simulator drives the ticks in simulated time.
type GainFilterTicker interface {
	GainFilterTick()
}

// ClockAware is implemented by controllers that consult a clock internally;
// the simulator hands them simulated time so their rate guards see the
// step cadence, not the host's.
type ClockAware interface {
	SetClock(now func() time.Time)
}

type Metric interface {
	Name() string
	Observe(x State, u Control, ref *uav.Reference, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, ref *uav.Reference, t float64)
}

// Configurable is implemented by models with live-editable parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt       float64
	Duration float64

	// FilterRate drives gain filter ticks in simulated time; zero disables
	// them.
	FilterRate float64

	ValidateState bool

	// Bound aborts the run when the state norm exceeds it; zero disables the
	// check.
	Bound float64
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		ValidateState: true,
		Bound:         500.0,
	}
}

type Result struct {
	Times    []float64
	States   []State
	Controls []Control
	Refs     []uav.Vec3
	Metrics  map[string]float64

	StepsTaken int
}
