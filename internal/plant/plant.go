// Package plant models the translational dynamics of a quadrotor driven by
// attitude commands.
//
// The model is deliberately simple: a point mass under a quadratic thrust
// curve, a first-order attitude response and linear drag, with an optional
// constant wind force. It is the closed-loop counterpart of the attitude
// controllers: the command's tilt pair is interpreted in the same Y-negated
// convention the control laws emit, so a loop closed around this plant
// converges in plain world coordinates.
package plant

import (
	"math"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/config"
	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// State vector layout: position, velocity, attitude.
const (
	iPX = iota
	iPY
	iPZ
	iVX
	iVY
	iVZ
	iRoll
	iPitch
	iYaw
	stateDim
)

// Control vector layout: the attitude command.
const (
	iCmdRoll = iota
	iCmdPitch
	iCmdYaw
	iCmdThrust
	controlDim
)

const minAttitudeTau = 1e-3

type Quadrotor struct {
	Mass    float64
	Gravity float64
	Motor   uav.MotorParams

	// AttitudeTau is the time constant of the first-order attitude response.
	AttitudeTau float64

	// DragCoeff is the linear velocity drag per unit mass times mass, N/(m/s).
	DragCoeff float64

	// Wind is a constant world-frame force, N.
	Wind uav.Vec2

	FrameID string
}

func NewQuadrotor() *Quadrotor {
	return &Quadrotor{
		Mass:        config.DefaultUAVMass,
		Gravity:     config.DefaultG,
		Motor:       uav.MotorParams{A: 0.175, B: -0.148},
		AttitudeTau: 0.15,
		DragCoeff:   0.1,
		FrameID:     "sim/world",
	}
}

// FromConfig builds a plant matching the controller's idea of the vehicle.
func FromConfig(cfg *config.Config) *Quadrotor {
	q := NewQuadrotor()
	q.Mass = cfg.UAVMass
	q.Gravity = cfg.G
	q.Motor = cfg.Motor()
	return q
}

func (q *Quadrotor) StateDim() int   { return stateDim }
func (q *Quadrotor) ControlDim() int { return controlDim }

// Derivative implements sim.Dynamics. The command is a zero-order hold over
// the step.
func (q *Quadrotor) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	vx, vy, vz := x[iVX], x[iVY], x[iVZ]
	roll, pitch, yaw := x[iRoll], x[iPitch], x[iYaw]

	thrust := u[iCmdThrust]
	if thrust > 1 {
		thrust = 1
	}

	// Invert the thrust curve back to collective force. Below the curve's
	// zero crossing the motors are effectively off.
	force := 0.0
	if thrust > 0 {
		sq := (thrust - q.Motor.B) / q.Motor.A
		force = sq * sq
	}
	acc := force / q.Mass

	// The attitude pair (pitch, roll) lives in the body frame of the
	// Y-negated convention; undo the yaw rotation the controllers applied.
	tilt := uav.Vec2{X: pitch, Y: roll}.Rotated(-yaw)

	ax := acc*math.Sin(tilt.X) - q.DragCoeff*vx + q.Wind.X/q.Mass
	ay := -acc*math.Sin(tilt.Y) - q.DragCoeff*vy + q.Wind.Y/q.Mass
	az := acc*math.Cos(roll)*math.Cos(pitch) - q.Gravity - q.DragCoeff*vz

	tau := q.AttitudeTau
	if tau < minAttitudeTau {
		tau = minAttitudeTau
	}

	return sim.State{
		vx, vy, vz,
		ax, ay, az,
		(u[iCmdRoll] - roll) / tau,
		(u[iCmdPitch] - pitch) / tau,
		wrapAngle(u[iCmdYaw]-yaw) / tau,
	}
}

// InitialState returns a state at rest in level attitude.
func (q *Quadrotor) InitialState(pos uav.Vec3) sim.State {
	x := make(sim.State, stateDim)
	x[iPX], x[iPY], x[iPZ] = pos.X, pos.Y, pos.Z
	return x
}

// UAVState implements sim.Vehicle: it views a state vector the way the
// controllers expect odometry.
func (q *Quadrotor) UAVState(x sim.State, stamp time.Time) *uav.State {
	return &uav.State{
		Stamp:       stamp,
		FrameID:     q.FrameID,
		Position:    uav.Vec3{X: x[iPX], Y: x[iPY], Z: x[iPZ]},
		Velocity:    uav.Vec3{X: x[iVX], Y: x[iVY], Z: x[iVZ]},
		Orientation: uav.FromRPY(x[iRoll], x[iPitch], x[iYaw]),
	}
}

// ControlVector implements sim.Vehicle.
func (q *Quadrotor) ControlVector(cmd *uav.AttitudeCommand) sim.Control {
	return sim.Control{cmd.Roll, cmd.Pitch, cmd.Yaw, cmd.Thrust}
}

// HoverCommand is the command that holds the vehicle still in calm air,
// suitable as the handover command when activating a controller.
func (q *Quadrotor) HoverCommand() *uav.AttitudeCommand {
	return &uav.AttitudeCommand{
		Stamp:      time.Now(),
		Thrust:     q.Motor.HoverThrust(q.Mass, q.Gravity),
		TotalMass:  q.Mass,
		Controller: "hover",
	}
}

func (q *Quadrotor) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":         q.Mass,
		"gravity":      q.Gravity,
		"drag":         q.DragCoeff,
		"attitude_tau": q.AttitudeTau,
		"wind_x":       q.Wind.X,
		"wind_y":       q.Wind.Y,
	}
}

func (q *Quadrotor) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return sim.ErrParameterBounds
		}
		q.Mass = value
	case "gravity":
		if value <= 0 {
			return sim.ErrParameterBounds
		}
		q.Gravity = value
	case "drag":
		if value < 0 {
			return sim.ErrParameterBounds
		}
		q.DragCoeff = value
	case "attitude_tau":
		if value < minAttitudeTau {
			return sim.ErrParameterBounds
		}
		q.AttitudeTau = value
	case "wind_x":
		q.Wind.X = value
	case "wind_y":
		q.Wind.Y = value
	default:
		return sim.ErrUnknownParameter
	}
	return nil
}

func wrapAngle(a float64) float64 {
	return math.Atan2(math.Sin(a), math.Cos(a))
}
