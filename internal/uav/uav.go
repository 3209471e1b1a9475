package uav

import (
	"math"
	"time"
)

// Version is matched against the version field of configuration files during
// controller initialization. A mismatch aborts initialization.
const Version = "0.3.0"

type State struct {
	Stamp       time.Time
	FrameID     string
	Position    Vec3
	Velocity    Vec3
	Orientation Quaternion
}

type Reference struct {
	Position     Vec3
	Velocity     Vec3
	Acceleration Vec3
	Yaw          float64

	// DisablePositionGains requests muting of the lateral gains, typically
	// during payload handover or takeoff.
	DisablePositionGains bool
}

// Disturbance carries the integral estimator state in both angle form (rad)
// and force form (N), in the body and world frames. BodyForceWorld is the
// body-frame integral re-expressed in the world frame at the current yaw.
type Disturbance struct {
	BodyAngle      Vec2
	BodyForce      Vec2
	BodyForceWorld Vec2
	WorldAngle     Vec2
	WorldForce     Vec2
}

type AttitudeCommand struct {
	Stamp          time.Time
	Roll           float64
	Pitch          float64
	Yaw            float64
	Thrust         float64
	TotalMass      float64
	MassDifference float64
	Disturbance    Disturbance
	Controller     string
}

type Status struct {
	Active bool
}

// MotorParams is the quadratic thrust curve fit: a command of
// sqrt(force)*A + B produces the given total thrust force.
type MotorParams struct {
	A float64
	B float64
}

// HoverThrust returns the normalized throttle that balances gravity for the
// given total mass.
func (m MotorParams) HoverThrust(mass, g float64) float64 {
	return math.Sqrt(mass*g)*m.A + m.B
}

// TransformFunc transforms a vector between two named coordinate frames.
// Implementations are synchronous and may fail (unknown frame, no transform
// available yet).
type TransformFunc func(fromFrame, toFrame string, v Vec3) (Vec3, error)

// Controller is the contract shared by all controllers.
//
// Update returns nil while the controller is inactive and on cycles that
// produce no new command (first cycle after activation is an exception: it
// returns the activation snapshot). Activate reports whether activation
// succeeded; controllers that prime their estimators from the previous
// command refuse to activate without one.
type Controller interface {
	Activate(last *AttitudeCommand) bool
	Deactivate()
	Update(state *State, ref *Reference) *AttitudeCommand
	Status() Status
	SwitchOdometrySource(frameID string)
	ResetDisturbanceEstimators()
}
