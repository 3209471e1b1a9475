// Package uav defines the shared data model for the flight controllers.
//
// The package holds the types that cross the controller boundary:
//
//   - [State]: vehicle state as reported by odometry (position, velocity, orientation)
//   - [Reference]: position/velocity/acceleration/yaw setpoint for one control cycle
//   - [AttitudeCommand]: the controller output (attitude, thrust, mass and
//     disturbance estimates)
//   - [Controller]: the contract every controller implements
//   - [TransformFunc]: injected capability for transforming vectors between
//     coordinate frames
//
// It also provides the small vector and quaternion value types the control
// laws are written in terms of.
//
// # Conventions
//
// Update timing is derived from [State.Stamp], not from the wall clock, so
// replayed logs integrate identically to live data. Disturbance estimates are
// reported both as tilt angles (rad) and as the equivalent lateral forces (N),
// related by force = g * mass * sin(angle).
package uav
