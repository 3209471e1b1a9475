package uav

import "math"

// Quaternion is a unit orientation quaternion (scalar first).
type Quaternion struct {
	W, X, Y, Z float64
}

// RPY extracts the ZYX Euler angles (roll about X, pitch about Y, yaw about Z)
// from the quaternion. The pitch argument is coerced into [-1, 1] so a
// slightly denormalized quaternion cannot produce NaN at the singularity.
func (q Quaternion) RPY() (roll, pitch, yaw float64) {
	sp := 2 * (q.W*q.Y - q.Z*q.X)
	if sp > 1 {
		sp = 1
	} else if sp < -1 {
		sp = -1
	}
	pitch = math.Asin(sp)
	yaw = math.Atan2(q.W*q.Z+q.X*q.Y, 0.5-(q.Y*q.Y+q.Z*q.Z))
	roll = math.Atan2(q.W*q.X+q.Y*q.Z, 0.5-(q.Y*q.Y+q.X*q.X))
	return roll, pitch, yaw
}

// FromRPY builds the quaternion for the given ZYX Euler angles.
func FromRPY(roll, pitch, yaw float64) Quaternion {
	sph, cph := math.Sincos(roll / 2)
	sth, cth := math.Sincos(pitch / 2)
	sps, cps := math.Sincos(yaw / 2)
	return Quaternion{
		W: cps*cth*cph + sps*sth*sph,
		X: cps*cth*sph - sps*sth*cph,
		Y: cps*sth*cph + sps*cth*sph,
		Z: sps*cth*cph - cps*sth*sph,
	}
}

// Norm returns the quaternion magnitude.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalized returns the unit quaternion with the same orientation. The zero
// quaternion normalizes to identity.
func (q Quaternion) Normalized() Quaternion {
	n := q.Norm()
	if n == 0 {
		return Quaternion{W: 1}
	}
	return Quaternion{q.W / n, q.X / n, q.Y / n, q.Z / n}
}
