// Package estimator maintains the disturbance and mass estimates for the
// state feedback law.
//
// Two lateral disturbance integrals run in parallel: a body-frame integral
// for disturbances that rotate with the airframe (asymmetric drag, a bent
// propeller) and a world-frame integral for disturbances fixed in the world
// (wind). A scalar mass-difference estimator absorbs payload and battery
// weight error through the vertical position error. All three live under one
// lock and are the last stop in the controller's lock order.
package estimator

import (
	"math"
	"sync"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// Estimator accumulates the body integral Ib_b, the world integral Iw_w
// (both tilt angles, rad) and the mass difference (kg).
type Estimator struct {
	g         float64
	transform uav.TransformFunc
	log       *telemetry.Logger

	mu       sync.Mutex
	ibB      uav.Vec2
	iwW      uav.Vec2
	massDiff float64
}

func New(g float64, transform uav.TransformFunc, log *telemetry.Logger) *Estimator {
	return &Estimator{g: g, transform: transform, log: log}
}

// AccumulateWorld advances the world-frame integral from the horizontal
// position error. A frozen axis accumulates nothing this cycle; the engine
// freezes an axis when its feedback saturated in the direction the error is
// still pushing, which is the anti-windup gate.
func (e *Estimator) AccumulateWorld(errXY uav.Vec2, dt, kiw, lim float64, freezeX, freezeY bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	step := errXY
	if freezeX {
		step.X = 0
	}
	if freezeY {
		step.Y = 0
	}

	e.iwW = e.iwW.Add(step.Scale(kiw * dt))
	e.iwW.X = e.sanitize(e.iwW.X, "iw_x", "Iw_w[0]")
	e.iwW.Y = e.sanitize(e.iwW.Y, "iw_y", "Iw_w[1]")

	var saturated bool
	e.iwW.X, saturated = clamp(e.iwW.X, lim, saturated)
	e.iwW.Y, saturated = clamp(e.iwW.Y, lim, saturated)
	if saturated {
		e.log.WarnEvery(time.Second, "iw_sat", "world disturbance integral is being saturated")
	}
}

// AccumulateBody advances the body-frame integral. The position error is
// rotated by +yaw into the body frame first. There is no anti-windup gate on
// this integral.
func (e *Estimator) AccumulateBody(errXY uav.Vec2, yaw, dt, kib, lim float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	errBody := errXY.Rotated(yaw)
	e.ibB = e.ibB.Add(errBody.Scale(kib * dt))
	e.ibB.X = e.sanitize(e.ibB.X, "ib_x", "Ib_b[0]")
	e.ibB.Y = e.sanitize(e.ibB.Y, "ib_y", "Ib_b[1]")

	var saturated bool
	e.ibB.X, saturated = clamp(e.ibB.X, lim, saturated)
	e.ibB.Y, saturated = clamp(e.ibB.Y, lim, saturated)
	if saturated {
		e.log.WarnEvery(time.Second, "ib_sat", "body disturbance integral is being saturated")
	}
}

// AccumulateMass advances the mass-difference estimate from the vertical
// position error. While thrust is saturated the vertical error says nothing
// about mass, so the estimate holds.
func (e *Estimator) AccumulateMass(errZ, dt, km, lim float64, thrustSaturated bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !thrustSaturated {
		e.massDiff += km * errZ * dt
	}
	e.massDiff = e.sanitize(e.massDiff, "mass", "mass difference")

	var saturated bool
	e.massDiff, saturated = clamp(e.massDiff, lim, saturated)
	if saturated {
		e.log.WarnEvery(time.Second, "mass_sat", "mass difference estimate is being saturated")
	}
}

// Seed primes the estimator from the previous controller's last command so
// the handover is bumpless: stored forces (N) are converted back to tilt
// angles through force = g*m*sin(angle). Forces beyond what the given mass
// can explain saturate the asin argument instead of producing NaN; the
// per-cycle clamps pull the result inside the configured limits on the next
// update.
func (e *Estimator) Seed(prev *uav.AttitudeCommand, totalMass float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.massDiff = prev.MassDifference
	denom := e.g * totalMass
	e.ibB = uav.Vec2{
		X: seedAngle(prev.Disturbance.BodyForce.X, denom),
		Y: seedAngle(prev.Disturbance.BodyForce.Y, denom),
	}
	e.iwW = uav.Vec2{
		X: seedAngle(prev.Disturbance.WorldForce.X, denom),
		Y: seedAngle(prev.Disturbance.WorldForce.Y, denom),
	}
}

func seedAngle(force, denom float64) float64 {
	if denom <= 0 || math.IsNaN(denom) {
		return 0
	}
	a := force / denom
	if math.IsNaN(a) {
		return 0
	}
	if a > 1 {
		a = 1
	} else if a < -1 {
		a = -1
	}
	return math.Asin(a)
}

// Reset zeroes both disturbance integrals. The mass difference is kept; it
// is reset separately on deactivation.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ibB = uav.Vec2{}
	e.iwW = uav.Vec2{}
}

// ResetMass zeroes the mass-difference estimate.
func (e *Estimator) ResetMass() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.massDiff = 0
}

// Reproject re-expresses the world-frame integral in a new coordinate frame
// when the odometry source switches. If the transform fails the integral is
// zeroed: a disturbance estimate in an unknown frame is worse than none.
func (e *Estimator) Reproject(fromFrame, toFrame string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.transform == nil {
		e.log.ErrorEvery(time.Second, "reproject",
			"no transform capability, resetting world disturbance integral")
		e.iwW = uav.Vec2{}
		return
	}

	res, err := e.transform(fromFrame, toFrame, uav.Vec3{X: e.iwW.X, Y: e.iwW.Y})
	if err != nil {
		e.log.ErrorEvery(time.Second, "reproject",
			"could not transform world disturbance integral from %q to %q: %v, resetting it",
			fromFrame, toFrame, err)
		e.iwW = uav.Vec2{}
		return
	}
	e.iwW = uav.Vec2{X: res.X, Y: res.Y}
}

// Snapshot returns a consistent copy of the estimator state.
func (e *Estimator) Snapshot() (ibB, iwW uav.Vec2, massDiff float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ibB, e.iwW, e.massDiff
}

// BodyIntegral returns Ib_b.
func (e *Estimator) BodyIntegral() uav.Vec2 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ibB
}

// WorldIntegral returns Iw_w.
func (e *Estimator) WorldIntegral() uav.Vec2 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.iwW
}

// MassDifference returns the current mass estimate offset.
func (e *Estimator) MassDifference() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.massDiff
}

func (e *Estimator) sanitize(v float64, key, what string) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		e.log.ErrorEvery(time.Second, key, "NaN detected in %s, setting it to zero", what)
		return 0
	}
	return v
}

func clamp(v, lim float64, already bool) (float64, bool) {
	if v > lim {
		return lim, true
	}
	if v < -lim {
		return -lim, true
	}
	return v, already
}
