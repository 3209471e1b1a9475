// Package pid implements a simple per-axis PID attitude controller.
//
// It is the fallback sibling of the nonlinear controller: three independent
// scalar PID loops on the position errors, with the lateral actions rotated
// by the current yaw into desired pitch and roll. It carries no disturbance
// model and no mass estimator, which is exactly why it is trusted as an
// escape hatch.
package pid

import (
	"math"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
)

// derivativeFilterCoeff smooths the derivative term; values close to one
// favor the previous sample.
const derivativeFilterCoeff = 0.99

// integralLimit is the symmetric clamp on each axis accumulator.
const integralLimit = 0.1

// axisPID is one scalar loop. Not safe for concurrent use; the controller
// serializes access.
type axisPID struct {
	name string

	kp float64
	kd float64
	ki float64

	// saturation is the symmetric output limit.
	saturation float64

	lastError float64
	integral  float64

	log *telemetry.Logger
}

func newAxisPID(name string, kp, kd, ki, saturation float64, log *telemetry.Logger) *axisPID {
	return &axisPID{
		name:       name,
		kp:         kp,
		kd:         kd,
		ki:         ki,
		saturation: saturation,
		log:        log,
	}
}

func (p *axisPID) setGains(kp, kd, ki float64) {
	p.kp = kp
	p.kd = kd
	p.ki = ki
}

// update advances the loop by dt seconds and returns the control action.
func (p *axisPID) update(err, dt float64) float64 {
	difference := derivativeFilterCoeff*p.lastError +
		(1-derivativeFilterCoeff)*((err-p.lastError)/dt)
	p.lastError = err

	out := p.kp*err + p.kd*difference + p.ki*p.integral

	saturated := false
	if math.IsNaN(out) || math.IsInf(out, 0) {
		out = 0
		p.log.ErrorEvery(time.Second, "nan_"+p.name,
			"NaN detected in the %s PID action, setting it to zero", p.name)
	} else if out > p.saturation {
		out = p.saturation
		saturated = true
	} else if out < -p.saturation {
		out = -p.saturation
		saturated = true
	}

	if saturated {
		p.log.WarnEvery(time.Second, "sat_"+p.name, "the %s PID is being saturated", p.name)
	}

	// Anti-windup: while saturated, accumulate only when the error pulls the
	// action back toward the limit.
	if !saturated || (out > 0 && err < 0) || (out < 0 && err > 0) {
		p.integral += err
	}

	if math.IsNaN(p.integral) || math.IsInf(p.integral, 0) {
		p.integral = 0
		p.log.ErrorEvery(time.Second, "nan_integral_"+p.name,
			"NaN detected in the %s PID integral, setting it to zero", p.name)
	}
	if p.integral > integralLimit {
		p.integral = integralLimit
		p.log.WarnEvery(time.Second, "sat_integral_"+p.name,
			"the %s PID integral is being saturated", p.name)
	} else if p.integral < -integralLimit {
		p.integral = -integralLimit
		p.log.WarnEvery(time.Second, "sat_integral_"+p.name,
			"the %s PID integral is being saturated", p.name)
	}

	return out
}

// reset clears the accumulator and re-seeds the error history so the first
// derivative after a handover does not spike.
func (p *axisPID) reset(lastError float64) {
	p.integral = 0
	p.lastError = lastError
}

func (p *axisPID) clearIntegral() {
	p.integral = 0
}
