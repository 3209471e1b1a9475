// Package nsf implements the nonlinear state feedback attitude controller.
//
// The law composes a desired world-frame tilt-and-thrust vector from the
// position error, velocity error, acceleration feed-forward and the
// disturbance integrals, saturates it, and rotates the lateral part into the
// body frame as desired roll and pitch. Two disturbance integrals run in
// parallel (body-frame and world-frame) together with a mass-difference
// estimator; their anti-windup gating depends on which feedback components
// saturated during the cycle.
//
// Gains are retuned asynchronously: a desired gain set is written at any
// time and a fixed-rate filter moves the active set toward it with rate
// limiting. Lock order across the packages is desired gains, active gains,
// estimator state; the controller's own bookkeeping lock never wraps any of
// them.
package nsf

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/config"
	"github.com/zejdajan/mrs-uav-controllers/internal/estimator"
	"github.com/zejdajan/mrs-uav-controllers/internal/gains"
	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// Name identifies this controller in commands and run metadata.
const Name = "nsf"

// Updates arriving closer than this (in seconds) are rejected and answered
// with the previous command.
const minDt = 0.001

type Controller struct {
	uavMass   float64
	g         float64
	motor     uav.MotorParams
	maxTilt   float64
	thrustSat float64
	profile   bool

	filterRate float64

	gains *gains.Set
	est   *estimator.Estimator
	log   *telemetry.Logger
	now   func() time.Time

	mu             sync.Mutex
	active         bool
	firstIteration bool
	activation     uav.AttitudeCommand
	lastOutput     *uav.AttitudeCommand
	lastStamp      time.Time
	profileCount   int
	profileTotal   time.Duration

	stateMu    sync.Mutex
	stateFrame string
}

// New builds the controller from a validated configuration. The transform
// capability may be nil when the host has no frame infrastructure; odometry
// switches then reset the world integral instead of reprojecting it.
func New(cfg *config.Config, transform uav.TransformFunc, log *telemetry.Logger) (*Controller, error) {
	if log == nil {
		log = telemetry.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("nsf: %w", err)
	}

	log = log.Named(Name)
	gf := cfg.NSF.GainsFilter
	filter := gains.NewFilter(gf.PercChangeRate, gf.MinChangeRate, gf.FilterRate, log)

	c := &Controller{
		uavMass:    cfg.UAVMass,
		g:          cfg.G,
		motor:      cfg.Motor(),
		maxTilt:    cfg.NSF.MaxTiltAngle / 180.0 * math.Pi,
		thrustSat:  cfg.NSF.ThrustSat,
		profile:    cfg.EnableProfiler,
		filterRate: gf.FilterRate,
		gains:      gains.NewSet(defaultGains(cfg.NSF.DefaultGains), filter, cfg.NSF.MuteCoeff),
		est:        estimator.New(cfg.G, transform, log),
		log:        log,
		now:        time.Now,
	}

	c.log.Infof("initialized, version %s", uav.Version)
	return c, nil
}

func defaultGains(g config.GainsConfig) gains.Values {
	return gains.Values{
		Kpxy:     g.Horizontal.Kp,
		Kvxy:     g.Horizontal.Kv,
		Kaxy:     g.Horizontal.Ka,
		Kiwxy:    g.Horizontal.Kiw,
		Kibxy:    g.Horizontal.Kib,
		KiwxyLim: g.Horizontal.KiwLim,
		KibxyLim: g.Horizontal.KibLim,
		Kpz:      g.Vertical.Kp,
		Kvz:      g.Vertical.Kv,
		Kaz:      g.Vertical.Ka,
		Km:       g.MassEstimator.Km,
		KmLim:    g.MassEstimator.KmLim,
	}
}

// Activate primes the controller from the previous controller's last command
// and arms the first-iteration handover. Without a previous command there is
// nothing to hand over smoothly, so activation is refused.
func (c *Controller) Activate(last *uav.AttitudeCommand) bool {
	if last == nil {
		c.log.Warnf("activation failed, missing the previous controller's command")
		return false
	}

	c.est.Seed(last, last.TotalMass)

	c.mu.Lock()
	c.activation = *last
	c.firstIteration = true
	c.active = true
	c.mu.Unlock()

	c.log.Infof("setting mass difference %.2f kg and disturbances from the previous command: body [%.2f, %.2f] N, world [%.2f, %.2f] N",
		last.MassDifference,
		last.Disturbance.BodyForce.X, last.Disturbance.BodyForce.Y,
		last.Disturbance.WorldForce.X, last.Disturbance.WorldForce.Y)
	c.log.Infof("activated")

	return true
}

// Deactivate stops the controller and drops the mass estimate. The
// disturbance integrals are kept for the next activation; the mass estimate
// is not, because the payload may have changed while the controller was off.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	c.active = false
	c.firstIteration = false
	c.mu.Unlock()

	c.est.ResetMass()
	c.log.Infof("deactivated")
}

func (c *Controller) Status() uav.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uav.Status{Active: c.active}
}

// Update runs one control cycle. It returns nil while inactive, the
// activation command on the first cycle after activation, and the previous
// command when the state stamps are too close together to integrate.
func (c *Controller) Update(state *uav.State, ref *uav.Reference) *uav.AttitudeCommand {
	var profileStart time.Time
	if c.profile {
		profileStart = time.Now()
	}

	c.stateMu.Lock()
	c.stateFrame = state.FrameID
	c.stateMu.Unlock()

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}

	if c.firstIteration {
		c.firstIteration = false
		c.lastStamp = state.Stamp
		out := c.activation
		c.mu.Unlock()
		return &out
	}

	dt := state.Stamp.Sub(c.lastStamp).Seconds()
	c.lastStamp = state.Stamp

	if math.Abs(dt) <= minDt {
		c.log.Debugf("the state update came too close (%f s)", dt)
		out := c.activation
		if c.lastOutput != nil {
			out = *c.lastOutput
		}
		c.mu.Unlock()
		return &out
	}
	c.mu.Unlock()

	// Control errors in the law's internal frame (Y negated).
	rp := uav.Vec3{X: ref.Position.X, Y: -ref.Position.Y, Z: ref.Position.Z}
	rv := uav.Vec3{X: ref.Velocity.X, Y: -ref.Velocity.Y, Z: ref.Velocity.Z}
	op := uav.Vec3{X: state.Position.X, Y: -state.Position.Y, Z: state.Position.Z}
	ov := uav.Vec3{X: state.Velocity.X, Y: -state.Velocity.Y, Z: state.Velocity.Z}
	ep := rp.Sub(op)
	ev := rv.Sub(ov)

	roll, pitch, yaw := state.Orientation.RPY()

	ib0, iw0, massDiff := c.est.Snapshot()
	totalMass := c.uavMass + massDiff
	hoverThrust := c.motor.HoverThrust(totalMass, c.g)

	// Mute bookkeeping must precede the gain read; the filter tick consumes
	// the toggle edge.
	c.gains.SetLateralMute(ref.DisablePositionGains)
	g := c.gains.Active()

	ibW := ib0.Rotated(-yaw)

	kp := uav.Vec3{X: g.Kpxy, Y: g.Kpxy, Z: g.Kpz}
	kv := uav.Vec3{X: g.Kvxy, Y: g.Kvxy, Z: g.Kvz}
	ka := uav.Vec3{X: g.Kaxy, Y: g.Kaxy, Z: g.Kaz}

	cc := math.Cos(pitch) * math.Cos(roll)
	feedForward := uav.Vec3{
		X: math.Asin(ref.Acceleration.X * cc / c.g),
		Y: math.Asin(-ref.Acceleration.Y * cc / c.g),
		Z: ref.Acceleration.Z * (hoverThrust / c.g),
	}

	integrals := ibW.Add(iw0)
	feedbackW := kp.Mul(ep).
		Add(kv.Mul(ev)).
		Add(ka.Mul(feedForward)).
		Add(uav.Vec3{X: integrals.X, Y: integrals.Y}).
		Add(uav.Vec3{Z: hoverThrust})

	// Tilting reduces the vertical thrust component; compensate.
	feedbackW.Z /= cc

	var xSat, ySat, zSat bool
	feedbackW.X, xSat = c.saturateTilt(feedbackW.X, "x")
	feedbackW.Y, ySat = c.saturateTilt(feedbackW.Y, "y")
	feedbackW.Z, zSat = c.saturateThrust(feedbackW.Z)

	// Anti-windup: a saturated axis whose feedback still pushes in the
	// direction of the position error must not keep integrating.
	freezeX := xSat && sameSign(feedbackW.X, ep.X)
	freezeY := ySat && sameSign(feedbackW.Y, ep.Y)

	c.est.AccumulateWorld(ep.XY(), dt, g.Kiwxy, g.KiwxyLim, freezeX, freezeY)
	c.est.AccumulateBody(ep.XY(), yaw, dt, g.Kibxy, g.KibxyLim)
	c.est.AccumulateMass(ep.Z, dt, g.Km, g.KmLim, zSat)

	ib1, iw1, massDiff1 := c.est.Snapshot()
	ibW1 := ib1.Rotated(-yaw)
	hoverForce := totalMass * c.g

	const rd = 180.0 / math.Pi
	c.log.InfoEvery(5*time.Second, "report_tilt",
		"disturbance integrals (tilt): world [%.2f, %.2f] deg lim %.2f, body [%.2f, %.2f] deg lim %.2f",
		rd*iw1.X, rd*iw1.Y, rd*g.KiwxyLim, rd*ib1.X, rd*ib1.Y, rd*g.KibxyLim)
	c.log.InfoEvery(5*time.Second, "report_force",
		"disturbance integrals (force): world [%.2f, %.2f] N lim %.2f, body [%.2f, %.2f] N lim %.2f",
		hoverForce*math.Sin(iw1.X), hoverForce*math.Sin(iw1.Y), hoverForce*math.Sin(g.KiwxyLim),
		hoverForce*math.Sin(ib1.X), hoverForce*math.Sin(ib1.Y), hoverForce*math.Sin(g.KibxyLim))

	feedbackB := feedbackW.XY().Rotated(yaw)

	cmd := &uav.AttitudeCommand{
		Stamp:          c.now(),
		Roll:           feedbackB.Y,
		Pitch:          feedbackB.X,
		Yaw:            ref.Yaw,
		Thrust:         feedbackW.Z,
		TotalMass:      totalMass,
		MassDifference: massDiff1,
		Controller:     Name,
		Disturbance: uav.Disturbance{
			BodyAngle:  ib1,
			WorldAngle: iw1,
			BodyForce: uav.Vec2{
				X: hoverForce * math.Sin(ib1.X),
				Y: hoverForce * math.Sin(ib1.Y),
			},
			BodyForceWorld: uav.Vec2{
				X: hoverForce * math.Sin(ibW1.X),
				Y: hoverForce * math.Sin(ibW1.Y),
			},
			WorldForce: uav.Vec2{
				X: hoverForce * math.Sin(iw1.X),
				Y: hoverForce * math.Sin(iw1.Y),
			},
		},
	}

	c.mu.Lock()
	c.lastOutput = cmd
	if c.profile {
		c.profileCount++
		c.profileTotal += time.Since(profileStart)
		avg := c.profileTotal / time.Duration(c.profileCount)
		c.log.InfoEvery(5*time.Second, "profile_update",
			"update cycle took %v (avg %v over %d cycles)", time.Since(profileStart), avg, c.profileCount)
	}
	c.mu.Unlock()

	return cmd
}

// SwitchOdometrySource reprojects the world-frame disturbance integral into
// the incoming odometry frame. The body-frame integral needs no handling: it
// rotates with the airframe, not with the world frame.
func (c *Controller) SwitchOdometrySource(frameID string) {
	c.log.Infof("switching odometry source to frame %q", frameID)

	c.stateMu.Lock()
	from := c.stateFrame
	c.stateMu.Unlock()

	c.est.Reproject(from, frameID)
}

// ResetDisturbanceEstimators zeroes both disturbance integrals.
func (c *Controller) ResetDisturbanceEstimators() {
	c.est.Reset()
	c.log.Infof("disturbance integrals reset")
}

// SetClock replaces the controller's time source for output stamps. Call it
// before the control loop starts; it is not synchronized against Update.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// SetDesiredGains hands a new desired gain set to the filter. The active
// gains catch up over the following filter ticks.
func (c *Controller) SetDesiredGains(v gains.Values) {
	c.gains.SetDesired(v)
	c.log.Infof("desired gains updated")
}

// Gains returns the active gain set.
func (c *Controller) Gains() gains.Values {
	return c.gains.Active()
}

// DesiredGains returns the desired gain set.
func (c *Controller) DesiredGains() gains.Values {
	return c.gains.Desired()
}

// GainFilterTick advances the active gains one filter step. Hosts that run
// their own scheduler call this at the configured filter rate.
func (c *Controller) GainFilterTick() {
	c.gains.FilterTick()
}

// RunGainFilter runs the gain filter at the configured rate until the
// context is done. This is the independent tick context of the design; run
// it in its own goroutine.
func (c *Controller) RunGainFilter(ctx context.Context) {
	period := time.Duration(float64(time.Second) / c.filterRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.gains.FilterTick()
		}
	}
}

func (c *Controller) saturateTilt(v float64, axis string) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		c.log.ErrorEvery(time.Second, "nan_"+axis,
			"NaN detected in the %s feedback, setting it to zero", axis)
		return 0, false
	}
	if v > c.maxTilt {
		c.log.WarnEvery(time.Second, "sat_"+axis, "the %s tilt feedback is being saturated", axis)
		return c.maxTilt, true
	}
	if v < -c.maxTilt {
		c.log.WarnEvery(time.Second, "sat_"+axis, "the %s tilt feedback is being saturated", axis)
		return -c.maxTilt, true
	}
	return v, false
}

func (c *Controller) saturateThrust(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		c.log.ErrorEvery(time.Second, "nan_thrust",
			"NaN detected in the thrust feedback, setting it to zero")
		return 0, false
	}
	if v > c.thrustSat {
		c.log.WarnEvery(time.Second, "sat_thrust", "saturating thrust to %.2f", c.thrustSat)
		return c.thrustSat, true
	}
	if v < 0 {
		c.log.WarnEvery(time.Second, "sat_thrust", "saturating thrust to 0.00")
		return 0, true
	}
	return v, false
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
