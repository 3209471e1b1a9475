package pid

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/config"
	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// Name identifies this controller in commands and run metadata.
const Name = "pid"

// Updates arriving closer than this (in seconds) are rejected and answered
// with the previous command.
const minDt = 0.001

type Controller struct {
	uavMass     float64
	hoverThrust float64
	maxTilt     float64

	x *axisPID
	y *axisPID
	z *axisPID

	log *telemetry.Logger
	now func() time.Time

	mu             sync.Mutex
	active         bool
	firstIteration bool
	lastUpdate     time.Time
	lastOutput     *uav.AttitudeCommand
}

// New builds the controller from a validated configuration.
func New(cfg *config.Config, log *telemetry.Logger) (*Controller, error) {
	if log == nil {
		log = telemetry.Nop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pid: %w", err)
	}

	log = log.Named(Name)
	maxTilt := cfg.PID.MaxTiltAngle / 180.0 * math.Pi

	c := &Controller{
		uavMass:     cfg.UAVMass,
		hoverThrust: cfg.PID.HoverThrust,
		maxTilt:     maxTilt,
		x:           newAxisPID("x", cfg.PID.Kp, cfg.PID.Kd, cfg.PID.Ki, maxTilt, log),
		y:           newAxisPID("y", cfg.PID.Kp, cfg.PID.Kd, cfg.PID.Ki, maxTilt, log),
		z:           newAxisPID("z", cfg.PID.KpZ, cfg.PID.KdZ, cfg.PID.KiZ, 1.0, log),
		log:         log,
		now:         time.Now,
	}

	c.log.Infof("initialized, version %s", uav.Version)
	return c, nil
}

// Activate arms the controller. A previous command is welcome but not
// required; this controller carries no state worth seeding from it.
func (c *Controller) Activate(last *uav.AttitudeCommand) bool {
	if last == nil {
		c.log.Warnf("activated without the previous controller's command")
	}

	c.mu.Lock()
	c.firstIteration = true
	c.active = true
	c.mu.Unlock()

	c.log.Infof("activated")
	return true
}

func (c *Controller) Deactivate() {
	c.mu.Lock()
	c.active = false
	c.firstIteration = false
	c.mu.Unlock()

	c.log.Infof("deactivated")
}

func (c *Controller) Status() uav.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uav.Status{Active: c.active}
}

// Update runs one control cycle. The first cycle after activation only
// re-seeds the loops and returns nil; callers must tolerate that.
func (c *Controller) Update(state *uav.State, ref *uav.Reference) *uav.AttitudeCommand {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return nil
	}

	errX := ref.Position.X - state.Position.X
	// Positive roll tilts the airframe towards -Y, so the Y loop tracks
	// the negated error.
	errY := state.Position.Y - ref.Position.Y
	errZ := ref.Position.Z - state.Position.Z

	if c.firstIteration {
		c.firstIteration = false
		c.x.reset(errX)
		c.y.reset(errY)
		c.z.reset(errZ)
		c.lastUpdate = c.now()
		c.log.Infof("first iteration, re-seeding the loops")
		return nil
	}

	now := c.now()
	dt := now.Sub(c.lastUpdate).Seconds()
	c.lastUpdate = now

	if dt <= minDt {
		c.log.WarnEvery(time.Second, "dt", "the state update came too close (%f s)", dt)
		if c.lastOutput == nil {
			return nil
		}
		out := *c.lastOutput
		return &out
	}

	roll, pitch, yaw := state.Orientation.RPY()

	actionX := c.x.update(errX, dt)
	actionY := c.y.update(errY, dt)
	actionZ := (c.z.update(errZ, dt) + c.hoverThrust) * (1.0 / (math.Cos(roll) * math.Cos(pitch)))

	sy, cy := math.Sincos(yaw)
	cmd := &uav.AttitudeCommand{
		Stamp:      now,
		Pitch:      actionX*cy - actionY*sy,
		Roll:       actionY*cy + actionX*sy,
		Yaw:        ref.Yaw,
		Thrust:     actionZ,
		TotalMass:  c.uavMass,
		Controller: Name,
	}

	c.lastOutput = cmd
	return cmd
}

// SetClock replaces the controller's time source. The rate guard measures
// dt on this clock, so simulated hosts must hand in simulated time. Call it
// before the control loop starts; it is not synchronized against Update.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// SwitchOdometrySource is a no-op: there is no world-frame state to
// reproject.
func (c *Controller) SwitchOdometrySource(frameID string) {
	c.log.Infof("odometry source switched to frame %q, nothing to reproject", frameID)
}

// ResetDisturbanceEstimators clears the axis integrators, the closest thing
// this controller has to a disturbance model.
func (c *Controller) ResetDisturbanceEstimators() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.x.clearIntegral()
	c.y.clearIntegral()
	c.z.clearIntegral()
	c.log.Infof("axis integrators reset")
}

// SetGains applies new loop gains immediately; this controller has no gain
// filter.
func (c *Controller) SetGains(p config.PIDConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.x.setGains(p.Kp, p.Kd, p.Ki)
	c.y.setGains(p.Kp, p.Kd, p.Ki)
	c.z.setGains(p.KpZ, p.KdZ, p.KiZ)
	c.log.Infof("gains updated")
}
