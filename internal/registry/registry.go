// Package registry constructs closed-loop components by name, so the CLI and
// scripted campaigns build flights from the same catalog.
package registry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zejdajan/mrs-uav-controllers/internal/config"
	"github.com/zejdajan/mrs-uav-controllers/internal/integrators"
	"github.com/zejdajan/mrs-uav-controllers/internal/metrics"
	"github.com/zejdajan/mrs-uav-controllers/internal/nsf"
	"github.com/zejdajan/mrs-uav-controllers/internal/pid"
	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

var (
	ErrUnknownController = errors.New("registry: unknown controller")
	ErrUnknownIntegrator = errors.New("registry: unknown integrator")
)

// settleTol is the position error band used for the settling-time metric.
const settleTol = 0.05

// Controllers lists the names NewController accepts.
func Controllers() []string {
	return []string{"nsf", "pid"}
}

// Integrators lists the names NewIntegrator accepts.
func Integrators() []string {
	return []string{"euler", "rk4", "rk45"}
}

// NewController builds and activates the named controller. Activation uses a
// hover handover command derived from the config, the same exchange a real
// switch from a hover autopilot would perform.
func NewController(name string, cfg *config.Config, log *telemetry.Logger) (uav.Controller, error) {
	switch name {
	case "nsf":
		c, err := nsf.New(cfg, nil, log)
		if err != nil {
			return nil, err
		}
		c.Activate(HandoverCommand(cfg))
		return c, nil
	case "pid":
		c, err := pid.New(cfg, log)
		if err != nil {
			return nil, err
		}
		c.Activate(HandoverCommand(cfg))
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownController, name, Controllers())
	}
}

func NewIntegrator(name string) (sim.Integrator, error) {
	switch name {
	case "euler":
		return integrators.NewEuler(), nil
	case "rk4":
		return integrators.NewRK4(), nil
	case "rk45":
		return integrators.NewRK45(), nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownIntegrator, name, Integrators())
	}
}

// HandoverCommand is the previous-controller command used for activation. It
// reflects the config's idea of the vehicle, not the plant's, so a deliberate
// plant mass mismatch lands on the mass estimator instead of leaking into the
// activation state.
func HandoverCommand(cfg *config.Config) *uav.AttitudeCommand {
	return &uav.AttitudeCommand{
		Stamp:      time.Now(),
		Thrust:     cfg.Motor().HoverThrust(cfg.UAVMass, cfg.G),
		TotalMass:  cfg.UAVMass,
		Controller: "hover",
	}
}

// DefaultMetrics is the standard quality set recorded for every stored run.
func DefaultMetrics(cfg *config.Config) []sim.Metric {
	maxTilt := cfg.NSF.MaxTiltAngle * math.Pi / 180
	return []sim.Metric{
		metrics.NewTrackingError(),
		metrics.NewControlEffort(),
		metrics.NewSettling(settleTol),
		metrics.NewSaturation(maxTilt, cfg.NSF.ThrustSat),
	}
}
