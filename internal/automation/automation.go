// Package automation runs scripted flight campaigns: a YAML file listing
// flights, each flown and stored the same way a manual run would be.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zejdajan/mrs-uav-controllers/internal/config"
	"github.com/zejdajan/mrs-uav-controllers/internal/plant"
	"github.com/zejdajan/mrs-uav-controllers/internal/registry"
	"github.com/zejdajan/mrs-uav-controllers/internal/sim"
	"github.com/zejdajan/mrs-uav-controllers/internal/storage"
	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

// ErrEmptyCampaign indicates a campaign file without flights.
var ErrEmptyCampaign = errors.New("automation: campaign has no flights")

// Campaign is a scripted sequence of flights.
type Campaign struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Flights     []Flight `yaml:"flights"`
}

// Flight is one closed-loop run. Pointer fields distinguish "omitted" from an
// explicit zero; omitted fields keep the plant and config defaults.
type Flight struct {
	Name       string   `yaml:"name"`
	Trajectory string   `yaml:"trajectory"`
	Controller string   `yaml:"controller"`
	Integrator string   `yaml:"integrator"`
	Duration   float64  `yaml:"duration"`
	Dt         float64  `yaml:"dt"`
	FilterRate *float64 `yaml:"filter_rate"`
	Wind       uav.Vec2 `yaml:"wind"`
	Drag       *float64 `yaml:"drag"`
	PlantMass  *float64 `yaml:"plant_mass"`
	Start      uav.Vec3 `yaml:"start"`
}

// LoadCampaign reads and validates a campaign file. Controller, integrator
// and trajectory names are checked here so a typo fails before the first
// flight, not in the middle of a long batch.
func LoadCampaign(path string) (*Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Campaign
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("automation: parsing %s: %w", path, err)
	}

	if len(c.Flights) == 0 {
		return nil, ErrEmptyCampaign
	}

	for i := range c.Flights {
		f := &c.Flights[i]
		if f.Name == "" {
			f.Name = fmt.Sprintf("flight-%d", i+1)
		}
		if f.Trajectory == "" {
			f.Trajectory = "hover"
		}
		if f.Controller == "" {
			f.Controller = "nsf"
		}
		if f.Integrator == "" {
			f.Integrator = "rk4"
		}
		if f.Duration <= 0 {
			f.Duration = 10.0
		}
		if f.Dt <= 0 {
			f.Dt = 0.01
		}

		if err := checkNames(f); err != nil {
			return nil, fmt.Errorf("automation: flight %q: %w", f.Name, err)
		}
	}

	return &c, nil
}

func checkNames(f *Flight) error {
	if _, err := sim.GetTrajectory(f.Trajectory); err != nil {
		return err
	}
	if !contains(registry.Controllers(), f.Controller) {
		return fmt.Errorf("%w: %q", registry.ErrUnknownController, f.Controller)
	}
	if !contains(registry.Integrators(), f.Integrator) {
		return fmt.Errorf("%w: %q", registry.ErrUnknownIntegrator, f.Integrator)
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// FlightResult pairs a flight with its simulation outcome.
type FlightResult struct {
	Flight Flight
	RunID  string
	Result *sim.Result
}

// Runner executes campaigns against one configuration. A nil store runs the
// flights without persisting them.
type Runner struct {
	cfg   *config.Config
	store *storage.Store
	log   *telemetry.Logger
}

func NewRunner(cfg *config.Config, store *storage.Store, log *telemetry.Logger) *Runner {
	return &Runner{cfg: cfg, store: store, log: log}
}

// Run flies every flight in order. On failure it returns the results of the
// flights already completed along with the error.
func (r *Runner) Run(ctx context.Context, c *Campaign) ([]FlightResult, error) {
	results := make([]FlightResult, 0, len(c.Flights))

	for i, f := range c.Flights {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, runID, err := r.fly(ctx, f)
		if err != nil {
			return results, fmt.Errorf("automation: flight %d/%d %q: %w", i+1, len(c.Flights), f.Name, err)
		}

		r.log.Infof("flight %d/%d %q: %d steps, rms %.4f",
			i+1, len(c.Flights), f.Name, res.StepsTaken, res.Metrics["tracking_error_rms"])

		results = append(results, FlightResult{Flight: f, RunID: runID, Result: res})
	}

	return results, nil
}

func (r *Runner) fly(ctx context.Context, f Flight) (*sim.Result, string, error) {
	traj, err := sim.GetTrajectory(f.Trajectory)
	if err != nil {
		return nil, "", err
	}
	ctrl, err := registry.NewController(f.Controller, r.cfg, r.log)
	if err != nil {
		return nil, "", err
	}
	integ, err := registry.NewIntegrator(f.Integrator)
	if err != nil {
		return nil, "", err
	}

	q := plant.FromConfig(r.cfg)
	q.Wind = f.Wind
	if f.Drag != nil {
		q.DragCoeff = *f.Drag
	}
	if f.PlantMass != nil {
		q.Mass = *f.PlantMass
	}

	s := sim.New(q, integ, ctrl, traj)
	for _, m := range registry.DefaultMetrics(r.cfg) {
		s.AddMetric(m)
	}

	simCfg := sim.DefaultConfig()
	simCfg.Dt = f.Dt
	simCfg.Duration = f.Duration
	simCfg.FilterRate = r.cfg.NSF.GainsFilter.FilterRate
	if f.FilterRate != nil {
		simCfg.FilterRate = *f.FilterRate
	}

	result, err := s.Run(ctx, q.InitialState(f.Start), simCfg)
	if err != nil {
		return nil, "", err
	}

	if r.store == nil {
		return result, "", nil
	}

	meta := storage.RunMetadata{
		Controller: f.Controller,
		Trajectory: f.Trajectory,
		Integrator: f.Integrator,
		Dt:         simCfg.Dt,
		Duration:   simCfg.Duration,
		FilterRate: simCfg.FilterRate,
		UAVMass:    r.cfg.UAVMass,
	}
	runID, err := r.store.Save(meta, result)
	if err != nil {
		return nil, "", err
	}
	return result, runID, nil
}
