package registry

import (
	"errors"
	"math"
	"testing"

	"github.com/zejdajan/mrs-uav-controllers/internal/config"
	"github.com/zejdajan/mrs-uav-controllers/internal/telemetry"
)

func TestNewController_BuildsActive(t *testing.T) {
	cfg := config.DefaultConfig()

	for _, name := range Controllers() {
		c, err := NewController(name, cfg, telemetry.Nop())
		if err != nil {
			t.Fatalf("building %s: %v", name, err)
		}
		if !c.Status().Active {
			t.Errorf("%s should be active after construction", name)
		}
	}
}

func TestNewController_Unknown(t *testing.T) {
	_, err := NewController("mpc", config.DefaultConfig(), telemetry.Nop())
	if !errors.Is(err, ErrUnknownController) {
		t.Errorf("expected ErrUnknownController, got %v", err)
	}
}

func TestNewIntegrator(t *testing.T) {
	for _, name := range Integrators() {
		integ, err := NewIntegrator(name)
		if err != nil {
			t.Fatalf("building %s: %v", name, err)
		}
		if integ == nil {
			t.Errorf("%s built nil", name)
		}
	}

	_, err := NewIntegrator("verlet")
	if !errors.Is(err, ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}
}

func TestHandoverCommand_HoverThrust(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := HandoverCommand(cfg)

	want := cfg.Motor().HoverThrust(cfg.UAVMass, cfg.G)
	if math.Abs(cmd.Thrust-want) > 1e-12 {
		t.Errorf("handover thrust %v, want the config hover thrust %v", cmd.Thrust, want)
	}
	if cmd.TotalMass != cfg.UAVMass {
		t.Errorf("handover mass %v, want the config mass %v", cmd.TotalMass, cfg.UAVMass)
	}
}

func TestDefaultMetrics_Names(t *testing.T) {
	got := map[string]bool{}
	for _, m := range DefaultMetrics(config.DefaultConfig()) {
		got[m.Name()] = true
	}

	for _, name := range []string{"tracking_error_rms", "control_effort", "settling_time", "saturation"} {
		if !got[name] {
			t.Errorf("missing metric %s", name)
		}
	}
}
