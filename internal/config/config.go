// Package config loads and validates the controller configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zejdajan/mrs-uav-controllers/internal/uav"
)

const (
	DefaultUAVMass          = 2.0
	DefaultG                = 9.81
	DefaultMaxTiltAngle     = 45.0
	DefaultThrustSaturation = 0.8
	DefaultFilterRate       = 40.0
	DefaultMuteCoefficient  = 0.1
)

type Config struct {
	Version        string            `yaml:"version"`
	UAVMass        float64           `yaml:"uav_mass"`
	G              float64           `yaml:"g"`
	EnableProfiler bool              `yaml:"enable_profiler"`
	MotorParams    MotorParamsConfig `yaml:"motor_params"`
	NSF            NSFConfig         `yaml:"nsf"`
	PID            PIDConfig         `yaml:"pid"`
}

type MotorParamsConfig struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
}

type NSFConfig struct {
	DefaultGains GainsConfig       `yaml:"default_gains"`
	MaxTiltAngle float64           `yaml:"max_tilt_angle"`
	ThrustSat    float64           `yaml:"thrust_saturation"`
	GainsFilter  GainsFilterConfig `yaml:"gains_filter"`
	MuteCoeff    float64           `yaml:"lateral_mute_coefficient"`
}

type GainsConfig struct {
	Horizontal    HorizontalGainsConfig `yaml:"horizontal"`
	Vertical      VerticalGainsConfig   `yaml:"vertical"`
	MassEstimator MassEstimatorConfig   `yaml:"mass_estimator"`
}

type HorizontalGainsConfig struct {
	Kp     float64 `yaml:"kp"`
	Kv     float64 `yaml:"kv"`
	Ka     float64 `yaml:"ka"`
	Kiw    float64 `yaml:"kiw"`
	Kib    float64 `yaml:"kib"`
	KiwLim float64 `yaml:"kiw_lim"`
	KibLim float64 `yaml:"kib_lim"`
}

type VerticalGainsConfig struct {
	Kp float64 `yaml:"kp"`
	Kv float64 `yaml:"kv"`
	Ka float64 `yaml:"ka"`
}

type MassEstimatorConfig struct {
	Km    float64 `yaml:"km"`
	KmLim float64 `yaml:"km_lim"`
}

type GainsFilterConfig struct {
	FilterRate     float64 `yaml:"filter_rate"`
	PercChangeRate float64 `yaml:"perc_change_rate"`
	MinChangeRate  float64 `yaml:"min_change_rate"`
}

type PIDConfig struct {
	Kp           float64 `yaml:"kp"`
	Kd           float64 `yaml:"kd"`
	Ki           float64 `yaml:"ki"`
	KpZ          float64 `yaml:"kp_z"`
	KdZ          float64 `yaml:"kd_z"`
	KiZ          float64 `yaml:"ki_z"`
	HoverThrust  float64 `yaml:"hover_thrust"`
	MaxTiltAngle float64 `yaml:"max_tilt_angle"`
}

func DefaultConfig() *Config {
	return &Config{
		Version: uav.Version,
		UAVMass: DefaultUAVMass,
		G:       DefaultG,
		MotorParams: MotorParamsConfig{
			A: 0.175,
			B: -0.148,
		},
		NSF: NSFConfig{
			DefaultGains: GainsConfig{
				Horizontal: HorizontalGainsConfig{
					Kp:     10.0,
					Kv:     8.0,
					Ka:     1.0,
					Kiw:    0.1,
					Kib:    0.1,
					KiwLim: 0.2,
					KibLim: 0.2,
				},
				Vertical: VerticalGainsConfig{
					Kp: 15.0,
					Kv: 8.0,
					Ka: 1.0,
				},
				MassEstimator: MassEstimatorConfig{
					Km:    0.5,
					KmLim: 2.0,
				},
			},
			MaxTiltAngle: DefaultMaxTiltAngle,
			ThrustSat:    DefaultThrustSaturation,
			GainsFilter: GainsFilterConfig{
				FilterRate:     DefaultFilterRate,
				PercChangeRate: 0.2,
				MinChangeRate:  0.005,
			},
			MuteCoeff: DefaultMuteCoefficient,
		},
		PID: PIDConfig{
			Kp:           1.0,
			Kd:           0.3,
			Ki:           0.02,
			KpZ:          2.0,
			KdZ:          0.6,
			KiZ:          0.1,
			HoverThrust:  0.6,
			MaxTiltAngle: 20.0,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration against the ranges the control laws
// assume. The version check is the one unrecoverable condition: a config file
// written for another release must not fly.
func (c *Config) Validate() error {
	if c.Version != uav.Version {
		return fmt.Errorf("%w: config version %q, binary version %q",
			ErrVersionMismatch, c.Version, uav.Version)
	}
	if c.UAVMass <= 0 {
		return fmt.Errorf("%w: uav_mass %v", ErrOutOfRange, c.UAVMass)
	}
	if c.G <= 0 {
		return fmt.Errorf("%w: g %v", ErrOutOfRange, c.G)
	}
	if c.MotorParams.A <= 0 {
		return fmt.Errorf("%w: motor_params.a %v", ErrOutOfRange, c.MotorParams.A)
	}
	if c.NSF.MaxTiltAngle <= 0 || c.NSF.MaxTiltAngle > 90 {
		return fmt.Errorf("%w: nsf.max_tilt_angle %v (deg, expected (0, 90])",
			ErrOutOfRange, c.NSF.MaxTiltAngle)
	}
	if c.NSF.ThrustSat <= 0 || c.NSF.ThrustSat > 1 {
		return fmt.Errorf("%w: nsf.thrust_saturation %v (expected (0, 1])",
			ErrOutOfRange, c.NSF.ThrustSat)
	}
	if c.NSF.MuteCoeff < 0 || c.NSF.MuteCoeff > 1 {
		return fmt.Errorf("%w: nsf.lateral_mute_coefficient %v (expected [0, 1])",
			ErrOutOfRange, c.NSF.MuteCoeff)
	}

	// The per-tick change caps must land in (0, 1] so the filter always makes
	// progress without overshooting the desired value.
	gf := c.NSF.GainsFilter
	if gf.FilterRate <= 0 {
		return fmt.Errorf("%w: nsf.gains_filter.filter_rate %v", ErrOutOfRange, gf.FilterRate)
	}
	if gf.MinChangeRate <= 0 || gf.MinChangeRate > gf.PercChangeRate {
		return fmt.Errorf("%w: nsf.gains_filter.min_change_rate %v (expected (0, perc_change_rate])",
			ErrOutOfRange, gf.MinChangeRate)
	}
	if gf.PercChangeRate > gf.FilterRate {
		return fmt.Errorf("%w: nsf.gains_filter.perc_change_rate %v exceeds filter_rate %v",
			ErrOutOfRange, gf.PercChangeRate, gf.FilterRate)
	}

	for _, g := range []struct {
		name  string
		value float64
	}{
		{"horizontal.kp", c.NSF.DefaultGains.Horizontal.Kp},
		{"horizontal.kv", c.NSF.DefaultGains.Horizontal.Kv},
		{"horizontal.ka", c.NSF.DefaultGains.Horizontal.Ka},
		{"horizontal.kiw", c.NSF.DefaultGains.Horizontal.Kiw},
		{"horizontal.kib", c.NSF.DefaultGains.Horizontal.Kib},
		{"horizontal.kiw_lim", c.NSF.DefaultGains.Horizontal.KiwLim},
		{"horizontal.kib_lim", c.NSF.DefaultGains.Horizontal.KibLim},
		{"vertical.kp", c.NSF.DefaultGains.Vertical.Kp},
		{"vertical.kv", c.NSF.DefaultGains.Vertical.Kv},
		{"vertical.ka", c.NSF.DefaultGains.Vertical.Ka},
		{"mass_estimator.km", c.NSF.DefaultGains.MassEstimator.Km},
		{"mass_estimator.km_lim", c.NSF.DefaultGains.MassEstimator.KmLim},
		{"pid.kp", c.PID.Kp},
		{"pid.kd", c.PID.Kd},
		{"pid.ki", c.PID.Ki},
		{"pid.kp_z", c.PID.KpZ},
		{"pid.kd_z", c.PID.KdZ},
		{"pid.ki_z", c.PID.KiZ},
	} {
		if g.value < 0 {
			return fmt.Errorf("%w: %s %v (gains must be non-negative)", ErrOutOfRange, g.name, g.value)
		}
	}

	if c.PID.HoverThrust < 0 || c.PID.HoverThrust > 1 {
		return fmt.Errorf("%w: pid.hover_thrust %v (expected [0, 1])", ErrOutOfRange, c.PID.HoverThrust)
	}
	if c.PID.MaxTiltAngle <= 0 || c.PID.MaxTiltAngle > 90 {
		return fmt.Errorf("%w: pid.max_tilt_angle %v (deg, expected (0, 90])",
			ErrOutOfRange, c.PID.MaxTiltAngle)
	}

	return nil
}

// Motor returns the thrust curve as the shared value type.
func (c *Config) Motor() uav.MotorParams {
	return uav.MotorParams{A: c.MotorParams.A, B: c.MotorParams.B}
}
