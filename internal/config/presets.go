package config

// GetPreset returns a full configuration for a named tuning, or nil when the
// name is unknown. Presets start from DefaultConfig so they always validate.
func GetPreset(name string) *Config {
	cfg := DefaultConfig()
	switch name {
	case "default":
		return cfg
	case "soft":
		cfg.NSF.DefaultGains.Horizontal.Kp = 5.0
		cfg.NSF.DefaultGains.Horizontal.Kv = 4.0
		cfg.NSF.DefaultGains.Horizontal.Kiw = 0.05
		cfg.NSF.DefaultGains.Horizontal.Kib = 0.05
		cfg.NSF.DefaultGains.Vertical.Kp = 10.0
		cfg.NSF.DefaultGains.Vertical.Kv = 6.0
		cfg.NSF.MaxTiltAngle = 20.0
		return cfg
	case "aggressive":
		cfg.NSF.DefaultGains.Horizontal.Kp = 15.0
		cfg.NSF.DefaultGains.Horizontal.Kv = 10.0
		cfg.NSF.DefaultGains.Horizontal.Kiw = 0.2
		cfg.NSF.DefaultGains.Horizontal.Kib = 0.2
		cfg.NSF.DefaultGains.Vertical.Kp = 20.0
		cfg.NSF.DefaultGains.Vertical.Kv = 10.0
		cfg.NSF.MaxTiltAngle = 60.0
		return cfg
	default:
		return nil
	}
}

// ListPresets returns the available preset names.
func ListPresets() []string {
	return []string{"default", "soft", "aggressive"}
}
