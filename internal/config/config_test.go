package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero device width", func(c *Config) { c.DeviceWidth = 0 }},
		{"negative device height", func(c *Config) { c.DeviceHeight = -1 }},
		{"zero surface width", func(c *Config) { c.SurfaceWidth = 0 }},
		{"zero surface height", func(c *Config) { c.SurfaceHeight = 0 }},
		{"odd rotation", func(c *Config) { c.Rotation = 45 }},
		{"zero queue", func(c *Config) { c.QueueSize = 0 }},
		{"evdev without device", func(c *Config) { c.EnableEvdev = true; c.EvdevDevice = "" }},
		{"interval too small", func(c *Config) { c.MetricsInterval = 100 * time.Millisecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsAllRotations(t *testing.T) {
	for _, rot := range []int{0, 90, 180, 270} {
		cfg := DefaultConfig()
		cfg.Rotation = rot
		if err := cfg.Validate(); err != nil {
			t.Fatalf("rotation %d should validate: %v", rot, err)
		}
	}
}
