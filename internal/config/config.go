package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all agent configuration
type Config struct {
	// Controller connection
	ServerURL string `mapstructure:"server_url"`
	AuthToken string `mapstructure:"auth_token"`

	// Device identification
	DeviceID   string `mapstructure:"device_id"`
	DeviceName string `mapstructure:"device_name"`

	// Display geometry: raw touch coordinate space and the logical
	// surface it maps onto
	DeviceWidth   int `mapstructure:"device_width"`
	DeviceHeight  int `mapstructure:"device_height"`
	SurfaceWidth  int `mapstructure:"surface_width"`
	SurfaceHeight int `mapstructure:"surface_height"`
	Rotation      int `mapstructure:"rotation"`

	// Event sources
	EnableEvdev bool   `mapstructure:"enable_evdev"`
	EvdevDevice string `mapstructure:"evdev_device"`

	// Forwarding
	EnableForward bool     `mapstructure:"enable_forward"`
	ICEServers    []string `mapstructure:"ice_servers"`

	// Dispatch
	QueueSize int `mapstructure:"queue_size"`

	// Intervals
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ServerURL:       "https://localhost:3001",
		DeviceWidth:     720,
		DeviceHeight:    1280,
		SurfaceWidth:    720,
		SurfaceHeight:   1280,
		Rotation:        0,
		EvdevDevice:     "/dev/input/event0",
		EnableForward:   true,
		QueueSize:       256,
		MetricsInterval: 30 * time.Second,
		LogLevel:        "info",
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Set config file locations
	viper.SetConfigName("tapwire-agent")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(getConfigDir())
	viper.AddConfigPath(".")

	// Environment variable support
	viper.SetEnvPrefix("TAPWIRE")
	viper.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Unmarshal into struct
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the agent cannot run with.
func (c *Config) Validate() error {
	if c.DeviceWidth <= 0 || c.DeviceHeight <= 0 {
		return fmt.Errorf("invalid device size %dx%d", c.DeviceWidth, c.DeviceHeight)
	}
	if c.SurfaceWidth <= 0 || c.SurfaceHeight <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", c.SurfaceWidth, c.SurfaceHeight)
	}
	switch c.Rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("invalid rotation %d, must be 0/90/180/270", c.Rotation)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}
	if c.EnableEvdev && c.EvdevDevice == "" {
		return fmt.Errorf("enable_evdev requires evdev_device")
	}
	if c.MetricsInterval < time.Second {
		return fmt.Errorf("metrics_interval must be at least 1s, got %s", c.MetricsInterval)
	}
	return nil
}

// Save writes the current configuration to disk
func (c *Config) Save() error {
	configDir := getConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, "tapwire-agent.yaml")

	viper.Set("server_url", c.ServerURL)
	viper.Set("auth_token", c.AuthToken)
	viper.Set("device_id", c.DeviceID)
	viper.Set("device_name", c.DeviceName)
	viper.Set("device_width", c.DeviceWidth)
	viper.Set("device_height", c.DeviceHeight)
	viper.Set("surface_width", c.SurfaceWidth)
	viper.Set("surface_height", c.SurfaceHeight)
	viper.Set("rotation", c.Rotation)
	viper.Set("enable_evdev", c.EnableEvdev)
	viper.Set("evdev_device", c.EvdevDevice)
	viper.Set("enable_forward", c.EnableForward)
	viper.Set("ice_servers", c.ICEServers)
	viper.Set("queue_size", c.QueueSize)
	viper.Set("metrics_interval", c.MetricsInterval)
	viper.Set("log_level", c.LogLevel)
	viper.Set("log_file", c.LogFile)

	return viper.WriteConfigAs(configPath)
}

// getConfigDir returns the platform-specific config directory
func getConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Tapwire", "Agent")
	case "darwin":
		return "/Library/Application Support/Tapwire/Agent"
	default: // Linux and others
		return "/etc/tapwire-agent"
	}
}

// GetLogDir returns the platform-specific log directory
func GetLogDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Tapwire", "Agent", "logs")
	case "darwin":
		return "/Library/Logs/Tapwire"
	default:
		return "/var/log/tapwire-agent"
	}
}
