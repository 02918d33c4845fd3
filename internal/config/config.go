// Package config loads the huereka YAML configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/firmware"
	"github.com/huereka/huereka/internal/manager"
	"github.com/huereka/huereka/internal/schedule"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig           `yaml:"log"`
	Database        DatabaseConfig      `yaml:"database"`
	Scheduler       SchedulerConfig     `yaml:"scheduler"`
	Managers        []ManagerConfig     `yaml:"managers"`
	Profiles        []color.Profile     `yaml:"profiles"`
	Schedules       []schedule.Schedule `yaml:"schedules"`
	Ledger          LedgerConfig        `yaml:"ledger"`
	Healthcheck     HealthcheckConfig   `yaml:"healthcheck"`
	EventBus        EventBusConfig      `yaml:"eventbus"`
	Simulator       SimulatorConfig     `yaml:"simulator"`
	ShutdownTimeout Duration            `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig controls the resolution loop
type SchedulerConfig struct {
	Timezone     string   `yaml:"timezone"`
	PollInterval Duration `yaml:"poll_interval"`
}

// Location loads the configured timezone.
func (c *SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ManagerConfig describes one strip and the port its controller sits on
type ManagerConfig struct {
	ID            string   `yaml:"id"`
	Port          string   `yaml:"port"` // serial device or tcp://host:port
	Baud          int      `yaml:"baud"`
	Strip         uint8    `yaml:"strip"` // registration order on the controller
	Pin           uint8    `yaml:"pin"`
	Type          uint8    `yaml:"type"`
	LEDCount      int      `yaml:"led_count"`
	RefreshRate   uint16   `yaml:"refresh_rate"` // microseconds between renders
	Brightness    uint8    `yaml:"brightness"`
	DiffThreshold float64  `yaml:"diff_threshold"`
	SettleDelay   Duration `yaml:"settle_delay"`
	DialTimeout   Duration `yaml:"dial_timeout"`
	Queue         int      `yaml:"queue"`
}

// LedgerConfig contains activation ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// SimulatorConfig configures `huereka simulate`
type SimulatorConfig struct {
	Listen    string          `yaml:"listen"`    // tcp address, or a serial device path
	Baud      int             `yaml:"baud"`      // only for serial devices
	WebSocket string          `yaml:"websocket"` // preview address, empty disables
	Limits    firmware.Limits `yaml:"limits"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes configuration bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./huereka.sqlite"
	}

	// Scheduler defaults
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Local"
	}
	if cfg.Scheduler.PollInterval == 0 {
		cfg.Scheduler.PollInterval = Duration(time.Second)
	}

	// Manager defaults
	for i := range cfg.Managers {
		m := &cfg.Managers[i]
		if m.Baud == 0 {
			m.Baud = 115200
		}
		if m.RefreshRate == 0 {
			m.RefreshRate = firmware.DefaultRefreshMicros
		}
		if m.Brightness == 0 {
			m.Brightness = 255
		}
		if m.DiffThreshold == 0 {
			m.DiffThreshold = 0.5
		}
		if m.SettleDelay == 0 {
			m.SettleDelay = Duration(manager.DefaultSettleDelay)
		}
		if m.DialTimeout == 0 {
			m.DialTimeout = Duration(5 * time.Second)
		}
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// Simulator defaults
	if cfg.Simulator.Listen == "" {
		cfg.Simulator.Listen = "127.0.0.1:7777"
	}
	if cfg.Simulator.Baud == 0 {
		cfg.Simulator.Baud = 115200
	}
	defaults := firmware.DefaultLimits()
	if cfg.Simulator.Limits.MaxPixels == 0 {
		cfg.Simulator.Limits.MaxPixels = defaults.MaxPixels
	}
	if cfg.Simulator.Limits.MaxStrips == 0 {
		cfg.Simulator.Limits.MaxStrips = defaults.MaxStrips
	}
	if cfg.Simulator.Limits.MinRefreshFloor == 0 {
		cfg.Simulator.Limits.MinRefreshFloor = defaults.MinRefreshFloor
	}
	if cfg.Simulator.Limits.MaxRefreshInterval == 0 {
		cfg.Simulator.Limits.MaxRefreshInterval = defaults.MaxRefreshInterval
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross references between sections.
func (c *Config) Validate() error {
	managers := make(map[string]bool, len(c.Managers))
	strips := make(map[string]map[uint8]string)
	for _, m := range c.Managers {
		if m.ID == "" {
			return fmt.Errorf("config: manager without id")
		}
		if managers[m.ID] {
			return fmt.Errorf("config: duplicate manager %q", m.ID)
		}
		if m.Port == "" {
			return fmt.Errorf("config: manager %q has no port", m.ID)
		}
		if m.LEDCount <= 0 {
			return fmt.Errorf("config: manager %q: led_count must be positive", m.ID)
		}
		if strips[m.Port] == nil {
			strips[m.Port] = make(map[uint8]string)
		}
		if other, ok := strips[m.Port][m.Strip]; ok {
			return fmt.Errorf("config: managers %q and %q share strip %d on %s", other, m.ID, m.Strip, m.Port)
		}
		strips[m.Port][m.Strip] = m.ID
		managers[m.ID] = true
	}
	// The controller numbers strips in registration order.
	for port, used := range strips {
		for i := 0; i < len(used); i++ {
			if _, ok := used[uint8(i)]; !ok {
				return fmt.Errorf("config: strips on %s must be numbered 0..%d, strip %d is missing", port, len(used)-1, i)
			}
		}
	}
	for _, s := range c.Schedules {
		if s.Manager != "" && !managers[s.Manager] {
			return fmt.Errorf("config: schedule %q targets unknown manager %q", s.Name, s.Manager)
		}
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("config: scheduler timezone: %w", err)
	}
	return c.Simulator.Limits.Validate()
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ExpandEnvString expands a single string with environment variables
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
