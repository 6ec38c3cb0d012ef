// Package config defines the structures to configure plannerd.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/sslcore/planner/geometry"
	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/scheduler"
)

const (
	defaultListenAddress = "localhost:8080"
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 3
)

// Config is the configuration of one plannerd process.
type Config struct {
	ConfigFilePath string `json:"-"`

	NumRobots          int              `json:"num_robots,omitempty"`
	ControlRateHz      float64          `json:"control_rate_hz,omitempty"`
	PerceptionTimeout  goutils.Duration `json:"perception_timeout,omitempty"`
	UnlimitedSpeed     float64          `json:"unlimited_speed,omitempty"`
	StrictPlannerNames bool             `json:"strict_planner_names,omitempty"`

	HTTP  HTTPConfig   `json:"http"`
	NATS  *NATSConfig  `json:"nats,omitempty"`
	Redis *RedisConfig `json:"redis,omitempty"`

	// OverridesFile is a JSON coach override file that is reloaded whenever it changes.
	OverridesFile string `json:"overrides_file,omitempty"`
	// FieldObstacles and DefenseAreas seed the global obstacles until perception replaces them.
	FieldObstacles geometry.ShapeSet `json:"field_obstacles"`
	DefenseAreas   geometry.ShapeSet `json:"defense_areas"`

	LogFile   *LogFileConfig                `json:"log_file,omitempty"`
	LogConfig []logging.LoggerPatternConfig `json:"log,omitempty"`
	Debug     bool                          `json:"debug,omitempty"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	ListenAddress string `json:"listen_address,omitempty"`
	// Disabled turns the HTTP API off.
	Disabled bool `json:"disabled,omitempty"`
}

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// RedisConfig configures the redis trajectory latch.
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// LogFileConfig configures a rotating log file.
type LogFileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Ensure fills in defaults and ensures that the config is valid.
func (c *Config) Ensure() error {
	if c.NumRobots == 0 {
		c.NumRobots = scheduler.DefaultNumRobots
	}
	if c.ControlRateHz == 0 {
		c.ControlRateHz = scheduler.DefaultControlRateHz
	}
	if c.PerceptionTimeout == 0 {
		c.PerceptionTimeout = goutils.Duration(scheduler.DefaultPerceptionTimeout)
	}
	if c.UnlimitedSpeed == 0 {
		c.UnlimitedSpeed = scheduler.DefaultUnlimitedSpeed
	}
	if c.HTTP.ListenAddress == "" {
		c.HTTP.ListenAddress = defaultListenAddress
	}
	if c.LogFile != nil {
		if c.LogFile.MaxSizeMB == 0 {
			c.LogFile.MaxSizeMB = defaultLogMaxSizeMB
		}
		if c.LogFile.MaxBackups == 0 {
			c.LogFile.MaxBackups = defaultLogMaxBackups
		}
	}
	return c.Validate()
}

// Validate returns an error naming the first invalid field.
func (c *Config) Validate() error {
	if c.NumRobots < 0 {
		return errors.Errorf("num_robots must not be negative, got %d", c.NumRobots)
	}
	if c.ControlRateHz < 0 {
		return errors.Errorf("control_rate_hz must not be negative, got %v", c.ControlRateHz)
	}
	if c.PerceptionTimeout < 0 {
		return errors.Errorf("perception_timeout must not be negative, got %v", c.PerceptionTimeout.Unwrap())
	}
	if c.UnlimitedSpeed < 0 {
		return errors.Errorf("unlimited_speed must not be negative, got %v", c.UnlimitedSpeed)
	}
	if c.NATS != nil && c.NATS.URL == "" {
		return newConfigValidationFieldRequiredError("nats", "url")
	}
	if c.Redis != nil && c.Redis.Address == "" {
		return newConfigValidationFieldRequiredError("redis", "address")
	}
	if c.LogFile != nil && c.LogFile.Path == "" {
		return newConfigValidationFieldRequiredError("log_file", "path")
	}
	for idx, lpc := range c.LogConfig {
		if err := lpc.Validate(); err != nil {
			return errors.Wrapf(err, "log.%d", idx)
		}
	}
	return nil
}

func newConfigValidationFieldRequiredError(path, field string) error {
	return errors.Errorf("%s: %q is required", path, field)
}

// SchedulerConfig returns the scheduling parameters of the config.
func (c *Config) SchedulerConfig() scheduler.Config {
	conf := scheduler.DefaultConfig()
	conf.NumRobots = c.NumRobots
	conf.ControlRateHz = c.ControlRateHz
	conf.PerceptionTimeout = c.PerceptionTimeout.Unwrap()
	conf.UnlimitedSpeed = c.UnlimitedSpeed
	conf.StrictPlannerNames = c.StrictPlannerNames
	return conf
}

// ControlPeriod is the duration of one control tick.
func (c *Config) ControlPeriod() time.Duration {
	return c.SchedulerConfig().ControlPeriod()
}

func (c *Config) String() string {
	return fmt.Sprintf("config(%s, %d robots at %vHz)", c.ConfigFilePath, c.NumRobots, c.ControlRateHz)
}
