package scheduler

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/sslcore/planner/logging"
	"github.com/sslcore/planner/planning"
	"github.com/sslcore/planner/planning/planners"
)

// Default scheduling parameters.
const (
	DefaultNumRobots         = 16
	DefaultControlRateHz     = 60.
	DefaultPerceptionTimeout = 500 * time.Millisecond
	// DefaultUnlimitedSpeed replaces a negative ("unlimited") speed override. Negative limits
	// destabilize planning and 10 m/s is effectively unlimited.
	DefaultUnlimitedSpeed = 10.
)

// Config configures a Node and the schedulers it owns.
type Config struct {
	NumRobots     int
	ControlRateHz float64
	// PerceptionTimeout bounds how old perception may be before a robot is skipped.
	PerceptionTimeout time.Duration
	// UnlimitedSpeed is the speed limit used when the coach override is negative.
	UnlimitedSpeed float64
	// StrictPlannerNames rejects intents naming an unregistered planner at submission instead
	// of letting them fall back.
	StrictPlannerNames bool

	Clock clock.Clock
	// NewPlanners builds the planner registry of one robot. Called once per robot plus once per
	// robot for hypothetical planning.
	NewPlanners func(clock.Clock) *planning.Registry
	// NewFallback builds the failure-free planner of one robot.
	NewFallback func(clock.Clock) planning.Planner
	Metrics     *Metrics
	// LogRegistry, when set, registers every per-robot logger so log patterns apply to them.
	LogRegistry *logging.Registry
}

// DefaultConfig returns a Config with every field set.
func DefaultConfig() Config {
	return Config{
		NumRobots:         DefaultNumRobots,
		ControlRateHz:     DefaultControlRateHz,
		PerceptionTimeout: DefaultPerceptionTimeout,
		UnlimitedSpeed:    DefaultUnlimitedSpeed,
	}
}

// withDefaults fills unset fields.
func (conf Config) withDefaults() Config {
	if conf.NumRobots == 0 {
		conf.NumRobots = DefaultNumRobots
	}
	if conf.ControlRateHz == 0 {
		conf.ControlRateHz = DefaultControlRateHz
	}
	if conf.PerceptionTimeout == 0 {
		conf.PerceptionTimeout = DefaultPerceptionTimeout
	}
	if conf.UnlimitedSpeed == 0 {
		conf.UnlimitedSpeed = DefaultUnlimitedSpeed
	}
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	if conf.NewPlanners == nil {
		conf.NewPlanners = planners.NewDefaultRegistry
	}
	if conf.NewFallback == nil {
		conf.NewFallback = planners.NewFallback
	}
	return conf
}

// Validate checks the configured values.
func (conf Config) Validate() error {
	if conf.NumRobots < 0 {
		return errors.Errorf("num robots must not be negative, got %d", conf.NumRobots)
	}
	if conf.ControlRateHz < 0 {
		return errors.Errorf("control rate must not be negative, got %v", conf.ControlRateHz)
	}
	if conf.PerceptionTimeout < 0 {
		return errors.Errorf("perception timeout must not be negative, got %v", conf.PerceptionTimeout)
	}
	if conf.UnlimitedSpeed < 0 {
		return errors.Errorf("unlimited speed must not be negative, got %v", conf.UnlimitedSpeed)
	}
	return nil
}

// ControlPeriod is the duration of one tick.
func (conf Config) ControlPeriod() time.Duration {
	return time.Duration(float64(time.Second) / conf.ControlRateHz)
}
