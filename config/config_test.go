package config

import (
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/sslcore/planner/scheduler"
)

func TestRead(t *testing.T) {
	t.Setenv("PLANNERD_TEST_LISTEN", "0.0.0.0:9090")

	cfg, err := Read("testdata/plannerd.json")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "testdata/plannerd.json")
	test.That(t, cfg.NumRobots, test.ShouldEqual, 6)
	test.That(t, cfg.ControlRateHz, test.ShouldEqual, 100.)
	test.That(t, cfg.PerceptionTimeout.Unwrap(), test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.UnlimitedSpeed, test.ShouldEqual, scheduler.DefaultUnlimitedSpeed)
	test.That(t, cfg.StrictPlannerNames, test.ShouldBeTrue)
	test.That(t, cfg.HTTP.ListenAddress, test.ShouldEqual, "0.0.0.0:9090")
	test.That(t, cfg.NATS.URL, test.ShouldEqual, "nats://localhost:4222")
	test.That(t, cfg.Redis.Address, test.ShouldEqual, "localhost:6379")
	test.That(t, cfg.FieldObstacles.Len(), test.ShouldEqual, 1)
	test.That(t, cfg.FieldObstacles.Hit(r2.Point{X: 1.1, Y: 1}), test.ShouldBeTrue)
	test.That(t, cfg.DefenseAreas.Hit(r2.Point{X: -4, Y: 0}), test.ShouldBeTrue)
	test.That(t, cfg.LogFile.MaxSizeMB, test.ShouldEqual, defaultLogMaxSizeMB)
	test.That(t, cfg.LogFile.MaxBackups, test.ShouldEqual, defaultLogMaxBackups)
	test.That(t, cfg.LogConfig, test.ShouldHaveLength, 1)
	test.That(t, cfg.ControlPeriod(), test.ShouldEqual, 10*time.Millisecond)

	schedConf := cfg.SchedulerConfig()
	test.That(t, schedConf.NumRobots, test.ShouldEqual, 6)
	test.That(t, schedConf.PerceptionTimeout, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, schedConf.StrictPlannerNames, test.ShouldBeTrue)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read("testdata/does_not_exist.json")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderDefaults(t *testing.T) {
	cfg, err := FromReader("", strings.NewReader(`{}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.NumRobots, test.ShouldEqual, scheduler.DefaultNumRobots)
	test.That(t, cfg.ControlRateHz, test.ShouldEqual, scheduler.DefaultControlRateHz)
	test.That(t, cfg.PerceptionTimeout.Unwrap(), test.ShouldEqual, scheduler.DefaultPerceptionTimeout)
	test.That(t, cfg.HTTP.ListenAddress, test.ShouldEqual, defaultListenAddress)
	test.That(t, cfg.NATS, test.ShouldBeNil)
	test.That(t, cfg.Redis, test.ShouldBeNil)
	test.That(t, cfg.LogFile, test.ShouldBeNil)
	test.That(t, cfg.FieldObstacles.Len(), test.ShouldEqual, 0)
}

func TestFromReaderErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		json     string
		contains string
	}{
		{"malformed", `{"num_robots":`, "failed to decode"},
		{"unknown field", `{"num_robot": 3}`, "unknown field"},
		{"negative robots", `{"num_robots": -1}`, "num_robots"},
		{"negative rate", `{"control_rate_hz": -60}`, "control_rate_hz"},
		{"negative speed", `{"unlimited_speed": -2}`, "unlimited_speed"},
		{"bad timeout", `{"perception_timeout": "soon"}`, "failed to decode"},
		{"nats without url", `{"nats": {}}`, "url"},
		{"redis without address", `{"redis": {}}`, "address"},
		{"log file without path", `{"log_file": {}}`, "path"},
		{"bad log level", `{"log": [{"pattern": "plannerd", "level": "loud"}]}`, "log.0"},
		{"bad log pattern", `{"log": [{"pattern": "a..b", "level": "info"}]}`, "invalid logger pattern"},
		{"bad shape", `{"field_obstacles": [{"type": "circle", "r": 0}]}`, "shape 0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader("", strings.NewReader(tc.json))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}
