package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a logger emits: DEBUG, INFO, WARN or ERROR.
type Level zapcore.Level

// Levels.
const (
	DEBUG = Level(zapcore.DebugLevel)
	INFO  = Level(zapcore.InfoLevel)
	WARN  = Level(zapcore.WarnLevel)
	ERROR = Level(zapcore.ErrorLevel)
)

func (level Level) String() string {
	return level.AsZap().String()
}

// AsZap converts the Level to a `zapcore.Level`.
func (level Level) AsZap() zapcore.Level {
	return zapcore.Level(level)
}

// LevelFromString parses `debug`, `info`, `warn` (or `warning`) and `error` in any case.
func LevelFromString(inp string) (Level, error) {
	name := strings.ToLower(inp)
	if name == "warning" {
		name = "warn"
	}
	var level zapcore.Level
	if name == "" || level.UnmarshalText([]byte(name)) != nil || level > zapcore.ErrorLevel {
		return INFO, errors.Errorf("unknown log level: %q", inp)
	}
	return Level(level), nil
}

// MarshalText encodes the level by name.
func (level Level) MarshalText() ([]byte, error) {
	return []byte(level.String()), nil
}

// UnmarshalText decodes a level name accepted by LevelFromString.
func (level *Level) UnmarshalText(text []byte) (err error) {
	*level, err = LevelFromString(string(text))
	return
}
