package logging

import "sync"

// Registry names the subloggers of a process so their levels can be driven by
// LoggerPatternConfig entries, e.g. `plannerd.scheduler.robot_*` at warn.
type Registry struct {
	mu       sync.RWMutex
	loggers  map[string]Logger
	patterns []levelPattern
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{loggers: make(map[string]Logger)}
}

// Sublogger returns `parent`'s sublogger called `subname`, registered under its full name with the
// level of the last matching pattern. Asking twice for the same name returns the same logger.
func (lr *Registry) Sublogger(parent Logger, subname string) Logger {
	child := parent.Sublogger(subname)

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existing, ok := lr.loggers[child.Name()]; ok {
		return existing
	}
	lr.loggers[child.Name()] = child
	if level, ok := lr.levelForLocked(child.Name()); ok {
		child.SetLevel(level)
	}
	return child
}

// LoggerNamed returns the registered logger for `name`.
func (lr *Registry) LoggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// UpdateConfig replaces the patterns and re-levels every registered logger. Loggers matching no
// pattern are reset to `defaultLevel`. Invalid entries are reported to `errorLogger` and skipped.
func (lr *Registry) UpdateConfig(logConfig []LoggerPatternConfig, defaultLevel Level, errorLogger Logger) {
	patterns := make([]levelPattern, 0, len(logConfig))
	for _, lpc := range logConfig {
		pattern, err := lpc.compile()
		if err != nil {
			errorLogger.Warnw("ignoring log pattern", "pattern", lpc.Pattern, "error", err)
			continue
		}
		patterns = append(patterns, pattern)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.patterns = patterns
	for name, logger := range lr.loggers {
		level, ok := lr.levelForLocked(name)
		if !ok {
			level = defaultLevel
		}
		logger.SetLevel(level)
	}
}

func (lr *Registry) levelForLocked(name string) (Level, bool) {
	var level Level
	var found bool
	for _, pattern := range lr.patterns {
		if pattern.matcher.MatchString(name) {
			level, found = pattern.level, true
		}
	}
	return level, found
}
