package logging

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl gates entries on its own level and writes them through a sugared zap logger whose core is
// the appender set shared by the whole logger tree.
type impl struct {
	name  string
	level zap.AtomicLevel
	outs  *appenderSet
	sugar *zap.SugaredLogger
}

func newImpl(name string, level Level, outs *appenderSet) *impl {
	// Skip Debugw (and friends) and write so that callers are reported.
	const wrapperFrames = 2
	return &impl{
		name:  name,
		level: zap.NewAtomicLevelAt(level.AsZap()),
		outs:  outs,
		sugar: zap.New(outs, zap.AddCaller(), zap.AddCallerSkip(wrapperFrames)).Named(name).Sugar(),
	}
}

func (imp *impl) Name() string {
	return imp.name
}

func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	return Level(imp.level.Level())
}

func (imp *impl) AddAppender(appender Appender) {
	imp.outs.add(appender)
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return newImpl(name, imp.GetLevel(), imp.outs)
}

func (imp *impl) Sync() error {
	return imp.outs.Sync()
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.write(context.Background(), DEBUG, msg, keysAndValues)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.write(context.Background(), INFO, msg, keysAndValues)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.write(context.Background(), WARN, msg, keysAndValues)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.write(context.Background(), ERROR, msg, keysAndValues)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.write(ctx, DEBUG, msg, keysAndValues)
}

func (imp *impl) CWarnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	imp.write(ctx, WARN, msg, keysAndValues)
}

// enabled is true when either this logger's level or the global debug flag lets `level` through.
func (imp *impl) enabled(level Level) bool {
	return GlobalLogLevel.Enabled(zapcore.DebugLevel) || imp.level.Enabled(level.AsZap())
}

func (imp *impl) write(ctx context.Context, level Level, msg string, keysAndValues []interface{}) {
	debugName, tagged := DebugName(ctx)
	if !tagged && !imp.enabled(level) {
		return
	}
	if tagged {
		keysAndValues = append(keysAndValues[:len(keysAndValues):len(keysAndValues)], "debug_log", debugName)
	}
	switch level {
	case DEBUG:
		imp.sugar.Debugw(msg, keysAndValues...)
	case INFO:
		imp.sugar.Infow(msg, keysAndValues...)
	case WARN:
		imp.sugar.Warnw(msg, keysAndValues...)
	case ERROR:
		imp.sugar.Errorw(msg, keysAndValues...)
	}
}

// appenderSet is a zapcore.Core writing to every appender of a logger tree. Appenders may be
// added while loggers are in use. Level filtering happens in impl, so the set enables everything.
type appenderSet struct {
	mu        sync.RWMutex
	appenders []Appender
}

func newAppenderSet(appenders ...Appender) *appenderSet {
	return &appenderSet{appenders: appenders}
}

func (as *appenderSet) add(appender Appender) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.appenders = append(as.appenders, appender)
}

func (as *appenderSet) Enabled(zapcore.Level) bool {
	return true
}

func (as *appenderSet) With(fields []zapcore.Field) zapcore.Core {
	as.mu.RLock()
	defer as.mu.RUnlock()
	cores := make([]zapcore.Core, 0, len(as.appenders))
	for _, appender := range as.appenders {
		cores = append(cores, appender.With(fields))
	}
	return zapcore.NewTee(cores...)
}

func (as *appenderSet) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return checked.AddCore(entry, as)
}

func (as *appenderSet) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	as.mu.RLock()
	defer as.mu.RUnlock()
	var errs error
	for _, appender := range as.appenders {
		if appender.Enabled(entry.Level) {
			errs = multierr.Append(errs, appender.Write(entry, fields))
		}
	}
	return errs
}

func (as *appenderSet) Sync() error {
	as.mu.RLock()
	defer as.mu.RUnlock()
	var errs error
	for _, appender := range as.appenders {
		errs = multierr.Append(errs, appender.Sync())
	}
	return errs
}
