package logging

import "context"

// Logger is the structured logger handed to every component. Messages are followed by
// alternating keys and values.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// CDebugw and CWarnw log regardless of level when ctx was tagged with WithDebug.
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})
	CWarnw(ctx context.Context, msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<name>.<subname>" that shares this logger's appenders but
	// has its own level.
	Sublogger(subname string) Logger
	Name() string
	SetLevel(level Level)
	GetLevel() Level
	// AddAppender adds an output to this logger and to every logger sharing its appenders.
	AddAppender(appender Appender)
	Sync() error
}
