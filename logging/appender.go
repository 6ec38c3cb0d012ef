package logging

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the UTC timestamp layout of every appender.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. Any zapcore.Core serves, such as the observer used by
// tests.
type Appender = zapcore.Core

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		FunctionKey:   zapcore.OmitKey,
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.UTC().Format(DefaultTimeFormatStr))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// NewStdoutAppender writes tab separated console lines to stdout.
func NewStdoutAppender() Appender {
	return NewWriterAppender(os.Stdout)
}

// NewWriterAppender writes tab separated console lines to `writer`: time, level, logger name,
// caller, message and the fields as JSON.
func NewWriterAppender(writer io.Writer) Appender {
	// Hide any Sync method of the writer: syncing a terminal or a pipe fails.
	ws := zapcore.Lock(zapcore.AddSync(struct{ io.Writer }{writer}))
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), ws, zapcore.DebugLevel)
}

// FileAppender writes JSON lines to a size-rotated file.
type FileAppender struct {
	zapcore.Core
	rotator *lumberjack.Logger
}

// NewFileAppender returns an appender writing to `path`. The file is rotated once it reaches
// `maxSizeMB` and at most `maxBackups` compressed rotations are kept.
func NewFileAppender(path string, maxSizeMB, maxBackups int) *FileAppender {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.Lock(zapcore.AddSync(rotator)), zapcore.DebugLevel)
	return &FileAppender{Core: core, rotator: rotator}
}

// Close closes the current log file.
func (fa *FileAppender) Close() error {
	return fa.rotator.Close()
}
