package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the timestamp layout used by the console and test appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. A `zapcore.Core` satisfies this interface, which is how
// observed test logs are collected.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes console-encoded entries to a file handle.
type ConsoleAppender struct {
	encoder zapcore.Encoder
	out     zapcore.WriteSyncer
}

// consoleEncoderConfig has no stacktraces, colored levels and DefaultTimeFormatStr times.
func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewStderrAppender returns an appender that writes console-formatted logs to stderr.
func NewStderrAppender() ConsoleAppender {
	return NewWriterAppender(os.Stderr)
}

// NewWriterAppender returns an appender that writes console-formatted logs to the given file.
func NewWriterAppender(out zapcore.WriteSyncer) ConsoleAppender {
	return ConsoleAppender{
		encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig()),
		out:     out,
	}
}

// Write encodes the entry and writes it out.
func (app ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := app.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	_, err = app.out.Write(buf.Bytes())
	return err
}

// Sync flushes the underlying file.
func (app ConsoleAppender) Sync() error {
	return app.out.Sync()
}
