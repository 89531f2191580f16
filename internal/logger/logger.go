package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	GlobalLogLevel LogLevel = LogLevelInfo

	output io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
)

type Log struct {
	zl  zerolog.Logger
	err error
}

// New returns a logger at the global level.
func New() *Log {
	zl := zerolog.New(output).With().Timestamp().Logger().Level(toZerolog(GlobalLogLevel))
	return &Log{zl: zl}
}

// SetGlobalLevel changes the level used by loggers created afterwards.
// Unknown values fall back to info.
func SetGlobalLevel(level string) {
	GlobalLogLevel = ParseLevel(level)
}

// SetOutput redirects every logger created afterwards. Tests use io.Discard.
func SetOutput(w io.Writer) {
	output = w
}

func ParseLevel(level string) LogLevel {
	switch LogLevel(strings.ToLower(strings.TrimSpace(level))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "warning":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func toZerolog(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Log) SetLevel(level LogLevel) {
	l.zl = l.zl.Level(toZerolog(level))
}

func (l *Log) WithError(err error) *Log {
	return &Log{zl: l.zl, err: err}
}

// WithField returns a copy that attaches key=value to every entry.
func (l *Log) WithField(key string, value interface{}) *Log {
	return &Log{zl: l.zl.With().Interface(key, value).Logger(), err: l.err}
}

// WithDuration attaches a latency field in milliseconds.
func (l *Log) WithDuration(key string, d time.Duration) *Log {
	return &Log{zl: l.zl.With().Dur(key, d).Logger(), err: l.err}
}

func (l *Log) event(e *zerolog.Event) *zerolog.Event {
	if l.err != nil {
		return e.Err(l.err)
	}
	return e
}

func (l *Log) Debug(msg string) {
	l.event(l.zl.Debug()).Msg(msg)
}

func (l *Log) Info(msg string) {
	l.event(l.zl.Info()).Msg(msg)
}

func (l *Log) Warn(msg string) {
	l.event(l.zl.Warn()).Msg(msg)
}

func (l *Log) Error(msg string) {
	l.event(l.zl.Error()).Msg(msg)
}
