package logx

import (
	"io"
	"os"
	"strings"

	"github.com/mNandhu/PACE/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

// LoggerOpts configures the process-wide logger.
// Level overrides the environment default when set (debug, info, warn, error).
// Output defaults to stderr so chat output on stdout stays clean.
type LoggerOpts struct {
	Environment core.Environment
	Level       string
	Output      io.Writer
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

func Init(otps ...LoggerOpts) {
	o := safe(otps...)
	out := o.Output
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.DebugLevel
	if o.Environment.IsProduction() {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		level = zerolog.InfoLevel
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Caller().Logger()
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(o.Level))); err == nil && o.Level != "" {
		level = l
	}
	log.Logger = log.Logger.Level(level)
}

// Disable silences all logging, mostly useful in tests.
func Disable() {
	log.Logger = zerolog.Nop()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
