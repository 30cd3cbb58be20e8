package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging contract shared by every package.
type Logger = zerolog.Logger

// NewLogger builds the process logger: JSON to stdout, or a console writer
// with debug level when appEnv is "development".
func NewLogger(appEnv string) Logger {
	return newLogger(appEnv, os.Stdout)
}

func newLogger(appEnv string, out io.Writer) Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "relay").
		Logger()
}

// Discard returns a logger that drops everything. Clients use it when the
// caller passes no logger.
func Discard() *Logger {
	l := zerolog.Nop()
	return &l
}
