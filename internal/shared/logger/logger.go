// Package logger builds the per-service zerolog logger. Loggers are
// constructed once at startup and injected; components never log through an
// ambient global.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to stdout, tagged with the service name.
func New(service, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname).
		Logger()
}
