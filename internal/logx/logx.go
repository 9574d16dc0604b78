package logx

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns the service-wide logger. Plain JSON to stdout; the log
// pipeline (not this service) handles shipping and pretty-printing.
func New(service string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
}
