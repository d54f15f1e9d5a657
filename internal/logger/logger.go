package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the base logger. In development or local it writes a human-readable
// console stream; anywhere else it writes structured JSON to stdout.
func New(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var writer = os.Stdout
	if environment == "development" || environment == "local" {
		console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(console).With().Timestamp().Str("environment", environment).Logger()
	}

	return zerolog.New(writer).With().Timestamp().Str("environment", environment).Logger()
}
