package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment variables.
// LIVERY_LOG_LEVEL controls the log level: debug, info, warn, error (default: info).
// GEMINI_LOG_LEVEL is honoured when LIVERY_LOG_LEVEL is unset.
func Init() {
	InitWithWriter(os.Stderr)
}

// InitWithWriter is Init with an explicit console destination. The terminal UI
// uses it to keep log output away from the screen it is drawing on.
func InitWithWriter(w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(EnvOrDefault("LIVERY_LOG_LEVEL", os.Getenv("GEMINI_LOG_LEVEL"))))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})
}

// ParseLevel maps a level name to a zerolog level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
