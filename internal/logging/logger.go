// Package logging configures the global zerolog logger and emits the startup
// summary event.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv names the environment variable holding the log level.
const LevelEnv = "PHOTOBOOTH_LOG_LEVEL"

// Init sets the global level from PHOTOBOOTH_LOG_LEVEL (debug, info, warn,
// error; default info) and writes human-readable output to stderr.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// InitJSON is Init with newline-delimited JSON on w, for hosts whose log
// collector parses structured lines (Lambda, containers).
func InitJSON(w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
