// +build !logless

// Package logger provides the shared console logger used by pbio's command
// line tools, so every binary gets the same human-readable output and the
// same PBIO_LOG_LEVEL override instead of each main() wiring zerolog by
// hand.
package logger

import (
	"os"

	"github.com/rs/zerolog"
	logger "github.com/rs/zerolog/log"
)

// Log is the process-wide console logger. Binaries that want a per-port
// logger should derive one with Log.With().Int("port", n).Logger() rather
// than constructing a new root logger.
var Log = logger.With().Caller().Logger().Output(zerolog.ConsoleWriter{Out: os.Stderr})

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lvl, err := zerolog.ParseLevel(os.Getenv("PBIO_LOG_LEVEL")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}
