package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger with a console writer on stderr.
func Init(level string) {
	SetOutput(os.Stderr)
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// SetOutput redirects the global logger. Writers other than stderr get plain JSON lines.
func SetOutput(w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	if w == os.Stderr {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level; unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
