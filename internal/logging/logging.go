// Package logging builds the zerolog logger shared by the binaries
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/dentsi/internal/config"
)

// New returns a timestamped logger writing to out. The level falls back to
// info when cfg.Level does not parse; format "console" selects the
// human-readable writer.
func New(out io.Writer, cfg config.LogConfig) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
