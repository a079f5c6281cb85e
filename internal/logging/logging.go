// Package logging builds the root slog logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to w. format is "text", "json" or "pretty";
// pretty renders colored, human-oriented lines.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	case "pretty":
		h := log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           log.Level(lvl),
		})
		return slog.New(h)
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
}
