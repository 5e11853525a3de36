// Package logging provides the process-wide structured logger shared by
// the CLI and gateway daemon binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Store(l)
}

// L returns the current global logger.
func L() *slog.Logger { return logger.Load() }

// Set replaces the global logger. A nil argument is ignored.
func Set(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// New builds a logger writing to w (stderr if nil) in the given format
// ("text" or "json") at the given level.
func New(format string, level slog.Leveler, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}

// ParseLevel maps the CLI/config "debug|info|warn|error" vocabulary onto a
// slog.Level, defaulting to Info for anything unrecognised.
func ParseLevel(s string) slog.Level {
	switch s {
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

// FieldError formats err as a slog attribute pair under the conventional
// "err" key.
func FieldError(err error) slog.Attr {
	if err == nil {
		return slog.String("err", "")
	}
	return slog.String("err", fmt.Sprint(err))
}
