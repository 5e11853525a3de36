package main

import (
	"log/slog"
	"os"

	"github.com/uviespace/airspace-compress/internal/logging"
)

func setupLogger(format, level string) *slog.Logger {
	l := logging.New(format, logging.ParseLevel(level), os.Stderr).With("app", "airspace-gatewayd")
	logging.Set(l)
	return l
}
