// Package logging centralizes construction of this node's structured
// logger, so every component (scheduler, dispatcher, bootstrap, controlws,
// statushttp, discovery, transmitter back-ends) is handed the same
// configured instance instead of reaching for a package-global.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// Options configures the root logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info"
	// on an unrecognized or empty value.
	Level string

	// ReportCaller adds source file:line to each entry; useful while
	// developing a new transmitter back-end, noisy in normal operation.
	ReportCaller bool
}

// New builds the root *log.Logger that is handed to every other component.
func New(opts Options) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    opts.ReportCaller,
		TimeFormat:      "15:04:05",
	})
	logger.SetLevel(parseLevel(opts.Level))
	return logger
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
