package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib *log.Logger that forwards lines to base at debug level,
// tagged with the component name. Libraries that only accept *log.Logger or a
// Printf-style sink log through it.
func New(base *slog.Logger, component string) *log.Logger {
	if base == nil {
		base = slog.New(slog.DiscardHandler)
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelDebug)
}
