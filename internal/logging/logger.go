package logging

import (
	"io"
	"log/slog"
)

// InitLogger builds a JSON logger with source locations and installs it as
// the process default.
func InitLogger(w io.Writer, level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
	slog.SetDefault(log)
	return log
}

func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	return base.With(slog.String("component", component))
}
