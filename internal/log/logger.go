package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// Options controls logger setup.
type Options struct {
	// Level is one of DEBUG, INFO, WARN, ERROR. Invalid values fall back
	// to INFO.
	Level string

	// JSON selects the JSON handler instead of the text handler.
	JSON bool

	// Writer overrides the output destination (default stderr).
	Writer io.Writer
}

// Setup initializes the global logger. First call wins.
func Setup(opts Options) {
	once.Do(func() {
		var l slog.Level
		switch strings.ToUpper(opts.Level) {
		case "DEBUG":
			l = slog.LevelDebug
		case "WARN":
			l = slog.LevelWarn
		case "ERROR":
			l = slog.LevelError
		default:
			l = slog.LevelInfo
		}

		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}

		hopts := &slog.HandlerOptions{Level: l}
		var handler slog.Handler
		if opts.JSON {
			handler = slog.NewJSONHandler(w, hopts)
		} else {
			handler = slog.NewTextHandler(w, hopts)
		}
		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

// Get returns the configured logger, or a default one if Setup hasn't been called.
func Get() *slog.Logger {
	if logger == nil {
		Setup(Options{})
	}
	return logger
}

// WithComponent returns a logger with the component field set.
func WithComponent(name string) *slog.Logger {
	return Get().With(slog.String("component", name))
}

// WithRun returns a logger with the run_id field set.
func WithRun(id string) *slog.Logger {
	return Get().With(slog.String("run_id", id))
}
