package memenv

import (
	"log/slog"
	"os"
)

// Options configures the in-memory environment.
type Options struct {
	// Logger receives debug-level records for structural mutations
	// (create, delete, rename, restore). Defaults to a silent logger.
	Logger *slog.Logger

	// TestDir is the well-known root returned by TestDirectory.
	TestDir string
}

// DefaultOptions are the options used when none are supplied.
var DefaultOptions = Options{
	TestDir: "/test",
}

// WithLogger sets the logger used for structural mutations.
func WithLogger(logger *slog.Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTestDir overrides the well-known test data root.
func WithTestDir(dir string) func(o *Options) {
	return func(o *Options) {
		o.TestDir = dir
	}
}

// noopLogger returns a logger whose records are never emitted.
func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}
