package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Output is the output writer (defaults to os.Stderr).
	Output io.Writer
	// AddSource adds source file information to log entries.
	AddSource bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// level is shared by every logger built with New so a config reload can
// change verbosity without rebuilding handlers.
var level = new(slog.LevelVar)

// New builds a slog logger. Records logged with a context carry the
// request and trace IDs found in it, and key material is redacted.
func New(cfg Config) (*slog.Logger, error) {
	lvl, ok := ParseLevel(cfg.Level)
	if !ok && cfg.Level != "" {
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	level.Set(lvl)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json", "":
		h = slog.NewJSONHandler(out, opts)
	case "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(contextHandler{h}), nil
}

// SetLevel changes the level of every logger created by New.
// Unknown names leave the level unchanged and return false.
func SetLevel(name string) bool {
	lvl, ok := ParseLevel(name)
	if ok {
		level.Set(lvl)
	}
	return ok
}

// Level returns the current level name.
func Level() string {
	return strings.ToLower(level.Level().String())
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
