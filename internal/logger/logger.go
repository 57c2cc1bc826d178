// Package logger provides structured logging for the ras CLI.
// Messages at info level and above are always written to stderr; debug
// messages and section headers appear only when verbose mode is enabled via
// the --debug flag, which exposes the per-step details of every reasoning loop.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// Format selects the log line encoding.
type Format string

const (
	// FormatText writes key=value lines.
	FormatText Format = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	format            = FormatText
	output  io.Writer = os.Stderr
	current slog.Handler
)

func init() {
	rebuild()
}

// Init configures verbosity, encoding and destination in one call.
func Init(v bool, f Format, w io.Writer) error {
	if f != FormatText && f != FormatJSON {
		return fmt.Errorf("unknown log format %q", f)
	}
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	format = f
	if w != nil {
		output = w
	}
	rebuild()
	return nil
}

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// rebuild must be called with mu held.
func rebuild() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		current = slog.NewJSONHandler(output, opts)
		return
	}
	current = slog.NewTextHandler(output, opts)
}

func handler() slog.Handler {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// New returns a logger tagged with a component attribute. The returned
// logger follows later Init/SetOutput calls.
func New(component string) *slog.Logger {
	return slog.New(dynamicHandler{attrs: []slog.Attr{slog.String("component", component)}})
}

// dynamicHandler resolves the package handler on every record so loggers
// created at package init observe configuration applied later by the CLI.
// Groups are flattened into attributes.
type dynamicHandler struct {
	attrs []slog.Attr
}

func (h dynamicHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return handler().Enabled(ctx, level)
}

func (h dynamicHandler) Handle(ctx context.Context, r slog.Record) error {
	return handler().WithAttrs(h.attrs).Handle(ctx, r)
}

func (h dynamicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return dynamicHandler{attrs: append(slices.Clip(h.attrs), attrs...)}
}

func (h dynamicHandler) WithGroup(_ string) slog.Handler {
	return h
}

var root = slog.New(dynamicHandler{})

// Debug logs at debug level. Visible only in verbose mode.
func Debug(msg string, args ...any) {
	root.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	root.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	root.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	root.Error(msg, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
