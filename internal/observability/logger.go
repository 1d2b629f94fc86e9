// Package observability provides structured logging for chkconf.
//
// Diagnostics go through a *slog.Logger built by NewLogger. Every resolution
// run additionally emits one record through a ResolutionLogger carrying the
// run id, platform, mode, pass count, change and warning counts, outcome,
// error (if any) and duration.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the slog output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Option configures NewLogger.
type Option func(*loggerConfig)

type loggerConfig struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option {
	return func(c *loggerConfig) { c.level = l }
}

// WithFormat sets the output format. Unknown formats fall back to text.
func WithFormat(f Format) Option {
	return func(c *loggerConfig) {
		if f == FormatJSON {
			c.format = FormatJSON
			return
		}
		c.format = FormatText
	}
}

// WithOutput sets the destination. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(c *loggerConfig) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *loggerConfig) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// NewLogger creates a slog.Logger. The default writes text at info level to
// stderr, keeping stdout free for resolved output.
func NewLogger(opts ...Option) *slog.Logger {
	cfg := &loggerConfig{
		level:  slog.LevelInfo,
		format: FormatText,
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}
	var handler slog.Handler
	if cfg.format == FormatJSON {
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	}
	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}
	return slog.New(handler)
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", s)
	}
}

// ParseFormat parses json or text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case "", FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("invalid log format: %s (valid: json, text)", s)
	}
}
