// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

// Package logging builds the structured loggers used by mue processes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// contextHandler stamps every record with the process identity and any
// trace context carried by the request.
type contextHandler struct {
	handler  slog.Handler
	service  string
	version  string
	instance string
}

// Handle adds service identity and trace context to the record.
func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)
	if h.instance != "" {
		r.AddAttrs(slog.String("instance_id", h.instance))
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.handler.Handle(ctx, r)
}

// Enabled reports whether the wrapped handler accepts the level.
func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.handler = h.handler.WithAttrs(attrs)
	return &clone
}

// WithGroup returns a new handler with the given group.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.handler = h.handler.WithGroup(name)
	return &clone
}

// Options controls logger construction. Zero values select JSON output at
// info level on stderr.
type Options struct {
	Service  string
	Version  string
	Instance string
	Format   string
	Level    slog.Level
	Writer   io.Writer
}

// New creates a configured slog.Logger.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var base slog.Handler
	if opts.Format == FormatText {
		base = slog.NewTextHandler(w, handlerOpts)
	} else {
		base = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(&contextHandler{
		handler:  base,
		service:  opts.Service,
		version:  opts.Version,
		instance: opts.Instance,
	})
}

// Setup creates a debug-level logger for service and version.
// format is "json" or "text" (empty means json). A nil w writes to stderr.
func Setup(service, version, format string, w io.Writer) *slog.Logger {
	return New(Options{
		Service: service,
		Version: version,
		Format:  format,
		Level:   slog.LevelDebug,
		Writer:  w,
	})
}

// SetDefault installs a logger built from opts as the slog default.
func SetDefault(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
// The empty string selects info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, oops.Code("LOG_LEVEL_INVALID").
			With("level", name).
			Errorf("unknown log level %q", name)
	}
}

// ValidFormat reports whether format names a supported output format.
func ValidFormat(format string) bool {
	return format == FormatJSON || format == FormatText
}
