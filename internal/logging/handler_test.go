// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mue Contributors

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/muemud/mue/pkg/errutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "failed to parse JSON: %s", buf.String())
	return entry
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("mue", "1.0.0", "json", &buf)

	logger.Info("test message")

	entry := decode(t, &buf)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "mue", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "level")
	assert.NotContains(t, entry, "instance_id")
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("mue-seed", "1.0.0", "text", &buf)

	logger.Info("test message")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "mue-seed")
}

func TestSetup_DefaultFormatIsJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup("mue", "1.0.0", "", &buf).Info("test message")

	decode(t, &buf)
}

func TestNew_InstanceAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{
		Service:  "mue",
		Version:  "dev",
		Instance: "01jabc",
		Level:    slog.LevelWarn,
		Writer:   &buf,
	})

	logger.Info("filtered")
	assert.Zero(t, buf.Len(), "info should be filtered at warn level")

	logger.With("player", "p:3").Warn("kept")
	entry := decode(t, &buf)
	assert.Equal(t, "01jabc", entry["instance_id"])
	assert.Equal(t, "p:3", entry["player"])
	assert.Equal(t, "mue", entry["service"])
}

func TestHandler_WithGroupKeepsIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("mue", "1.0.0", "json", &buf).WithGroup("isc")

	logger.Info("grouped", "event", "joined")

	entry := decode(t, &buf)
	group, ok := entry["isc"].(map[string]any)
	require.True(t, ok, "expected isc group in %v", entry)
	assert.Equal(t, "joined", group["event"])
}

func TestHandler_TraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("mue", "1.0.0", "json", &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "traced message")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestHandler_NoTraceContext(t *testing.T) {
	var buf bytes.Buffer
	Setup("mue", "1.0.0", "json", &buf).Info("no trace message")

	entry := decode(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	logger := SetDefault(Options{Service: "test-service", Version: "2.0.0"})

	assert.Same(t, logger, slog.Default())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "LOG_LEVEL_INVALID", errutil.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat("json"))
	assert.True(t, ValidFormat("text"))
	assert.False(t, ValidFormat(""))
	assert.False(t, ValidFormat("xml"))
}
