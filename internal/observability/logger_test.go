package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/relimport/internal/observability"
)

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "relimport", observability.ModeCLI))

	traceID := trace.TraceID{0x01, 0x02}
	spanID := trace.SpanID{0x03}
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.WithGroup("build").InfoContext(ctx, "indexed", "path", "a.py")

	var entry map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "relimport", entry["service"])
	assert.Equal(t, "cli", entry["mode"])

	group, ok := entry["build"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, traceID.String(), group["trace_id"])
	assert.Equal(t, spanID.String(), group["span_id"])
	assert.Equal(t, "a.py", group["path"])
}

func TestTracingHandler_NoSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(observability.NewTracingHandler(slog.NewJSONHandler(&buf, nil), "relimport", observability.ModeCLI))
	logger.Info("plain")

	var entry map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
}
