package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/relimport/internal/observability"
)

func TestInit_NoopWithoutExporters(t *testing.T) {
	t.Parallel()

	providers, err := observability.InitWithWriter(observability.DefaultConfig(), io.Discard)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.MetricsHandler)
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_PrometheusServesIndexMetrics(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true

	providers, err := observability.InitWithWriter(cfg, io.Discard)
	require.NoError(t, err)

	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	require.NotNil(t, providers.MetricsHandler)

	metrics, err := observability.NewIndexMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordBuild(ctx, observability.BuildStats{Files: 3, Records: 7, Bytes: 1024, Duration: time.Second})
	metrics.RecordQuery(ctx, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	providers.MetricsHandler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "relimport_files_scanned")
	assert.Contains(t, body, "relimport_queries")
	assert.Contains(t, body, "target_info")
}

func TestIndexMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var metrics *observability.IndexMetrics

	assert.NotPanics(t, func() {
		metrics.RecordBuild(context.Background(), observability.BuildStats{})
		metrics.RecordQuery(context.Background(), true)
	})
}

func TestNewLogger_JSONCarriesServiceAndMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Mode = observability.ModeWatch

	observability.NewLogger(cfg, &buf).Info("index built", "files", 2)

	var entry map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "relimport", entry["service"])
	assert.Equal(t, "watch", entry["mode"])
	assert.Equal(t, "index built", entry["msg"])
	assert.InDelta(t, 2, entry["files"], 0)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t,
		map[string]string{"api-key": "secret", "tenant": "a"},
		observability.ParseOTLPHeaders(" api-key = secret ,tenant=a"),
	)
}

func TestDiagnosticsServer(t *testing.T) {
	t.Parallel()

	srv, err := observability.NewDiagnosticsServer("127.0.0.1:0", nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = srv.Close(context.Background()) })

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+srv.Addr()+"/healthz", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
