package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtid/internal/config"
)

func TestInitializeOTel_Defaults(t *testing.T) {
	providers, err := InitializeOTel(nil, NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)
}

func TestInitializeOTel_Disabled(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{TraceExporter: "none"}, "test")
	providers, err := InitializeOTel(cfg, NewLogger(io.Discard, "error"))
	require.NoError(t, err)

	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)

	// no-op meter still yields usable instruments
	metrics, err := NewDashboardMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordPageRender(context.Background(), "page1", "Formal", "ok")
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := &OTelConfig{ServiceName: ServiceName, EnableTracing: true, TraceExporter: "otlp"}
	_, err := InitializeOTel(cfg, NewLogger(io.Discard, "error"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestInitializeOTel_Tracing(t *testing.T) {
	cfg := &OTelConfig{ServiceName: ServiceName, ServiceVersion: "test", EnableTracing: true, TraceExporter: "stdout", SampleRatio: 1}
	providers, err := InitializeOTel(cfg, NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "render")
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	RecordError(ctx, errors.New("boom"))
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.TracerProvider.Shutdown(ctx))
}

func TestDashboardMetrics_PrometheusExposition(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewDashboardMetrics(providers.Meter)
	require.NoError(t, err)
	sessions := 4
	require.NoError(t, RegisterSessionGauge(providers.Meter, func() int { return sessions }))

	ctx := context.Background()
	metrics.RecordHTTPRequest(ctx, http.MethodGet, "/api/pages/{page}", http.StatusOK, 15*time.Millisecond)
	metrics.RecordPageRender(ctx, "page3", "Informal", "ok")
	metrics.RecordChartRender(ctx, "page1", "flow-share", nil)
	metrics.RecordExport(ctx, "xlsx", "Formal", 42, time.Second, nil)
	metrics.RecordExport(ctx, "csv", "Formal", 0, time.Millisecond, errors.New("disk full"))
	metrics.RecordChat(ctx, "local", true, 2*time.Millisecond)
	metrics.RecordWebSocket(ctx, 1)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	for _, name := range []string{
		"http_requests_total",
		"dashboard_page_renders_total",
		"dashboard_chart_renders_total",
		"dashboard_exports_total",
		"dashboard_export_rows",
		"dashboard_chat_messages_total",
		"dashboard_websocket_connections",
		"dashboard_sessions_active",
		"go_goroutines",
	} {
		assert.Contains(t, body, name)
	}
	assert.Contains(t, body, `page="page3"`)
	assert.Contains(t, body, `status="error"`)
}

func TestDashboardMetrics_NilSafe(t *testing.T) {
	var m *DashboardMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
		m.RecordPageRender(ctx, "page1", "Formal", "ok")
		m.RecordChartRender(ctx, "page1", "x", nil)
		m.RecordExport(ctx, "csv", "Formal", 1, time.Millisecond, nil)
		m.RecordChat(ctx, "local", false, time.Millisecond)
		m.RecordWebSocket(ctx, -1)
	})
}
