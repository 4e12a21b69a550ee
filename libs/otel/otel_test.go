package otelx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "")
	cfg := ConfigFromEnv("scheduling-service")
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRatio)

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")
	cfg = ConfigFromEnv("scheduling-service")
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	assert.Equal(t, 0.25, cfg.SampleRatio)

	t.Setenv("DEPLOY_ENV", "staging")
	t.Setenv("SERVICE_VERSION", "")
	cfg = ConfigFromEnv("scheduling-service")
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Len(t, resourceAttributes(cfg), 3)

	t.Setenv("OTEL_ENABLED", "false")
	assert.False(t, ConfigFromEnv("scheduling-service").Enabled)
}

func TestTraceContextRoundTrip(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	tc := CaptureTraceContext(ctx)
	require.NotEmpty(t, tc.Parent)
	assert.False(t, tc.IsZero())

	restored := TraceContext{Parent: tc.Parent}.Attach(context.Background())
	assert.Equal(t, tc.Parent, CaptureTraceContext(restored).Parent)

	assert.True(t, TraceContext{}.IsZero())
	assert.Equal(t, context.Background(), TraceContext{}.Attach(context.Background()))
}
