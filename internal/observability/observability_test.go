package observability_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/ikpaetukgabriel/polynote/internal/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "polynote", cfg.ServiceName)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Positive(t, cfg.ShutdownTimeoutSec)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, providers.Shutdown(ctx))
}

func TestBuildLogger(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	logger := observability.BuildLogger(cfg)
	require.NotNil(t, logger)

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))

	cfg.LogJSON = true
	require.NotNil(t, observability.BuildLogger(cfg))
}

func TestCompileMetricsRecord(t *testing.T) {
	t.Parallel()

	metrics, err := observability.NewCompileMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()

	metrics.RecordCompile(ctx, observability.StatusOK, 12*time.Millisecond)
	metrics.RecordCompile(ctx, observability.StatusError, time.Second)
	metrics.RecordImplicitProbe(ctx, "batch")
	metrics.RecordPrune(ctx, 4, 1)
	metrics.RecordPrune(ctx, 0, 0)
}

func TestCompileMetricsNilReceiver(t *testing.T) {
	t.Parallel()

	var metrics *observability.CompileMetrics

	ctx := context.Background()

	metrics.RecordCompile(ctx, observability.StatusOK, time.Millisecond)
	metrics.RecordImplicitProbe(ctx, "single")
	metrics.RecordPrune(ctx, 2, 2)
}

func TestPrometheusHandler(t *testing.T) {
	t.Parallel()

	handler, provider, err := observability.PrometheusHandler()
	require.NoError(t, err)
	require.NotNil(t, handler)
	require.NotNil(t, provider)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = provider.Shutdown(ctx)
	})

	_, err = observability.NewCompileMetrics(provider.Meter("test"))
	require.NoError(t, err)
}
