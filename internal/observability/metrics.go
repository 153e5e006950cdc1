package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCompilesTotal   = "polynote.compiles.total"
	metricCompileDuration = "polynote.compile.duration.seconds"
	metricImplicitProbes  = "polynote.implicit.probes.total"
	metricPruneRatio      = "polynote.prune.retained.ratio"

	attrStatus = "status"
	attrKind   = "kind"

	// StatusOK and StatusError label compile outcomes.
	StatusOK    = "ok"
	StatusError = "error"
)

// compileDurationBuckets covers 1ms to 30s; single-cell type checks are
// usually sub-second, source-mode library resolution can take seconds.
var compileDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// CompileMetrics holds the OTel instruments for cell compilation telemetry.
type CompileMetrics struct {
	compilesTotal   metric.Int64Counter
	compileDuration metric.Float64Histogram
	implicitProbes  metric.Int64Counter
	pruneRatio      metric.Float64Histogram
}

// NewCompileMetrics creates the compile metric instruments from the given
// meter.
func NewCompileMetrics(mt metric.Meter) (*CompileMetrics, error) {
	b := newMetricBuilder(mt)

	cm := &CompileMetrics{
		compilesTotal:   b.counter(metricCompilesTotal, "Total number of cell compilations", "{compilation}"),
		compileDuration: b.histogram(metricCompileDuration, "Cell compilation duration in seconds", "s", compileDurationBuckets...),
		implicitProbes:  b.counter(metricImplicitProbes, "Total number of implicit probe compilations", "{probe}"),
		pruneRatio:      b.histogram(metricPruneRatio, "Fraction of declared dependencies retained by pruning", "1"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return cm, nil
}

// RecordCompile records one completed cell compilation.
func (cm *CompileMetrics) RecordCompile(ctx context.Context, status string, duration time.Duration) {
	if cm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	cm.compilesTotal.Add(ctx, 1, attrs)
	cm.compileDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordImplicitProbe records one implicit probe compilation, batched or
// per-type.
func (cm *CompileMetrics) RecordImplicitProbe(ctx context.Context, kind string) {
	if cm == nil {
		return
	}

	cm.implicitProbes.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordPrune records the fraction of a cell's declared dependency surface
// retained after pruning.
func (cm *CompileMetrics) RecordPrune(ctx context.Context, declared, retained int) {
	if cm == nil || declared == 0 {
		return
	}

	cm.pruneRatio.Record(ctx, float64(retained)/float64(declared))
}
