package cluster

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics tracks clustering runs via OpenTelemetry.
type Metrics struct {
	recomputes   metric.Int64Counter
	batchSize    metric.Int64Histogram
	clusterCount metric.Int64Gauge
	duration     metric.Float64Histogram
}

func newMetrics() *Metrics {
	meter := otel.Meter("faultd/cluster")

	recomputes, _ := meter.Int64Counter("faultd.cluster.recomputes_total",
		metric.WithDescription("Number of full clustering recomputes"))
	batchSize, _ := meter.Int64Histogram("faultd.cluster.batch_size",
		metric.WithDescription("Number of records per clustering batch"))
	clusterCount, _ := meter.Int64Gauge("faultd.cluster.count",
		metric.WithDescription("Number of clusters in the current set"))
	duration, _ := meter.Float64Histogram("faultd.cluster.recompute_duration_seconds",
		metric.WithDescription("Duration of clustering recomputes"),
		metric.WithUnit("s"))

	return &Metrics{
		recomputes:   recomputes,
		batchSize:    batchSize,
		clusterCount: clusterCount,
		duration:     duration,
	}
}

// RecordRecompute records one completed clustering run.
func (m *Metrics) RecordRecompute(ctx context.Context, records, clusters int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.recomputes.Add(ctx, 1)
	m.batchSize.Record(ctx, int64(records))
	m.clusterCount.Record(ctx, int64(clusters))
	m.duration.Record(ctx, elapsed.Seconds())
}
