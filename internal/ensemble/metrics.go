package ensemble

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics tracks served predictions via OpenTelemetry.
type Metrics struct {
	predictions metric.Int64Counter
	causeCount  metric.Int64Histogram
	duration    metric.Float64Histogram
}

func newMetrics() *Metrics {
	meter := otel.Meter("faultd/ensemble")

	predictions, _ := meter.Int64Counter("faultd.ensemble.predictions_total",
		metric.WithDescription("Number of ensemble predictions served"))
	causeCount, _ := meter.Int64Histogram("faultd.ensemble.causes_returned",
		metric.WithDescription("Number of causes surviving the probability floor"))
	duration, _ := meter.Float64Histogram("faultd.ensemble.prediction_duration_seconds",
		metric.WithDescription("End-to-end prediction duration"),
		metric.WithUnit("s"))

	return &Metrics{
		predictions: predictions,
		causeCount:  causeCount,
		duration:    duration,
	}
}

// RecordPrediction records one served prediction.
func (m *Metrics) RecordPrediction(ctx context.Context, causes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictions.Add(ctx, 1)
	m.causeCount.Record(ctx, int64(causes))
	m.duration.Record(ctx, elapsed.Seconds())
}
