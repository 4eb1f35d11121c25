package classifier

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics tracks training runs and predictions via OpenTelemetry.
type Metrics struct {
	trainings     metric.Int64Counter
	trainDuration metric.Float64Histogram
	predictions   metric.Int64Counter
}

func newMetrics() *Metrics {
	meter := otel.Meter("faultd/classifier")

	trainings, _ := meter.Int64Counter("faultd.classifier.trainings_total",
		metric.WithDescription("Number of completed training runs"))
	trainDuration, _ := meter.Float64Histogram("faultd.classifier.training_duration_seconds",
		metric.WithDescription("Duration of training runs"),
		metric.WithUnit("s"))
	predictions, _ := meter.Int64Counter("faultd.classifier.predictions_total",
		metric.WithDescription("Number of predictions served, by model"))

	return &Metrics{
		trainings:     trainings,
		trainDuration: trainDuration,
		predictions:   predictions,
	}
}

// RecordTraining records one completed training run.
func (m *Metrics) RecordTraining(ctx context.Context, samples int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.trainings.Add(ctx, 1, metric.WithAttributes(attribute.Int("samples", samples)))
	m.trainDuration.Record(ctx, elapsed.Seconds())
}

// RecordPrediction records one served prediction for the given model.
func (m *Metrics) RecordPrediction(ctx context.Context, model string) {
	if m == nil {
		return
	}
	m.predictions.Add(ctx, 1, metric.WithAttributes(attribute.String("model", model)))
}
