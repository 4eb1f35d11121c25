package cache

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const cacheInstrumentationName = "github.com/fyrsmithlabs/faultd/internal/cache"

// Metrics holds cache-related metrics.
type Metrics struct {
	meter     metric.Meter
	logger    *zap.Logger
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
	size      metric.Int64Gauge
}

// NewMetrics creates a Metrics instance for the cache.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(cacheInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.hits, err = m.meter.Int64Counter(
		"faultd.cache.hits_total",
		metric.WithDescription("Total cache hits across embedding, similarity, and prediction lookups."),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		m.logger.Warn("failed to create hits counter", zap.Error(err))
	}

	m.misses, err = m.meter.Int64Counter(
		"faultd.cache.misses_total",
		metric.WithDescription("Total cache misses, including expired entries."),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		m.logger.Warn("failed to create misses counter", zap.Error(err))
	}

	m.evictions, err = m.meter.Int64Counter(
		"faultd.cache.evictions_total",
		metric.WithDescription("Entries evicted because the cache reached its maximum entry bound."),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		m.logger.Warn("failed to create evictions counter", zap.Error(err))
	}

	m.size, err = m.meter.Int64Gauge(
		"faultd.cache.entries",
		metric.WithDescription("Current number of cache entries."),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		m.logger.Warn("failed to create size gauge", zap.Error(err))
	}
}

// RecordHit records a cache hit.
func (m *Metrics) RecordHit() {
	if m.hits != nil {
		m.hits.Add(context.Background(), 1)
	}
}

// RecordMiss records a cache miss.
func (m *Metrics) RecordMiss() {
	if m.misses != nil {
		m.misses.Add(context.Background(), 1)
	}
}

// RecordEviction records an LRU eviction.
func (m *Metrics) RecordEviction() {
	if m.evictions != nil {
		m.evictions.Add(context.Background(), 1)
	}
}

// SetSize records the current entry count.
func (m *Metrics) SetSize(n int) {
	if m.size != nil {
		m.size.Record(context.Background(), int64(n))
	}
}
