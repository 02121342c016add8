package availability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/elninowatch/elninowatch/internal/availability"

// Metrics holds instruments for date resolutions.
type Metrics struct {
	resultTotal  metric.Int64Counter
	fallbackDays metric.Int64Histogram
}

// NewMetrics creates resolution metrics on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	resultTotal, err := meter.Int64Counter(
		"imagery.resolution.total",
		metric.WithDescription("Number of per-source date resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, err
	}

	fallbackDays, err := meter.Int64Histogram(
		"imagery.resolution.fallback_days",
		metric.WithDescription("Days between requested and resolved imagery date"),
		metric.WithUnit("d"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		resultTotal:  resultTotal,
		fallbackDays: fallbackDays,
	}, nil
}

// RecordResult records one source result. Safe to call on a nil receiver.
func (m *Metrics) RecordResult(ctx context.Context, r Result) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("imagery.source", string(r.Source)),
		attribute.String("imagery.outcome", string(r.Outcome)),
	)
	m.resultTotal.Add(ctx, 1, attrs)
	if r.FallbackDays != nil {
		m.fallbackDays.Record(ctx, int64(*r.FallbackDays), attrs)
	}
}
