package gibs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/elninowatch/elninowatch/internal/imagery"
)

const meterName = "github.com/elninowatch/elninowatch/internal/imagery/gibs"

// Metrics holds instruments for tile availability checks.
type Metrics struct {
	checkTotal    metric.Int64Counter
	checkDuration metric.Float64Histogram
}

// NewMetrics creates check metrics on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	checkTotal, err := meter.Int64Counter(
		"imagery.check.total",
		metric.WithDescription("Total number of tile availability checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	checkDuration, err := meter.Float64Histogram(
		"imagery.check.duration",
		metric.WithDescription("Duration of tile availability checks in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		checkTotal:    checkTotal,
		checkDuration: checkDuration,
	}, nil
}

// RecordCheck records one check. Safe to call on a nil receiver.
func (m *Metrics) RecordCheck(ctx context.Context, source imagery.SourceID, reason Reason, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("imagery.source", string(source)),
		attribute.String("imagery.reason", string(reason)),
	)
	// The check context may already be past its deadline.
	ctx = context.WithoutCancel(ctx)
	m.checkTotal.Add(ctx, 1, attrs)
	m.checkDuration.Record(ctx, d.Seconds(), attrs)
}
