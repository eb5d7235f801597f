package depositwatch

import (
	"context"

	"github.com/gabapcia/depositwatch/internal/confirmation"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/gabapcia/depositwatch/internal/depositwatch"

type metrics struct {
	cycles        metric.Int64Counter
	cycleFailures metric.Int64Counter
	candidates    metric.Int64Counter
	deliveries    metric.Int64Counter
	head          metric.Int64Gauge
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter(instrumentationName)

	cycles, err := meter.Int64Counter("depositwatch.cycles",
		metric.WithDescription("Scan cycles started."),
	)
	if err != nil {
		return nil, err
	}

	cycleFailures, err := meter.Int64Counter("depositwatch.cycle.failures",
		metric.WithDescription("Scan cycles aborted by an error."),
	)
	if err != nil {
		return nil, err
	}

	candidates, err := meter.Int64Counter("depositwatch.candidates",
		metric.WithDescription("Eligible transfers found, per phase."),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("depositwatch.deliveries",
		metric.WithDescription("Notification attempts, per phase and outcome."),
	)
	if err != nil {
		return nil, err
	}

	head, err := meter.Int64Gauge("depositwatch.head",
		metric.WithDescription("Chain head seen by the last cycle."),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		cycles:        cycles,
		cycleFailures: cycleFailures,
		candidates:    candidates,
		deliveries:    deliveries,
		head:          head,
	}, nil
}

func (m *metrics) recordCandidate(ctx context.Context, p confirmation.Phase) {
	m.candidates.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", p.String())))
}

func (m *metrics) recordDelivery(ctx context.Context, p confirmation.Phase, acknowledged bool) {
	outcome := "rejected"
	if acknowledged {
		outcome = "acknowledged"
	}

	m.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", p.String()),
		attribute.String("outcome", outcome),
	))
}
