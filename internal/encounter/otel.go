package encounter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/chiwar/fightcore/internal/encounter"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	mutations         metric.Int64Counter
	broadcastFailures metric.Int64Counter
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := meter()

	mutations, err := m.Int64Counter(
		"encounter.mutations",
		metric.WithDescription("Total committed encounter mutations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mutations counter: %w", err)
	}

	failures, err := m.Int64Counter(
		"encounter.broadcast.failures",
		metric.WithDescription("Total fight broadcasts that failed after commit"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating broadcast failures counter: %w", err)
	}

	return &metrics{mutations: mutations, broadcastFailures: failures}, nil
}

func (m *metrics) mutation(ctx context.Context, op string) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *metrics) broadcastFailed(ctx context.Context, op string) {
	m.broadcastFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
