package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/chiwar/fightcore/internal/dispatcher"

// instruments are the dispatcher's OTel counters plus a queue depth gauge
// observed from the live buffers.
type instruments struct {
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

func newInstruments(depths func() map[string]int) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	var (
		in  instruments
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&in.processed, "dispatcher.events.processed", "Commands run by a handler"},
		{&in.dropped, "dispatcher.events.dropped", "Buffered commands rejected because the queue was full"},
		{&in.failed, "dispatcher.events.failed", "Commands whose handler returned an error"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	queue, err := m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Commands waiting in each buffered queue"))
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range depths() {
			o.ObserveInt64(queue, int64(n), metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, queue)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	return &in, nil
}
