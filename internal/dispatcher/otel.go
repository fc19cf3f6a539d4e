package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/FrenchBattlesMap/viewer/internal/dispatcher"

type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
}

func newInstruments(queues func(observe func(command string, n int))) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	in := &instruments{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&in.processed, "dispatcher.events.processed", "Queued events handled"},
		{&in.dropped, "dispatcher.events.dropped", "Events dropped or displaced by a full queue"},
		{&in.failed, "dispatcher.events.failed", "Queued events whose handler returned an error"},
	}
	for _, c := range counters {
		counter, err := m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	in.queueSize, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Pending events per buffered command"))
	if err != nil {
		return nil, fmt.Errorf("create dispatcher.queue.size: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		queues(func(command string, n int) {
			o.ObserveInt64(in.queueSize, int64(n), metric.WithAttributes(attribute.String("command", command)))
		})
		return nil
	}, in.queueSize)
	if err != nil {
		return nil, fmt.Errorf("register queue size callback: %w", err)
	}
	return in, nil
}
