package controller

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/FrenchBattlesMap/viewer/internal/controller"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	fetchRequests   metric.Int64Counter
	fetchFailures   metric.Int64Counter
	fetchSuperseded metric.Int64Counter
	fetchDuration   metric.Float64Histogram
	renderMarkers   metric.Int64Counter
	renderSkipped   metric.Int64Counter
	enrichRequests  metric.Int64Counter
	enrichFailures  metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	var (
		out metrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&out.fetchRequests, "fetch.requests", "Range fetches started"},
		{&out.fetchFailures, "fetch.failures", "Range fetches that failed"},
		{&out.fetchSuperseded, "fetch.superseded", "Range fetches discarded for a newer request"},
		{&out.renderMarkers, "render.markers", "Markers placed on the map"},
		{&out.renderSkipped, "render.skipped", "Battles skipped for lack of usable coordinates"},
		{&out.enrichRequests, "enrich.requests", "Enrichment requests sent"},
		{&out.enrichFailures, "enrich.failures", "Enrichment requests that failed"},
	}
	for _, c := range counters {
		*c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
	}

	out.fetchDuration, err = m.Float64Histogram(
		"fetch.duration",
		metric.WithDescription("Range fetch round trip"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch duration histogram: %w", err)
	}
	return &out, nil
}
