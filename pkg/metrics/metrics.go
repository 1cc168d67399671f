// Package metrics instruments the matching engine with OpenTelemetry
// counters: orders added, orders cancelled, trades emitted, and
// self-match cancellations. It deliberately stops at an in-process
// manual reader, with no OTLP exporter and no collector endpoint, since
// nothing in this module's scope talks to a metrics backend over the
// network.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationName = "github.com/fleetmatch/limitbook/pkg/metrics"

// EngineMetrics holds the counters recorded around every engine
// operation.
type EngineMetrics struct {
	mu sync.Mutex

	ordersAdded      metric.Int64Counter
	ordersCancelled  metric.Int64Counter
	tradesEmitted    metric.Int64Counter
	selfMatchCancels metric.Int64Counter
}

// New creates an EngineMetrics instance instrumented against meter.
func New(meter metric.Meter) (*EngineMetrics, error) {
	ordersAdded, err := meter.Int64Counter(
		"limitbook.orders.added",
		metric.WithDescription("Total limit orders submitted"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	ordersCancelled, err := meter.Int64Counter(
		"limitbook.orders.cancelled",
		metric.WithDescription("Total limit orders cancelled"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	tradesEmitted, err := meter.Int64Counter(
		"limitbook.trades.emitted",
		metric.WithDescription("Total trades emitted by the matching engine"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return nil, err
	}

	selfMatchCancels, err := meter.Int64Counter(
		"limitbook.orders.self_match_cancelled",
		metric.WithDescription("Total incoming orders cancelled by self-match prevention"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		ordersAdded:      ordersAdded,
		ordersCancelled:  ordersCancelled,
		tradesEmitted:    tradesEmitted,
		selfMatchCancels: selfMatchCancels,
	}, nil
}

// NewManualReader wires a Provider backed by an sdk/metric manual
// reader, suitable for scraping counters in-process (tests, a debug
// endpoint) without standing up an exporter pipeline.
func NewManualReader() (*sdkmetric.ManualReader, metric.Meter) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, provider.Meter(instrumentationName)
}

func (m *EngineMetrics) IncOrdersAdded(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ordersAdded.Add(ctx, 1)
}

func (m *EngineMetrics) IncOrdersCancelled(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ordersCancelled.Add(ctx, 1)
}

func (m *EngineMetrics) IncTradesEmitted(ctx context.Context, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradesEmitted.Add(ctx, n)
}

func (m *EngineMetrics) IncSelfMatchCancels(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selfMatchCancels.Add(ctx, 1)
}
