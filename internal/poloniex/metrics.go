package poloniex

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/0xc0d3d00d/dccd/internal/poloniex"

const (
	outcomeOK             = "ok"
	outcomeTransportError = "transport_error"
	outcomeStatusError    = "status_error"
	outcomeDecodeError    = "decode_error"
)

type clientMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	candles  metric.Int64Counter
}

func newClientMetrics(mp metric.MeterProvider) (*clientMetrics, error) {
	meter := mp.Meter(meterName)

	requests, err := meter.Int64Counter(
		"poloniex.candles.requests",
		metric.WithDescription("Requests sent to the candles endpoint"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"poloniex.candles.request.duration",
		metric.WithDescription("Duration of candles requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	candles, err := meter.Int64Counter(
		"poloniex.candles.decoded",
		metric.WithDescription("Candles decoded from responses"),
	)
	if err != nil {
		return nil, err
	}

	return &clientMetrics{
		requests: requests,
		duration: duration,
		candles:  candles,
	}, nil
}

func (m *clientMetrics) record(ctx context.Context, pair string, outcome string, elapsed time.Duration, candleCount int) {
	attrs := metric.WithAttributes(
		attribute.String("pair", pair),
		attribute.String("outcome", outcome),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if candleCount > 0 {
		m.candles.Add(ctx, int64(candleCount), metric.WithAttributes(attribute.String("pair", pair)))
	}
}
