package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry bridges OpenTelemetry instruments to a Prometheus registry.
type Telemetry struct {
	registry      *prometheus.Registry
	meterProvider *metric.MeterProvider
}

func NewTelemetry() (*Telemetry, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		registry:      registry,
		meterProvider: metric.NewMeterProvider(metric.WithReader(exporter)),
	}, nil
}

func (t *Telemetry) MeterProvider() *metric.MeterProvider {
	return t.meterProvider
}

func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.meterProvider.Shutdown(ctx)
}
