// Package telemetry wires the daemon's OTel SDK: once Init runs, every
// tracer/meter obtained from the global otel package (as internal/store's
// storeTracer and storeMetrics already do) starts exporting for real instead
// of discarding into the default no-op provider.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter selects where spans and metrics go.
type Exporter string

const (
	// ExporterNone leaves the global no-op providers in place.
	ExporterNone Exporter = "none"
	// ExporterStdout prints spans and metrics as JSON to stdout, for
	// `shbd --otel-exporter stdout run` debugging.
	ExporterStdout Exporter = "stdout"
	// ExporterOTLP sends metrics to an OTLP/HTTP collector. It installs no
	// tracer provider, so spans stay on the global no-op tracer in this mode.
	ExporterOTLP Exporter = "otlp"
)

// Shutdown flushes and releases the providers Init installed.
type Shutdown func(context.Context) error

// Init installs global TracerProvider/MeterProvider for the given exporter
// kind. Passing ExporterNone (or an empty string) is a deliberate no-op:
// instruments registered in internal/store and elsewhere stay harmlessly
// inert.
func Init(ctx context.Context, exporter Exporter, version string) (Shutdown, error) {
	if exporter == "" || exporter == ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", "shellbench-daemon"),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	var shutdowns []Shutdown

	switch exporter {
	case ExporterStdout:
		traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)

		metricExp, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout metric exporter: %w", err)
		}
		mp := metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(metricExp)),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)

	case ExporterOTLP:
		metricExp, err := otlpmetrichttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp metric exporter: %w", err)
		}
		mp := metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(metricExp)),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)

	default:
		return nil, fmt.Errorf("telemetry: unknown exporter %q", exporter)
	}

	return func(ctx context.Context) error {
		var firstErr error
		for _, sd := range shutdowns {
			if err := sd(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}, nil
}
