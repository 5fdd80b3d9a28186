// Package telemetry wires optional OpenTelemetry tracing.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Setup points the gallery's upload spans at an OTLP/HTTP collector.
//
// The tracing section of the config decides whether anything is exported: an
// empty endpoint keeps the global no-op provider and Setup hands back a
// shutdown that does nothing. Otherwise every span is sampled and tagged with
// serviceName. CoreService.Close calls the returned shutdown so buffered spans
// reach the collector before the process exits.
func Setup(ctx context.Context, serviceName, endpoint string) (shutdown func(context.Context) error, err error) {
	if endpoint == "" {
		return disabled, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return disabled, fmt.Errorf("failed to create trace exporter for %s: %w", endpoint, err)
	}

	galleryResource, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return disabled, fmt.Errorf("failed to describe service %s: %w", serviceName, err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(galleryResource),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	slog.Info("exporting traces", "endpoint", endpoint, "service", serviceName)
	return provider.Shutdown, nil
}

func disabled(context.Context) error { return nil }
