// Package telemetry builds the tracer provider for the gateway. Spans go
// to a pretty-printed stdout exporter; the deployment story is a single
// process whose logs are the collection sink.
package telemetry

import (
	"log/slog"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Identity names this deployment in every emitted span.
type Identity struct {
	ServiceName string
	Version     string
	Environment string
}

// Setup builds a tracer provider carrying the deployment identity. The
// provider is returned, not registered globally; the composition root
// decides what becomes ambient and owns the shutdown.
func Setup(id Identity, logger *slog.Logger) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(id.ServiceName),
			semconv.ServiceVersion(id.Version),
			semconv.DeploymentEnvironment(id.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	logger.Info("tracing configured",
		slog.String("service", id.ServiceName),
		slog.String("version", id.Version),
		slog.String("environment", id.Environment),
	)

	return tp, nil
}
