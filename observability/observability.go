// Package observability wires slog, OpenTelemetry metrics (exported to
// Prometheus and optionally OTLP) and tracing for the pipeline and server.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var Version = "v0.1.0"

// InitAll sets up metrics and tracing for serviceName. Logging is configured
// separately by InitLogging so it is available before config is loaded. The
// returned function flushes and shuts everything down.
func InitAll(ctx context.Context, serviceName, otlpEndpoint string) (func(context.Context) error, error) {
	rsc, err := sdkresource.New(ctx,
		sdkresource.WithDetectors(gcp.NewDetector()),
		sdkresource.WithSchemaURL(semconv.SchemaURL),
		sdkresource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
			attribute.String("environment", "development"),
		))
	if err != nil {
		// Partial resources are usable; the detector fails off GCP.
		slog.Debug("resource detection incomplete", "err", err)
		if rsc == nil {
			return nil, fmt.Errorf("failed to initialize resource: %w", err)
		}
	}

	if err := InitMetrics(ctx, rsc, otlpEndpoint); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := InitTracing(ctx, rsc, otlpEndpoint); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return ShutdownAll, nil
}

func ShutdownAll(ctx context.Context) error {
	return errors.Join(ShutdownMetrics(ctx), ShutdownTracing(ctx))
}
