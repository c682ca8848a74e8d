package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	clientprom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
)

var registry *clientprom.Registry
var meterProvider *sdkmetric.MeterProvider

// InitMetrics installs a meter provider that always exports to a private
// Prometheus registry and, when endpoint is set, also pushes over OTLP gRPC.
func InitMetrics(ctx context.Context, rsc *sdkresource.Resource, endpoint string) error {
	slog.Debug("configuring OpenTelemetry metrics", "otlp_endpoint", endpoint)

	registry = clientprom.NewRegistry()
	prometheusExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(rsc),
		sdkmetric.WithReader(prometheusExporter),
	}
	if endpoint != "" {
		otlpExp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(otlpExp, sdkmetric.WithInterval(10*time.Second))))
	}

	meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(meterProvider)
	return nil
}

// MetricsHandler serves the Prometheus registry. Before InitMetrics it
// serves an empty registry.
func MetricsHandler() http.Handler {
	if registry == nil {
		return promhttp.HandlerFor(clientprom.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// GetMetrics returns the phonespecs_ lines of the current exposition.
func GetMetrics(ctx context.Context) string {
	recorder := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return strings.Join(lo.Filter(strings.Split(recorder.Body.String(), "\n"), func(line string, _ int) bool {
		return strings.HasPrefix(line, "phonespecs_")
	}), "\n")
}

func ShutdownMetrics(ctx context.Context) error {
	if meterProvider == nil {
		return nil
	}
	return meterProvider.Shutdown(ctx)
}
