package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/findyourpaths/phonespecs/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

var tracerProvider *sdktrace.TracerProvider
var inMemoryExporter *tracetest.InMemoryExporter

// Tracer returns the tracer used for pipeline spans.
func Tracer() trace.Tracer {
	return otel.Tracer(ScopeName)
}

// InitTracing always collects spans in memory so a run can dump its span
// tree, and additionally batches them to an OTLP collector when endpoint is
// set.
func InitTracing(ctx context.Context, rsc *sdkresource.Resource, endpoint string) error {
	slog.Debug("configuring OpenTelemetry tracing", "otlp_endpoint", endpoint)

	inMemoryExporter = tracetest.NewInMemoryExporter()
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(rsc),
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(inMemoryExporter)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if endpoint != "" {
		otlpExp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(otlpExp))
	}

	tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return nil
}

// TraceSpans returns the spans collected so far, sorted by start time.
func TraceSpans(ctx context.Context) tracetest.SpanStubs {
	if tracerProvider == nil {
		return nil
	}
	if err := tracerProvider.ForceFlush(ctx); err != nil {
		slog.Error("failed to flush traces", "err", err)
	}
	rets := inMemoryExporter.GetSpans()
	sort.SliceStable(rets, func(i, j int) bool {
		return rets[i].StartTime.Before(rets[j].StartTime)
	})
	return rets
}

// TraceSpanTree renders spans as an indented tree with their attributes.
func TraceSpanTree(spans []tracetest.SpanStub) string {
	children := make(map[trace.SpanID][]tracetest.SpanStub)
	var roots []tracetest.SpanStub
	for _, span := range spans {
		if span.Parent.IsValid() {
			children[span.Parent.SpanID()] = append(children[span.Parent.SpanID()], span)
		} else {
			roots = append(roots, span)
		}
	}

	ret := &bytes.Buffer{}
	for _, root := range roots {
		fmt.Fprintf(ret, "%s\n", root.Name)
		for _, attr := range root.Attributes {
			fmt.Fprintf(ret, "╞ attr %s: %s\n", attr.Key, formatAttrValue(attr.Value))
		}
		printTree(ret, root.SpanContext.SpanID(), children, "")
	}
	return ret.String()
}

func printTree(w io.Writer, parentID trace.SpanID, children map[trace.SpanID][]tracetest.SpanStub, prefix string) {
	for i, span := range children[parentID] {
		connector, newPrefix := "├── ", prefix+"│   "
		if i == len(children[parentID])-1 {
			connector, newPrefix = "└── ", prefix+"    "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, span.Name)
		for _, attr := range span.Attributes {
			fmt.Fprintf(w, "%s╞ attr %s: %s\n", newPrefix, attr.Key, formatAttrValue(attr.Value))
		}
		printTree(w, span.SpanContext.SpanID(), children, newPrefix)
	}
}

func formatAttrValue(v attribute.Value) string {
	if v.Type() == attribute.STRING {
		return fmt.Sprintf("%q", v.AsString())
	}
	return v.Emit()
}

// WriteTraceTree writes the span tree collected so far to p.
func WriteTraceTree(ctx context.Context, p string) error {
	if err := utils.WriteStringFile(p, TraceSpanTree(TraceSpans(ctx))); err != nil {
		return fmt.Errorf("failed to write trace tree file: %w", err)
	}
	slog.Info("wrote trace tree", "path", p)
	return nil
}

func ShutdownTracing(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}
	return tracerProvider.Shutdown(ctx)
}
