package observability

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope for every meter and tracer.
const ScopeName = "github.com/findyourpaths/phonespecs"

// Instruments are created against the global meter, which delegates to the
// provider installed by InitMetrics. Until then they record nothing.
var Instruments = mustInstruments(otel.Meter(ScopeName), "phonespecs")

type instruments struct {
	Requests        metric.Int64Counter
	PagesFetched    metric.Int64Counter
	ProductsScraped metric.Int64Counter
	ProductsDropped metric.Int64Counter
	ColumnsMissing  metric.Int64Counter
	RowsWritten     metric.Int64Counter
}

func mustInstruments(meter metric.Meter, prefix string) *instruments {
	ret, err := NewInstruments(meter, prefix)
	if err != nil {
		panic(err)
	}
	return ret
}

func NewInstruments(meter metric.Meter, prefix string) (*instruments, error) {
	ret := &instruments{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&ret.Requests, "requests", "Outbound HTTP requests by fetcher and status."},
		{&ret.PagesFetched, "listing_pages", "Listing pages fetched."},
		{&ret.ProductsScraped, "products_scraped", "Products whose detail page was merged into the raw dataset."},
		{&ret.ProductsDropped, "products_dropped", "Products dropped because their detail page failed."},
		{&ret.ColumnsMissing, "columns_missing", "Allow-listed columns absent from a processing input."},
		{&ret.RowsWritten, "rows_written", "Dataset rows written by processing step."},
	}
	for _, c := range counters {
		ic, err := meter.Int64Counter(prefix+"_"+c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %q: %w", c.name, err)
		}
		*c.dst = ic
	}
	return ret, nil
}

// Add increments ic and records kvs on the current span. Attributes with an
// arg., int. or ret. prefix go to the span only, to keep metric cardinality
// bounded.
func Add(ctx context.Context, ic metric.Int64Counter, incr int64, kvs ...attribute.KeyValue) {
	if ic != nil {
		ic.Add(ctx, incr, metric.WithAttributes(lo.Filter(kvs, KeepNonVarAttributes)...))
	}
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(kvs...)
	}
}

func KeepNonVarAttributes(kv attribute.KeyValue, i int) bool {
	key := string(kv.Key)
	return !strings.HasPrefix(key, "arg.") && !strings.HasPrefix(key, "int.") && !strings.HasPrefix(key, "ret.")
}
