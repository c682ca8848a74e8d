package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/findyourpaths/phonespecs/catalog"
	"github.com/findyourpaths/phonespecs/fetch"
	"github.com/findyourpaths/phonespecs/observability"
	"github.com/findyourpaths/phonespecs/output"
	"github.com/findyourpaths/phonespecs/utils"
	"go.opentelemetry.io/otel/attribute"
)

// Detail is what a product page contributes to its row.
type Detail struct {
	Features catalog.DetailRecord
	Summary  catalog.Summary
}

// DetailFunc loads the detail of one listed product.
type DetailFunc func(ctx context.Context, l catalog.ListingRecord) (Detail, error)

// FetchDetail returns a DetailFunc that fetches the product page with f,
// sending referer. A non-2xx page is an error.
func FetchDetail(f fetch.Fetcher, referer string) DetailFunc {
	return func(ctx context.Context, l catalog.ListingRecord) (Detail, error) {
		resp, err := f.Fetch(ctx, l.URL, fetch.FetchOpts{Referer: referer})
		if err != nil {
			return Detail{}, err
		}
		if !resp.OK() {
			return Detail{}, fmt.Errorf("error fetching %q: status %d", l.URL, resp.StatusCode)
		}
		features, err := catalog.ExtractDetail(resp.Body)
		if err != nil {
			return Detail{}, err
		}
		summary, err := catalog.ExtractSummary(resp.Body)
		if err != nil {
			return Detail{}, err
		}
		return Detail{Features: features, Summary: summary}, nil
	}
}

// Assembler turns listing records into raw dataset rows.
type Assembler struct {
	Detail DetailFunc
	Delay  fetch.Jitter
}

// Assemble loads each product's detail and merges it over the listing
// fields. Products whose detail fails are logged and left out. Only a
// cancelled ctx is reported as an error.
func (a *Assembler) Assemble(ctx context.Context, listings []catalog.ListingRecord) (output.Records, error) {
	ctx, span := observability.Tracer().Start(ctx, "dataset.Assemble")
	defer span.End()

	rets := output.Records{}
	for i, l := range listings {
		if i > 0 {
			if err := a.Delay.Sleep(ctx); err != nil {
				return rets, err
			}
		}
		slog.Info(fmt.Sprintf("[%d/%d] %s", i+1, len(listings), l.Name))

		d, err := a.Detail(ctx, l)
		if err != nil {
			if ctx.Err() != nil {
				return rets, ctx.Err()
			}
			observability.Add(ctx, observability.Instruments.ProductsDropped, 1, attribute.String("arg.url", l.URL))
			slog.Warn("dropping product", "url", l.URL, "err", err)
			continue
		}
		observability.Add(ctx, observability.Instruments.ProductsScraped, 1)
		rets = append(rets, Row(l, d))
	}

	span.SetAttributes(attribute.Int("ret.count", len(rets)))
	slog.Info("assembled raw dataset", "products", len(rets), "dropped", len(listings)-len(rets))
	return rets, nil
}

// Row is the raw dataset row of a product: its surrogate id, the listing
// fields, then the detail features, which win on collision. An empty
// listing price or rating is taken from the page summary.
func Row(l catalog.ListingRecord, d Detail) output.Record {
	if l.Price == "" {
		l.Price = d.Summary.Price
	}
	if l.Rating == "" {
		l.Rating = d.Summary.Rating
	}
	base := output.MergeRecords(output.NewRecord(ColID, ProductID(l.URL)), l.Record())
	return output.MergeRecords(base, d.Features)
}

// ProductID derives a stable surrogate key from a product URL.
func ProductID(productURL string) string {
	return utils.MakeURLStringSlug(productURL)
}
