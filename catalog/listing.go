// Package catalog reads the phone listing and product detail pages: sort
// tokens, paginated listing parsing, detail feature tables and column key
// normalization.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/findyourpaths/phonespecs/fetch"
	"github.com/findyourpaths/phonespecs/observability"
	"github.com/findyourpaths/phonespecs/output"
	"github.com/findyourpaths/phonespecs/utils"
	"go.opentelemetry.io/otel/attribute"
)

// Listing column names.
const (
	ColName   = "urun_ad"
	ColURL    = "urun_url"
	ColPrice  = "urun_fiyat"
	ColRating = "urun_puan"
)

// ListingRecord is one product row of a listing page. Price and Rating are
// empty when the page did not show them.
type ListingRecord struct {
	Name   string
	URL    string
	Price  string
	Rating string
}

// Record returns the listing fields under their column names, always all
// four and in a fixed order.
func (l ListingRecord) Record() output.Record {
	return output.NewRecord(
		ColName, l.Name,
		ColURL, l.URL,
		ColPrice, l.Price,
		ColRating, l.Rating,
	)
}

// Paginator walks the sorted listing page by page.
type Paginator struct {
	Fetcher fetch.Fetcher
	// BaseURL is the site root that product links resolve against.
	BaseURL string
	// ListBase is the unsorted listing URL, also sent as Referer.
	ListBase string
	Delay    fetch.Jitter
}

// FetchPopular collects up to limit listing records sorted by sortKey. It
// stops early on a fetch error, a non-200 page or a page without product
// rows, returning what it has. Only a cancelled ctx is reported as an error.
func (p *Paginator) FetchPopular(ctx context.Context, limit int, sortKey string) ([]ListingRecord, error) {
	ctx, span := observability.Tracer().Start(ctx, "catalog.FetchPopular")
	defer span.End()

	rets := []ListingRecord{}
	if limit <= 0 {
		return rets, nil
	}
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing base url %q: %w", p.BaseURL, err)
	}

	sortURL := SortURL(p.ListBase, sortKey)
	for page := 1; len(rets) < limit; page++ {
		if page > 1 {
			if err := p.Delay.Sleep(ctx); err != nil {
				return rets, err
			}
		}
		pageURL := PageURL(sortURL, page)
		slog.Info("fetching listing page", "page", page, "url", pageURL)

		resp, err := p.Fetcher.Fetch(ctx, pageURL, fetch.FetchOpts{Referer: p.ListBase})
		if err != nil {
			if ctx.Err() != nil {
				return rets, ctx.Err()
			}
			slog.Warn("listing page failed, stopping", "url", pageURL, "err", err)
			break
		}
		if resp.StatusCode != 200 {
			slog.Warn("listing page unavailable, stopping", "url", pageURL, "status", resp.StatusCode)
			break
		}
		observability.Add(ctx, observability.Instruments.PagesFetched, 1, attribute.String("arg.url", pageURL))

		recs, rows, err := ParseListingPage(resp.Body, base)
		if err != nil {
			slog.Warn("listing page unparsable, stopping", "url", pageURL, "err", err)
			break
		}
		if rows == 0 {
			slog.Info("no products left, stopping", "url", pageURL)
			break
		}
		for _, rec := range recs {
			rets = append(rets, rec)
			if len(rets) >= limit {
				break
			}
		}
	}

	span.SetAttributes(attribute.Int("ret.count", len(rets)))
	slog.Info("found products", "count", len(rets))
	return rets, nil
}

// ParseListingPage returns the products on a listing page and the number of
// product rows seen. Rows without a product link are counted but skipped, as
// are links leaving the site.
func ParseListingPage(markup string, base *url.URL) ([]ListingRecord, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, 0, fmt.Errorf("error parsing listing page: %w", err)
	}

	rows := doc.Find("ul.metin.row")
	rets := []ListingRecord{}
	rows.Each(func(i int, row *goquery.Selection) {
		nameEl := row.Find("a.urunadi").First()
		if nameEl.Length() == 0 {
			return
		}
		href, ok := nameEl.Attr("href")
		if !ok {
			slog.Debug("product row without href", "row", i)
			return
		}
		u := utils.ResolveURL(base, href)
		if base != nil && !utils.SameSite(base.String(), u) {
			slog.Debug("skipping off-site product link", "url", u)
			return
		}

		rec := ListingRecord{
			Name: strippedText(nameEl),
			URL:  u,
		}
		if priceEl := row.Find("li.fiyat a").First(); priceEl.Length() > 0 {
			rec.Price = NormalizePrice(strippedText(priceEl))
		}
		if scoreEl := row.Find("li.puan div[data-text]").First(); scoreEl.Length() > 0 {
			rec.Rating = scoreEl.AttrOr("data-text", "")
		}
		rets = append(rets, rec)
	})
	return rets, rows.Length(), nil
}

// NormalizePrice turns a displayed price such as "54.999,00 TL" into
// "54999.00".
func NormalizePrice(s string) string {
	s, _, _ = strings.Cut(s, "TL")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strings.TrimSpace(s)
}
