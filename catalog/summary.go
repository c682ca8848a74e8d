package catalog

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/jsonquery"
)

// Summary is the price and rating a product page declares in its
// schema.org JSON-LD.
type Summary struct {
	Price  string
	Rating string
}

var (
	spaceCleaner  = regexp.MustCompile(`\s+`)
	danglingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractSummary reads offers.price and aggregateRating.ratingValue from the
// page's JSON-LD blocks. Blocks that fail to parse are skipped; the first
// value found for each field wins.
func ExtractSummary(markup string) (Summary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Summary{}, fmt.Errorf("error parsing detail page: %w", err)
	}

	ret := Summary{}
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		// JSON-LD in the wild carries raw newlines in strings and trailing
		// commas.
		src := spaceCleaner.ReplaceAllString(s.Text(), " ")
		src = danglingComma.ReplaceAllString(src, " $1")
		root, err := jsonquery.Parse(strings.NewReader(src))
		if err != nil {
			slog.Debug("skipping unparsable JSON-LD block", "index", i, "err", err)
			return
		}
		if ret.Price == "" {
			ret.Price = jsonValue(root, "//offers//price")
		}
		if ret.Rating == "" {
			ret.Rating = jsonValue(root, "//aggregateRating/ratingValue")
		}
	})
	return ret, nil
}

func jsonValue(root *jsonquery.Node, expr string) string {
	node, err := jsonquery.Query(root, expr)
	if err != nil || node == nil {
		return ""
	}
	switch v := node.Value().(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
