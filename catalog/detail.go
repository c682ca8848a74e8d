package catalog

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/findyourpaths/phonespecs/output"
)

// DefaultGroup names features whose group has no title.
const DefaultGroup = "genel"

// DetailRecord maps normalized feature keys to values in document order.
type DetailRecord = output.Record

// ExtractDetail reads the feature groups of a product detail page. Rows
// missing a label or value are skipped. A repeated key keeps its first
// position and takes the later value.
func ExtractDetail(markup string) (DetailRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return DetailRecord{}, fmt.Errorf("error parsing detail page: %w", err)
	}

	ret := DetailRecord{}
	doc.Find("div#ozellikler div#grup").Each(func(_ int, group *goquery.Selection) {
		groupName := DefaultGroup
		if title := group.Find("h3 span").First(); title.Length() > 0 {
			groupName = lower(strippedText(title))
		}

		group.Find("ul.grup li").Each(func(_ int, li *goquery.Selection) {
			keyEl := li.Find("strong").First()
			valEl := li.Find("span.cell").First()
			if keyEl.Length() == 0 || valEl.Length() == 0 {
				return
			}
			ret.Set(NormalizeKey(groupName, strippedText(keyEl)), cellValue(valEl))
		})
	})
	return ret, nil
}

// cellValue joins the distinct link texts of a cell with " | ", or returns
// the cell's text when it has no links.
func cellValue(cell *goquery.Selection) string {
	links := cell.Find("a")
	if links.Length() == 0 {
		return strippedText(cell)
	}
	seen := map[string]bool{}
	texts := []string{}
	links.Each(func(_ int, a *goquery.Selection) {
		t := strippedText(a)
		if !seen[t] {
			seen[t] = true
			texts = append(texts, t)
		}
	})
	return strings.Join(texts, " | ")
}
