package catalog

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultSortKey orders the listing by click count, most popular first.
const DefaultSortKey = "tiklama:DESC"

// EncodeSort returns the listing's sort token: a serialized string
// `N;_s:<len>:"<key>";` in standard base64. The length counts bytes.
func EncodeSort(key string) string {
	payload := fmt.Sprintf(`N;_s:%d:"%s";`, len(key), key)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// SortURL is the first page of listBase sorted by key.
func SortURL(listBase, key string) string {
	return strings.TrimRight(listBase, "/") + "/e/" + EncodeSort(key) + "/"
}

// PageURL is page n (1-based) of a sorted listing.
func PageURL(sortURL string, n int) string {
	if n <= 1 {
		return sortURL
	}
	return fmt.Sprintf("%s%d/", sortURL, n)
}
