package utils

import (
	"net/url"
	"strings"

	"github.com/gosimple/slug"
	"github.com/jpillora/go-tld"
)

func TrimURLScheme(u string) string {
	u = strings.TrimPrefix(u, "file://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "www.")
	u = strings.ToLower(u)
	return u
}

func MakeURLStringSlug(u string) string {
	return slug.Make(TrimURLScheme(u))
}

// ResolveURL resolves ref against base. An unparsable ref is returned as is.
func ResolveURL(base *url.URL, ref string) string {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	if base == nil {
		return r.String()
	}
	return base.ResolveReference(r).String()
}

// SameSite reports whether a and b share a registrable domain, so that
// www.example.com and img.example.com match but example.org does not.
func SameSite(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	if strings.EqualFold(ua.Hostname(), ub.Hostname()) {
		return true
	}
	ta, err := tld.Parse(a)
	if err != nil {
		return false
	}
	tb, err := tld.Parse(b)
	if err != nil {
		return false
	}
	return ta.Domain != "" && strings.EqualFold(ta.Domain, tb.Domain) && strings.EqualFold(ta.TLD, tb.TLD)
}
