package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/findyourpaths/phonespecs/utils"
)

// CachingFetcher stores successful page bodies on disk, one file per URL,
// and serves later fetches of the same URL from there.
type CachingFetcher struct {
	fallback  Fetcher
	parentDir string
	writeable bool
}

// NewCachingFetcher returns a fetcher caching in parentDir. A nil fallback
// makes it an offline, read-only replay of the cache.
func NewCachingFetcher(fallback Fetcher, parentDir string) *CachingFetcher {
	return &CachingFetcher{
		fallback:  fallback,
		parentDir: parentDir,
		writeable: fallback != nil,
	}
}

func (c *CachingFetcher) Fetch(ctx context.Context, urlStr string, opts FetchOpts) (*Response, error) {
	p := CacheURLFilename(c.parentDir, urlStr)
	if bs, err := utils.ReadBytesFile(p); err == nil {
		slog.Debug("cache hit", "url", urlStr, "path", p)
		return &Response{URL: urlStr, StatusCode: 200, Body: string(bs)}, nil
	}

	slog.Debug("cache miss", "url", urlStr, "path", p)
	if c.fallback == nil {
		return nil, fmt.Errorf("error fetching %q: not in cache %q", urlStr, c.parentDir)
	}
	resp, err := c.fallback.Fetch(ctx, urlStr, opts)
	if err != nil {
		return nil, err
	}
	if c.writeable && resp.OK() {
		if err := utils.WriteStringFile(p, resp.Body); err != nil {
			slog.Warn("failed to write to cache", "path", p, "err", err)
		}
	}
	return resp, nil
}

// CacheURLFilename places a URL's cache file under a per-host directory.
func CacheURLFilename(dir string, urlStr string) string {
	host := "unknown"
	if u, err := url.Parse(urlStr); err == nil && u.Host != "" {
		host = u.Host
	}
	return filepath.Join(dir, utils.MakeURLStringSlug(host), utils.MakeURLStringSlug(urlStr)) + ".html"
}
