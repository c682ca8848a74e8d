package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newPageServer(t *testing.T) (*httptest.Server, *[]http.Header) {
	t.Helper()
	var seen []http.Header
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Clone())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>Akıllı Telefonlar</body></html>"))
	})
	mux.HandleFunc("/latin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-9")
		// "Işık" in ISO-8859-9.
		w.Write([]byte{'I', 0xFE, 0xFD, 'k'})
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestStaticFetcherFetch(t *testing.T) {
	srv, seen := newPageServer(t)
	f := NewStaticFetcher("", 5*time.Second)

	resp, err := f.Fetch(context.Background(), srv.URL+"/ok", FetchOpts{
		Referer: "https://www.epey.com/akilli-telefonlar",
		Headers: map[string]string{"X-Test": "1"},
	})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !resp.OK() {
		t.Errorf("Fetch() status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(resp.Body, "Akıllı Telefonlar") {
		t.Errorf("Fetch() body = %q", resp.Body)
	}
	if len(*seen) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(*seen))
	}
	h := (*seen)[0]
	if got := h.Get("Referer"); got != "https://www.epey.com/akilli-telefonlar" {
		t.Errorf("Referer = %q", got)
	}
	if got := h.Get("X-Test"); got != "1" {
		t.Errorf("X-Test = %q", got)
	}
	if got := h.Get("User-Agent"); !strings.Contains(got, "Windows NT") {
		t.Errorf("User-Agent = %q, want a desktop Windows browser", got)
	}
}

func TestStaticFetcherDecodesCharset(t *testing.T) {
	srv, _ := newPageServer(t)
	resp, err := NewStaticFetcher("", 5*time.Second).Fetch(context.Background(), srv.URL+"/latin", FetchOpts{})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if resp.Body != "Işık" {
		t.Errorf("Fetch() body = %q, want %q", resp.Body, "Işık")
	}
}

func TestStaticFetcherNon2xxIsNotError(t *testing.T) {
	srv, _ := newPageServer(t)
	resp, err := NewStaticFetcher("", 5*time.Second).Fetch(context.Background(), srv.URL+"/missing", FetchOpts{})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.OK() {
		t.Errorf("Fetch() status = %d, OK() = %v", resp.StatusCode, resp.OK())
	}
}

func TestStaticFetcherNetworkError(t *testing.T) {
	srv, _ := newPageServer(t)
	u := srv.URL
	srv.Close()
	if _, err := NewStaticFetcher("", time.Second).Fetch(context.Background(), u+"/ok", FetchOpts{}); err == nil {
		t.Error("Fetch() on a closed server should fail")
	}
}

func TestFileFetcher(t *testing.T) {
	p := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(p, []byte("<p>hi</p>"), 0644); err != nil {
		t.Fatal(err)
	}
	resp, err := (&FileFetcher{}).Fetch(context.Background(), "file://"+p, FetchOpts{})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if resp.Body != "<p>hi</p>" || resp.StatusCode != 200 {
		t.Errorf("Fetch() = %+v", resp)
	}
	if _, err := (&FileFetcher{}).Fetch(context.Background(), "file://"+p+".nope", FetchOpts{}); err == nil {
		t.Error("Fetch() of a missing file should fail")
	}
}

type countingFetcher struct {
	calls  int
	status int
}

func (f *countingFetcher) Fetch(ctx context.Context, url string, opts FetchOpts) (*Response, error) {
	f.calls++
	return &Response{URL: url, StatusCode: f.status, Body: "body of " + url}, nil
}

func TestCachingFetcher(t *testing.T) {
	dir := t.TempDir()
	inner := &countingFetcher{status: 200}
	c := NewCachingFetcher(inner, dir)
	u := "https://www.epey.com/akilli-telefonlar/apple-iphone-15.html"

	for i := 0; i < 2; i++ {
		resp, err := c.Fetch(context.Background(), u, FetchOpts{})
		if err != nil {
			t.Fatalf("Fetch() #%d error: %v", i, err)
		}
		if resp.Body != "body of "+u {
			t.Errorf("Fetch() #%d body = %q", i, resp.Body)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner fetcher called %d times, want 1", inner.calls)
	}
	if _, err := os.Stat(CacheURLFilename(dir, u)); err != nil {
		t.Errorf("cache file missing: %v", err)
	}

	offline := NewCachingFetcher(nil, dir)
	if _, err := offline.Fetch(context.Background(), u, FetchOpts{}); err != nil {
		t.Errorf("offline Fetch() of cached page error: %v", err)
	}
	if _, err := offline.Fetch(context.Background(), u+"?x", FetchOpts{}); err == nil {
		t.Error("offline Fetch() of uncached page should fail")
	}
}

func TestCachingFetcherSkipsErrorPages(t *testing.T) {
	dir := t.TempDir()
	inner := &countingFetcher{status: 503}
	c := NewCachingFetcher(inner, dir)
	u := "https://www.epey.com/akilli-telefonlar/e/x/2/"
	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background(), u, FetchOpts{}); err != nil {
			t.Fatalf("Fetch() error: %v", err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner fetcher called %d times, want 2", inner.calls)
	}
}

func TestCacheURLFilename(t *testing.T) {
	got := CacheURLFilename("cache", "https://www.epey.com/akilli-telefonlar/")
	want := filepath.Join("cache", "epey-com", "epey-com-akilli-telefonlar") + ".html"
	if got != want {
		t.Errorf("CacheURLFilename() = %q, want %q", got, want)
	}
}

func TestJitter(t *testing.T) {
	if d := (Jitter{}).Duration(); d != 0 {
		t.Errorf("zero Jitter.Duration() = %v", d)
	}
	j := Jitter{Min: 10 * time.Millisecond, Max: 20 * time.Millisecond}
	for i := 0; i < 50; i++ {
		if d := j.Duration(); d < j.Min || d > j.Max {
			t.Fatalf("Duration() = %v outside [%v, %v]", d, j.Min, j.Max)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (Jitter{Min: time.Hour, Max: time.Hour}).Sleep(ctx); err == nil {
		t.Error("Sleep() on a cancelled context should fail")
	}
	if err := (Jitter{}).Sleep(context.Background()); err != nil {
		t.Errorf("zero Jitter.Sleep() error: %v", err)
	}
}
