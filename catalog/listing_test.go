package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/findyourpaths/phonespecs/fetch"
	"github.com/kr/pretty"
)

func listingRow(name, href, price, rating string) string {
	b := &strings.Builder{}
	b.WriteString(`<ul class="metin row">`)
	if name != "" {
		fmt.Fprintf(b, `<li class="adi"><a class="urunadi" href="%s"> %s </a></li>`, href, name)
	}
	if price != "" {
		fmt.Fprintf(b, `<li class="fiyat"><a href="#">%s <span>TL</span></a></li>`, price)
	}
	if rating != "" {
		fmt.Fprintf(b, `<li class="puan"><div class="circle" data-text="%s"></div></li>`, rating)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

func listingPage(rows ...string) string {
	return `<html><body><div id="listele">` + strings.Join(rows, "\n") + `</div></body></html>`
}

type listingSite struct {
	*httptest.Server
	mu       sync.Mutex
	requests []string
	referers []string
	pages    map[int]string
	status   map[int]int
}

func newListingSite(t *testing.T, pages map[int]string, status map[int]int) *listingSite {
	t.Helper()
	s := &listingSite{pages: pages, status: status}
	sortPath := "/akilli-telefonlar/e/" + EncodeSort(DefaultSortKey) + "/"
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.Path)
		s.referers = append(s.referers, r.Header.Get("Referer"))
		s.mu.Unlock()

		rest, ok := strings.CutPrefix(r.URL.Path, sortPath)
		if !ok {
			http.NotFound(w, r)
			return
		}
		page := 1
		if rest != "" {
			fmt.Sscanf(strings.TrimSuffix(rest, "/"), "%d", &page)
		}
		if code, ok := s.status[page]; ok {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, s.pages[page])
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *listingSite) paginator() *Paginator {
	return &Paginator{
		Fetcher:  fetch.NewStaticFetcher("", 0),
		BaseURL:  s.URL,
		ListBase: s.URL + "/akilli-telefonlar",
	}
}

func TestFetchPopular(t *testing.T) {
	site := newListingSite(t, map[int]string{
		1: listingPage(
			listingRow("Phone A", "/akilli-telefonlar/phone-a.html", "54.999,00", "87"),
			listingRow("", "", "1.000", ""),
			listingRow("Phone B", "/akilli-telefonlar/phone-b.html", "", ""),
			listingRow("Sponsored", "https://ads.example.org/x", "", ""),
		),
		2: listingPage(
			listingRow("Phone C", "/akilli-telefonlar/phone-c.html", "12.499", "74"),
		),
		3: listingPage(),
	}, nil)

	got, err := site.paginator().FetchPopular(context.Background(), 10, DefaultSortKey)
	if err != nil {
		t.Fatalf("FetchPopular() error: %v", err)
	}
	want := []ListingRecord{
		{Name: "Phone A", URL: site.URL + "/akilli-telefonlar/phone-a.html", Price: "54999.00", Rating: "87"},
		{Name: "Phone B", URL: site.URL + "/akilli-telefonlar/phone-b.html"},
		{Name: "Phone C", URL: site.URL + "/akilli-telefonlar/phone-c.html", Price: "12499", Rating: "74"},
	}
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Errorf("FetchPopular() diff:\n%s", strings.Join(diff, "\n"))
	}
	if len(site.requests) != 3 {
		t.Errorf("fetched %d pages, want 3: %v", len(site.requests), site.requests)
	}
	for _, ref := range site.referers {
		if ref != site.URL+"/akilli-telefonlar" {
			t.Errorf("Referer = %q", ref)
		}
	}
}

func TestFetchPopularStopsAtLimit(t *testing.T) {
	site := newListingSite(t, map[int]string{
		1: listingPage(
			listingRow("Phone A", "/a.html", "", ""),
			listingRow("Phone B", "/b.html", "", ""),
		),
		2: listingPage(
			listingRow("Phone C", "/c.html", "", ""),
			listingRow("Phone D", "/d.html", "", ""),
		),
	}, nil)

	got, err := site.paginator().FetchPopular(context.Background(), 3, DefaultSortKey)
	if err != nil {
		t.Fatalf("FetchPopular() error: %v", err)
	}
	if len(got) != 3 || got[2].Name != "Phone C" {
		t.Errorf("FetchPopular() = %# v", pretty.Formatter(got))
	}
	if len(site.requests) != 2 {
		t.Errorf("fetched %d pages, want 2", len(site.requests))
	}
}

func TestFetchPopularStopsOnErrorStatus(t *testing.T) {
	site := newListingSite(t, map[int]string{
		1: listingPage(listingRow("Phone A", "/a.html", "", "")),
		3: listingPage(listingRow("Phone C", "/c.html", "", "")),
	}, map[int]int{2: http.StatusForbidden})

	got, err := site.paginator().FetchPopular(context.Background(), 10, DefaultSortKey)
	if err != nil {
		t.Fatalf("FetchPopular() error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("FetchPopular() returned %d records, want 1", len(got))
	}
	if len(site.requests) != 2 {
		t.Errorf("fetched %d pages, want 2", len(site.requests))
	}
}

func TestFetchPopularNonPositiveLimit(t *testing.T) {
	site := newListingSite(t, map[int]string{1: listingPage(listingRow("Phone A", "/a.html", "", ""))}, nil)
	for _, limit := range []int{0, -1} {
		got, err := site.paginator().FetchPopular(context.Background(), limit, DefaultSortKey)
		if err != nil || len(got) != 0 {
			t.Errorf("FetchPopular(%d) = %v, %v; want empty", limit, got, err)
		}
	}
	if len(site.requests) != 0 {
		t.Errorf("fetched %d pages, want none", len(site.requests))
	}
}

func TestFetchPopularCancelled(t *testing.T) {
	site := newListingSite(t, map[int]string{1: listingPage(listingRow("Phone A", "/a.html", "", ""))}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := site.paginator().FetchPopular(ctx, 5, DefaultSortKey); err == nil {
		t.Error("FetchPopular() with a cancelled context should fail")
	}
}

func TestParseListingPage(t *testing.T) {
	base, _ := url.Parse("https://www.epey.com")
	recs, rows, err := ParseListingPage(listingPage(
		listingRow("Apple iPhone 15", "/akilli-telefonlar/apple-iphone-15.html", "47.999,99", "91"),
		listingRow("", "", "", ""),
		listingRow("Partner", "https://shop.example.net/p", "", ""),
	), base)
	if err != nil {
		t.Fatalf("ParseListingPage() error: %v", err)
	}
	if rows != 3 {
		t.Errorf("rows = %d, want 3", rows)
	}
	want := []ListingRecord{{
		Name:   "Apple iPhone 15",
		URL:    "https://www.epey.com/akilli-telefonlar/apple-iphone-15.html",
		Price:  "47999.99",
		Rating: "91",
	}}
	if diff := pretty.Diff(want, recs); len(diff) > 0 {
		t.Errorf("ParseListingPage() diff: %v", diff)
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct{ in, want string }{
		{"54.999,00 TL", "54999.00"},
		{"54.999,00TL", "54999.00"},
		{" 12.499 ", "12499"},
		{"", ""},
		{"TL", ""},
	}
	for _, tt := range tests {
		if got := NormalizePrice(tt.in); got != tt.want {
			t.Errorf("NormalizePrice(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestListingRecordColumns(t *testing.T) {
	r := ListingRecord{Name: "Phone A", URL: "u"}.Record()
	if got, want := r.Keys(), []string{ColName, ColURL, ColPrice, ColRating}; !reflect.DeepEqual(got, want) {
		t.Errorf("Record() keys = %v, want %v", got, want)
	}
}
