package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/findyourpaths/phonespecs/observability"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is a desktop Chrome on Windows.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type FetchOpts struct {
	Referer string
	Headers map[string]string
}

// Response is a fetched page. A non-2xx StatusCode is not an error; callers
// decide what to do with it.
type Response struct {
	URL        string
	StatusCode int
	Body       string
}

func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// A Fetcher allows to fetch the content of a web page
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOpts) (*Response, error)
}

// The StaticFetcher fetches static page content through a browser-like
// client session.
type StaticFetcher struct {
	UserAgent string
	client    *resty.Client
}

func NewStaticFetcher(ua string, timeout time.Duration) *StaticFetcher {
	if ua == "" {
		ua = DefaultUserAgent
	}
	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(timeout)
	client.SetRetryCount(0)
	client.SetHeaders(map[string]string{
		"User-Agent":      ua,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7",
	})
	return &StaticFetcher{UserAgent: ua, client: client}
}

func (s *StaticFetcher) Fetch(ctx context.Context, url string, opts FetchOpts) (*Response, error) {
	slog.Debug("fetching page", slog.String("fetcher", "static"), slog.String("url", url))

	req := s.client.R().SetContext(ctx).SetHeaders(opts.Headers)
	if opts.Referer != "" {
		req.SetHeader("Referer", opts.Referer)
	}
	res, err := req.Get(url)
	if err != nil {
		observability.Add(ctx, observability.Instruments.Requests, 1,
			attribute.String("fetcher", "static"), attribute.String("status", "error"))
		return nil, fmt.Errorf("error fetching %q: %w", url, err)
	}
	observability.Add(ctx, observability.Instruments.Requests, 1,
		attribute.String("fetcher", "static"), attribute.Int("status", res.StatusCode()))

	body, err := decodeBody(res.Body(), res.Header().Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("error decoding body of %q: %w", url, err)
	}
	final := url
	if raw := res.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL.String()
	}
	return &Response{URL: final, StatusCode: res.StatusCode(), Body: body}, nil
}

// decodeBody converts bs to UTF-8 using the charset named by contentType or
// sniffed from the markup.
func decodeBody(bs []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(bs), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// The DynamicFetcher renders js
type DynamicFetcher struct {
	UserAgent    string
	Wait         time.Duration
	Timeout      time.Duration
	allocContext context.Context
	cancelAlloc  context.CancelFunc
}

func NewDynamicFetcher(ua string, wait, timeout time.Duration) *DynamicFetcher {
	if ua == "" {
		ua = DefaultUserAgent
	}
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1920, 1080), // desktop layout
		chromedp.UserAgent(ua),
	)
	allocContext, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	d := &DynamicFetcher{
		UserAgent:    ua,
		Wait:         wait,
		Timeout:      timeout,
		allocContext: allocContext,
		cancelAlloc:  cancelAlloc,
	}
	if d.Wait == 0 {
		d.Wait = 2 * time.Second
	}
	return d
}

func (d *DynamicFetcher) Cancel() {
	d.cancelAlloc()
}

func (d *DynamicFetcher) Fetch(ctx context.Context, urlStr string, opts FetchOpts) (*Response, error) {
	logger := slog.With(slog.String("fetcher", "dynamic"), slog.String("url", urlStr))
	logger.Debug("fetching page", slog.String("user-agent", d.UserAgent))

	tabCtx, cancel := chromedp.NewContext(d.allocContext)
	defer cancel()
	if d.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, d.Timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var mu sync.Mutex
	var status int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if status == 0 {
			status = e.Response.Status
		}
	})

	headers := network.Headers{}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.Referer != "" {
		headers["Referer"] = opts.Referer
	}

	var body string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(urlStr),
		chromedp.Sleep(d.Wait),
		chromedp.ActionFunc(func(ctx context.Context) error {
			node, err := dom.GetDocument().Do(ctx)
			if err != nil {
				return err
			}
			body, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		observability.Add(ctx, observability.Instruments.Requests, 1,
			attribute.String("fetcher", "dynamic"), attribute.String("status", "error"))
		return nil, fmt.Errorf("error rendering %q: %w", urlStr, err)
	}

	mu.Lock()
	code := int(status)
	mu.Unlock()
	if code == 0 {
		// No document event seen; the page rendered, so treat it as OK.
		code = 200
	}
	observability.Add(ctx, observability.Instruments.Requests, 1,
		attribute.String("fetcher", "dynamic"), attribute.Int("status", code))
	return &Response{URL: urlStr, StatusCode: code, Body: body}, nil
}

// The FileFetcher serves file:// URLs from disk.
type FileFetcher struct {
}

func (s *FileFetcher) Fetch(ctx context.Context, url string, opts FetchOpts) (*Response, error) {
	fpath := strings.TrimPrefix(url, "file://")
	bs, err := os.ReadFile(fpath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %w", fpath, err)
	}
	return &Response{URL: url, StatusCode: 200, Body: string(bs)}, nil
}
