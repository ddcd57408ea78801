package realestate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"

	"property-hunter/config"
	"property-hunter/metrics"
	"property-hunter/utils"
)

const (
	defaultFetchTimeout = 20 * time.Second
	browserFetchTimeout = 90 * time.Second
	browserSettleDelay  = 5 * time.Second
	maxBodySize         = 20 << 20
)

// Fetcher returns the raw text of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// FetchOptions are the request settings shared by both fetchers.
type FetchOptions struct {
	UserAgent   string
	Cookie      string
	Referer     string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

// FetchOptionsFromConfig maps application config onto FetchOptions.
func FetchOptionsFromConfig(cfg *config.Config) FetchOptions {
	return FetchOptions{
		UserAgent:   cfg.HTTPUserAgent,
		Cookie:      cfg.HTTPCookie,
		Referer:     SiteOrigin,
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
	}
}

func (o FetchOptions) headers() map[string]string {
	h := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-AU,en;q=0.9",
	}
	if o.Referer != "" {
		h["Referer"] = o.Referer
	}
	if o.Cookie != "" {
		h["Cookie"] = o.Cookie
	}
	return h
}

func (o FetchOptions) retry(logger *utils.Logger) *utils.RetryConfig {
	return &utils.RetryConfig{
		MaxAttempts: o.MaxAttempts,
		BaseDelay:   o.BaseDelay,
		Logger:      logger,
		Retryable:   retryableFetchError,
	}
}

// retryableFetchError gives up on cancellation and on client errors other
// than timeouts and rate limiting.
func retryableFetchError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrBlocked) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
	}
	return true
}

// NewFetcher returns the browser fetcher when USE_BROWSER is set, otherwise
// the plain HTTP fetcher. The returned close func releases the browser.
func NewFetcher(cfg *config.Config, logger *utils.Logger) (Fetcher, func()) {
	opts := FetchOptionsFromConfig(cfg)
	if cfg.UseBrowser {
		b := NewBrowserFetcher(opts, cfg.ChromeBin, logger)
		return b, b.Close
	}
	return NewHTTPFetcher(opts, logger), func() {}
}

// HTTPFetcher fetches pages with a colly collector.
type HTTPFetcher struct {
	opts   FetchOptions
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts FetchOptions, logger *utils.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	return &HTTPFetcher{opts: opts, retry: opts.retry(logger), logger: logger}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	defer metrics.ObserveFetch("http", time.Now())

	var body string
	err := f.retry.Do(ctx, "fetch "+url, func(ctx context.Context) error {
		text, err := f.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		body = text
		return nil
	})
	return body, err
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.ParseHTTPErrorResponse(),
		colly.UserAgent(f.opts.UserAgent),
		colly.MaxBodySize(maxBodySize),
	)
	c.SetRequestTimeout(f.opts.Timeout)

	headers := f.opts.headers()
	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	})

	var (
		body   string
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("colly visit: %w", err)
	}
	if status < 200 || status > 299 {
		return "", &StatusError{URL: url, StatusCode: status}
	}
	f.logger.Debug("[fetcher] GET %s → %d (%d bytes)", url, status, len(body))
	return body, nil
}

// BrowserFetcher renders pages in headless Chrome. One browser process is
// shared by all fetches; each fetch gets its own tab.
type BrowserFetcher struct {
	opts   FetchOptions
	retry  *utils.RetryConfig
	logger *utils.Logger

	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewBrowserFetcher prepares a headless Chrome allocator. The browser is
// started lazily on the first fetch.
func NewBrowserFetcher(opts FetchOptions, chromeBin string, logger *utils.Logger) *BrowserFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = browserFetchTimeout
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if bin := findChromeBinary(chromeBin); bin != "" {
		logger.Info("[fetcher] Using browser binary: %s", bin)
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &BrowserFetcher{
		opts:          opts,
		retry:         opts.retry(logger),
		logger:        logger,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}
}

// Close shuts the browser down.
func (b *BrowserFetcher) Close() {
	b.cancelBrowser()
	b.cancelAlloc()
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	defer metrics.ObserveFetch("browser", time.Now())

	var html string
	err := b.retry.Do(ctx, "render "+url, func(ctx context.Context) error {
		text, err := b.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		html = text
		return nil
	})
	return html, err
}

func (b *BrowserFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancelTimeout()

	headers := network.Headers{}
	for k, v := range b.opts.headers() {
		headers[k] = v
	}

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(url),
		chromedp.Sleep(browserSettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("chromedp render: %w", err)
	}
	b.logger.Debug("[fetcher] Rendered %s (%d bytes)", url, len(html))
	return html, nil
}

// findChromeBinary prefers the configured path, then well-known names on
// PATH, then common install locations.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
