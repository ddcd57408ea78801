package realestate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"property-hunter/config"
	"property-hunter/metrics"
	"property-hunter/models"
	"property-hunter/utils"
)

var listPageRegexp = regexp.MustCompile(`/list-\d+`)

// PageURL returns the URL of results page n for a seed search URL, either by
// replacing an existing /list-N segment or by appending one to the path.
func PageURL(seed string, n int) string {
	segment := fmt.Sprintf("/list-%d", n)
	u, err := url.Parse(seed)
	if err != nil {
		return strings.TrimSuffix(seed, "/") + segment
	}
	if listPageRegexp.MatchString(u.Path) {
		u.Path = listPageRegexp.ReplaceAllString(u.Path, segment)
	} else {
		u.Path = strings.TrimSuffix(u.Path, "/") + segment
	}
	return u.String()
}

// PageResult describes one fetched results page.
type PageResult struct {
	Page     int
	URL      string
	Listings int
	Strategy string
	Err      error
}

// Result is the outcome of a multi-page scrape.
type Result struct {
	// Listings from all pages, de-duplicated by ID with later pages winning.
	Listings []models.Listing
	Pages    []PageResult
}

// Scraper fetches consecutive results pages and extracts their listings.
type Scraper struct {
	fetcher   Fetcher
	extractor *Extractor
	pool      *utils.WorkerPool
	visited   *utils.URLSet
	logger    *utils.Logger
}

// NewScraper creates a Scraper that fetches with the configured concurrency
// and request delay.
func NewScraper(cfg *config.Config, fetcher Fetcher, extractor *Extractor, logger *utils.Logger) *Scraper {
	return &Scraper{
		fetcher:   fetcher,
		extractor: extractor,
		pool:      utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RequestDelayMs),
		visited:   utils.NewURLSet(),
		logger:    logger,
	}
}

// Scrape fetches pages start..start+pages-1 of seed. Pages already visited by
// this Scraper are skipped. Listings from pages that succeeded are always
// returned; the error joins every page failure, so errors.Is(err, ErrBlocked)
// reports whether any page was an anti-bot interstitial.
func (s *Scraper) Scrape(ctx context.Context, seed string, start, pages int) (Result, error) {
	if start < 1 {
		start = 1
	}
	if pages < 1 {
		pages = 1
	}
	s.logger.Info("[scraper] Starting scrape of %s — pages %d..%d", seed, start, start+pages-1)

	type pageOutcome struct {
		result   PageResult
		listings []models.Listing
		skipped  bool
	}
	outcomes := make([]pageOutcome, pages)

	for i := 0; i < pages; i++ {
		n := start + i
		pageURL := PageURL(seed, n)
		if !s.visited.Add(pageURL) {
			s.logger.Debug("[scraper] Page already visited: %s", pageURL)
			outcomes[i].skipped = true
			continue
		}

		// Overwritten by the job; stays put if cancellation stops it first.
		outcomes[i].result = PageResult{Page: n, URL: pageURL, Err: context.Canceled}
		s.pool.Submit(ctx, func(ctx context.Context) {
			outcomes[i].result, outcomes[i].listings = s.scrapePage(ctx, n, pageURL)
		})
	}
	s.pool.Wait()

	var (
		res  Result
		all  []models.Listing
		errs []error
	)
	for _, o := range outcomes {
		if o.skipped {
			continue
		}
		res.Pages = append(res.Pages, o.result)
		all = append(all, o.listings...)
		if o.result.Err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", o.result.Page, o.result.Err))
		}
	}
	res.Listings = dedupeByID(all)

	s.logger.Info("[scraper] Scrape complete — %d listings from %d pages", len(res.Listings), len(res.Pages))
	return res, errors.Join(errs...)
}

func (s *Scraper) scrapePage(ctx context.Context, n int, pageURL string) (PageResult, []models.Listing) {
	result := PageResult{Page: n, URL: pageURL}
	s.logger.Info("[scraper] Fetching page %d — URL: %s", n, pageURL)

	content, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		s.logger.Error("[scraper] Page %d fetch failed: %v", n, err)
		metrics.RecordPage(metrics.OutcomeError, "", 0)
		result.Err = err
		return result, nil
	}

	extraction, err := s.extractor.ExtractPage(content)
	switch {
	case errors.Is(err, ErrBlocked):
		s.logger.Warn("[scraper] Page %d is an anti-bot page: re-fetch with different cookies or retry later", n)
		metrics.RecordPage(metrics.OutcomeBlocked, "", 0)
		result.Err = err
		return result, nil
	case err != nil:
		metrics.RecordPage(metrics.OutcomeError, "", 0)
		result.Err = err
		return result, nil
	case len(extraction.Listings) == 0:
		s.logger.Warn("[scraper] Page %d returned 0 listings", n)
		metrics.RecordPage(metrics.OutcomeEmpty, "", 0)
		return result, nil
	}

	metrics.RecordPage(metrics.OutcomeOK, extraction.Strategy, len(extraction.Listings))
	result.Listings = len(extraction.Listings)
	result.Strategy = extraction.Strategy
	s.logger.Info("[scraper] Page %d done — %d listings via %s", n, result.Listings, result.Strategy)
	return result, extraction.Listings
}
