package realestate

import (
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"property-hunter/models"
	"property-hunter/utils"
)

// SiteOrigin is used to resolve relative listing URLs.
const SiteOrigin = "https://www.realestate.com.au"

// Strategy names, also used as metric labels.
const (
	StrategyClientCache    = "client-cache"
	StrategyStructuredData = "json-ld"
	StrategyPageData       = "next-data"
)

// ErrBlocked means the page is an anti-bot interstitial rather than a
// listings page. It must not be reported as "no listings".
var ErrBlocked = errors.New("blocked by anti-bot page")

var blockedMarkers = []string{
	"Pardon Our Interruption",
	"Access Denied",
	"window.KPSDK={}",
	"KPSDK.now",
}

// IsBlocked reports whether content carries an anti-bot marker.
func IsBlocked(content string) bool {
	for _, marker := range blockedMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// page is the input shared by all strategies. The HTML document is parsed on
// first use so the client-cache strategy, which works on raw text, never pays
// for it.
type page struct {
	content string
	doc     *goquery.Document
	parsed  bool
	skipped int
}

func (p *page) document() *goquery.Document {
	if !p.parsed {
		p.parsed = true
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.content)); err == nil {
			p.doc = doc
		}
	}
	return p.doc
}

type strategy struct {
	name    string
	extract func(p *page) []models.Listing
}

// Extraction is the outcome of extracting one page.
type Extraction struct {
	Listings []models.Listing
	// Strategy is the name of the strategy that produced Listings, or empty.
	Strategy string
	// Skipped counts malformed fragments that were ignored.
	Skipped int
}

// Extractor pulls listings out of a search results page. Strategies are tried
// in order and the first one that yields any listing is the only one used.
// Extractor holds no mutable state and is safe for concurrent use.
type Extractor struct {
	strategies []strategy
	now        func() time.Time
	logger     *utils.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithClock sets the clock used for ScrapedAt.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) { e.now = now }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *utils.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor creates an Extractor with the client cache, JSON-LD and
// __NEXT_DATA__ strategies, in that order.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		strategies: []strategy{
			{name: StrategyClientCache, extract: extractClientCache},
			{name: StrategyStructuredData, extract: extractStructuredData},
			{name: StrategyPageData, extract: extractPageData},
		},
		now:    time.Now,
		logger: utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the listings on a page, de-duplicated by ID. It fails with
// ErrBlocked when the page is an anti-bot interstitial.
func (e *Extractor) Extract(content string) ([]models.Listing, error) {
	res, err := e.ExtractPage(content)
	return res.Listings, err
}

// ExtractPage is Extract with the winning strategy and skip count attached.
func (e *Extractor) ExtractPage(content string) (Extraction, error) {
	if IsBlocked(content) {
		return Extraction{}, ErrBlocked
	}

	p := &page{content: content}
	for _, s := range e.strategies {
		found := s.extract(p)
		if len(found) == 0 {
			continue
		}

		listings := dedupeByID(found)
		scrapedAt := e.now().UTC()
		for i := range listings {
			listings[i].ScrapedAt = scrapedAt
		}
		e.logger.Debug("[extractor] %s: %d listings (%d unique), %d malformed fragments skipped",
			s.name, len(found), len(listings), p.skipped)
		return Extraction{Listings: listings, Strategy: s.name, Skipped: p.skipped}, nil
	}

	e.logger.Debug("[extractor] No strategy matched, %d malformed fragments skipped", p.skipped)
	return Extraction{Skipped: p.skipped}, nil
}

// dedupeByID keeps the last listing for each ID at the position where the ID
// was first seen.
func dedupeByID(listings []models.Listing) []models.Listing {
	index := make(map[string]int, len(listings))
	result := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if i, seen := index[l.ID]; seen {
			result[i] = l
			continue
		}
		index[l.ID] = len(result)
		result = append(result, l)
	}
	return result
}
