package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"property-hunter/config"
	"property-hunter/metrics"
	"property-hunter/models"
	"property-hunter/utils"
)

// DigestLimit caps the number of listings mailed per saved search.
const DigestLimit = 50

// Digest outcomes.
const (
	DigestSent  = "sent"
	DigestEmpty = "empty"
	DigestError = "error"
)

// SavedSearchRepository is the storage the notifier needs.
type SavedSearchRepository interface {
	ListingQuerier
	SaveSearch(ctx context.Context, search models.SavedSearch) (int64, error)
	ListSavedSearches(ctx context.Context) ([]models.SavedSearch, error)
	MarkSearchRun(ctx context.Context, id int64, runAt time.Time) error
}

// DigestResult reports what happened to one saved search.
type DigestResult struct {
	SearchID int64
	Name     string
	Listings int
	Outcome  string
	Err      error
}

// Notifier mails saved-search digests of listings scraped since each
// search last ran.
type Notifier struct {
	store  SavedSearchRepository
	mailer Mailer
	geo    *GeoMatcher
	now    func() time.Time
	logger *utils.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(store SavedSearchRepository, mailer Mailer, geo *GeoMatcher, logger *utils.Logger) *Notifier {
	return &Notifier{
		store:  store,
		mailer: mailer,
		geo:    geo,
		now:    time.Now,
		logger: logger,
	}
}

// RunOnce processes every saved search. A search whose listings cannot be
// queried is left unmarked so the next run covers the same window; a failed
// e-mail still marks the run. The returned error joins every failure.
func (n *Notifier) RunOnce(ctx context.Context) ([]DigestResult, error) {
	searches, err := n.store.ListSavedSearches(ctx)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	runAt := n.now().UTC()
	n.logger.Info("[notifier] Running %d saved searches", len(searches))

	results := make([]DigestResult, 0, len(searches))
	var errs []error
	for _, s := range searches {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := n.runSearch(ctx, s, runAt)
		metrics.DigestsTotal.WithLabelValues(res.Outcome).Inc()
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("saved search %d (%s): %w", s.ID, s.Name, res.Err))
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (n *Notifier) runSearch(ctx context.Context, s models.SavedSearch, runAt time.Time) DigestResult {
	res := DigestResult{SearchID: s.ID, Name: s.Name}

	criteria, err := DecodeCriteria(s.Criteria)
	if err != nil {
		n.logger.Warn("[notifier] Search %d has unreadable criteria, matching everything: %v", s.ID, err)
	}

	filter := n.geo.ResolveFilter(criteria, DigestLimit).Filter
	filter.Since = s.LastRunAt

	listings, err := n.store.Query(ctx, filter)
	if err != nil {
		res.Outcome, res.Err = DigestError, err
		return res
	}
	res.Listings = len(listings)

	res.Outcome = DigestEmpty
	if len(listings) > 0 {
		subject := "PropertyHunter matches: " + s.Name
		if err := n.mailer.Send(ctx, s.Email, subject, FormatDigest(criteria, listings)); err != nil {
			n.logger.Error("[notifier] E-mail for search %d failed: %v", s.ID, err)
			res.Outcome, res.Err = DigestError, err
		} else {
			res.Outcome = DigestSent
			n.logger.Info("[notifier] Sent %d listings to %s for %q", len(listings), s.Email, s.Name)
		}
	}

	if err := n.store.MarkSearchRun(ctx, s.ID, runAt); err != nil {
		res.Outcome = DigestError
		res.Err = errors.Join(res.Err, err)
	}
	return res
}

// DecodeCriteria parses stored criteria JSON. Blank input is no criteria.
func DecodeCriteria(raw string) (models.SearchCriteria, error) {
	var c models.SearchCriteria
	if strings.TrimSpace(raw) == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return models.SearchCriteria{}, fmt.Errorf("decode criteria: %w", err)
	}
	return c, nil
}

// FormatDigest renders the plain-text body of a digest e-mail.
func FormatDigest(c models.SearchCriteria, listings []models.Listing) string {
	var b strings.Builder
	b.WriteString("PropertyHunter matches\n\n")
	fmt.Fprintf(&b, "Suburb: %s\n", orAny(c.Suburb))
	if c.RadiusKm != nil {
		fmt.Fprintf(&b, "Radius: %s km\n", strconv.FormatFloat(*c.RadiusKm, 'f', -1, 64))
	}
	fmt.Fprintf(&b, "Min price: %s\n", int64OrAny(c.PriceMin))
	fmt.Fprintf(&b, "Max price: %s\n", int64OrAny(c.PriceMax))
	if c.Bedrooms != nil {
		fmt.Fprintf(&b, "Bedrooms: %d\n", *c.Bedrooms)
	} else {
		b.WriteString("Bedrooms: any\n")
	}
	fmt.Fprintf(&b, "Property type: %s\n", orAny(c.PropertyType))
	b.WriteString("\nListings:\n")

	for _, l := range listings {
		title := l.Title
		if title == "" {
			title = l.Address
		}
		if title == "" {
			title = "Listing"
		}
		priceText := l.PriceText
		if priceText == "" {
			priceText = "Price on request"
		}
		fmt.Fprintf(&b, "- %s\n  %s\n  %s\n", title, priceText, l.URL)
	}
	return b.String()
}

// BuildSavedSearch turns an imported entry into a storable saved search.
// Explicit criteria override the fields parsed from the free-text query.
func BuildSavedSearch(entry config.SearchEntry, extractor *CriteriaExtractor) (models.SavedSearch, error) {
	var c models.SearchCriteria
	if strings.TrimSpace(entry.Query) != "" {
		c = extractor.Parse(entry.Query)
	}
	overlay(&c, entry.Criteria)

	raw, err := json.Marshal(c)
	if err != nil {
		return models.SavedSearch{}, fmt.Errorf("encode criteria for %q: %w", entry.Name, err)
	}
	return models.SavedSearch{
		Name:     entry.Name,
		Criteria: string(raw),
		Schedule: entry.Schedule,
		Email:    entry.Email,
	}, nil
}

func overlay(dst *models.SearchCriteria, src models.SearchCriteria) {
	if src.Suburb != nil {
		dst.Suburb = src.Suburb
	}
	if src.PriceMin != nil {
		dst.PriceMin = src.PriceMin
	}
	if src.PriceMax != nil {
		dst.PriceMax = src.PriceMax
	}
	if src.Bedrooms != nil {
		dst.Bedrooms = src.Bedrooms
	}
	if src.PropertyType != nil {
		dst.PropertyType = src.PropertyType
	}
	if src.RadiusKm != nil {
		dst.RadiusKm = src.RadiusKm
	}
}

func orAny(s *string) string {
	if s == nil || *s == "" {
		return "any"
	}
	return *s
}

func int64OrAny(v *int64) string {
	if v == nil {
		return "any"
	}
	return strconv.FormatInt(*v, 10)
}
