package services

import (
	"context"
	"fmt"

	"property-hunter/models"
	"property-hunter/utils"
)

// DefaultSearchLimit is used when a search does not ask for a limit.
const DefaultSearchLimit = 50

// ListingQuerier is the read side of the listing store.
type ListingQuerier interface {
	Query(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
}

// SearchResult is a resolved search: the criteria, the suburbs a radius
// expanded to with their distances from the center, and the matches.
type SearchResult struct {
	Criteria  models.SearchCriteria  `json:"criteria"`
	Center    *models.SuburbProfile  `json:"center,omitempty"`
	Nearby    []models.SuburbProfile `json:"nearby,omitempty"`
	Distances map[string]float64     `json:"distances,omitempty"`
	Listings  []models.Listing       `json:"listings"`
}

// ResolvedFilter is a store filter plus the radius expansion that produced it.
type ResolvedFilter struct {
	Filter    models.ListingFilter
	Center    *models.SuburbProfile
	Nearby    []models.SuburbProfile
	Distances map[string]float64
}

// ResolveFilter converts criteria into a store filter. A radius around a
// known center becomes the set of suburbs within it; a radius around an
// unknown center falls back to the center name alone.
func (g *GeoMatcher) ResolveFilter(c models.SearchCriteria, limit int) ResolvedFilter {
	r := ResolvedFilter{Filter: c.Filter(limit)}
	if c.Suburb == nil {
		return r
	}
	if center, ok := g.Find(*c.Suburb); ok {
		r.Center = &center
	}
	if c.RadiusKm == nil || r.Center == nil {
		return r
	}

	r.Nearby = g.WithinRadius(r.Center.Suburb, *c.RadiusKm)
	r.Filter.Suburbs = SuburbNames(r.Nearby)

	all := g.DistanceMap(r.Center.Suburb)
	r.Distances = make(map[string]float64, len(r.Nearby))
	for _, p := range r.Nearby {
		r.Distances[p.Suburb] = all[p.Suburb]
	}
	return r
}

// SearchService runs explicit and free-text listing searches.
type SearchService struct {
	criteria *CriteriaExtractor
	geo      *GeoMatcher
	store    ListingQuerier
	logger   *utils.Logger
}

// NewSearchService wires the criteria parser and geo matcher over ref.
func NewSearchService(ref *ReferenceData, store ListingQuerier, logger *utils.Logger) *SearchService {
	return &SearchService{
		criteria: NewCriteriaExtractor(ref),
		geo:      NewGeoMatcher(ref),
		store:    store,
		logger:   logger,
	}
}

// Geo returns the matcher the service resolves radii with.
func (s *SearchService) Geo() *GeoMatcher {
	return s.geo
}

// Search runs an explicit filter.
func (s *SearchService) Search(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultSearchLimit
	}
	listings, err := s.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return listings, nil
}

// SearchText parses a free-text query and runs it.
func (s *SearchService) SearchText(ctx context.Context, text string, limit int) (*SearchResult, error) {
	c := s.criteria.Parse(text)
	s.logger.Debug("[search] Parsed %q", text)
	return s.SearchCriteria(ctx, c, limit)
}

// SearchCriteria resolves a radius if present and runs the resulting filter.
func (s *SearchService) SearchCriteria(ctx context.Context, c models.SearchCriteria, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	resolved := s.geo.ResolveFilter(c, limit)

	listings, err := s.Search(ctx, resolved.Filter)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	return &SearchResult{
		Criteria:  c,
		Center:    resolved.Center,
		Nearby:    resolved.Nearby,
		Distances: resolved.Distances,
		Listings:  listings,
	}, nil
}

// ParseCriteria exposes the free-text parser.
func (s *SearchService) ParseCriteria(text string) models.SearchCriteria {
	return s.criteria.Parse(text)
}
