package storage

import (
	"context"
	"time"

	"property-hunter/models"
)

// ListingStore persists listings keyed by ID.
type ListingStore interface {
	// Upsert inserts each listing or replaces every field of the stored
	// listing with the same ID. It returns the number of rows written.
	Upsert(ctx context.Context, listings []models.Listing) (int, error)
	// Query returns matching listings, newest extraction first.
	Query(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
}

// SavedSearchStore persists saved searches and their last run time.
type SavedSearchStore interface {
	SaveSearch(ctx context.Context, search models.SavedSearch) (int64, error)
	ListSavedSearches(ctx context.Context) ([]models.SavedSearch, error)
	MarkSearchRun(ctx context.Context, id int64, runAt time.Time) error
}

// SnapshotWriter writes an extraction snapshot for inspection.
type SnapshotWriter interface {
	WriteListings(listings []models.Listing) error
	Close() error
}
