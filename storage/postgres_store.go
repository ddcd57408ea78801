package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"property-hunter/models"
)

// ErrNotFound is returned when an update targets a row that does not exist.
var ErrNotFound = errors.New("not found")

// DefaultQueryLimit caps Query when the filter sets no limit.
const DefaultQueryLimit = 50

const listingColumns = `id, url, title, address, suburb, state, postcode, price_text,
	price_min, price_max, bedrooms, bathrooms, parking, property_type,
	land_size, listing_status, listed_at, scraped_at, raw_json`

const savedSearchColumns = `id, name, criteria_json, schedule, email, last_run_at`

const schema = `
	CREATE TABLE IF NOT EXISTS listings (
		id             TEXT PRIMARY KEY,
		url            TEXT        NOT NULL,
		title          TEXT        NOT NULL DEFAULT '',
		address        TEXT        NOT NULL DEFAULT '',
		suburb         TEXT        NOT NULL DEFAULT '',
		state          TEXT        NOT NULL DEFAULT '',
		postcode       TEXT        NOT NULL DEFAULT '',
		price_text     TEXT        NOT NULL DEFAULT '',
		price_min      BIGINT,
		price_max      BIGINT,
		bedrooms       INTEGER,
		bathrooms      INTEGER,
		parking        INTEGER,
		property_type  TEXT        NOT NULL DEFAULT '',
		land_size      INTEGER,
		listing_status TEXT        NOT NULL DEFAULT '',
		listed_at      TEXT        NOT NULL DEFAULT '',
		scraped_at     TIMESTAMPTZ NOT NULL,
		raw_json       JSONB       NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_listings_suburb     ON listings(suburb);
	CREATE INDEX IF NOT EXISTS idx_listings_price_min  ON listings(price_min);
	CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings(scraped_at);

	CREATE TABLE IF NOT EXISTS saved_searches (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT        NOT NULL,
		criteria_json JSONB       NOT NULL,
		schedule      TEXT        NOT NULL DEFAULT 'daily',
		email         TEXT        NOT NULL,
		last_run_at   TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

// PostgresStore implements ListingStore and SavedSearchStore on PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to PostgreSQL, waiting for it to come up, and
// creates the schema if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := NewPostgresStoreFromDB(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing connection without touching the schema.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Upsert writes all listings in one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, listings []models.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			address = EXCLUDED.address,
			suburb = EXCLUDED.suburb,
			state = EXCLUDED.state,
			postcode = EXCLUDED.postcode,
			price_text = EXCLUDED.price_text,
			price_min = EXCLUDED.price_min,
			price_max = EXCLUDED.price_max,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			parking = EXCLUDED.parking,
			property_type = EXCLUDED.property_type,
			land_size = EXCLUDED.land_size,
			listing_status = EXCLUDED.listing_status,
			listed_at = EXCLUDED.listed_at,
			scraped_at = EXCLUDED.scraped_at,
			raw_json = EXCLUDED.raw_json
	`)
	if err != nil {
		return 0, fmt.Errorf("postgres: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range listings {
		raw := "{}"
		if len(l.Raw) > 0 {
			raw = string(l.Raw)
		}
		if _, err := stmt.ExecContext(ctx,
			l.ID, l.URL, l.Title, l.Address, l.Suburb, l.State, l.Postcode, l.PriceText,
			l.PriceMin, l.PriceMax, l.Bedrooms, l.Bathrooms, l.Parking, l.PropertyType,
			l.LandSize, l.Status, l.ListedAt, l.ScrapedAt, raw,
		); err != nil {
			return 0, fmt.Errorf("postgres: upsert listing %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return len(listings), nil
}

// Query applies the filter: an explicit suburb set takes precedence over a
// single suburb, and price and bedroom bounds match listings that leave the
// field unknown.
func (s *PostgresStore) Query(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	query, args := buildListingQuery(filter)

	var listings []models.Listing
	if err := s.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: query listings: %w", err)
	}
	return listings, nil
}

func buildListingQuery(filter models.ListingFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case len(filter.Suburbs) > 0:
		clauses = append(clauses, "suburb = ANY("+arg(pq.Array(filter.Suburbs))+")")
	case filter.Suburb != "":
		clauses = append(clauses, "suburb = "+arg(filter.Suburb))
	}
	if filter.PriceMin != nil {
		clauses = append(clauses, "(price_min IS NULL OR price_min >= "+arg(*filter.PriceMin)+")")
	}
	if filter.PriceMax != nil {
		clauses = append(clauses, "(price_max IS NULL OR price_max <= "+arg(*filter.PriceMax)+")")
	}
	if filter.Bedrooms != nil {
		clauses = append(clauses, "(bedrooms IS NULL OR bedrooms >= "+arg(*filter.Bedrooms)+")")
	}
	if filter.PropertyType != "" {
		clauses = append(clauses, "property_type = "+arg(filter.PropertyType))
	}
	if filter.Since != nil {
		clauses = append(clauses, "scraped_at > "+arg(*filter.Since))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var b strings.Builder
	b.WriteString("SELECT " + listingColumns + " FROM listings")
	if len(clauses) > 0 {
		b.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	b.WriteString(" ORDER BY scraped_at DESC LIMIT " + arg(limit))
	return b.String(), args
}

// SaveSearch stores a saved search and returns its ID.
func (s *PostgresStore) SaveSearch(ctx context.Context, search models.SavedSearch) (int64, error) {
	schedule := search.Schedule
	if schedule == "" {
		schedule = "daily"
	}

	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO saved_searches (name, criteria_json, schedule, email)
		VALUES ($1, $2::jsonb, $3, $4)
		RETURNING id
	`, search.Name, search.Criteria, schedule, search.Email).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: save search %q: %w", search.Name, err)
	}
	return id, nil
}

// ListSavedSearches returns every saved search, newest first.
func (s *PostgresStore) ListSavedSearches(ctx context.Context) ([]models.SavedSearch, error) {
	var searches []models.SavedSearch
	err := s.db.SelectContext(ctx, &searches,
		`SELECT `+savedSearchColumns+` FROM saved_searches ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list saved searches: %w", err)
	}
	return searches, nil
}

// MarkSearchRun records when a saved search last ran.
func (s *PostgresStore) MarkSearchRun(ctx context.Context, id int64, runAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE saved_searches SET last_run_at = $1 WHERE id = $2`, runAt, id)
	if err != nil {
		return fmt.Errorf("postgres: mark search %d run: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("postgres: saved search %d: %w", id, ErrNotFound)
	}
	return nil
}
