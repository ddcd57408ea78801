package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-hunter/config"
	"property-hunter/models"
)

type fakeSearchStore struct {
	searches []models.SavedSearch
	results  map[int64][]models.Listing
	queryErr error

	queries []models.ListingFilter
	marked  map[int64]time.Time
}

func (f *fakeSearchStore) Query(_ context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	f.queries = append(f.queries, filter)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	// The last saved search queried is the one being processed.
	id := f.searches[len(f.queries)-1].ID
	return f.results[id], nil
}

func (f *fakeSearchStore) SaveSearch(_ context.Context, s models.SavedSearch) (int64, error) {
	f.searches = append(f.searches, s)
	return int64(len(f.searches)), nil
}

func (f *fakeSearchStore) ListSavedSearches(context.Context) ([]models.SavedSearch, error) {
	return f.searches, nil
}

func (f *fakeSearchStore) MarkSearchRun(_ context.Context, id int64, runAt time.Time) error {
	if f.marked == nil {
		f.marked = make(map[int64]time.Time)
	}
	f.marked[id] = runAt
	return nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

var notifyNow = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func testNotifier(store *fakeSearchStore, mailer *fakeMailer) *Notifier {
	n := NewNotifier(store, mailer, NewGeoMatcher(NewReferenceData(nil, testProfiles())), newTestLogger())
	n.now = func() time.Time { return notifyNow }
	return n
}

func TestNotifier_SendsDigestAndMarksRun(t *testing.T) {
	lastRun := notifyNow.Add(-24 * time.Hour)
	store := &fakeSearchStore{
		searches: []models.SavedSearch{
			{ID: 1, Name: "Glen Iris", Email: "a@example.com", Criteria: `{"suburb":"Glen Iris","price_max":2000000}`, LastRunAt: &lastRun},
			{ID: 2, Name: "Quiet", Email: "b@example.com", Criteria: `{"suburb":"Richmond"}`},
		},
		results: map[int64][]models.Listing{
			1: {{ID: "x", URL: "https://x", Title: "12 Smith St", PriceText: "$1.9m"}},
		},
	}
	mailer := &fakeMailer{}

	results, err := testNotifier(store, mailer).RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, DigestSent, results[0].Outcome)
	assert.Equal(t, 1, results[0].Listings)
	assert.Equal(t, DigestEmpty, results[1].Outcome)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@example.com", mailer.sent[0].to)
	assert.Equal(t, "PropertyHunter matches: Glen Iris", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "- 12 Smith St\n  $1.9m\n  https://x\n")

	require.Len(t, store.queries, 2)
	assert.Equal(t, "Glen Iris", store.queries[0].Suburb)
	assert.Equal(t, DigestLimit, store.queries[0].Limit)
	require.NotNil(t, store.queries[0].Since)
	assert.Equal(t, lastRun, *store.queries[0].Since)
	assert.Nil(t, store.queries[1].Since)

	assert.Equal(t, notifyNow, store.marked[1])
	assert.Equal(t, notifyNow, store.marked[2])
}

func TestNotifier_RadiusExpandsToSuburbSet(t *testing.T) {
	store := &fakeSearchStore{
		searches: []models.SavedSearch{
			{ID: 1, Name: "Near Glen Iris", Email: "a@example.com", Criteria: `{"suburb":"glen iris","radius_km":3}`},
		},
	}

	_, err := testNotifier(store, &fakeMailer{}).RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, store.queries, 1)
	assert.Equal(t, []string{"Ashburton", "Camberwell", "Glen Iris"}, store.queries[0].Suburbs)
}

func TestNotifier_MailFailureStillMarksRun(t *testing.T) {
	store := &fakeSearchStore{
		searches: []models.SavedSearch{{ID: 5, Name: "x", Email: "a@example.com"}},
		results:  map[int64][]models.Listing{5: {{ID: "1", URL: "https://x"}}},
	}
	mailer := &fakeMailer{err: ErrMailNotConfigured}

	results, err := testNotifier(store, mailer).RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMailNotConfigured)
	assert.Equal(t, DigestError, results[0].Outcome)
	assert.Contains(t, store.marked, int64(5))
}

func TestNotifier_QueryFailureLeavesRunUnmarked(t *testing.T) {
	store := &fakeSearchStore{
		searches: []models.SavedSearch{{ID: 5, Name: "x", Email: "a@example.com"}},
		queryErr: errors.New("connection refused"),
	}

	results, err := testNotifier(store, &fakeMailer{}).RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, DigestError, results[0].Outcome)
	assert.NotContains(t, store.marked, int64(5))
}

func TestDecodeCriteria(t *testing.T) {
	c, err := DecodeCriteria(`{"suburb":"Kew","bedrooms":3,"radius_km":2.5}`)
	require.NoError(t, err)
	require.NotNil(t, c.Suburb)
	assert.Equal(t, "Kew", *c.Suburb)
	assert.Equal(t, 3, *c.Bedrooms)
	assert.Equal(t, 2.5, *c.RadiusKm)

	c, err = DecodeCriteria("  ")
	require.NoError(t, err)
	assert.Equal(t, models.SearchCriteria{}, c)

	_, err = DecodeCriteria("{not json")
	assert.Error(t, err)
}

func TestFormatDigest(t *testing.T) {
	suburb := "Kew"
	radius := 2.5
	body := FormatDigest(models.SearchCriteria{Suburb: &suburb, RadiusKm: &radius, PriceMax: int64Ptr(900000)}, []models.Listing{
		{URL: "https://a", Address: "1 High St, Kew"},
		{URL: "https://b"},
	})

	assert.Contains(t, body, "Suburb: Kew\nRadius: 2.5 km\nMin price: any\nMax price: 900000\nBedrooms: any\nProperty type: any\n")
	assert.Contains(t, body, "- 1 High St, Kew\n  Price on request\n  https://a\n")
	assert.Contains(t, body, "- Listing\n  Price on request\n  https://b\n")
}

func TestBuildSavedSearch(t *testing.T) {
	extractor := NewCriteriaExtractor(NewReferenceData([]string{"Glen Iris"}, nil))
	beds := 4

	s, err := BuildSavedSearch(config.SearchEntry{
		Name:     "Glen Iris",
		Email:    "a@example.com",
		Schedule: "daily",
		Query:    "3 bed house in Glen Iris under $2m",
		Criteria: models.SearchCriteria{Bedrooms: &beds},
	}, extractor)
	require.NoError(t, err)

	assert.Equal(t, "Glen Iris", s.Name)
	assert.Equal(t, "daily", s.Schedule)
	assert.JSONEq(t, `{"suburb":"Glen Iris","price_max":2000000,"bedrooms":4,"property_type":"House"}`, s.Criteria)
}
