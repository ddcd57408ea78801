package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"property-hunter/models"
	"property-hunter/services"
	"property-hunter/utils"
)

type stubStore struct {
	filters  []models.ListingFilter
	listings []models.Listing
	err      error
}

func (s *stubStore) Query(_ context.Context, f models.ListingFilter) ([]models.Listing, error) {
	s.filters = append(s.filters, f)
	return s.listings, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func testProfiles() []models.SuburbProfile {
	return []models.SuburbProfile{
		{Suburb: "Glen Iris", State: "VIC", Latitude: -37.8590, Longitude: 145.0580},
		{Suburb: "Camberwell", State: "VIC", Latitude: -37.8420, Longitude: 145.0690},
		{Suburb: "Ashburton", State: "VIC", Latitude: -37.8630, Longitude: 145.0810},
		{Suburb: "Richmond", State: "VIC", Latitude: -37.8230, Longitude: 144.9980},
	}
}

func newTestServer(store *stubStore, health Pinger) http.Handler {
	ref := services.NewReferenceData(nil, testProfiles())
	svc := services.NewSearchService(ref, store, utils.NewNopLogger())
	return NewServer(svc, health, zap.NewNop()).Router()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSearch_ExplicitFilter(t *testing.T) {
	store := &stubStore{listings: []models.Listing{{ID: "1", URL: "https://x", Suburb: "Richmond"}}}
	h := newTestServer(store, nil)

	rec := do(t, h, http.MethodPost, "/search", `{"suburb":"Richmond","price_max":900000,"bedrooms":2,"limit":500}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	res := decode[services.SearchResult](t, rec)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, "1", res.Listings[0].ID)

	require.Len(t, store.filters, 1)
	f := store.filters[0]
	assert.Equal(t, "Richmond", f.Suburb)
	assert.Equal(t, int64(900000), *f.PriceMax)
	assert.Equal(t, 2, *f.Bedrooms)
	assert.Equal(t, maxLimit, f.Limit)
}

func TestSearch_RadiusExpandsSuburbs(t *testing.T) {
	store := &stubStore{}
	h := newTestServer(store, nil)

	rec := do(t, h, http.MethodPost, "/search", `{"suburb":"Glen Iris","radius_km":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, store.filters, 1)
	assert.Equal(t, []string{"Ashburton", "Camberwell", "Glen Iris"}, store.filters[0].Suburbs)
	assert.Equal(t, services.DefaultSearchLimit, store.filters[0].Limit)

	res := decode[services.SearchResult](t, rec)
	assert.NotNil(t, res.Listings)
	assert.Len(t, res.Distances, 3)
}

func TestSearch_ExplicitSuburbSet(t *testing.T) {
	store := &stubStore{}
	h := newTestServer(store, nil)

	rec := do(t, h, http.MethodPost, "/search", `{"suburb":"Kew","suburbs":["Richmond","Camberwell"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, store.filters, 1)
	assert.Equal(t, []string{"Richmond", "Camberwell"}, store.filters[0].Suburbs)
	assert.Empty(t, store.filters[0].Suburb)
}

func TestSearch_BadRequests(t *testing.T) {
	h := newTestServer(&stubStore{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed", `{"suburb":`},
		{"unknown field", `{"town":"Kew"}`},
		{"negative radius", `{"suburb":"Kew","radius_km":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, CodeBadRequest, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestSearch_StoreFailure(t *testing.T) {
	h := newTestServer(&stubStore{err: errors.New("connection reset")}, nil)

	rec := do(t, h, http.MethodPost, "/search", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, CodeInternal, body.Code)
	assert.NotContains(t, body.Message, "connection reset")
}

func TestParseSearch(t *testing.T) {
	store := &stubStore{}
	h := newTestServer(store, nil)

	rec := do(t, h, http.MethodPost, "/search/parse", `{"query":"3 bed house within 3 km of glen iris under $2m","limit":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[services.SearchResult](t, rec)
	require.NotNil(t, res.Criteria.Suburb)
	assert.Equal(t, "Glen Iris", *res.Criteria.Suburb)
	assert.Equal(t, 3, *res.Criteria.Bedrooms)
	assert.Equal(t, "House", *res.Criteria.PropertyType)
	assert.Equal(t, int64(2000000), *res.Criteria.PriceMax)
	require.NotNil(t, res.Center)
	assert.Len(t, res.Nearby, 3)

	require.Len(t, store.filters, 1)
	assert.Equal(t, 10, store.filters[0].Limit)
}

func TestParseSearch_RequiresQuery(t *testing.T) {
	h := newTestServer(&stubStore{}, nil)

	rec := do(t, h, http.MethodPost, "/search/parse", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNearby(t *testing.T) {
	h := newTestServer(&stubStore{}, nil)

	rec := do(t, h, http.MethodGet, "/suburbs/glen%20iris/nearby?radius_km=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	res := decode[NearbyResponse](t, rec)
	require.NotNil(t, res.Center)
	assert.Equal(t, "Glen Iris", res.Center.Suburb)
	assert.Equal(t, 3.0, res.RadiusKm)
	require.Len(t, res.Suburbs, 3)
	assert.Equal(t, "Glen Iris", res.Suburbs[0].Suburb)
	assert.Zero(t, res.Suburbs[0].DistanceKm)
	for i := 1; i < len(res.Suburbs); i++ {
		assert.LessOrEqual(t, res.Suburbs[i-1].DistanceKm, res.Suburbs[i].DistanceKm)
	}
}

func TestNearby_UnknownSuburbIsEmpty(t *testing.T) {
	h := newTestServer(&stubStore{}, nil)

	rec := do(t, h, http.MethodGet, "/suburbs/Atlantis/nearby?radius_km=50", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"radius_km":50,"suburbs":[]}`, rec.Body.String())

	res := decode[NearbyResponse](t, rec)
	assert.Nil(t, res.Center)
	assert.Empty(t, res.Suburbs)
}

func TestNearby_Errors(t *testing.T) {
	h := newTestServer(&stubStore{}, nil)

	rec := do(t, h, http.MethodGet, "/suburbs/Richmond/nearby?radius_km=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/suburbs/Richmond/nearby?radius_km=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(&stubStore{}, stubPinger{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, newTestServer(&stubStore{}, stubPinger{err: errors.New("down")}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeUnavailable, decode[ErrorResponse](t, rec).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&stubStore{}, nil)
	do(t, h, http.MethodGet, "/healthz", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "propertyhunter_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, newTestServer(&stubStore{}, nil), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, decode[ErrorResponse](t, rec).Code)
}
