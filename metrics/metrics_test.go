package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/suburbs/{name}/nearby", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/suburbs/{name}/nearby", "200"))

	req := httptest.NewRequest("GET", "/suburbs/Richmond/nearby", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/suburbs/{name}/nearby", "200"))
	if after-before != 1 {
		t.Errorf("expected one request recorded under the route pattern, got %f", after-before)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		path   string
		status string
	}{
		{"/missing", "404"},
		{"/broken", "500"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest("GET", tc.path, http.NoBody))

			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", tc.path, tc.status)); v < 1 {
				t.Errorf("expected requests_total for %s with status %s >= 1, got %f", tc.path, tc.status, v)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unknown"},
		{"/search/parse", "/search/parse"},
	}
	for _, tc := range tests {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestRecordPage(t *testing.T) {
	okBefore := testutil.ToFloat64(PagesTotal.WithLabelValues(OutcomeOK))
	blockedBefore := testutil.ToFloat64(PagesTotal.WithLabelValues(OutcomeBlocked))
	listingsBefore := testutil.ToFloat64(ListingsExtractedTotal.WithLabelValues("json-ld"))

	RecordPage(OutcomeOK, "json-ld", 3)
	RecordPage(OutcomeBlocked, "", 0)

	if d := testutil.ToFloat64(PagesTotal.WithLabelValues(OutcomeOK)) - okBefore; d != 1 {
		t.Errorf("ok pages delta = %f, want 1", d)
	}
	if d := testutil.ToFloat64(PagesTotal.WithLabelValues(OutcomeBlocked)) - blockedBefore; d != 1 {
		t.Errorf("blocked pages delta = %f, want 1", d)
	}
	if d := testutil.ToFloat64(ListingsExtractedTotal.WithLabelValues("json-ld")) - listingsBefore; d != 3 {
		t.Errorf("extracted listings delta = %f, want 3", d)
	}
}

func TestObserveFetch(t *testing.T) {
	ObserveFetch("http", time.Now().Add(-time.Second))
	if testutil.CollectAndCount(FetchDuration) == 0 {
		t.Error("expected fetch_duration_seconds to have observations")
	}
}
