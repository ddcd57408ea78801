package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "propertyhunter"

// Ingest metrics.
var (
	ListingsExtractedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_extracted_total",
			Help:      "Listings extracted from fetched pages, by winning strategy",
		},
		[]string{"strategy"},
	)

	PagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Listing pages processed, by outcome",
		},
		[]string{"outcome"}, // "ok" / "empty" / "blocked" / "error"
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Page fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"fetcher"},
	)

	ListingsUpsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_upserted_total",
			Help:      "Listings written to the listing store",
		},
	)

	DigestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_total",
			Help:      "Saved-search digest runs, by outcome",
		},
		[]string{"outcome"}, // "sent" / "empty" / "error"
	)
)

// Page outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeBlocked = "blocked"
	OutcomeError   = "error"
)

func init() {
	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestsTotal,
		ListingsExtractedTotal,
		PagesTotal,
		FetchDuration,
		ListingsUpsertedTotal,
		DigestsTotal,
	)
}

// RecordPage counts one processed page and, when it produced listings, the
// listings attributed to the strategy that found them.
func RecordPage(outcome, strategy string, listings int) {
	PagesTotal.WithLabelValues(outcome).Inc()
	if listings > 0 {
		ListingsExtractedTotal.WithLabelValues(strategy).Add(float64(listings))
	}
}

// ObserveFetch records how long a fetcher took for one page.
func ObserveFetch(fetcher string, started time.Time) {
	FetchDuration.WithLabelValues(fetcher).Observe(time.Since(started).Seconds())
}
