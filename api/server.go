// Package api exposes listing search and suburb proximity over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"property-hunter/metrics"
	"property-hunter/models"
	"property-hunter/services"
)

const (
	maxLimit         = 200
	defaultRadiusKm  = 5.0
	maxRequestBodyKB = 64
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest  = "bad_request"
	CodeNotFound    = "not_found"
	CodeUnavailable = "unavailable"
	CodeInternal    = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the body of POST /search. Suburbs, when set, is used as
// an explicit suburb set and Suburb/RadiusKm are ignored.
type SearchRequest struct {
	Suburb       *string  `json:"suburb"`
	Suburbs      []string `json:"suburbs"`
	PriceMin     *int64   `json:"price_min"`
	PriceMax     *int64   `json:"price_max"`
	Bedrooms     *int     `json:"bedrooms"`
	PropertyType *string  `json:"property_type"`
	RadiusKm     *float64 `json:"radius_km"`
	Limit        int      `json:"limit"`
}

// ParseRequest is the body of POST /search/parse.
type ParseRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// NearbySuburb is one entry of GET /suburbs/{name}/nearby.
type NearbySuburb struct {
	models.SuburbProfile
	DistanceKm float64 `json:"distance_km"`
}

// NearbyResponse is the body of GET /suburbs/{name}/nearby.
type NearbyResponse struct {
	Center   *models.SuburbProfile `json:"center,omitempty"`
	RadiusKm float64               `json:"radius_km"`
	Suburbs  []NearbySuburb        `json:"suburbs"`
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP handlers.
type Server struct {
	search *services.SearchService
	health Pinger
	logger *zap.Logger
}

// NewServer creates a Server. health may be nil.
func NewServer(search *services.SearchService, health Pinger, logger *zap.Logger) *Server {
	return &Server{search: search, health: health, logger: logger}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/search", s.Search)
	r.Post("/search/parse", s.ParseSearch)
	r.Get("/suburbs/{name}/nearby", s.Nearby)
	r.Get("/healthz", s.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RadiusKm != nil && *req.RadiusKm <= 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "radius_km must be positive")
		return
	}
	limit := clampLimit(req.Limit)

	criteria := models.SearchCriteria{
		Suburb:       req.Suburb,
		PriceMin:     req.PriceMin,
		PriceMax:     req.PriceMax,
		Bedrooms:     req.Bedrooms,
		PropertyType: req.PropertyType,
		RadiusKm:     req.RadiusKm,
	}

	if len(req.Suburbs) > 0 {
		criteria.Suburb, criteria.RadiusKm = nil, nil
		filter := criteria.Filter(limit)
		filter.Suburbs = req.Suburbs
		listings, err := s.search.Search(r.Context(), filter)
		if err != nil {
			s.internalError(w, err)
			return
		}
		if listings == nil {
			listings = []models.Listing{}
		}
		writeJSON(w, http.StatusOK, services.SearchResult{Criteria: criteria, Listings: listings})
		return
	}

	res, err := s.search.SearchCriteria(r.Context(), criteria, limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ParseSearch handles POST /search/parse.
func (s *Server) ParseSearch(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is required")
		return
	}

	res, err := s.search.SearchText(r.Context(), req.Query, clampLimit(req.Limit))
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Nearby handles GET /suburbs/{name}/nearby?radius_km=. An unknown suburb
// has no neighbours and yields an empty list without a center.
func (s *Server) Nearby(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	radius := defaultRadiusKm
	if raw := r.URL.Query().Get("radius_km"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "radius_km must be a positive number")
			return
		}
		radius = v
	}

	resp := NearbyResponse{RadiusKm: radius, Suburbs: []NearbySuburb{}}
	geo := s.search.Geo()
	center, ok := geo.Find(name)
	if !ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Center = &center
	distances := geo.DistanceMap(center.Suburb)
	for _, p := range geo.WithinRadius(center.Suburb, radius) {
		resp.Suburbs = append(resp.Suburbs, NearbySuburb{SuburbProfile: p, DistanceKm: distances[p.Suburb]})
	}
	sort.SliceStable(resp.Suburbs, func(i, j int) bool {
		return resp.Suburbs[i].DistanceKm < resp.Suburbs[j].DistanceKm
	})
	writeJSON(w, http.StatusOK, resp)
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyKB<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid request body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, msg)
		return false
	}
	return true
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return services.DefaultSearchLimit
	case limit > maxLimit:
		return maxLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
