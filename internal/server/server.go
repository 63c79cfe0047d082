package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	horizons "github.com/aretw0/horizons"
	"github.com/aretw0/horizons/internal/adapters/redis"
	"github.com/aretw0/horizons/internal/logging"
	"github.com/aretw0/horizons/pkg/domain"
)

// Fetcher runs one complete ephemeris fetch. Implemented by
// horizons.Client; tests substitute a stub.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.Request, ov domain.Overrides, dest string) (*horizons.Result, error)
}

// Cache stores finished responses by request fingerprint. Implemented by
// the Redis adapter; nil disables caching.
type Cache interface {
	Get(ctx context.Context, fingerprint string) ([]byte, error)
	Set(ctx context.Context, fingerprint string, payload []byte) error
}

// Server exposes the fetch pipeline over HTTP.
type Server struct {
	fetcher Fetcher
	cache   Cache
	logger  *slog.Logger
	reg     *prometheus.Registry

	fetches   *prometheus.CounterVec
	duration  prometheus.Histogram
	cacheHits *prometheus.CounterVec
}

// Option configures a Server.
type Option func(*Server)

// WithCache enables response caching.
func WithCache(c Cache) Option {
	return func(s *Server) { s.cache = c }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRegistry sets the metrics registry. Defaults to a private one.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.reg = reg }
}

// NewHandler builds the HTTP handler for the fetch pipeline.
func NewHandler(fetcher Fetcher, opts ...Option) http.Handler {
	s := &Server{fetcher: fetcher}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.reg == nil {
		s.reg = prometheus.NewRegistry()
	}
	s.registerMetrics()

	r := chi.NewRouter()
	r.Post("/fetch", s.handleFetch)
	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) registerMetrics() {
	s.fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "horizons_fetches_total",
		Help: "Completed fetch requests by outcome.",
	}, []string{"outcome"})
	s.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "horizons_fetch_duration_seconds",
		Help:    "Wall time of the full fetch pipeline.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	s.cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "horizons_cache_requests_total",
		Help: "Cache lookups by result.",
	}, []string{"result"})
	s.reg.MustRegister(s.fetches, s.duration, s.cacheHits)
}

// FetchRequest is the POST /fetch body.
type FetchRequest struct {
	Request   domain.Request   `json:"request"`
	Overrides domain.Overrides `json:"overrides"`
}

// FetchResponse is the POST /fetch success body.
type FetchResponse struct {
	Artifact string   `json:"artifact"`
	Trace    []string `json:"trace,omitempty"`
	Table    string   `json:"table"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var body FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("fetch: invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Detail: err.Error()})
		return
	}
	if err := body.Request.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Detail: err.Error()})
		return
	}

	fingerprint := redis.Fingerprint(body.Request, body.Overrides)
	if s.cache != nil {
		if payload, err := s.cache.Get(r.Context(), fingerprint); err == nil {
			s.cacheHits.WithLabelValues("hit").Inc()
			s.logger.Debug("fetch served from cache", "fingerprint", fingerprint)
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		} else if !errors.Is(err, redis.ErrMiss) {
			s.logger.Warn("cache lookup failed", "error", err)
		} else {
			s.cacheHits.WithLabelValues("miss").Inc()
		}
	}

	start := time.Now()
	resp, err := s.fetch(r.Context(), body)
	s.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		kind := domain.KindOf(err)
		outcome := string(kind)
		if outcome == "" {
			outcome = "internal_error"
		}
		s.fetches.WithLabelValues(outcome).Inc()
		s.logger.Error("fetch failed", "error", err, "object", body.Request.Object)
		writeJSON(w, statusFor(kind), errorResponse{Error: outcome, Detail: err.Error()})
		return
	}
	s.fetches.WithLabelValues("success").Inc()

	payload, err := json.Marshal(resp)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		return
	}
	if s.cache != nil {
		if err := s.cache.Set(r.Context(), fingerprint, payload); err != nil {
			s.logger.Warn("cache store failed", "error", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// fetch runs the pipeline into a scratch directory and returns the table
// inline. The scratch file never outlives the request.
func (s *Server) fetch(ctx context.Context, body FetchRequest) (*FetchResponse, error) {
	dir, err := os.MkdirTemp("", "horizons-*")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	// The object name is caller-supplied; keep the write inside the
	// scratch directory.
	dest := filepath.Join(dir, filepath.Base(body.Request.DefaultDest()))
	res, err := s.fetcher.Fetch(ctx, body.Request, body.Overrides, dest)
	if err != nil {
		return nil, err
	}
	table, err := os.ReadFile(res.Path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return &FetchResponse{Artifact: res.Artifact, Trace: res.Trace, Table: string(table)}, nil
}

// statusFor maps failure kinds to HTTP statuses: rejected request values
// are the client's fault, unreachable or misbehaving remote services are
// a bad gateway.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidElements, domain.KindUnknownCenter, domain.KindAmbiguousCenter,
		domain.KindInvalidDate, domain.KindOutOfEphemerisRange,
		domain.KindInvalidStepSize, domain.KindStepSizeRangeExceeded,
		domain.KindInvalidQuantities, domain.KindEmptyQuantities,
		domain.KindInvalidOverride:
		return http.StatusUnprocessableEntity
	case domain.KindNetworkUnavailable, domain.KindRemoteTimeout,
		domain.KindTransferUnavailable, domain.KindAuthenticationFailed,
		domain.KindArtifactNotFound:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "horizons-http",
		"version": strings.TrimSpace(horizons.Version),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
