package chi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mindseye/internal/domain"
	"github.com/kailas-cloud/mindseye/internal/domain/event"
	"github.com/kailas-cloud/mindseye/internal/domain/search/filter"
	"github.com/kailas-cloud/mindseye/internal/domain/search/request"
	"github.com/kailas-cloud/mindseye/internal/domain/stats"
	logpkg "github.com/kailas-cloud/mindseye/internal/logger"
	healthuc "github.com/kailas-cloud/mindseye/internal/usecase/health"
	"github.com/kailas-cloud/mindseye/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/mindseye/internal/usecase/search"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "minds-eye-search-engine"

// DefaultMaxBodyBytes caps POST /events/load bodies.
const DefaultMaxBodyBytes = 64 << 20

// Error codes returned in the "code" field of error responses.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeInvalidTimestamp = "invalid_timestamp"
	codeNotLoaded        = "not_loaded"
	codeUnauthorized     = "unauthorized"
	codeRateLimited      = "rate_limited"
	codeInternalError    = "internal_error"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Options tune request handling.
type Options struct {
	// UseTrigram is the default when the trigram query parameter is absent.
	UseTrigram bool
	// MaxBodyBytes caps load request bodies. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Server exposes the event store over HTTP.
type Server struct {
	store         *searchuc.Store[any]
	health        *healthuc.Service
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	store *searchuc.Store[any],
	health *healthuc.Service,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		health: health,
		opts:   opts,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidTimestamp, http.StatusBadRequest, codeInvalidTimestamp, true),
		sentinelHandler(domain.ErrMalformedInput, http.StatusBadRequest, codeValidationFailed, true),
		sentinelHandler(domain.ErrNotLoaded, http.StatusServiceUnavailable, codeNotLoaded, false),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/ready", s.Ready)
	r.Get("/metrics", s.Metrics)
	r.Route("/events", func(r chi.Router) {
		r.Post("/load", s.LoadEvents)
		r.Get("/search", s.SearchEvents)
		r.Get("/stats", s.EventStats)
	})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Service    string            `json:"service"`
	Checks     map[string]string `json:"checks"`
	Events     int               `json:"events"`
	Generation string            `json:"generation,omitempty"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:     string(report.Status),
		Service:    ServiceName,
		Checks:     checks,
		Events:     report.Events,
		Generation: report.Generation,
	})
}

// Ready handles GET /ready.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ready(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type loadResponse struct {
	Loaded     int    `json:"loaded"`
	Generation string `json:"generation"`
}

// LoadEvents handles POST /events/load.
func (s *Server) LoadEvents(w http.ResponseWriter, r *http.Request) {
	events, err := decodeLoadBody(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	if err := ingest.ValidateBatch(events); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	info := s.store.Load(events)
	logpkg.FromContextOr(r.Context(), s.logger).Info("Events loaded over HTTP",
		zap.Int("events", info.Events),
		zap.String("generation", info.Generation),
	)
	writeJSON(w, http.StatusOK, loadResponse{Loaded: info.Events, Generation: info.Generation})
}

var errEventsRequired = errors.New("events array is required")

// decodeLoadBody reads {"events":[...]}. Numbers keep their literal digits.
func decodeLoadBody(body io.Reader) ([]event.Event[any], error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var envelope map[string]json.RawMessage
	if err := dec.Decode(&envelope); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errEventsRequired
	}

	raw, ok := envelope["events"]
	if !ok {
		return nil, errEventsRequired
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errEventsRequired
	}

	var events []event.Event[any]
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("invalid events: %w", err)
	}
	if events == nil {
		events = []event.Event[any]{}
	}
	return events, nil
}

type searchResponse struct {
	Count   int                `json:"count"`
	Results []event.Event[any] `json:"results"`
}

// SearchEvents handles GET /events/search.
func (s *Server) SearchEvents(w http.ResponseWriter, r *http.Request) {
	req, err := s.searchRequestFromQuery(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	results, err := s.store.Search(req.Filters(), searchuc.Options{UseTrigram: req.UseTrigram()})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Count: len(results), Results: results})
}

type statsResponse struct {
	Daily []stats.DailyCount `json:"daily"`
}

// EventStats handles GET /events/stats. With filter parameters the counts
// cover the search result, otherwise the whole collection.
func (s *Server) EventStats(w http.ResponseWriter, r *http.Request) {
	events := s.store.Events()
	if hasFilterParams(r) {
		req, err := s.searchRequestFromQuery(r)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		events, err = s.store.Search(req.Filters(), searchuc.Options{UseTrigram: req.UseTrigram()})
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}

	daily, err := stats.CountEventsPerDay(events)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Daily: daily})
}

var filterParams = []string{"text", "source", "kind", "from", "to"}

func hasFilterParams(r *http.Request) bool {
	q := r.URL.Query()
	for _, p := range filterParams {
		if q.Get(p) != "" {
			return true
		}
	}
	return false
}

// searchRequestFromQuery maps query parameters to a validated request.
// An empty text parameter means no text filter.
func (s *Server) searchRequestFromQuery(r *http.Request) (request.Request, error) {
	q := r.URL.Query()

	var f filter.Filters
	if text := q.Get("text"); text != "" {
		f = f.WithText(text)
	}
	for _, src := range splitList(q.Get("source")) {
		f.Sources = append(f.Sources, event.Source(src))
	}
	f.Kinds = splitList(q.Get("kind"))
	if from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to")); from != "" || to != "" {
		f.TimeRange = &filter.TimeRange{From: from, To: to}
	}

	useTrigram := s.opts.UseTrigram
	if v := q.Get("trigram"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return request.Request{}, fmt.Errorf("%w: trigram must be a boolean, got %q", domain.ErrMalformedInput, v)
		}
		useTrigram = b
	}

	req, err := request.New(f, useTrigram)
	if err != nil {
		return request.Request{}, fmt.Errorf("search request: %w", err)
	}
	return req, nil
}

// splitList parses a comma-separated parameter, dropping blanks.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// With detail set the full error text reaches the client; it only ever
// describes caller input.
func sentinelHandler(sentinel error, status int, code string, detail bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detail {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
