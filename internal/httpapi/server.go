package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ent0n29/employee-api/internal/audit"
	"github.com/ent0n29/employee-api/internal/config"
	"github.com/ent0n29/employee-api/internal/employee"
	"github.com/ent0n29/employee-api/internal/logging"
	"github.com/ent0n29/employee-api/internal/observability"
	"github.com/ent0n29/employee-api/internal/reliability"
)

// EmployeeService is the upstream-backed employee directory.
type EmployeeService interface {
	ListAll(ctx context.Context) ([]employee.Employee, error)
	GetByID(ctx context.Context, id string) (employee.Employee, error)
	Create(ctx context.Context, in employee.CreateInput) (employee.Employee, error)
	DeleteByID(ctx context.Context, id string) (employee.DeleteOutcome, error)
}

type Server struct {
	cfg       config.Config
	employees EmployeeService
	audit     audit.Store
	metrics   *observability.Metrics
	log       zerolog.Logger
}

func New(cfg config.Config, employees EmployeeService, auditStore audit.Store, metrics *observability.Metrics, log zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		employees: employees,
		audit:     auditStore,
		metrics:   metrics,
		log:       log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware(s.log, s.metrics.ObserveHTTP))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.Get("/v1/perf/upstream", s.handlePerfUpstream)
	r.Get("/v1/audit", s.handleListAudit)

	prefix := s.cfg.App.APIPrefix
	if prefix == "" {
		prefix = "/api/v1/employee"
	}
	r.Route(prefix, func(r chi.Router) {
		r.Get("/", s.handleListEmployees)
		r.Get("/search/{searchString}", s.handleSearchEmployees)
		r.Get("/highestSalary", s.handleHighestSalary)
		r.Get("/topTenHighestEarningEmployeeNames", s.handleTopEarners)
		r.Get("/{id}", s.handleGetEmployee)
		r.Post("/", s.handleCreateEmployee)
		r.Delete("/{id}", s.handleDeleteEmployee)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"audit_store_mode": s.auditStoreMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ready",
		"audit_store_mode": s.auditStoreMode(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondFailure maps a classified upstream failure onto an HTTP status.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())
	switch reliability.Classify(err) {
	case reliability.NotFound:
		log.Debug().Err(err).Msg("employee not found")
		respondError(w, http.StatusNotFound, "employee_not_found", "employee not found")
		return
	case reliability.RateLimited:
		w.Header().Set("Retry-After", strconv.Itoa(s.retryAfterSeconds()))
		respondError(w, http.StatusServiceUnavailable, "upstream_rate_limited", "upstream is rate limiting requests, try again later")
	case reliability.TransportError:
		respondError(w, http.StatusServiceUnavailable, "upstream_unavailable", "upstream service is unavailable")
	case reliability.UpstreamError:
		respondError(w, http.StatusBadGateway, "upstream_error", "upstream returned an unexpected response")
	default:
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			respondError(w, http.StatusGatewayTimeout, "upstream_timeout", "upstream did not answer in time")
		case errors.Is(err, context.Canceled):
			respondError(w, http.StatusServiceUnavailable, "request_cancelled", "request was cancelled")
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
	}
	log.Error().Err(err).Str("classification", reliability.Classify(err).String()).Msg("upstream call failed")
}

func (s *Server) retryAfterSeconds() int {
	secs := int(math.Ceil(s.cfg.Retry.BackoffDelay.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (s *Server) auditStoreMode() string {
	if s.audit == nil {
		return "disabled"
	}
	return s.audit.Mode()
}
