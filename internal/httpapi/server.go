// Package httpapi is the read path spec.md §4.6 treats as an external
// collaborator: a thin chi router exposing health, Prometheus metrics and
// the one supported query, GET /events/integrator/{chainId}/{integrator}.
//
// Grounded on the teacher's pkg/api/server.go (chi.Router, middleware
// stack, JSON envelope helpers) generalized to the single query this
// indexer's storage layer supports.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vicimikul/lifi-fee-scraper/internal/chainregistry"
	"github.com/vicimikul/lifi-fee-scraper/internal/model"
)

// EventFinder is the subset of internal/store.EventStore the read path
// consumes. Defined on the consumer side so handler tests can supply a
// fake store.
type EventFinder interface {
	FindByIntegrator(ctx context.Context, chainID uint64, integrator string) ([]*model.FeeEvent, error)
}

// Server wraps the chi router and its dependencies.
type Server struct {
	router http.Handler
	events EventFinder
	logger *zap.Logger
}

// New builds the HTTP surface described in spec.md §6.
func New(events EventFinder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{events: events, logger: logger.Named("httpapi")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/events/integrator/{chainId}/{integrator}", s.handleFindByIntegrator)

	s.router = r
	return s
}

// ServeHTTP lets Server be used directly as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type successEnvelope struct {
	Success bool     `json:"success"`
	Data    eventsEnvelope `json:"data"`
	Meta    metaEnvelope   `json:"meta"`
}

type eventsEnvelope struct {
	Events []*model.FeeEvent `json:"events"`
}

type metaEnvelope struct {
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

type failureEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// handleFindByIntegrator implements the single supported query: events for
// one chain and one integrator address. Parameter validation failures
// return 400 with a message naming which parameter was invalid, per
// spec.md §8's testable property.
func (s *Server) handleFindByIntegrator(w http.ResponseWriter, r *http.Request) {
	chainIDParam := chi.URLParam(r, "chainId")
	integrator := chi.URLParam(r, "integrator")

	chainID, err := strconv.ParseUint(chainIDParam, 10, 64)
	if err != nil || !chainregistry.IsSupported(chainID) {
		writeJSON(w, http.StatusBadRequest, failureEnvelope{Success: false, Error: "invalid chain id"})
		return
	}

	if !model.IsValidAddress(integrator) {
		writeJSON(w, http.StatusBadRequest, failureEnvelope{Success: false, Error: "invalid integrator address"})
		return
	}

	events, err := s.events.FindByIntegrator(r.Context(), chainID, integrator)
	if err != nil {
		s.logger.Error("findByIntegrator failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Error: "internal error"})
		return
	}
	if events == nil {
		events = []*model.FeeEvent{}
	}

	writeJSON(w, http.StatusOK, successEnvelope{
		Success: true,
		Data:    eventsEnvelope{Events: events},
		Meta:    metaEnvelope{Count: len(events), Timestamp: time.Now().UTC()},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestLogger emits one structured line per request, in the teacher's
// style of deriving an http.Handler from a *zap.Logger.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
