// Package routes exposes the public REST surface of the reward service: the
// submission pipeline, passport and cycle status, submission history, and the
// operator's admin endpoints.
package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"juscat/classifier"
	"juscat/gateway/middleware"
	"juscat/history"
	"juscat/native/rewards"
	"juscat/observability"
)

// PassportCounter reports the registry-wide credential count. The stats
// endpoint falls back to the local cache size when the registry is down.
type PassportCounter interface {
	TotalPassports(ctx context.Context) (uint64, error)
}

type Config struct {
	Engine            *rewards.Engine
	History           *history.Store
	Classifier        classifier.Oracle
	Passports         PassportCounter
	ValidityThreshold float64

	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

type handlers struct {
	engine     *rewards.Engine
	history    *history.Store
	classifier classifier.Oracle
	passports  PassportCounter
	threshold  float64
	logger     *slog.Logger
	metrics    *observability.LedgerMetrics
}

// New assembles the gateway router.
func New(cfg Config) (http.Handler, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("routes: engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.ValidityThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	h := &handlers{
		engine:     cfg.Engine,
		history:    cfg.History,
		classifier: cfg.Classifier,
		passports:  cfg.Passports,
		threshold:  threshold,
		logger:     logger,
		metrics:    observability.Ledger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			if cfg.RateLimiter != nil {
				public.Use(cfg.RateLimiter.Middleware("submissions"))
			}
			public.Post("/submissions", h.handleSubmit)
		})
		api.Get("/stats", h.handleStats)
		api.Get("/preflight/{actor}", h.handlePreflight)
		api.Get("/passport/{actor}", h.handlePassport)
		api.Get("/cycles/{cycle}", h.handleCycleInfo)
		api.Get("/history/{actor}", h.handleHistory)

		api.Route("/admin", func(admin chi.Router) {
			if cfg.Authenticator != nil {
				admin.Use(cfg.Authenticator.Middleware("admin"))
			}
			admin.Post("/cycle", h.handleTriggerCycle)
			admin.Post("/budget", h.handleSetBudget)
			admin.Post("/cap", h.handleSetCap)
			admin.Post("/gate", h.handleSetGate)
			admin.Post("/withdraw", h.handleWithdraw)
		})
	})

	if cfg.Observability != nil {
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	return r, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErr(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
