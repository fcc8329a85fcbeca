// Package httpapi exposes the herd service over HTTP using chi.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"

	"herdcore/internal/core"
)

// Options configures the router.
type Options struct {
	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
	// DefaultHorizonDays is used by /forecast/calvings without ?horizon.
	DefaultHorizonDays int
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc *core.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultHorizonDays <= 0 {
		opts.DefaultHorizonDays = 30
	}
	h := &handlers{svc: svc, defaultHorizon: opts.DefaultHorizonDays}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
		Level:             slog.LevelInfo,
		Schema:            httplog.SchemaECS.Concise(true),
		LogRequestHeaders: []string{TenantHeader},
	}))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(requireTenant)

		r.Route("/animals", func(r chi.Router) {
			r.Post("/", h.createAnimal)
			r.Post("/young", h.registerYoung)
			r.Get("/", h.listAnimals)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getAnimal)
				r.Patch("/", h.updateAnimal)
				r.Delete("/", h.retireAnimal)
				r.Post("/insemination", h.recordInsemination)
				r.Delete("/insemination", h.clearInsemination)
				r.Post("/pregnancy-status", h.setPregnancyStatus)
				r.Post("/calving", h.recordCalving)
				r.Post("/maturity", h.mature)
				r.Post("/dry-period", h.startDryPeriod)
				r.Get("/forecast", h.forecastCalving)
			})
		})
		r.Post("/maturity/sweep", h.matureDue)

		r.Route("/forecast", func(r chi.Router) {
			r.Get("/calvings", h.upcomingCalvings)
			r.Get("/pending-checks", h.pendingChecks)
			r.Get("/maturity", h.dueForMaturity)
		})

		r.Route("/timeline", func(r chi.Router) {
			r.Delete("/events/{eventID}", h.removeEvent)
			r.Get("/{id}", h.listTimeline)
			r.Post("/{id}/events", h.appendEvent)
		})

		r.Get("/archive/{id}", h.archivedRecord)
	})
	return r
}

// Server wraps http.Server with logging around start and shutdown.
type Server struct {
	httpServer *http.Server
	logger     core.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler http.Handler, logger core.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	s.logger.Error("http server error", "error", err)
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return err
	}
	return nil
}
