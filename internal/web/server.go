// Package web serves the run-control HTTP API: trigger a run, read the
// latest result, download report artifacts and scrape Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/JonMunkholm/talentmetrics/internal/config"
	"github.com/JonMunkholm/talentmetrics/internal/core"
	"github.com/JonMunkholm/talentmetrics/internal/pipeline"
	"github.com/JonMunkholm/talentmetrics/internal/report"
	mw "github.com/JonMunkholm/talentmetrics/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner is the part of pipeline.Runner the server drives.
type Runner interface {
	Run(ctx context.Context) (pipeline.RunResult, error)
	Latest() (pipeline.RunResult, error)
	Limiter() *core.RunLimiter
	ReportDir() string
}

// Server is the HTTP server.
type Server struct {
	runner Runner
	cfg    config.ServerConfig
	router *chi.Mux
	server *http.Server
}

// NewServer creates a server. reg receives the HTTP collectors and gatherer
// backs /metrics; nil uses the Prometheus defaults.
func NewServer(runner Runner, cfg config.ServerConfig, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		runner: runner,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware(reg)
	s.setupRoutes(gatherer)
	return s
}

func (s *Server) setupMiddleware(reg prometheus.Registerer) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.Logger)
	s.router.Use(mw.Metrics(reg))
	s.router.Use(middleware.Recoverer)
	if s.cfg.RunTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RunTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleRun)
		r.Get("/runs/latest", s.handleLatest)
		r.Get("/reports/{name}", s.handleReport)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.cfg.Addr(),
		Handler:     s.router,
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: s.cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for an active run to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.runner.Limiter().WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

type healthResponse struct {
	Status string                `json:"status"`
	Runs   core.RunLimiterStatus `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Runs: s.runner.Limiter().Status()})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.Run(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.Latest()
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	a, err := report.Lookup(s.runner.ReportDir(), chi.URLParam(r, "name"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	f, err := os.Open(a.Path)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.Name+`"`)
	http.ServeContent(w, r, a.Name, info.ModTime(), f)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as the response body.
// Encoding errors are only logged since the status is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
