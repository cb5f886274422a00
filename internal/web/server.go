// Package web is the HTTP surface of the importer: uploads, the progress
// stream, product and webhook management, and health.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/config"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/web/middleware"
)

// HealthCheck is one dependency probed by GET /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server is the HTTP server for the importer API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	checks  []HealthCheck
	router  *chi.Mux
	server  *http.Server

	// closing is cancelled by Shutdown so open progress streams end instead
	// of holding the server open until the shutdown deadline.
	closing    context.Context
	stopStream context.CancelFunc
}

// NewServer wires routes and middleware around service.
func NewServer(service *core.Service, cfg *config.Config, checks ...HealthCheck) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		checks:  checks,
		router:  chi.NewRouter(),
	}
	s.closing, s.stopStream = context.WithCancel(context.Background())
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.SecurityHeaders)
	s.router.Use(middleware.CORS(s.cfg.Server.CORSOrigins))
	s.router.Use(withClientIP)

	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
	}

	s.router.Use(middleware.APIKeyAuth(s.cfg.Security))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Uploads carry their own tighter limit on top of the global one.
		upload := r.With()
		if s.cfg.Rate.Enabled && s.cfg.Rate.UploadLimit > 0 {
			upload = r.With(middleware.NewRateLimiter(s.cfg.Rate.UploadLimit).Middleware)
		}
		upload.Post("/upload", s.handleUpload)

		r.Get("/progress/{task_id}", s.handleProgress)
		r.Get("/jobs/{task_id}", s.handleJobStatus)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.handleListProducts)
			r.Post("/", s.handleCreateProduct)
			r.Delete("/", s.handleDeleteAllProducts)
			r.Get("/{id}", s.handleGetProduct)
			r.Put("/{id}", s.handleUpdateProduct)
			r.Delete("/{id}", s.handleDeleteProduct)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", s.handleListWebhooks)
			r.Post("/", s.handleCreateWebhook)
			r.Get("/{id}", s.handleGetWebhook)
			r.Put("/{id}", s.handleUpdateWebhook)
			r.Delete("/{id}", s.handleDeleteWebhook)
			r.Post("/{id}/test", s.handleTestWebhook)
		})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown ends open progress streams and then gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopStream()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v with the given status. Encoding errors are logged
// since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
