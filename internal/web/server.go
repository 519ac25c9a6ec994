// Package web provides the HTTP API and the password reset pages of the
// ledger back office.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
	"github.com/JonMunkholm/ledger/internal/config"
	"github.com/JonMunkholm/ledger/internal/core"
	mw "github.com/JonMunkholm/ledger/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server is the HTTP server for the ledger API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	loc     *time.Location
	router  *chi.Mux
	server  *http.Server

	// stop ends the rate limiter eviction loops.
	stop context.CancelFunc
}

// NewServer creates a Server with every route registered.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	loc, err := cfg.Ledger.Location()
	if err != nil {
		loc = time.UTC
	}
	s := &Server{
		service: service,
		cfg:     cfg,
		loc:     loc,
		router:  chi.NewRouter(),
		stop:    func() {},
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

// rateLimit builds a per-IP limiter whose eviction loop ends on Shutdown.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	rl := mw.NewRateLimiter(perMinute, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	prev := s.stop
	s.stop = func() { prev(); cancel() }
	go rl.Run(ctx)
	return rl.Middleware(respondError)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	protect := mw.Protect(s.service, s.cfg.Security.CookieName, respondError)
	adminOnly := mw.Authorize(respondError, auth.RoleAdmin)

	// Password reset pages, opened from the emailed link
	s.router.Get("/reset-password", s.handleResetPasswordPage)
	s.router.Post("/reset-password", s.handleResetPasswordSubmit)

	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(protect)
				r.Get("/profile", s.handleGetProfile)
				r.Put("/profile", s.handleUpdateProfile)
				r.Put("/change-password", s.handleChangePassword)

				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					r.Get("/", s.handleListUsers)
					r.Post("/create", s.handleCreateUser)
					r.Patch("/{id}", s.handleUpdateUser)
					r.Delete("/{id}", s.handleDeleteUser)
				})
			})
		})

		r.Route("/pending-users", func(r chi.Router) {
			r.Post("/request", s.handleRequestRegistration)

			r.Group(func(r chi.Router) {
				r.Use(protect, adminOnly)
				r.Get("/", s.handlePendingRegistrations)
				r.Get("/all", s.handleAllRegistrations)
				r.Put("/{id}/approve", s.handleApproveRegistration)
				r.Put("/{id}/reject", s.handleRejectRegistration)
				r.Delete("/cleanup", s.handleCleanupRegistrations)
				r.Delete("/{id}", s.handleDeleteRegistration)
			})
		})

		r.Post("/auth/forgot-password", s.handleForgotPassword)

		r.Route("/client-data", func(r chi.Router) {
			r.Use(protect)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authorize(respondError, auth.UploadRoles...))
				if s.cfg.Rate.Enabled {
					r.Use(s.rateLimit(s.cfg.Rate.UploadLimit))
				}
				r.Post("/upload", s.handleUpload)
			})

			r.Get("/", s.handleListEntries)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/export.xlsx", s.handleExport)
			r.Get("/by-date", s.handleEntryByDate)
			r.With(adminOnly).Get("/upload-status", s.handleUploadQueueStatus)
			r.With(adminOnly).Delete("/{id}", s.handleDeleteEntry)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// The reset pages use inline styles only.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; form-action 'self'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
