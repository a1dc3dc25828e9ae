package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayushnagarcodes/natours/internal/domain"
	"github.com/ayushnagarcodes/natours/internal/service"
	"github.com/ayushnagarcodes/natours/pkg/health"
	"github.com/ayushnagarcodes/natours/pkg/middleware"
)

// RouterConfig carries the knobs the router needs beyond its handlers.
type RouterConfig struct {
	Environment    string
	AllowedOrigins []string
	SessionTTL     time.Duration
}

// NewRouter creates a chi router with all accounts routes registered.
func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(CORSConfig{AllowedOrigins: cfg.AllowedOrigins, Environment: cfg.Environment}))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("accounts"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	rp := newResponder(logger, cfg.Environment, cfg.SessionTTL)
	authHandler := NewAuthHandler(authService, rp, logger)
	userHandler := NewUserHandler(userService, rp, logger)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public credential endpoints
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Patch("/reset-password/{token}", authHandler.ResetPassword)

		// Everything below requires a live session
		r.Group(func(r chi.Router) {
			r.Use(Protect(authService, rp))

			r.Patch("/update-password", authHandler.UpdatePassword)
			r.Patch("/update-me", userHandler.UpdateMe)
			r.Delete("/delete-me", userHandler.DeleteMe)

			r.With(RestrictTo(rp, domain.RoleAdmin)).Get("/", userHandler.List)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, response{
			Status:  statusFail,
			Message: "can't find " + r.URL.Path + " on this server",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, response{
			Status:  statusFail,
			Message: r.Method + " is not allowed on " + r.URL.Path,
		})
	})

	return r
}
