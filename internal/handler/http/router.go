package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olivethotokunefor/Mentora/internal/auth"
	"github.com/olivethotokunefor/Mentora/internal/service"
	"github.com/olivethotokunefor/Mentora/pkg/health"
	"github.com/olivethotokunefor/Mentora/pkg/middleware"
)

// RouterConfig bundles the knobs the router needs beyond its dependencies.
type RouterConfig struct {
	CORS             CORSConfig
	Cookie           CookieSettings
	AuthRateLimitRPS float64
	AuthRateBurst    int
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	sessionService *service.SessionService,
	tokenManager *auth.TokenManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("mentora"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to the internal token manager.
	tokenValidator := func(token string) (*middleware.Identity, error) {
		claims, err := tokenManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Identity{
			UserID: claims.Subject,
			Email:  claims.Email,
		}, nil
	}

	authHandler := NewAuthHandler(sessionService, cfg.Cookie, logger)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.RateLimit(cfg.AuthRateLimitRPS, cfg.AuthRateBurst, logger))

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Get("/me", authHandler.Me)
		})
	})

	// Profile endpoints (auth required)
	profileHandler := NewProfileHandler(sessionService, logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/me", profileHandler.GetProfile)
		r.Put("/me", profileHandler.UpdateProfile)
	})

	return r
}
