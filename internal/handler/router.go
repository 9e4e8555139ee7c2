package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IdkwhatImD0ing/PortfolioV3/internal/middleware"
	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

// RouterConfig holds everything the HTTP surface is assembled from.
type RouterConfig struct {
	Health  *HealthHandler
	Stream  *StreamHandler
	Sockets *SocketHandler
	Admin   *AdminHandler

	WSPath            string
	AllowedOrigins    []string
	AdminJWTSecret    string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	Logger            *logger.Logger
}

// NewRouter builds the chi router serving every endpoint.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/ping", cfg.Health.Ping)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).Post("/chat", cfg.Stream.Chat)

	r.Get("/"+cfg.WSPath+"/{call_id}", cfg.Sockets.Voice)
	r.Get("/frontend/{client_id}", cfg.Sockets.Frontend)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.AdminJWTSecret))
		r.With(middleware.RequireScope(middleware.ScopeSessionsRead)).Get("/sessions", cfg.Admin.Sessions)
		r.With(middleware.RequireScope(middleware.ScopeFrontendsWrite)).Post("/broadcast", cfg.Admin.Broadcast)
	})

	return r
}
