package server

import (
	"context"
	"time"

	"github.com/ashmigelski/linkpulse/internal/app/service"
	inthttp "github.com/ashmigelski/linkpulse/internal/http/handler"
	"github.com/ashmigelski/linkpulse/internal/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server needs.
type Dependencies struct {
	Logger    *zap.Logger
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	Links     service.LinkService
	Analytics service.AnalyticsService
	BaseURL   string

	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())

	healthHandler := inthttp.NewHealthHandler(inthttp.HealthDeps{
		Postgres: s.deps.Postgres,
		Redis:    s.deps.Redis,
	})
	healthHandler.Register(s.app)

	limiter := service.NewRateLimiter(s.deps.Redis, s.deps.Logger)
	limitCfg := middleware.DefaultRateLimitConfig()
	if s.deps.RateLimitMaxRequests > 0 {
		limitCfg.MaxRequests = s.deps.RateLimitMaxRequests
	}
	if s.deps.RateLimitWindow > 0 {
		limitCfg.Window = s.deps.RateLimitWindow
	}

	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		Links:       s.deps.Links,
		Analytics:   s.deps.Analytics,
		BaseURL:     s.deps.BaseURL,
		CreateLimit: []fiber.Handler{middleware.RateLimit(limiter, limitCfg)},
	})
	apiHandler.Register(s.app)

	// Catch-all resolution route goes last.
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:  s.deps.Logger,
		Links:   s.deps.Links,
		BaseURL: s.deps.BaseURL,
	})
	redirectHandler.Register(s.app)
}
