package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const healthProbeTimeout = 2 * time.Second

// HealthDeps groups the infrastructure the health endpoint probes.
type HealthDeps struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
}

// HealthHandler reports liveness of the service and its stores.
type HealthHandler struct {
	deps HealthDeps
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Register wires the service-info and health routes. Registered before the
// redirect catch-all so their paths stay reserved.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/", h.Info)
	router.Get("/health", h.Health)
}

// Info is a simple root endpoint so we know the service is running.
func (h *HealthHandler) Info(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "linkpulse",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Health pings the durable stores and reports per-dependency status.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	parent := c.UserContext()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, healthProbeTimeout)
	defer cancel()

	status := fiber.StatusOK
	checks := fiber.Map{}

	if h.deps.Postgres != nil {
		if err := h.deps.Postgres.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			status = fiber.StatusServiceUnavailable
		} else {
			checks["postgres"] = "ok"
		}
	}

	if h.deps.Redis != nil {
		if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = fiber.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"status": map[bool]string{true: "ok", false: "degraded"}[status == fiber.StatusOK],
		"checks": checks,
	})
}
