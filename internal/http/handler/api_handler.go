package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ashmigelski/linkpulse/internal/app/model"
	"github.com/ashmigelski/linkpulse/internal/app/repository"
	"github.com/ashmigelski/linkpulse/internal/app/service"
	infraprometheus "github.com/ashmigelski/linkpulse/internal/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	Links       service.LinkService
	Analytics   service.AnalyticsService
	BaseURL     string
	CreateLimit []fiber.Handler
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger      *zap.Logger
	links       service.LinkService
	analytics   service.AnalyticsService
	baseURL     string
	createLimit []fiber.Handler
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		links:       deps.Links,
		analytics:   deps.Analytics,
		baseURL:     strings.TrimRight(deps.BaseURL, "/"),
		createLimit: deps.CreateLimit,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		handlers := append(h.createLimit, h.CreateLink)
		api.Post("/links", handlers...)
		api.Get("/links/:identifier", h.GetLink)
		api.Get("/analytics/:identifier", h.GetAnalytics)
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	URL       string `json:"url"`
	Alias     string `json:"alias,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// CreateLinkResponse represents the response for creating a link.
type CreateLinkResponse struct {
	Code         string `json:"code"`
	ShortURL     string `json:"short_url"`
	AnalyticsURL string `json:"analytics_url"`
}

// LinkMetadataResponse is the public view of one link.
type LinkMetadataResponse struct {
	DestinationURL string     `json:"destination_url"`
	Code           string     `json:"code"`
	ShortURL       string     `json:"short_url"`
	ClickCount     int64      `json:"click_count"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "expires_at must be an ISO-8601 timestamp",
			})
		}
		expiresAt = &parsed
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.links.CreateLink(ctx, service.CreateLinkInput{
		DestinationURL: req.URL,
		Alias:          req.Alias,
		ExpiresAt:      expiresAt,
	})
	switch {
	case service.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, repository.ErrAliasTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "this alias is already taken",
		})
	case errors.Is(err, repository.ErrCodeTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "this identifier is already taken",
		})
	case errors.Is(err, service.ErrCodeSpaceExhausted):
		h.logger.Error("code generation exhausted retries")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to allocate a short code",
		})
	case err != nil:
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create link",
		})
	}

	infraprometheus.LinksCreatedTotal.Inc()
	return c.Status(fiber.StatusCreated).JSON(CreateLinkResponse{
		Code:         link.Code,
		ShortURL:     h.shortURL(link),
		AnalyticsURL: h.baseURL + "/api/analytics/" + link.Identifier(),
	})
}

// GetLink handles GET /api/links/:identifier. It shares the resolution
// path's validation, so reading metadata of an expired link also performs
// the lazy active-to-inactive transition.
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	identifier := c.Params("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "identifier is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.links.Resolve(ctx, identifier)
	switch {
	case errors.Is(err, repository.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	case errors.Is(err, service.ErrLinkGone):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "link is inactive or has expired",
		})
	case err != nil:
		h.logger.Error("failed to load link", zap.Error(err), zap.String("identifier", identifier))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(h.metadata(link))
}

// AnalyticsResponse bundles link metadata with the event list and summary.
type AnalyticsResponse struct {
	LinkMetadataResponse
	Summary service.Summary        `json:"summary"`
	Events  []model.AnalyticsEvent `json:"events"`
}

// GetAnalytics handles GET /api/analytics/:identifier
func (h *APIHandler) GetAnalytics(c *fiber.Ctx) error {
	identifier := c.Params("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "identifier is required",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := h.analytics.LinkAnalytics(ctx, identifier)
	switch {
	case errors.Is(err, repository.ErrLinkNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "link not found",
		})
	case err != nil:
		h.logger.Error("failed to load analytics", zap.Error(err), zap.String("identifier", identifier))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(AnalyticsResponse{
		LinkMetadataResponse: h.metadata(result.Link),
		Summary:              result.Summary,
		Events:               result.Events,
	})
}

func (h *APIHandler) metadata(link *model.Link) LinkMetadataResponse {
	return LinkMetadataResponse{
		DestinationURL: link.Destination,
		Code:           link.Code,
		ShortURL:       h.shortURL(link),
		ClickCount:     link.ClickCount,
		CreatedAt:      link.CreatedAt,
		ExpiresAt:      link.ExpiresAt,
	}
}

func (h *APIHandler) shortURL(link *model.Link) string {
	return h.baseURL + "/" + link.Identifier()
}
