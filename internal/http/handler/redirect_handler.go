package handler

import (
	"context"
	"errors"

	"github.com/ashmigelski/linkpulse/internal/app/enrich"
	"github.com/ashmigelski/linkpulse/internal/app/model"
	"github.com/ashmigelski/linkpulse/internal/app/repository"
	"github.com/ashmigelski/linkpulse/internal/app/service"
	infraprometheus "github.com/ashmigelski/linkpulse/internal/infra/prometheus"
	"github.com/ashmigelski/linkpulse/internal/http/view"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the redirect handler.
type RedirectDeps struct {
	Logger  *zap.Logger
	Links   service.LinkService
	BaseURL string
}

// RedirectHandler resolves short identifiers and issues the redirect.
type RedirectHandler struct {
	logger  *zap.Logger
	links   service.LinkService
	baseURL string
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:  logger,
		links:   deps.Links,
		baseURL: deps.BaseURL,
	}
}

// Register wires the catch-all resolution route onto the provided router.
// Must be registered after every static route: "/:identifier" matches
// anything.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/:identifier", h.Resolve)
}

// Resolve handles GET /:identifier: lookup, validation, enrichment, counting,
// redirect. Analytics persistence is detached from the response: the
// redirect never waits on it and never fails because of it.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	identifier := c.Params("identifier")
	if identifier == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing link identifier",
		})
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.links.Resolve(ctx, identifier)
	switch {
	case errors.Is(err, repository.ErrLinkNotFound):
		infraprometheus.RedirectsTotal.WithLabelValues("not_found").Inc()
		return h.renderNotFound(c, identifier)
	case errors.Is(err, service.ErrLinkGone):
		infraprometheus.RedirectsTotal.WithLabelValues("gone").Inc()
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "link is inactive or has expired",
		})
	case err != nil:
		infraprometheus.RedirectsTotal.WithLabelValues("error").Inc()
		h.logger.Error("failed to resolve link", zap.Error(err), zap.String("identifier", identifier))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	sig := enrich.FromRequest(enrich.RawRequest{
		UserAgent: c.Get("User-Agent"),
		Referrer:  c.Get("Referer"),
		IP:        c.IP(),
		Language:  c.Get("Accept-Language"),
		Protocol:  c.Protocol(),
	})

	go h.recordClick(link, sig)

	infraprometheus.RedirectsTotal.WithLabelValues("redirected").Inc()
	h.logger.Debug("redirecting short link",
		zap.String("identifier", identifier),
		zap.String("target", link.Destination))
	return c.Redirect(link.Destination, fiber.StatusMovedPermanently)
}

// recordClick runs detached with a background context so a started increment
// completes even when the client has already gone away.
func (h *RedirectHandler) recordClick(link *model.Link, sig enrich.Signal) {
	if err := h.links.RecordClick(context.Background(), link, sig); err != nil {
		h.logger.Error("failed to record click",
			zap.Error(err),
			zap.String("link_id", link.ID),
			zap.String("code", link.Code))
	}
}

func (h *RedirectHandler) renderNotFound(c *fiber.Ctx, identifier string) error {
	html, err := view.RenderNotFoundPage(view.NotFoundPageData{
		Identifier: identifier,
		HomeURL:    h.baseURL,
	})
	if err != nil {
		h.logger.Error("failed to render not-found page", zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "short link not found",
		})
	}
	return c.Status(fiber.StatusNotFound).
		Type("html", "utf-8").
		SendString(html)
}
