package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashmigelski/linkpulse/internal/app/enrich"
	"github.com/ashmigelski/linkpulse/internal/app/model"
	"github.com/ashmigelski/linkpulse/internal/app/repository"
	"github.com/ashmigelski/linkpulse/internal/app/service"
	"github.com/gofiber/fiber/v2"
)

type mockLinkService struct {
	createFn  func(ctx context.Context, input service.CreateLinkInput) (*model.Link, error)
	resolveFn func(ctx context.Context, identifier string) (*model.Link, error)
	clicks    chan enrich.Signal
}

func (m *mockLinkService) CreateLink(ctx context.Context, input service.CreateLinkInput) (*model.Link, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input)
	}
	return nil, nil
}

func (m *mockLinkService) Resolve(ctx context.Context, identifier string) (*model.Link, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, identifier)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkService) RecordClick(ctx context.Context, link *model.Link, sig enrich.Signal) error {
	if m.clicks != nil {
		m.clicks <- sig
	}
	return nil
}

func (m *mockLinkService) WarmCodeFilter(ctx context.Context) error { return nil }

func newRedirectApp(links service.LinkService) *fiber.App {
	app := fiber.New()
	NewRedirectHandler(RedirectDeps{Links: links, BaseURL: "http://short.test"}).Register(app)
	return app
}

func TestRedirectHandler_Redirects(t *testing.T) {
	links := &mockLinkService{
		resolveFn: func(ctx context.Context, identifier string) (*model.Link, error) {
			if identifier != "abc123" {
				t.Fatalf("unexpected identifier %q", identifier)
			}
			return &model.Link{ID: "1", Code: "abc123", Destination: "https://example.com/page"}, nil
		},
		clicks: make(chan enrich.Signal, 1),
	}
	app := newRedirectApp(links)

	req := httptest.NewRequest("GET", "/abc123", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1")
	req.Header.Set("Referer", "https://t.co/xyz?utm_source=social")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/page" {
		t.Fatalf("unexpected Location %q", loc)
	}

	// Click accounting is detached from the response; give it a moment.
	select {
	case sig := <-links.clicks:
		if sig.Device != "mobile" {
			t.Errorf("expected mobile signal, got %q", sig.Device)
		}
		if sig.ReferrerDomain != "t.co" || sig.UTM.Source != "social" {
			t.Errorf("unexpected signal %+v", sig)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a recorded click")
	}
}

func TestRedirectHandler_NotFoundRendersPage(t *testing.T) {
	app := newRedirectApp(&mockLinkService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("expected an HTML page, got %q", ct)
	}
}

func TestRedirectHandler_Gone(t *testing.T) {
	links := &mockLinkService{
		resolveFn: func(ctx context.Context, identifier string) (*model.Link, error) {
			return nil, service.ErrLinkGone
		},
	}
	app := newRedirectApp(links)

	resp, err := app.Test(httptest.NewRequest("GET", "/expired", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusGone {
		t.Fatalf("expected 410, got %d", resp.StatusCode)
	}
}
