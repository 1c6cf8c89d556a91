package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashmigelski/linkpulse/internal/app/enrich"
	"github.com/ashmigelski/linkpulse/internal/app/model"
	"github.com/ashmigelski/linkpulse/internal/app/repository"
)

type mockLinkRepository struct {
	createFn     func(ctx context.Context, link *model.Link) error
	findFn       func(ctx context.Context, identifier string) (*model.Link, error)
	incrementFn  func(ctx context.Context, id string) error
	deactivateFn func(ctx context.Context, id string) error
	codesFn      func(ctx context.Context) ([]string, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) FindByCodeOrAlias(ctx context.Context, identifier string) (*model.Link, error) {
	if m.findFn != nil {
		return m.findFn(ctx, identifier)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) IncrementClicks(ctx context.Context, id string) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, id)
	}
	return nil
}

func (m *mockLinkRepository) Deactivate(ctx context.Context, id string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, id)
	}
	return nil
}

func (m *mockLinkRepository) Codes(ctx context.Context) ([]string, error) {
	if m.codesFn != nil {
		return m.codesFn(ctx)
	}
	return nil, nil
}

type mockPublisher struct {
	events []*model.AnalyticsEvent
	err    error
}

func (m *mockPublisher) Publish(event *model.AnalyticsEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func TestLinkService_CreateLink(t *testing.T) {
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			if link.ID == "" {
				t.Fatal("expected id to be set")
			}
			if len(link.Code) != 6 {
				t.Fatalf("expected 6-char code, got %q", link.Code)
			}
			if link.Status != model.StatusActive {
				t.Fatalf("expected active status, got %q", link.Status)
			}
			return nil
		},
	}

	svc := NewLinkService(repo, nil)
	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		DestinationURL: "https://example.com/page",
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if link.Alias != nil {
		t.Fatal("expected no alias")
	}
}

func TestLinkService_CreateLink_ValidatesDestination(t *testing.T) {
	svc := NewLinkService(&mockLinkRepository{}, nil)

	for _, raw := range []string{"", "not a url", "example.com/no-scheme", "https://"} {
		_, err := svc.CreateLink(context.Background(), CreateLinkInput{DestinationURL: raw})
		if !IsValidation(err) {
			t.Errorf("destination %q: expected validation error, got %v", raw, err)
		}
	}
}

func TestLinkService_CreateLink_ValidatesAlias(t *testing.T) {
	svc := NewLinkService(&mockLinkRepository{}, nil)

	cases := []struct {
		alias string
		ok    bool
	}{
		{"ab", false},              // too short
		{"abc", true},              // minimum length
		{"my-link_1", true},        // full character set
		{"has space", false},       // pattern violation
		{"admin", false},           // reserved
		{"ADMIN", false},           // reserved, case-insensitive
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false}, // 33 chars
	}
	for _, tc := range cases {
		_, err := svc.CreateLink(context.Background(), CreateLinkInput{
			DestinationURL: "https://example.com",
			Alias:          tc.alias,
		})
		if tc.ok && err != nil {
			t.Errorf("alias %q: unexpected error %v", tc.alias, err)
		}
		if !tc.ok && !IsValidation(err) {
			t.Errorf("alias %q: expected validation error, got %v", tc.alias, err)
		}
	}
}

func TestLinkService_CreateLink_RetriesOnCodeCollision(t *testing.T) {
	var attempts int
	var codes []string
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			attempts++
			codes = append(codes, link.Code)
			if attempts < 3 {
				return repository.ErrCodeTaken
			}
			return nil
		},
	}

	svc := NewLinkService(repo, nil)
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		DestinationURL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if codes[0] == codes[1] && codes[1] == codes[2] {
		t.Fatal("expected a fresh code on each retry")
	}
}

func TestLinkService_CreateLink_AliasBecomesCode(t *testing.T) {
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			if link.Code != "my-link" {
				t.Fatalf("alias must be stored as the code, got %q", link.Code)
			}
			return nil
		},
	}

	svc := NewLinkService(repo, nil)
	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		DestinationURL: "https://example.com",
		Alias:          "my-link",
	})
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if link.Code != "my-link" || link.Identifier() != "my-link" {
		t.Fatalf("unexpected link %+v", link)
	}
}

func TestLinkService_CreateLink_AliasCannotShadowExistingCode(t *testing.T) {
	// One link already holds the code abc123. An alias with the same value
	// lands in the same unique column, so the insert must conflict instead
	// of creating a second link reachable by the same identifier.
	taken := map[string]bool{"abc123": true}
	var attempts int
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			attempts++
			if taken[link.Code] {
				return repository.ErrCodeTaken
			}
			taken[link.Code] = true
			return nil
		},
	}

	svc := NewLinkService(repo, nil)
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		DestinationURL: "https://example.com",
		Alias:          "abc123",
	})
	if !errors.Is(err, repository.ErrAliasTaken) {
		t.Fatalf("expected ErrAliasTaken, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("an occupied alias must not retry, got %d attempts", attempts)
	}
}

func TestLinkService_CreateLink_AliasConflictIsTerminal(t *testing.T) {
	var attempts int
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			attempts++
			return repository.ErrAliasTaken
		},
	}

	svc := NewLinkService(repo, nil)
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		DestinationURL: "https://example.com",
		Alias:          "my-link",
	})
	if !errors.Is(err, repository.ErrAliasTaken) {
		t.Fatalf("expected ErrAliasTaken, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("alias conflicts must not retry, got %d attempts", attempts)
	}
}

func TestLinkService_CreateLink_ExhaustsRetries(t *testing.T) {
	var attempts int
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			attempts++
			return repository.ErrCodeTaken
		},
	}

	svc := NewLinkService(repo, nil)
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{
		DestinationURL: "https://example.com",
	})
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
	if attempts != maxCodeAttempts {
		t.Fatalf("expected %d attempts, got %d", maxCodeAttempts, attempts)
	}
}

func TestLinkService_Resolve_NotFound(t *testing.T) {
	svc := NewLinkService(&mockLinkRepository{}, nil)

	_, err := svc.Resolve(context.Background(), "missing")
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestLinkService_Resolve_Inactive(t *testing.T) {
	repo := &mockLinkRepository{
		findFn: func(ctx context.Context, identifier string) (*model.Link, error) {
			return &model.Link{ID: "1", Code: identifier, Status: model.StatusInactive}, nil
		},
	}

	svc := NewLinkService(repo, nil)
	_, err := svc.Resolve(context.Background(), "abc123")
	if !errors.Is(err, ErrLinkGone) {
		t.Fatalf("expected ErrLinkGone, got %v", err)
	}
}

func TestLinkService_Resolve_ExpiredTransitionsOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)
	status := model.StatusActive

	var deactivations int
	repo := &mockLinkRepository{
		findFn: func(ctx context.Context, identifier string) (*model.Link, error) {
			return &model.Link{ID: "1", Code: identifier, Status: status, ExpiresAt: &expired}, nil
		},
		deactivateFn: func(ctx context.Context, id string) error {
			deactivations++
			status = model.StatusInactive
			return nil
		},
	}

	svc := NewLinkService(repo, nil).(*linkService)
	svc.now = func() time.Time { return now }

	// First resolution after expiry: persists the transition, returns gone.
	if _, err := svc.Resolve(context.Background(), "abc123"); !errors.Is(err, ErrLinkGone) {
		t.Fatalf("expected ErrLinkGone, got %v", err)
	}
	if deactivations != 1 {
		t.Fatalf("expected one deactivation, got %d", deactivations)
	}

	// Second resolution: already inactive, no further transition.
	if _, err := svc.Resolve(context.Background(), "abc123"); !errors.Is(err, ErrLinkGone) {
		t.Fatalf("expected ErrLinkGone, got %v", err)
	}
	if deactivations != 1 {
		t.Fatalf("transition must be idempotent, got %d deactivations", deactivations)
	}
}

func TestLinkService_Resolve_ActiveWithFutureExpiry(t *testing.T) {
	future := time.Now().Add(time.Hour)
	repo := &mockLinkRepository{
		findFn: func(ctx context.Context, identifier string) (*model.Link, error) {
			return &model.Link{ID: "1", Code: identifier, Status: model.StatusActive, ExpiresAt: &future, Destination: "https://example.com"}, nil
		},
	}

	svc := NewLinkService(repo, nil)
	link, err := svc.Resolve(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if link.Destination != "https://example.com" {
		t.Fatalf("unexpected destination %q", link.Destination)
	}
}

func TestLinkService_RecordClick(t *testing.T) {
	var increments int
	repo := &mockLinkRepository{
		incrementFn: func(ctx context.Context, id string) error {
			increments++
			if id != "link-1" {
				t.Fatalf("unexpected link id %q", id)
			}
			return nil
		},
	}
	pub := &mockPublisher{}

	svc := NewLinkService(repo, pub)
	err := svc.RecordClick(context.Background(), &model.Link{ID: "link-1"}, enrich.Signal{
		Device:         "mobile",
		ReferrerDomain: "t.co",
		IsBot:          false,
	})
	if err != nil {
		t.Fatalf("RecordClick returned error: %v", err)
	}
	if increments != 1 {
		t.Fatalf("expected one increment, got %d", increments)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event published, got %d", len(pub.events))
	}
	event := pub.events[0]
	if event.LinkID != "link-1" || event.Device != "mobile" || event.ReferrerDomain != "t.co" {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.ID == "" || event.Timestamp.IsZero() {
		t.Fatal("expected id and timestamp to be assigned")
	}
}

type countingPublisher struct {
	published int64
}

func (p *countingPublisher) Publish(event *model.AnalyticsEvent) error {
	atomic.AddInt64(&p.published, 1)
	return nil
}

func TestLinkService_RecordClick_Concurrent(t *testing.T) {
	const n = 50

	var increments int64
	repo := &mockLinkRepository{
		incrementFn: func(ctx context.Context, id string) error {
			atomic.AddInt64(&increments, 1)
			return nil
		},
	}
	pub := &countingPublisher{}

	svc := NewLinkService(repo, pub)
	link := &model.Link{ID: "link-1", Code: "abc123"}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.RecordClick(context.Background(), link, enrich.Signal{}); err != nil {
				t.Errorf("RecordClick returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&increments); got != n {
		t.Fatalf("expected exactly %d increments, got %d", n, got)
	}
	if got := atomic.LoadInt64(&pub.published); got != n {
		t.Fatalf("expected exactly %d published events, got %d", n, got)
	}
}

func TestLinkService_RecordClick_PublishFailureStillIncrements(t *testing.T) {
	var increments int
	repo := &mockLinkRepository{
		incrementFn: func(ctx context.Context, id string) error {
			increments++
			return nil
		},
	}
	pub := &mockPublisher{err: errors.New("stream unavailable")}

	svc := NewLinkService(repo, pub)
	err := svc.RecordClick(context.Background(), &model.Link{ID: "link-1"}, enrich.Signal{})
	if err == nil {
		t.Fatal("expected the publish failure to be reported")
	}
	if increments != 1 {
		t.Fatalf("increment must still happen, got %d", increments)
	}
}

func TestLinkService_WarmCodeFilter(t *testing.T) {
	repo := &mockLinkRepository{
		codesFn: func(ctx context.Context) ([]string, error) {
			return []string{"abc123", "def456"}, nil
		},
	}

	svc := NewLinkService(repo, nil).(*linkService)
	if err := svc.WarmCodeFilter(context.Background()); err != nil {
		t.Fatalf("WarmCodeFilter returned error: %v", err)
	}
	if !svc.seen.TestString("abc123") || !svc.seen.TestString("def456") {
		t.Fatal("expected warmed codes to be present in the filter")
	}
}
