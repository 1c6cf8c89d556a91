package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/ashmigelski/linkpulse/internal/app/enrich"
	"github.com/ashmigelski/linkpulse/internal/app/model"
	"github.com/ashmigelski/linkpulse/internal/app/repository"
	"github.com/ashmigelski/linkpulse/internal/app/shortcode"
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
)

var (
	// ErrLinkGone signals an inactive or expired link (HTTP 410 semantics).
	ErrLinkGone = errors.New("link gone")
	// ErrCodeSpaceExhausted signals that code generation kept colliding past
	// the retry bound. At 62^6 combinations this means pathological store
	// contention, not a full namespace.
	ErrCodeSpaceExhausted = errors.New("code space exhausted")
)

// maxCodeAttempts bounds the generate-insert-retry loop on code collisions.
const maxCodeAttempts = 5

// ValidationError marks user-correctable input problems on the create path.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// clickPublisher is the outbound port for the analytics pipeline.
type clickPublisher interface {
	Publish(event *model.AnalyticsEvent) error
}

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	Resolve(ctx context.Context, identifier string) (*model.Link, error)
	RecordClick(ctx context.Context, link *model.Link, sig enrich.Signal) error
	WarmCodeFilter(ctx context.Context) error
}

type linkService struct {
	repo      repository.LinkRepository
	publisher clickPublisher
	now       func() time.Time

	// seen is an advisory prefilter over issued codes. It only skips
	// candidates that are probably taken; the store's unique constraint
	// remains the sole correctness guard.
	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// NewLinkService returns a service implementation backed by the given
// repository. publisher may be nil, in which case clicks are counted but no
// analytics events are emitted.
func NewLinkService(repo repository.LinkRepository, publisher clickPublisher) LinkService {
	return &linkService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		seen:      bloom.NewWithEstimates(1_000_000, 0.001),
	}
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	DestinationURL string
	Alias          string
	ExpiresAt      *time.Time
}

// CreateLink validates the input, issues a code and inserts the link,
// retrying on code collisions up to maxCodeAttempts. A collision on a
// caller-supplied alias is terminal: the caller's wish is never silently
// replaced.
func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	if err := validateDestination(input.DestinationURL); err != nil {
		return nil, err
	}

	var alias *string
	if input.Alias != "" {
		if err := validateAlias(input.Alias); err != nil {
			return nil, err
		}
		alias = &input.Alias
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		// An alias is stored as the code itself, so codes and aliases share
		// one unique namespace and one lookup never matches two links.
		var code string
		if alias != nil {
			code = *alias
		} else {
			code = s.nextCode()
		}

		link := &model.Link{
			ID:          uuid.NewString(),
			Destination: input.DestinationURL,
			Code:        code,
			Alias:       alias,
			Status:      model.StatusActive,
			ExpiresAt:   input.ExpiresAt,
		}

		err := s.repo.Create(ctx, link)
		switch {
		case err == nil:
			s.rememberCode(link.Code)
			return link, nil
		case errors.Is(err, repository.ErrAliasTaken):
			return nil, err
		case errors.Is(err, repository.ErrCodeTaken):
			if alias != nil {
				// The alias collided with an existing identifier. The
				// caller's wish is never silently replaced.
				return nil, repository.ErrAliasTaken
			}
			// Someone else owns this code; remember it and draw again.
			s.rememberCode(link.Code)
		default:
			return nil, fmt.Errorf("create link: %w", err)
		}
	}

	return nil, ErrCodeSpaceExhausted
}

// Resolve walks the lookup/validation half of the redirect state machine.
// Expiry is enforced here and only here: a link past its expiry transitions
// to inactive on its next lookup, never by a background sweep.
func (s *linkService) Resolve(ctx context.Context, identifier string) (*model.Link, error) {
	link, err := s.repo.FindByCodeOrAlias(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve link: %w", err)
	}

	if link.Status == model.StatusInactive {
		return nil, ErrLinkGone
	}

	if link.Expired(s.now()) {
		if err := s.repo.Deactivate(ctx, link.ID); err != nil {
			return nil, fmt.Errorf("deactivate expired link: %w", err)
		}
		return nil, ErrLinkGone
	}

	return link, nil
}

// RecordClick counts a successful resolution: one atomic counter increment
// and one analytics event. Both are attempted independently; a failure of
// either is reported to the caller for logging but must never have blocked
// the redirect that triggered it.
func (s *linkService) RecordClick(ctx context.Context, link *model.Link, sig enrich.Signal) error {
	incrErr := s.repo.IncrementClicks(ctx, link.ID)

	var pubErr error
	if s.publisher != nil {
		pubErr = s.publisher.Publish(&model.AnalyticsEvent{
			ID:             uuid.NewString(),
			LinkID:         link.ID,
			Timestamp:      s.now(),
			Device:         sig.Device,
			BrowserName:    sig.BrowserName,
			BrowserVersion: sig.BrowserVersion,
			OSName:         sig.OSName,
			OSVersion:      sig.OSVersion,
			IsBot:          sig.IsBot,
			ReferrerRaw:    sig.ReferrerRaw,
			ReferrerDomain: sig.ReferrerDomain,
			UTMSource:      sig.UTM.Source,
			UTMMedium:      sig.UTM.Medium,
			UTMCampaign:    sig.UTM.Campaign,
			UTMTerm:        sig.UTM.Term,
			UTMContent:     sig.UTM.Content,
			IPAddress:      sig.IPAddress,
			Language:       sig.Language,
			Protocol:       sig.Protocol,
		})
	}

	return errors.Join(incrErr, pubErr)
}

// WarmCodeFilter seeds the collision prefilter with every code already
// issued. Meant to run once at startup.
func (s *linkService) WarmCodeFilter(ctx context.Context) error {
	codes, err := s.repo.Codes(ctx)
	if err != nil {
		return fmt.Errorf("warm code filter: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		s.seen.AddString(code)
	}
	return nil
}

// nextCode draws candidates until one clears the prefilter. The bound keeps
// a saturated filter from spinning; the store still decides.
func (s *linkService) nextCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := shortcode.Generate()
	for i := 0; i < 16 && s.seen.TestString(code); i++ {
		code = shortcode.Generate()
	}
	return code
}

func (s *linkService) rememberCode(code string) {
	s.mu.Lock()
	s.seen.AddString(code)
	s.mu.Unlock()
}

func validateDestination(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Reason: "destination URL is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "url", Reason: "must be a well-formed absolute URL"}
	}
	return nil
}

func validateAlias(alias string) error {
	if !aliasPattern.MatchString(alias) {
		return &ValidationError{
			Field:  "alias",
			Reason: "must be 3-32 characters of letters, numbers, hyphens and underscores",
		}
	}
	if shortcode.IsReserved(alias) {
		return &ValidationError{Field: "alias", Reason: "this alias is reserved"}
	}
	return nil
}
