package repository

import (
	"context"
	"errors"

	"github.com/ashmigelski/linkpulse/internal/app/model"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrCodeTaken signals a unique-constraint violation on the generated code.
	ErrCodeTaken = errors.New("code already taken")
	// ErrAliasTaken signals a unique-constraint violation on the custom alias.
	ErrAliasTaken = errors.New("alias already taken")
)

const pgUniqueViolation = "23505"

// LinkRepository defines the data access contract for short links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	FindByCodeOrAlias(ctx context.Context, identifier string) (*model.Link, error)
	IncrementClicks(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
	Codes(ctx context.Context) ([]string, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts the link and relies on the store's unique constraints as the
// only authoritative collision check. A violation surfaces as ErrCodeTaken or
// ErrAliasTaken depending on which index fired.
func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return translateConflict(err)
	}
	return nil
}

func translateConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case "idx_links_alias":
			return ErrAliasTaken
		case "idx_links_code":
			return ErrCodeTaken
		}
		return ErrCodeTaken
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCodeTaken
	}
	return err
}

// FindByCodeOrAlias resolves an inbound path segment against either the
// generated code or the custom alias.
func (r *linkRepository) FindByCodeOrAlias(ctx context.Context, identifier string) (*model.Link, error) {
	var link model.Link
	err := r.db.WithContext(ctx).
		Where("code = ? OR alias = ?", identifier, identifier).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

// IncrementClicks bumps the click counter with a single store-native update
// so concurrent resolutions of the same link never lose counts.
func (r *linkRepository) IncrementClicks(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// Deactivate moves the link to inactive. Safe to call repeatedly: an already
// inactive link is left untouched and no error is returned.
func (r *linkRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ?", id).
		Update("status", model.StatusInactive).Error
}

// Codes returns every issued code, used to warm the collision prefilter at
// startup.
func (r *linkRepository) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
