package repository

import (
	"context"

	"github.com/ashmigelski/linkpulse/internal/app/model"
	"gorm.io/gorm"
)

// AnalyticsEventRepository defines the data access contract for click events.
// Events are append-only; there is no update or delete path.
type AnalyticsEventRepository interface {
	Create(ctx context.Context, event *model.AnalyticsEvent) error
	ListByLink(ctx context.Context, linkID string) ([]model.AnalyticsEvent, error)
}

type analyticsEventRepository struct {
	db *gorm.DB
}

// NewAnalyticsEventRepository returns a GORM-backed AnalyticsEventRepository.
func NewAnalyticsEventRepository(db *gorm.DB) AnalyticsEventRepository {
	return &analyticsEventRepository{db: db}
}

func (r *analyticsEventRepository) Create(ctx context.Context, event *model.AnalyticsEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByLink returns all events for a link, most recent first.
func (r *analyticsEventRepository) ListByLink(ctx context.Context, linkID string) ([]model.AnalyticsEvent, error) {
	var events []model.AnalyticsEvent
	if err := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("timestamp DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
