package model

import "time"

// Link status values. A link starts active and moves to inactive exactly
// once, either by explicit deactivation or when expiry is detected at
// lookup time. It never transitions back.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Link describes the core short-link entity stored in Postgres.
//
// Code is always set: system-generated, or a copy of the alias so that both
// identifier kinds live in the same unique column and can never shadow each
// other. Alias is a pointer so its own unique index is sparse: absent
// aliases do not collide with each other.
type Link struct {
	ID          string     `db:"id" gorm:"primaryKey;size:36" json:"id"`
	Destination string     `db:"destination" gorm:"type:text;not null" json:"destination"`
	Code        string     `db:"code" gorm:"size:32;not null;uniqueIndex:idx_links_code" json:"code"`
	Alias       *string    `db:"alias" gorm:"size:32;uniqueIndex:idx_links_alias" json:"alias,omitempty"`
	Status      string     `db:"status" gorm:"size:16;not null;default:active" json:"status"`
	ClickCount  int64      `db:"click_count" gorm:"not null;default:0" json:"click_count"`
	ExpiresAt   *time.Time `db:"expires_at" gorm:"index" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" gorm:"autoUpdateTime" json:"-"`
}

// Identifier returns the path segment the link is reached by: the alias when
// the creator chose one, the generated code otherwise.
func (l *Link) Identifier() string {
	if l.Alias != nil && *l.Alias != "" {
		return *l.Alias
	}
	return l.Code
}

// Expired reports whether the link's expiry, if any, has passed at now.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}
