package model

import "time"

// AnalyticsEvent records one resolution of a short link together with the
// signal derived from the request. Rows are immutable once created and
// outlive the link's active lifetime.
type AnalyticsEvent struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	LinkID    string    `gorm:"size:36;not null;index:idx_events_link_ts,priority:1" json:"link_id"`
	Timestamp time.Time `gorm:"not null;index:idx_events_link_ts,priority:2,sort:desc" json:"timestamp"`

	// Derived from the User-Agent header.
	Device         string `gorm:"size:16" json:"device"`
	BrowserName    string `gorm:"size:64" json:"browser_name,omitempty"`
	BrowserVersion string `gorm:"size:64" json:"browser_version,omitempty"`
	OSName         string `gorm:"size:64" json:"os_name,omitempty"`
	OSVersion      string `gorm:"size:64" json:"os_version,omitempty"`
	IsBot          bool   `gorm:"not null;default:false" json:"is_bot"`

	// Derived from the Referer header.
	ReferrerRaw    string `gorm:"type:text" json:"referrer_raw,omitempty"`
	ReferrerDomain string `gorm:"size:255;index" json:"referrer_domain,omitempty"`

	// Campaign attribution parsed out of the referrer query string.
	UTMSource   string `gorm:"size:255" json:"utm_source,omitempty"`
	UTMMedium   string `gorm:"size:255" json:"utm_medium,omitempty"`
	UTMCampaign string `gorm:"size:255" json:"utm_campaign,omitempty"`
	UTMTerm     string `gorm:"size:255" json:"utm_term,omitempty"`
	UTMContent  string `gorm:"size:255" json:"utm_content,omitempty"`

	// Raw request metadata, stored as received.
	IPAddress string `gorm:"size:64" json:"ip_address,omitempty"`
	Language  string `gorm:"size:64" json:"language,omitempty"`
	Protocol  string `gorm:"size:16" json:"protocol,omitempty"`
}

// Device classes an event can carry.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceOther   = "other"
)

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-writer"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
