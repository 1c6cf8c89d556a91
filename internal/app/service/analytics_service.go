package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ashmigelski/linkpulse/internal/app/model"
	"github.com/ashmigelski/linkpulse/internal/app/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const summaryCacheTTL = 30 * time.Second

// DayBucket is one day of the trailing 7-day click series.
type DayBucket struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
	Human int    `json:"human"`
	Bot   int    `json:"bot"`
}

// DeviceShare is one device class's slice of non-bot traffic.
type DeviceShare struct {
	Device  string `json:"device"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// ReferrerCount is one referrer domain's non-bot click count.
type ReferrerCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Summary is the derived reporting view over a link's full event set.
type Summary struct {
	TotalClicks  int             `json:"total_clicks"`
	HumanClicks  int             `json:"human_clicks"`
	BotClicks    int             `json:"bot_clicks"`
	Daily        []DayBucket     `json:"daily"`
	Hourly       [24]int         `json:"hourly"`
	Devices      []DeviceShare   `json:"devices"`
	TopReferrers []ReferrerCount `json:"top_referrers"`
}

// Aggregate computes the summary for one link's events on demand. now anchors
// the 7-day daily series; no incremental state is kept between calls.
func Aggregate(events []model.AnalyticsEvent, now time.Time) Summary {
	s := Summary{
		TotalClicks: len(events),
		Daily:       make([]DayBucket, 0, 7),
	}

	for _, e := range events {
		if e.IsBot {
			s.BotClicks++
		} else {
			s.HumanClicks++
		}
		s.Hourly[e.Timestamp.Hour()]++
	}

	// Fixed 7-day window ending today, bucketed by event date.
	for offset := 6; offset >= 0; offset-- {
		day := now.AddDate(0, 0, -offset).Format("2006-01-02")
		bucket := DayBucket{Date: day}
		for _, e := range events {
			if e.Timestamp.Format("2006-01-02") != day {
				continue
			}
			bucket.Total++
			if e.IsBot {
				bucket.Bot++
			} else {
				bucket.Human++
			}
		}
		s.Daily = append(s.Daily, bucket)
	}

	s.Devices = deviceShares(events)
	s.TopReferrers = topReferrers(events, 5)
	return s
}

// deviceShares partitions non-bot events by device class. Percentages are
// rounded shares of the non-bot total.
func deviceShares(events []model.AnalyticsEvent) []DeviceShare {
	counts := make(map[string]int)
	total := 0
	for _, e := range events {
		if e.IsBot {
			continue
		}
		counts[e.Device]++
		total++
	}

	shares := make([]DeviceShare, 0, len(counts))
	for device, count := range counts {
		percent := 0
		if total > 0 {
			percent = int(float64(count)/float64(total)*100 + 0.5)
		}
		shares = append(shares, DeviceShare{Device: device, Count: count, Percent: percent})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Device < shares[j].Device
	})
	return shares
}

// topReferrers ranks referrer domains by non-bot count, ties broken by
// domain so the order is stable across runs.
func topReferrers(events []model.AnalyticsEvent, n int) []ReferrerCount {
	counts := make(map[string]int)
	for _, e := range events {
		if e.IsBot || e.ReferrerDomain == "" {
			continue
		}
		counts[e.ReferrerDomain]++
	}

	ranked := make([]ReferrerCount, 0, len(counts))
	for domain, count := range counts {
		ranked = append(ranked, ReferrerCount{Domain: domain, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Domain < ranked[j].Domain
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// LinkAnalytics bundles a link with its raw events (most recent first) and
// the computed summary.
type LinkAnalytics struct {
	Link    *model.Link
	Events  []model.AnalyticsEvent
	Summary Summary
}

// AnalyticsService is the read side of the click pipeline.
type AnalyticsService interface {
	LinkAnalytics(ctx context.Context, identifier string) (*LinkAnalytics, error)
}

type analyticsService struct {
	links  repository.LinkRepository
	events repository.AnalyticsEventRepository
	cache  *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyticsService returns the reporting service. cache may be nil, which
// disables summary caching.
func NewAnalyticsService(
	links repository.LinkRepository,
	events repository.AnalyticsEventRepository,
	cache *redis.Client,
	logger *zap.Logger,
) AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &analyticsService{
		links:  links,
		events: events,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// LinkAnalytics loads the link and its events and computes the summary. The
// summary is cached briefly in Redis; cache faults degrade to recomputation.
func (s *analyticsService) LinkAnalytics(ctx context.Context, identifier string) (*LinkAnalytics, error) {
	link, err := s.links.FindByCodeOrAlias(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load link: %w", err)
	}

	events, err := s.events.ListByLink(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	summary, cached := s.cachedSummary(ctx, link.ID)
	if !cached {
		summary = Aggregate(events, s.now())
		s.storeSummary(ctx, link.ID, summary)
	}

	return &LinkAnalytics{Link: link, Events: events, Summary: summary}, nil
}

func summaryCacheKey(linkID string) string {
	return "analytics:summary:" + linkID
}

func (s *analyticsService) cachedSummary(ctx context.Context, linkID string) (Summary, bool) {
	if s.cache == nil {
		return Summary{}, false
	}
	raw, err := s.cache.Get(ctx, summaryCacheKey(linkID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("summary cache read failed", zap.Error(err))
		}
		return Summary{}, false
	}
	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return Summary{}, false
	}
	return summary, true
}

func (s *analyticsService) storeSummary(ctx context.Context, linkID string, summary Summary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKey(linkID), raw, summaryCacheTTL).Err(); err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
}
