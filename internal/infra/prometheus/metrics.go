package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Application counters exposed through the metrics server.
var (
	// RedirectsTotal counts resolution attempts by terminal outcome:
	// redirected, not_found, gone, error.
	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkpulse_redirects_total",
		Help: "Resolution attempts by outcome.",
	}, []string{"outcome"})

	// LinksCreatedTotal counts successfully created short links.
	LinksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkpulse_links_created_total",
		Help: "Short links created.",
	})

	// ClickEventsStored counts analytics events persisted by the consumer.
	ClickEventsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkpulse_click_events_stored_total",
		Help: "Analytics events written to the store.",
	})

	// RateLimitRejected counts requests denied by the rate limiter.
	RateLimitRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkpulse_rate_limit_rejected_total",
		Help: "Requests denied by the rate limiter.",
	})
)
