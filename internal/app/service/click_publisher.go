package service

import (
	"encoding/json"

	"github.com/ashmigelski/linkpulse/internal/app/model"
	"github.com/nats-io/nats.go"
)

// ClickPublisher publishes enriched analytics events to NATS JetStream. The
// redirect path treats publish failures as observability noise, never as a
// reason to withhold the redirect.
type ClickPublisher struct {
	js nats.JetStreamContext
}

// NewClickPublisher creates a new click event publisher.
func NewClickPublisher(js nats.JetStreamContext) *ClickPublisher {
	return &ClickPublisher{js: js}
}

// Publish sends one event to the click stream.
func (p *ClickPublisher) Publish(event *model.AnalyticsEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ClickStreamSubject, data)
	return err
}
