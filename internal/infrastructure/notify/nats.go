package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"NewsletterIngest/internal/ports"
)

const defaultSubject = "newsletter.ingest.result"

// NATSPublisher emits an ingestion event per issue so downstream
// consumers (search indexers, feeds) can react.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

var _ ports.Notifier = (*NATSPublisher)(nil)

// NewNATSPublisher connects to the given NATS URL.
func NewNATSPublisher(natsURL, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = defaultSubject
	}
	nc, err := nats.Connect(natsURL, nats.Timeout(5*time.Second), nats.MaxReconnects(5))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

type ingestEvent struct {
	Publication string    `json:"publication"`
	Created     int       `json:"created"`
	At          time.Time `json:"at"`
}

// NotifyIngested publishes the event; delivery is best-effort.
func (p *NATSPublisher) NotifyIngested(_ context.Context, publication string, created int) error {
	data, err := json.Marshal(ingestEvent{Publication: publication, Created: created, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal ingest event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish ingest event: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
