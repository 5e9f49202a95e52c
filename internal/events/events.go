// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects published by the service.
const (
	SubjectNotificationCreated   = "notifications.created"
	SubjectCertificationIssued   = "certifications.issued"
	SubjectNotificationsSwept    = "notifications.swept"
	SubjectOnboardingCompleted   = "users.onboarding_completed"
	SubjectCourseProgressUpdated = "progress.updated"
)

// Publisher publishes an event payload on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

// Event is the envelope written to the wire.
type Event struct {
	ID         string          `json:"id"`
	Subject    string          `json:"subject"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type rawPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes JSON envelopes on a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	pub    rawPublisher
	prefix string
	now    func() time.Time
}

// Connect dials NATS. Subjects are published as prefix + subject.
func Connect(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("blisslearn-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := newPublisher(conn, prefix)
	p.conn = conn
	return p, nil
}

func newPublisher(pub rawPublisher, prefix string) *NATSPublisher {
	return &NATSPublisher{pub: pub, prefix: prefix, now: time.Now}
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	body, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		Subject:    subject,
		OccurredAt: p.now().UTC(),
		Data:       payload,
	})
	if err != nil {
		return err
	}
	if err := p.pub.Publish(p.prefix+subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Nop discards events. It is used when NATS is not configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, any) error { return nil }
