package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/pkg/metrics"
)

const (
	streamName    = "PROPERTYPULSE_SESSIONS"
	subjectPrefix = "propertypulse.session."
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := dial(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Session events only matter while the session is alive; keep them in
	// memory for a short while.
	cfg := &nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.MemoryStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishSessionEvent publishes ev on propertypulse.session.<id>.<kind>.
func (p *Publisher) PublishSessionEvent(ctx context.Context, ev *domain.SessionEvent) error {
	data, err := EncodeSessionEvent(ev)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Kind), "error").Inc()
		return err
	}

	msg := nats.NewMsg(SessionSubject(ev.SessionID, ev.Kind))
	msg.Header.Set("Content-Type", ContentType)
	msg.Data = data

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Kind), "error").Inc()
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Kind), "ok").Inc()
	return nil
}

// Conn exposes the connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// SessionSubject is the subject a session event is published on.
func SessionSubject(sessionID string, kind domain.EventKind) string {
	return subjectPrefix + sessionID + "." + string(kind)
}

// dial keeps reconnecting forever; the websocket relay shares this
// connection through Conn.
func dial(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
