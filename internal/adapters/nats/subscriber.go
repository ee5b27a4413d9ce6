package natsadapter

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/propertypulse/propertypulse/internal/core/domain"
)

// Subscriber relays session events to in-process listeners such as
// websocket connections. Subscriptions are ephemeral core-NATS ones.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// SubscribeSession calls handler for every event of one session until the
// returned func is called or ctx is cancelled.
func (s *Subscriber) SubscribeSession(ctx context.Context, sessionID string, handler func(ev *domain.SessionEvent)) (func(), error) {
	sub, err := s.conn.Subscribe(subjectPrefix+sessionID+".>", func(msg *nats.Msg) {
		ev, err := DecodeSessionEvent(msg.Data)
		if err != nil {
			slog.Warn("dropping malformed session event", "subject", msg.Subject, "error", err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { _ = sub.Unsubscribe() })
	return func() {
		stop()
		_ = sub.Unsubscribe()
	}, nil
}
