package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/core/usecases"
)

// Pinger is implemented by backing stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionEvents streams one session's events to a listener.
type SessionEvents interface {
	SubscribeSession(ctx context.Context, sessionID string, handler func(ev *domain.SessionEvent)) (func(), error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionService
	Events   SessionEvents // nil disables the websocket stream
	NATS     *nats.Conn
	Exports  Pinger
	Version  string
}
