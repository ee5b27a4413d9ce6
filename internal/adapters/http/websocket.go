package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/pkg/metrics"
)

// wsFrame is what the server pushes to clients.
type wsFrame struct {
	Type    string                 `json:"type"` // "snapshot" | "event" | "error"
	Session *domain.SessionSummary `json:"session,omitempty"`
	Event   *domain.SessionEvent   `json:"event,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// WebSocketGuard rejects non-upgrade requests and unknown sessions before the
// connection is hijacked.
func WebSocketGuard(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if deps.Events == nil {
			return newError(c, 503, "unavailable", "live updates are not configured")
		}
		if _, err := deps.Sessions.Get(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.Next()
	}
}

// WebSocketHandler streams one session's events. The client first receives a
// snapshot of the session, then one frame per event; clients refetch the
// views they render. Any client message is answered with a fresh snapshot.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID := c.Params("id")
		log := slog.With("session_id", sessionID, "remote", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		snapshot := func() error {
			sum, err := deps.Sessions.Get(ctx, sessionID)
			if err != nil {
				_ = writeJSON(wsFrame{Type: "error", Error: domain.UserMessage(err)})
				return err
			}
			return writeJSON(wsFrame{Type: "snapshot", Session: &sum})
		}

		unsubscribe, err := deps.Events.SubscribeSession(ctx, sessionID, func(ev *domain.SessionEvent) {
			if err := writeJSON(wsFrame{Type: "event", Event: ev}); err != nil {
				cancel()
			}
		})
		if err != nil {
			log.Error("ws subscribe failed", "error", err)
			_ = writeJSON(wsFrame{Type: "error", Error: "subscribe failed"})
			return
		}
		defer unsubscribe()

		if err := snapshot(); err != nil {
			return
		}

		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						cancel()
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
			if err := snapshot(); err != nil {
				break
			}
		}

		log.Info("ws client disconnected")
	}
}
