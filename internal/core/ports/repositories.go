package ports

import (
	"context"

	"github.com/propertypulse/propertypulse/internal/core/domain"
)

// SessionRepository holds live sessions. Update and View run fn while holding
// the session's lock, so each call is one indivisible state transition.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	Update(ctx context.Context, id string, fn func(s *domain.Session) error) error
	View(ctx context.Context, id string, fn func(s *domain.Session) error) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
