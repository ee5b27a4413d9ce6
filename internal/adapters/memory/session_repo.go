package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/propertypulse/propertypulse/internal/core/domain"
	"github.com/propertypulse/propertypulse/internal/pkg/metrics"
)

type entry struct {
	mu       sync.Mutex
	sess     *domain.Session // nil once deleted
	lastSeen time.Time
}

// SessionRepo implements ports.SessionRepository in process memory. Each
// session has its own lock; idle sessions are evicted by Sweep.
type SessionRepo struct {
	mu      sync.RWMutex
	items   map[string]*entry
	idleTTL time.Duration
	now     func() time.Time
}

// NewSessionRepo creates an empty repository. idleTTL <= 0 disables eviction.
func NewSessionRepo(idleTTL time.Duration) *SessionRepo {
	return &SessionRepo{
		items:   make(map[string]*entry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (r *SessionRepo) WithClock(now func() time.Time) *SessionRepo {
	r.now = now
	return r
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	r.items[s.ID] = &entry{sess: s, lastSeen: r.now()}
	metrics.ActiveSessions.Set(float64(len(r.items)))
	return nil
}

// Update runs fn with exclusive access to the session.
func (r *SessionRepo) Update(ctx context.Context, id string, fn func(*domain.Session) error) error {
	r.mu.RLock()
	e, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	e.lastSeen = r.now()
	return fn(e.sess)
}

// View runs fn under the same lock as Update so readers never observe a
// half-applied transition. fn must not modify the session.
func (r *SessionRepo) View(ctx context.Context, id string, fn func(*domain.Session) error) error {
	return r.Update(ctx, id, fn)
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.items[id]
	delete(r.items, id)
	metrics.ActiveSessions.Set(float64(len(r.items)))
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	e.mu.Lock()
	e.sess = nil
	e.mu.Unlock()
	return nil
}

func (r *SessionRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed. Sessions busy in an operation are skipped.
func (r *SessionRepo) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.items {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastSeen.Before(cutoff) {
			e.sess = nil
			delete(r.items, id)
			evicted++
		}
		e.mu.Unlock()
	}
	if evicted > 0 {
		metrics.SessionsEvicted.Add(float64(evicted))
		metrics.ActiveSessions.Set(float64(len(r.items)))
	}
	return evicted
}

// RunJanitor sweeps every interval until ctx is cancelled.
func (r *SessionRepo) RunJanitor(ctx context.Context, interval time.Duration) {
	if r.idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Info("evicted idle sessions", "count", n)
			}
		}
	}
}
