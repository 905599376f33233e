package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/pkg/logger"
	"github.com/okian/duofeed/pkg/metrics"
)

const (
	defaultMaxSessions = 10_000
	defaultIdleTTL     = 30 * time.Minute
)

// Registry owns every live session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg         *settings
	maxSessions int
	idleTTL     time.Duration
	newID       func() string
}

// NewRegistry creates a registry serving sessions from source.
func NewRegistry(source Source, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		cfg: &settings{
			source: source,
			now:    time.Now,
		},
		maxSessions: defaultMaxSessions,
		idleTTL:     defaultIdleTTL,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a session and loads its first page. When the registry is
// full the least recently seen session is evicted.
func (r *Registry) Create(ctx context.Context, region model.Region, state feed.FilterState) (View, error) {
	s := newSession(r.newID(), region, state, r.cfg)
	view, err := s.Page(ctx)
	if err != nil {
		return View{}, err
	}

	r.mu.Lock()
	if len(r.sessions) >= r.maxSessions {
		r.evictOldestLocked(ctx)
	}
	r.sessions[s.id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.UpdateSessionsActive(n)
	return view, nil
}

// Get returns a live session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete drops a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	metrics.UpdateSessionsActive(n)
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle removes sessions not seen for longer than the idle TTL.
func (r *Registry) EvictIdle(ctx context.Context) int {
	cutoff := r.cfg.now().Add(-r.idleTTL)

	r.mu.Lock()
	evicted := 0
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(r.sessions, id)
			evicted++
			metrics.RecordSessionEviction()
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.UpdateSessionsActive(n)
	if evicted > 0 {
		logger.Get().Debug(ctx, "evicted idle sessions", logger.Int("count", evicted), logger.Int("remaining", n))
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.idleTTL / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle(ctx)
		}
	}
}

func (r *Registry) evictOldestLocked(ctx context.Context) {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range r.sessions {
		if seen := s.LastSeen(); oldestID == "" || seen.Before(oldest) {
			oldestID, oldest = id, seen
		}
	}
	if oldestID == "" {
		return
	}
	delete(r.sessions, oldestID)
	metrics.RecordSessionEviction()
	logger.Get().Debug(ctx, "evicted session at capacity", logger.String("session", oldestID))
}
