package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// MemoryStore keeps listings in a map. The version increments on every mutation.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]model.Post
	version atomic.Uint64

	metricsUpdateInterval time.Duration
	stopChan              chan struct{}
	stopOnce              sync.Once
	wg                    sync.WaitGroup
}

// NewMemoryStore creates a store and starts its metrics updater, which runs
// until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:                  make(map[string]model.Post),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.byID) > 0 {
		s.version.Add(1)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Query(ctx context.Context, pf feed.Prefilter) ([]model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.Post, 0, len(s.byID))
	for _, p := range s.byID {
		if pf.Matches(p) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Version(context.Context) (uint64, error) {
	return s.version.Load(), nil
}

func (s *MemoryStore) Upsert(_ context.Context, post model.Post) error {
	if post.ID == "" {
		return ErrInvalid
	}
	s.mu.Lock()
	s.byID[post.ID] = post
	s.version.Add(1)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	s.version.Add(1)
	return nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				n, _ := s.Count(ctx)
				metrics.UpdateStorePosts(n)
			}
		}
	}()
}
