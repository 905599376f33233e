package repository

import (
	"time"

	"github.com/okian/duofeed/internal/domain/model"
)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithPosts seeds the store.
func WithPosts(posts []model.Post) Option {
	return func(s *MemoryStore) {
		for _, p := range posts {
			s.byID[p.ID] = p
		}
	}
}
