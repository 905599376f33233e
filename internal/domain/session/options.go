package session

import (
	"slices"
	"time"

	"github.com/okian/duofeed/internal/domain/model"
)

// Option configures a Registry.
type Option func(*Registry)

// WithPageSize sets the cursor page size of new sessions.
func WithPageSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.cfg.pageSize = n
		}
	}
}

// WithAds sets the ads interleaved into pages and the slot frequency.
func WithAds(all []model.Ad, frequency int) Option {
	return func(r *Registry) {
		r.cfg.ads = slices.Clone(all)
		r.cfg.adFrequency = frequency
	}
}

// WithMaxSessions bounds the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxSessions = n
		}
	}
}

// WithIdleTTL sets how long an unused session is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.cfg.now = now
		}
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}
