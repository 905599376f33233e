package service

import (
	"fmt"
	"slices"
	"time"

	"github.com/okian/duofeed/internal/config"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the ingest queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many ingest event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSourceKind selects the listing source opened by Start.
func WithSourceKind(kind string) Option {
	return func(s *Service) {
		if kind != "" {
			s.sourceKind = kind
		}
	}
}

// WithSQLiteDSN sets the database used by the sqlite source.
func WithSQLiteDSN(dsn string) Option {
	return func(s *Service) { s.sqliteDSN = dsn }
}

// WithUpstream configures the upstream HTTP source.
func WithUpstream(baseURL string, timeout time.Duration, ratePerSec float64, burst int) Option {
	return func(s *Service) {
		s.upstreamURL = baseURL
		s.upstreamTimeout = timeout
		s.upstreamRate = ratePerSec
		s.upstreamBurst = burst
	}
}

// WithSource injects an already opened source. When it also implements
// Writer, ingest is enabled.
func WithSource(src Source) Option {
	return func(s *Service) {
		if src != nil {
			s.injected = src
		}
	}
}

// WithPageSize sets the pagination step.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxFeedVisible caps the visible count of stateless feed requests.
func WithMaxFeedVisible(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFeedVisible = n
		}
	}
}

// WithSessionLimits bounds the session registry.
func WithSessionLimits(maxSessions int, idleTTL time.Duration) Option {
	return func(s *Service) {
		if maxSessions > 0 {
			s.maxSessions = maxSessions
		}
		if idleTTL > 0 {
			s.sessionIdleTTL = idleTTL
		}
	}
}

// WithAds sets the configured ads and the slot frequency.
func WithAds(all []model.Ad, frequency int) Option {
	return func(s *Service) {
		s.ads = slices.Clone(all)
		s.adFrequency = frequency
	}
}

// OptionsFromConfig translates a loaded configuration into service options.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	ads, err := AdsFromConfig(cfg.Ads)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithSourceKind(cfg.Source),
		WithSQLiteDSN(cfg.SQLiteDSN),
		WithUpstream(cfg.UpstreamBaseURL,
			time.Duration(cfg.UpstreamTimeoutMS)*time.Millisecond,
			cfg.UpstreamRatePerS, cfg.UpstreamBurst),
		WithPageSize(cfg.PageSize),
		WithMaxFeedVisible(cfg.MaxFeedVisible),
		WithSessionLimits(cfg.MaxSessions, time.Duration(cfg.SessionIdleTTLSec)*time.Second),
		WithQueueSize(cfg.EventQueueSize),
		WithWorkerCount(cfg.WorkerCount),
		WithDedupeSize(cfg.DedupeSize),
		WithAds(ads, cfg.AdFrequency),
	}, nil
}

// AdsFromConfig converts configured ads, parsing their target regions.
func AdsFromConfig(in []config.AdConfig) ([]model.Ad, error) {
	out := make([]model.Ad, 0, len(in))
	for _, a := range in {
		ad := model.Ad{ID: a.ID, Title: a.Title, ImageURL: a.ImageURL, LinkURL: a.LinkURL}
		for _, r := range a.TargetRegions {
			region, err := model.ParseRegion(r)
			if err != nil {
				return nil, fmt.Errorf("ad %q: %w", a.ID, err)
			}
			ad.TargetRegions = append(ad.TargetRegions, region)
		}
		out = append(out, ad)
	}
	return out, nil
}
