package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/duofeed/pkg/logger"
)

// Run checks the service, generates cfg.Count listings and submits them.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("seed")

	log.Info(ctx, "starting seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("count", cfg.Count),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.CheckHealth(ctx); err != nil {
		return stats, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	gen := NewGenerator(seed, cfg.Regions, cfg.SmurfRatio, nil)

	now := time.Now()
	events := make([]Event, 0, cfg.Count)
	for _, p := range gen.Posts(cfg.Count) {
		events = append(events, NewEvent(p, now))
	}
	stats.Generated = len(events)

	if err := client.Submit(ctx, events, cfg.Workers, stats); err != nil {
		return stats, fmt.Errorf("submit listings: %w", err)
	}

	stored, err := client.StoredPosts(ctx)
	if err != nil {
		log.Warn(ctx, "failed to read stats", logger.Error(err))
	}
	stats.StoredPosts = stored

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "seed run finished",
		logger.Int("generated", stats.Generated),
		logger.Int("accepted", stats.Accepted),
		logger.Int("storedPosts", stats.StoredPosts),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}
