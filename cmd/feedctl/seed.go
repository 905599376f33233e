package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/seed"
)

const (
	flagURL        = "url"
	flagCount      = "count"
	flagWorkers    = "workers"
	flagTimeout    = "timeout"
	flagSeed       = "seed"
	flagSmurfRatio = "smurf-ratio"

	defaultURL        = "http://localhost:9080"
	defaultCount      = 1000
	defaultTimeout    = 10 * time.Second
	defaultSmurfRatio = 0.15
)

func newSeedCommand() *cobra.Command {
	command := &cobra.Command{
		Use:     "seed",
		Short:   "Generate random listings and submit them to a running service",
		Example: "  feedctl seed --url http://localhost:9080 --count 5000 --region EUW,NA",
		Args:    cobra.NoArgs,
		RunE:    runSeedCommand,
	}

	f := command.Flags()
	f.String(flagURL, defaultURL, "Base URL of the service")
	f.Int(flagCount, defaultCount, "Listings to generate")
	f.Int(flagWorkers, runtime.NumCPU()*2, "Concurrent submitters")
	f.Duration(flagTimeout, defaultTimeout, "HTTP request timeout")
	f.Uint64(flagSeed, 0, "Generator seed (0 picks one)")
	f.Float64(flagSmurfRatio, defaultSmurfRatio, "Share of listings posted from a secondary account")
	f.StringSlice(flagRegion, nil, "Regions to generate (default all)")
	return command
}

func runSeedCommand(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	cfg := seed.Config{}
	cfg.BaseURL, _ = f.GetString(flagURL)
	cfg.Count, _ = f.GetInt(flagCount)
	cfg.Workers, _ = f.GetInt(flagWorkers)
	cfg.Timeout, _ = f.GetDuration(flagTimeout)
	cfg.Seed, _ = f.GetUint64(flagSeed)
	cfg.SmurfRatio, _ = f.GetFloat64(flagSmurfRatio)

	regions, _ := f.GetStringSlice(flagRegion)
	for _, raw := range regions {
		r, err := model.ParseRegion(raw)
		if err != nil {
			return err
		}
		cfg.Regions = append(cfg.Regions, r)
	}

	stats, err := seed.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated=%d accepted=%d duplicate=%d throttled=%d failed=%d stored=%d in %s\n",
		stats.Generated, stats.Accepted, stats.Duplicate, stats.Throttled, stats.Failed, stats.StoredPosts,
		stats.Duration.Round(time.Millisecond))
	return nil
}
