// Package seed generates random duo listings and submits them to a running
// service as listing events.
package seed

import (
	"errors"
	"time"

	"github.com/okian/duofeed/internal/domain/model"
)

// Error constants.
var (
	ErrInvalidConfig = errors.New("invalid seed config")
	ErrUnhealthy     = errors.New("service health check failed")
)

// Config holds configuration for a seed run.
type Config struct {
	BaseURL string        // Base URL of the service
	Count   int           // Number of listings to generate
	Workers int           // Number of concurrent submitters
	Timeout time.Duration // HTTP request timeout
	Seed    uint64        // Generator seed; 0 picks one from the clock
	Regions []model.Region
	// SmurfRatio is the share of listings posted from a secondary account.
	SmurfRatio float64
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("base url is required"))
	case c.Count <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("count must be positive"))
	case c.Workers <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("workers must be positive"))
	case c.SmurfRatio < 0 || c.SmurfRatio > 1:
		return errors.Join(ErrInvalidConfig, errors.New("smurf ratio must be within [0, 1]"))
	}
	for _, r := range c.Regions {
		if !r.Valid() {
			return errors.Join(ErrInvalidConfig, errors.New("unknown region "+string(r)))
		}
	}
	return nil
}

// Event is the wire form of a listing event.
type Event struct {
	EventID string     `json:"event_id"`
	Op      string     `json:"op"`
	Post    model.Post `json:"post"`
	TS      string     `json:"ts"`
}

// AckResponse is the ingest acknowledgement.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Submitted   int
	Accepted    int
	Duplicate   int
	Throttled   int
	Failed      int
	StoredPosts int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}
