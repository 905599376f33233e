package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/duofeed/pkg/logger"
)

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeThrottled
	outcomeFailed
)

// Client posts listing events to a duofeed service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// CheckHealth verifies the service answers on /healthz.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// StoredPosts reads storedPosts from /stats. It returns -1 when the source
// does not report a count.
func (c *Client) StoredPosts(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats", http.NoBody)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var stats struct {
		StoredPosts *int `json:"storedPosts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return 0, fmt.Errorf("decode stats: %w", err)
	}
	if stats.StoredPosts == nil {
		return -1, nil
	}
	return *stats.StoredPosts, nil
}

func (c *Client) submit(ctx context.Context, ev Event) outcome {
	body, err := json.Marshal(ev)
	if err != nil {
		return outcomeFailed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return outcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		var ack AckResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && !ack.Duplicate {
			return outcomeAccepted
		}
		return outcomeDuplicate
	case http.StatusTooManyRequests:
		return outcomeThrottled
	default:
		return outcomeFailed
	}
}

// Submit posts events with workers concurrent senders and records outcomes
// in stats. It stops early only when ctx is cancelled.
func (c *Client) Submit(ctx context.Context, events []Event, workers int, stats *Stats) error {
	var accepted, duplicate, throttled, failed atomic.Int64

	eventCh := make(chan Event, workers*2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(eventCh)
		for _, ev := range events {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case eventCh <- ev:
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			for ev := range eventCh {
				if err := gctx.Err(); err != nil {
					return err
				}
				switch c.submit(gctx, ev) {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeDuplicate:
					duplicate.Add(1)
				case outcomeThrottled:
					throttled.Add(1)
				default:
					failed.Add(1)
				}
			}
			return nil
		})
	}

	err := g.Wait()

	stats.Accepted += int(accepted.Load())
	stats.Duplicate += int(duplicate.Load())
	stats.Throttled += int(throttled.Load())
	stats.Failed += int(failed.Load())
	stats.Submitted = stats.Accepted + stats.Duplicate + stats.Throttled + stats.Failed

	logger.Get().Info(ctx, "listing submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("throttled", stats.Throttled),
		logger.Int("failed", stats.Failed))
	return err
}
