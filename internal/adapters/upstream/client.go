// Package upstream is a listings source backed by the platform's listings API.
// The categorical prefilter is sent as query parameters.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"golang.org/x/time/rate"

	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/pkg/logger"
)

const (
	postsPath = "/posts"

	defaultTimeout         = 5 * time.Second
	defaultRatePerSec      = 5
	defaultBurst           = 5
	defaultMaxRetries      = 3
	defaultBaseRetryWait   = 250 * time.Millisecond
	defaultRefreshInterval = 15 * time.Second
	maxErrorBody           = 512
)

// Sentinel kinds for upstream failures.
var (
	ErrUpstream    = errors.New("upstream request failed")
	ErrClientError = errors.New("upstream rejected request")
)

// Client queries the listings API with rate limiting and retries.
type Client struct {
	http            *http.Client
	base            string
	limiter         *rate.Limiter
	maxRetries      int
	baseRetryWait   time.Duration
	refreshInterval time.Duration
	now             func() time.Time
}

// postsQuery is the query string of GET /posts.
type postsQuery struct {
	Region  []string `url:"region,omitempty"`
	Role    []string `url:"role,omitempty"`
	VC      string   `url:"vc,omitempty"`
	DuoType string   `url:"duo_type,omitempty"`
}

type postsResponse struct {
	Posts []model.Post `json:"posts"`
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base url %q", baseURL)
	}
	c := &Client{
		http:            &http.Client{Timeout: defaultTimeout},
		base:            strings.TrimSuffix(baseURL, "/"),
		limiter:         rate.NewLimiter(defaultRatePerSec, defaultBurst),
		maxRetries:      defaultMaxRetries,
		baseRetryWait:   defaultBaseRetryWait,
		refreshInterval: defaultRefreshInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "upstream" }

// Version is the current refresh bucket. The API exposes no change feed, so
// callers refetch once per refresh interval and compare contents themselves.
func (c *Client) Version(context.Context) (uint64, error) {
	return uint64(c.now().UnixNano() / int64(c.refreshInterval)), nil
}

// Query fetches the posts matching pf.
func (c *Client) Query(ctx context.Context, pf feed.Prefilter) ([]model.Post, error) {
	q := postsQuery{}
	for _, r := range pf.Regions {
		q.Region = append(q.Region, string(r))
	}
	for _, r := range pf.Roles {
		q.Role = append(q.Role, string(r))
	}
	if pf.VCPreference != nil {
		q.VC = string(*pf.VCPreference)
	}
	if pf.DuoType != nil {
		q.DuoType = string(*pf.DuoType)
	}
	values, err := query.Values(q)
	if err != nil {
		return nil, fmt.Errorf("upstream: encode query: %w", err)
	}

	endpoint := c.base + postsPath
	if enc := values.Encode(); enc != "" {
		endpoint += "?" + enc
	}

	var out postsResponse
	if err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}, &out); err != nil {
		return nil, err
	}
	if out.Posts == nil {
		out.Posts = []model.Post{}
	}
	return out.Posts, nil
}

// doWithRetry retries transport errors, 429 and 5xx with exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, newReq func() (*http.Request, error), out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", ErrUpstream, err)
		}
		req, err := newReq()
		if err != nil {
			return fmt.Errorf("%w: build request: %w", ErrUpstream, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode >= http.StatusBadRequest:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
			return fmt.Errorf("%w: status %d: %s", ErrClientError, resp.StatusCode, strings.TrimSpace(string(body)))
		default:
			defer resp.Body.Close()
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
			}
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
		}
		if attempt < c.maxRetries {
			logger.Get().Warn(ctx, "upstream request failed, retrying",
				logger.Int("attempt", attempt+1),
				logger.Error(lastErr))
			c.sleep(ctx, attempt)
		}
	}
	return fmt.Errorf("%w: after %d retries: %w", ErrUpstream, c.maxRetries, lastErr)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := c.baseRetryWait << attempt
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
