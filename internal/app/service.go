// Package service wires listing sources, viewer sessions, ads and the ingest
// pipeline behind the operations used by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	eventqueue "github.com/okian/duofeed/internal/adapters/mq/queue"
	workerpool "github.com/okian/duofeed/internal/adapters/mq/worker"
	"github.com/okian/duofeed/internal/adapters/repository"
	"github.com/okian/duofeed/internal/adapters/upstream"
	"github.com/okian/duofeed/internal/config"
	"github.com/okian/duofeed/internal/domain/ads"
	"github.com/okian/duofeed/internal/domain/dedupe"
	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/domain/pagination"
	"github.com/okian/duofeed/internal/domain/session"
	"github.com/okian/duofeed/pkg/logger"
	"github.com/okian/duofeed/pkg/metrics"
)

const (
	defaultQueueSize      = 10_000
	defaultDedupeSize     = 100_000
	defaultMaxFeedVisible = 500
	stopTimeout           = 10 * time.Second
)

// Source provides prefiltered listings.
type Source = session.Source

// Service implements the API dependencies for the duo feed.
type Service struct {
	mu sync.RWMutex

	// Core components
	source   Source
	writer   repository.Writer
	closer   func() error
	sessions *session.Registry
	deduper  dedupe.Deduper
	queue    eventqueue.Queue
	workers  *workerpool.Pool

	// Configuration
	sourceKind      string
	sqliteDSN       string
	upstreamURL     string
	upstreamTimeout time.Duration
	upstreamRate    float64
	upstreamBurst   int
	injected        Source
	workerCount     int
	queueSize       int
	dedupeSize      int
	pageSize        int
	maxFeedVisible  int
	maxSessions     int
	sessionIdleTTL  time.Duration
	ads             []model.Ad
	adFrequency     int

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Components are created by Start.
func New(opts ...Option) *Service {
	s := &Service{
		sourceKind:     config.SourceMemory,
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		pageSize:       pagination.DefaultPageSize,
		maxFeedVisible: defaultMaxFeedVisible,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the listing source and starts the session janitor and, for
// writable sources, the ingest workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := s.openSource(runCtx); err != nil {
		cancel()
		return err
	}
	s.cancel = cancel

	regOpts := []session.Option{
		session.WithPageSize(s.pageSize),
		session.WithAds(s.ads, s.adFrequency),
	}
	if s.maxSessions > 0 {
		regOpts = append(regOpts, session.WithMaxSessions(s.maxSessions))
	}
	if s.sessionIdleTTL > 0 {
		regOpts = append(regOpts, session.WithIdleTTL(s.sessionIdleTTL))
	}
	s.sessions = session.NewRegistry(s.source, regOpts...)
	go s.sessions.Run(runCtx, 0)

	if s.writer != nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
		q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
		s.queue = q
		s.workers = workerpool.NewPool(s.workerCount, q, s.writer)
		s.workers.Start(runCtx)
	}

	s.started = true
	s.logger.Info(ctx, "duofeed service started",
		logger.String("source", s.source.Name()),
		logger.Bool("ingest", s.writer != nil),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("pageSize", s.pageSize),
		logger.Int("ads", len(s.ads)),
	)
	return nil
}

func (s *Service) openSource(ctx context.Context) error {
	if s.injected != nil {
		s.source = s.injected
		if w, ok := s.injected.(repository.Writer); ok {
			s.writer = w
		}
		s.closer = func() error { return nil }
		return nil
	}

	switch strings.ToLower(s.sourceKind) {
	case config.SourceMemory:
		store := repository.NewMemoryStore(ctx)
		s.source, s.writer, s.closer = store, store, store.Close
	case config.SourceSQLite:
		store, err := repository.NewSQLiteStore(s.sqliteDSN)
		if err != nil {
			return err
		}
		s.source, s.writer, s.closer = store, store, store.Close
	case config.SourceUpstream:
		client, err := upstream.New(s.upstreamURL,
			upstream.WithTimeout(s.upstreamTimeout),
			upstream.WithRateLimit(s.upstreamRate, s.upstreamBurst),
		)
		if err != nil {
			return err
		}
		s.source, s.closer = client, func() error { return nil }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, s.sourceKind)
	}
	return nil
}

// Stop drains the ingest queue and closes the source.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping duofeed service...")
	if s.workers != nil {
		if err := s.workers.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "ingest workers did not drain", logger.Error(err))
		}
	}
	s.cancel()
	if err := s.closer(); err != nil {
		s.logger.Error(ctx, "error closing listing source", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "duofeed service stopped")
}

func (s *Service) registry() (*session.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.sessions, nil
}

// Feed evaluates state without a session and returns the first visible posts.
// visible is clamped to the configured maximum; zero means one page.
func (s *Service) Feed(ctx context.Context, region model.Region, state feed.FilterState, visible int) (session.View, error) {
	s.mu.RLock()
	started, src := s.started, s.source
	s.mu.RUnlock()
	if !started {
		return session.View{}, ErrNotStarted
	}

	if visible <= 0 {
		visible = s.pageSize
	}
	visible = min(visible, s.maxFeedVisible)

	start := time.Now()
	raw, err := src.Query(ctx, state.Prefilter())
	metrics.RecordSourceQuery(src.Name(), float64(time.Since(start).Microseconds())/1000, err)
	if err != nil {
		return session.View{}, fmt.Errorf("%w: %s query: %w", session.ErrSource, src.Name(), err)
	}

	filtered := session.Evaluate(raw, state)
	page, more := pagination.Window(filtered, visible)
	return session.View{
		Region:  region,
		Filters: state.Clone(),
		Posts:   page,
		Items:   ads.Interleave(page, s.ads, s.adFrequency, region, nil),
		Visible: visible,
		Total:   len(filtered),
		HasMore: more,
	}, nil
}

// CreateSession starts a viewer session and returns its first page.
func (s *Service) CreateSession(ctx context.Context, region model.Region, state feed.FilterState) (session.View, error) {
	reg, err := s.registry()
	if err != nil {
		return session.View{}, err
	}
	return reg.Create(ctx, region, state)
}

// Session returns the current page of a session.
func (s *Service) Session(ctx context.Context, id string) (session.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	return sess.Page(ctx)
}

// ApplyFilters replaces the filters of a session.
func (s *Service) ApplyFilters(ctx context.Context, id string, state feed.FilterState) (session.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	return sess.ApplyFilters(ctx, state)
}

// LoadMore advances a session by one page.
func (s *Service) LoadMore(ctx context.Context, id string) (session.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	return sess.LoadMore(ctx)
}

// DismissAd hides an ad for a session and returns the refreshed page.
func (s *Service) DismissAd(ctx context.Context, id, adID string) (session.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return session.View{}, err
	}
	sess.DismissAd(adID)
	return sess.Page(ctx)
}

// DeleteSession drops a session.
func (s *Service) DeleteSession(_ context.Context, id string) error {
	reg, err := s.registry()
	if err != nil {
		return err
	}
	return reg.Delete(id)
}

func (s *Service) lookup(id string) (*session.Session, error) {
	reg, err := s.registry()
	if err != nil {
		return nil, err
	}
	return reg.Get(id)
}

// PickAd returns the ad for the slot after position, or nil.
func (s *Service) PickAd(region model.Region, position int, dismissed []string) *model.Ad {
	ad := ads.PickAd(s.ads, position, s.adFrequency, region, dismissed)
	if ads.IsSlot(position, s.adFrequency) {
		metrics.RecordAdSlot(ad != nil)
	}
	return ad
}

// AdFrequency is the configured slot frequency.
func (s *Service) AdFrequency() int { return s.adFrequency }

// Ingest validates a listing event, drops duplicates and queues it for the
// workers. A rejected event is forgotten so it can be resubmitted.
func (s *Service) Ingest(ctx context.Context, ev model.ListingEvent) error {
	s.mu.RLock()
	started, q, d := s.started, s.queue, s.deduper
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if q == nil {
		return ErrReadOnlySource
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}

	if d.SeenAndRecord(ctx, ev.EventID) {
		metrics.RecordIngestDuplicate()
		s.logger.Debug(ctx, "duplicate listing event", logger.String("eventID", ev.EventID))
		return ErrDuplicateEvent
	}
	if !q.Enqueue(ctx, ev) {
		d.Unrecord(ctx, ev.EventID)
		return ErrBackpressure
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"source":      s.sourceKind,
		"pageSize":    s.pageSize,
		"adFrequency": s.adFrequency,
		"ads":         len(s.ads),
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	stats["source"] = s.source.Name()
	stats["sessions"] = s.sessions.Len()
	if v, err := s.source.Version(ctx); err == nil {
		stats["sourceVersion"] = v
	}
	if s.writer != nil {
		stats["ingest"] = true
		stats["workerCount"] = s.workers.Size()
		stats["queueCapacity"] = s.queue.Capacity()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["dedupeSize"] = s.deduper.Size()
		if n, err := s.writer.Count(ctx); err == nil {
			stats["storedPosts"] = n
			metrics.UpdateStorePosts(n)
		}
	} else {
		stats["ingest"] = false
	}
	return stats
}
