// Package session holds per-viewer feed state: the filter, the filtered
// collection and the pagination cursor. Every mutation of a session is
// serialized by its own lock.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/duofeed/internal/domain/ads"
	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/domain/pagination"
	"github.com/okian/duofeed/pkg/metrics"
)

// Sentinel errors.
var (
	ErrNotFound    = errors.New("session not found")
	ErrNoMorePosts = errors.New("no more posts")
	ErrSource      = errors.New("listing source failed")
)

// Source provides prefiltered listings and a version that changes when they may have.
type Source interface {
	Query(ctx context.Context, pf feed.Prefilter) ([]model.Post, error)
	Version(ctx context.Context) (uint64, error)
	Name() string
}

// View is a rendered page of a session.
type View struct {
	SessionID string
	Region    model.Region
	Filters   feed.FilterState
	Posts     []model.Post
	Items     []ads.FeedItem
	Visible   int
	Total     int
	HasMore   bool
	// Reset is true when this call reset the cursor.
	Reset bool
}

// Session is one viewer's feed.
type Session struct {
	id     string
	region model.Region
	cfg    *settings

	mu          sync.Mutex
	state       feed.FilterState
	cursor      *pagination.Cursor
	filtered    []model.Post
	version     uint64
	composition uint64
	loaded      bool
	dismissed   []string

	lastSeen atomic.Int64
}

type settings struct {
	source      Source
	pageSize    int
	ads         []model.Ad
	adFrequency int
	now         func() time.Time
}

func newSession(id string, region model.Region, state feed.FilterState, cfg *settings) *Session {
	s := &Session{
		id:     id,
		region: region,
		cfg:    cfg,
		state:  state.Clone(),
		cursor: pagination.NewCursor(cfg.pageSize),
	}
	s.touch()
	return s
}

func (s *Session) ID() string { return s.id }

// LastSeen is the time of the last call on the session.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

func (s *Session) touch() { s.lastSeen.Store(s.cfg.now().UnixNano()) }

// Page returns the current window, refetching first if the source moved on.
func (s *Session) Page(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	reset, err := s.refresh(ctx, false)
	if err != nil {
		return View{}, err
	}
	return s.view(reset), nil
}

// ApplyFilters replaces the filter state. A different state is always
// re-evaluated and resets the cursor; an equal one behaves like Page.
func (s *Session) ApplyFilters(ctx context.Context, state feed.FilterState) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if state.Equal(s.state) {
		reset, err := s.refresh(ctx, false)
		if err != nil {
			return View{}, err
		}
		return s.view(reset), nil
	}

	prev := s.state
	s.state = state.Clone()
	if _, err := s.refresh(ctx, true); err != nil {
		s.state = prev
		return View{}, err
	}
	s.resetCursor()
	return s.view(true), nil
}

// LoadMore grows the window by one page. It returns ErrNoMorePosts when the
// filtered collection already fits in the window, and the reset first page
// without advancing when the source changed composition.
func (s *Session) LoadMore(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	reset, err := s.refresh(ctx, false)
	if err != nil {
		return View{}, err
	}
	if reset {
		// The collection changed under the viewer: show the fresh first page.
		return s.view(true), nil
	}
	if !s.cursor.HasMore(len(s.filtered)) {
		return View{}, ErrNoMorePosts
	}
	s.cursor.Advance()
	metrics.RecordPageLoad()
	return s.view(false), nil
}

// DismissAd hides an ad from this viewer.
func (s *Session) DismissAd(adID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if !slices.Contains(s.dismissed, adID) {
		s.dismissed = append(s.dismissed, adID)
	}
}

// refresh refetches when forced or when the source version changed. The
// filtered collection is recomputed, and the cursor reset, only if the
// fetched collection differs from the one already held.
func (s *Session) refresh(ctx context.Context, force bool) (bool, error) {
	src := s.cfg.source
	v, err := src.Version(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %s version: %w", ErrSource, src.Name(), err)
	}
	if !force && s.loaded && v == s.version {
		return false, nil
	}

	start := time.Now()
	raw, err := src.Query(ctx, s.state.Prefilter())
	metrics.RecordSourceQuery(src.Name(), float64(time.Since(start).Microseconds())/1000, err)
	if err != nil {
		return false, fmt.Errorf("%w: %s query: %w", ErrSource, src.Name(), err)
	}

	s.version = v
	comp := composition(raw)
	if !force && s.loaded && comp == s.composition {
		return false, nil
	}
	s.composition = comp
	s.loaded = true
	s.filtered = evaluate(raw, s.state)
	if !force {
		s.resetCursor()
	}
	return true, nil
}

func (s *Session) resetCursor() {
	s.cursor.Reset()
	metrics.RecordCursorReset()
}

func (s *Session) view(reset bool) View {
	page, more := pagination.Window(s.filtered, s.cursor.Visible())
	items := ads.Interleave(page, s.cfg.ads, s.cfg.adFrequency, s.region, s.dismissed)
	recordAdSlots(len(page), s.cfg.adFrequency, len(items)-len(page))
	return View{
		SessionID: s.id,
		Region:    s.region,
		Filters:   s.state.Clone(),
		Posts:     page,
		Items:     items,
		Visible:   s.cursor.Visible(),
		Total:     len(s.filtered),
		HasMore:   more,
		Reset:     reset,
	}
}

// evaluate runs the filter pipeline and records its metrics.
func evaluate(raw []model.Post, state feed.FilterState) []model.Post {
	start := time.Now()
	ev := feed.Evaluate(raw, state)
	metrics.RecordEvaluation(float64(time.Since(start).Microseconds())/1000, len(raw), len(ev.Posts))
	for stage, n := range ev.Rejected {
		metrics.RecordStageRejections(stage, n)
	}
	return ev.Posts
}

// Evaluate is the stateless form used by one-shot feed requests.
func Evaluate(raw []model.Post, state feed.FilterState) []model.Post {
	return evaluate(raw, state)
}

func recordAdSlots(posts, frequency, filled int) {
	if frequency <= 0 {
		return
	}
	slots := posts / frequency
	for i := 0; i < slots; i++ {
		metrics.RecordAdSlot(i < filled)
	}
}

// composition hashes the full content of every post in order, so an edit
// in place changes it even when UpdatedAt does not move.
func composition(posts []model.Post) uint64 {
	h := xxhash.New()
	enc := json.NewEncoder(h)
	for _, p := range posts {
		if err := enc.Encode(p); err != nil {
			_, _ = h.WriteString(p.ID)
		}
	}
	return h.Sum64()
}
