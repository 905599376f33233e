// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/duofeed/internal/app"
	"github.com/okian/duofeed/internal/domain/ads"
	"github.com/okian/duofeed/internal/domain/feed"
	"github.com/okian/duofeed/internal/domain/model"
	"github.com/okian/duofeed/internal/domain/session"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Feed(ctx context.Context, region model.Region, state feed.FilterState, visible int) (session.View, error)

	CreateSession(ctx context.Context, region model.Region, state feed.FilterState) (session.View, error)
	Session(ctx context.Context, id string) (session.View, error)
	ApplyFilters(ctx context.Context, id string, state feed.FilterState) (session.View, error)
	LoadMore(ctx context.Context, id string) (session.View, error)
	DismissAd(ctx context.Context, id, adID string) (session.View, error)
	DeleteSession(ctx context.Context, id string) error

	PickAd(region model.Region, position int, dismissed []string) *model.Ad

	// Ingest queues a listing event. Returns a backpressure error when full.
	Ingest(ctx context.Context, ev model.ListingEvent) error
}

// Server wires HTTP routes for the feed API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	feedHandler     *FeedHandler
	sessionsHandler *SessionsHandler
	adsHandler      *AdsHandler
	postsHandler    *PostsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		feedHandler:     NewFeedHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		adsHandler:      NewAdsHandler(deps),
		postsHandler:    NewPostsHandler(deps),
	}
}

// Router returns a chi router with the API routes and common middleware.
func (s *Server) Router(corsOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, CORS(corsOrigins))
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/feed", MetricsMiddleware(s.feedHandler.HandleGetFeed, "feed"))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions_create"))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(s.sessionsHandler.HandleGet, "sessions_get"))
			r.Delete("/", MetricsMiddleware(s.sessionsHandler.HandleDelete, "sessions_delete"))
			r.Put("/filters", MetricsMiddleware(s.sessionsHandler.HandleApplyFilters, "sessions_filters"))
			r.Post("/more", MetricsMiddleware(s.sessionsHandler.HandleLoadMore, "sessions_more"))
			r.Post("/ads/{adID}/dismiss", MetricsMiddleware(s.sessionsHandler.HandleDismissAd, "sessions_dismiss_ad"))
		})
	})

	r.Get("/ads/slot", MetricsMiddleware(s.adsHandler.HandleSlot, "ads_slot"))
	r.Post("/posts", MetricsMiddleware(s.postsHandler.HandlePostListing, "posts"))
}

// pageResponse is the JSON shape of a rendered feed page.
type pageResponse struct {
	SessionID string         `json:"session_id,omitempty"`
	Region    model.Region   `json:"region,omitempty"`
	Filters   filterPayload  `json:"filters"`
	Items     []ads.FeedItem `json:"items"`
	Posts     int            `json:"posts"`
	Visible   int            `json:"visible"`
	Total     int            `json:"total"`
	HasMore   bool           `json:"has_more"`
	Reset     bool           `json:"reset"`
}

func newPageResponse(v session.View) pageResponse { //nolint:gocritic // hugeParam: views are values
	items := v.Items
	if items == nil {
		items = []ads.FeedItem{}
	}
	return pageResponse{
		SessionID: v.SessionID,
		Region:    v.Region,
		Filters:   payloadFromState(v.Filters),
		Items:     items,
		Posts:     len(v.Posts),
		Visible:   v.Visible,
		Total:     v.Total,
		HasMore:   v.HasMore,
		Reset:     v.Reset,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates domain and service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidValue), errors.Is(err, service.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, session.ErrNoMorePosts):
		writeError(w, http.StatusConflict, "no_more_posts", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrReadOnlySource):
		writeError(w, http.StatusConflict, "read_only_source", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, session.ErrSource):
		writeError(w, http.StatusBadGateway, "source_unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	if dec.More() {
		return errors.New("body must contain a single json object")
	}
	return nil
}
