package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	service "github.com/okian/duofeed/internal/app"
	"github.com/okian/duofeed/internal/domain/model"
)

// listingEventRequest mirrors the OpenAPI schema for POST /posts.
type listingEventRequest struct {
	EventID string     `json:"event_id" validate:"required"`
	Op      string     `json:"op" validate:"required,oneof=upsert delete"`
	Post    model.Post `json:"post"`
	TS      string     `json:"ts"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// PostsHandler accepts listing events.
type PostsHandler struct {
	deps Dependencies
}

func NewPostsHandler(deps Dependencies) *PostsHandler {
	return &PostsHandler{deps: deps}
}

// HandlePostListing handles POST /posts.
func (h *PostsHandler) HandlePostListing(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_listing"
	var req listingEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := getValidator().Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, validationError(err)))
		return
	}

	ev := model.ListingEvent{EventID: req.EventID, Op: model.EventOp(req.Op), Post: req.Post}
	if req.TS != "" {
		ts, err := time.Parse(time.RFC3339, req.TS)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("ts must be RFC 3339: %w", err)))
			return
		}
		ev.TS = ts
	}

	err := h.deps.Ingest(r.Context(), ev)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	case errors.Is(err, service.ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
	default:
		writeServiceError(w, op, err)
	}
}
