package api

import (
	"net/http"
	"strconv"

	"github.com/okian/duofeed/internal/domain/model"
)

// FeedHandler serves stateless feed evaluations.
type FeedHandler struct {
	deps Dependencies
}

func NewFeedHandler(deps Dependencies) *FeedHandler {
	return &FeedHandler{deps: deps}
}

// HandleGetFeed handles GET /feed. Filter criteria come from the query;
// visible sets the window size and viewer_region targets ads.
func (h *FeedHandler) HandleGetFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_feed"
	q := r.URL.Query()

	payload, err := filterFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	state, err := payload.state()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	visible := 0
	if raw := q.Get("visible"); raw != "" {
		if visible, err = strconv.Atoi(raw); err != nil || visible < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}

	var viewer model.Region
	if raw := q.Get("viewer_region"); raw != "" {
		if viewer, err = model.ParseRegion(raw); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	view, err := h.deps.Feed(r.Context(), viewer, state, visible)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(view))
}
