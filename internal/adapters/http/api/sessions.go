package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/duofeed/internal/domain/model"
)

// createSessionRequest is the body of POST /sessions.
type createSessionRequest struct {
	ViewerRegion string        `json:"viewer_region" validate:"required"`
	Filters      filterPayload `json:"filters"`
}

// SessionsHandler serves viewer sessions.
type SessionsHandler struct {
	deps Dependencies
}

func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleCreate handles POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := getValidator().Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, validationError(err)))
		return
	}
	region, err := model.ParseRegion(req.ViewerRegion)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	state, err := req.Filters.state()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	view, err := h.deps.CreateSession(r.Context(), region, state)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+view.SessionID)
	writeJSON(w, http.StatusCreated, newPageResponse(view))
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	view, err := h.deps.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(view))
}

// HandleApplyFilters handles PUT /sessions/{id}/filters.
func (h *SessionsHandler) HandleApplyFilters(w http.ResponseWriter, r *http.Request) {
	const op = "api.apply_filters"
	var payload filterPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	state, err := payload.state()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	view, err := h.deps.ApplyFilters(r.Context(), chi.URLParam(r, "id"), state)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(view))
}

// HandleLoadMore handles POST /sessions/{id}/more.
func (h *SessionsHandler) HandleLoadMore(w http.ResponseWriter, r *http.Request) {
	const op = "api.load_more"
	view, err := h.deps.LoadMore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(view))
}

// HandleDismissAd handles POST /sessions/{id}/ads/{adID}/dismiss.
func (h *SessionsHandler) HandleDismissAd(w http.ResponseWriter, r *http.Request) {
	const op = "api.dismiss_ad"
	view, err := h.deps.DismissAd(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "adID"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(view))
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	if err := h.deps.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
