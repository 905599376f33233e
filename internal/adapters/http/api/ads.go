package api

import (
	"net/http"
	"strconv"

	"github.com/okian/duofeed/internal/domain/model"
)

type adSlotResponse struct {
	Position int       `json:"position"`
	Ad       *model.Ad `json:"ad"`
}

// AdsHandler serves ad slot lookups.
type AdsHandler struct {
	deps Dependencies
}

func NewAdsHandler(deps Dependencies) *AdsHandler {
	return &AdsHandler{deps: deps}
}

// HandleSlot handles GET /ads/slot?position=N&region=R&dismissed=a,b.
// The ad is null when position is not a slot or nothing is eligible.
func (h *AdsHandler) HandleSlot(w http.ResponseWriter, r *http.Request) {
	const op = "api.ad_slot"
	q := r.URL.Query()

	position, err := strconv.Atoi(q.Get("position"))
	if err != nil || position < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	region, err := model.ParseRegion(q.Get("region"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ad := h.deps.PickAd(region, position, splitList(q["dismissed"]))
	writeJSON(w, http.StatusOK, adSlotResponse{Position: position, Ad: ad})
}
