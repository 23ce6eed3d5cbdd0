package server

import (
	"net/http"
	"strings"

	"Soundbay/apperr"
	"Soundbay/core/catalog"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// GenresHandler 曲风列表
func (h *APIHandler) GenresHandler(w http.ResponseWriter, r *http.Request) {
	genres, err := h.catalog.Genres(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"genres": genres})
}

func queryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Validation(key + " must be a number")
	}
	return &d, nil
}

// ListTracksHandler 公开目录，支持 search/genre/author/minPrice/maxPrice/sort
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.TrackQuery{
		Search: q.Get("search"),
		Genre:  q.Get("genre"),
		Author: q.Get("author"),
		Sort:   q.Get("sort"),
	}
	var err error
	if query.MinPrice, err = queryDecimal(r, "minPrice"); err != nil {
		writeError(w, r, err)
		return
	}
	if query.MaxPrice, err = queryDecimal(r, "maxPrice"); err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.catalog.ListTracks(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// TrackDetailHandler 单个已上架曲目及其评论
func (h *APIHandler) TrackDetailHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.catalog.TrackDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"track": track})
}

// SubmitReviewHandler 提交评论，等待审核
func (h *APIHandler) SubmitReviewHandler(w http.ResponseWriter, r *http.Request) {
	var in catalog.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.catalog.SubmitReview(r.Context(), mux.Vars(r)["id"], CurrentUser(r.Context()).ID, in); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Review submitted for moderation")
}
