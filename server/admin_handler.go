package server

import (
	"net/http"
	"strings"

	"Soundbay/core/admin"
	"Soundbay/model"
	"Soundbay/validate"

	"github.com/gorilla/mux"
)

// decisionBody 审核意见
type decisionBody struct {
	Note string `json:"note" validate:"max=400"`
}

func decisionNote(r *http.Request) (*string, error) {
	var body decisionBody
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	body.Note = strings.TrimSpace(body.Note)
	if err := validate.Struct(body); err != nil {
		return nil, err
	}
	if body.Note == "" {
		return nil, nil
	}
	return &body.Note, nil
}

// PendingTracksHandler 待审核的曲目请求
func (h *APIHandler) PendingTracksHandler(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.moderation.PendingTrackRequests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": reqs})
}

// DecideTrackHandler 返回 approve 或 reject 处理函数
func (h *APIHandler) DecideTrackHandler(decision model.Decision) http.HandlerFunc {
	msg := "Request rejected"
	if decision == model.DecisionApprove {
		msg = "Request approved"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		note, err := decisionNote(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := h.moderation.Decide(r.Context(), mux.Vars(r)["id"], CurrentUser(r.Context()).ID, decision, note); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, msg)
	}
}

// PendingReviewsHandler 待审核评论
func (h *APIHandler) PendingReviewsHandler(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.moderation.PendingReviews(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}

// DecideReviewHandler 审核评论
func (h *APIHandler) DecideReviewHandler(decision model.Decision) http.HandlerFunc {
	msg := "Review rejected"
	if decision == model.DecisionApprove {
		msg = "Review approved"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		note, err := decisionNote(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := h.moderation.DecideReview(r.Context(), mux.Vars(r)["id"], CurrentUser(r.Context()).ID, decision, note); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, msg)
	}
}

// ListUsersHandler 用户列表
func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// SetBlockedHandler 封禁/解封
func (h *APIHandler) SetBlockedHandler(blocked bool) http.HandlerFunc {
	msg := "User unblocked"
	if blocked {
		msg = "User blocked"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.admin.SetBlocked(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["id"], blocked); err != nil {
			writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, msg)
	}
}

// AdminGenresHandler 曲风列表
func (h *APIHandler) AdminGenresHandler(w http.ResponseWriter, r *http.Request) {
	genres, err := h.catalog.Genres(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"genres": genres})
}

// CreateGenreHandler 新建曲风
func (h *APIHandler) CreateGenreHandler(w http.ResponseWriter, r *http.Request) {
	var in admin.GenreInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	genre, err := h.admin.CreateGenre(r.Context(), CurrentUser(r.Context()).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"genre": genre})
}

// RenameGenreHandler 重命名曲风
func (h *APIHandler) RenameGenreHandler(w http.ResponseWriter, r *http.Request) {
	var in admin.GenreInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	genre, err := h.admin.RenameGenre(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"genre": genre})
}

// DeleteGenreHandler 删除没有关联曲目的曲风
func (h *APIHandler) DeleteGenreHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteGenre(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Genre deleted")
}

// SalesReportHandler 销售报表
func (h *APIHandler) SalesReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.admin.SalesReport(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ActivityReportHandler 最近的操作日志
func (h *APIHandler) ActivityReportHandler(w http.ResponseWriter, r *http.Request) {
	logs, err := h.admin.ActivityReport(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}
