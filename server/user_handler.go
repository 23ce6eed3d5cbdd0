package server

import (
	"net/http"
	"strings"

	"Soundbay/core/account"
	"Soundbay/core/notify"

	"github.com/gorilla/mux"
)

// GetUserProfileHandler 获取当前用户资料
func (h *APIHandler) GetUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Me(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// UpdateUserProfileHandler 接受 JSON 或带 avatar 文件的 multipart 表单
func (h *APIHandler) UpdateUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	var in account.ProfileInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		if err := parseForm(w, r); err != nil {
			writeError(w, r, err)
			return
		}
		in.Username = r.FormValue("username")
	}

	avatar, closeAvatar, err := formUpload(r, "avatar")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeAvatar()

	user, err := h.accounts.UpdateProfile(r.Context(), CurrentUser(r.Context()).ID, in, avatar)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// ChangePasswordHandler 修改密码
func (h *APIHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var in account.PasswordInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), CurrentUser(r.Context()).ID, in); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated")
}

// ListNotificationsHandler 最近的通知
func (h *APIHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifier.List(r.Context(), CurrentUser(r.Context()).ID, notify.DefaultListLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": list})
}

// MarkNotificationReadHandler 标记单条已读
func (h *APIHandler) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.notifier.MarkRead(r.Context(), id, CurrentUser(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as read")
}

// MarkAllNotificationsReadHandler 全部标记已读
func (h *APIHandler) MarkAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.notifier.MarkAllRead(r.Context(), CurrentUser(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "All notifications marked as read")
}
