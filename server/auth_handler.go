package server

import (
	"net/http"

	"Soundbay/core/account"
	"Soundbay/logger"
)

// RegisterHandler 注册并返回令牌
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("[Register] 注册成功", logger.String("user", sess.User.ID), logger.String("role", string(sess.User.Role)))
	writeJSON(w, http.StatusCreated, sess)
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req account.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		logger.Warn("[Login] 登录失败", logger.String("email", req.Email), logger.ErrorField(err))
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// MeHandler 当前用户
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": CurrentUser(r.Context())})
}

// LogoutHandler 令牌可选；有效时记录登出
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if token, err := bearerToken(r); err == nil {
		if user, err := h.accounts.Resolve(r.Context(), token); err == nil {
			h.accounts.Logout(r.Context(), user.ID)
		}
	}
	writeMessage(w, http.StatusOK, "Logged out")
}
