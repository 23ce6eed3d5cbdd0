package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"Soundbay/apperr"
	"Soundbay/core/account"
	"Soundbay/core/admin"
	"Soundbay/core/catalog"
	"Soundbay/core/checkout"
	"Soundbay/core/library"
	"Soundbay/core/moderation"
	"Soundbay/core/notify"
	"Soundbay/core/seller"
	"Soundbay/logger"
)

// maxBodyBytes JSON 请求体上限
const maxBodyBytes = 1 << 20

// maxUploadBytes multipart 请求上限
const maxUploadBytes = 64 << 20

// APIHandler 处理所有API请求
type APIHandler struct {
	accounts   *account.Service
	catalog    *catalog.Service
	checkout   *checkout.Service
	library    *library.Service
	seller     *seller.Service
	admin      *admin.Service
	moderation *moderation.Engine
	notifier   *notify.Notifier
}

// Services 组装 APIHandler 所需的服务
type Services struct {
	Accounts   *account.Service
	Catalog    *catalog.Service
	Checkout   *checkout.Service
	Library    *library.Service
	Seller     *seller.Service
	Admin      *admin.Service
	Moderation *moderation.Engine
	Notifier   *notify.Notifier
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(s Services) *APIHandler {
	return &APIHandler{
		accounts:   s.Accounts,
		catalog:    s.Catalog,
		checkout:   s.Checkout,
		library:    s.Library,
		seller:     s.Seller,
		admin:      s.Admin,
		moderation: s.Moderation,
		notifier:   s.Notifier,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError 将 apperr 映射为状态码，其他错误记录后返回 500
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		if e.Err != nil {
			logger.Debug("request rejected", logger.String("path", r.URL.Path), logger.ErrorField(err))
		}
		writeMessage(w, e.Kind.Status(), e.Message)
		return
	}
	logger.Error("request failed",
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
		logger.ErrorField(err))
	writeMessage(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON 解析请求体，空请求体视为空对象
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
	}
	return nil
}

// HealthHandler 健康检查
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
