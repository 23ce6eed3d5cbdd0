package server

import (
	"net/http"
	"strings"

	"Soundbay/apperr"
	"Soundbay/core/checkout"

	"github.com/gorilla/mux"
)

// GetCartHandler 当前购物车
func (h *APIHandler) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	cart, err := h.checkout.List(r.Context(), CurrentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// AddToCartHandler body: {"trackId": "..."}
func (h *APIHandler) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID string `json:"trackId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.TrackID = strings.TrimSpace(req.TrackID)
	if req.TrackID == "" {
		writeError(w, r, apperr.Validation("trackId is required"))
		return
	}
	if err := h.checkout.Add(r.Context(), CurrentUser(r.Context()).ID, req.TrackID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Track added to cart")
}

// RemoveFromCartHandler 从购物车移除
func (h *APIHandler) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.Remove(r.Context(), CurrentUser(r.Context()).ID, mux.Vars(r)["trackId"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Item removed")
}

// CheckoutHandler 模拟支付并生成订单
func (h *APIHandler) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var payment checkout.PaymentDetails
	if err := decodeJSON(r, &payment); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.checkout.Checkout(r.Context(), CurrentUser(r.Context()).ID, payment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Purchase completed",
		"orderId": order.ID,
	})
}
