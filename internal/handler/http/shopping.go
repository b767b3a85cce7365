package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ShoppingGo/pkg/httputil"

	"github.com/utafrali/ShoppingGo/internal/service"
)

// ShoppingHandler serves the checkout saga endpoints.
type ShoppingHandler struct {
	shopping *service.ShoppingService
	logger   *slog.Logger
}

// NewShoppingHandler creates a new shopping handler.
func NewShoppingHandler(shopping *service.ShoppingService, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{shopping: shopping, logger: logger}
}

// StatusResponse reports the cart's checkout status after a saga step.
type StatusResponse struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// GetConsolidatedCart handles GET /shopping/{userID}/cart.
func (h *ShoppingHandler) GetConsolidatedCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	cart, err := h.shopping.GetConsolidatedCart(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ReserveCartItems handles POST /shopping/{userID}/reserve.
func (h *ShoppingHandler) ReserveCartItems(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.shopping.ReserveCartItems(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: StatusResponse{UserID: userID, Status: "WAITING_FOR_PAYMENT"},
	})
}

// ConfirmOrder handles POST /shopping/{userID}/confirm.
func (h *ShoppingHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.shopping.ConfirmOrder(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: StatusResponse{UserID: userID, Status: "SHOPPING"},
	})
}

// CancelOrder handles POST /shopping/{userID}/cancel.
func (h *ShoppingHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.shopping.CancelOrder(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: StatusResponse{UserID: userID, Status: "SHOPPING"},
	})
}
