package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/ShoppingGo/pkg/httputil"
	"github.com/utafrali/ShoppingGo/pkg/validator"

	"github.com/utafrali/ShoppingGo/internal/service"
)

// InventoryHandler serves the stock management endpoints.
type InventoryHandler struct {
	inventory *service.InventoryService
	logger    *slog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventory *service.InventoryService, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, logger: logger}
}

// QuantityRequest is the body for stock add/remove operations.
type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// AvailabilityResponse reports a product's reservable quantity.
type AvailabilityResponse struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
}

// GetAvailability handles GET /inventory/{productID}/availability.
func (h *InventoryHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	available, err := h.inventory.GetAvailable(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AvailabilityResponse{ProductID: productID, Available: available},
	})
}

func (h *InventoryHandler) quantityRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return 0, false
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return 0, false
	}
	return req.Quantity, true
}

// AddQuantity handles POST /inventory/{productID}/add.
func (h *InventoryHandler) AddQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	quantity, ok := h.quantityRequest(w, r)
	if !ok {
		return
	}
	if err := h.inventory.AddQuantity(r.Context(), productID, quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	available, err := h.inventory.GetAvailable(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AvailabilityResponse{ProductID: productID, Available: available},
	})
}

// RemoveQuantity handles POST /inventory/{productID}/remove.
func (h *InventoryHandler) RemoveQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	quantity, ok := h.quantityRequest(w, r)
	if !ok {
		return
	}
	if err := h.inventory.RemoveQuantity(r.Context(), productID, quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	available, err := h.inventory.GetAvailable(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: AvailabilityResponse{ProductID: productID, Available: available},
	})
}
