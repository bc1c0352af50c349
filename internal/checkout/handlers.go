package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/upstream"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type checkoutRequest struct {
	UserID     string `json:"userId" validate:"required"`
	CustomerID string `json:"customerId"`
	Status     string `json:"status"`
}

// Checkout submits the cart session as an order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	result, err := h.Svc.Checkout(r.Context(), cartID, Input{
		UserID:     payload.UserID,
		CustomerID: payload.CustomerID,
		Status:     payload.Status,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"orderId": result.OrderID,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, upstream.ErrUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(), nil)
	}
}
