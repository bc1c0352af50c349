package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Handler wires cart sessions to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Currency string
}

type addItemRequest struct {
	ProductID string         `json:"productId" validate:"required"`
	Name      string         `json:"name"`
	UnitPrice *pricing.Money `json:"unitPrice" validate:"omitempty,gte=0"`
	ImageURL  string         `json:"imageUrl"`
}

type updateQtyRequest struct {
	Qty int `json:"qty"`
}

type applyPromotionRequest struct {
	Code       string        `json:"code"`
	ID         string        `json:"id"`
	Kind       pricing.Kind  `json:"kind" validate:"omitempty,oneof=percentage fixed"`
	PercentBps int32         `json:"percentBps" validate:"omitempty,gte=0,lte=10000"`
	Amount     pricing.Money `json:"amount" validate:"omitempty,gte=0"`
	Desc       string        `json:"description"`
}

type promoCodeRequest struct {
	Code string `json:"code"`
}

type customerRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	FormOpen bool   `json:"formOpen"`
}

type paymentRequest struct {
	Method         string        `json:"method" validate:"required"`
	ReceivedAmount pricing.Money `json:"receivedAmount" validate:"gte=0"`
	Open           bool          `json:"open"`
}

// Create opens a new cart session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	id, st, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusCreated, id, st)
}

// Get returns the session state with a pricing preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// AddItem adds or increments a cart line. When only a product id is
// sent the product details are resolved from the store backend.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload addItemRequest
	if !h.decode(w, r, &payload) {
		return
	}
	var (
		st  State
		err error
	)
	if payload.UnitPrice == nil {
		st, err = h.Svc.AddItemByID(r.Context(), id, payload.ProductID)
	} else {
		st, err = h.Svc.AddItem(r.Context(), id, Product{
			ID:       payload.ProductID,
			Name:     payload.Name,
			Price:    *payload.UnitPrice,
			ImageURL: payload.ImageURL,
		})
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// UpdateItem sets a line quantity; zero or below removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	productID := chi.URLParam(r, "productId")
	var payload updateQtyRequest
	if !h.decode(w, r, &payload) {
		return
	}
	st, err := h.Svc.UpdateQuantity(r.Context(), id, productID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// RemoveItem deletes a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	productID := chi.URLParam(r, "productId")
	st, err := h.Svc.RemoveItem(r.Context(), id, productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// Destroy drops the session entirely.
func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear empties the cart and all sale drafts.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.Svc.ClearCart(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// ApplyPromotion applies a promotion by code (resolved upstream) or as
// a fully described promotion object.
func (h *Handler) ApplyPromotion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload applyPromotionRequest
	if !h.decode(w, r, &payload) {
		return
	}
	var (
		st  State
		err error
	)
	if payload.ID != "" {
		st, err = h.Svc.ApplyPromotion(r.Context(), id, Promotion{
			ID:          payload.ID,
			Code:        payload.Code,
			Description: payload.Desc,
			Kind:        payload.Kind,
			PercentBps:  payload.PercentBps,
			Amount:      payload.Amount,
		})
	} else {
		code := strings.TrimSpace(payload.Code)
		if code == "" {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code or promotion id is required", nil)
			return
		}
		st, err = h.Svc.ApplyPromotionCode(r.Context(), id, code)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// RemovePromotion removes one ledger entry by id.
func (h *Handler) RemovePromotion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	promoID := chi.URLParam(r, "promoId")
	st, err := h.Svc.RemovePromotion(r.Context(), id, promoID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// RemoveAllPromotions clears the ledger and the promo code input.
func (h *Handler) RemoveAllPromotions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.Svc.RemovePromotion(r.Context(), id, "")
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// SetPromoCode updates the promo code input field.
func (h *Handler) SetPromoCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload promoCodeRequest
	if !h.decode(w, r, &payload) {
		return
	}
	st, err := h.Svc.SetPromoCode(r.Context(), id, strings.TrimSpace(payload.Code))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// SetCustomer replaces the customer draft.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload customerRequest
	if !h.decode(w, r, &payload) {
		return
	}
	st, err := h.Svc.SetCustomer(r.Context(), id, Customer{
		ID:    payload.ID,
		Name:  payload.Name,
		Phone: payload.Phone,
	}, payload.FormOpen)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// SetPayment replaces the payment draft.
func (h *Handler) SetPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload paymentRequest
	if !h.decode(w, r, &payload) {
		return
	}
	st, err := h.Svc.SetPayment(r.Context(), id, Payment{
		Method:         payload.Method,
		ReceivedAmount: payload.ReceivedAmount,
	}, payload.Open)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) render(w http.ResponseWriter, status int, id string, st State) {
	summary := st.Summary()
	lines := st.Lines
	if lines == nil {
		lines = []Line{}
	}
	promos := st.Promotions
	if promos == nil {
		promos = []Promotion{}
	}
	common.JSON(w, status, map[string]any{
		"data": map[string]any{
			"id":         id,
			"lines":      lines,
			"promotions": promos,
			"promoCode":  st.PromoCode,
			"promoError": st.PromoError,
			"customer":   st.Customer,
			"payment": map[string]any{
				"method":         st.Payment.Method,
				"receivedAmount": st.Payment.ReceivedAmount,
				"change":         st.Change(),
			},
			"pricing": map[string]any{
				"subtotal": summary.Subtotal,
				"discount": summary.Discount,
				"total":    summary.Total,
			},
			"currency": h.Currency,
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
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
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrPromotionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
