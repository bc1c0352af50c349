package receipt

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Handler wires receipt sessions to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type addItemRequest struct {
	ProductID string         `json:"productId" validate:"required"`
	UnitPrice *pricing.Money `json:"unitPrice" validate:"omitempty,gte=0"`
}

type updateLineRequest struct {
	Field string        `json:"field" validate:"required,oneof=quantity unitPrice"`
	Value pricing.Money `json:"value" validate:"gte=0"`
}

type supplierRequest struct {
	SupplierID string `json:"supplierId"`
	PickerOpen bool   `json:"pickerOpen"`
}

type noteRequest struct {
	Note string `json:"note"`
}

type submitRequest struct {
	UserID string `json:"userId" validate:"required"`
	Status string `json:"status"`
}

// Create opens a new receipt session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "receipt service not configured", nil)
		return
	}
	id, st, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusCreated, id, st)
}

// Get returns the session state.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// Destroy drops the session entirely.
func (h *Handler) Destroy(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "receipt service not configured", nil)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem adds or increments a receipt line. When no unit price is sent
// the product price is resolved from the store backend.
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
			ID:    payload.ProductID,
			Price: *payload.UnitPrice,
		})
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// UpdateLine sets a line's quantity or unit price by index.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := common.ParseInt(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line index", nil)
		return
	}
	var payload updateLineRequest
	if !h.decode(w, r, &payload) {
		return
	}
	st, err := h.Svc.UpdateLine(r.Context(), id, index, payload.Field, payload.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// RemoveLine deletes a line by index.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := common.ParseInt(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line index", nil)
		return
	}
	st, err := h.Svc.RemoveLine(r.Context(), id, index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// Clear drops all lines while keeping the document drafts.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.Svc.ClearLines(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// SetSupplier updates the supplier draft.
func (h *Handler) SetSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload supplierRequest
	if !h.decode(w, r, &payload) {
		return
	}
	st, err := h.Svc.SetSupplier(r.Context(), id, payload.SupplierID, payload.PickerOpen)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// SetNote updates the note draft.
func (h *Handler) SetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload noteRequest
	if !h.decode(w, r, &payload) {
		return
	}
	st, err := h.Svc.SetNote(r.Context(), id, payload.Note)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, id, st)
}

// Submit posts the receipt to the backend as an import document.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload submitRequest
	if !h.decode(w, r, &payload) {
		return
	}
	result, err := h.Svc.Submit(r.Context(), id, SubmitInput{
		UserID: payload.UserID,
		Status: payload.Status,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"importId": result.ID,
		},
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "receipt service not configured", nil)
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
	lines := st.Lines
	if lines == nil {
		lines = []Line{}
	}
	common.JSON(w, status, map[string]any{
		"data": map[string]any{
			"id":         id,
			"lines":      lines,
			"supplierId": st.SupplierID,
			"note":       st.Note,
			"pickerOpen": st.PickerOpen,
			"total":      st.Total(),
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
	case errors.Is(err, ErrEmptyReceipt):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_RECEIPT", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, cart.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
