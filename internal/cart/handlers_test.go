package cart_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/cart"
)

func newTestRouter(t *testing.T) (*chi.Mux, *cart.Service) {
	t.Helper()
	svc, _ := newTestService(t)
	handler := &cart.Handler{Svc: svc, Validate: validator.New(), Currency: "VND"}

	r := chi.NewRouter()
	r.Post("/carts", handler.Create)
	r.Get("/carts/{id}", handler.Get)
	r.Post("/carts/{id}/items", handler.AddItem)
	r.Patch("/carts/{id}/items/{productId}", handler.UpdateItem)
	r.Delete("/carts/{id}/items/{productId}", handler.RemoveItem)
	r.Post("/carts/{id}/promotions", handler.ApplyPromotion)
	r.Delete("/carts/{id}/promotions", handler.RemoveAllPromotions)
	r.Put("/carts/{id}/payment", handler.SetPayment)
	return r, svc
}

type envelope struct {
	Data struct {
		ID         string `json:"id"`
		Lines      []cart.Line
		Promotions []cart.Promotion
		PromoCode  string `json:"promoCode"`
		PromoError string `json:"promoError"`
		Payment    struct {
			Method         string `json:"method"`
			ReceivedAmount int64  `json:"receivedAmount"`
			Change         int64  `json:"change"`
		} `json:"payment"`
		Pricing struct {
			Subtotal int64 `json:"subtotal"`
			Discount int64 `json:"discount"`
			Total    int64 `json:"total"`
		} `json:"pricing"`
		Currency string `json:"currency"`
	} `json:"data"`
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func TestHandlerCartLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	rr, env := doJSON(t, r, http.MethodPost, "/carts", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	id := env.Data.ID
	require.NotEmpty(t, id)

	rr, env = doJSON(t, r, http.MethodPost, "/carts/"+id+"/items",
		`{"productId":"p9","name":"Milk","unitPrice":25000}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, env.Data.Lines, 1)
	require.EqualValues(t, 25000, env.Data.Pricing.Subtotal)
	require.Equal(t, "VND", env.Data.Currency)

	rr, env = doJSON(t, r, http.MethodPatch, "/carts/"+id+"/items/p9", `{"qty":3}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 75000, env.Data.Pricing.Subtotal)

	rr, env = doJSON(t, r, http.MethodPost, "/carts/"+id+"/promotions",
		`{"id":"pr1","code":"TEN","kind":"percentage","percentBps":1000}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 7500, env.Data.Pricing.Discount)
	require.EqualValues(t, 67500, env.Data.Pricing.Total)

	rr, env = doJSON(t, r, http.MethodPut, "/carts/"+id+"/payment",
		`{"method":"cash","receivedAmount":100000}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 32500, env.Data.Payment.Change)

	rr, env = doJSON(t, r, http.MethodDelete, "/carts/"+id+"/promotions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, env.Data.Promotions)
	require.EqualValues(t, 75000, env.Data.Pricing.Total)
}

func TestHandlerAddItemByIDHydrates(t *testing.T) {
	r, _ := newTestRouter(t)

	rr, env := doJSON(t, r, http.MethodPost, "/carts", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	id := env.Data.ID

	// no unitPrice in the payload: the product source supplies it
	rr, env = doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"p1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, env.Data.Lines, 1)
	require.EqualValues(t, 150000, env.Data.Lines[0].UnitPrice)

	rr, _ = doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"productId":"missing"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerApplyPromoCodeInvalidStaysOnSession(t *testing.T) {
	r, _ := newTestRouter(t)

	rr, env := doJSON(t, r, http.MethodPost, "/carts", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	id := env.Data.ID

	rr, env = doJSON(t, r, http.MethodPost, "/carts/"+id+"/promotions", `{"code":"NOPE"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "promo code is not valid", env.Data.PromoError)
	require.Empty(t, env.Data.Promotions)
}

func TestHandlerValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rr, env := doJSON(t, r, http.MethodPost, "/carts", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	id := env.Data.ID

	rr, _ = doJSON(t, r, http.MethodPost, "/carts/"+id+"/items", `{"name":"no id"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = doJSON(t, r, http.MethodPut, "/carts/"+id+"/payment", `{"receivedAmount":100}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = doJSON(t, r, http.MethodGet, "/carts/missing", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}
