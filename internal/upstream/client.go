package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

// ErrUnavailable indicates the backend rejected or failed the call in a
// way that is not the caller's fault.
var ErrUnavailable = errors.New("upstream: backend unavailable")

// Client talks to the store backend REST API. It satisfies the cart
// service's PromotionSource and ProductSource contracts and carries the
// order / import-receipt submission calls.
type Client struct {
	BaseURL string
	Token   string
	HTTP    resilience.HTTPClient
}

// OrderItem is one line of an order submission.
type OrderItem struct {
	ProductID string        `json:"productId"`
	Quantity  int           `json:"quantity"`
	Price     pricing.Money `json:"price"`
}

// OrderPayload is the order creation body posted to /Order.
type OrderPayload struct {
	CustomerID string        `json:"customerId"`
	UserID     string        `json:"userId"`
	PromoID    string        `json:"promoId,omitempty"`
	PromoCode  string        `json:"promoCode,omitempty"`
	OrderItems []OrderItem   `json:"orderItems"`
	Status     string        `json:"status"`
	Total      pricing.Money `json:"totalAmount,omitempty"`
}

// ImportItem is one line of an import-receipt submission.
type ImportItem struct {
	ProductID string        `json:"productId"`
	Quantity  int           `json:"quantity"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Subtotal  pricing.Money `json:"subtotal"`
}

// ImportPayload is the goods-receiving body posted to /Import.
type ImportPayload struct {
	SupplierID  string        `json:"supplierId"`
	UserID      string        `json:"userId"`
	ImportDate  string        `json:"importDate"`
	TotalAmount pricing.Money `json:"totalAmount"`
	Status      string        `json:"status"`
	Note        string        `json:"note,omitempty"`
	ImportItems []ImportItem  `json:"importItems"`
}

// CreateResult carries the identifier the backend assigned to a created
// resource.
type CreateResult struct {
	ID string `json:"id"`
}

type promotionResponse struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
}

type productResponse struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Price    pricing.Money `json:"price"`
	ImageURL string        `json:"imageUrl"`
}

// PromotionByCode resolves a promo code. A 404 from the backend maps to
// cart.ErrPromotionNotFound so the cart service can turn it into a
// session-level promo error instead of a transport failure.
func (c *Client) PromotionByCode(ctx context.Context, code string) (cart.Promotion, error) {
	var resp promotionResponse
	err := c.getJSON(ctx, "/Promotion/code/"+code, &resp)
	if err != nil {
		if errors.Is(err, errStatusNotFound) {
			return cart.Promotion{}, cart.ErrPromotionNotFound
		}
		return cart.Promotion{}, err
	}
	promo := cart.Promotion{
		ID:          resp.ID,
		Code:        resp.Code,
		Description: resp.Description,
	}
	switch strings.ToLower(resp.DiscountType) {
	case "percentage":
		promo.Kind = pricing.KindPercentage
		promo.PercentBps = int32(math.Round(resp.DiscountValue * 100))
	case "fixed":
		promo.Kind = pricing.KindFixed
		promo.Amount = pricing.Money(math.Round(resp.DiscountValue))
	default:
		// unknown types contribute nothing to pricing but stay visible
		promo.Kind = pricing.Kind(resp.DiscountType)
	}
	return promo, nil
}

// ProductByID fetches the catalog projection needed to open a cart line.
func (c *Client) ProductByID(ctx context.Context, id string) (cart.Product, error) {
	var resp productResponse
	if err := c.getJSON(ctx, "/Product/"+id, &resp); err != nil {
		if errors.Is(err, errStatusNotFound) {
			return cart.Product{}, cart.ErrProductNotFound
		}
		return cart.Product{}, err
	}
	return cart.Product{
		ID:       resp.ID,
		Name:     resp.Name,
		Price:    resp.Price,
		ImageURL: resp.ImageURL,
	}, nil
}

// CreateOrder submits a finished sale.
func (c *Client) CreateOrder(ctx context.Context, payload OrderPayload) (CreateResult, error) {
	payload.Status = MapStatus(payload.Status)
	var out CreateResult
	if err := c.postJSON(ctx, "/Order", payload, &out); err != nil {
		return CreateResult{}, err
	}
	return out, nil
}

// CreateImportReceipt submits a goods-receiving document.
func (c *Client) CreateImportReceipt(ctx context.Context, payload ImportPayload) (CreateResult, error) {
	payload.Status = MapStatus(payload.Status)
	var out CreateResult
	if err := c.postJSON(ctx, "/Import", payload, &out); err != nil {
		return CreateResult{}, err
	}
	return out, nil
}

// Ping probes the backend for readiness checks. Any HTTP answer counts
// as reachable; only transport failures are reported.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.BaseURL == "" {
		return errors.New("upstream: client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url("/"), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

var errStatusNotFound = errors.New("upstream: not found")

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	return c.roundTrip(c.HTTP, req, out)
}

// postJSON is single-attempt: replaying a create could duplicate the
// order or import document on the backend.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("upstream: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	hc := c.HTTP
	hc.MaxAttempts = 1
	return c.roundTrip(hc, req, out)
}

func (c *Client) roundTrip(hc resilience.HTTPClient, req *http.Request, out any) error {
	if c == nil || c.BaseURL == "" {
		return errors.New("upstream: client not configured")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := hc.Do(req.Context(), req)
	if err != nil {
		if errors.Is(err, resilience.ErrOpenCircuit) {
			return fmt.Errorf("%w: %s", ErrUnavailable, err)
		}
		return fmt.Errorf("upstream: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errStatusNotFound
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("upstream: decode response: %w", err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}
