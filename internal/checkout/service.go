package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/upstream"
)

// ErrEmptyCart is returned when checking out a cart without lines.
var ErrEmptyCart = errors.New("cart has no lines")

// ErrInvalidInput is returned when the checkout request is incomplete.
var ErrInvalidInput = errors.New("invalid input")

// OrderCreator posts the finished sale to the store backend.
type OrderCreator interface {
	CreateOrder(ctx context.Context, payload upstream.OrderPayload) (upstream.CreateResult, error)
}

// Service turns a cart session into an order submission. The cart is
// read, submitted and cleared inside the session lock so a concurrent
// cart mutation can never be half-included in the order.
type Service struct {
	Carts  *cart.Service
	Orders OrderCreator
	Events *events.Bus
}

// Input carries the document-level fields provided at checkout.
type Input struct {
	UserID     string
	CustomerID string
	Status     string
}

// Result is the checkout outcome returned to the terminal.
type Result struct {
	OrderID string
	State   cart.State
}

// Checkout submits the sale built up in the cart session. Payment draft
// and customer draft on the session take precedence over nothing: the
// customer id may come from the request or from the session's customer
// draft. Submission is a single attempt; the caller retries by
// re-issuing the request (idempotency middleware dedupes replays).
func (s *Service) Checkout(ctx context.Context, cartID string, in Input) (Result, error) {
	if s == nil || s.Carts == nil {
		return Result{}, errors.New("checkout service not configured")
	}
	if s.Orders == nil {
		return Result{}, errors.New("checkout service has no order creator")
	}
	if in.UserID == "" {
		return Result{}, fmt.Errorf("user id is required: %w", ErrInvalidInput)
	}

	var result Result
	st, err := s.Carts.Update(ctx, cartID, func(ctx context.Context, st *cart.State) error {
		if len(st.Lines) == 0 {
			return ErrEmptyCart
		}

		customerID := in.CustomerID
		if customerID == "" {
			customerID = st.Customer.ID
		}

		payload := upstream.OrderPayload{
			CustomerID: customerID,
			UserID:     in.UserID,
			PromoCode:  st.PromoCode,
			Status:     in.Status,
			Total:      st.Summary().Total,
			OrderItems: make([]upstream.OrderItem, 0, len(st.Lines)),
		}
		if len(st.Promotions) > 0 {
			payload.PromoID = st.Promotions[0].ID
		}
		for _, l := range st.Lines {
			payload.OrderItems = append(payload.OrderItems, upstream.OrderItem{
				ProductID: l.ProductID,
				Quantity:  l.Qty,
				Price:     l.UnitPrice,
			})
		}

		created, err := s.Orders.CreateOrder(ctx, payload)
		if err != nil {
			return err
		}
		result.OrderID = created.ID

		st.Clear()
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	result.State = st

	obs.IncOrdersSubmitted()
	if s.Events != nil {
		if _, emitErr := s.Events.Emit(ctx, events.TopicOrderCreated, result.OrderID, map[string]string{
			"orderId": result.OrderID,
			"cartId":  cartID,
		}); emitErr != nil {
			zerolog.Ctx(ctx).Warn().Err(emitErr).Msg("emit order.created")
		}
	}
	return result, nil
}
