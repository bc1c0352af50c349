package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/session"
)

// ErrNotFound indicates the requested cart session could not be located.
var ErrNotFound = errors.New("cart session not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

const sessionKind = "cart"

// PromotionSource resolves promo codes against the store backend.
type PromotionSource interface {
	PromotionByCode(ctx context.Context, code string) (Promotion, error)
}

// ProductSource resolves product details when the caller only sends an id.
type ProductSource interface {
	ProductByID(ctx context.Context, id string) (Product, error)
}

// ErrPromotionNotFound is reported by PromotionSource implementations
// when the code does not resolve to an active promotion.
var ErrPromotionNotFound = errors.New("promotion not found")

// ErrProductNotFound is reported by ProductSource implementations when
// the id does not resolve to a catalog product.
var ErrProductNotFound = errors.New("product not found")

// Service owns cart sessions. Every mutation loads the session, applies
// a single reducer step and saves the result under the session lock, so
// operations on one cart are strictly serialized.
type Service struct {
	Store      session.Store
	Locker     lock.Locker
	TTL        time.Duration
	Now        func() time.Time
	Promotions PromotionSource
	Products   ProductSource
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

// Create opens a new empty cart session and returns its identifier.
func (s *Service) Create(ctx context.Context) (string, State, error) {
	if s == nil || s.Store == nil {
		return "", State{}, errors.New("cart service not configured")
	}
	id := uuid.NewString()
	st := State{}
	if err := s.save(ctx, id, st); err != nil {
		return "", State{}, err
	}
	return id, st, nil
}

// Get loads the current session state.
func (s *Service) Get(ctx context.Context, id string) (State, error) {
	if s == nil || s.Store == nil {
		return State{}, errors.New("cart service not configured")
	}
	return s.load(ctx, id)
}

// Delete drops the session entirely.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.Store == nil {
		return errors.New("cart service not configured")
	}
	return s.Store.Delete(ctx, sessionKind, id)
}

// AddItem adds or increments a line for the provided product.
func (s *Service) AddItem(ctx context.Context, id string, prod Product) (State, error) {
	if prod.ID == "" {
		return State{}, fmt.Errorf("product id is required: %w", ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(st *State) error {
		st.AddLine(prod)
		return nil
	})
}

// AddItemByID hydrates the product from the backend before adding it.
func (s *Service) AddItemByID(ctx context.Context, id string, productID string) (State, error) {
	if productID == "" {
		return State{}, fmt.Errorf("product id is required: %w", ErrInvalidInput)
	}
	if s == nil || s.Products == nil {
		return State{}, errors.New("cart service has no product source")
	}
	prod, err := s.Products.ProductByID(ctx, productID)
	if err != nil {
		return State{}, err
	}
	return s.AddItem(ctx, id, prod)
}

// UpdateQuantity sets a line's quantity; zero or negative removes it.
func (s *Service) UpdateQuantity(ctx context.Context, id string, productID string, qty int) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.UpdateQuantity(productID, qty)
		return nil
	})
}

// RemoveItem deletes a line by product id.
func (s *Service) RemoveItem(ctx context.Context, id string, productID string) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.RemoveLine(productID)
		return nil
	})
}

// ClearCart resets the whole sale: lines, ledger, promo input, payment
// and customer drafts.
func (s *Service) ClearCart(ctx context.Context, id string) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.Clear()
		return nil
	})
}

// ApplyPromotion appends an already-resolved promotion to the ledger.
func (s *Service) ApplyPromotion(ctx context.Context, id string, promo Promotion) (State, error) {
	if promo.ID == "" {
		return State{}, fmt.Errorf("promotion id is required: %w", ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(st *State) error {
		st.ApplyPromotion(promo)
		return nil
	})
}

// ApplyPromotionCode records the code input, resolves it against the
// backend and either applies the promotion or records the lookup
// failure as the session's promo error. Lookup failures are part of the
// sale state, not transport errors.
func (s *Service) ApplyPromotionCode(ctx context.Context, id string, code string) (State, error) {
	if code == "" {
		return State{}, fmt.Errorf("promo code is required: %w", ErrInvalidInput)
	}
	if s == nil || s.Promotions == nil {
		return State{}, errors.New("cart service has no promotion source")
	}
	return s.mutate(ctx, id, func(st *State) error {
		st.SetPromoCode(code)
		promo, err := s.Promotions.PromotionByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrPromotionNotFound) {
				st.SetPromoError("promo code is not valid")
				obs.IncPromotionApplied("invalid")
				return nil
			}
			return err
		}
		st.ApplyPromotion(promo)
		obs.IncPromotionApplied("applied")
		return nil
	})
}

// RemovePromotion removes one ledger entry by id, or the entire ledger
// (and the promo code input) when promoID is empty.
func (s *Service) RemovePromotion(ctx context.Context, id string, promoID string) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		if promoID == "" {
			st.RemoveAllPromotions()
			return nil
		}
		st.RemovePromotion(promoID)
		return nil
	})
}

// SetPromoCode updates the code input field.
func (s *Service) SetPromoCode(ctx context.Context, id string, code string) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.SetPromoCode(code)
		return nil
	})
}

// SetCustomer replaces the customer draft.
func (s *Service) SetCustomer(ctx context.Context, id string, c Customer, formOpen bool) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.Customer = c
		st.CustomerFormOpen = formOpen
		return nil
	})
}

// SetPayment replaces the payment draft.
func (s *Service) SetPayment(ctx context.Context, id string, p Payment, open bool) (State, error) {
	if p.ReceivedAmount < 0 {
		return State{}, fmt.Errorf("received amount must not be negative: %w", ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(st *State) error {
		st.Payment = p
		st.PaymentOpen = open
		return nil
	})
}

func (s *Service) load(ctx context.Context, id string) (State, error) {
	data, err := s.Store.Load(ctx, sessionKind, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return State{}, ErrNotFound
		}
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decode cart session: %w", err)
	}
	return st, nil
}

func (s *Service) save(ctx context.Context, id string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode cart session: %w", err)
	}
	return s.Store.Save(ctx, sessionKind, id, data, s.ttl())
}

// Update runs fn against the session state under the session lock and
// persists the result. It is the single write path for cart sessions;
// callers that need to combine a read, an external call and a mutation
// atomically (checkout does) build on it.
func (s *Service) Update(ctx context.Context, id string, fn func(ctx context.Context, st *State) error) (State, error) {
	if s == nil || s.Store == nil {
		return State{}, errors.New("cart service not configured")
	}
	var out State
	err := s.Locker.WithLock(ctx, lock.SessionKey(sessionKind, id), 10*time.Second, func(ctx context.Context) error {
		st, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, &st); err != nil {
			return err
		}
		if err := s.save(ctx, id, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return State{}, err
	}
	return out, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*State) error) (State, error) {
	return s.Update(ctx, id, func(_ context.Context, st *State) error {
		return fn(st)
	})
}
