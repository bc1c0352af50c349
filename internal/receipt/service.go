package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/session"
	"github.com/noah-isme/backend-pos/internal/upstream"
)

// ErrNotFound indicates the requested receipt session could not be located.
var ErrNotFound = errors.New("receipt session not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrEmptyReceipt is returned when submitting a receipt without lines.
var ErrEmptyReceipt = errors.New("receipt has no lines")

const sessionKind = "receipt"

// ProductSource resolves product details when the caller only sends an id.
type ProductSource interface {
	ProductByID(ctx context.Context, id string) (Product, error)
}

// Submitter posts the finished import document to the store backend.
type Submitter interface {
	CreateImportReceipt(ctx context.Context, payload upstream.ImportPayload) (upstream.CreateResult, error)
}

// Service owns goods-receiving sessions with the same serialization
// guarantee as the cart service: one mutation at a time per session.
type Service struct {
	Store     session.Store
	Locker    lock.Locker
	TTL       time.Duration
	Now       func() time.Time
	Products  ProductSource
	Submitter Submitter
	Events    *events.Bus
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens a new empty receipt session and returns its identifier.
func (s *Service) Create(ctx context.Context) (string, State, error) {
	if s == nil || s.Store == nil {
		return "", State{}, errors.New("receipt service not configured")
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
		return State{}, errors.New("receipt service not configured")
	}
	return s.load(ctx, id)
}

// Delete drops the session entirely.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.Store == nil {
		return errors.New("receipt service not configured")
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

// AddItemByID hydrates the product price from the backend before adding it.
func (s *Service) AddItemByID(ctx context.Context, id string, productID string) (State, error) {
	if productID == "" {
		return State{}, fmt.Errorf("product id is required: %w", ErrInvalidInput)
	}
	if s == nil || s.Products == nil {
		return State{}, errors.New("receipt service has no product source")
	}
	prod, err := s.Products.ProductByID(ctx, productID)
	if err != nil {
		return State{}, err
	}
	return s.AddItem(ctx, id, prod)
}

// UpdateLine sets one field (quantity or unitPrice) of the line at index.
func (s *Service) UpdateLine(ctx context.Context, id string, index int, field string, value pricing.Money) (State, error) {
	if field != FieldQuantity && field != FieldUnitPrice {
		return State{}, fmt.Errorf("unknown field %q: %w", field, ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(st *State) error {
		st.UpdateLine(index, field, value)
		return nil
	})
}

// RemoveLine deletes the line at index.
func (s *Service) RemoveLine(ctx context.Context, id string, index int) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.RemoveLine(index)
		return nil
	})
}

// ClearLines drops all lines while keeping supplier and note drafts.
func (s *Service) ClearLines(ctx context.Context, id string) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.ClearLines()
		return nil
	})
}

// SetSupplier updates the supplier draft.
func (s *Service) SetSupplier(ctx context.Context, id string, supplierID string, pickerOpen bool) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.SupplierID = supplierID
		st.PickerOpen = pickerOpen
		return nil
	})
}

// SetNote updates the note draft.
func (s *Service) SetNote(ctx context.Context, id string, note string) (State, error) {
	return s.mutate(ctx, id, func(st *State) error {
		st.Note = note
		return nil
	})
}

// SubmitInput carries the document-level fields provided at submission.
type SubmitInput struct {
	UserID string
	Status string
}

// Submit posts the receipt to the backend as an import document and, on
// success, resets the session and emits a receipt.created event. The
// whole operation runs under the session lock so a concurrent mutation
// cannot slip between reading the lines and clearing them.
func (s *Service) Submit(ctx context.Context, id string, in SubmitInput) (upstream.CreateResult, error) {
	if s == nil || s.Store == nil {
		return upstream.CreateResult{}, errors.New("receipt service not configured")
	}
	if s.Submitter == nil {
		return upstream.CreateResult{}, errors.New("receipt service has no submitter")
	}
	if in.UserID == "" {
		return upstream.CreateResult{}, fmt.Errorf("user id is required: %w", ErrInvalidInput)
	}

	var result upstream.CreateResult
	err := s.Locker.WithLock(ctx, lock.SessionKey(sessionKind, id), 10*time.Second, func(ctx context.Context) error {
		st, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if len(st.Lines) == 0 {
			return ErrEmptyReceipt
		}
		if st.SupplierID == "" {
			return fmt.Errorf("supplier is required: %w", ErrInvalidInput)
		}

		payload := upstream.ImportPayload{
			SupplierID:  st.SupplierID,
			UserID:      in.UserID,
			ImportDate:  s.now().UTC().Format(time.RFC3339),
			TotalAmount: st.Total(),
			Status:      in.Status,
			Note:        st.Note,
			ImportItems: make([]upstream.ImportItem, 0, len(st.Lines)),
		}
		for _, l := range st.Lines {
			payload.ImportItems = append(payload.ImportItems, upstream.ImportItem{
				ProductID: l.ProductID,
				Quantity:  l.Qty,
				UnitPrice: l.UnitPrice,
				Subtotal:  l.Subtotal,
			})
		}

		result, err = s.Submitter.CreateImportReceipt(ctx, payload)
		if err != nil {
			return err
		}

		st.Reset()
		return s.save(ctx, id, st)
	})
	if err != nil {
		return upstream.CreateResult{}, err
	}

	obs.IncReceiptsSubmitted()
	if s.Events != nil {
		if _, emitErr := s.Events.Emit(ctx, events.TopicReceiptCreated, result.ID, result); emitErr != nil {
			zerolog.Ctx(ctx).Warn().Err(emitErr).Msg("emit receipt.created")
		}
	}
	return result, nil
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
		return State{}, fmt.Errorf("decode receipt session: %w", err)
	}
	return st, nil
}

func (s *Service) save(ctx context.Context, id string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode receipt session: %w", err)
	}
	return s.Store.Save(ctx, sessionKind, id, data, s.ttl())
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*State) error) (State, error) {
	if s == nil || s.Store == nil {
		return State{}, errors.New("receipt service not configured")
	}
	var out State
	err := s.Locker.WithLock(ctx, lock.SessionKey(sessionKind, id), 5*time.Second, func(ctx context.Context) error {
		st, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&st); err != nil {
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
