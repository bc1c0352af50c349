package cart

import (
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Product is the catalog projection needed to open a cart line.
type Product struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Price    pricing.Money `json:"price"`
	ImageURL string        `json:"imageUrl,omitempty"`
}

// Line is a single cart entry. Subtotal is always derived from
// Qty and UnitPrice, never set independently.
type Line struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	ImageURL  string        `json:"imageUrl,omitempty"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Qty       int           `json:"qty"`
	Subtotal  pricing.Money `json:"subtotal"`
}

// Promotion is an entry in the applied-promotion ledger, unique by ID.
type Promotion struct {
	ID          string        `json:"id"`
	Code        string        `json:"code"`
	Description string        `json:"description,omitempty"`
	Kind        pricing.Kind  `json:"kind"`
	PercentBps  int32         `json:"percentBps,omitempty"`
	Amount      pricing.Money `json:"amount,omitempty"`
}

// Customer is the draft customer attached to the sale.
type Customer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Payment is the draft payment selection for the sale.
type Payment struct {
	Method         string        `json:"method,omitempty"`
	ReceivedAmount pricing.Money `json:"receivedAmount,omitempty"`
}

// State is the full cart session: line store, promotion ledger and the
// UI drafts that clear together with the cart. All mutating methods are
// reducer-style: they either fully apply or leave the state untouched,
// and impossible inputs (missing ids, unknown products) are silent
// no-ops rather than errors.
type State struct {
	Lines            []Line      `json:"lines"`
	Promotions       []Promotion `json:"promotions"`
	PromoCode        string      `json:"promoCode"`
	PromoError       string      `json:"promoError,omitempty"`
	Customer         Customer    `json:"customer"`
	Payment          Payment     `json:"payment"`
	CustomerFormOpen bool        `json:"customerFormOpen,omitempty"`
	PaymentOpen      bool        `json:"paymentOpen,omitempty"`
}

// AddLine appends a new line with quantity 1 or increments an existing
// line for the same product. The stored unit price is authoritative for
// increments. Products without an id are ignored.
func (s *State) AddLine(p Product) {
	if p.ID == "" {
		return
	}
	for i := range s.Lines {
		if s.Lines[i].ProductID == p.ID {
			s.Lines[i].Qty++
			s.Lines[i].Subtotal = pricing.Money(s.Lines[i].Qty) * s.Lines[i].UnitPrice
			return
		}
	}
	price := p.Price
	if price < 0 {
		price = 0
	}
	s.Lines = append(s.Lines, Line{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		UnitPrice: price,
		Qty:       1,
		Subtotal:  price,
	})
}

// UpdateQuantity sets the quantity for a product's line, removing the
// line entirely when qty drops to zero or below. Unknown products are a
// no-op.
func (s *State) UpdateQuantity(productID string, qty int) {
	for i := range s.Lines {
		if s.Lines[i].ProductID != productID {
			continue
		}
		if qty <= 0 {
			s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
			return
		}
		s.Lines[i].Qty = qty
		s.Lines[i].Subtotal = pricing.Money(qty) * s.Lines[i].UnitPrice
		return
	}
}

// RemoveLine deletes the line for the product if present.
func (s *State) RemoveLine(productID string) {
	for i := range s.Lines {
		if s.Lines[i].ProductID == productID {
			s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart and resets every draft that belongs to the
// sale: promotion ledger, promo code input, payment selection and
// customer form.
func (s *State) Clear() {
	*s = State{}
}

// ApplyPromotion appends the promotion unless one with the same id is
// already in the ledger. Applying clears any prior promo error.
func (s *State) ApplyPromotion(p Promotion) {
	s.PromoError = ""
	if p.ID == "" {
		return
	}
	for _, existing := range s.Promotions {
		if existing.ID == p.ID {
			return
		}
	}
	s.Promotions = append(s.Promotions, p)
}

// RemovePromotion removes a single ledger entry by id and clears any
// promo error.
func (s *State) RemovePromotion(promoID string) {
	s.PromoError = ""
	for i := range s.Promotions {
		if s.Promotions[i].ID == promoID {
			s.Promotions = append(s.Promotions[:i], s.Promotions[i+1:]...)
			return
		}
	}
}

// RemoveAllPromotions clears the whole ledger together with the promo
// code input and any error.
func (s *State) RemoveAllPromotions() {
	s.Promotions = nil
	s.PromoCode = ""
	s.PromoError = ""
}

// SetPromoCode updates the code input and clears any existing error.
func (s *State) SetPromoCode(code string) {
	s.PromoCode = code
	s.PromoError = ""
}

// SetPromoError records a promo lookup failure for the UI.
func (s *State) SetPromoError(message string) {
	s.PromoError = message
}

// Summary derives pricing totals from the current lines and ledger.
// It is pure: calling it never mutates the state.
func (s *State) Summary() pricing.Summary {
	lines := make([]pricing.Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, pricing.Line{Qty: l.Qty, UnitPrice: l.UnitPrice})
	}
	discounts := make([]pricing.Discount, 0, len(s.Promotions))
	for _, p := range s.Promotions {
		discounts = append(discounts, pricing.Discount{
			Kind:       p.Kind,
			PercentBps: p.PercentBps,
			Amount:     p.Amount,
		})
	}
	return pricing.Compute(lines, discounts)
}

// Change returns the cash change owed for the current payment draft,
// never negative.
func (s *State) Change() pricing.Money {
	change := s.Payment.ReceivedAmount - s.Summary().Total
	if change < 0 {
		return 0
	}
	return change
}
