package receipt

import (
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Product is the minimal catalog projection needed to open a receipt line.
type Product struct {
	ID    string        `json:"id"`
	Price pricing.Money `json:"price"`
}

// Line is one goods-receiving entry. Subtotal is always derived from
// Qty and UnitPrice.
type Line struct {
	ProductID string        `json:"productId"`
	Qty       int           `json:"quantity"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Subtotal  pricing.Money `json:"subtotal"`
}

// Field names accepted by UpdateLine.
const (
	FieldQuantity  = "quantity"
	FieldUnitPrice = "unitPrice"
)

// State is a goods-receiving session: the line list plus the document
// drafts captured while the receipt is being put together. Mutations are
// reducer-style: out-of-range indexes and unknown fields are silent
// no-ops.
type State struct {
	Lines      []Line `json:"lines"`
	SupplierID string `json:"supplierId,omitempty"`
	Note       string `json:"note,omitempty"`
	PickerOpen bool   `json:"pickerOpen,omitempty"`
}

// AddLine increments the existing line for the product or appends a new
// one with quantity 1. Once a line exists its stored unit price is
// authoritative; the incoming product price is only used for new lines.
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
		Qty:       1,
		UnitPrice: price,
		Subtotal:  price,
	})
}

// UpdateLine sets one field of the line at index and recomputes its
// subtotal. Quantity is clamped to at least 1 and unit price to at
// least 0 so a line never violates the document's data model. Unknown
// fields and out-of-range indexes leave the state untouched.
func (s *State) UpdateLine(index int, field string, value pricing.Money) {
	if index < 0 || index >= len(s.Lines) {
		return
	}
	line := &s.Lines[index]
	switch field {
	case FieldQuantity:
		qty := int(value)
		if qty < 1 {
			qty = 1
		}
		line.Qty = qty
	case FieldUnitPrice:
		price := value
		if price < 0 {
			price = 0
		}
		line.UnitPrice = price
	default:
		return
	}
	line.Subtotal = pricing.Money(line.Qty) * line.UnitPrice
}

// RemoveLine deletes the line at index; out-of-range is a no-op.
func (s *State) RemoveLine(index int) {
	if index < 0 || index >= len(s.Lines) {
		return
	}
	s.Lines = append(s.Lines[:index], s.Lines[index+1:]...)
}

// ClearLines drops all lines but keeps the document drafts.
func (s *State) ClearLines() {
	s.Lines = nil
}

// Reset clears the whole session after a successful submission.
func (s *State) Reset() {
	*s = State{}
}

// Total sums the line subtotals.
func (s *State) Total() pricing.Money {
	var total pricing.Money
	for _, l := range s.Lines {
		total += l.Subtotal
	}
	return total
}
