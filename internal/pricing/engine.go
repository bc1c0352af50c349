package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// PercentCapBps is the ceiling for stacked percentage discounts (100%).
const PercentCapBps int64 = 10000

// Kind identifies how a discount value is interpreted.
type Kind string

const (
	// KindPercentage discounts a fraction of the cart subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed discounts a fixed amount in minor units.
	KindFixed Kind = "fixed"
)

// Line describes a cart line used for pricing calculation.
type Line struct {
	Qty       int
	UnitPrice Money
}

// Discount describes a single applied promotion. Percentage discounts
// carry basis points, fixed discounts carry an amount in minor units.
type Discount struct {
	Kind       Kind
	PercentBps int32
	Amount     Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Discount Money
	Total    Money
}

// Compute derives cart totals from the current lines and applied
// discounts. Percentage discounts stack additively and are capped at
// 100% before being applied; fixed discounts are summed uncapped. The
// combined discount never exceeds the subtotal, so the total is never
// negative. Unknown kinds and non-positive values contribute zero.
func Compute(lines []Line, discounts []Discount) Summary {
	var subtotal Money
	for _, l := range lines {
		if l.Qty <= 0 || l.UnitPrice < 0 {
			continue
		}
		subtotal += Money(l.Qty) * l.UnitPrice
	}

	var percentBps int64
	var fixed Money
	for _, d := range discounts {
		switch d.Kind {
		case KindPercentage:
			if d.PercentBps > 0 {
				percentBps += int64(d.PercentBps)
			}
		case KindFixed:
			if d.Amount > 0 {
				fixed += d.Amount
			}
		}
	}
	if percentBps > PercentCapBps {
		percentBps = PercentCapBps
	}

	discount := (subtotal*Money(percentBps))/10000 + fixed
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal - discount,
	}
}
