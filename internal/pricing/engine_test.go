package pricing

import "testing"

func TestComputeNoDiscounts(t *testing.T) {
	lines := []Line{
		{Qty: 2, UnitPrice: 150_000},
		{Qty: 1, UnitPrice: 200_000},
	}
	s := Compute(lines, nil)
	if s.Subtotal != 500_000 {
		t.Fatalf("expected subtotal 500000, got %d", s.Subtotal)
	}
	if s.Discount != 0 {
		t.Fatalf("expected zero discount, got %d", s.Discount)
	}
	if s.Total != 500_000 {
		t.Fatalf("expected total 500000, got %d", s.Total)
	}
}

func TestComputePercentPlusFixed(t *testing.T) {
	lines := []Line{
		{Qty: 2, UnitPrice: 150_000},
		{Qty: 1, UnitPrice: 200_000},
	}
	discounts := []Discount{
		{Kind: KindPercentage, PercentBps: 1000},
		{Kind: KindFixed, Amount: 50_000},
	}
	s := Compute(lines, discounts)
	if s.Discount != 100_000 {
		t.Fatalf("expected discount 100000, got %d", s.Discount)
	}
	if s.Total != 400_000 {
		t.Fatalf("expected total 400000, got %d", s.Total)
	}
}

func TestComputePercentStackCapped(t *testing.T) {
	lines := []Line{{Qty: 2, UnitPrice: 150_000}, {Qty: 1, UnitPrice: 200_000}}
	discounts := []Discount{
		{Kind: KindPercentage, PercentBps: 4000},
		{Kind: KindPercentage, PercentBps: 4000},
		{Kind: KindPercentage, PercentBps: 4000},
	}
	s := Compute(lines, discounts)
	if s.Discount != 500_000 {
		t.Fatalf("expected discount capped at subtotal, got %d", s.Discount)
	}
	if s.Total != 0 {
		t.Fatalf("expected total 0, got %d", s.Total)
	}
}

func TestComputeFixedClampedToSubtotal(t *testing.T) {
	lines := []Line{{Qty: 1, UnitPrice: 30_000}}
	discounts := []Discount{
		{Kind: KindFixed, Amount: 25_000},
		{Kind: KindFixed, Amount: 25_000},
	}
	s := Compute(lines, discounts)
	if s.Discount != 30_000 {
		t.Fatalf("expected discount 30000, got %d", s.Discount)
	}
	if s.Total != 0 {
		t.Fatalf("expected total 0, got %d", s.Total)
	}
}

func TestComputeDefensiveInputs(t *testing.T) {
	lines := []Line{
		{Qty: 0, UnitPrice: 10_000},
		{Qty: 3, UnitPrice: 5_000},
	}
	discounts := []Discount{
		{Kind: "bogus", Amount: 9_999},
		{Kind: KindPercentage, PercentBps: 0},
		{Kind: KindFixed, Amount: -500},
		{},
	}
	s := Compute(lines, discounts)
	if s.Subtotal != 15_000 {
		t.Fatalf("expected subtotal 15000, got %d", s.Subtotal)
	}
	if s.Discount != 0 {
		t.Fatalf("expected zero discount, got %d", s.Discount)
	}
	if s.Total != 15_000 {
		t.Fatalf("expected total 15000, got %d", s.Total)
	}
}

func TestComputeEmptyCart(t *testing.T) {
	s := Compute(nil, []Discount{{Kind: KindFixed, Amount: 10_000}})
	if s.Subtotal != 0 || s.Discount != 0 || s.Total != 0 {
		t.Fatalf("expected all-zero summary, got %+v", s)
	}
}
