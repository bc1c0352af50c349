package receipt

import "testing"

func TestAddLineIncrementKeepsStoredPrice(t *testing.T) {
	var st State
	st.AddLine(Product{ID: "p1", Price: 10_000})
	st.AddLine(Product{ID: "p1", Price: 99_999})

	if len(st.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(st.Lines))
	}
	line := st.Lines[0]
	if line.Qty != 2 {
		t.Fatalf("expected qty 2, got %d", line.Qty)
	}
	if line.UnitPrice != 10_000 {
		t.Fatalf("expected stored price 10000, got %d", line.UnitPrice)
	}
	if line.Subtotal != 20_000 {
		t.Fatalf("expected subtotal 20000, got %d", line.Subtotal)
	}
}

func TestAddLineMissingIDIsNoop(t *testing.T) {
	var st State
	st.AddLine(Product{Price: 10_000})
	if len(st.Lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(st.Lines))
	}
}

func TestUpdateLineQuantityClampsToOne(t *testing.T) {
	var st State
	st.AddLine(Product{ID: "p1", Price: 10_000})

	st.UpdateLine(0, FieldQuantity, 5)
	if st.Lines[0].Qty != 5 || st.Lines[0].Subtotal != 50_000 {
		t.Fatalf("unexpected line: %+v", st.Lines[0])
	}

	st.UpdateLine(0, FieldQuantity, 0)
	if st.Lines[0].Qty != 1 {
		t.Fatalf("expected quantity clamped to 1, got %d", st.Lines[0].Qty)
	}
}

func TestUpdateLineUnitPriceClampsToZero(t *testing.T) {
	var st State
	st.AddLine(Product{ID: "p1", Price: 10_000})
	st.UpdateLine(0, FieldQuantity, 3)

	st.UpdateLine(0, FieldUnitPrice, 12_000)
	if st.Lines[0].Subtotal != 36_000 {
		t.Fatalf("expected subtotal 36000, got %d", st.Lines[0].Subtotal)
	}

	st.UpdateLine(0, FieldUnitPrice, -5)
	if st.Lines[0].UnitPrice != 0 || st.Lines[0].Subtotal != 0 {
		t.Fatalf("expected price clamped to 0, got %+v", st.Lines[0])
	}
}

func TestUpdateLineOutOfRangeIsNoop(t *testing.T) {
	var st State
	st.AddLine(Product{ID: "p1", Price: 10_000})
	st.UpdateLine(5, FieldQuantity, 3)
	st.UpdateLine(-1, FieldQuantity, 3)
	if st.Lines[0].Qty != 1 {
		t.Fatalf("expected untouched line, got qty %d", st.Lines[0].Qty)
	}
}

func TestRemoveLineByIndex(t *testing.T) {
	var st State
	st.AddLine(Product{ID: "p1", Price: 1})
	st.AddLine(Product{ID: "p2", Price: 2})
	st.AddLine(Product{ID: "p3", Price: 3})

	st.RemoveLine(1)
	if len(st.Lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(st.Lines))
	}
	if st.Lines[0].ProductID != "p1" || st.Lines[1].ProductID != "p3" {
		t.Fatalf("unexpected lines: %+v", st.Lines)
	}

	st.RemoveLine(10)
	if len(st.Lines) != 2 {
		t.Fatal("expected out-of-range removal to be a no-op")
	}
}

func TestTotalSumsSubtotals(t *testing.T) {
	var st State
	st.AddLine(Product{ID: "p1", Price: 10_000})
	st.UpdateLine(0, FieldQuantity, 3)
	st.AddLine(Product{ID: "p2", Price: 5_000})

	if got := st.Total(); got != 35_000 {
		t.Fatalf("expected total 35000, got %d", got)
	}
}

func TestClearLinesKeepsDrafts(t *testing.T) {
	st := State{SupplierID: "s1", Note: "weekly restock"}
	st.AddLine(Product{ID: "p1", Price: 1000})

	st.ClearLines()
	if len(st.Lines) != 0 {
		t.Fatal("expected lines cleared")
	}
	if st.SupplierID != "s1" || st.Note != "weekly restock" {
		t.Fatalf("expected drafts kept, got %+v", st)
	}
}
