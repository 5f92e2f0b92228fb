package stockguard_test

import (
	"context"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/stockguard"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newGuard(t *testing.T, stock int32) *stockguard.Guard {
	t.Helper()

	catalog := memory.NewCatalog()
	err := catalog.PutProduct(context.Background(), domain.Product{
		ID:             "p1",
		Title:          "product p1",
		UnitPriceMinor: 100,
		AvailableStock: stock,
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return stockguard.New(catalog, nil)
}

func TestCanSatisfy(t *testing.T) {
	guard := newGuard(t, 5)

	cases := []struct {
		name      string
		productID string
		qty       int32
		want      bool
	}{
		{name: "within stock", productID: "p1", qty: 5, want: true},
		{name: "beyond stock", productID: "p1", qty: 6, want: false},
		{name: "unknown product is zero stock", productID: "missing", qty: 1, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := guard.CanSatisfy(context.Background(), tc.productID, tc.qty)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("CanSatisfy(%s, %d) = %v, want %v", tc.productID, tc.qty, got, tc.want)
			}
		})
	}
}

func TestCanSatisfy_InvalidQty(t *testing.T) {
	guard := newGuard(t, 5)

	if _, err := guard.CanSatisfy(context.Background(), "p1", 0); err == nil {
		t.Fatal("expected error for non-positive quantity")
	}
}

func TestCanSatisfy_ZeroStockBlocksAll(t *testing.T) {
	guard := newGuard(t, 0)

	ok, err := guard.CanSatisfy(context.Background(), "p1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("zero stock must reject any add")
	}
}
