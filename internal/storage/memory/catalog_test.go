package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func seedProduct(t *testing.T, catalog domain.ProductCatalog, id string, stock int32) {
	t.Helper()

	err := catalog.PutProduct(context.Background(), domain.Product{
		ID:             id,
		Title:          "product " + id,
		UnitPriceMinor: 100,
		AvailableStock: stock,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func TestCatalogGetProduct_NotFound(t *testing.T) {
	catalog := memory.NewCatalog()

	_, err := catalog.GetProduct(context.Background(), "missing")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCatalogDecrementStock(t *testing.T) {
	catalog := memory.NewCatalog()
	seedProduct(t, catalog, "p1", 5)

	newStock, err := catalog.DecrementStock(context.Background(), "p1", 3)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if newStock != 2 {
		t.Fatalf("expected stock 2, got %d", newStock)
	}

	// Нехватка остатка: без изменений, ErrStockExceeded.
	left, err := catalog.DecrementStock(context.Background(), "p1", 3)
	if !errors.Is(err, domain.ErrStockExceeded) {
		t.Fatalf("expected ErrStockExceeded, got %v", err)
	}
	if left != 2 {
		t.Fatalf("stock must be untouched on rejection, got %d", left)
	}
}

// Свойство конкурентного settlement: остаток никогда не уходит в минус,
// списывается ровно столько, сколько подтверждено.
func TestCatalogDecrementStock_Concurrent(t *testing.T) {
	catalog := memory.NewCatalog()
	seedProduct(t, catalog, "p1", 50)

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := catalog.DecrementStock(context.Background(), "p1", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	product, err := catalog.GetProduct(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if succeeded != 50 {
		t.Fatalf("expected exactly 50 successful decrements, got %d", succeeded)
	}
	if product.AvailableStock != 0 {
		t.Fatalf("expected stock 0, got %d", product.AvailableStock)
	}
}

func TestCatalogPutProduct_Invalid(t *testing.T) {
	catalog := memory.NewCatalog()

	err := catalog.PutProduct(context.Background(), domain.Product{ID: "", AvailableStock: 1})
	if err == nil {
		t.Fatal("expected validation error for empty product id")
	}
}
