package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newLedgerOrder(id, ownerID string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:      id,
		OwnerID: ownerID,
		Lines: []domain.CartLine{
			{ProductID: "p1", Title: "Product", UnitPriceMinor: 1000, Quantity: 1},
		},
		AmountMinor: 1000,
		Status:      domain.OrderStatusPending,
		CreatedAt:   createdAt,
	}
}

func TestOrderLedgerListByOwnerNewestFirst(t *testing.T) {
	ledger := memory.NewOrderLedger()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"order-1", "order-2", "order-3"} {
		order := newLedgerOrder(id, "account:acc-1", base.Add(time.Duration(i)*time.Minute))
		if err := ledger.Append(ctx, order); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	if err := ledger.Append(ctx, newLedgerOrder("order-x", "account:other", base)); err != nil {
		t.Fatalf("append foreign order: %v", err)
	}

	orders, err := ledger.ListByOwner(ctx, "account:acc-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	if orders[0].ID != "order-3" || orders[2].ID != "order-1" {
		t.Errorf("unexpected ordering: %s .. %s", orders[0].ID, orders[2].ID)
	}

	limited, err := ledger.ListByOwner(ctx, "account:acc-1", 2)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 orders with limit, got %d", len(limited))
	}
}

func TestOrderLedgerGetReturnsCopy(t *testing.T) {
	ledger := memory.NewOrderLedger()
	ctx := context.Background()

	if err := ledger.Append(ctx, newLedgerOrder("order-1", "guest:s", time.Now().UTC())); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := ledger.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Lines[0].Quantity = 99

	again, _ := ledger.Get(ctx, "order-1")
	if again.Lines[0].Quantity != 1 {
		t.Errorf("stored order mutated through returned copy: %d", again.Lines[0].Quantity)
	}
}
