package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestCartRepositoryRoundTrip(t *testing.T) {
	repo := memory.NewCartRepository()
	ctx := context.Background()
	owner := domain.GuestOwner("session-1")

	if _, err := repo.Get(ctx, owner); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}

	cart := domain.NewCart(owner)
	cart.Upsert(domain.CartLine{ProductID: "p1", UnitPriceMinor: 100}, 2)
	if err := repo.Save(ctx, cart); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := repo.Get(ctx, owner)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := loaded.Quantity("p1"); got != 2 {
		t.Fatalf("expected qty 2, got %d", got)
	}

	// Мутации загруженной копии не должны протекать в хранилище.
	loaded.Upsert(domain.CartLine{ProductID: "p1"}, 5)
	again, err := repo.Get(ctx, owner)
	if err != nil {
		t.Fatalf("get after mutation: %v", err)
	}
	if got := again.Quantity("p1"); got != 2 {
		t.Fatalf("stored cart mutated externally: qty %d", got)
	}

	if err := repo.Delete(ctx, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, owner); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound after delete, got %v", err)
	}
	// Повторное удаление — не ошибка.
	if err := repo.Delete(ctx, owner); err != nil {
		t.Fatalf("repeated delete: %v", err)
	}
}

func TestCartRepositoryKeysGuestAndAccountSeparately(t *testing.T) {
	repo := memory.NewCartRepository()
	ctx := context.Background()

	guest := domain.NewCart(domain.GuestOwner("id-1"))
	guest.Upsert(domain.CartLine{ProductID: "p1", UnitPriceMinor: 100}, 1)
	account := domain.NewCart(domain.AccountOwner("id-1"))
	account.Upsert(domain.CartLine{ProductID: "p2", UnitPriceMinor: 100}, 1)

	if err := repo.Save(ctx, guest); err != nil {
		t.Fatalf("save guest: %v", err)
	}
	if err := repo.Save(ctx, account); err != nil {
		t.Fatalf("save account: %v", err)
	}

	loaded, err := repo.Get(ctx, domain.AccountOwner("id-1"))
	if err != nil {
		t.Fatalf("get account cart: %v", err)
	}
	if _, ok := loaded.Line("p1"); ok {
		t.Fatal("guest line leaked into account cart with same raw id")
	}
}

func TestMergeLedgerMarksOnce(t *testing.T) {
	ledger := memory.NewMergeLedger()
	ctx := context.Background()

	if err := ledger.MarkMerged(ctx, "acc-1", "session-1"); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := ledger.MarkMerged(ctx, "acc-1", "session-1"); !errors.Is(err, domain.ErrMergeAlreadyDone) {
		t.Fatalf("expected ErrMergeAlreadyDone, got %v", err)
	}
	// Другая сессия того же аккаунта сливается независимо.
	if err := ledger.MarkMerged(ctx, "acc-1", "session-2"); err != nil {
		t.Fatalf("different session mark: %v", err)
	}
}

func TestOrderLedgerAppendAndList(t *testing.T) {
	ledger := memory.NewOrderLedger()
	ctx := context.Background()

	order := domain.Order{
		ID:      "order-1",
		OwnerID: "acc-1",
		Lines: []domain.CartLine{
			{ProductID: "p1", UnitPriceMinor: 100, Quantity: 2},
		},
		AmountMinor: 200,
		Status:      domain.OrderStatusPending,
	}
	if err := ledger.Append(ctx, order); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := ledger.Append(ctx, order); !errors.Is(err, domain.ErrOrderExists) {
		t.Fatalf("expected ErrOrderExists, got %v", err)
	}

	if err := ledger.SetStatus(ctx, "order-1", domain.OrderStatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}
	loaded, err := ledger.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", loaded.Status)
	}

	orders, err := ledger.ListByOwner(ctx, "acc-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
}
