package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderLedgerInMemory — простая in-memory реализация OrderLedger.
type orderLedgerInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderLedger возвращает in-memory ledger для локальной разработки и тестов.
func NewOrderLedger() domain.OrderLedger {
	return &orderLedgerInMemory{
		items: make(map[string]domain.Order),
	}
}

// Append сохраняет новый заказ; повторный ID — ошибка.
func (r *orderLedgerInMemory) Append(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderExists
	}
	r.items[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderLedgerInMemory) Get(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByOwner возвращает заказы владельца, ограничивая выборку limit (если >0).
func (r *orderLedgerInMemory) ListByOwner(_ context.Context, ownerID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.OwnerID != ownerID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// SetStatus переводит заказ в новый статус. Единственная разрешённая мутация.
func (r *orderLedgerInMemory) SetStatus(_ context.Context, orderID string, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	r.items[orderID] = order
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	cloned := order
	cloned.Lines = make([]domain.CartLine, len(order.Lines))
	copy(cloned.Lines, order.Lines)
	return cloned
}

var _ domain.OrderLedger = (*orderLedgerInMemory)(nil)
