package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// catalogInMemory — in-memory реализация ProductCatalog.
// Мьютекс сериализует read-modify-write декремента: два конкурентных
// settlement по одному товару не могут прочитать один и тот же остаток.
type catalogInMemory struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewCatalog возвращает in-memory каталог для локальной разработки и тестов.
func NewCatalog() domain.ProductCatalog {
	return &catalogInMemory{
		products: make(map[string]domain.Product),
	}
}

// GetProduct возвращает снимок товара или ErrProductNotFound.
func (c *catalogInMemory) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// DecrementStock атомарно уменьшает остаток. Проверка и запись выполняются
// под одним мьютексом: при нехватке остатка возвращается ErrStockExceeded,
// остаток не меняется и никогда не уходит в минус.
func (c *catalogInMemory) DecrementStock(_ context.Context, productID string, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrLineQtyInvalid
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	product, ok := c.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if product.AvailableStock < qty {
		return product.AvailableStock, domain.ErrStockExceeded
	}

	product.AvailableStock -= qty
	product.UpdatedAt = time.Now().UTC()
	c.products[productID] = product

	return product.AvailableStock, nil
}

// ListProducts возвращает снимок каталога, отсортированный по ID.
func (c *catalogInMemory) ListProducts(_ context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	products := make([]domain.Product, 0, len(c.products))
	for _, product := range c.products {
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// PutProduct создаёт или перезаписывает товар.
func (c *catalogInMemory) PutProduct(_ context.Context, product domain.Product) error {
	if errs := product.Validate(); len(errs) > 0 {
		return errs[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	product.UpdatedAt = time.Now().UTC()
	c.products[product.ID] = product
	return nil
}

var _ domain.ProductCatalog = (*catalogInMemory)(nil)
