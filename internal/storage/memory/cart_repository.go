package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// cartRepositoryInMemory — простая in-memory реализация CartRepository.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Cart
}

// NewCartRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		items: make(map[string]domain.Cart),
	}
}

// Get возвращает корзину владельца или ErrCartNotFound, если её нет.
func (r *cartRepositoryInMemory) Get(_ context.Context, owner domain.CartOwner) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.items[owner.Key()]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cloneCart(cart), nil
}

// Save перезаписывает корзину владельца целиком.
func (r *cartRepositoryInMemory) Save(_ context.Context, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneCart(cart)
	stored.UpdatedAt = time.Now().UTC()
	// Unsynced — состояние памяти процесса, в хранилище не попадает.
	stored.Unsynced = false
	r.items[cart.Owner.Key()] = stored
	return nil
}

// Delete удаляет корзину; отсутствие записи не считается ошибкой.
func (r *cartRepositoryInMemory) Delete(_ context.Context, owner domain.CartOwner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, owner.Key())
	return nil
}

// cloneCart копирует корзину вместе с позициями, чтобы избежать мутаций извне.
func cloneCart(cart domain.Cart) domain.Cart {
	cloned := cart
	cloned.Lines = make([]domain.CartLine, len(cart.Lines))
	copy(cloned.Lines, cart.Lines)
	return cloned
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
