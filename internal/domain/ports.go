package domain

import (
	"context"
	"time"
)

// ProductCatalog описывает взаимодействие с каталогом товаров.
type ProductCatalog interface {
	// GetProduct возвращает снимок товара или ErrProductNotFound.
	// Снимок может устаревать; итоговая корректность обеспечивается
	// повторной валидацией на settlement.
	GetProduct(ctx context.Context, productID string) (Product, error)
	// DecrementStock атомарно списывает qty единиц: проверка и запись идут
	// в одной транзакции (или под эквивалентным CAS). При нехватке остаток
	// не меняется и возвращается ErrStockExceeded вместе с текущим значением.
	// При успехе возвращает новый остаток.
	DecrementStock(ctx context.Context, productID string, qty int32) (int32, error)
	// ListProducts возвращает снимок всего каталога, отсортированный по ID.
	ListProducts(ctx context.Context) ([]Product, error)
	// PutProduct создаёт или перезаписывает товар (админский стока-adjust).
	PutProduct(ctx context.Context, product Product) error
}

// CartRepository хранит сериализованные корзины по ключу владельца.
type CartRepository interface {
	// Get возвращает корзину владельца или ErrCartNotFound.
	Get(ctx context.Context, owner CartOwner) (Cart, error)
	// Save перезаписывает корзину целиком (write-through, без буферизации).
	Save(ctx context.Context, cart Cart) error
	// Delete удаляет корзину владельца. Отсутствие корзины не считается ошибкой.
	Delete(ctx context.Context, owner CartOwner) error
}

// OrderLedger — append-only хранилище заказов.
type OrderLedger interface {
	// Append записывает новый заказ. Повторный ID — ошибка.
	Append(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, orderID string) (Order, error)
	// ListByOwner возвращает заказы владельца, новые первыми, с лимитом (если >0).
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]Order, error)
	// SetStatus переводит заказ в новый статус.
	SetStatus(ctx context.Context, orderID string, status OrderStatus) error
}

// MergeLedger помечает выполненные слияния гостевых корзин, чтобы повторный
// логин той же сессии не задваивал количества. Контракт из спецификации
// merge-операции: сама она не идемпотентна, идемпотентность обеспечивает caller.
type MergeLedger interface {
	// MarkMerged фиксирует пару (accountID, sessionID); повторная фиксация
	// возвращает ErrMergeAlreadyDone.
	MarkMerged(ctx context.Context, accountID, sessionID string) error
	// ReleaseMerge снимает фиксацию пары, когда результат слияния не удалось
	// сохранить: retry логина должен выполнить слияние заново.
	ReleaseMerge(ctx context.Context, accountID, sessionID string) error
}

// PaymentGateway сообщает settlement, удалась ли попытка оплаты.
// Детали провайдера (форматы запросов, сессии) вне ядра.
type PaymentGateway interface {
	// Authorize подтверждает оплату заказа на сумму amountMinor.
	// Отказ провайдера — ErrPaymentDeclined.
	Authorize(ctx context.Context, orderID string, amountMinor int64) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
