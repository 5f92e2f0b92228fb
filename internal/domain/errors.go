package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего владельца корзины.
	ErrCartOwnerRequired = errors.New("cart owner is required")
	// Ошибка отсутствующего productID в позиции.
	ErrLineProductRequired = errors.New("line product_id is required")
	// Ошибка при некорректном количестве в позиции (<= 0).
	ErrLineQtyInvalid = errors.New("line quantity must be greater than zero")
	// Ошибка отрицательной цены позиции.
	ErrLinePriceInvalid = errors.New("line unit price must be non-negative")
	// Ошибка дублирующегося productID в корзине.
	ErrLineDuplicate = errors.New("duplicate product in cart")
	// Ошибка отсутствующего идентификатора товара.
	ErrProductIDRequired = errors.New("product id is required")
	// Ошибка отрицательного остатка на складе.
	ErrStockNegative = errors.New("available stock must be non-negative")
	// Ошибка отсутствующего владельца заказа.
	ErrOrderOwnerRequired = errors.New("order owner is required")
	// Ошибка пустого заказа.
	ErrOrderLinesRequired = errors.New("order must contain at least one line")
	// Ошибка отрицательной суммы заказа.
	ErrOrderAmountNegative = errors.New("order amount must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrOrderAmountMismatch = errors.New("order amount does not match lines sum")

	// ErrStockExceeded возвращается, когда запрошенное количество превышает
	// известный остаток. Восстановимая ошибка: caller может переспросить.
	ErrStockExceeded = errors.New("requested quantity exceeds available stock")
	// ErrProductNotFound возвращается каталогом для неизвестного товара.
	// Stock Guard трактует её как нулевой остаток (fail closed).
	ErrProductNotFound = errors.New("product not found")
	// ErrPersistenceFailure сигнализирует о неудачной записи корзины в backing
	// store. Мутация остаётся в памяти, корзина помечается Unsynced.
	ErrPersistenceFailure = errors.New("cart persistence write failed")
	// ErrSettlementPartial — фатальная несогласованность: decrement упал после
	// того, как часть позиций уже списана. Требует ручной сверки, не ретраится.
	ErrSettlementPartial = errors.New("settlement partially committed")
	// ErrPaymentDeclined — платёжный провайдер отклонил попытку оплаты.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrCustomerIncomplete — в checkout переданы неполные данные покупателя.
	ErrCustomerIncomplete = errors.New("customer details are incomplete")

	// ErrCartNotFound возвращается, если корзина владельца не найдена в хранилище.
	ErrCartNotFound = errors.New("cart not found")
	// ErrOrderNotFound возвращается, если заказ не найден в ledger.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists возвращается append-only ledger при повторном ID заказа.
	ErrOrderExists = errors.New("order already exists")
	// ErrMergeAlreadyDone возвращается merge ledger при повторной попытке
	// слить ту же гостевую корзину в тот же аккаунт.
	ErrMergeAlreadyDone = errors.New("guest cart already merged into account")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// SettlementRejection возвращается, когда валидация checkout провалилась
// хотя бы для одной позиции. Заказ при этом не создаётся.
type SettlementRejection struct {
	Diagnostics []LineDiagnostic
}

func (r *SettlementRejection) Error() string {
	return fmt.Sprintf("settlement rejected: %d line(s) failed stock validation", len(r.Diagnostics))
}

// IsSettlementRejection проверяет, является ли ошибка отказом settlement,
// и возвращает per-line диагностику.
func IsSettlementRejection(err error) (*SettlementRejection, bool) {
	var rejection *SettlementRejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}

// IsStockExceeded проверяет, относится ли ошибка к превышению остатка.
// ErrProductNotFound трактуется так же: неизвестный товар — нулевой сток.
func IsStockExceeded(err error) bool {
	return errors.Is(err, ErrStockExceeded) || errors.Is(err, ErrProductNotFound)
}
