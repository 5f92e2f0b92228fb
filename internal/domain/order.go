package domain

import "time"

// OrderStatus описывает жизненный цикл заказа после settlement.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, подтверждение оплаты ожидается извне.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted — settlement завершён, сток списан.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusFailed — заказ помечен как несогласованный после сбоя commit-фазы.
	OrderStatusFailed OrderStatus = "failed"
)

// Customer содержит контактные данные покупателя, снятые с формы checkout.
type Customer struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
	Country    string
}

// Validate проверяет, что обязательные поля формы checkout заполнены.
func (c Customer) Validate() error {
	if c.Name == "" || c.Email == "" || c.Address == "" {
		return ErrCustomerIncomplete
	}
	return nil
}

// Order фиксирует результат успешной валидации корзины.
// Запись создаётся один раз на checkout и далее неизменна, кроме статуса.
type Order struct {
	ID          string
	OwnerID     string
	Lines       []CartLine
	Customer    Customer
	AmountMinor int64
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.OwnerID == "" {
		errs = append(errs, ErrOrderOwnerRequired)
	}
	if len(o.Lines) == 0 {
		errs = append(errs, ErrOrderLinesRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrOrderAmountNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
		}
		if line.UnitPriceMinor < 0 {
			errs = append(errs, ErrLinePriceInvalid)
		}
		calc += int64(line.Quantity) * line.UnitPriceMinor
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrOrderAmountMismatch)
	}

	return errs
}

// LineDiagnostic описывает позицию, не прошедшую валидацию стока на settlement.
type LineDiagnostic struct {
	ProductID string `json:"product_id"`
	Requested int32  `json:"requested"`
	Available int32  `json:"available"`
}
