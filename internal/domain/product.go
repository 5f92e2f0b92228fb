package domain

import "time"

// Product описывает товар каталога с точки зрения корзины и checkout.
// Каталог — внешний коллаборатор; корзина читает его и меняет только
// AvailableStock через атомарный decrement на settlement.
type Product struct {
	ID             string
	Title          string
	UnitPriceMinor int64
	AvailableStock int32
	UpdatedAt      time.Time
}

// Validate проверяет корректность ключевых полей товара.
func (p *Product) Validate() []error {
	var errs []error

	if p.ID == "" {
		errs = append(errs, ErrProductIDRequired)
	}
	if p.UnitPriceMinor < 0 {
		errs = append(errs, ErrLinePriceInvalid)
	}
	if p.AvailableStock < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
