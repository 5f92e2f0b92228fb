package stockguard

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Guard выполняет совещательную проверку остатков перед мутацией корзины.
// Решение принимается по снимку каталога и может устареть: источник истины —
// повторная валидация на settlement, guard лишь отсекает заведомо
// некорректные действия UI.
type Guard struct {
	catalog domain.ProductCatalog
	logger  *log.Entry
}

// New создаёт Stock Guard поверх каталога.
func New(catalog domain.ProductCatalog, logger *log.Entry) *Guard {
	if logger == nil {
		logger = log.New().WithField("component", "stock-guard")
	}
	return &Guard{catalog: catalog, logger: logger}
}

// CanSatisfy сообщает, укладывается ли requestedQty в известный остаток.
// Неизвестный товар трактуется как нулевой сток (fail closed).
func (g *Guard) CanSatisfy(ctx context.Context, productID string, requestedQty int32) (bool, error) {
	if requestedQty <= 0 {
		return false, domain.ErrLineQtyInvalid
	}

	available, err := g.AvailableStock(ctx, productID)
	if err != nil {
		return false, err
	}
	return requestedQty <= available, nil
}

// AvailableStock возвращает известный остаток товара; для неизвестного — 0.
func (g *Guard) AvailableStock(ctx context.Context, productID string) (int32, error) {
	product, err := g.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			g.logger.WithField("product_id", productID).Debug("unknown product treated as zero stock")
			return 0, nil
		}
		return 0, err
	}
	return product.AvailableStock, nil
}
