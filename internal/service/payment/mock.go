package payment

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway. Реальный провайдер
// живёт за пределами ядра; по умолчанию авторизация всегда успешна.
type MockGateway struct {
	mu sync.Mutex

	AuthorizeErr error
	// DeclineAboveMinor отклоняет суммы строго выше порога (0 — без порога).
	DeclineAboveMinor int64

	AuthorizeCalls int
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Authorize возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) Authorize(_ context.Context, _ string, amountMinor int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AuthorizeCalls++
	if m.AuthorizeErr != nil {
		return m.AuthorizeErr
	}
	if m.DeclineAboveMinor > 0 && amountMinor > m.DeclineAboveMinor {
		return domain.ErrPaymentDeclined
	}
	return nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
