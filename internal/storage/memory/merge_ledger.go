package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// mergeLedgerInMemory хранит пары (account, session), для которых слияние
// гостевой корзины уже выполнено.
type mergeLedgerInMemory struct {
	mu     sync.Mutex
	merged map[string]bool
}

// NewMergeLedger возвращает in-memory реализацию MergeLedger.
func NewMergeLedger() domain.MergeLedger {
	return &mergeLedgerInMemory{merged: make(map[string]bool)}
}

// MarkMerged фиксирует слияние; повторная фиксация той же пары — ErrMergeAlreadyDone.
func (r *mergeLedgerInMemory) MarkMerged(_ context.Context, accountID, sessionID string) error {
	key := accountID + ":" + sessionID

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.merged[key] {
		return domain.ErrMergeAlreadyDone
	}
	r.merged[key] = true
	return nil
}

// ReleaseMerge снимает фиксацию пары; отсутствующая запись — no-op.
func (r *mergeLedgerInMemory) ReleaseMerge(_ context.Context, accountID, sessionID string) error {
	key := accountID + ":" + sessionID

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.merged, key)
	return nil
}

var _ domain.MergeLedger = (*mergeLedgerInMemory)(nil)
