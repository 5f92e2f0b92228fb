package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type mergeLedger struct {
	db *sql.DB
}

// NewMergeLedger создаёт PostgreSQL-реализацию MergeLedger.
// Уникальный ключ (account_id, session_id) гарантирует однократность слияния
// даже при конкурирующих логинах одной сессии.
func NewMergeLedger(store *Store) domain.MergeLedger {
	return &mergeLedger{db: store.DB()}
}

func (r *mergeLedger) MarkMerged(ctx context.Context, accountID, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_merges (account_id, session_id, merged_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (account_id, session_id) DO NOTHING
	`, accountID, sessionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record cart merge: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrMergeAlreadyDone
	}

	return nil
}

func (r *mergeLedger) ReleaseMerge(ctx context.Context, accountID, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_merges
		WHERE account_id = $1 AND session_id = $2
	`, accountID, sessionID); err != nil {
		return fmt.Errorf("release cart merge: %w", err)
	}

	return nil
}

var _ domain.MergeLedger = (*mergeLedger)(nil)
