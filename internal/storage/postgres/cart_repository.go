package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
// Позиции хранятся JSONB-документом: корзина читается и пишется целиком.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

type cartLineRow struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Quantity       int32  `json:"quantity"`
}

func (r *cartRepository) Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		raw       []byte
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT lines, updated_at
		FROM carts
		WHERE owner_key = $1
	`, owner.Key()).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	var rows []cartLineRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart lines: %w", err)
	}

	cart := domain.NewCart(owner)
	cart.UpdatedAt = updatedAt
	for _, row := range rows {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:      row.ProductID,
			Title:          row.Title,
			UnitPriceMinor: row.UnitPriceMinor,
			Quantity:       row.Quantity,
		})
	}

	return cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	rows := make([]cartLineRow, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		rows = append(rows, cartLineRow{
			ProductID:      line.ProductID,
			Title:          line.Title,
			UnitPriceMinor: line.UnitPriceMinor,
			Quantity:       line.Quantity,
		})
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal cart lines: %w", err)
	}

	updatedAt := cart.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (owner_key, lines, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (owner_key) DO UPDATE
		SET lines = EXCLUDED.lines,
		    updated_at = EXCLUDED.updated_at
	`, cart.Owner.Key(), raw, updatedAt); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	return nil
}

func (r *cartRepository) Delete(ctx context.Context, owner domain.CartOwner) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE owner_key = $1
	`, owner.Key()); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
