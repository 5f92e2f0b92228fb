package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type catalog struct {
	db *sql.DB
}

// NewCatalog создаёт PostgreSQL-реализацию ProductCatalog.
func NewCatalog(store *Store) domain.ProductCatalog {
	return &catalog{db: store.DB()}
}

func (r *catalog) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, unit_price_minor, available_stock, updated_at
		FROM products
		WHERE id = $1
	`, productID).Scan(
		&product.ID, &product.Title, &product.UnitPriceMinor,
		&product.AvailableStock, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

// DecrementStock выполняет check-and-decrement в одной транзакции:
// строка товара блокируется SELECT ... FOR UPDATE, затем остаток проверяется
// и уменьшается. Конкурирующие списания сериализуются блокировкой строки,
// поэтому остаток не уходит в минус.
func (r *catalog) DecrementStock(ctx context.Context, productID string, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrLineQtyInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var available int32
	err = tx.QueryRowContext(ctx, `
		SELECT available_stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrProductNotFound
			return 0, err
		}
		return 0, fmt.Errorf("lock product row: %w", err)
	}

	if available < qty {
		err = domain.ErrStockExceeded
		return available, err
	}

	remaining := available - qty
	if _, err = tx.ExecContext(ctx, `
		UPDATE products
		SET available_stock = $2,
		    updated_at = $3
		WHERE id = $1
	`, productID, remaining, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("update product stock: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stock decrement: %w", err)
	}

	return remaining, nil
}

func (r *catalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, unit_price_minor, available_stock, updated_at
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.Title, &product.UnitPriceMinor,
			&product.AvailableStock, &product.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (r *catalog) PutProduct(ctx context.Context, product domain.Product) error {
	if errs := product.Validate(); len(errs) > 0 {
		return errs[0]
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, title, unit_price_minor, available_stock, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    unit_price_minor = EXCLUDED.unit_price_minor,
		    available_stock = EXCLUDED.available_stock,
		    updated_at = EXCLUDED.updated_at
	`, product.ID, product.Title, product.UnitPriceMinor, product.AvailableStock, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	return nil
}

var _ domain.ProductCatalog = (*catalog)(nil)
