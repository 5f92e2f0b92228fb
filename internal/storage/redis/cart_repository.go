package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// defaultTTL ограничивает жизнь гостевой корзины: брошенные сессии
// вычищаются самим Redis.
const defaultTTL = 30 * 24 * time.Hour

// CartRepository хранит гостевые корзины в Redis как JSON-значения,
// по одному ключу на владельца.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository создаёт Redis-хранилище корзин с TTL по умолчанию.
func NewCartRepository(client *redis.Client) *CartRepository {
	return &CartRepository{client: client, ttl: defaultTTL}
}

// NewCartRepositoryWithTTL создаёт хранилище с явным TTL (0 — без истечения).
func NewCartRepositoryWithTTL(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

type cartRecord struct {
	Lines     []lineRecord `json:"lines"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type lineRecord struct {
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	Quantity       int32  `json:"quantity"`
}

func (r *CartRepository) Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("redis get failed: %w", err)
	}

	var record cartRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.Cart{}, fmt.Errorf("unmarshal cart failed: %w", err)
	}

	cart := domain.NewCart(owner)
	cart.UpdatedAt = record.UpdatedAt
	for _, line := range record.Lines {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:      line.ProductID,
			Title:          line.Title,
			UnitPriceMinor: line.UnitPriceMinor,
			Quantity:       line.Quantity,
		})
	}
	return cart, nil
}

func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) error {
	record := cartRecord{
		Lines:     make([]lineRecord, 0, len(cart.Lines)),
		UpdatedAt: cart.UpdatedAt,
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	// Флаг Unsynced намеренно не сериализуется: он описывает расхождение
	// памяти с этим же хранилищем.
	for _, line := range cart.Lines {
		record.Lines = append(record.Lines, lineRecord{
			ProductID:      line.ProductID,
			Title:          line.Title,
			UnitPriceMinor: line.UnitPriceMinor,
			Quantity:       line.Quantity,
		})
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, cartKey(cart.Owner), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, owner domain.CartOwner) error {
	if err := r.client.Del(ctx, cartKey(owner)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(owner domain.CartOwner) string {
	return "cart:" + owner.Key()
}

var _ domain.CartRepository = (*CartRepository)(nil)
