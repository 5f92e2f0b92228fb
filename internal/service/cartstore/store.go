package cartstore

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/stockguard"
)

// Store — авторитетное отображение productID -> желаемое количество для
// одного владельца. Гостевые корзины и корзины аккаунтов живут в разных
// backing-хранилищах; каждая успешная мутация пишется насквозь, без буфера.
type Store struct {
	guestRepo   domain.CartRepository
	accountRepo domain.CartRepository
	catalog     domain.ProductCatalog
	guard       *stockguard.Guard
	mergeLedger domain.MergeLedger
	logger      *log.Entry
}

// New создаёт Cart Store с раздельными хранилищами гостей и аккаунтов.
func New(
	guestRepo domain.CartRepository,
	accountRepo domain.CartRepository,
	catalog domain.ProductCatalog,
	guard *stockguard.Guard,
	mergeLedger domain.MergeLedger,
	logger *log.Entry,
) *Store {
	if logger == nil {
		logger = log.New().WithField("component", "cart-store")
	}
	return &Store{
		guestRepo:   guestRepo,
		accountRepo: accountRepo,
		catalog:     catalog,
		guard:       guard,
		mergeLedger: mergeLedger,
		logger:      logger,
	}
}

// Get возвращает корзину владельца; отсутствующая корзина — пустая.
func (s *Store) Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error) {
	cart, err := s.repoFor(owner).Get(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.NewCart(owner), nil
		}
		return domain.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// AddLine увеличивает количество товара на delta (по умолчанию вызывающая
// сторона передаёт 1), создавая позицию при необходимости. Мутация проходит
// через Stock Guard: итоговое количество не должно превышать известный
// остаток, иначе корзина не меняется и возвращается ErrStockExceeded.
func (s *Store) AddLine(ctx context.Context, owner domain.CartOwner, productID string, delta int32) (domain.Cart, error) {
	if delta <= 0 {
		return domain.Cart{}, domain.ErrLineQtyInvalid
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			// Неизвестный товар — нулевой сток, добавление отклоняется.
			return domain.Cart{}, domain.ErrProductNotFound
		}
		return domain.Cart{}, fmt.Errorf("read catalog: %w", err)
	}

	cart, err := s.Get(ctx, owner)
	if err != nil {
		return domain.Cart{}, err
	}

	requested := cart.Quantity(productID) + delta
	ok, err := s.guard.CanSatisfy(ctx, productID, requested)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("stock guard: %w", err)
	}
	if !ok {
		s.logger.WithFields(log.Fields{
			"cart_owner": owner.Key(),
			"product_id": productID,
			"requested":  requested,
			"available":  product.AvailableStock,
		}).Info("add rejected by stock guard")
		return cart, domain.ErrStockExceeded
	}

	cart.Upsert(domain.CartLine{
		ProductID:      product.ID,
		Title:          product.Title,
		UnitPriceMinor: product.UnitPriceMinor,
	}, delta)

	return s.persist(ctx, cart)
}

// DecreaseLine уменьшает количество на delta; позиция с остатком <= 0 удаляется.
// Уменьшение и удаление разрешены и при нулевом стоке товара.
func (s *Store) DecreaseLine(ctx context.Context, owner domain.CartOwner, productID string, delta int32) (domain.Cart, error) {
	if delta <= 0 {
		return domain.Cart{}, domain.ErrLineQtyInvalid
	}

	cart, err := s.Get(ctx, owner)
	if err != nil {
		return domain.Cart{}, err
	}
	if _, ok := cart.Line(productID); !ok {
		return cart, nil
	}

	cart.Decrease(productID, delta)
	return s.persist(ctx, cart)
}

// RemoveLine безусловно удаляет позицию.
func (s *Store) RemoveLine(ctx context.Context, owner domain.CartOwner, productID string) (domain.Cart, error) {
	cart, err := s.Get(ctx, owner)
	if err != nil {
		return domain.Cart{}, err
	}
	if _, ok := cart.Line(productID); !ok {
		return cart, nil
	}

	cart.Remove(productID)
	return s.persist(ctx, cart)
}

// MergeGuestIntoAccount сливает гостевую корзину сессии в корзину аккаунта:
// общие товары суммируются без ограничения по стоку (ограничение применит
// settlement), остальные вставляются. Слияние выполняется не более одного
// раза на пару (аккаунт, сессия); гостевая корзина очищается после успешного
// сохранения результата — без очистки повторный логин задвоил бы количества.
func (s *Store) MergeGuestIntoAccount(ctx context.Context, sessionID, accountID string) (domain.Cart, error) {
	guestOwner := domain.GuestOwner(sessionID)
	accountOwner := domain.AccountOwner(accountID)

	accountCart, err := s.Get(ctx, accountOwner)
	if err != nil {
		return domain.Cart{}, err
	}

	guestCart, err := s.Get(ctx, guestOwner)
	if err != nil {
		return domain.Cart{}, err
	}
	if guestCart.IsEmpty() {
		return accountCart, nil
	}

	// Пара (аккаунт, сессия) захватывается до слияния: повторный логин той же
	// сессии превращается в no-op вместо задвоения количеств.
	if err := s.mergeLedger.MarkMerged(ctx, accountID, sessionID); err != nil {
		if errors.Is(err, domain.ErrMergeAlreadyDone) {
			s.logger.WithFields(log.Fields{
				"account_id": accountID,
				"session_id": sessionID,
			}).Info("guest cart already merged, skipping")
			return accountCart, nil
		}
		return domain.Cart{}, fmt.Errorf("mark merge done: %w", err)
	}

	merged := domain.MergeCarts(guestCart, accountCart)

	persisted, err := s.persist(ctx, merged)
	if err != nil {
		// Захват без сохранённого результата сделал бы retry слияния no-op и
		// потерял бы гостевые количества, поэтому фиксация снимается.
		if releaseErr := s.mergeLedger.ReleaseMerge(ctx, accountID, sessionID); releaseErr != nil {
			s.logger.WithError(releaseErr).WithFields(log.Fields{
				"account_id": accountID,
				"session_id": sessionID,
			}).Error("failed to release merge mark after persist failure")
		}
		return persisted, err
	}

	if err := s.guestRepo.Delete(ctx, guestOwner); err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to clear guest cart after merge")
	}

	return persisted, nil
}

// Clear удаляет корзину владельца (например, после успешного settlement).
func (s *Store) Clear(ctx context.Context, owner domain.CartOwner) error {
	if err := s.repoFor(owner).Delete(ctx, owner); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

// persist выполняет write-through запись корзины. Идемпотентная запись
// повторяется один раз с тем же payload; после второй неудачи мутация
// остаётся в памяти, корзина помечается Unsynced и возвращается
// ErrPersistenceFailure.
func (s *Store) persist(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	repo := s.repoFor(cart.Owner)

	err := repo.Save(ctx, cart)
	if err != nil {
		s.logger.WithError(err).WithField("cart_owner", cart.Owner.Key()).Warn("cart write failed, retrying once")
		err = repo.Save(ctx, cart)
	}
	if err != nil {
		cart.Unsynced = true
		s.logger.WithError(err).WithField("cart_owner", cart.Owner.Key()).Error("cart write failed after retry")
		return cart, fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}

	cart.Unsynced = false
	return cart, nil
}

func (s *Store) repoFor(owner domain.CartOwner) domain.CartRepository {
	if owner.Kind == domain.OwnerKindGuest {
		return s.guestRepo
	}
	return s.accountRepo
}
