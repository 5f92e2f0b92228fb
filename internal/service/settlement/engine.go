package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Phase отражает стадию settlement-процесса одного checkout.
type Phase string

const (
	PhaseDraft      Phase = "draft"
	PhaseValidating Phase = "validating"
	PhaseCommitting Phase = "committing"
	PhaseCompleted  Phase = "completed"
	PhaseRejected   Phase = "rejected"
)

// CartAccess — срез операций корзины, нужный settlement.
type CartAccess interface {
	Get(ctx context.Context, owner domain.CartOwner) (domain.Cart, error)
	Clear(ctx context.Context, owner domain.CartOwner) error
}

// Engine выполняет checkout: повторная валидация стока по каждой позиции,
// авторизация оплаты, запись заказа и атомарные списания остатков.
// Последовательность фаз: Draft → Validating → Committing → Completed|Rejected.
type Engine struct {
	carts    CartAccess
	catalog  domain.ProductCatalog
	ledger   domain.OrderLedger
	payments domain.PaymentGateway
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
}

// New создаёт рабочий экземпляр settlement-движка.
func New(
	carts CartAccess,
	catalog domain.ProductCatalog,
	ledger domain.OrderLedger,
	payments domain.PaymentGateway,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Engine {
	if logger == nil {
		logger = log.New().WithField("component", "settlement")
	}
	return &Engine{
		carts:    carts,
		catalog:  catalog,
		ledger:   ledger,
		payments: payments,
		outbox:   outbox,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
	}
}

// NewWithoutMetrics создаёт движок без метрик (для тестов).
func NewWithoutMetrics(
	carts CartAccess,
	catalog domain.ProductCatalog,
	ledger domain.OrderLedger,
	payments domain.PaymentGateway,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) *Engine {
	engine := New(carts, catalog, ledger, payments, outbox, logger)
	engine.metrics = nil
	return engine
}

// Checkout проводит settlement корзины владельца.
//
// Возвращаемые ошибки:
//   - *domain.SettlementRejection — хотя бы одна позиция не прошла проверку
//     стока; заказ либо не создан, либо помечен failed, сток не менялся;
//   - domain.ErrPaymentDeclined (обёрнутая) — оплата отклонена, заказ не создан;
//   - domain.ErrSettlementPartial (обёрнутая) — сбой после частичного списания,
//     заказ помечен failed, требуется ручная сверка;
//   - прочие ошибки инфраструктуры.
func (e *Engine) Checkout(ctx context.Context, owner domain.CartOwner, customer domain.Customer) (domain.Order, error) {
	start := time.Now()
	e.metrics.RecordCheckoutStarted()
	defer func() {
		e.metrics.RecordCheckoutDuration(time.Since(start))
	}()

	logger := e.logger.WithField("owner", owner.Key())
	logger.WithField("phase", PhaseDraft).Debug("checkout started")

	if err := customer.Validate(); err != nil {
		return domain.Order{}, err
	}

	cart, err := e.carts.Get(ctx, owner)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return domain.Order{}, domain.ErrOrderLinesRequired
	}

	e.emitEvent(kafka.EventTypeCheckoutStarted, "", map[string]interface{}{
		"owner": owner.Key(),
		"lines": len(cart.Lines),
	})

	// Validating: снимки стока перечитываются здесь, а не берутся из корзины —
	// между добавлением в корзину и checkout сток мог уйти другим покупателям.
	logger.WithField("phase", PhaseValidating).Debug("validating stock")
	diagnostics, err := e.validate(ctx, cart)
	if err != nil {
		return domain.Order{}, err
	}
	if len(diagnostics) > 0 {
		e.metrics.RecordCheckoutRejected()
		logger.WithFields(log.Fields{
			"phase":          PhaseRejected,
			"rejected_lines": len(diagnostics),
		}).Info("checkout rejected on validation")
		e.emitEvent(kafka.EventTypeCheckoutRejected, "", map[string]interface{}{
			"owner":       owner.Key(),
			"diagnostics": diagnostics,
		})
		return domain.Order{}, &domain.SettlementRejection{Diagnostics: diagnostics}
	}

	order := domain.Order{
		ID:          uuid.NewString(),
		OwnerID:     owner.Key(),
		Lines:       cart.Lines,
		Customer:    customer,
		AmountMinor: cart.TotalMinor(),
		Status:      domain.OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	// Оплата авторизуется до записи заказа: отклонённый платёж не должен
	// оставлять ни заказа, ни списаний.
	if err := e.payments.Authorize(ctx, order.ID, order.AmountMinor); err != nil {
		e.metrics.RecordCheckoutRejected()
		logger.WithError(err).WithField("phase", PhaseRejected).Warn("payment declined")
		e.emitEvent(kafka.EventTypeCheckoutPaymentDeclined, order.ID, map[string]interface{}{
			"owner": owner.Key(),
		})
		return domain.Order{}, fmt.Errorf("authorize payment: %w", err)
	}

	// Committing: заказ фиксируется до списаний, чтобы частичный сбой
	// оставил след для ручной сверки.
	logger.WithFields(log.Fields{
		"phase":    PhaseCommitting,
		"order_id": order.ID,
	}).Debug("committing settlement")
	if err := e.ledger.Append(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("append order: %w", err)
	}
	e.emitEvent(kafka.EventTypeOrderCreated, order.ID, map[string]interface{}{
		"owner":        owner.Key(),
		"amount_minor": order.AmountMinor,
		"lines":        len(order.Lines),
	})

	if err := e.commitStock(ctx, &order, logger); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatusCompleted
	order.UpdatedAt = time.Now().UTC()
	if err := e.ledger.SetStatus(ctx, order.ID, domain.OrderStatusCompleted); err != nil {
		// Сток уже списан, заказ проведён: ошибка статуса не откатывает settlement.
		logger.WithError(err).WithField("order_id", order.ID).Error("failed to mark order completed")
	}
	e.emitEvent(kafka.EventTypeOrderCompleted, order.ID, map[string]interface{}{
		"owner":  owner.Key(),
		"status": string(domain.OrderStatusCompleted),
	})

	// Корзина чистится после успеха; ошибка очистки не отменяет заказ.
	if err := e.carts.Clear(ctx, owner); err != nil {
		logger.WithError(err).WithField("order_id", order.ID).Warn("failed to clear cart after checkout")
	}

	e.metrics.RecordCheckoutCompleted()
	logger.WithFields(log.Fields{
		"phase":        PhaseCompleted,
		"order_id":     order.ID,
		"amount_minor": order.AmountMinor,
	}).Info("checkout completed")
	e.emitEvent(kafka.EventTypeCheckoutCompleted, order.ID, map[string]interface{}{
		"owner":        owner.Key(),
		"amount_minor": order.AmountMinor,
	})

	return order, nil
}

// validate перечитывает сток по каждой позиции корзины и собирает диагностику
// нарушений. Сток при этом не меняется.
func (e *Engine) validate(ctx context.Context, cart domain.Cart) ([]domain.LineDiagnostic, error) {
	var diagnostics []domain.LineDiagnostic
	for _, line := range cart.Lines {
		product, err := e.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			if domain.IsStockExceeded(err) {
				// Товар исчез из каталога: трактуем как нулевой остаток.
				diagnostics = append(diagnostics, domain.LineDiagnostic{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: 0,
				})
				continue
			}
			return nil, fmt.Errorf("read product %s: %w", line.ProductID, err)
		}
		if line.Quantity > product.AvailableStock {
			diagnostics = append(diagnostics, domain.LineDiagnostic{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: product.AvailableStock,
			})
		}
	}
	return diagnostics, nil
}

// commitStock списывает сток по позициям заказа. Каждое списание — атомарный
// check-and-decrement; при нехватке сток не меняется.
func (e *Engine) commitStock(ctx context.Context, order *domain.Order, logger *log.Entry) error {
	decremented := 0
	for _, line := range order.Lines {
		remaining, err := e.catalog.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			e.failOrder(ctx, order, logger)

			if decremented == 0 && domain.IsStockExceeded(err) {
				// Ничего не списано: конкурирующий checkout успел забрать сток.
				// Заказ отклоняется целиком, инвентарь не тронут.
				e.metrics.RecordCheckoutRejected()
				logger.WithFields(log.Fields{
					"phase":      PhaseRejected,
					"order_id":   order.ID,
					"product_id": line.ProductID,
				}).Info("checkout rejected on commit")
				e.emitEvent(kafka.EventTypeCheckoutRejected, order.ID, map[string]interface{}{
					"product_id": line.ProductID,
				})
				return &domain.SettlementRejection{Diagnostics: []domain.LineDiagnostic{{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: remaining,
				}}}
			}

			// Часть позиций уже списана (или каталог недоступен): фатальная
			// несогласованность, нужна ручная сверка.
			e.metrics.RecordCheckoutPartial()
			logger.WithError(err).WithFields(log.Fields{
				"order_id":    order.ID,
				"product_id":  line.ProductID,
				"decremented": decremented,
			}).Error("settlement failed mid-commit")
			e.emitEvent(kafka.EventTypeCheckoutPartial, order.ID, map[string]interface{}{
				"product_id":  line.ProductID,
				"decremented": decremented,
			})
			return fmt.Errorf("%w: decrement %s: %v", domain.ErrSettlementPartial, line.ProductID, err)
		}

		decremented++
		e.metrics.RecordStockDecrement()
		e.emitEvent(kafka.EventTypeStockDecremented, order.ID, map[string]interface{}{
			"product_id": line.ProductID,
			"quantity":   line.Quantity,
			"remaining":  remaining,
		})
		if remaining == 0 {
			e.emitEvent(kafka.EventTypeStockDepleted, order.ID, map[string]interface{}{
				"product_id": line.ProductID,
			})
		}
	}
	return nil
}

func (e *Engine) failOrder(ctx context.Context, order *domain.Order, logger *log.Entry) {
	order.Status = domain.OrderStatusFailed
	order.UpdatedAt = time.Now().UTC()
	if err := e.ledger.SetStatus(ctx, order.ID, domain.OrderStatusFailed); err != nil {
		logger.WithError(err).WithField("order_id", order.ID).Error("failed to mark order failed")
	}
	e.emitEvent(kafka.EventTypeOrderFailed, order.ID, map[string]interface{}{
		"status": string(domain.OrderStatusFailed),
	})
}

// emitEvent кладёт событие settlement в transactional outbox; публикацией
// наружу занимается отдельный воркер.
func (e *Engine) emitEvent(eventType kafka.EventType, orderID string, payload map[string]interface{}) {
	if e.outbox == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	if orderID != "" {
		payload["order_id"] = orderID
	}
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "checkout",
		AggregateID:   orderID,
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := e.outbox.Enqueue(msg); err != nil {
		e.logger.WithError(err).WithField("event", eventType).Error("enqueue event failed")
		return
	}
	e.metrics.RecordOutboxEvent()
}
