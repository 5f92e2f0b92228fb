package kafka

import "strings"

// EventType — тип события во внешнем контракте витрины.
// Грамматика: "<агрегат>.<что произошло>", строчными буквами.
type EventType string

const (
	EventTypeCheckoutStarted         EventType = "checkout.started"
	EventTypeCheckoutCompleted       EventType = "checkout.completed"
	EventTypeCheckoutRejected        EventType = "checkout.rejected"
	EventTypeCheckoutPartial         EventType = "checkout.partial"
	EventTypeCheckoutPaymentDeclined EventType = "checkout.payment_declined"

	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderCompleted EventType = "order.completed"
	EventTypeOrderFailed    EventType = "order.failed"

	EventTypeStockDecremented EventType = "stock.decremented"
	EventTypeStockDepleted    EventType = "stock.depleted"
)

// Топики витрины: по одному на агрегат плюс DLQ.
const (
	TopicCheckoutEvents  = "storefront.checkout.events"
	TopicOrderEvents     = "storefront.order.events"
	TopicStockEvents     = "storefront.stock.events"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Заголовки сообщений, уходящих в DLQ.
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// TopicFor выбирает топик по префиксу агрегата в типе события.
// Неизвестный префикс уходит в checkout-топик, чтобы событие не потерялось.
func TopicFor(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "order."):
		return TopicOrderEvents
	case strings.HasPrefix(eventType, "stock."):
		return TopicStockEvents
	default:
		return TopicCheckoutEvents
	}
}
