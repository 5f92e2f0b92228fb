package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// eventEnvelope — формат сообщения во внешних топиках: метаданные outbox
// плюс исходный payload события как есть.
type eventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

func newEnvelope(event domain.OutboxMessage) eventEnvelope {
	return eventEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}
}

// Ключ партиционирования: события одного заказа должны попадать в одну
// партицию и сохранять порядок.
func partitionKey(event domain.OutboxMessage) string {
	if event.AggregateID != "" {
		return event.AggregateID
	}
	return event.ID
}

// OutboxEventPublisher раскладывает outbox-события по топикам витрины
// в зависимости от агрегата в типе события.
type OutboxEventPublisher struct {
	producer *Producer
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer) domain.OutboxPublisher {
	return &OutboxEventPublisher{producer: producer}
}

func (p *OutboxEventPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}
	return p.producer.PublishEvent(TopicFor(event.EventType), partitionKey(event), newEnvelope(event))
}

// DeadLetterPublisher отправляет события, которые воркер не смог доставить,
// в DLQ-топик с диагностическими заголовками о причине и числе попыток.
type DeadLetterPublisher struct {
	producer *Producer
}

// NewDeadLetterPublisher создаёт паблишер DLQ.
func NewDeadLetterPublisher(producer *Producer) *DeadLetterPublisher {
	return &DeadLetterPublisher{producer: producer}
}

// PublishFailure кладёт событие в DLQ. Тело остаётся исходным конвертом,
// диагностика уходит в заголовки: так событие можно переиграть без распаковки.
func (p *DeadLetterPublisher) PublishFailure(event domain.OutboxMessage, attempts int, cause error) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dead letter publisher is not initialized")
	}

	value, err := json.Marshal(newEnvelope(event))
	if err != nil {
		return fmt.Errorf("marshal dlq envelope: %w", err)
	}

	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderRetryCount), Value: []byte(strconv.Itoa(attempts))},
		{Key: []byte(HeaderOriginalTopic), Value: []byte(TopicFor(event.EventType))},
		{Key: []byte(HeaderErrorMessage), Value: []byte(reason)},
		{Key: []byte(HeaderFailedAt), Value: []byte(time.Now().UTC().Format(time.RFC3339Nano))},
	}

	return p.producer.send(TopicDeadLetterQueue, partitionKey(event), value, headers)
}

var _ domain.OutboxPublisher = (*OutboxEventPublisher)(nil)
