package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond

	// Потолок backoff: задержка между попытками не растёт бесконечно.
	maxRetryDelay = 5 * time.Second
)

var (
	outboxDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_outbox_delivered_total",
		Help: "Outbox events successfully delivered to the broker, by event type.",
	}, []string{"event_type"})
	outboxDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_outbox_dead_lettered_total",
		Help: "Outbox events given up on and routed to the DLQ, by event type.",
	}, []string{"event_type"})
	outboxRetryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_outbox_retry_attempts_total",
		Help: "Failed publish attempts that were retried.",
	})
	outboxPendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_outbox_pending_records",
		Help: "Current number of pending records in the transactional outbox.",
	})
	outboxOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending outbox record.",
	})
)

// FailureSink принимает события, которые воркер не смог доставить
// за отведённое число попыток.
type FailureSink interface {
	PublishFailure(event domain.OutboxMessage, attempts int, cause error) error
}

// Worker вычитывает pending-события из transactional outbox и доставляет их
// в брокер. Недоставленное событие после всех попыток помечается failed и,
// если задан FailureSink, уходит в DLQ.
type Worker struct {
	repo           domain.OutboxRepository
	publisher      domain.OutboxPublisher
	failures       FailureSink
	logger         *log.Entry
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// Option настраивает Worker.
type Option func(*Worker)

// WithLogger задаёт логгер воркера.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithFailureSink задаёт приёмник недоставленных событий (обычно DLQ).
func WithFailureSink(sink FailureSink) Option {
	return func(w *Worker) { w.failures = sink }
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithBatchSize задаёт размер вычитываемого батча.
func WithBatchSize(batchSize int) Option {
	return func(w *Worker) {
		if batchSize > 0 {
			w.batchSize = batchSize
		}
	}
}

// WithMaxAttempts задаёт число попыток публикации до failed/DLQ.
func WithMaxAttempts(maxAttempts int) Option {
	return func(w *Worker) {
		if maxAttempts > 0 {
			w.maxAttempts = maxAttempts
		}
	}
}

// WithRetryBaseDelay задаёт базовую задержку exponential backoff.
// Ноль отключает паузы между попытками (используется в тестах).
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) {
		if delay >= 0 {
			w.retryBaseDelay = delay
		}
	}
}

// NewWorker создаёт outbox worker с разумными значениями по умолчанию.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	w := &Worker{
		repo:           repo,
		publisher:      publisher,
		logger:         log.WithField("component", "outbox-worker"),
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run опрашивает outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один цикл: вычитывает батч pending-событий и
// доставляет их по одному, сохраняя порядок записи.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.observeBacklog()

	events, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox events")
		return
	}

	for _, event := range events {
		if ctx.Err() != nil {
			return
		}

		if err := w.deliver(ctx, event); err != nil {
			w.deadLetter(event, err)
			if markErr := w.repo.MarkFailed(event.ID); markErr != nil {
				w.logger.WithError(markErr).WithField("outbox_id", event.ID).Warn("failed to mark outbox event as failed")
			}
			continue
		}

		outboxDelivered.WithLabelValues(event.EventType).Inc()
		if err := w.repo.MarkSent(event.ID); err != nil {
			w.logger.WithError(err).WithField("outbox_id", event.ID).Warn("failed to mark outbox event as sent")
		}
	}

	if len(events) > 0 {
		w.observeBacklog()
	}
}

// deliver публикует событие, повторяя попытки с exponential backoff.
func (w *Worker) deliver(ctx context.Context, event domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if lastErr = w.publisher.Publish(event); lastErr == nil {
			return nil
		}
		if attempt == w.maxAttempts {
			break
		}
		outboxRetryAttempts.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff(attempt)):
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", domain.ErrOutboxPublish, w.maxAttempts, lastErr)
}

// deadLetter отдаёт событие в FailureSink. Ошибка DLQ только логируется:
// событие уже помечается failed и остаётся в outbox для ручного разбора.
func (w *Worker) deadLetter(event domain.OutboxMessage, cause error) {
	w.logger.WithError(cause).WithFields(log.Fields{
		"outbox_id":  event.ID,
		"event_type": event.EventType,
	}).Error("outbox publish failed after retries")
	outboxDeadLettered.WithLabelValues(event.EventType).Inc()

	if w.failures == nil {
		return
	}
	if err := w.failures.PublishFailure(event, w.maxAttempts, cause); err != nil {
		w.logger.WithError(err).WithField("outbox_id", event.ID).Warn("failed to publish event to DLQ")
	}
}

func (w *Worker) backoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 {
		return 0
	}
	delay := w.retryBaseDelay << uint(attempt-1)
	if delay <= 0 || delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

func (w *Worker) observeBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	outboxPendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		outboxOldestPendingAge.Set(0)
		return
	}
	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	outboxOldestPendingAge.Set(age)
}
