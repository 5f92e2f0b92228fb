package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
)

// initOutboxWorker подключает Kafka и собирает outbox worker поверх неё.
// Пустой список брокеров выключает публикацию: события копятся в outbox и
// будут доставлены, когда брокер появится. Ошибка подключения не роняет
// сервис по той же причине.
func initOutboxWorker(cfg Config, repo domain.OutboxRepository, logger *log.Entry) (*kafka.Producer, *outbox.Worker) {
	brokers := strings.TrimSpace(cfg.KafkaBrokers)
	if brokers == "" {
		return nil, nil
	}

	producer, err := kafka.NewProducer(strings.Split(brokers, ","))
	if err != nil {
		logger.WithError(err).Warn("kafka unavailable, events will stay in outbox")
		return nil, nil
	}
	logger.WithField("brokers", brokers).Info("kafka producer initialized")

	worker := outbox.NewWorker(
		repo,
		kafka.NewOutboxPublisher(producer),
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithFailureSink(kafka.NewDeadLetterPublisher(producer)),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
	)

	return producer, worker
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
