package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := map[string]interface{}{
		"event_type": string(EventTypeCheckoutCompleted),
		"order_id":   "order-123",
		"owner":      "guest:sess-1",
	}
	if err := producer.PublishEvent(TopicCheckoutEvents, "order-123", event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := map[string]interface{}{
		"event_type": string(EventTypeStockDepleted),
		"product_id": "p1",
		"remaining":  0,
	}
	if err := producer.PublishEvent(TopicStockEvents, "p1", event); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestTopicForRoutesByAggregate(t *testing.T) {
	cases := []struct {
		eventType string
		want      string
	}{
		{string(EventTypeCheckoutCompleted), TopicCheckoutEvents},
		{string(EventTypeCheckoutRejected), TopicCheckoutEvents},
		{string(EventTypeOrderCreated), TopicOrderEvents},
		{string(EventTypeOrderFailed), TopicOrderEvents},
		{string(EventTypeStockDecremented), TopicStockEvents},
		{string(EventTypeStockDepleted), TopicStockEvents},
		{"unknown.event", TopicCheckoutEvents},
	}

	for _, tc := range cases {
		if got := TopicFor(tc.eventType); got != tc.want {
			t.Errorf("TopicFor(%q) = %q, want %q", tc.eventType, got, tc.want)
		}
	}
}
