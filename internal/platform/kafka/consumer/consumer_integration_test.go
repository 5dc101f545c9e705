//go:build integration

package consumer_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"homeroom/internal/platform/kafka/consumer"
	"homeroom/internal/platform/kafka/producer"
	"homeroom/pkg/testutil/containers"
)

type ConsumerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestConsumerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ConsumerIntegrationSuite))
}

func (s *ConsumerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	prod, err := producer.New(producer.Config{
		Brokers:         s.kafka.Brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 10 * time.Second,
	}, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ConsumerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *ConsumerIntegrationSuite) newConsumer(groupID string, h consumer.Handler) *consumer.Consumer {
	s.T().Helper()
	cons, err := consumer.New(consumer.Config{
		Brokers:         s.kafka.Brokers,
		GroupID:         groupID,
		AutoOffsetReset: "earliest",
	}, h, nil)
	s.Require().NoError(err)
	return cons
}

func (s *ConsumerIntegrationSuite) stop(cons *consumer.Consumer) {
	s.T().Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = cons.Stop(ctx)
}

// collectingHandler records everything it sees, optionally failing
// first via errFunc.
type collectingHandler struct {
	mu       sync.Mutex
	messages []*consumer.Message
	errFunc  func(*consumer.Message) error
}

func (h *collectingHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.errFunc != nil {
		if err := h.errFunc(msg); err != nil {
			return err
		}
	}
	h.messages = append(h.messages, msg)
	return nil
}

func (h *collectingHandler) Messages() []*consumer.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*consumer.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (s *ConsumerIntegrationSuite) TestReceivesProducedEntries() {
	ctx := context.Background()
	topic := "homeroom.audit.receive"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	for i := 0; i < 3; i++ {
		err := s.producer.Produce(ctx, &producer.Message{
			Topic: topic,
			Key:   []byte("entry"),
			Value: []byte(`{"action":"school_registered"}`),
		})
		s.Require().NoError(err)
	}

	handler := &collectingHandler{}
	cons := s.newConsumer("homeroom-audit-receive", handler)
	s.Require().NoError(cons.Subscribe([]string{topic}))
	cons.Start()
	defer s.stop(cons)

	s.Eventually(func() bool {
		return len(handler.Messages()) >= 3
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *ConsumerIntegrationSuite) TestHeadersSurviveTheRoundTrip() {
	ctx := context.Background()
	topic := "homeroom.audit.headers"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic: topic,
		Key:   []byte("entry-id"),
		Value: []byte("payload"),
		Headers: map[string]string{
			"request_id": "abc123",
			"event_type": "school_registered",
		},
	})
	s.Require().NoError(err)

	handler := &collectingHandler{}
	cons := s.newConsumer("homeroom-audit-headers", handler)
	s.Require().NoError(cons.Subscribe([]string{topic}))
	cons.Start()
	defer s.stop(cons)

	s.Eventually(func() bool {
		return len(handler.Messages()) >= 1
	}, 10*time.Second, 100*time.Millisecond)

	received := handler.Messages()[0]
	s.Equal("abc123", received.Headers["request_id"])
	s.Equal("school_registered", received.Headers["event_type"])
}

// A handler failure must leave the offset uncommitted so a later
// consumer in the same group sees the message again.
func (s *ConsumerIntegrationSuite) TestFailedHandlerTriggersRedelivery() {
	ctx := context.Background()
	topic := "homeroom.audit.redelivery"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic: topic,
		Key:   []byte("entry"),
		Value: []byte("payload"),
	})
	s.Require().NoError(err)

	groupID := "homeroom-audit-redelivery-" + time.Now().Format("20060102150405")

	var attempts atomic.Int32
	failing := &collectingHandler{errFunc: func(*consumer.Message) error {
		if attempts.Add(1) == 1 {
			return context.DeadlineExceeded
		}
		return nil
	}}

	cons1 := s.newConsumer(groupID, failing)
	s.Require().NoError(cons1.Subscribe([]string{topic}))
	cons1.Start()

	s.Eventually(func() bool {
		return attempts.Load() >= 1
	}, 10*time.Second, 100*time.Millisecond)
	s.stop(cons1)

	succeeding := &collectingHandler{}
	cons2 := s.newConsumer(groupID, succeeding)
	s.Require().NoError(cons2.Subscribe([]string{topic}))
	cons2.Start()
	defer s.stop(cons2)

	s.Eventually(func() bool {
		return len(succeeding.Messages()) >= 1
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *ConsumerIntegrationSuite) TestHealthyOnceAssigned() {
	ctx := context.Background()
	topic := "homeroom.audit.health"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	cons := s.newConsumer("homeroom-audit-health", &collectingHandler{})
	s.Require().NoError(cons.Subscribe([]string{topic}))
	cons.Start()
	defer s.stop(cons)

	s.Eventually(func() bool {
		return cons.Healthy(ctx)
	}, 15*time.Second, 200*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s.Require().NoError(cons.Stop(stopCtx))
	s.False(cons.Healthy(ctx))
}
