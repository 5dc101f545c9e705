// Package worker ships pending outbox entries to Kafka. Delivery is
// at-least-once; the consuming side deduplicates on the entry ID.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"homeroom/internal/platform/kafka/producer"
	audit "homeroom/pkg/platform/audit"
	"homeroom/pkg/platform/audit/outbox"
	"homeroom/pkg/platform/audit/outbox/metrics"
)

// Producer publishes a single message. Satisfied by producer.Producer and
// producer.NoopProducer.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Shipper polls the outbox table and publishes pending entries to Kafka.
type Shipper struct {
	store        outbox.Store
	producer     Producer
	topic        string
	batchSize    int
	pollInterval time.Duration
	drainTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Shipper.
type Option func(*Shipper)

// WithTopic sets the Kafka topic for publishing.
func WithTopic(topic string) Option {
	return func(s *Shipper) {
		s.topic = topic
	}
}

// WithBatchSize sets the maximum number of entries to fetch per poll.
func WithBatchSize(size int) Option {
	return func(s *Shipper) {
		s.batchSize = size
	}
}

// WithPollInterval sets the interval between polls.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Shipper) {
		s.pollInterval = interval
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Shipper) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shipper) {
		s.logger = logger
	}
}

// New creates an outbox shipper.
func New(store outbox.Store, prod Producer, opts ...Option) *Shipper {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Shipper{
		store:        store,
		producer:     prod,
		topic:        "homeroom.audit",
		batchSize:    100,
		pollInterval: 100 * time.Millisecond,
		drainTimeout: 10 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins the polling loop in a background goroutine.
func (s *Shipper) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Shipper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.drain()
			return
		case <-ticker.C:
			start := time.Now()
			s.shipBatch(s.ctx)
			if s.metrics != nil {
				s.metrics.ObservePollDuration(time.Since(start).Seconds())
			}
		}
	}
}

// shipBatch fetches one batch of pending entries and publishes each.
// Returns the number of entries fetched so drain can detect an empty outbox.
func (s *Shipper) shipBatch(ctx context.Context) int {
	entries, err := s.store.FetchUnprocessed(ctx, s.batchSize)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to fetch outbox entries", "error", err)
		}
		if s.metrics != nil {
			s.metrics.IncPublishFailures()
		}
		return 0
	}
	if len(entries) == 0 {
		return 0
	}

	if s.metrics != nil {
		s.metrics.ObserveBatchSize(len(entries))
	}

	for _, entry := range entries {
		if err := s.publish(ctx, entry); err != nil {
			if s.logger != nil {
				s.logger.Error("failed to publish outbox entry",
					"id", entry.ID,
					"event_type", entry.EventType,
					"error", err,
				)
			}
			if s.metrics != nil {
				s.metrics.IncPublishFailures()
			}
			// Left pending; picked up again on the next poll.
			continue
		}

		if err := s.store.MarkProcessed(ctx, entry.ID, time.Now()); err != nil {
			if s.logger != nil {
				s.logger.Error("failed to mark entry as processed",
					"id", entry.ID,
					"error", err,
				)
			}
			// Published but still pending; the consumer dedupes the replay.
			continue
		}

		if s.metrics != nil {
			s.metrics.IncPublished()
		}
	}

	return len(entries)
}

// publish sends a single outbox entry to Kafka. The entry ID is the message
// key so the consumer can insert idempotently.
func (s *Shipper) publish(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()

	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(entry.ID.String()),
		Value: entry.Payload,
		Headers: map[string]string{
			"aggregate_type": entry.AggregateType,
			"aggregate_id":   entry.AggregateID,
			"event_type":     entry.EventType,
			"category":       string(audit.AuditEvent(entry.EventType).Category()),
		},
	}

	if err := s.producer.Produce(ctx, msg); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}

	return nil
}

// drain ships remaining entries during shutdown, bounded by drainTimeout.
func (s *Shipper) drain() {
	if s.logger != nil {
		s.logger.Info("draining audit outbox")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()

	for {
		if ctx.Err() != nil {
			return
		}
		if s.shipBatch(ctx) == 0 {
			return
		}
	}
}

// Stop gracefully stops the shipper.
func (s *Shipper) Stop(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateMetrics refreshes the pending depth gauge.
// Call this periodically from a separate goroutine if needed.
func (s *Shipper) UpdateMetrics(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}

	count, err := s.store.CountPending(ctx)
	if err != nil {
		return err
	}

	s.metrics.SetPendingDepth(count)
	return nil
}
