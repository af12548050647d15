package publisher

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller publishes order events that were committed together with the
// order change. Delivery is at least once: an event is marked only after the
// broker accepted it.
type OutboxPoller struct {
	interval  time.Duration
	batchSize int
	repo      repository.OutboxRepository
	writer    MessageWriter
}

func NewOutboxPoller(repo repository.OutboxRepository, writer MessageWriter, interval time.Duration, batchSize int) *OutboxPoller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &OutboxPoller{interval: interval, batchSize: batchSize, repo: repo, writer: writer}
}

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logger.Get().Info("outbox poller started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			logger.Get().Info("outbox poller stopped")
			return nil
		}
	}
}

// processUnpublishedEvents returns the number of events published.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	log := logger.Get()

	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		log.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			// stop here so later events for the same order are not sent ahead of this one
			log.Warn("failed to publish outbox event",
				zap.Int64("event_id", event.ID),
				zap.String("order_id", event.AggregateID),
				zap.Error(err))
			return published
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.Error("failed to mark outbox event as processed",
				zap.Int64("event_id", event.ID),
				zap.Error(err))
			return published
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps one order's events on one partition
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
