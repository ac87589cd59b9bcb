package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// Producer handles publishing events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishSyncCompleted publishes a sync completed event for an account
func (p *Producer) PublishSyncCompleted(ctx context.Context, accountID string, dealsSynced int, newlyClosed []int64) error {
	event := models.SyncEvent{
		EventType:   "SYNC_COMPLETED",
		AccountID:   accountID,
		DealsSynced: dealsSynced,
		NewlyClosed: newlyClosed,
		Timestamp:   time.Now(),
	}
	return p.publish(ctx, accountID, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.SyncEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
