package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avolkov/trade-dashboard/internal/models"
)

// DealRepository defines the interface for deal persistence used by the
// consumer.
type DealRepository interface {
	CreateDeal(accountID string, d *models.Deal) error
	DealExists(accountID string, ticket int64) (bool, error)
}

// Consumer ingests externally recorded deal events from Kafka into the
// audit trail. Aggregated trades are rebuilt separately by the sync
// service, which reads the full deal history.
type Consumer struct {
	reader *kafka.Reader
	repo   DealRepository
}

// NewConsumer creates a new Kafka consumer for deal events
func NewConsumer(brokers []string, topic, groupID string, repo DealRepository) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(msg); err != nil {
				log.Printf("Error processing message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	log.Printf("Received message from partition %d offset %d: key=%s",
		msg.Partition, msg.Offset, string(msg.Key))

	var event models.DealEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal deal event: %w", err)
	}

	if event.EventType != "DEAL_RECORDED" {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	// Check for duplicate (idempotency)
	exists, err := c.repo.DealExists(event.AccountID, event.Deal.Ticket)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate deal: %w", err)
	}
	if exists {
		log.Printf("Deal %d for %s already exists, skipping", event.Deal.Ticket, event.AccountID)
		return nil
	}

	deal := event.Deal
	if err := c.repo.CreateDeal(event.AccountID, &deal); err != nil {
		return fmt.Errorf("failed to save deal: %w", err)
	}

	log.Printf("Saved deal: ticket=%d %s %.2f @ %.5f (account: %s)",
		deal.Ticket, deal.Symbol, deal.Volume, deal.Price, event.AccountID)

	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
