package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nepsedata/nepse-data-service/internal/models"
)

// Producer publishes ingestion events to Kafka
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

// PublishIngested publishes an event for a completed scrape-and-store run.
func (p *Producer) PublishIngested(ctx context.Context, dataset, businessDate string, rowCount int) error {
	event := models.IngestionEvent{
		EventType:    "DATASET_INGESTED",
		Dataset:      dataset,
		BusinessDate: businessDate,
		RowCount:     rowCount,
		Timestamp:    time.Now(),
	}
	return p.publish(ctx, dataset, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.IngestionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the Kafka writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
