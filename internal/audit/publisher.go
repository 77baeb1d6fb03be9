package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"maintenance-manager/console/internal/audit/domain"
)

// publishTimeout bounds a single async publish so a slow broker never holds a goroutine for long.
const publishTimeout = 5 * time.Second

// Publisher emits audit events to an external stream. Callers use it best-effort: log and ignore errors.
type Publisher interface {
	Publish(ctx context.Context, entry *domain.AuditLog) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}

// KafkaPublisher implements Publisher using segmentio/kafka-go.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaPublisher creates a publisher that writes audit events to topic.
// Returns nil when brokers or topic are empty, meaning publishing is disabled. Call Close when shutting down.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, topic: topic}
}

// Publish serializes the entry as JSON and writes it keyed by company id, so one company's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, entry *domain.AuditLog) error {
	if p == nil || p.writer == nil || entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(entry.CompanyID),
		Value: payload,
	}); err != nil {
		log.Printf("audit: kafka publish failed: %v", err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// publishAsync runs Publish in a goroutine detached from the request so the caller is not blocked.
func publishAsync(p Publisher, entry *domain.AuditLog) {
	if p == nil || entry == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, entry); err != nil {
			log.Printf("audit: async publish failed: %v", err)
		}
	}()
}
