package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher streams committed entries to a topic, keyed by action.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaWriter builds a writer for a comma-separated broker list.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &kafka.Writer{
		Addr:     kafka.TCP(addrs...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

// NewKafkaPublisher wraps a writer.
func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

var _ Sink = (*KafkaPublisher)(nil)

// Write publishes the entry as JSON.
func (p *KafkaPublisher) Write(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(entry.Action),
		Value: payload,
		Time:  entry.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("audit: publish entry %s: %w", entry.ID, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
