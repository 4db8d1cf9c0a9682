package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer for topic spread over brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// KafkaPublisher writes events keyed by aggregate id so that all events of
// one order land on the same partition.
type KafkaPublisher struct {
	Writer  MessageWriter
	Timeout time.Duration
}

// Publish implements Publisher.
func (p KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-topic", Value: []byte(event.Topic)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	})
}

// Close flushes and closes the writer.
func (p KafkaPublisher) Close() error { return p.Writer.Close() }

// LogPublisher records events in the log when no broker is configured.
type LogPublisher struct {
	Logger zerolog.Logger
}

// Publish implements Publisher.
func (p LogPublisher) Publish(_ context.Context, event Event) error {
	p.Logger.Info().
		Str("event_id", event.ID).
		Str("topic", event.Topic).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", event.Payload).
		Msg("domain event")
	return nil
}
