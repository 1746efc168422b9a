package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes notifications as JSON messages keyed by recipient.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a sink writing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
	return &KafkaSink{writer: w}
}

// Deliver publishes n. Messages for the same recipient land on the same partition.
func (s *KafkaSink) Deliver(ctx context.Context, n Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.RecipientID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	})
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// LogSink writes notifications to the structured log. Used when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "notify")}
}

// Deliver logs n.
func (s *LogSink) Deliver(_ context.Context, n Notification) error {
	s.logger.Info("notification",
		"kind", n.Kind,
		"recipient_id", n.RecipientID,
		"title", n.Title,
		"message", n.Message,
	)
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error {
	return nil
}
