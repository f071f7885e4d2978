package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/config"
	"github.com/couchcryptid/grid-timeline/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Message headers set on published days.
const (
	HeaderDate        = "date"
	HeaderGeneratedAt = "generated_at"
)

// Writer produces day summaries to a Kafka topic.
// It implements pipeline.DayPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Messages
// are keyed by date so every revision of a day lands on the same partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishDays serializes and publishes the given days in a single
// WriteMessages call.
func (w *Writer) PublishDays(ctx context.Context, generatedAt time.Time, days []domain.Day) error {
	if len(days) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(days))
	for i := range days {
		msg, err := serializeDay(days[i], generatedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d days: %w", len(days), err)
	}
	w.logger.Debug("days published", "count", len(days))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeDay marshals a Day into a Kafka message keyed by its date.
func serializeDay(day domain.Day, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(day)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize day %s: %w", day.Key, err)
	}
	return kafkago.Message{
		Key:   []byte(day.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderDate, Value: []byte(day.Key)},
			{Key: HeaderGeneratedAt, Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
