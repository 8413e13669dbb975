package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenmap/lightwatch/internal/config"
	"github.com/lumenmap/lightwatch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes derived light-status changes to the sink topic.
// It implements feed.StatusPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured status topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaStatusTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishStatuses serializes and publishes the changed statuses in a single
// WriteMessages call for efficiency.
func (w *Writer) PublishStatuses(ctx context.Context, statuses []domain.LightStatus) error {
	if len(statuses) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(statuses))
	for i := range statuses {
		msg, err := serializeToMessage(statuses[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a LightStatus into a Kafka message keyed by
// light id, so per-light ordering holds within a partition.
func serializeToMessage(st domain.LightStatus) (kafkago.Message, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize light status: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(st.LightID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(st.Status)},
			{Key: "derived_at", Value: []byte(domain.Now().Format(time.RFC3339))},
		},
	}, nil
}
