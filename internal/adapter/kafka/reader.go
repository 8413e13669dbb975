package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lumenmap/lightwatch/internal/config"
	"github.com/lumenmap/lightwatch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes push-feed messages from Kafka.
// It implements feed.BatchExtractor.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured feed topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaFeedTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Reader{reader: r, logger: logger}
}

// ExtractBatch reads up to batchSize messages. The first fetch blocks on the
// caller's context; subsequent fetches drain whatever is immediately
// available so a quiet topic never stalls a partially-filled batch.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]domain.RawEvent, 0, batchSize)
	batch = append(batch, r.mapMessage(first))

	for len(batch) < batchSize {
		drainCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		msg, err := r.reader.FetchMessage(drainCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			// Return what we have; the caller commits these before the error
			// path resurfaces on the next extract.
			return batch, nil
		}
		batch = append(batch, r.mapMessage(msg))
	}

	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessage converts a Kafka message into the transport-neutral RawEvent,
// wiring the commit callback to the consumer group offset commit.
func (r *Reader) mapMessage(msg kafkago.Message) domain.RawEvent {
	raw := mapMessageToRawEvent(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func mapMessageToRawEvent(msg kafkago.Message) domain.RawEvent {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawEvent{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
