//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/lumenmap/lightwatch/internal/adapter/kafka"
	"github.com/lumenmap/lightwatch/internal/config"
	"github.com/lumenmap/lightwatch/internal/domain"
	"github.com/lumenmap/lightwatch/internal/engine"
	"github.com/lumenmap/lightwatch/internal/feed"
	"github.com/lumenmap/lightwatch/internal/observability"
)

const (
	testFeedTopic   = "test-feed"
	testStatusTopic = "test-status"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("lightwatch-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func feedMessage(t *testing.T, ev domain.FeedEvent) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(string(ev.Collection)), Value: payload}
}

// statusMessage is one deserialized message from the status topic.
type statusMessage struct {
	Status  domain.LightStatus
	Key     string
	Headers map[string]string
}

func readStatus(ctx context.Context, t *testing.T, consumer *kafkago.Reader) statusMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from status topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var st domain.LightStatus
	require.NoError(t, json.Unmarshal(msg.Value, &st), "unmarshal status message")

	return statusMessage{Status: st, Key: string(msg.Key), Headers: headers}
}

// TestFeedEndToEnd wires Reader → Engine → Writer against real Kafka:
// feed events go in, derived status changes come out.
func TestFeedEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testFeedTopic)
	createTopic(t, broker, testStatusTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaFeedTopic:   testFeedTopic,
		KafkaStatusTopic: testStatusTopic,
		KafkaGroupID:     fmt.Sprintf("test-feed-%d", time.Now().UnixNano()),
	}

	base := time.Date(2025, time.November, 3, 21, 0, 0, 0, time.UTC)

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testFeedTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	light := domain.OfficialLight{ID: "official-1", HumanID: "SL7898086510", Lat: 41.8651, Lng: -80.7898}
	report := domain.Report{
		ID: "r-1", Lat: 41.8651, Lng: -80.7898, Type: domain.OutageOut,
		Timestamp: base, LightID: "official-1", ReporterEmail: "sam@example.com",
	}

	require.NoError(t, producer.WriteMessages(ctx,
		feedMessage(t, domain.FeedEvent{Collection: domain.CollectionLights, Op: domain.OpInsert, Light: &light}),
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		feedMessage(t, domain.FeedEvent{Collection: domain.CollectionReports, Op: domain.OpInsert, Report: &report}),
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	eng := engine.New(discardLogger(), metrics)
	f := feed.New(reader, eng, writer, discardLogger(), metrics, 50)

	feedCtx, feedCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(feedCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testStatusTopic,
		GroupID:     fmt.Sprintf("test-status-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	// Depending on batch boundaries the light insert may publish an interim
	// operational status first; the report insert always ends at reported.
	// The poison pill is skipped either way.
	var reported statusMessage
	for {
		sm := readStatus(ctx, t, consumer)
		assert.Equal(t, "official-1", sm.Key)
		if sm.Status.Status == domain.StatusReported {
			reported = sm
			break
		}
		assert.Equal(t, domain.StatusOperational, sm.Status.Status)
	}
	assert.Equal(t, "yellow", reported.Status.Color)
	assert.Equal(t, domain.OutageOut, reported.Status.MajorityType)
	assert.Equal(t, 1, reported.Status.OpenReports)
	assert.Equal(t, string(domain.StatusReported), reported.Headers["status"])
	_, err := time.Parse(time.RFC3339, reported.Headers["derived_at"])
	assert.NoError(t, err, "derived_at should be valid RFC3339")

	// Engine state mirrors the feed.
	assert.Len(t, eng.Reports(), 1)
	statuses := eng.DeriveStatus()
	require.Contains(t, statuses, "official-1")
	assert.Equal(t, domain.StatusReported, statuses["official-1"].Status)

	// A fix action closes the cycle and the light goes operational again.
	fix := domain.LightAction{LightID: "official-1", Action: domain.ActionFix, Timestamp: base.Add(time.Hour), ActorUserID: "admin-1"}
	require.NoError(t, producer.WriteMessages(ctx,
		feedMessage(t, domain.FeedEvent{Collection: domain.CollectionActions, Op: domain.OpInsert, Action: &fix}),
	))

	operational := readStatus(ctx, t, consumer)
	assert.Equal(t, domain.StatusOperational, operational.Status.Status)
	assert.Equal(t, 0, operational.Status.OpenReports)

	feedCancel()
	require.NoError(t, <-errCh)
}
