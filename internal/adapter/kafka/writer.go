package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/incident-aoi-notifier/internal/config"
	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

// Writer publishes notifications to a Kafka topic, one message per AOI.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and errors.
func (w *Writer) Name() string { return config.SinkKafka }

// Send publishes n keyed by AOI name so an AOI's notifications stay ordered on one partition.
func (w *Writer) Send(ctx context.Context, n domain.Notification) error {
	msg, err := serializeToMessage(n)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	w.logger.Debug("notification published", "aoi", n.AOI, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a notification payload into a Kafka message.
func serializeToMessage(n domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n.Payload())
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.AOI),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "aoi", Value: []byte(n.AOI)},
			{Key: "match_count", Value: []byte(strconv.Itoa(len(n.Matches)))},
			{Key: "generated_at", Value: []byte(n.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
