// Package kafka publishes catalog entries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/grib-catalog/internal/config"
	"github.com/couchcryptid/grib-catalog/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces catalog entries to a Kafka topic.
// It implements catalog.EntrySink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes entries in a single WriteMessages call. Entries are
// keyed by path, so re-cataloguing a file lands on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, entries []domain.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(entries))
	for i := range entries {
		msg, err := serializeToMessage(entries[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d catalog entries to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("catalog entries published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CatalogEntry into a Kafka message.
func serializeToMessage(entry domain.CatalogEntry) (kafkago.Message, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize catalog entry: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(entry.Path),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "version", Value: []byte(entry.Version)},
			{Key: "reference_datetime", Value: []byte(entry.ReferenceDatetime.UTC().Format(time.RFC3339))},
			{Key: "run_id", Value: []byte(entry.RunID)},
		},
	}, nil
}
