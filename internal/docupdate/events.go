package docupdate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/docintel/internal/config"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/pkg/errors"
)

// writerAPI abstracts kafka.Writer so tests can substitute a fake without a
// live broker.
type writerAPI interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements Publisher on top of a Kafka topic. Every Event
// is marshalled as JSON and keyed by its Root, so ordering is preserved
// per-corpus within a partition.
type KafkaPublisher struct {
	writer writerAPI
	topic  string
	logger logging.Logger
}

// NewKafkaPublisher builds a KafkaPublisher from cfg.
func NewKafkaPublisher(cfg config.KafkaConfig, log logging.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.ConfigError("docupdate: kafka.brokers must contain at least one broker address")
	}
	if cfg.Topic == "" {
		return nil, errors.ConfigError("docupdate: kafka.topic is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    maxInt(cfg.BatchSize, 1),
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaPublisher{writer: writer, topic: cfg.Topic, logger: log}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// eventPayload is the wire shape published to Kafka for every lifecycle
// event.
type eventPayload struct {
	Type string    `json:"type"`
	Root string    `json:"root"`
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(eventPayload{Type: event.Type, Root: event.Root, Path: event.Path, At: event.At})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "docupdate: failed to marshal lifecycle event")
	}

	msg := kafka.Message{
		Key:   []byte(event.Root),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.CodeMessageQueueError, "docupdate: failed to publish lifecycle event")
	}
	return nil
}

// Close releases the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
