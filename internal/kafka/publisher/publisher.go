package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

var errProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour required by the Kafka publishers.
type SyncProducer interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// ErrProducerNotInitialised exposes the sentinel error for callers and tests.
func ErrProducerNotInitialised() error {
	return errProducerNotInitialised
}

// ResultPublisher emits batch results to a Kafka topic using the shared producer.
type ResultPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewResultPublisher constructs a ResultPublisher instance.
func NewResultPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *ResultPublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &ResultPublisher{
		producer: prod,
		topic:    topic,
		logger:   logger,
	}
}

// PublishResult writes the batch result to Kafka synchronously, keyed by batch
// id so results of a batch land on one partition.
func (p *ResultPublisher) PublishResult(_ context.Context, result models.BatchResult) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal batch result: %w", err)
	}

	headers := map[string][]byte{
		"content-type": []byte("application/json"),
	}
	if result.TraceID != "" {
		headers["trace-id"] = []byte(result.TraceID)
	}
	if result.TenantID != "" {
		headers["tenant-id"] = []byte(result.TenantID)
	}

	if err := p.producer.PublishSync(p.topic, []byte(result.BatchID), headers, payload); err != nil {
		return fmt.Errorf("kafka publisher: publish batch result %s: %w", result.BatchID, err)
	}

	p.logger.Debug().
		Str("batch_id", result.BatchID).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("batch result published")
	return nil
}
