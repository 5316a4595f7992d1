// Package producer publishes records synchronously for the batch worker.
package producer

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
	"github.com/ajayykmr/nvoip-dispatcher/internal/kafka"
)

const (
	defaultHealthInterval  = 30 * time.Second
	defaultMaxMessageBytes = 4 << 20
)

// Option customises the producer during construction.
type Option func(*settings)

type settings struct {
	tune           []func(*sarama.Config)
	healthInterval time.Duration
}

// WithSaramaConfig lets callers adjust the Sarama config after the defaults
// are applied.
func WithSaramaConfig(fn func(*sarama.Config)) Option {
	return func(s *settings) {
		if fn != nil {
			s.tune = append(s.tune, fn)
		}
	}
}

// WithHealthInterval sets how often broker metadata is refreshed to keep
// IsReady current.
func WithHealthInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.healthInterval = d
		}
	}
}

// Producer writes batch results and reports whether the brokers answered
// recently. Results are large and must not be lost, so every send waits for
// all in-sync replicas.
type Producer struct {
	log    zerolog.Logger
	client sarama.Client
	sender sarama.SyncProducer

	healthy atomic.Bool
	done    chan struct{}
	loop    sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New connects a producer to the configured brokers.
func New(cfg config.KafkaConfig, logger zerolog.Logger, opts ...Option) (*Producer, error) {
	s := settings{healthInterval: defaultHealthInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	sc, err := kafka.NewSaramaConfig(cfg, "producer")
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true
	sc.Producer.Retry.Max = 6
	sc.Producer.Retry.Backoff = 250 * time.Millisecond
	sc.Producer.MaxMessageBytes = defaultMaxMessageBytes
	sc.Producer.Compression = sarama.CompressionSnappy
	sc.Net.MaxOpenRequests = 1
	sc.Metadata.RefreshFrequency = s.healthInterval
	for _, fn := range s.tune {
		fn(sc)
	}

	client, err := sarama.NewClient(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: connect: %w", err)
	}
	sender, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kafka producer: sync producer: %w", err)
	}

	p := wrap(client, sender, logger)
	p.checkHealth()
	p.loop.Add(1)
	go p.healthLoop(s.healthInterval)
	return p, nil
}

func wrap(client sarama.Client, sender sarama.SyncProducer, logger zerolog.Logger) *Producer {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Producer{log: logger, client: client, sender: sender, done: make(chan struct{})}
}

// PublishSync sends one record and blocks until the brokers acknowledge it.
func (p *Producer) PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	if topic == "" {
		return errors.New("kafka producer: topic is required")
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(payload),
		Headers: kafka.RecordHeaders(headers),
	}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}

	partition, offset, err := p.sender.SendMessage(msg)
	p.healthy.Store(err == nil)
	if err != nil {
		return fmt.Errorf("kafka producer: send to %s: %w", topic, err)
	}

	p.log.Debug().
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Int("bytes", len(payload)).
		Msg("record acknowledged")
	return nil
}

// IsReady reports whether the last send or metadata refresh succeeded.
func (p *Producer) IsReady() bool {
	return p.healthy.Load()
}

// Close stops the health loop and releases the Sarama resources. Repeated
// calls return the first result.
func (p *Producer) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.loop.Wait()

		var errs []error
		if p.sender != nil {
			errs = append(errs, p.sender.Close())
		}
		if p.client != nil && !p.client.Closed() {
			errs = append(errs, p.client.Close())
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

func (p *Producer) healthLoop(every time.Duration) {
	defer p.loop.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.checkHealth()
		}
	}
}

func (p *Producer) checkHealth() {
	err := p.client.RefreshMetadata()
	if err != nil {
		p.log.Warn().Err(err).Msg("kafka producer metadata refresh failed")
	}
	p.healthy.Store(err == nil)
}
