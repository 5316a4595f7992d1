// Package consumer delivers batch request records from a Kafka consumer group
// with explicit, once-only commits.
package consumer

import (
	"context"
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
	defaultMaxProcessingTime = 2 * time.Minute
	rejoinBackoff            = time.Second
)

// Handler receives the records of a partition one at a time.
type Handler func(ctx context.Context, record *Record) error

// Option customises the consumer during construction.
type Option func(*settings)

type settings struct {
	tune              []func(*sarama.Config)
	maxProcessingTime time.Duration
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

// WithMaxProcessingTime bounds one handler call before the partition is
// considered stalled. A record is a whole batch of provider calls.
func WithMaxProcessingTime(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.maxProcessingTime = d
		}
	}
}

// Record is one delivered Kafka message.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	session sarama.ConsumerGroupSession
	message *sarama.ConsumerMessage
	acked   atomic.Bool
}

// Header returns the named header value or nil.
func (r *Record) Header(name string) []byte {
	if r == nil {
		return nil
	}
	return r.Headers[name]
}

// Consumer reads batch requests for one consumer group.
type Consumer struct {
	log     zerolog.Logger
	group   sarama.ConsumerGroup
	groupID string
	// flush commits synchronously on every Commit instead of leaving marked
	// offsets to the auto-commit interval.
	flush bool

	handler atomic.Pointer[Handler]
	joined  atomic.Bool

	mu      sync.Mutex
	stop    context.CancelFunc
	running sync.WaitGroup
	drained chan struct{}
}

// New joins the configured consumer group. With CommitOnSuccessOnly an offset
// only advances when the handler commits its record.
func New(cfg config.KafkaConfig, group config.ConsumerConfig, logger zerolog.Logger, opts ...Option) (*Consumer, error) {
	if group.Group == "" {
		return nil, errors.New("kafka consumer: group id is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	s := settings{maxProcessingTime: defaultMaxProcessingTime}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	sc, err := kafka.NewSaramaConfig(cfg, "consumer")
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	sc.Consumer.Group.Session.Timeout = 30 * time.Second
	sc.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	sc.Consumer.Group.Rebalance.Timeout = 60 * time.Second
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	// a new group picks up batches already waiting on the topic
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Offsets.AutoCommit.Enable = !group.CommitOnSuccessOnly
	sc.Consumer.MaxProcessingTime = s.maxProcessingTime
	sc.Consumer.Return.Errors = true
	for _, fn := range s.tune {
		fn(sc)
	}

	cg, err := sarama.NewConsumerGroup(cfg.Brokers, group.Group, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: join group %s: %w", group.Group, err)
	}

	c := &Consumer{
		log:     logger.With().Str("group_id", group.Group).Logger(),
		group:   cg,
		groupID: group.Group,
		flush:   group.CommitOnSuccessOnly,
		drained: make(chan struct{}),
	}
	go c.logErrors()
	return c, nil
}

// Consume delivers records of topics to handler until ctx ends or the consumer
// is closed. Transient group errors are logged and the group is rejoined.
func (c *Consumer) Consume(ctx context.Context, topics []string, handler Handler) error {
	if len(topics) == 0 {
		return errors.New("kafka consumer: at least one topic is required")
	}
	if handler == nil {
		return errors.New("kafka consumer: handler is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.handler.Store(&handler)
	c.mu.Lock()
	c.stop = cancel
	c.mu.Unlock()

	c.running.Add(1)
	defer c.running.Done()

	session := &groupSession{c: c}
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, topics, session)
		switch {
		case err == nil:
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		default:
			c.log.Error().Err(err).Strs("topics", topics).Msg("kafka consumer: rejoining after error")
			select {
			case <-ctx.Done():
			case <-time.After(rejoinBackoff):
			}
		}
	}
	return ctx.Err()
}

// Commit marks record processed. Only the first call per record has effect.
func (c *Consumer) Commit(_ context.Context, record *Record) error {
	if record == nil {
		return errors.New("kafka consumer: record is required")
	}
	if record.session == nil || record.message == nil {
		return errors.New("kafka consumer: record was not delivered by a session")
	}
	if !record.acked.CompareAndSwap(false, true) {
		return nil
	}

	record.session.MarkMessage(record.message, "")
	if c.flush {
		record.session.Commit()
	}
	return nil
}

// IsReady reports whether partitions are currently assigned.
func (c *Consumer) IsReady() bool {
	return c.joined.Load()
}

// Close leaves the group and waits for Consume and the error logger to exit.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.stop != nil {
		c.stop()
	}
	c.mu.Unlock()

	err := c.group.Close()
	c.running.Wait()
	<-c.drained
	return err
}

func (c *Consumer) logErrors() {
	defer close(c.drained)
	for err := range c.group.Errors() {
		c.log.Error().Err(err).Msg("kafka consumer group error")
	}
}

// deliver turns a Sarama message into a Record and runs the handler.
func (c *Consumer) deliver(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) {
	h := c.handler.Load()
	if h == nil {
		c.log.Error().Int64("offset", msg.Offset).Msg("kafka consumer: no handler registered")
		return
	}

	record := &Record{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       kafka.CloneBytes(msg.Key),
		Value:     kafka.CloneBytes(msg.Value),
		Timestamp: msg.Timestamp,
		Headers:   kafka.HeaderMap(msg.Headers),
		session:   session,
		message:   msg,
	}
	if err := (*h)(session.Context(), record); err != nil {
		c.log.Warn().
			Err(err).
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("kafka consumer: record left uncommitted")
	}
}

// groupSession implements sarama.ConsumerGroupHandler.
type groupSession struct {
	c *Consumer
}

func (g *groupSession) Setup(session sarama.ConsumerGroupSession) error {
	g.c.joined.Store(true)
	g.c.log.Info().Int32("generation", session.GenerationID()).Msg("kafka consumer: partitions assigned")
	return nil
}

func (g *groupSession) Cleanup(session sarama.ConsumerGroupSession) error {
	g.c.joined.Store(false)
	g.c.log.Info().Int32("generation", session.GenerationID()).Msg("kafka consumer: partitions revoked")
	return nil
}

func (g *groupSession) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	messages := claim.Messages()
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			g.c.deliver(session, msg)
		}
	}
}
