package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajayykmr/nvoip-dispatcher/internal/dispatch"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

// Config contains the runtime settings of the batch engine.
type Config struct {
	// MsgMaxBytes rejects request envelopes larger than this. Zero disables
	// the check.
	MsgMaxBytes int
}

// Record represents a Kafka message delivered to the worker. It keeps the
// engine decoupled from the concrete consumer implementation.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	commit func(context.Context) error
}

// Commit acknowledges the record through the bound commit function.
func (r *Record) Commit(ctx context.Context) error {
	if r == nil || r.commit == nil {
		return nil
	}
	return r.commit(ctx)
}

// Processor runs one batch of work items. It returns an error only when the
// batch could not be started.
type Processor interface {
	ProcessBatch(ctx context.Context, batchID string, items []models.WorkItem) ([]models.ResultRecord, error)
}

// ResultPublisher publishes the outcome of a batch.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result models.BatchResult) error
}

// Committer is the abstraction for committing Kafka offsets after processing.
type Committer interface {
	Commit(ctx context.Context, record *Record) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(ctx context.Context, record *Record) error

// Commit implements Committer.
func (f CommitFunc) Commit(ctx context.Context, record *Record) error {
	return f(ctx, record)
}

// Dependencies collects the runtime collaborators required by the engine.
type Dependencies struct {
	Processor  Processor
	Publisher  ResultPublisher
	Committer  Committer
	Logger     zerolog.Logger
	Now        func() time.Time
	NewBatchID func() string
}

// Engine turns batch request records into dispatcher runs and publishes one
// result envelope per record. Records are handled one at a time; item level
// parallelism belongs to the processor.
type Engine struct {
	cfg        Config
	processor  Processor
	publisher  ResultPublisher
	committer  Committer
	logger     zerolog.Logger
	now        func() time.Time
	newBatchID func() string
}

// NewEngine constructs a worker engine using the supplied configuration and
// collaborators.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.MsgMaxBytes < 0 {
		return nil, errors.New("worker: msg max bytes cannot be negative")
	}
	if deps.Processor == nil {
		return nil, errors.New("worker: processor dependency is required")
	}
	if deps.Publisher == nil {
		return nil, errors.New("worker: result publisher dependency is required")
	}
	if deps.Committer == nil {
		return nil, errors.New("worker: committer dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "worker_engine").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}
	newBatchID := deps.NewBatchID
	if newBatchID == nil {
		newBatchID = uuid.NewString
	}

	return &Engine{
		cfg:        cfg,
		processor:  deps.Processor,
		publisher:  deps.Publisher,
		committer:  deps.Committer,
		logger:     logger,
		now:        nowFunc,
		newBatchID: newBatchID,
	}, nil
}

// HandleRecord decodes a batch request, runs it and publishes the result.
// The offset is committed once the result is published, or once a malformed
// envelope has been reported. When the context ends before the batch starts or
// publishing fails the record is left uncommitted for redelivery.
func (e *Engine) HandleRecord(ctx context.Context, record *Record) error {
	if record == nil {
		return nil
	}

	req, err := e.decode(record)
	if err != nil {
		e.logger.Warn().
			Str("batch_id", req.BatchID).
			Int64("offset", record.Offset).
			Err(err).
			Msg("worker: batch request rejected")
		rejected := models.BatchResult{
			BatchID:     req.BatchID,
			TraceID:     req.TraceID,
			TenantID:    req.TenantID,
			Error:       err.Error(),
			Results:     []models.ResultRecord{},
			CompletedAt: e.now().UTC(),
		}
		return e.finish(ctx, record, rejected)
	}

	log := e.logger.With().Str("batch_id", req.BatchID).Int("items", len(req.Items)).Logger()
	log.Debug().Msg("worker: batch received")

	if req.TraceID == "" {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			req.TraceID = sc.TraceID().String()
		}
	}

	records, err := e.processor.ProcessBatch(ctx, req.BatchID, req.WorkItems())
	if err != nil {
		log.Warn().Err(err).Msg("worker: batch not processed; leaving record for redelivery")
		return err
	}

	succeeded, failed := dispatch.Summarize(records)
	result := models.BatchResult{
		BatchID:     req.BatchID,
		TraceID:     req.TraceID,
		TenantID:    req.TenantID,
		Results:     records,
		Succeeded:   succeeded,
		Failed:      failed,
		CompletedAt: e.now().UTC(),
	}
	return e.finish(ctx, record, result)
}

func (e *Engine) decode(record *Record) (models.BatchRequest, error) {
	req := models.BatchRequest{
		BatchID: string(record.Key),
		TraceID: string(record.Headers["trace-id"]),
	}
	if req.BatchID == "" {
		req.BatchID = e.newBatchID()
	}

	if e.cfg.MsgMaxBytes > 0 && len(record.Value) > e.cfg.MsgMaxBytes {
		return req, fmt.Errorf("payload exceeds maximum size: got %d bytes, limit %d bytes", len(record.Value), e.cfg.MsgMaxBytes)
	}

	var decoded models.BatchRequest
	dec := json.NewDecoder(bytes.NewReader(record.Value))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return req, fmt.Errorf("decode batch request: %w", err)
	}

	if decoded.BatchID == "" {
		decoded.BatchID = req.BatchID
	}
	if decoded.TraceID == "" {
		decoded.TraceID = req.TraceID
	}
	if decoded.Items == nil {
		return decoded, errors.New("batch request has no items field")
	}
	return decoded, nil
}

func (e *Engine) finish(ctx context.Context, record *Record, result models.BatchResult) error {
	if err := e.publisher.PublishResult(ctx, result); err != nil {
		e.logger.Error().
			Str("batch_id", result.BatchID).
			Err(err).
			Msg("worker: failed to publish batch result")
		return err
	}

	e.logger.Info().
		Str("batch_id", result.BatchID).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Bool("rejected", result.Error != "").
		Msg("worker: batch completed")

	if err := e.committer.Commit(ctx, record); err != nil {
		e.logger.Error().
			Str("topic", record.Topic).
			Int32("partition", record.Partition).
			Int64("offset", record.Offset).
			Err(err).
			Msg("worker: failed to commit record offset")
		return err
	}
	return nil
}
