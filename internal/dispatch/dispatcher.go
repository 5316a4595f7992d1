// Package dispatch runs a batch of work items through template resolution,
// request building and the provider call, collecting one result per item.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/catalog"
	"github.com/ajayykmr/nvoip-dispatcher/internal/metrics"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

var tracer = otel.Tracer("nvoip-dispatcher/internal/dispatch")

// Config contains the runtime settings of the dispatcher.
type Config struct {
	// Concurrency bounds how many items are in flight. 1 processes the batch
	// sequentially.
	Concurrency int
}

// Catalog lists templates and exposes them as selectable options.
type Catalog interface {
	catalog.Fetcher
	ResolveOptions(ctx context.Context, channel models.Channel) []models.Option
}

// Dependencies collects the collaborators borrowed by the dispatcher. Their
// lifecycle is owned by the caller.
type Dependencies struct {
	Invoker  common.Invoker
	Adapters []common.Adapter
	Catalog  Catalog
	Metrics  *metrics.DispatchMetrics
	Logger   zerolog.Logger
	Now      func() time.Time
	// NewBatchID defaults to a random UUID.
	NewBatchID func() string
}

// Dispatcher processes batches of work items.
type Dispatcher struct {
	cfg        Config
	invoker    common.Invoker
	adapters   map[models.Channel]common.Adapter
	catalog    Catalog
	metrics    *metrics.DispatchMetrics
	logger     zerolog.Logger
	now        func() time.Time
	newBatchID func() string
}

// NewDispatcher validates the configuration and collaborators.
func NewDispatcher(cfg Config, deps Dependencies) (*Dispatcher, error) {
	if cfg.Concurrency < 1 {
		return nil, errors.New("dispatch: concurrency must be >= 1")
	}
	if deps.Invoker == nil {
		return nil, errors.New("dispatch: invoker dependency is required")
	}
	if len(deps.Adapters) == 0 {
		return nil, errors.New("dispatch: at least one adapter is required")
	}

	adapters := make(map[models.Channel]common.Adapter, len(deps.Adapters))
	for _, a := range deps.Adapters {
		if a == nil {
			return nil, errors.New("dispatch: nil adapter")
		}
		if _, dup := adapters[a.Channel()]; dup {
			return nil, fmt.Errorf("dispatch: duplicate adapter for channel %s", a.Channel())
		}
		adapters[a.Channel()] = a
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "dispatcher").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}
	newBatchID := deps.NewBatchID
	if newBatchID == nil {
		newBatchID = uuid.NewString
	}

	return &Dispatcher{
		cfg:        cfg,
		invoker:    deps.Invoker,
		adapters:   adapters,
		catalog:    deps.Catalog,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        nowFunc,
		newBatchID: newBatchID,
	}, nil
}

// ResolveOptions returns the selectable templates of channel. It never fails;
// an unavailable catalog yields no options.
func (d *Dispatcher) ResolveOptions(ctx context.Context, channel models.Channel) []models.Option {
	if d.catalog == nil {
		return []models.Option{}
	}
	return d.catalog.ResolveOptions(ctx, channel)
}

// Process runs every item and returns one record per item in input order.
// Item failures are recorded, never returned; an error is only returned when
// ctx is already done before the first item starts.
func (d *Dispatcher) Process(ctx context.Context, items []models.WorkItem) ([]models.ResultRecord, error) {
	return d.ProcessBatch(ctx, "", items)
}

// ProcessBatch is Process with a caller supplied batch id used for logs and
// traces. An empty id is replaced by a generated one.
func (d *Dispatcher) ProcessBatch(ctx context.Context, batchID string, items []models.WorkItem) ([]models.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatch: batch not started: %w", err)
	}
	if batchID == "" {
		batchID = d.newBatchID()
	}

	ctx, span := tracer.Start(ctx, "dispatch.batch")
	defer span.End()
	span.SetAttributes(
		attribute.String("dispatch.batch_id", batchID),
		attribute.Int("dispatch.items", len(items)),
	)

	logger := d.logger.With().Str("batch_id", batchID).Logger()
	started := d.now()

	// the catalog cache lives exactly as long as this batch run
	var lookup common.TemplateLookup
	if d.catalog != nil {
		lookup = catalog.NewCache(d.catalog)
	}

	collector := NewCollector(items)
	run := &batchRun{d: d, batchID: batchID, logger: logger, lookup: lookup, collector: collector}

	if d.cfg.Concurrency == 1 || len(items) < 2 {
		for pos := range items {
			run.process(ctx, pos, items[pos])
		}
	} else {
		sem := semaphore.NewWeighted(int64(d.cfg.Concurrency))
		var wg sync.WaitGroup
		for pos := range items {
			if err := sem.Acquire(ctx, 1); err != nil {
				collector.Failure(pos, common.WrapProvider(fmt.Errorf("item not started: %w", err)))
				continue
			}
			wg.Add(1)
			go func(pos int, item models.WorkItem) {
				defer wg.Done()
				defer sem.Release(1)
				run.process(ctx, pos, item)
			}(pos, items[pos])
		}
		wg.Wait()
	}

	records := collector.Records()
	succeeded, failed := Summarize(records)
	span.SetAttributes(attribute.Int("dispatch.succeeded", succeeded), attribute.Int("dispatch.failed", failed))
	d.metrics.ObserveBatch()

	logger.Info().
		Int("items", len(items)).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Dur("duration", d.now().Sub(started)).
		Msg("dispatch: batch completed")

	return records, nil
}

type batchRun struct {
	d         *Dispatcher
	batchID   string
	logger    zerolog.Logger
	lookup    common.TemplateLookup
	collector *Collector
}

func (r *batchRun) process(ctx context.Context, pos int, item models.WorkItem) {
	started := r.d.now()

	ctx, span := tracer.Start(ctx, "dispatch.item")
	defer span.End()
	span.SetAttributes(attribute.Int("dispatch.item_index", item.Index))

	route, body, err := r.execute(ctx, item)
	span.SetAttributes(
		attribute.String("dispatch.channel", string(route.Channel)),
		attribute.String("dispatch.operation", string(route.Operation)),
	)

	logger := r.logger.With().
		Int("item_index", item.Index).
		Str("channel", string(route.Channel)).
		Str("operation", string(route.Operation)).
		Logger()

	outcome := "success"
	if err != nil {
		outcome = common.Kind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		logger.Warn().Err(err).Str("kind", outcome).Msg("dispatch: item failed")
		r.collector.Failure(pos, err)
	} else {
		logger.Debug().Int("response_bytes", len(body)).Msg("dispatch: item sent")
		r.collector.Success(pos, body)
	}

	r.d.metrics.ObserveItem(string(route.Channel), string(route.Operation), outcome, r.d.now().Sub(started).Seconds())
}

// execute drives one item from parameter reading to the provider response.
func (r *batchRun) execute(ctx context.Context, item models.WorkItem) (models.Route, []byte, error) {
	route, adapter, err := r.d.route(item.Params)
	if err != nil {
		return route, nil, err
	}

	req, err := adapter.Build(ctx, route.Operation, item.Params, r.lookup)
	if err != nil {
		return route, nil, err
	}

	body, err := r.d.invoker.Invoke(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return route, nil, common.WrapProvider(err)
	}
	return route, body, nil
}

// route reads the channel and operation of an item and picks its adapter.
func (d *Dispatcher) route(params models.Params) (models.Route, common.Adapter, error) {
	var route models.Route

	rawChannel, ok := params.String(models.ParamChannel)
	if !ok {
		return route, nil, common.Validationf("%s is required", models.ParamChannel)
	}
	rawOperation, ok := params.String(models.ParamOperation)
	if !ok {
		return route, nil, common.Validationf("%s is required", models.ParamOperation)
	}
	route.Channel = models.Channel(rawChannel)
	route.Operation = models.Operation(rawOperation)

	channel, err := models.ParseChannel(rawChannel)
	if err != nil {
		return route, nil, common.WrapUnsupported(fmt.Errorf("%s: %v", route, err))
	}
	route.Channel = channel

	if !channel.Supports(route.Operation) {
		return route, nil, common.WrapUnsupported(fmt.Errorf("%s", route))
	}
	adapter, ok := d.adapters[channel]
	if !ok || !adapter.Supports(route.Operation) {
		return route, nil, common.WrapUnsupported(fmt.Errorf("%s: no adapter registered", route))
	}
	return route, adapter, nil
}
