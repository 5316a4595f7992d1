package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/nvoip-dispatcher/internal/app"
	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
	"github.com/ajayykmr/nvoip-dispatcher/internal/kafka/consumer"
	"github.com/ajayykmr/nvoip-dispatcher/internal/kafka/producer"
	kafkapublisher "github.com/ajayykmr/nvoip-dispatcher/internal/kafka/publisher"
	"github.com/ajayykmr/nvoip-dispatcher/internal/logger"
	"github.com/ajayykmr/nvoip-dispatcher/internal/worker"
)

const serviceName = "dispatch-worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorker()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel, serviceName)
	if err != nil {
		fail("logger init", err)
	}
	log := *baseLogger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dispatcher, err := app.Dispatcher(ctx, cfg, reg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise dispatcher")
	}

	prod, err := producer.New(cfg.Kafka, logger.Component(log, "kafka-producer"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	cons, err := consumer.New(cfg.Kafka, cfg.Consumer, logger.Component(log, "kafka-consumer"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	resultPublisher := kafkapublisher.NewResultPublisher(prod, cfg.Topics.BatchResult, logger.Component(log, "result-publisher"))
	if resultPublisher == nil {
		log.Fatal().Msg("failed to create result publisher")
	}

	engine, err := worker.NewEngine(worker.Config{MsgMaxBytes: cfg.Consumer.MsgMaxBytes}, worker.Dependencies{
		Processor: dispatcher,
		Publisher: resultPublisher,
		Committer: worker.CommitFunc(func(ctx context.Context, record *worker.Record) error {
			return record.Commit(ctx)
		}),
		Logger: logger.Component(log, "worker-engine"),
		Now:    time.Now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise worker engine")
	}

	srv := telemetryServer(cfg.Telemetry.MetricsAddr, reg, func() bool {
		return cons.IsReady() && prod.IsReady()
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("metrics server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to stop metrics server")
		}
	}()

	topics := []string{cfg.Topics.BatchRequest}
	handler := worker.KafkaHandler(engine, cons)

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Consume(ctx, topics, handler); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Str("request_topic", cfg.Topics.BatchRequest).
		Str("result_topic", cfg.Topics.BatchResult).
		Str("metrics_addr", cfg.Telemetry.MetricsAddr).
		Int("concurrency", cfg.Dispatch.Concurrency).
		Msg("dispatch worker started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("consumer terminated with error")
		}
	}
}

func telemetryServer(addr string, gatherer prometheus.Gatherer, ready func() bool) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}

func fail(stage string, err error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Fatal().Err(err).Str("stage", stage).Msg("dispatch worker init failed")
}
