// Package app assembles the dispatcher from configuration for the binaries.
package app

import (
	"context"
	"fmt"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	calladapter "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/call"
	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	smsadapter "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/sms"
	waadapter "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/whatsapp"
	"github.com/ajayykmr/nvoip-dispatcher/internal/catalog"
	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
	"github.com/ajayykmr/nvoip-dispatcher/internal/dispatch"
	"github.com/ajayykmr/nvoip-dispatcher/internal/logger"
	"github.com/ajayykmr/nvoip-dispatcher/internal/metrics"
	"github.com/ajayykmr/nvoip-dispatcher/internal/providers/factory"
)

// Dispatcher wires the provider backend, the channel adapters and the template
// catalog into a dispatcher. Metrics are registered on reg when it is non-nil.
func Dispatcher(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, log zerolog.Logger) (*dispatch.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	if reflect.ValueOf(log).IsZero() {
		log = zerolog.Nop()
	}

	invoker, err := factory.Invoker(ctx, cfg, logger.Component(log, "provider"))
	if err != nil {
		return nil, err
	}

	var m *metrics.DispatchMetrics
	if reg != nil {
		m = metrics.NewDispatchMetrics(reg)
	}

	resolver := catalog.NewResolver(invoker, logger.Component(log, "catalog"),
		catalog.WithPaths(cfg.Provider.Nvoip.SMSTemplatesPath, cfg.Provider.Nvoip.WATemplatesPath),
		catalog.WithPreviewChars(cfg.Dispatch.CatalogPreviewChars),
		catalog.WithMetrics(m),
	)

	adapterLog := logger.Component(log, "adapter")
	d, err := dispatch.NewDispatcher(dispatch.Config{Concurrency: cfg.Dispatch.Concurrency}, dispatch.Dependencies{
		Invoker: invoker,
		Adapters: []common.Adapter{
			smsadapter.NewAdapter(adapterLog, smsadapter.WithMaxMessageLength(cfg.Dispatch.SMSMaxMessageLen)),
			waadapter.NewAdapter(adapterLog),
			calladapter.NewAdapter(adapterLog),
		},
		Catalog: resolver,
		Metrics: m,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("app: dispatcher init: %w", err)
	}
	return d, nil
}
