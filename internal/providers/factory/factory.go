package factory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
	"github.com/ajayykmr/nvoip-dispatcher/internal/providers/mock"
	"github.com/ajayykmr/nvoip-dispatcher/internal/providers/nvoip"
)

// Invoker constructs the configured authenticated call capability. Supports the
// Nvoip and mock backends.
func Invoker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (common.Invoker, error) {
	backend := normalize(cfg.Provider.Backend, config.BackendNvoip)
	switch backend {
	case config.BackendNvoip:
		timeout := time.Duration(cfg.Timeouts.ProviderTimeoutSeconds) * time.Second
		client, err := nvoip.New(ctx, cfg.Provider, timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("factory: nvoip client init: %w", err)
		}
		logger.Info().
			Str("backend", backend).
			Str("base_url", cfg.Provider.Nvoip.BaseURL).
			Msg("provider initialised")
		return client, nil
	case config.BackendMock:
		logger.Info().
			Str("backend", backend).
			Msg("provider initialised")
		return mock.NewInvoker(logger), nil
	default:
		return nil, fmt.Errorf("factory: unsupported provider backend %q", cfg.Provider.Backend)
	}
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
