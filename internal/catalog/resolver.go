// Package catalog fetches provider template listings and normalises them into
// flat, selectable catalog entries.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
	"github.com/ajayykmr/nvoip-dispatcher/internal/metrics"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

var tracer = otel.Tracer("nvoip-dispatcher/internal/catalog")

const defaultPreviewChars = 140

// Option customises the resolver.
type Option func(*Resolver)

// WithPaths overrides the template listing paths. Empty values keep the
// defaults.
func WithPaths(smsPath, whatsAppPath string) Option {
	return func(r *Resolver) {
		if strings.TrimSpace(smsPath) != "" {
			r.smsPath = strings.TrimSpace(smsPath)
		}
		if strings.TrimSpace(whatsAppPath) != "" {
			r.waPath = strings.TrimSpace(whatsAppPath)
		}
	}
}

// WithPreviewChars caps the WhatsApp description preview.
func WithPreviewChars(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.previewChars = n
		}
	}
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *metrics.DispatchMetrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// Resolver lists templates through the authenticated call capability. It holds
// no state between calls; see Cache for per-batch reuse.
type Resolver struct {
	invoker      common.Invoker
	logger       zerolog.Logger
	metrics      *metrics.DispatchMetrics
	smsPath      string
	waPath       string
	previewChars int
}

// NewResolver constructs a resolver backed by invoker.
func NewResolver(invoker common.Invoker, logger zerolog.Logger, opts ...Option) *Resolver {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	r := &Resolver{
		invoker:      invoker,
		logger:       logger,
		smsPath:      config.DefaultSMSTemplatesPath,
		waPath:       config.DefaultWATemplatesPath,
		previewChars: defaultPreviewChars,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Fetch lists and normalises the templates of channel. Errors are returned so
// callers can tell an empty catalog from a failed one.
func (r *Resolver) Fetch(ctx context.Context, channel models.Channel) ([]models.Template, error) {
	var path string
	switch channel {
	case models.ChannelSMS:
		path = r.smsPath
	case models.ChannelWhatsApp:
		path = r.waPath
	default:
		return nil, common.WrapUnsupported(fmt.Errorf("catalog: channel %q has no templates", channel))
	}
	if r.invoker == nil {
		return nil, fmt.Errorf("catalog: invoker is required")
	}

	ctx, span := tracer.Start(ctx, "catalog.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("catalog.channel", string(channel)),
		attribute.String("catalog.path", path),
	)

	body, err := r.invoker.Invoke(ctx, http.MethodGet, path, map[string]string{"Accept": "application/json"}, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list templates")
		r.metrics.ObserveCatalogFetch(string(channel), false, 0)
		return nil, fmt.Errorf("catalog: list %s templates: %w", channel, err)
	}

	var templates []models.Template
	if channel == models.ChannelSMS {
		templates, err = parseSMS(body)
	} else {
		templates, err = parseWhatsApp(body, r.previewChars, r.logger)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode templates")
		r.metrics.ObserveCatalogFetch(string(channel), false, 0)
		return nil, fmt.Errorf("catalog: decode %s templates: %w", channel, err)
	}

	span.SetAttributes(attribute.Int("catalog.templates", len(templates)))
	r.metrics.ObserveCatalogFetch(string(channel), true, len(templates))
	return templates, nil
}

// Templates is Fetch degraded to an empty catalog on failure.
func (r *Resolver) Templates(ctx context.Context, channel models.Channel) []models.Template {
	templates, err := r.Fetch(ctx, channel)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("channel", string(channel)).
			Msg("template catalog unavailable; returning empty catalog")
		return []models.Template{}
	}
	return templates
}

// ResolveOptions returns the selectable entries of channel in provider order.
// It never fails: an unreachable or malformed catalog yields no options.
func (r *Resolver) ResolveOptions(ctx context.Context, channel models.Channel) []models.Option {
	return Options(r.Templates(ctx, channel))
}

// Lookup resolves id against a freshly fetched catalog. Use a Cache to share
// one fetch across a batch.
func (r *Resolver) Lookup(ctx context.Context, channel models.Channel, id string) (*models.Template, error) {
	templates, err := r.Fetch(ctx, channel)
	if err != nil {
		return nil, common.WrapResolution(fmt.Errorf("template %s: %v", id, err))
	}
	return find(templates, channel, id)
}

// Options maps catalog entries to selection options.
func Options(templates []models.Template) []models.Option {
	out := make([]models.Option, 0, len(templates))
	for _, t := range templates {
		out = append(out, models.Option{Value: t.ID, Label: t.Name, Description: t.Description})
	}
	return out
}

// find returns the first entry whose id matches. WhatsApp ids are only unique
// per instance, so earlier instances win on collision.
func find(templates []models.Template, channel models.Channel, id string) (*models.Template, error) {
	for i := range templates {
		if templates[i].ID == id {
			tpl := templates[i]
			return &tpl, nil
		}
	}
	return nil, common.WrapResolution(fmt.Errorf("%s template %s is not in the catalog", channel, id))
}
