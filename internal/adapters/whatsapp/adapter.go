package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

// PathSendTemplate is the provider path for WhatsApp template sends.
const PathSendTemplate = "/wa/sendTemplates"

// Adapter implements common.Adapter for the WhatsApp channel.
type Adapter struct {
	logger zerolog.Logger
}

var _ common.Adapter = (*Adapter)(nil)

// NewAdapter constructs a WhatsApp adapter.
func NewAdapter(logger zerolog.Logger) *Adapter {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Adapter{logger: logger}
}

// Channel returns models.ChannelWhatsApp.
func (a *Adapter) Channel() models.Channel {
	return models.ChannelWhatsApp
}

// Supports reports whether op is a WhatsApp operation.
func (a *Adapter) Supports(op models.Operation) bool {
	return models.ChannelWhatsApp.Supports(op)
}

type sendPayload struct {
	IDTemplate    any      `json:"idTemplate"`
	Destination   string   `json:"destination"`
	Instance      string   `json:"instance"`
	Language      string   `json:"language"`
	BodyVariables []string `json:"bodyVariables"`
	URL           string   `json:"url,omitempty"`
}

// Build resolves the selected template against the catalog to recover its
// instance and language, then builds the send payload.
func (a *Adapter) Build(ctx context.Context, op models.Operation, params models.Params, templates common.TemplateLookup) (*common.OutboundRequest, error) {
	if op != models.OperationSendWhatsApp {
		return nil, common.WrapUnsupported(fmt.Errorf("whatsapp adapter: operation %q", op))
	}

	to, err := common.RequirePhone(params, models.ParamDestination)
	if err != nil {
		return nil, err
	}
	templateID, err := common.RequireTemplateID(params)
	if err != nil {
		return nil, err
	}
	variables, err := common.Variables(params)
	if err != nil {
		return nil, err
	}
	imageURL, err := common.OptionalURL(params, models.ParamImageURL)
	if err != nil {
		return nil, err
	}

	if templates == nil {
		return nil, common.WrapResolution(errors.New("whatsapp adapter: no template catalog available"))
	}
	tpl, err := templates.Lookup(ctx, models.ChannelWhatsApp, templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil || tpl.Instance == "" {
		return nil, common.WrapResolution(fmt.Errorf("whatsapp adapter: template %s has no instance", templateID))
	}
	if err := common.RequireVariables(tpl, variables); err != nil {
		return nil, err
	}

	a.logger.Debug().
		Str("template_id", templateID).
		Str("instance", tpl.Instance).
		Str("language", tpl.Language).
		Int("variables", len(variables)).
		Bool("image", imageURL != "").
		Msg("whatsapp adapter: template resolved")

	return common.NewPost(PathSendTemplate, sendPayload{
		IDTemplate:    common.TemplateRef(templateID),
		Destination:   to,
		Instance:      tpl.Instance,
		Language:      tpl.Language,
		BodyVariables: common.NonNil(variables),
		URL:           imageURL,
	})
}
