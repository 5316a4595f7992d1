package sms

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
	"github.com/ajayykmr/nvoip-dispatcher/internal/util"
)

// Provider paths for the SMS channel.
const (
	PathSend         = "/sms"
	PathSendTemplate = "/sms/sendTemplate"
)

// Option modifies adapter behaviour.
type Option func(*Adapter)

// WithMaxMessageLength rejects direct messages longer than limit characters.
// Zero disables the check.
func WithMaxMessageLength(limit int) Option {
	return func(a *Adapter) {
		if limit >= 0 {
			a.maxMessageRunes = limit
		}
	}
}

// Adapter implements common.Adapter for the SMS channel.
type Adapter struct {
	logger          zerolog.Logger
	maxMessageRunes int
}

var _ common.Adapter = (*Adapter)(nil)

// NewAdapter constructs an SMS adapter.
func NewAdapter(logger zerolog.Logger, opts ...Option) *Adapter {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	a := &Adapter{logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Channel returns models.ChannelSMS.
func (a *Adapter) Channel() models.Channel {
	return models.ChannelSMS
}

// Supports reports whether op is an SMS operation.
func (a *Adapter) Supports(op models.Operation) bool {
	return models.ChannelSMS.Supports(op)
}

// Build converts the item parameters into the provider payload for op.
func (a *Adapter) Build(ctx context.Context, op models.Operation, params models.Params, templates common.TemplateLookup) (*common.OutboundRequest, error) {
	switch op {
	case models.OperationSendSMS:
		return a.buildDirect(params)
	case models.OperationSendTemplateSMS:
		return a.buildTemplate(ctx, params, templates)
	default:
		return nil, common.WrapUnsupported(fmt.Errorf("sms adapter: operation %q", op))
	}
}

type directPayload struct {
	NumberPhone string `json:"numberPhone"`
	Message     string `json:"message"`
}

type templatePayload struct {
	PhoneNumber string   `json:"phoneNumber"`
	TemplateID  any      `json:"templateId"`
	Variables   []string `json:"variables"`
}

func (a *Adapter) buildDirect(params models.Params) (*common.OutboundRequest, error) {
	to, err := common.RequirePhone(params, models.ParamDestination)
	if err != nil {
		return nil, err
	}
	message, err := common.RequireString(params, models.ParamMessage)
	if err != nil {
		return nil, err
	}
	if err := util.EnsureMaxRunes(models.ParamMessage, message, a.maxMessageRunes); err != nil {
		return nil, common.WrapValidation(err)
	}

	return common.NewPost(PathSend, directPayload{NumberPhone: to, Message: message})
}

func (a *Adapter) buildTemplate(ctx context.Context, params models.Params, templates common.TemplateLookup) (*common.OutboundRequest, error) {
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

	tpl, err := a.lookup(ctx, templates, templateID)
	if err != nil {
		return nil, err
	}
	if err := common.RequireVariables(tpl, variables); err != nil {
		return nil, err
	}
	if len(variables) < tpl.MaxIndex {
		a.logger.Warn().
			Str("template_id", templateID).
			Int("supplied", len(variables)).
			Int("max_index", tpl.MaxIndex).
			Msg("sms adapter: fewer variables than template placeholders")
	}

	return common.NewPost(PathSendTemplate, templatePayload{
		PhoneNumber: to,
		TemplateID:  common.TemplateRef(templateID),
		Variables:   common.NonNil(variables),
	})
}

// lookup resolves the template so its placeholders can be checked. Without a
// catalog the template is treated as requiring variables.
func (a *Adapter) lookup(ctx context.Context, templates common.TemplateLookup, id string) (*models.Template, error) {
	if templates == nil {
		return &models.Template{ID: id, Placeholders: []string{"1"}, MaxIndex: 1}, nil
	}
	tpl, err := templates.Lookup(ctx, models.ChannelSMS, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, common.WrapResolution(errors.New("sms adapter: empty catalog entry"))
	}
	return tpl, nil
}
