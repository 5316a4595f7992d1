package call

import (
	"context"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

// Provider paths for the call channel.
const (
	PathCalls        = "/calls"
	PathVoiceTorpedo = "/torpedo/voice"
)

// DTMF capture window used by interactive voice broadcasts.
const (
	dtmfPromptTimeoutMs    = 4000
	dtmfResponseTimeoutSec = 30
	dtmfMinDigits          = 0
	dtmfMaxDigits          = 1
)

// Adapter implements common.Adapter for calls and voice broadcasts.
type Adapter struct {
	logger zerolog.Logger
}

var _ common.Adapter = (*Adapter)(nil)

// NewAdapter constructs a call adapter.
func NewAdapter(logger zerolog.Logger) *Adapter {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Adapter{logger: logger}
}

// Channel returns models.ChannelCall.
func (a *Adapter) Channel() models.Channel {
	return models.ChannelCall
}

// Supports reports whether op is a call operation.
func (a *Adapter) Supports(op models.Operation) bool {
	return models.ChannelCall.Supports(op)
}

type callPayload struct {
	Caller   string `json:"caller"`
	Called   string `json:"called"`
	Transfer bool   `json:"transfer"`
}

type audio struct {
	Audio         string `json:"audio"`
	PositionAudio int    `json:"positionAudio"`
}

type dtmf struct {
	Audio         string `json:"audio"`
	PositionAudio int    `json:"positionAudio"`
	TimeDTMF      int    `json:"timedtmf"`
	Timeout       int    `json:"timeout"`
	Min           int    `json:"min"`
	Max           int    `json:"max"`
}

type torpedoPayload struct {
	Caller string  `json:"caller"`
	Called string  `json:"called"`
	Audios []audio `json:"audios"`
	DTMFs  []dtmf  `json:"dtmfs"`
}

// Build converts the item parameters into the provider payload for op. Call
// operations never reference templates.
func (a *Adapter) Build(_ context.Context, op models.Operation, params models.Params, _ common.TemplateLookup) (*common.OutboundRequest, error) {
	switch op {
	case models.OperationMakeCall, models.OperationSendVoiceBlast, models.OperationSendVoiceBlastInteractive:
	default:
		return nil, common.WrapUnsupported(fmt.Errorf("call adapter: operation %q", op))
	}

	caller, err := common.RequireString(params, models.ParamCallerID)
	if err != nil {
		return nil, err
	}
	called, err := common.RequirePhone(params, models.ParamDestination)
	if err != nil {
		return nil, err
	}

	switch op {
	case models.OperationMakeCall:
		transfer, _, err := params.Bool(models.ParamTransfer)
		if err != nil {
			return nil, common.WrapValidation(err)
		}
		return common.NewPost(PathCalls, callPayload{Caller: caller, Called: called, Transfer: transfer})

	case models.OperationSendVoiceBlast:
		content, err := common.RequireString(params, models.ParamAudioContent)
		if err != nil {
			return nil, err
		}
		return common.NewPost(PathVoiceTorpedo, torpedoPayload{
			Caller: caller,
			Called: called,
			Audios: []audio{{Audio: content, PositionAudio: 1}},
			DTMFs:  []dtmf{},
		})

	default:
		greeting, err := common.RequireString(params, models.ParamAudio1)
		if err != nil {
			return nil, err
		}
		prompt, err := common.RequireString(params, models.ParamAudio2)
		if err != nil {
			return nil, err
		}
		return common.NewPost(PathVoiceTorpedo, torpedoPayload{
			Caller: caller,
			Called: called,
			Audios: []audio{{Audio: greeting, PositionAudio: 1}},
			DTMFs: []dtmf{{
				Audio:         prompt,
				PositionAudio: 2,
				TimeDTMF:      dtmfPromptTimeoutMs,
				Timeout:       dtmfResponseTimeoutSec,
				Min:           dtmfMinDigits,
				Max:           dtmfMaxDigits,
			}},
		})
	}
}
