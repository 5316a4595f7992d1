package call_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calladapter "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/call"
	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

func TestBuildMakeCall(t *testing.T) {
	adapter := calladapter.NewAdapter(zerolog.Nop())

	req, err := adapter.Build(context.Background(), models.OperationMakeCall, models.Params{
		"callerId":    "5511000000000",
		"destination": "5511999999999",
		"transfer":    true,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/calls", req.Path)
	assert.JSONEq(t, `{"caller":"5511000000000","called":"5511999999999","transfer":true}`, string(req.Body))
}

func TestBuildMakeCallTransferDefaultsToFalse(t *testing.T) {
	adapter := calladapter.NewAdapter(zerolog.Nop())

	req, err := adapter.Build(context.Background(), models.OperationMakeCall, models.Params{
		"callerId":    "1049",
		"destination": "5511999999999",
	}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"caller":"1049","called":"5511999999999","transfer":false}`, string(req.Body))
}

func TestBuildMakeCallInvalidTransfer(t *testing.T) {
	adapter := calladapter.NewAdapter(zerolog.Nop())

	_, err := adapter.Build(context.Background(), models.OperationMakeCall, models.Params{
		"callerId":    "1049",
		"destination": "5511999999999",
		"transfer":    "maybe",
	}, nil)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestBuildVoiceBlast(t *testing.T) {
	adapter := calladapter.NewAdapter(zerolog.Nop())

	req, err := adapter.Build(context.Background(), models.OperationSendVoiceBlast, models.Params{
		"callerId":     "5511000000000",
		"destination":  "5511999999999",
		"audioContent": "https://example.com/a.mp3",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "/torpedo/voice", req.Path)
	assert.JSONEq(t, `{
		"caller": "5511000000000",
		"called": "5511999999999",
		"audios": [{"audio": "https://example.com/a.mp3", "positionAudio": 1}],
		"dtmfs": []
	}`, string(req.Body))
}

func TestBuildInteractiveVoiceBlast(t *testing.T) {
	adapter := calladapter.NewAdapter(zerolog.Nop())

	req, err := adapter.Build(context.Background(), models.OperationSendVoiceBlastInteractive, models.Params{
		"callerId":    "5511000000000",
		"destination": "5511999999999",
		"audio1":      "Hello",
		"audio2":      "Press 1 for yes, 2 for no",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "/torpedo/voice", req.Path)
	assert.JSONEq(t, `{
		"caller": "5511000000000",
		"called": "5511999999999",
		"audios": [{"audio": "Hello", "positionAudio": 1}],
		"dtmfs": [{
			"audio": "Press 1 for yes, 2 for no",
			"positionAudio": 2,
			"timedtmf": 4000,
			"timeout": 30,
			"min": 0,
			"max": 1
		}]
	}`, string(req.Body))
}

func TestBuildMissingParams(t *testing.T) {
	adapter := calladapter.NewAdapter(zerolog.Nop())

	cases := map[models.Operation]models.Params{
		models.OperationMakeCall:                  {"destination": "5511999999999"},
		models.OperationSendVoiceBlast:            {"callerId": "1049", "destination": "5511999999999"},
		models.OperationSendVoiceBlastInteractive: {"callerId": "1049", "destination": "5511999999999", "audio1": "hi"},
	}
	for op, params := range cases {
		_, err := adapter.Build(context.Background(), op, params, nil)
		assert.ErrorIs(t, err, common.ErrValidation, "operation %s", op)
	}
}

func TestBuildUnsupportedOperation(t *testing.T) {
	adapter := calladapter.NewAdapter(zerolog.Nop())

	_, err := adapter.Build(context.Background(), models.OperationSendWhatsApp, models.Params{}, nil)
	assert.ErrorIs(t, err, common.ErrUnsupported)
}
