package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	common "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/common"
	smsadapter "github.com/ajayykmr/nvoip-dispatcher/internal/adapters/sms"
	"github.com/ajayykmr/nvoip-dispatcher/internal/catalog"
	"github.com/ajayykmr/nvoip-dispatcher/internal/dispatch"
	"github.com/ajayykmr/nvoip-dispatcher/internal/providers/mock"
)

const smsListing = `[{"id": 42, "templateName": "otp", "bodyText": "Hi {{1}}, your code is {{2}}"}]`

func testRunner(t *testing.T) runnerFactory {
	t.Helper()
	logger := zerolog.Nop()
	inv := mock.NewInvoker(logger,
		mock.WithResponse("/sms/templates", []byte(smsListing)),
		mock.WithResponse("/sms", []byte(`{"id":"sms-1"}`)),
	)
	d, err := dispatch.NewDispatcher(dispatch.Config{Concurrency: 1}, dispatch.Dependencies{
		Invoker:  inv,
		Adapters: []common.Adapter{smsadapter.NewAdapter(logger)},
		Catalog:  catalog.NewResolver(inv, logger),
		Logger:   logger,
	})
	require.NoError(t, err)
	return func(context.Context) (runner, error) { return d, nil }
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(testRunner(t))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTemplatesPrintsOptions(t *testing.T) {
	out, err := execute(t, "", "templates", "sms")
	require.NoError(t, err)

	var options []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &options))
	require.Len(t, options, 1)
	assert.Equal(t, "42", options[0]["value"])
}

func TestTemplatesRejectsCallChannel(t *testing.T) {
	_, err := execute(t, "", "templates", "call")
	require.ErrorContains(t, err, "no templates")

	_, err = execute(t, "", "templates", "fax")
	require.Error(t, err)
}

func TestProcessReadsBareItemArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	items := `[
		{"channel": "sms", "operation": "sendSms", "destination": "5511999999999", "message": "hi"},
		{"channel": "sms", "operation": "sendSms"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(items), 0o600))

	out, err := execute(t, "", "process", path)
	require.NoError(t, err)

	var records []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"id":"sms-1"}`, string(records[0]))
	assert.Contains(t, string(records[1]), `"itemIndex":1`)
}

func TestProcessEnvelopeFromStdin(t *testing.T) {
	in := `{"batch_id": "b-1", "items": [{"channel": "sms", "operation": "sendTemplateSms", "destination": "5511999999999", "templateId": "42", "variables": ["Ana", "1234"]}]}`
	out, err := execute(t, in, "process", "-", "--envelope")
	require.NoError(t, err)

	var result struct {
		BatchID   string `json:"batch_id"`
		Succeeded int    `json:"succeeded"`
		Failed    int    `json:"failed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "b-1", result.BatchID)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
}

func TestDecodeBatchErrors(t *testing.T) {
	_, err := decodeBatch([]byte("  "))
	require.ErrorContains(t, err, "empty")

	_, err = decodeBatch([]byte(`{"items": [], "extra": true}`))
	require.ErrorContains(t, err, "unknown field")

	_, err = decodeBatch([]byte(`[1, 2]`))
	require.ErrorContains(t, err, "decode items")
}
