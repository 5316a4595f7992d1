package mock

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/nvoip-dispatcher/internal/providers/nvoip"
)

func TestInvokerScenarios(t *testing.T) {
	inv := NewInvoker(zerolog.Nop(),
		WithPathScenario("/calls", ScenarioPermanent),
		WithResponse("/sms/templates", []byte(`[{"id":1}]`)),
	)

	resp, err := inv.Invoke(context.Background(), http.MethodPost, "/sms", nil, []byte(`{}`))
	if err != nil {
		t.Fatalf("invoke sms: %v", err)
	}
	if string(resp) != `{"id":"mock-1","status":"accepted"}` {
		t.Fatalf("unexpected response %s", resp)
	}

	resp, err = inv.Invoke(context.Background(), http.MethodGet, "/sms/templates", nil, nil)
	if err != nil || string(resp) != `[{"id":1}]` {
		t.Fatalf("unexpected canned response %s %v", resp, err)
	}

	_, err = inv.Invoke(context.Background(), http.MethodPost, "/calls", nil, []byte(`{}`))
	var apiErr *nvoip.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected permanent api error, got %v", err)
	}

	if got := len(inv.Calls()); got != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", got)
	}
	if inv.CallsTo("/sms/templates") != 1 {
		t.Fatalf("expected one template call")
	}
}

func TestInvokerTimeoutHonoursContext(t *testing.T) {
	inv := NewInvoker(zerolog.Nop(), WithScenario(ScenarioTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := inv.Invoke(ctx, http.MethodPost, "/sms", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
