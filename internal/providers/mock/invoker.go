package mock

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/nvoip-dispatcher/internal/providers/nvoip"
)

// Scenario enumerates the mock behaviours supported by the invoker.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioTransient Scenario = "transient"
	ScenarioPermanent Scenario = "permanent"
	ScenarioTimeout   Scenario = "timeout"
)

// Call records one request seen by the invoker.
type Call struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// Option customises the mock invoker.
type Option func(*Invoker)

// WithScenario sets the default scenario.
func WithScenario(s Scenario) Option {
	return func(i *Invoker) {
		i.defaultScenario = s
	}
}

// WithPathScenario sets the scenario for a single path.
func WithPathScenario(path string, s Scenario) Option {
	return func(i *Invoker) {
		i.pathScenarios[path] = s
	}
}

// WithResponse sets a canned response body for a path.
func WithResponse(path string, body []byte) Option {
	return func(i *Invoker) {
		i.responses[path] = body
	}
}

// WithLatency configures the artificial latency injected before answering.
func WithLatency(d time.Duration) Option {
	return func(i *Invoker) {
		if d < 0 {
			d = 0
		}
		i.latency = d
	}
}

// Invoker is a deterministic stand-in for the Nvoip API used by tests and the
// mock backend.
type Invoker struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	pathScenarios   map[string]Scenario
	responses       map[string][]byte
	latency         time.Duration

	mu    sync.Mutex
	calls []Call
	seq   int
}

// NewInvoker constructs a mock invoker that accepts every request.
func NewInvoker(logger zerolog.Logger, opts ...Option) *Invoker {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	i := &Invoker{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		pathScenarios:   map[string]Scenario{},
		responses:       map[string][]byte{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Invoke simulates a provider call according to the configured scenario.
func (i *Invoker) Invoke(ctx context.Context, method, path string, headers map[string]string, body []byte) ([]byte, error) {
	seq := i.record(method, path, headers, body)

	// honour context cancellation before work begins
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if i.latency > 0 {
		timer := time.NewTimer(i.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	scenario := i.defaultScenario
	if s, ok := i.pathScenarios[path]; ok {
		scenario = s
	}

	i.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("scenario", string(scenario)).
		Msg("mock invoke")

	switch scenario {
	case ScenarioSuccess:
		if canned, ok := i.responses[path]; ok {
			return append([]byte(nil), canned...), nil
		}
		if method == http.MethodGet {
			return []byte(`[]`), nil
		}
		return []byte(fmt.Sprintf(`{"id":"mock-%d","status":"accepted"}`, seq)), nil
	case ScenarioTransient:
		return nil, &nvoip.APIError{StatusCode: http.StatusTooManyRequests, Message: "mock: rate limited"}
	case ScenarioPermanent:
		return nil, &nvoip.APIError{StatusCode: http.StatusBadRequest, Message: "mock: invalid recipient"}
	case ScenarioTimeout:
		<-ctx.Done()
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("mock: unknown scenario %s", scenario)
	}
}

// Calls returns a copy of the recorded calls in arrival order.
func (i *Invoker) Calls() []Call {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Call(nil), i.calls...)
}

// CallsTo counts recorded calls whose path equals path.
func (i *Invoker) CallsTo(path string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, c := range i.calls {
		if strings.EqualFold(c.Path, path) {
			n++
		}
	}
	return n
}

func (i *Invoker) record(method, path string, headers map[string]string, body []byte) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.seq++
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	i.calls = append(i.calls, Call{Method: method, Path: path, Headers: copied, Body: append([]byte(nil), body...)})
	return i.seq
}
