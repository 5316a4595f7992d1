package nvoip

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
)

func staticConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Backend: config.BackendNvoip,
		Nvoip: config.NvoipConfig{
			BaseURL:     baseURL,
			AccessToken: "static-token",
		},
	}
}

func TestInvokeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/v3/sms" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer static-token" {
			t.Fatalf("unexpected authorization %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("unexpected content type %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"numberPhone":"5511999999999","message":"Hello"}` {
			t.Fatalf("unexpected body %s", body)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"sms-1","status":"queued"}`))
	}))
	defer srv.Close()

	client, err := New(context.Background(), staticConfig(srv.URL+"/v3/"), time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Invoke(context.Background(), http.MethodPost, "/sms",
		map[string]string{"Content-Type": "application/json"},
		[]byte(`{"numberPhone":"5511999999999","message":"Hello"}`))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if string(resp) != `{"id":"sms-1","status":"queued"}` {
		t.Fatalf("unexpected response %s", resp)
	}
}

func TestInvokeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(" Invalid number \n"))
	}))
	defer srv.Close()

	client, err := New(context.Background(), staticConfig(srv.URL), time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Invoke(context.Background(), http.MethodPost, "/calls", nil, []byte(`{}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Invalid number" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Fatalf("expected status helper to return 400")
	}
}

func TestInvokeAPIErrorMessageField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":"E42","message":"template not approved"}`))
	}))
	defer srv.Close()

	client, err := New(context.Background(), staticConfig(srv.URL), time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Invoke(context.Background(), http.MethodPost, "/wa/sendTemplates", nil, []byte(`{}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "template not approved" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	if string(apiErr.Body) != `{"code":"E42","message":"template not approved"}` {
		t.Fatalf("body must be kept verbatim, got %s", apiErr.Body)
	}
}

func TestInvokeEmptyErrorBodyUsesStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := New(context.Background(), staticConfig(srv.URL), time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Invoke(context.Background(), http.MethodGet, "/wa/templates", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "Bad Gateway") {
		t.Fatalf("expected status text in error, got %v", err)
	}
}

func TestInvokeReadsSuccessBodyInFull(t *testing.T) {
	listing := `[{"instance":"A","data":[` + strings.TrimSuffix(strings.Repeat(`{"id":1,"name":"t"},`, 5000), ",") + `]}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listing))
	}))
	defer srv.Close()

	client, err := New(context.Background(), staticConfig(srv.URL), time.Second, zerolog.Nop(), WithBodyLimit(10))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Invoke(context.Background(), http.MethodGet, "/wa/templates", nil, nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if string(resp) != listing {
		t.Fatalf("success body altered: got %d bytes, want %d", len(resp), len(listing))
	}
	if !json.Valid(resp) {
		t.Fatalf("success body is not valid JSON")
	}
}

func TestInvokeBodyLimitAppliesToErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	client, err := New(context.Background(), staticConfig(srv.URL), time.Second, zerolog.Nop(), WithBodyLimit(10))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Invoke(context.Background(), http.MethodGet, "/sms/templates", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(apiErr.Body) != 10 {
		t.Fatalf("expected error body capped at 10 bytes, got %d", len(apiErr.Body))
	}
}

type failingHTTPClient struct{}

func (failingHTTPClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestInvokeTransportError(t *testing.T) {
	client, err := New(context.Background(), staticConfig("http://nvoip.invalid"), time.Second, zerolog.Nop(),
		WithHTTPClient(failingHTTPClient{}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Invoke(context.Background(), http.MethodPost, "/sms", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected transport error, got %v", err)
	}
	if StatusCode(err) != 0 {
		t.Fatalf("transport errors carry no status")
	}
}

func TestInvokeTokenError(t *testing.T) {
	ts := oauth2.TokenSource(tokenSourceFunc(func() (*oauth2.Token, error) {
		return nil, errors.New("refresh rejected")
	}))
	client, err := New(context.Background(), staticConfig("http://nvoip.invalid"), time.Second, zerolog.Nop(),
		WithTokenSource(ts), WithHTTPClient(failingHTTPClient{}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Invoke(context.Background(), http.MethodPost, "/sms", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "refresh rejected") {
		t.Fatalf("expected token error, got %v", err)
	}
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

func TestRefreshTokenGrant(t *testing.T) {
	var tokenCalls int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" || r.Form.Get("refresh_token") != "refresh-1" {
			t.Fatalf("unexpected token form %v", r.Form)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			t.Fatalf("expected client credentials in header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fresh-token" {
			t.Fatalf("unexpected authorization %q", got)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer apiSrv.Close()

	cfg := config.ProviderConfig{Nvoip: config.NvoipConfig{
		BaseURL:      apiSrv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh-1",
		TokenURL:     tokenSrv.URL,
	}}
	client, err := New(context.Background(), cfg, time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := client.Invoke(context.Background(), http.MethodGet, "/sms/templates", nil, nil); err != nil {
			t.Fatalf("invoke %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("expected token to be reused, got %d refreshes", got)
	}
}

func TestNewWithoutCredentials(t *testing.T) {
	_, err := New(context.Background(), config.ProviderConfig{}, time.Second, zerolog.Nop())
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}
