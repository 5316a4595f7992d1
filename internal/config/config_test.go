package config

import (
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "PROVIDER_BACKEND", "PROVIDER_BODY_LIMIT_BYTES",
		"NVOIP_BASE_URL", "NVOIP_ACCESS_TOKEN", "NVOIP_CLIENT_ID", "NVOIP_CLIENT_SECRET",
		"NVOIP_REFRESH_TOKEN", "NVOIP_TOKEN_URL", "NVOIP_SCOPES",
		"NVOIP_SMS_TEMPLATES_PATH", "NVOIP_WA_TEMPLATES_PATH",
		"DISPATCH_CONCURRENCY", "CATALOG_PREVIEW_CHARS", "SMS_MAX_MESSAGE_LEN",
		"KAFKA_BROKERS", "KAFKA_BATCH_REQUEST_TOPIC", "KAFKA_BATCH_RESULT_TOPIC",
		"KAFKA_CONSUMER_GROUP", "COMMIT_ON_SUCCESS_ONLY", "MSG_MAX_BYTES", "KAFKA_CLIENT_ID", "KAFKA_VERSION",
		"PROVIDER_TIMEOUT_SECONDS", "METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("NVOIP_ACCESS_TOKEN", "token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.Backend != BackendNvoip {
		t.Fatalf("expected nvoip backend, got %q", cfg.Provider.Backend)
	}
	if cfg.Provider.Nvoip.BaseURL != DefaultNvoipBaseURL {
		t.Fatalf("unexpected base url %q", cfg.Provider.Nvoip.BaseURL)
	}
	if cfg.Provider.Nvoip.SMSTemplatesPath != DefaultSMSTemplatesPath || cfg.Provider.Nvoip.WATemplatesPath != DefaultWATemplatesPath {
		t.Fatalf("unexpected template paths %+v", cfg.Provider.Nvoip)
	}
	if cfg.Dispatch.Concurrency != 1 || cfg.Dispatch.CatalogPreviewChars != 140 {
		t.Fatalf("unexpected dispatch defaults %+v", cfg.Dispatch)
	}
	if cfg.Telemetry.MetricsAddr != ":9102" {
		t.Fatalf("unexpected metrics addr %q", cfg.Telemetry.MetricsAddr)
	}
	if !cfg.Consumer.CommitOnSuccessOnly {
		t.Fatalf("expected commit on success only by default")
	}
	if cfg.Consumer.MsgMaxBytes != 1<<20 {
		t.Fatalf("unexpected msg max bytes %d", cfg.Consumer.MsgMaxBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NVOIP_BASE_URL", "http://localhost:8080/v3/")
	t.Setenv("NVOIP_CLIENT_ID", "id")
	t.Setenv("NVOIP_CLIENT_SECRET", "secret")
	t.Setenv("NVOIP_REFRESH_TOKEN", "refresh")
	t.Setenv("NVOIP_SCOPES", "openid, sms ,")
	t.Setenv("NVOIP_WA_TEMPLATES_PATH", "/wa/listTemplates")
	t.Setenv("DISPATCH_CONCURRENCY", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.Nvoip.BaseURL != "http://localhost:8080/v3" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Provider.Nvoip.BaseURL)
	}
	if got := strings.Join(cfg.Provider.Nvoip.Scopes, ","); got != "openid,sms" {
		t.Fatalf("unexpected scopes %q", got)
	}
	if cfg.Provider.Nvoip.WATemplatesPath != "/wa/listTemplates" {
		t.Fatalf("unexpected wa path %q", cfg.Provider.Nvoip.WATemplatesPath)
	}
	if cfg.Dispatch.Concurrency != 8 {
		t.Fatalf("unexpected concurrency %d", cfg.Dispatch.Concurrency)
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("NVOIP_CLIENT_ID", "id")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected credential error")
	}
	if !strings.Contains(err.Error(), "NVOIP_ACCESS_TOKEN") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoadMockBackendNeedsNoCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER_BACKEND", "MOCK")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.Backend != BackendMock {
		t.Fatalf("expected mock backend, got %q", cfg.Provider.Backend)
	}
}

func TestLoadAccumulatesErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER_BACKEND", "twilio")
	t.Setenv("DISPATCH_CONCURRENCY", "many")
	t.Setenv("COMMIT_ON_SUCCESS_ONLY", "sometimes")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"PROVIDER_BACKEND", "DISPATCH_CONCURRENCY must be a valid integer", "COMMIT_ON_SUCCESS_ONLY"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadWorkerRequiresKafka(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER_BACKEND", "mock")

	_, err := LoadWorker()
	if err == nil {
		t.Fatalf("expected kafka validation error")
	}
	for _, want := range []string{"KAFKA_BROKERS", "KAFKA_BATCH_REQUEST_TOPIC", "KAFKA_BATCH_RESULT_TOPIC", "KAFKA_CONSUMER_GROUP"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}

	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_BATCH_REQUEST_TOPIC", "dispatch.batch.request")
	t.Setenv("KAFKA_BATCH_RESULT_TOPIC", "dispatch.batch.result")
	t.Setenv("KAFKA_CONSUMER_GROUP", "dispatch-worker")

	cfg, err := LoadWorker()
	if err != nil {
		t.Fatalf("load worker: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Topics.BatchRequest != "dispatch.batch.request" {
		t.Fatalf("unexpected kafka config %+v %+v", cfg.Kafka, cfg.Topics)
	}
	if cfg.Kafka.ClientID != "nvoip-dispatcher" || cfg.Kafka.Version != "2.5.0" {
		t.Fatalf("unexpected kafka client defaults %+v", cfg.Kafka)
	}
}
