package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default provider settings.
const (
	DefaultNvoipBaseURL     = "https://api.nvoip.com.br/v3"
	DefaultNvoipTokenURL    = "https://api.nvoip.com.br/auth/oauth2/token"
	DefaultSMSTemplatesPath = "/sms/templates"
	DefaultWATemplatesPath  = "/wa/templates"
)

// Provider backends.
const (
	BackendNvoip = "nvoip"
	BackendMock  = "mock"
)

// Config captures all runtime configuration for the dispatcher.
type Config struct {
	App       AppConfig
	Provider  ProviderConfig
	Dispatch  DispatchConfig
	Kafka     KafkaConfig
	Topics    TopicConfig
	Consumer  ConsumerConfig
	Timeouts  TimeoutConfig
	Telemetry TelemetryConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// NvoipConfig stores the provider endpoint and credentials. Either AccessToken
// or the ClientID/ClientSecret/RefreshToken triple must be set.
type NvoipConfig struct {
	BaseURL          string
	AccessToken      string
	ClientID         string
	ClientSecret     string
	RefreshToken     string
	TokenURL         string
	Scopes           []string
	SMSTemplatesPath string
	WATemplatesPath  string
}

// ProviderConfig wraps configuration for the outbound provider.
type ProviderConfig struct {
	Backend string
	Nvoip   NvoipConfig
	// BodyLimitBytes caps the error body kept on provider errors.
	BodyLimitBytes int64
}

// DispatchConfig controls batch processing.
type DispatchConfig struct {
	Concurrency         int
	CatalogPreviewChars int
	SMSMaxMessageLen    int
}

// KafkaConfig defines broker information.
type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Version  string
}

// TopicConfig names the batch request and result topics.
type TopicConfig struct {
	BatchRequest string
	BatchResult  string
}

// ConsumerConfig controls the batch consumer.
type ConsumerConfig struct {
	Group               string
	CommitOnSuccessOnly bool
	MsgMaxBytes         int
}

// TimeoutConfig contains timeout thresholds for outbound providers.
type TimeoutConfig struct {
	ProviderTimeoutSeconds int
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	MetricsAddr string
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance. Kafka settings are optional.
func Load() (*Config, error) {
	return load(false)
}

// LoadWorker is Load with the Kafka settings required by the batch worker.
func LoadWorker() (*Config, error) {
	return load(true)
}

func load(requireKafka bool) (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Provider.Backend = strings.ToLower(ldr.getString("PROVIDER_BACKEND", BackendNvoip, false))
	cfg.Provider.BodyLimitBytes = int64(ldr.getInt("PROVIDER_BODY_LIMIT_BYTES", 64*1024, false))

	nv := &cfg.Provider.Nvoip
	nv.BaseURL = strings.TrimRight(ldr.getString("NVOIP_BASE_URL", DefaultNvoipBaseURL, false), "/")
	nv.AccessToken = ldr.getString("NVOIP_ACCESS_TOKEN", "", false)
	nv.ClientID = ldr.getString("NVOIP_CLIENT_ID", "", false)
	nv.ClientSecret = ldr.getString("NVOIP_CLIENT_SECRET", "", false)
	nv.RefreshToken = ldr.getString("NVOIP_REFRESH_TOKEN", "", false)
	nv.TokenURL = ldr.getString("NVOIP_TOKEN_URL", DefaultNvoipTokenURL, false)
	nv.Scopes = ldr.getStringSlice("NVOIP_SCOPES", false)
	nv.SMSTemplatesPath = ldr.getString("NVOIP_SMS_TEMPLATES_PATH", DefaultSMSTemplatesPath, false)
	nv.WATemplatesPath = ldr.getString("NVOIP_WA_TEMPLATES_PATH", DefaultWATemplatesPath, false)

	switch cfg.Provider.Backend {
	case BackendNvoip:
		if nv.AccessToken == "" && (nv.ClientID == "" || nv.ClientSecret == "" || nv.RefreshToken == "") {
			ldr.addError("NVOIP_ACCESS_TOKEN or NVOIP_CLIENT_ID, NVOIP_CLIENT_SECRET and NVOIP_REFRESH_TOKEN are required")
		}
	case BackendMock:
	default:
		ldr.addError(fmt.Sprintf("PROVIDER_BACKEND %q is not supported", cfg.Provider.Backend))
	}

	cfg.Dispatch.Concurrency = ldr.getInt("DISPATCH_CONCURRENCY", 1, false)
	cfg.Dispatch.CatalogPreviewChars = ldr.getInt("CATALOG_PREVIEW_CHARS", 140, false)
	cfg.Dispatch.SMSMaxMessageLen = ldr.getInt("SMS_MAX_MESSAGE_LEN", 0, false)
	if cfg.Dispatch.Concurrency < 1 {
		ldr.addError("DISPATCH_CONCURRENCY must be at least 1")
	}

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", requireKafka)
	cfg.Kafka.ClientID = ldr.getString("KAFKA_CLIENT_ID", "nvoip-dispatcher", false)
	cfg.Kafka.Version = ldr.getString("KAFKA_VERSION", "2.5.0", false)
	cfg.Topics.BatchRequest = ldr.getString("KAFKA_BATCH_REQUEST_TOPIC", "", requireKafka)
	cfg.Topics.BatchResult = ldr.getString("KAFKA_BATCH_RESULT_TOPIC", "", requireKafka)
	cfg.Consumer.Group = ldr.getString("KAFKA_CONSUMER_GROUP", "", requireKafka)
	cfg.Consumer.CommitOnSuccessOnly = ldr.getBool("COMMIT_ON_SUCCESS_ONLY", true, false)
	cfg.Consumer.MsgMaxBytes = ldr.getInt("MSG_MAX_BYTES", 1<<20, false)
	if cfg.Consumer.MsgMaxBytes < 0 {
		ldr.addError("MSG_MAX_BYTES cannot be negative")
	}

	cfg.Timeouts.ProviderTimeoutSeconds = ldr.getInt("PROVIDER_TIMEOUT_SECONDS", 30, false)

	cfg.Telemetry.MetricsAddr = ldr.getString("METRICS_ADDR", ":9102", false)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid boolean", key))
		return def
	}
	return parsed
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
