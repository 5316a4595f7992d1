// Package kafka holds the settings shared by the batch consumer and the
// result producer.
package kafka

import (
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
)

const (
	DefaultClientID = "nvoip-dispatcher"
	DefaultVersion  = "2.5.0"
)

// NewSaramaConfig returns a base Sarama config for the given role. The client
// id becomes "<client id>-<role>" so broker logs tell the consumer and the
// producer apart.
func NewSaramaConfig(cfg config.KafkaConfig, role string) (*sarama.Config, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}

	raw := strings.TrimSpace(cfg.Version)
	if raw == "" {
		raw = DefaultVersion
	}
	version, err := sarama.ParseKafkaVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("kafka: version %q: %w", raw, err)
	}

	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		clientID = DefaultClientID
	}
	if role != "" {
		clientID += "-" + role
	}

	sc := sarama.NewConfig()
	sc.Version = version
	sc.ClientID = clientID
	sc.Metadata.Full = false
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("kafka: config: %w", err)
	}
	return sc, nil
}

// HeaderMap copies Sarama record headers into a map. Later duplicates win.
func HeaderMap(headers []*sarama.RecordHeader) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(headers))
	for _, h := range headers {
		if h == nil || len(h.Key) == 0 {
			continue
		}
		out[string(h.Key)] = CloneBytes(h.Value)
	}
	return out
}

// RecordHeaders converts a header map into Sarama record headers.
func RecordHeaders(headers map[string][]byte) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	out := make([]sarama.RecordHeader, 0, len(headers))
	for k, v := range headers {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: CloneBytes(v)})
	}
	return out
}

// CloneBytes returns a copy of b, or nil when b is empty.
func CloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
