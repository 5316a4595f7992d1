package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/nvoip-dispatcher/internal/config"
)

func TestNewSaramaConfigDefaults(t *testing.T) {
	sc, err := NewSaramaConfig(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "consumer")
	require.NoError(t, err)
	assert.Equal(t, "nvoip-dispatcher-consumer", sc.ClientID)
	assert.Equal(t, sarama.V2_5_0_0, sc.Version)
}

func TestNewSaramaConfigOverrides(t *testing.T) {
	sc, err := NewSaramaConfig(config.KafkaConfig{
		Brokers:  []string{"localhost:9092"},
		ClientID: "tenant-a",
		Version:  "3.6.0",
	}, "producer")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a-producer", sc.ClientID)
	assert.True(t, sc.Version.IsAtLeast(sarama.V3_6_0_0))
}

func TestNewSaramaConfigErrors(t *testing.T) {
	_, err := NewSaramaConfig(config.KafkaConfig{}, "producer")
	require.ErrorContains(t, err, "broker")

	_, err = NewSaramaConfig(config.KafkaConfig{Brokers: []string{"b:9092"}, Version: "banana"}, "producer")
	require.ErrorContains(t, err, "banana")
}

func TestHeaderConversions(t *testing.T) {
	in := map[string][]byte{"trace-id": []byte("t-1"), "content-type": []byte("application/json")}
	recs := RecordHeaders(in)
	require.Len(t, recs, 2)

	ptrs := make([]*sarama.RecordHeader, 0, len(recs)+1)
	for i := range recs {
		ptrs = append(ptrs, &recs[i])
	}
	ptrs = append(ptrs, nil)
	assert.Equal(t, in, HeaderMap(ptrs))

	assert.Nil(t, HeaderMap(nil))
	assert.Nil(t, RecordHeaders(nil))
	assert.Nil(t, CloneBytes([]byte{}))
}
