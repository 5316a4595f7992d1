package worker

import (
	"context"

	"github.com/ajayykmr/nvoip-dispatcher/internal/kafka"
	"github.com/ajayykmr/nvoip-dispatcher/internal/kafka/consumer"
)

// KafkaHandler returns a consumer.Handler that converts consumer records into
// worker records bound to the consumer's commit and hands them to the engine.
func KafkaHandler(engine *Engine, cons *consumer.Consumer) consumer.Handler {
	return func(ctx context.Context, rec *consumer.Record) error {
		if engine == nil || rec == nil {
			return nil
		}

		commitFn := func(context.Context) error { return nil }
		if cons != nil {
			commitFn = func(c context.Context) error {
				return cons.Commit(c, rec)
			}
		}

		return engine.HandleRecord(ctx, NewRecordFromConsumer(rec, commitFn))
	}
}

// NewRecordFromConsumer constructs a worker record from the supplied Kafka
// consumer record and binds the provided commit function.
func NewRecordFromConsumer(rec *consumer.Record, commit func(context.Context) error) *Record {
	if rec == nil {
		return nil
	}
	return &Record{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       kafka.CloneBytes(rec.Key),
		Value:     kafka.CloneBytes(rec.Value),
		Timestamp: rec.Timestamp,
		Headers:   cloneHeaders(rec.Headers),
		commit:    commit,
	}
}

func cloneHeaders(headers map[string][]byte) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(headers))
	for k, v := range headers {
		out[k] = kafka.CloneBytes(v)
	}
	return out
}
