package status

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRelay publishes events as JSON, keyed by scope.
type KafkaRelay struct {
	w   messageWriter
	log *slog.Logger
}

func NewKafkaRelay(brokers []string, topic string, log *slog.Logger) *KafkaRelay {
	return &KafkaRelay{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: log,
	}
}

func (r *KafkaRelay) Publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.log.Error("status encode", "err", err, "event_id", ev.ID)
		return
	}
	err = r.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Scope),
		Value: data,
	})
	if err != nil {
		r.log.Error("status publish", "err", err, "event_id", ev.ID)
	}
}

func (r *KafkaRelay) Close() error { return r.w.Close() }
