// Package events bridges committed sends to the realtime layer over
// Kafka: each instance publishes the per-user envelopes, and every
// instance's consumer delivers to whichever connections it holds
// locally. Publishing is best-effort; a failed publish never unwinds
// the message write.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yourorg/social-app/services/dm-service/internal/ws"
)

// Event is the wire record on the messages topic, keyed by the target
// user so per-user ordering holds.
type Event struct {
	UserID   string      `json:"user_id"`
	Envelope ws.Envelope `json:"envelope"`
}

// Publisher is what the send pipeline depends on.
type Publisher interface {
	Publish(ctx context.Context, userID string, env *ws.Envelope) error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: w}
}

func (p *Producer) Publish(ctx context.Context, userID string, env *ws.Envelope) error {
	b, err := json.Marshal(Event{UserID: userID, Envelope: *env})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error { return p.writer.Close() }
