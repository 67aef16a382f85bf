package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yourorg/social-app/services/dm-service/internal/ws"
)

// Sink receives decoded events; the ws hub satisfies it.
type Sink interface {
	Publish(userID string, env *ws.Envelope)
}

type Consumer struct {
	reader *kafka.Reader
	log    *zap.SugaredLogger
}

// NewConsumer builds a reader for the messages topic. groupID must be
// unique per instance so every instance sees every event and can serve
// the connections it holds.
func NewConsumer(brokers []string, topic, groupID string, log *zap.SugaredLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
	return &Consumer{reader: r, log: log}
}

// Run blocks until ctx is done, delivering each decoded event to sink.
func (c *Consumer) Run(ctx context.Context, sink Sink) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Errorw("kafka read", "err", err)
			time.Sleep(time.Second)
			continue
		}
		var ev Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.log.Errorw("kafka decode", "err", err)
			continue
		}
		sink.Publish(ev.UserID, &ev.Envelope)
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
