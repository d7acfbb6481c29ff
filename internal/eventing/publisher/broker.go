package publisher

import (
	"context"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/assetflow-backend/pkg/db/models"
	"github.com/angelmondragon/assetflow-backend/pkg/outbox/registry"
)

// Broker is the Pub/Sub surface the dispatcher needs; *pubsub.Client satisfies it.
type Broker interface {
	Ping(ctx context.Context) error
	Publisher(topic string) *gcppubsub.Publisher
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) error
}

// topicCache keeps one publisher per topic so batching settings are shared.
type topicCache struct {
	open  func(topic string) topicPublisher
	byKey map[string]topicPublisher
}

func newTopicCache(b Broker) *topicCache {
	return &topicCache{
		open: func(topic string) topicPublisher {
			p := b.Publisher(topic)
			if p == nil {
				return nil
			}
			return gcpTopic{p}
		},
		byKey: map[string]topicPublisher{},
	}
}

func (c *topicCache) get(topic string) topicPublisher {
	if pub, ok := c.byKey[topic]; ok {
		return pub
	}
	pub := c.open(topic)
	if pub != nil {
		c.byKey[topic] = pub
	}
	return pub
}

type gcpTopic struct {
	p *gcppubsub.Publisher
}

// Publish blocks until the server acks the message.
func (t gcpTopic) Publish(ctx context.Context, msg *gcppubsub.Message) error {
	result := t.p.Publish(ctx, msg)
	if result == nil {
		return registry.NewNonRetryableError(errors.New("publisher returned no result"))
	}
	_, err := result.Get(ctx)
	return err
}

// buildMessage carries the stored envelope bytes unchanged; attributes allow
// subscribers to filter without decoding.
func buildMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     row.EventType.String(),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if attrs["event_id"] == "" {
		attrs["event_id"] = row.ID.String()
	}
	if actor := resolved.Envelope.Actor; actor != nil {
		if actor.Company != "" {
			attrs["company"] = actor.Company
		}
		if actor.Role != "" {
			attrs["actor_role"] = actor.Role
		}
	}
	return &gcppubsub.Message{Data: row.Payload, Attributes: attrs}
}
