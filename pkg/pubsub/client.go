// Package pubsub opens the Google Pub/Sub v2 client for one process and
// verifies the topics and subscriptions that process depends on.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Needs lists the resources a process uses. Each entry is an ID within the
// project or a full projects/... resource name.
type Needs struct {
	Topics        []string
	Subscriptions []string
}

type Client struct {
	client         *pubsub.Client
	project        string
	needs          Needs
	maxOutstanding int
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, needs Needs, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	if len(needs.Topics)+len(needs.Subscriptions) == 0 {
		return nil, errors.New("pubsub: no topics or subscriptions requested")
	}

	raw, err := pubsub.NewClient(ctx, project, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: new client: %w", err)
	}
	c := &Client{client: raw, project: project, needs: needs, maxOutstanding: cfg.MaxOutstanding}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topics":        needs.Topics,
			"subscriptions": needs.Subscriptions,
		}), "pubsub ready")
	}
	return c, nil
}

// Ping checks that every needed resource exists and reports all that don't.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	var errs error
	for _, topic := range c.needs.Topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: qualify(c.project, "topics", topic)})
		errs = multierr.Append(errs, describe("topic", topic, err))
	}
	for _, sub := range c.needs.Subscriptions {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: qualify(c.project, "subscriptions", sub)})
		errs = multierr.Append(errs, describe("subscription", sub, err))
	}
	return errs
}

func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	return c.client.Publisher(qualify(c.project, "topics", topic))
}

// Subscriber applies the configured flow control.
func (c *Client) Subscriber(subscription string) *pubsub.Subscriber {
	if c == nil || c.client == nil || strings.TrimSpace(subscription) == "" {
		return nil
	}
	sub := c.client.Subscriber(qualify(c.project, "subscriptions", subscription))
	if c.maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = c.maxOutstanding
	}
	return sub
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// qualify expands an ID to projects/<project>/<kind>/<id>. Full resource
// names pass through.
func qualify(project, kind, name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "projects/") {
		return name
	}
	return "projects/" + project + "/" + kind + "/" + name
}

func describe(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub %s %q does not exist", kind, name)
	default:
		return fmt.Errorf("pubsub: look up %s %q: %w", kind, name, err)
	}
}
