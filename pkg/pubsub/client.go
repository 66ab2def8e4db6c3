// Package pubsub connects the storefront to its Google Cloud Pub/Sub
// notifications topic.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub notifications topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub connection and knows the notifications topic.
type Client struct {
	client *pubsub.Client
	topic  string
}

// NewClient connects to Pub/Sub and checks the notifications topic exists,
// creating it when cfg.CreateTopic is set. Extra options are appended after
// the credential options derived from cfg.
func NewClient(ctx context.Context, cfg config.PubSubConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	project := strings.TrimSpace(cfg.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topic := topicName(project, cfg.NotificationsTopic)
	if topic == "" {
		return nil, errNoTopic
	}

	opts := append(credentialOptions(cfg), extra...)
	raw, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: raw, topic: topic}

	if err := c.checkTopic(ctx, cfg.CreateTopic); err != nil {
		_ = raw.Close()
		return nil, err
	}
	logg.Info(logg.WithField(ctx, "topic", topic), "pubsub client initialized")
	return c, nil
}

func credentialOptions(cfg config.PubSubConfig) []option.ClientOption {
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		return []option.ClientOption{option.WithCredentialsFile(file)}
	}
	return nil
}

func (c *Client) checkTopic(ctx context.Context, create bool) error {
	admin := c.client.TopicAdminClient
	_, err := admin.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case err == nil:
		return nil
	case status.Code(err) != codes.NotFound:
		return fmt.Errorf("checking topic %q: %w", c.topic, err)
	case !create:
		return fmt.Errorf("topic %q does not exist", c.topic)
	}
	if _, err := admin.CreateTopic(ctx, &pubsubpb.Topic{Name: c.topic}); err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("creating topic %q: %w", c.topic, err)
	}
	return nil
}

// NotificationsPublisher returns the publisher for SMS, email and order events.
func (c *Client) NotificationsPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Publisher(c.topic)
}

// Topic is the fully qualified notifications topic name.
func (c *Client) Topic() string {
	if c == nil {
		return ""
	}
	return c.topic
}

// Ping checks the topic is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.checkTopic(ctx, false)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// topicName expands a bare topic id to projects/<project>/topics/<id>;
// already qualified names pass through.
func topicName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	default:
		return "projects/" + project + "/topics/" + topic
	}
}
