// Package pubsub connects the outbox publisher to the order events topic on
// Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/logger"
)

var (
	ErrTopicMissing = errors.New("pubsub: topic does not exist")
	errNoClient     = errors.New("pubsub: client not initialized")
)

// Client owns the Pub/Sub connection and a single publisher for the orders
// topic. The publisher batches internally, so it is created once and stopped
// on Close.
type Client struct {
	client *pubsub.Client
	topic  string

	once      sync.Once
	publisher *pubsub.Publisher
}

// NewClient connects and refuses to start when the orders topic is absent.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("pubsub: gcp project id is required")
	}
	topic := TopicResourceName(project, cfg.OrdersTopic)
	if topic == "" {
		return nil, errors.New("pubsub: orders topic is required")
	}

	raw, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connect: %w", err)
	}
	c := &Client{client: raw, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	logg.Info(logg.WithField(ctx, "topic", topic), "pubsub topic reachable")
	return c, nil
}

// OrdersPublisher returns the shared publisher for order events.
func (c *Client) OrdersPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	c.once.Do(func() {
		c.publisher = c.client.Publisher(c.topic)
	})
	return c.publisher
}

// Ping checks that the orders topic is still there.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNoClient
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s", ErrTopicMissing, c.topic)
	case err != nil:
		return fmt.Errorf("pubsub: get topic %s: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending publishes before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.client.Close()
}

// TopicResourceName expands a bare topic ID to projects/<p>/topics/<id>.
// Full resource names pass through.
func TopicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if name == "" || projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}
