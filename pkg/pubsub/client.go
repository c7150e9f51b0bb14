// Package pubsub wraps the Pub/Sub v2 client for the audit event stream.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/attesthealth/attest-backend/pkg/config"
	"github.com/attesthealth/attest-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoSubscriptions   = errors.New("pubsub subscription name is required")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects and verifies the configured subscriptions exist before
// handing the client out. Topics are not checked here: publishing surfaces a
// missing topic on first send.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	raw, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: raw, projectID: projectID, cfg: cfg}
	if err := c.checkSubscriptions(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) checkSubscriptions(ctx context.Context) error {
	names := subscriptionNames(c.cfg)
	if len(names) == 0 {
		return errNoSubscriptions
	}
	for _, name := range names {
		full := c.resourceName("subscriptions", name)
		if full == "" {
			return fmt.Errorf("subscription %q not configured", name)
		}
		_, err := c.client.SubscriptionAdminClient.GetSubscription(
			ctx,
			&pubsubpb.GetSubscriptionRequest{Subscription: full},
		)
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("subscription %q does not exist", name)
		case err != nil:
			return fmt.Errorf("checking subscription %q: %w", name, err)
		}
	}
	return nil
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	names := []string{}
	if trimmed := strings.TrimSpace(cfg.AuditSubscription); trimmed != "" {
		names = append(names, trimmed)
	}
	return names
}

// Subscription accepts either a bare subscription ID or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName("subscriptions", name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// AuditSubscription is the subscriber for the audit event stream.
func (c *Client) AuditSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.AuditSubscription)
}

// Publisher accepts either a bare topic ID or a full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := c.resourceName("topics", name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// AuditPublisher is the publisher for the audit event topic.
func (c *Client) AuditPublisher() *pubsub.Publisher {
	return c.Publisher(c.cfg.AuditTopic)
}

// Ping re-checks the configured subscriptions.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.checkSubscriptions(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName qualifies a bare ID under the client's project; names that
// already carry the projects/ prefix pass through untouched.
func (c *Client) resourceName(kind, name string) string {
	if c == nil {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	project := strings.TrimSpace(c.projectID)
	if project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, kind, name)
}
