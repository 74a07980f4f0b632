// Package stripe wraps the card processor credentials and the PaymentIntent
// calls used by checkout, the webhook reconciler and the maintenance sweep.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/logger"
)

// keyPrefixes lists the secret and restricted key prefixes valid per mode.
var keyPrefixes = map[string][2]string{
	"test": {"sk_test", "rk_test"},
	"live": {"sk_live", "rk_live"},
}

// Client holds validated credentials. A nil *Client means payments are off
// and every accessor returns "".
type Client struct {
	environment    string
	publishableKey string
	signingSecret  string
}

// NewClient checks that the secret key matches the configured mode, then
// installs it for the resource packages.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe: unknown environment %q, want test or live", env)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case apiKey == "":
		return nil, errors.New("stripe: api key is required")
	case secret == "":
		return nil, errors.New("stripe: webhook signing secret is required")
	case !strings.HasPrefix(apiKey, prefixes[0]) && !strings.HasPrefix(apiKey, prefixes[1]):
		return nil, fmt.Errorf("stripe: %s mode needs a %s or %s key", env, prefixes[0], prefixes[1])
	}

	stripe.Key = apiKey
	logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe configured")
	return &Client{
		environment:    env,
		publishableKey: strings.TrimSpace(cfg.PublishableKey),
		signingSecret:  secret,
	}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// PublishableKey is handed to the browser so it can confirm card payments.
func (c *Client) PublishableKey() string {
	if c == nil {
		return ""
	}
	return c.publishableKey
}

// SigningSecret verifies Stripe-Signature headers on webhook deliveries.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
