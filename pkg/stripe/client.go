// Package stripe is the Checkout gateway used by package upgrades.
package stripe

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// keyPrefixes lists the secret and restricted key prefixes each mode accepts.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

// sessionAPI is the slice of the Checkout Sessions resource we call.
type sessionAPI interface {
	create(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type packageSessions struct{}

func (packageSessions) create(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (packageSessions) get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.Get(id, params)
}

type Client struct {
	mode          string
	signingSecret string
	sessions      sessionAPI
}

// NewClient checks the key against ASSETFLOW_STRIPE_ENV and installs it as
// the process-wide Stripe key.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	mode := cfg.Environment()
	prefixes, ok := keyPrefixes[mode]
	if !ok {
		return nil, fmt.Errorf("stripe env %q: want test or live", mode)
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("stripe api key is required")
	}
	if !slices.ContainsFunc(prefixes, func(p string) bool { return strings.HasPrefix(key, p) }) {
		return nil, fmt.Errorf("stripe env %q needs a key starting with one of %v", mode, prefixes)
	}
	stripe.Key = key

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", mode), "stripe configured")
	}
	return &Client{
		mode:          mode,
		signingSecret: strings.TrimSpace(cfg.SigningSecret),
		sessions:      packageSessions{},
	}, nil
}

func (c *Client) Mode() string { return c.mode }

// SigningSecret is empty when webhooks are not configured.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
