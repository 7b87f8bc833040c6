package hcloud

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/comfyprov/internal/config"
)

// ProviderName identifies this backend.
const ProviderName = config.ProviderHCloud

// Client implements compute.Provider using the Hetzner Cloud API.
type Client struct {
	client   *hcloud.Client
	timeouts *config.Timeouts
	log      logr.Logger

	// location prices offerings and places servers.
	location string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *Client) {
		c.timeouts = t
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLocation sets the location used for pricing and placement.
func WithLocation(location string) ClientOption {
	return func(c *Client) {
		c.location = strings.ToLower(location)
	}
}

// WithLogger sets the debug logger.
func WithLogger(log logr.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new Client with optional configuration.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		client:   hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("comfyprov", "")),
		timeouts: config.LoadTimeouts(),
		log:      logr.Discard(),
		location: config.DefaultHCloudLocation,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements compute.Provider.
func (c *Client) Name() string {
	return ProviderName
}
