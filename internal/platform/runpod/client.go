package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/comfyprov/internal/config"
	"github.com/imamik/comfyprov/internal/util/retry"
)

const (
	// DefaultEndpoint is the RunPod GraphQL endpoint.
	DefaultEndpoint = "https://api.runpod.io/graphql"

	// ProviderName identifies this backend.
	ProviderName = config.ProviderRunPod
)

// Client talks to the RunPod GraphQL API.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	log        logr.Logger

	retryMaxAttempts  int
	retryInitialDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint (used by tests).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeouts applies the request timeout and retry settings.
func WithTimeouts(t *config.Timeouts) Option {
	return func(c *Client) {
		c.httpClient.Timeout = t.HTTPTimeout
		c.retryMaxAttempts = t.RetryMaxAttempts
		c.retryInitialDelay = t.RetryInitialDelay
	}
}

// WithLogger sets the debug logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a RunPod client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:               logr.Discard(),
		retryMaxAttempts:  3,
		retryInitialDelay: time.Second,
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

// APIError is a non-successful HTTP response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("runpod API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("runpod API returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "runpod: " + strings.Join(e.Messages, "; ")
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query runs an idempotent GraphQL operation with retries.
func (c *Client) query(ctx context.Context, op, query string, vars map[string]any, out any) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		return c.do(ctx, op, query, vars, out)
	},
		retry.WithMaxRetries(c.retryMaxAttempts),
		retry.WithInitialDelay(c.retryInitialDelay),
		retry.WithBeforeRetry(func(attempt int, err error) error {
			c.log.V(1).Info("retrying runpod request", "operation", op, "attempt", attempt, "error", err.Error())
			return nil
		}),
	)
}

// do performs one GraphQL round trip. Errors that must not be retried are
// wrapped with retry.Fatal.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return retry.Fatal(fmt.Errorf("failed to encode %s request: %w", op, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.V(2).Info("runpod request", "operation", op)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Fatal(fmt.Errorf("%s: %w", op, ctx.Err()))
		}
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		if apiErr.Temporary() {
			return apiErr
		}
		return retry.Fatal(apiErr)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(data, &gqlResp); err != nil {
		return retry.Fatal(fmt.Errorf("failed to parse %s response: %w", op, err))
	}
	if len(gqlResp.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range gqlResp.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return retry.Fatal(gqlErr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return retry.Fatal(fmt.Errorf("failed to decode %s data: %w", op, err))
	}
	return nil
}
