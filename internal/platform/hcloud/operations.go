package hcloud

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/comfyprov/internal/util/retry"
)

// DeleteOperation encapsulates idempotent deletion of a named hcloud resource.
//
//	return (&DeleteOperation[*hcloud.SSHKey]{
//	    Name:         name,
//	    ResourceType: "ssh key",
//	    Get:          c.client.SSHKey.Get,
//	    Delete:       c.client.SSHKey.Delete,
//	}).Execute(ctx, c)
type DeleteOperation[T any] struct {
	Name         string
	ResourceType string

	// Get retrieves the resource by name
	Get func(ctx context.Context, name string) (T, *hcloud.Response, error)

	// Delete removes the resource
	Delete func(ctx context.Context, resource T) (*hcloud.Response, error)
}

// Execute performs the delete operation with retry logic.
// It succeeds if the resource doesn't exist.
func (op *DeleteOperation[T]) Execute(ctx context.Context, c *Client) error {
	return c.withRetry(ctx, func() error {
		resource, _, err := op.Get(ctx, op.Name)
		if err != nil {
			return retry.Fatal(fmt.Errorf("failed to get %s: %w", op.ResourceType, err))
		}

		// Already deleted
		if reflect.ValueOf(resource).IsNil() {
			return nil
		}

		if _, err := op.Delete(ctx, resource); err != nil {
			if isRetryable(err) {
				return err
			}
			return retry.Fatal(fmt.Errorf("failed to delete %s: %w", op.ResourceType, err))
		}
		return nil
	})
}

// withRetry runs fn with the client's retry settings.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	return retry.WithExponentialBackoff(ctx, fn,
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
		retry.WithBeforeRetry(func(attempt int, err error) error {
			c.log.V(1).Info("retrying hcloud request", "attempt", attempt, "error", err.Error())
			return nil
		}),
	)
}

// classify marks invalid-parameter errors fatal. Everything else is retried.
func classify(err error) error {
	if isInvalidParameter(err) {
		return retry.Fatal(err)
	}
	return err
}

// waitForActions waits for one or more actions to complete.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, pending...)
}
