package compute

import (
	"context"
	"errors"
	"fmt"
)

// Provider leases and inspects compute instances.
type Provider interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	ListGPUOfferings(ctx context.Context) ([]Offering, error)
	CreateInstance(ctx context.Context, req CreateRequest) (*Instance, error)
	GetInstance(ctx context.Context, id string) (*Instance, error)
	TerminateInstance(ctx context.Context, id string) error
}

// ErrInstanceExited is returned when an instance stops before becoming ready.
var ErrInstanceExited = errors.New("instance exited unexpectedly")

// ProvisionError reports a failed provider operation on an instance.
type ProvisionError struct {
	// Op is the failed operation: "create", "wait", "get" or "terminate".
	Op         string
	InstanceID string
	Err        error
}

func (e *ProvisionError) Error() string {
	verb := e.Op
	if verb == "wait" {
		verb = "wait for"
	}
	if e.InstanceID != "" {
		return fmt.Sprintf("failed to %s instance %s: %v", verb, e.InstanceID, e.Err)
	}
	return fmt.Sprintf("failed to %s instance: %v", verb, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}
