package compute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Defaults for WaitOptions fields left at zero.
const (
	DefaultPollInterval         = 2 * time.Second
	DefaultMaxConsecutiveErrors = 5
)

// WaitOptions tunes WaitUntilReady.
type WaitOptions struct {
	// Interval between polls. Zero means DefaultPollInterval.
	Interval time.Duration
	// Timeout bounds the whole wait. Zero means no bound beyond ctx.
	Timeout time.Duration
	// MaxConsecutiveErrors is the number of GetInstance failures in a row that
	// are tolerated. Zero means DefaultMaxConsecutiveErrors.
	MaxConsecutiveErrors int
	// OnPoll, if set, receives every instance snapshot.
	OnPoll func(*Instance)
	Logger logr.Logger
}

func (o *WaitOptions) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	if o.MaxConsecutiveErrors <= 0 {
		o.MaxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
}

// WaitUntilReady polls the instance until it is running with published ports.
//
// The first poll happens immediately. An exited or terminated instance fails
// the wait at once with a ProvisionError wrapping ErrInstanceExited, without
// polling again.
func WaitUntilReady(ctx context.Context, p Provider, id string, opts WaitOptions) (*Instance, error) {
	opts.applyDefaults()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var consecutiveErrors int
	for poll := 1; ; poll++ {
		inst, err := p.GetInstance(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, waitAborted(ctx, id, opts.Timeout)
			}
			consecutiveErrors++
			opts.Logger.V(1).Info("instance poll failed", "instance", id, "poll", poll, "error", err.Error())
			if consecutiveErrors >= opts.MaxConsecutiveErrors {
				return nil, &ProvisionError{
					Op:         "wait",
					InstanceID: id,
					Err:        fmt.Errorf("%d consecutive status checks failed: %w", consecutiveErrors, err),
				}
			}
		default:
			consecutiveErrors = 0
			if opts.OnPoll != nil {
				opts.OnPoll(inst)
			}
			if inst.Exited() {
				return nil, &ProvisionError{Op: "wait", InstanceID: id, Err: ErrInstanceExited}
			}
			if inst.Ready() {
				opts.Logger.V(1).Info("instance ready", "instance", id, "polls", poll)
				return inst, nil
			}
			opts.Logger.V(1).Info("still waiting for instance", "instance", id, "status", inst.DesiredStatus, "poll", poll)
		}

		select {
		case <-ctx.Done():
			return nil, waitAborted(ctx, id, opts.Timeout)
		case <-ticker.C:
		}
	}
}

func waitAborted(ctx context.Context, id string, timeout time.Duration) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
		err = fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	return &ProvisionError{Op: "wait", InstanceID: id, Err: err}
}
