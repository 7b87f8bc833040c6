package compute

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastWait() WaitOptions {
	return WaitOptions{Interval: time.Millisecond}
}

func TestWaitUntilReady_Running(t *testing.T) {
	polls := 0
	p := &MockProvider{
		GetInstanceFunc: func(_ context.Context, id string) (*Instance, error) {
			polls++
			if polls < 3 {
				return &Instance{ID: id, DesiredStatus: StatusCreated}, nil
			}
			if polls == 3 {
				// Running but ports not published yet.
				return &Instance{ID: id, DesiredStatus: StatusRunning}, nil
			}
			return &Instance{ID: id, DesiredStatus: StatusRunning, Ports: []PortMapping{{IP: "1.2.3.4", PrivatePort: 22, PublicPort: 2222}}}, nil
		},
	}

	inst, err := WaitUntilReady(context.Background(), p, "pod-1", fastWait())
	require.NoError(t, err)
	assert.Equal(t, "pod-1", inst.ID)
	assert.Equal(t, 4, p.Calls("GetInstance"))
}

func TestWaitUntilReady_ExitedStopsPolling(t *testing.T) {
	polls := 0
	p := &MockProvider{
		GetInstanceFunc: func(_ context.Context, id string) (*Instance, error) {
			polls++
			if polls == 3 {
				return &Instance{ID: id, DesiredStatus: StatusExited}, nil
			}
			return &Instance{ID: id, DesiredStatus: StatusCreated}, nil
		},
	}

	_, err := WaitUntilReady(context.Background(), p, "pod-1", fastWait())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstanceExited)

	var pe *ProvisionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "wait", pe.Op)
	assert.Equal(t, "pod-1", pe.InstanceID)
	assert.Equal(t, 3, p.Calls("GetInstance"))
}

func TestWaitUntilReady_ToleratesTransientErrors(t *testing.T) {
	polls := 0
	p := &MockProvider{
		GetInstanceFunc: func(_ context.Context, id string) (*Instance, error) {
			polls++
			if polls <= 2 {
				return nil, errors.New("502 bad gateway")
			}
			return &Instance{ID: id, DesiredStatus: StatusRunning, Ports: []PortMapping{{PrivatePort: 22}}}, nil
		},
	}

	_, err := WaitUntilReady(context.Background(), p, "pod-1", fastWait())
	assert.NoError(t, err)
}

func TestWaitUntilReady_TooManyErrors(t *testing.T) {
	p := &MockProvider{
		GetInstanceFunc: func(context.Context, string) (*Instance, error) {
			return nil, errors.New("connection refused")
		},
	}

	opts := fastWait()
	opts.MaxConsecutiveErrors = 3
	_, err := WaitUntilReady(context.Background(), p, "pod-1", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 consecutive status checks failed")
	var pe *ProvisionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "pod-1", pe.InstanceID)
	assert.Equal(t, 3, p.Calls("GetInstance"))
}

func TestWaitUntilReady_Timeout(t *testing.T) {
	p := &MockProvider{}

	opts := WaitOptions{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}
	_, err := WaitUntilReady(context.Background(), p, "pod-1", opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out after 30ms")
}

func TestWaitUntilReady_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &MockProvider{
		GetInstanceFunc: func(_ context.Context, id string) (*Instance, error) {
			cancel()
			return &Instance{ID: id, DesiredStatus: StatusCreated}, nil
		},
	}

	_, err := WaitUntilReady(ctx, p, "pod-1", WaitOptions{Interval: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.Calls("GetInstance"))
}

func TestWaitUntilReady_OnPoll(t *testing.T) {
	var seen []string
	statuses := []string{StatusCreated, StatusCreated, StatusRunning}
	p := &MockProvider{
		GetInstanceFunc: func(_ context.Context, id string) (*Instance, error) {
			s := statuses[0]
			statuses = statuses[1:]
			inst := &Instance{ID: id, DesiredStatus: s}
			if s == StatusRunning {
				inst.Ports = []PortMapping{{PrivatePort: 8188}}
			}
			return inst, nil
		},
	}

	opts := fastWait()
	opts.OnPoll = func(i *Instance) { seen = append(seen, i.DesiredStatus) }
	_, err := WaitUntilReady(context.Background(), p, "pod-1", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{StatusCreated, StatusCreated, StatusRunning}, seen)
}

func TestListOfferings_Advisory(t *testing.T) {
	p := &MockProvider{
		ListGPUOfferingsFunc: func(context.Context) ([]Offering, error) {
			return nil, errors.New("unauthorized")
		},
	}

	got, err := ListOfferings(context.Background(), p)
	assert.EqualError(t, err, "unauthorized")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	p.ListGPUOfferingsFunc = func(context.Context) ([]Offering, error) {
		return nil, nil
	}
	got, err = ListOfferings(context.Background(), p)
	require.NoError(t, err)
	assert.NotNil(t, got)

	p.ListGPUOfferingsFunc = func(context.Context) ([]Offering, error) {
		return []Offering{{ID: "NVIDIA A40", MemoryGB: 48}}, nil
	}
	got, err = ListOfferings(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestProvisionError(t *testing.T) {
	cause := errors.New("no capacity")
	err := &ProvisionError{Op: "create", Err: cause}
	assert.Equal(t, "failed to create instance: no capacity", err.Error())
	assert.ErrorIs(t, err, cause)

	err = &ProvisionError{Op: "wait", InstanceID: "abc", Err: ErrInstanceExited}
	assert.Equal(t, "failed to wait for instance abc: instance exited unexpectedly", err.Error())
}
