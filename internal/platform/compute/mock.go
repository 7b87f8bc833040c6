package compute

import (
	"context"
	"sync"
)

// MockProvider is a Provider whose behavior is set per test through function
// fields. Unset functions return zero values. Calls are counted.
type MockProvider struct {
	NameValue string

	ListGPUOfferingsFunc  func(ctx context.Context) ([]Offering, error)
	CreateInstanceFunc    func(ctx context.Context, req CreateRequest) (*Instance, error)
	GetInstanceFunc       func(ctx context.Context, id string) (*Instance, error)
	TerminateInstanceFunc func(ctx context.Context, id string) error

	mu    sync.Mutex
	calls map[string]int
}

var _ Provider = (*MockProvider)(nil)

// Calls returns how many times method was invoked.
func (m *MockProvider) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockProvider) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// ListGPUOfferings implements Provider.
func (m *MockProvider) ListGPUOfferings(ctx context.Context) ([]Offering, error) {
	m.record("ListGPUOfferings")
	if m.ListGPUOfferingsFunc != nil {
		return m.ListGPUOfferingsFunc(ctx)
	}
	return nil, nil
}

// CreateInstance implements Provider.
func (m *MockProvider) CreateInstance(ctx context.Context, req CreateRequest) (*Instance, error) {
	m.record("CreateInstance")
	if m.CreateInstanceFunc != nil {
		return m.CreateInstanceFunc(ctx, req)
	}
	return &Instance{ID: "mock-id", Name: req.Name, DesiredStatus: StatusCreated}, nil
}

// GetInstance implements Provider.
func (m *MockProvider) GetInstance(ctx context.Context, id string) (*Instance, error) {
	m.record("GetInstance")
	if m.GetInstanceFunc != nil {
		return m.GetInstanceFunc(ctx, id)
	}
	return &Instance{ID: id, DesiredStatus: StatusCreated}, nil
}

// TerminateInstance implements Provider.
func (m *MockProvider) TerminateInstance(ctx context.Context, id string) error {
	m.record("TerminateInstance")
	if m.TerminateInstanceFunc != nil {
		return m.TerminateInstanceFunc(ctx, id)
	}
	return nil
}
