package metadata

import (
	"context"
	"sync"
)

// MockInvoker returns a canned response and records the prompts it receives
type MockInvoker struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

// NewMockInvoker creates a mock that answers every prompt with response
func NewMockInvoker(response string) *MockInvoker {
	return &MockInvoker{response: response}
}

// Invoke returns the canned response, or the configured error
func (m *MockInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// SetError makes every following call fail with err
func (m *MockInvoker) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetPrompts returns all prompts received so far
func (m *MockInvoker) GetPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.prompts...)
}
