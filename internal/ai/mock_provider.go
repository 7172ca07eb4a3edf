package ai

import (
	"context"
	"sync"
)

// MockProvider is a test provider that records calls and returns configured
// responses in order.
type MockProvider struct {
	name      string
	mu        sync.Mutex
	responses []MockResponse
	calls     []*CompletionRequest
	respIndex int
}

// MockResponse is a pre-configured response for the mock provider
type MockResponse struct {
	Content string
	Error   error
}

// NewMockProvider creates a mock provider for testing
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

func (m *MockProvider) Name() string {
	return m.name
}

// Complete records the call and returns the next configured response
func (m *MockProvider) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if m.respIndex < len(m.responses) {
		resp := m.responses[m.respIndex]
		m.respIndex++
		if resp.Error != nil {
			return nil, resp.Error
		}
		return &Completion{
			Content: resp.Content,
			Usage:   Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}

	return &Completion{
		Content: "Mock response",
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// AddResponse queues a successful response
func (m *MockProvider) AddResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Content: content})
}

// AddErrorResponse queues an error response
func (m *MockProvider) AddErrorResponse(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Error: err})
}

// Calls returns all recorded requests
func (m *MockProvider) Calls() []*CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*CompletionRequest{}, m.calls...)
}

// CallCount returns the number of Complete calls
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent request, or nil
func (m *MockProvider) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// Reset clears recorded calls and queued responses
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = nil
	m.respIndex = 0
}
