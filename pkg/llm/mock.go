package llm

import (
	"context"
	"sync"

	"intake/pkg/llm/llmerrors"
)

// MockClient is a scripted Client for tests. Each call consumes the next
// scripted result; when the script is exhausted the last result repeats.
type MockClient struct {
	mu       sync.Mutex
	script   []MockResult
	requests []CompletionRequest
	index    int
	model    string
}

// MockResult is one scripted outcome.
type MockResult struct {
	Response CompletionResponse
	Err      error
}

// NewMockClient creates a mock client with scripted results.
func NewMockClient(script ...MockResult) *MockClient {
	return &MockClient{script: script, model: "mock-model"}
}

// MockResponse is a convenience constructor for a successful scripted reply.
func MockResponse(content string) MockResult {
	return MockResult{Response: CompletionResponse{
		Content: content,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
	}}
}

// MockFailure is a convenience constructor for a scripted gateway failure.
func MockFailure(errorType llmerrors.ErrorType, message string) MockResult {
	return MockResult{Err: llmerrors.NewError(errorType, message)}
}

// Complete implements Client.
func (m *MockClient) Complete(_ context.Context, in CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, in)

	if len(m.script) == 0 {
		return CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeUnknown, "mock client has no scripted results")
	}

	result := m.script[m.index]
	if m.index < len(m.script)-1 {
		m.index++
	}
	if result.Err != nil {
		return CompletionResponse{}, result.Err
	}
	return result.Response, nil
}

// GetModelName implements Client.
func (m *MockClient) GetModelName() string {
	return m.model
}

// Requests returns a copy of all requests seen so far.
func (m *MockClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest{}, m.requests...)
}

// CallCount returns the number of Complete calls observed.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
