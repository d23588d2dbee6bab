package ai

import (
	"context"
	"sync"
)

// MockLLMService is a scripted LLMService for tests.
// Respond decides the reply for each call; calls are recorded in order.
type MockLLMService struct {
	mu      sync.Mutex
	Respond func(messages []Message) (string, error)
	calls   [][]Message
}

// NewMockLLMService returns a mock that always replies with reply.
func NewMockLLMService(reply string) *MockLLMService {
	return &MockLLMService{
		Respond: func([]Message) (string, error) { return reply, nil },
	}
}

func (m *MockLLMService) Chat(ctx context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	respond := m.Respond
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return respond(messages)
}

// Calls returns a copy of the recorded requests.
func (m *MockLLMService) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([][]Message, len(m.calls))
	copy(calls, m.calls)
	return calls
}
