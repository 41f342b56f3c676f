package llm

import (
	"context"
	"sync"
)

// MockAssistant is a scriptable Assistant for tests.
type MockAssistant struct {
	CallFn  func(ctx context.Context, prompt string) (string, error)
	Prompts []string
	mu      sync.Mutex
}

var _ Assistant = (*MockAssistant)(nil)

// Call records the prompt and delegates to CallFn.
func (m *MockAssistant) Call(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.CallFn != nil {
		return m.CallFn(ctx, prompt)
	}
	return "", nil
}

// CallCount returns how many prompts were sent.
func (m *MockAssistant) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// Reply returns a CallFn that always answers with text.
func Reply(text string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) {
		return text, nil
	}
}
