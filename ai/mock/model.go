package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// DefaultAnswer is returned by MockModel when no GenerateFunc is set.
const DefaultAnswer = "mock answer"

// MockModel is a langchaingo llms.Model that records prompts and returns
// scripted answers.
type MockModel struct {
	// GenerateFunc produces the answer for a rendered prompt if set.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

var _ llms.Model = (*MockModel)(nil)

func NewMockModel() *MockModel {
	return &MockModel{}
}

// WithGenerateFunc sets the answer behavior and returns the model.
func (m *MockModel) WithGenerateFunc(fn func(ctx context.Context, prompt string) (string, error)) *MockModel {
	m.GenerateFunc = fn
	return m
}

func (m *MockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, message := range messages {
		for _, part := range message.Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
	}
	prompt := b.String()

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	answer := DefaultAnswer
	if m.GenerateFunc != nil {
		var err error
		answer, err = m.GenerateFunc(ctx, prompt)
		if err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: answer}},
	}, nil
}

func (m *MockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Prompts returns every prompt the model received, in order.
func (m *MockModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// CallCount returns the number of generations requested.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *MockModel) Reset() {
	m.mu.Lock()
	m.prompts = nil
	m.mu.Unlock()
	m.GenerateFunc = nil
}
