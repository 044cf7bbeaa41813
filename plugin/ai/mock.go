package ai

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockLLMService is a testify mock of LLMService. ChatStream replays the
// result of the Chat expectation as a single chunk.
type MockLLMService struct {
	mock.Mock
}

// Chat returns the configured response.
func (m *MockLLMService) Chat(ctx context.Context, messages []Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

// ChatStream emits the configured response as one chunk.
func (m *MockLLMService) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	contentChan := make(chan string, 1)
	errChan := make(chan error, 1)
	content, err := m.Chat(ctx, messages)
	if err != nil {
		errChan <- err
	} else {
		contentChan <- content
	}
	close(contentChan)
	close(errChan)
	return contentChan, errChan
}

var _ LLMService = (*MockLLMService)(nil)
