package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/cogniflow/plugin/ai/timeout"
)

// ErrTruncatedStream is returned when a chat stream ends before the model
// reported a finish reason.
var ErrTruncatedStream = errors.New("chat stream ended without a finish reason")

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs a streaming chat and returns the concatenated deltas.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream performs streaming chat.
	ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

type llmService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewLLMService creates a new LLMService for an OpenAI-compatible endpoint.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("LLM API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("LLM model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &llmService{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (s *llmService) Chat(ctx context.Context, messages []Message) (string, error) {
	start := time.Now()
	contentChan, errChan := s.ChatStream(ctx, messages)

	var sb strings.Builder
	for chunk := range contentChan {
		sb.WriteString(chunk)
	}
	if err := <-errChan; err != nil {
		slog.Warn("LLM chat failed",
			"model", s.model,
			"received", sb.Len(),
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err)
		return "", err
	}

	slog.Debug("LLM chat completed",
		"model", s.model,
		"length", sb.Len(),
		"latency_ms", time.Since(start).Milliseconds())
	return sb.String(), nil
}

func (s *llmService) ChatStream(ctx context.Context, messages []Message) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		ctx, cancel := context.WithTimeout(ctx, timeout.StreamTimeout)
		defer cancel()

		req := openai.ChatCompletionRequest{
			Model:       s.model,
			Messages:    convertMessages(messages),
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
			Stream:      true,
		}

		stream, err := s.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			errChan <- fmt.Errorf("create chat stream: %w", err)
			return
		}
		defer stream.Close()

		finished := false
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if isChunkDecodeError(err) {
				slog.Warn("skipping malformed chat stream chunk", "error", err)
				continue
			}
			if err != nil {
				errChan <- fmt.Errorf("receive chat stream: %w", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			if choice.FinishReason != "" {
				finished = true
			}
			if choice.Delta.Content == "" {
				continue
			}
			select {
			case contentChan <- choice.Delta.Content:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}

		if !finished {
			errChan <- ErrTruncatedStream
		}
	}()

	return contentChan, errChan
}

// isChunkDecodeError reports whether err comes from decoding a single SSE
// data line rather than from the transport. The stream reader has already
// consumed the line, so the next Recv continues with the following chunk.
func isChunkDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		result[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return result
}

// SystemPrompt creates a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// FormatMessages formats messages for prompt templates.
func FormatMessages(systemPrompt string, userContent string, history []Message) []Message {
	messages := []Message{}
	if systemPrompt != "" {
		messages = append(messages, SystemPrompt(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, UserMessage(userContent))
	return messages
}
