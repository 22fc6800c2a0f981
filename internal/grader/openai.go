package grader

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIURL   = "http://localhost:1234/v1"
	DefaultOpenAIModel = "qwen3-8b"
)

// OpenAIConfig configures an OpenAIBackend. Zero fields take defaults.
type OpenAIConfig struct {
	BaseURL    string // OpenAI-compatible endpoint, e.g. "http://localhost:1234/v1"
	Model      string
	APIKey     string // optional; local servers usually ignore it
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIBackend grades through any OpenAI-compatible chat completions
// endpoint (OpenAI, LM Studio, vLLM, Ollama's /v1).
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// Compile-time check: *OpenAIBackend satisfies the Backend interface.
var _ Backend = (*OpenAIBackend)(nil)

func NewOpenAIBackend(cfg OpenAIConfig) *OpenAIBackend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultOpenAIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.Timeout)
	}
	clientCfg.HTTPClient = httpClient

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIBackend{client: openai.NewClientWithConfig(clientCfg), model: model}
}

func (b *OpenAIBackend) Name() string { return "openai" }

func (b *OpenAIBackend) Call(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		// a literal 0 is dropped by omitempty and the server default applies
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", transportError("LLM returned an API error", []byte(apiErr.Message), err)
		}
		return "", transportError("LLM request failed", nil, err)
	}

	if len(resp.Choices) == 0 {
		return "", missingFieldError("choices[0].message.content", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
