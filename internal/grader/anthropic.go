package grader

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel     = "claude-sonnet-4-5-20250929"
	DefaultAnthropicKeyEnvVar = "ANTHROPIC_API_KEY"

	anthropicMaxTokens = 1024
)

// AnthropicConfig configures an AnthropicBackend. Zero fields take defaults.
type AnthropicConfig struct {
	APIKey     string
	APIKeyEnv  string
	Model      string
	BaseURL    string // overrides the API host, used by tests
	Timeout    time.Duration
	HTTPClient *http.Client
}

// AnthropicBackend grades through the Anthropic Messages API.
type AnthropicBackend struct {
	client anthropic.Client
	apiKey string
	keyEnv string
	model  string
}

// Compile-time check: *AnthropicBackend satisfies the Backend interface.
var _ Backend = (*AnthropicBackend)(nil)

func NewAnthropicBackend(cfg AnthropicConfig) *AnthropicBackend {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = DefaultAnthropicKeyEnvVar
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(keyEnv))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.Timeout)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicBackend{
		client: anthropic.NewClient(opts...),
		apiKey: apiKey,
		keyEnv: keyEnv,
		model:  model,
	}
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

func (b *AnthropicBackend) Call(ctx context.Context, prompt Prompt) (string, error) {
	if b.apiKey == "" {
		return "", missingCredentialError(b.keyEnv)
	}

	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: prompt.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	})
	if err != nil {
		return "", transportError("Anthropic API error", nil, err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", missingFieldError("content[type=text].text", []byte(message.RawJSON()))
}
