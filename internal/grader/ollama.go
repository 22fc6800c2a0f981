package grader

import (
	"context"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultOllamaURL   = "http://localhost:11434/api/generate"
	DefaultOllamaModel = "llama3.1"

	ollamaTextPath = "response"
)

// OllamaConfig configures an OllamaBackend. Zero fields take defaults.
type OllamaConfig struct {
	URL        string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OllamaBackend calls a local Ollama server's generate endpoint.
type OllamaBackend struct {
	url    string       // e.g. "http://localhost:11434/api/generate"
	model  string       // e.g. "llama3.1"
	client *http.Client // reused across calls
}

// Compile-time check: *OllamaBackend satisfies the Backend interface.
var _ Backend = (*OllamaBackend)(nil)

// NewOllamaBackend creates a backend for the given local endpoint.
func NewOllamaBackend(cfg OllamaConfig) *OllamaBackend {
	b := &OllamaBackend{url: cfg.URL, model: cfg.Model, client: cfg.HTTPClient}
	if b.url == "" {
		b.url = DefaultOllamaURL
	}
	if b.model == "" {
		b.model = DefaultOllamaModel
	}
	if b.client == nil {
		b.client = newHTTPClient(cfg.Timeout)
	}
	return b
}

func (b *OllamaBackend) Name() string { return "ollama" }

// Stream is always false: only whole responses are consumed.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

func (b *OllamaBackend) Call(ctx context.Context, prompt Prompt) (string, error) {
	body, err := postJSON(ctx, b.client, b.url, ollamaRequest{
		Model:  b.model,
		Prompt: prompt.User,
		System: prompt.System,
		Stream: false,
		Format: "json",
	}, nil)
	if err != nil {
		return "", err
	}

	if !gjson.ValidBytes(body) {
		return "", transportError("LLM returned an invalid JSON envelope", body, nil)
	}
	text := gjson.GetBytes(body, ollamaTextPath)
	if text.Type != gjson.String {
		return "", missingFieldError(ollamaTextPath, body)
	}
	return text.String(), nil
}
