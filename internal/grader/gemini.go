package grader

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultGeminiURL       = "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent?key={api_key}"
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultGeminiKeyEnvVar = "GEMINI_API_KEY"

	geminiTextPath = "candidates.0.content.parts.0.text"
)

// GeminiConfig configures a GeminiBackend. Zero fields take defaults.
type GeminiConfig struct {
	APIKey          string // explicit credential; wins over APIKeyEnv
	APIKeyEnv       string // environment variable read when APIKey is empty
	URL             string // template with {model} and {api_key} placeholders
	Model           string
	DualInstruction bool // send the grading rules as system_instruction
	RequestsPerMin  int  // client-side pacing; 0 disables
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// GeminiBackend calls the Gemini generateContent API.
type GeminiBackend struct {
	apiKey  string
	keyEnv  string
	urlTmpl string
	model   string
	dual    bool
	limiter *rate.Limiter
	client  *http.Client
}

// Compile-time check: *GeminiBackend satisfies the Backend interface.
var _ Backend = (*GeminiBackend)(nil)

// NewGeminiBackend resolves the credential once; a missing key is reported
// by Call, not here, so a misconfigured host still starts.
func NewGeminiBackend(cfg GeminiConfig) *GeminiBackend {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = DefaultGeminiKeyEnvVar
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(keyEnv))
	}

	b := &GeminiBackend{
		apiKey:  apiKey,
		keyEnv:  keyEnv,
		urlTmpl: cfg.URL,
		model:   cfg.Model,
		dual:    cfg.DualInstruction,
		client:  cfg.HTTPClient,
	}
	if b.urlTmpl == "" {
		b.urlTmpl = DefaultGeminiURL
	}
	if b.model == "" {
		b.model = DefaultGeminiModel
	}
	if b.client == nil {
		b.client = newHTTPClient(cfg.Timeout)
	}
	if cfg.RequestsPerMin > 0 {
		b.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMin)), 1)
	}
	return b
}

func (b *GeminiBackend) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

// Call fails with ErrMissingCredential before any network I/O when no key
// was configured.
func (b *GeminiBackend) Call(ctx context.Context, prompt Prompt) (string, error) {
	if b.apiKey == "" {
		return "", missingCredentialError(b.keyEnv)
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return "", transportError("request pacing aborted", nil, err)
		}
	}

	body, err := postJSON(ctx, b.client, b.endpoint(), b.envelope(prompt), nil)
	if err != nil {
		return "", err
	}

	if !gjson.ValidBytes(body) {
		return "", transportError("LLM returned an invalid JSON envelope", body, nil)
	}
	text := gjson.GetBytes(body, geminiTextPath)
	if text.Type != gjson.String {
		return "", missingFieldError(geminiTextPath, body)
	}
	return text.String(), nil
}

func (b *GeminiBackend) envelope(prompt Prompt) geminiRequest {
	if b.dual {
		return geminiRequest{
			SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: prompt.System}}},
			Contents:          []geminiContent{{Parts: []geminiPart{{Text: prompt.User}}}},
		}
	}
	return geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt.Combined()}}}},
	}
}

func (b *GeminiBackend) endpoint() string {
	return strings.NewReplacer(
		"{model}", url.PathEscape(b.model),
		"{api_key}", url.QueryEscape(b.apiKey),
	).Replace(b.urlTmpl)
}
