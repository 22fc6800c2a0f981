package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerAddress   string        `yaml:"server_address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	DBPath          string        `yaml:"db_path"`

	// Grading
	Backend       string        `yaml:"grader_backend"` // gemini, ollama, openai or anthropic
	GraderTimeout time.Duration `yaml:"grader_timeout"`
	GraderWorkers int           `yaml:"grader_workers"`

	// Gemini (remote)
	GeminiAPIKey          string `yaml:"gemini_api_key"`
	GeminiAPIKeyEnv       string `yaml:"gemini_api_key_env"`
	GeminiURL             string `yaml:"gemini_url"`
	GeminiModel           string `yaml:"gemini_model"`
	GeminiDualInstruction bool   `yaml:"gemini_dual_instruction"`
	GeminiRPM             int    `yaml:"gemini_rpm"`

	// Ollama (local)
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	// OpenAI-compatible endpoint (LM Studio, vLLM, ...)
	LLMURL    string `yaml:"llm_url"`
	LLMModel  string `yaml:"llm_model"`
	LLMAPIKey string `yaml:"llm_api_key"`

	// Anthropic
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
}

const (
	BackendGemini    = "gemini"
	BackendOllama    = "ollama"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// Load reads .env, then the YAML file named by CONFIG_PATH (default
// config.yaml) if it exists, then lets environment variables override,
// then fills defaults. Invalid values are fatal.
func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	overrides := []func() error{
		envString(&cfg.ServerAddress, "SERVER_ADDRESS"),
		envDuration(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT"),
		envString(&cfg.DBPath, "DB_PATH"),
		envString(&cfg.Backend, "GRADER_BACKEND"),
		envDuration(&cfg.GraderTimeout, "GRADER_TIMEOUT"),
		envInt(&cfg.GraderWorkers, "GRADER_WORKERS"),
		envString(&cfg.GeminiAPIKeyEnv, "GEMINI_API_KEY_ENV"),
		envString(&cfg.GeminiURL, "GEMINI_URL"),
		envString(&cfg.GeminiModel, "GEMINI_MODEL"),
		envBool(&cfg.GeminiDualInstruction, "GEMINI_DUAL_INSTRUCTION"),
		envInt(&cfg.GeminiRPM, "GEMINI_RPM"),
		envString(&cfg.OllamaURL, "OLLAMA_URL"),
		envString(&cfg.OllamaModel, "OLLAMA_MODEL"),
		envString(&cfg.LLMURL, "LLM_URL"),
		envString(&cfg.LLMModel, "LLM_MODEL"),
		envString(&cfg.LLMAPIKey, "LLM_API_KEY"),
		envString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY"),
		envString(&cfg.AnthropicModel, "ANTHROPIC_MODEL"),
	}
	for _, apply := range overrides {
		if err := apply(); err != nil {
			return nil, err
		}
	}

	// Defaults
	if cfg.ServerAddress == "" {
		cfg.ServerAddress = ":8080"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "recallgrade.db"
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendGemini
	}
	if cfg.GraderTimeout == 0 {
		cfg.GraderTimeout = 120 * time.Second
	}
	if cfg.GraderWorkers < 1 {
		cfg.GraderWorkers = 3
	}
	if cfg.GeminiAPIKeyEnv == "" {
		cfg.GeminiAPIKeyEnv = "GEMINI_API_KEY"
	}
	// The Gemini key is read from the configured variable, which may not
	// be GEMINI_API_KEY. Like every other key it overrides the YAML value.
	if v := os.Getenv(cfg.GeminiAPIKeyEnv); v != "" {
		cfg.GeminiAPIKey = v
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case BackendGemini, BackendOllama, BackendOpenAI, BackendAnthropic:
	default:
		return nil, fmt.Errorf("GRADER_BACKEND=%q is not one of gemini, ollama, openai, anthropic", cfg.Backend)
	}
	return &cfg, nil
}

func envString(dst *string, k string) func() error {
	return func() error {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
		return nil
	}
}

func envDuration(dst *time.Duration, k string) func() error {
	return func() error {
		v := os.Getenv(k)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a valid duration: %w", k, v, err)
		}
		*dst = d
		return nil
	}
}

func envInt(dst *int, k string) func() error {
	return func() error {
		v := os.Getenv(k)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a valid integer: %w", k, v, err)
		}
		*dst = n
		return nil
	}
}

func envBool(dst *bool, k string) func() error {
	return func() error {
		v := os.Getenv(k)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q is not a valid boolean: %w", k, v, err)
		}
		*dst = b
		return nil
	}
}
