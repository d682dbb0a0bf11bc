package llm

import (
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default models per provider.
const (
	defaultOpenAIModel    = "gpt-4o"
	defaultAnthropicModel = "claude-3-5-sonnet-latest"
)

// ProviderConfig holds per-provider credentials and model selection.
type ProviderConfig struct {
	// APIKey is the provider API key.
	APIKey string
	// Model is the model identifier.
	Model string
	// BaseURL is the API base URL (empty means default).
	BaseURL string
}

// FactoryConfig holds the parameters needed to create a Client.
// This is defined in the llm package to avoid importing the config package,
// keeping the llm package free of infrastructure dependencies.
type FactoryConfig struct {
	// Provider is the LLM provider name ("openai" or "anthropic").
	Provider string
	// Temperature is the sampling temperature.
	Temperature float64
	// Timeout bounds a single LLM call.
	Timeout time.Duration
	// OpenAI contains OpenAI-specific settings.
	OpenAI ProviderConfig
	// Anthropic contains Anthropic-specific settings.
	Anthropic ProviderConfig
}

// NewModel builds the langchaingo model for the configured provider and
// returns it with the resolved model name.
func NewModel(cfg FactoryConfig) (llms.Model, string, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		model := cfg.OpenAI.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAI.APIKey),
			openai.WithModel(model),
		}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, "", fmt.Errorf("create openai client: %w", err)
		}
		return m, model, nil

	case ProviderAnthropic:
		model := cfg.Anthropic.Model
		if model == "" {
			model = defaultAnthropicModel
		}
		opts := []anthropic.Option{
			anthropic.WithToken(cfg.Anthropic.APIKey),
			anthropic.WithModel(model),
		}
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		m, err := anthropic.New(opts...)
		if err != nil {
			return nil, "", fmt.Errorf("create anthropic client: %w", err)
		}
		return m, model, nil

	default:
		return nil, "", fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// New creates a Client for the configured provider.
func New(cfg FactoryConfig, opts ...Option) (*Client, error) {
	model, name, err := NewModel(cfg)
	if err != nil {
		return nil, err
	}
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}
	return NewClient(model, provider, name, cfg.Temperature, cfg.Timeout, opts...), nil
}
