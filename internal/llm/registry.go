package llm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/GoSim-25-26J-441/codegen-backend/config"
)

const (
	ProviderOpenAI      = "openai"
	ProviderXAI         = "xai"
	ProviderHuggingFace = "huggingface"
	ProviderAnthropic   = "anthropic"
	ProviderGemini      = "gemini"
	ProviderOllama      = "ollama"
)

var defaultModels = map[string]string{
	ProviderOpenAI:      "gpt-4o",
	ProviderXAI:         "grok-beta",
	ProviderHuggingFace: "mistralai/Mistral-7B-Instruct-v0.3",
	ProviderAnthropic:   "claude-sonnet-4-5",
	ProviderGemini:      "gemini-2.0-flash",
	ProviderOllama:      "llama3.1",
}

// Providers lists every provider name the registry can build.
func Providers() []string {
	return []string{ProviderOpenAI, ProviderXAI, ProviderHuggingFace, ProviderAnthropic, ProviderGemini, ProviderOllama}
}

// Registry builds provider clients on first use and caches them.
// Every client it returns is rate limited and instrumented.
type Registry struct {
	cfg config.LLMConfig

	mu      sync.Mutex
	clients map[string]Client
	build   func(provider string) (Client, string, error)
}

func NewRegistry(cfg config.LLMConfig) *Registry {
	r := &Registry{cfg: cfg, clients: make(map[string]Client)}
	r.build = r.newProviderClient
	return r
}

// DefaultProvider is the provider used when a project does not name one.
func (r *Registry) DefaultProvider() string {
	return normalizeProvider(r.cfg.Provider)
}

// Client returns the client for provider, or the default provider when empty.
func (r *Registry) Client(provider string) (Client, error) {
	name := normalizeProvider(provider)
	if name == "" {
		name = r.DefaultProvider()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[name]; ok {
		return c, nil
	}

	inner, model, err := r.build(name)
	if err != nil {
		return nil, err
	}
	c := WithRateLimit(WithMetrics(inner, name, model), name, r.cfg.RequestsPerSec, r.cfg.Burst)
	r.clients[name] = c
	return c, nil
}

// Supports reports whether provider is a known provider name.
func (r *Registry) Supports(provider string) bool {
	_, ok := defaultModels[normalizeProvider(provider)]
	return ok
}

func (r *Registry) options(provider string) Options {
	model := defaultModels[provider]
	if r.cfg.Model != "" && provider == r.DefaultProvider() {
		model = r.cfg.Model
	}
	return Options{Model: model, MaxTokens: r.cfg.MaxTokens, Temperature: r.cfg.Temperature}
}

func (r *Registry) newProviderClient(provider string) (Client, string, error) {
	opts := r.options(provider)
	missing := func(env string) error {
		return &Error{Provider: provider, Type: ErrorTypeAuth, Message: env + " is not set"}
	}

	switch provider {
	case ProviderOpenAI:
		if r.cfg.OpenAIKey == "" {
			return nil, "", missing("OPENAI_API_KEY")
		}
		return NewOpenAIClient(provider, r.cfg.OpenAIKey, "", opts), opts.Model, nil
	case ProviderXAI:
		if r.cfg.XAIKey == "" {
			return nil, "", missing("XAI_API_KEY")
		}
		return NewOpenAIClient(provider, r.cfg.XAIKey, XAIBaseURL, opts), opts.Model, nil
	case ProviderHuggingFace:
		if r.cfg.HuggingFaceKey == "" {
			return nil, "", missing("HUGGINGFACEHUB_API_KEY")
		}
		return NewOpenAIClient(provider, r.cfg.HuggingFaceKey, HuggingFaceBaseURL, opts), opts.Model, nil
	case ProviderAnthropic:
		if r.cfg.AnthropicKey == "" {
			return nil, "", missing("ANTHROPIC_API_KEY")
		}
		return NewAnthropicClient(r.cfg.AnthropicKey, r.cfg.AnthropicBaseURL, opts), opts.Model, nil
	case ProviderGemini:
		if r.cfg.GoogleKey == "" {
			return nil, "", missing("GOOGLE_API_KEY")
		}
		return NewGeminiClient(r.cfg.GoogleKey, r.cfg.GeminiBaseURL, opts), opts.Model, nil
	case ProviderOllama:
		return NewOllamaClient(r.cfg.OllamaURL, opts), opts.Model, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	switch p {
	case "grok":
		return ProviderXAI
	case "google":
		return ProviderGemini
	case "hf":
		return ProviderHuggingFace
	case "claude":
		return ProviderAnthropic
	}
	return p
}
