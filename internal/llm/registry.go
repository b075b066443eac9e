package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/huythanhnguyen/ai-agent/config"
	"github.com/rs/zerolog"
)

// Registry maps provider names to adapters. It is built once at startup and
// is read-only afterwards, so it can be shared across requests.
type Registry struct {
	providers   map[string]Provider
	names       []string
	defaultName string
}

// NewRegistry registers providers in the given order. When defaultName is not
// registered the first provider becomes the default.
func NewRegistry(defaultName string, providers ...Provider) (*Registry, error) {
	if len(providers) == 0 {
		return nil, &ConfigurationError{Msg: "no LLM providers configured"}
	}

	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		name := p.Name()
		if _, dup := r.providers[name]; dup {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("provider %s registered twice", name)}
		}
		r.providers[name] = p
		r.names = append(r.names, name)
	}

	r.defaultName = defaultName
	if _, ok := r.providers[defaultName]; !ok {
		r.defaultName = r.names[0]
	}

	return r, nil
}

// NewRegistryFromConfig builds an adapter for every enabled provider.
func NewRegistryFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Registry, error) {
	var providers []Provider

	for _, name := range cfg.EnabledProviders() {
		switch name {
		case config.ProviderOpenAI:
			p := NewOpenAIClient(OpenAIConfig{
				BaseURL:     cfg.OpenAIBaseURL,
				APIKey:      cfg.OpenAIAPIKey,
				Model:       cfg.OpenAIModel,
				Temperature: cfg.OpenAITemperature,
			})
			logger.Info().Str("provider", p.String()).Msg("LLM provider initialized")
			providers = append(providers, p)
		case config.ProviderAnthropic:
			p := NewClaudeClient(ClaudeConfig{
				APIKey:      cfg.AnthropicAPIKey,
				Model:       cfg.AnthropicModel,
				Temperature: cfg.AnthropicTemperature,
			})
			logger.Info().Str("provider", p.String()).Msg("LLM provider initialized")
			providers = append(providers, p)
		case config.ProviderGoogle:
			p, err := NewGeminiClient(ctx, GeminiConfig{
				APIKey:      cfg.GoogleAPIKey,
				Model:       cfg.GoogleModel,
				Temperature: cfg.GoogleTemperature,
			})
			if err != nil {
				return nil, &ConfigurationError{Msg: err.Error()}
			}
			logger.Info().Str("provider", p.String()).Msg("LLM provider initialized")
			providers = append(providers, p)
		case config.ProviderOllama:
			p := NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel, cfg.OllamaTemperature)
			if !p.IsAvailable(ctx) {
				logger.Warn().Str("url", cfg.OllamaURL).Msg("Ollama not reachable, registering anyway")
			}
			logger.Info().Str("provider", p.String()).Msg("LLM provider initialized")
			providers = append(providers, p)
		}
	}

	r, err := NewRegistry(cfg.DefaultProvider, providers...)
	if err != nil {
		return nil, err
	}

	if r.DefaultName() != cfg.DefaultProvider {
		logger.Warn().
			Str("configured", cfg.DefaultProvider).
			Str("using", r.DefaultName()).
			Msg("default LLM provider not enabled, substituting")
	}
	logger.Info().
		Str("default", r.DefaultName()).
		Str("providers", strings.Join(r.Names(), ",")).
		Msg("LLM registry ready")

	return r, nil
}

// Resolve returns the named provider, or the default when name is empty.
func (r *Registry) Resolve(name string) (Provider, string, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, "", &ConfigurationError{Msg: fmt.Sprintf("provider %s not configured", name)}
	}
	return p, name, nil
}

func (r *Registry) Default() Provider {
	return r.providers[r.defaultName]
}

func (r *Registry) DefaultName() string {
	return r.defaultName
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
