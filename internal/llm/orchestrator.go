package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/metrics"
	"github.com/huythanhnguyen/ai-agent/pkg/models"
	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
)

const DefaultHistoryWindow = 10

type OrchestratorConfig struct {
	// HistoryWindow is the number of most recent turns sent with a query.
	HistoryWindow int
	// CallTimeout bounds a single provider call. Zero means no timeout.
	CallTimeout time.Duration
}

// Orchestrator is the single entry point for text generation. It picks the
// provider, assembles the prompt and applies the fallback policy: a failed
// call on an explicitly requested non-default provider is retried once on
// the default provider, never more.
type Orchestrator struct {
	registry      *Registry
	logger        zerolog.Logger
	historyWindow int
	callTimeout   time.Duration
}

func NewOrchestrator(registry *Registry, cfg OrchestratorConfig, logger zerolog.Logger) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	return &Orchestrator{
		registry:      registry,
		logger:        logger.With().Str("component", "llm").Logger(),
		historyWindow: cfg.HistoryWindow,
		callTimeout:   cfg.CallTimeout,
	}
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

type callOptions struct {
	provider     string
	systemPrompt string
}

type CallOption func(*callOptions)

// WithProvider requests a provider by name instead of the default.
func WithProvider(name string) CallOption {
	return func(c *callOptions) {
		c.provider = name
	}
}

func WithSystemPrompt(prompt string) CallOption {
	return func(c *callOptions) {
		c.systemPrompt = prompt
	}
}

func applyOptions(opts []CallOption) callOptions {
	var c callOptions
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// GenerateResponse answers query in the context of the conversation history.
// Provider failures end in ApologyMessage; the only error returned is a
// *ConfigurationError for an unknown provider name.
func (o *Orchestrator) GenerateResponse(ctx context.Context, query string, history []models.Turn, opts ...CallOption) (string, error) {
	c := applyOptions(opts)
	system := c.systemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	messages := BuildMessages(system, history, query, o.historyWindow)

	text, err := attempt(ctx, o, "generate", c.provider, func(ctx context.Context, p Provider) (string, error) {
		return p.Generate(ctx, messages)
	})
	if err != nil {
		if IsConfigurationError(err) {
			return "", err
		}
		o.logger.Error().Err(err).Msg("text generation failed, returning apology")
		return ApologyMessage, nil
	}
	return text, nil
}

// GenerateStructuredResponse extracts a JSON object described by schema from
// prompt. When every attempt fails the result is StructuralDefault(schema).
func (o *Orchestrator) GenerateStructuredResponse(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...CallOption) (map[string]any, error) {
	c := applyOptions(opts)

	rendered := "{}"
	if schema != nil {
		s, err := renderJSON(schema)
		if err != nil {
			o.logger.Warn().Err(err).Msg("failed to render schema")
		} else {
			rendered = s
		}
	}

	messages := []Message{
		{Role: RoleSystem, Content: StructuredSystemPrompt},
		{Role: RoleUser, Content: prompt + "\n\nOutput must follow this JSON schema:\n" + rendered},
	}

	out, err := attempt(ctx, o, "generate_structured", c.provider, func(ctx context.Context, p Provider) (map[string]any, error) {
		return p.GenerateStructured(ctx, messages, schema)
	})
	if err != nil {
		if IsConfigurationError(err) {
			return nil, err
		}
		o.logger.Error().Err(err).Msg("structured generation failed, returning structural default")
		return StructuralDefault(schema), nil
	}
	return out, nil
}

// GenerateSupportResponse answers a customer support question, grounding the
// answer on supportInfo when it is not nil.
func (o *Orchestrator) GenerateSupportResponse(ctx context.Context, query string, supportInfo any, opts ...CallOption) (string, error) {
	prompt := query
	if supportInfo != nil {
		data, err := renderJSON(supportInfo)
		if err != nil {
			o.logger.Warn().Err(err).Msg("failed to encode support information")
		} else {
			prompt = fmt.Sprintf("User asks: %s\n\nSupport information: %s\n\nAnswer based on the information above.", query, data)
		}
	}

	opts = append([]CallOption{WithSystemPrompt(SupportSystemPrompt)}, opts...)
	return o.GenerateResponse(ctx, prompt, nil, opts...)
}

// BuildMessages lays out the system prompt, the last window turns of history
// in chronological order and the query as the final user message.
func BuildMessages(system string, history []models.Turn, query string, window int) []Message {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]Message, 0, 2*len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	for _, turn := range history {
		if turn.UserMessage != "" {
			messages = append(messages, Message{Role: RoleUser, Content: turn.UserMessage})
		}
		if turn.AgentMessage != "" {
			messages = append(messages, Message{Role: RoleAssistant, Content: turn.AgentMessage})
		}
	}
	messages = append(messages, Message{Role: RoleUser, Content: query})
	return messages
}

// attempt runs call on the requested provider and, if that provider is not
// the default and fails, once more on the default provider.
func attempt[T any](ctx context.Context, o *Orchestrator, op, requested string, call func(context.Context, Provider) (T, error)) (T, error) {
	var zero T

	p, name, err := o.registry.Resolve(requested)
	if err != nil {
		return zero, err
	}

	out, err := invoke(ctx, o, op, p, call)
	if err == nil {
		return out, nil
	}

	defaultName := o.registry.DefaultName()
	if requested == "" || name == defaultName {
		return zero, err
	}

	o.logger.Warn().
		Err(err).
		Str("provider", name).
		Str("fallback", defaultName).
		Str("op", op).
		Msg("provider failed, retrying on default")
	metrics.ProviderFallbacks.WithLabelValues(name, defaultName).Inc()

	out, err = invoke(ctx, o, op, o.registry.Default(), call)
	if err != nil {
		return zero, err
	}
	return out, nil
}

func invoke[T any](ctx context.Context, o *Orchestrator, op string, p Provider, call func(context.Context, Provider) (T, error)) (T, error) {
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := call(ctx, p)
	metrics.ProviderLatency.WithLabelValues(p.Name(), op).Observe(time.Since(start).Seconds())
	metrics.ProviderCalls.WithLabelValues(p.Name(), op, metrics.Outcome(err)).Inc()

	if err != nil {
		var zero T
		return zero, asProviderError(p.Name(), err)
	}

	o.logger.Debug().
		Str("provider", p.Name()).
		Str("op", op).
		Dur("duration", time.Since(start)).
		Msg("provider call completed")
	return out, nil
}
