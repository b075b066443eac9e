package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/invopop/jsonschema"
)

type ClaudeConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	// BaseURL overrides the API endpoint; empty means the SDK default.
	BaseURL string
}

type ClaudeClient struct {
	client      anthropic.Client
	model       string
	temperature float64
}

func NewClaudeClient(cfg ClaudeConfig) *ClaudeClient {
	if cfg.Model == "" {
		cfg.Model = "claude-3-sonnet-20240229"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &ClaudeClient{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (c *ClaudeClient) Name() string {
	return "anthropic"
}

func (c *ClaudeClient) Generate(ctx context.Context, messages []Message) (string, error) {
	system, conversation := splitSystem(messages)

	anthropicMessages := make([]anthropic.MessageParam, 0, len(conversation))
	for _, msg := range conversation {
		role := anthropic.MessageParamRoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}

		anthropicMessages = append(anthropicMessages, anthropic.MessageParam{
			Role: role,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(msg.Content),
			},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		Messages:    anthropicMessages,
		Temperature: anthropic.Float(c.temperature),
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", newProviderError(c.Name(), "Claude API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return text, nil
}

func (c *ClaudeClient) GenerateStructured(ctx context.Context, messages []Message, _ *jsonschema.Schema) (map[string]any, error) {
	return generateJSON(ctx, c.Name(), messages, c.Generate)
}

func (c *ClaudeClient) String() string {
	return fmt.Sprintf("anthropic/%s", c.model)
}
