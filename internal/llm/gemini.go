package llm

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	BaseURL     string
}

type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float64
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-pro"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *GeminiClient) Name() string {
	return "google"
}

func (c *GeminiClient) Generate(ctx context.Context, messages []Message) (string, error) {
	return c.generate(ctx, messages, "")
}

func (c *GeminiClient) GenerateStructured(ctx context.Context, messages []Message, _ *jsonschema.Schema) (map[string]any, error) {
	return generateJSON(ctx, c.Name(), messages, func(ctx context.Context, msgs []Message) (string, error) {
		return c.generate(ctx, msgs, "application/json")
	})
}

func (c *GeminiClient) generate(ctx context.Context, messages []Message, mimeType string) (string, error) {
	system, contents := toGeminiContents(messages)

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(c.temperature)),
		ResponseMIMEType: mimeType,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", newProviderError(c.Name(), "Gemini API error: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", newProviderError(c.Name(), "empty response")
	}
	return text, nil
}

func toGeminiContents(messages []Message) (string, []*genai.Content) {
	system, conversation := splitSystem(messages)

	contents := make([]*genai.Content, 0, len(conversation))
	for _, msg := range conversation {
		role := genai.Role(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return system, contents
}

func (c *GeminiClient) String() string {
	return fmt.Sprintf("google/%s", c.model)
}
