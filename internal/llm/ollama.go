package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/invopop/jsonschema"
)

type OllamaClient struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

func NewOllamaClient(baseURL, model string, temperature float64) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "qwen2.5:7b"
	}

	return &OllamaClient{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *OllamaClient) Name() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (c *OllamaClient) Generate(ctx context.Context, messages []Message) (string, error) {
	return c.chat(ctx, messages, nil)
}

// GenerateStructured passes the schema as Ollama's structured output format.
func (c *OllamaClient) GenerateStructured(ctx context.Context, messages []Message, schema *jsonschema.Schema) (map[string]any, error) {
	var format any = "json"
	if schema != nil {
		format = schema
	}
	return generateJSON(ctx, c.Name(), messages, func(ctx context.Context, msgs []Message) (string, error) {
		return c.chat(ctx, msgs, format)
	})
}

func (c *OllamaClient) chat(ctx context.Context, messages []Message, format any) (string, error) {
	ollamaMessages := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		ollamaMessages = append(ollamaMessages, ollamaMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	reqBody := ollamaChatRequest{
		Model:    c.model,
		Messages: ollamaMessages,
		Stream:   false,
		Format:   format,
		Options:  map[string]any{"temperature": c.temperature},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", newProviderError(c.Name(), "failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", newProviderError(c.Name(), "failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newProviderError(c.Name(), "ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", newProviderError(c.Name(), "ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var ollamaResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", newProviderError(c.Name(), "failed to decode response: %w", err)
	}

	return ollamaResp.Message.Content, nil
}

func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (c *OllamaClient) String() string {
	return fmt.Sprintf("ollama/%s", c.model)
}
