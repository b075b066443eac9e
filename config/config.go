package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/credentials"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// ProviderOrder is the registration order of the LLM providers. The first
// enabled one stands in when the configured default is not registered.
var ProviderOrder = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOllama}

type Config struct {
	// API
	Host           string `envconfig:"API_HOST" default:"0.0.0.0"`
	Port           int    `envconfig:"API_PORT" default:"5000"`
	Version        string `envconfig:"API_VERSION" default:"1.0.0"`
	APIKeyRequired bool   `envconfig:"REQUIRE_API_KEY" default:"false"`
	APIKeys        string `envconfig:"API_KEYS"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string `envconfig:"LOG_FORMAT" default:"console"`

	// Agent
	MaxConversationTurns int           `envconfig:"MAX_CONVERSATION_TURNS" default:"10"`
	ToolTimeout          time.Duration `envconfig:"TOOL_TIMEOUT" default:"10s"`
	LLMTimeout           time.Duration `envconfig:"LLM_TIMEOUT" default:"15s"`

	// LLM providers
	DefaultProvider string `envconfig:"DEFAULT_LLM_PROVIDER" default:"openai"`
	EnableOpenAI    bool   `envconfig:"ENABLE_OPENAI" default:"true"`
	EnableAnthropic bool   `envconfig:"ENABLE_ANTHROPIC" default:"false"`
	EnableGoogle    bool   `envconfig:"ENABLE_GOOGLE" default:"false"`
	EnableOllama    bool   `envconfig:"ENABLE_OLLAMA" default:"false"`

	OpenAIAPIKey      string  `envconfig:"OPENAI_API_KEY"`
	OpenAIModel       string  `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo"`
	OpenAIBaseURL     string  `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAITemperature float64 `envconfig:"OPENAI_TEMPERATURE" default:"0.3"`

	AnthropicAPIKey      string  `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel       string  `envconfig:"ANTHROPIC_MODEL" default:"claude-3-sonnet-20240229"`
	AnthropicTemperature float64 `envconfig:"ANTHROPIC_TEMPERATURE" default:"0.3"`

	GoogleAPIKey      string  `envconfig:"GOOGLE_API_KEY"`
	GoogleModel       string  `envconfig:"GOOGLE_MODEL" default:"gemini-pro"`
	GoogleTemperature float64 `envconfig:"GOOGLE_TEMPERATURE" default:"0.3"`

	OllamaURL         string  `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OllamaModel       string  `envconfig:"OLLAMA_MODEL" default:"qwen2.5:7b"`
	OllamaTemperature float64 `envconfig:"OLLAMA_TEMPERATURE" default:"0.3"`

	// Cache
	CacheBackend     string        `envconfig:"CACHE_BACKEND" default:"redis"`
	RedisHost        string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort        int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword    string        `envconfig:"REDIS_PASSWORD"`
	RedisIntentDB    int           `envconfig:"REDIS_INTENT_DB" default:"0"`
	RedisToolDB      int           `envconfig:"REDIS_TOOL_DB" default:"1"`
	RedisKnowledgeDB int           `envconfig:"REDIS_KNOWLEDGE_DB" default:"2"`
	IntentCacheTTL   time.Duration `envconfig:"INTENT_CACHE_TTL" default:"1h"`
	ProductCacheTTL  time.Duration `envconfig:"PRODUCT_CACHE_TTL" default:"30m"`
	OrderCacheTTL    time.Duration `envconfig:"ORDER_CACHE_TTL" default:"5m"`
	CustomerCacheTTL time.Duration `envconfig:"CUSTOMER_CACHE_TTL" default:"10m"`
	CDPCacheTTL      time.Duration `envconfig:"CDP_CACHE_TTL" default:"10m"`
	SupportCacheTTL  time.Duration `envconfig:"SUPPORT_CACHE_TTL" default:"24h"`
	CategoryCacheTTL time.Duration `envconfig:"CATEGORY_CACHE_TTL" default:"24h"`
	ConversationTTL  time.Duration `envconfig:"CONVERSATION_TTL" default:"24h"`
	InteractionTTL   time.Duration `envconfig:"INTERACTION_TTL" default:"168h"`

	// Commerce tools
	SearchAPIURL   string `envconfig:"SEARCH_API_URL" default:"https://megamarket.vn/graphql"`
	OrderAPIURL    string `envconfig:"ORDER_API_URL" default:"https://megamarket.vn/api/orders"`
	CustomerAPIURL string `envconfig:"CUSTOMER_API_URL" default:"https://megamarket.vn/api/customers"`
	CategoryAPIURL string `envconfig:"CATEGORY_API_URL" default:"https://megamarket.vn/api/categories"`
	CDPAPIURL      string `envconfig:"CDP_API_URL" default:"https://cdp.megamarket.vn/api"`
	MagentoToken   string `envconfig:"MAGENTO_API_TOKEN"`
	StoreCode      string `envconfig:"STORE_CODE" default:"default"`
	CDPAPIKey      string `envconfig:"CDP_API_KEY"`

	// Knowledge
	MaxHistoryMessages int    `envconfig:"MAX_HISTORY_MESSAGES" default:"20"`
	SupportKBPath      string `envconfig:"SUPPORT_KB_PATH"`
}

// Load reads an optional .env file, then the environment, then fills missing
// secrets from the OS keychain.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.OpenAIAPIKey = credentials.GetOrEnv(credentials.KeyOpenAI, cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = credentials.GetOrEnv(credentials.KeyAnthropic, cfg.AnthropicAPIKey)
	cfg.GoogleAPIKey = credentials.GetOrEnv(credentials.KeyGoogle, cfg.GoogleAPIKey)
	cfg.MagentoToken = credentials.GetOrEnv(credentials.KeyMagentoToken, cfg.MagentoToken)
	cfg.CDPAPIKey = credentials.GetOrEnv(credentials.KeyCDP, cfg.CDPAPIKey)

	return &cfg, nil
}

// EnabledProviders returns the enabled provider names in registration order.
func (c *Config) EnabledProviders() []string {
	enabled := map[string]bool{
		ProviderOpenAI:    c.EnableOpenAI,
		ProviderAnthropic: c.EnableAnthropic,
		ProviderGoogle:    c.EnableGoogle,
		ProviderOllama:    c.EnableOllama,
	}
	var names []string
	for _, name := range ProviderOrder {
		if enabled[name] {
			names = append(names, name)
		}
	}
	return names
}

func (c *Config) Validate() error {
	if len(c.EnabledProviders()) == 0 {
		return fmt.Errorf("no LLM providers enabled: set ENABLE_OPENAI, ENABLE_ANTHROPIC, ENABLE_GOOGLE or ENABLE_OLLAMA")
	}
	if c.EnableOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when ENABLE_OPENAI=true")
	}
	if c.EnableAnthropic && c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when ENABLE_ANTHROPIC=true")
	}
	if c.EnableGoogle && c.GoogleAPIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required when ENABLE_GOOGLE=true")
	}
	switch c.CacheBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (valid: redis, memory)", c.CacheBackend)
	}
	return nil
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func (c *Config) GetAPIKeys() map[string]bool {
	keys := make(map[string]bool)
	if c.APIKeys == "" {
		return keys
	}
	for _, key := range strings.Split(c.APIKeys, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			keys[key] = true
		}
	}
	return keys
}

func (c *Config) ValidateAPIKey(key string) bool {
	if !c.APIKeyRequired {
		return true
	}
	keys := c.GetAPIKeys()
	if len(keys) == 0 {
		return true
	}
	return keys[key]
}
