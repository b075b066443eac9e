package intent

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/cache"
	"github.com/huythanhnguyen/ai-agent/internal/llm"
	"github.com/huythanhnguyen/ai-agent/pkg/models"
	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	out     map[string]any
	err     error
	calls   int
	prompts []string
}

func (f *fakeGenerator) GenerateStructuredResponse(_ context.Context, prompt string, _ *jsonschema.Schema, _ ...llm.CallOption) (map[string]any, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.out, f.err
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestCacheKey_Normalization(t *testing.T) {
	k := CacheKey("Hello")
	assert.Equal(t, k, CacheKey(" hello "))
	assert.Equal(t, k, CacheKey("HELLO"))
	assert.Equal(t, k, CacheKey("\thello\n"))
	assert.NotEqual(t, k, CacheKey("hello there"))
	assert.Regexp(t, `^intent:[0-9a-f]{64}$`, k)
}

func TestClassify_CachesAcrossNormalizedMessages(t *testing.T) {
	gen := &fakeGenerator{out: map[string]any{"type": "general", "query": "hello"}}
	store := cache.NewMemoryStore()
	c := NewClassifier(gen, store, time.Hour, zerolog.Nop())
	ctx := context.Background()

	first := c.Classify(ctx, "Hello", nil)
	second := c.Classify(ctx, " hello ", nil)
	third := c.Classify(ctx, "HELLO", nil)

	assert.Equal(t, General{Query: "hello"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, store.Len())
}

func TestClassify_Idempotent(t *testing.T) {
	gen := &fakeGenerator{out: map[string]any{"type": "product_search", "keywords": []any{"sữa", "bánh mì"}}}
	c := NewClassifier(gen, cache.NewMemoryStore(), time.Hour, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		in := c.Classify(ctx, "find milk and bread", nil)
		assert.Equal(t, ProductSearch{Keywords: []string{"sữa", "bánh mì"}}, in)
	}
	assert.Equal(t, 1, gen.calls)
}

func TestClassify_Variants(t *testing.T) {
	tests := []struct {
		name string
		out  map[string]any
		want Intent
	}{
		{"order with id", map[string]any{"type": "order_status", "order_id": " 100023 "}, OrderStatus{OrderID: "100023"}},
		{"order without id", map[string]any{"type": "order_status"}, OrderStatus{}},
		{"support", map[string]any{"type": "customer_support", "issue": "refund"}, CustomerSupport{Issue: "refund"}},
		{"general without query", map[string]any{"type": "general"}, General{Query: "msg"}},
		{"upper-case type", map[string]any{"type": "ORDER_STATUS", "order_id": "7"}, OrderStatus{OrderID: "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(&fakeGenerator{out: tt.out}, nil, time.Hour, zerolog.Nop())
			assert.Equal(t, tt.want, c.Classify(context.Background(), "msg", nil))
		})
	}
}

func TestClassify_SafeDefault(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"generator error", &fakeGenerator{err: &llm.ConfigurationError{Msg: "no provider"}}},
		{"structural default", &fakeGenerator{out: map[string]any{"type": "", "error": "Could not generate structured response"}}},
		{"unknown type", &fakeGenerator{out: map[string]any{"type": "weather"}}},
		{"wrong field type", &fakeGenerator{out: map[string]any{"type": "product_search", "keywords": "milk"}}},
		{"nil result", &fakeGenerator{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.NewMemoryStore()
			c := NewClassifier(tt.gen, store, time.Hour, zerolog.Nop())

			in := c.Classify(context.Background(), "what is the weather", nil)
			assert.Equal(t, General{Query: "what is the weather"}, in)
			assert.Equal(t, 0, store.Len(), "safe default must not be cached")
		})
	}
}

func TestClassify_SafeDefaultUnderTotalOutage(t *testing.T) {
	reg, err := llm.NewRegistry("openai", failingProvider{"openai"}, failingProvider{"google"})
	require.NoError(t, err)
	o := llm.NewOrchestrator(reg, llm.OrchestratorConfig{}, zerolog.Nop())
	c := NewClassifier(o, cache.NewMemoryStore(), time.Hour, zerolog.Nop())

	in := c.Classify(context.Background(), "what is the weather", nil, llm.WithProvider("google"))
	assert.Equal(t, General{Query: "what is the weather"}, in)
}

func TestClassify_CacheErrorsAreSoft(t *testing.T) {
	gen := &fakeGenerator{out: map[string]any{"type": "customer_support", "issue": "late delivery"}}
	c := NewClassifier(gen, failingStore{}, time.Hour, zerolog.Nop())

	in := c.Classify(context.Background(), "my delivery is late", nil)
	assert.Equal(t, CustomerSupport{Issue: "late delivery"}, in)

	c.Classify(context.Background(), "my delivery is late", nil)
	assert.Equal(t, 2, gen.calls)
}

func TestClassify_CorruptCacheEntry(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, CacheKey("hi"), []byte("not json"), time.Hour))

	gen := &fakeGenerator{out: map[string]any{"type": "general", "query": "hi"}}
	c := NewClassifier(gen, store, time.Hour, zerolog.Nop())

	assert.Equal(t, General{Query: "hi"}, c.Classify(ctx, "hi", nil))
	assert.Equal(t, 1, gen.calls)
}

// orderEchoGenerator reports whatever order number appears in the prompt.
type orderEchoGenerator struct {
	prompts []string
}

var orderNumber = regexp.MustCompile(`ORD-[A-Z]+`)

func (g *orderEchoGenerator) GenerateStructuredResponse(_ context.Context, prompt string, _ *jsonschema.Schema, _ ...llm.CallOption) (map[string]any, error) {
	g.prompts = append(g.prompts, prompt)
	return map[string]any{"type": "order_status", "order_id": orderNumber.FindString(prompt)}, nil
}

func TestClassify_PromptIgnoresHistory(t *testing.T) {
	gen := &orderEchoGenerator{}
	c := NewClassifier(gen, nil, time.Hour, zerolog.Nop())
	ctx := context.Background()

	alice := []models.Turn{{UserMessage: "my order is ORD-ALICE", AgentMessage: "noted"}}
	bob := []models.Turn{{UserMessage: "my order is ORD-BOB", AgentMessage: "noted"}}

	first := c.Classify(ctx, "where is that order?", alice)
	second := c.Classify(ctx, "where is that order?", bob)

	require.Len(t, gen.prompts, 2)
	assert.Equal(t, gen.prompts[0], gen.prompts[1])
	assert.NotContains(t, gen.prompts[0], "ORD-")
	assert.Contains(t, gen.prompts[0], `"where is that order?"`)
	assert.Equal(t, first, second)
}

func TestClassify_CachedIntentDoesNotLeakAcrossSessions(t *testing.T) {
	gen := &orderEchoGenerator{}
	c := NewClassifier(gen, cache.NewMemoryStore(), time.Hour, zerolog.Nop())
	ctx := context.Background()

	alice := []models.Turn{{UserMessage: "my order is ORD-ALICE"}}
	bob := []models.Turn{{UserMessage: "my order is ORD-BOB"}}

	assert.Equal(t, OrderStatus{}, c.Classify(ctx, "where is that order?", alice))
	assert.Equal(t, OrderStatus{}, c.Classify(ctx, "where is that order?", bob))
	assert.Len(t, gen.prompts, 1)
}

type failingProvider struct{ name string }

func (f failingProvider) Name() string { return f.name }

func (f failingProvider) Generate(context.Context, []llm.Message) (string, error) {
	return "", &llm.ProviderError{Provider: f.name, Err: errors.New("down")}
}

func (f failingProvider) GenerateStructured(context.Context, []llm.Message, *jsonschema.Schema) (map[string]any, error) {
	return nil, &llm.ProviderError{Provider: f.name, Err: errors.New("down")}
}
