package intent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/cache"
	"github.com/huythanhnguyen/ai-agent/internal/llm"
	"github.com/huythanhnguyen/ai-agent/internal/metrics"
	"github.com/huythanhnguyen/ai-agent/pkg/models"
	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
)

const (
	CacheKeyPrefix = "intent:"
	DefaultTTL     = time.Hour
)

// StructuredGenerator is the part of the generation layer the classifier
// needs. *llm.Orchestrator satisfies it.
type StructuredGenerator interface {
	GenerateStructuredResponse(ctx context.Context, prompt string, schema *jsonschema.Schema, opts ...llm.CallOption) (map[string]any, error)
}

type Classifier struct {
	generator StructuredGenerator
	store     cache.Store
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewClassifier returns a classifier caching results in store for ttl. A nil
// store disables caching.
func NewClassifier(generator StructuredGenerator, store cache.Store, ttl time.Duration, logger zerolog.Logger) *Classifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Classifier{
		generator: generator,
		store:     store,
		ttl:       ttl,
		logger:    logger.With().Str("component", "intent").Logger(),
	}
}

// CacheKey hashes the case-folded, trimmed message so that messages differing
// only in case or surrounding whitespace share one entry.
func CacheKey(message string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(message))))
	return CacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Classify never fails: cache errors degrade to a miss and any generation or
// decoding failure yields General{Query: message}, which is not cached.
// The result is cached by message alone, so history is not shown to the
// model; a cached intent must not depend on another session's turns.
func (c *Classifier) Classify(ctx context.Context, message string, _ []models.Turn, opts ...llm.CallOption) Intent {
	key := CacheKey(message)

	if in, ok := c.fromCache(ctx, key); ok {
		c.logger.Debug().Str("intent", string(in.Kind())).Msg("intent found in cache")
		metrics.IntentClassifications.WithLabelValues(string(in.Kind())).Inc()
		return in
	}

	raw, err := c.generator.GenerateStructuredResponse(ctx, buildPrompt(message), Schema(), opts...)
	if err != nil {
		c.logger.Error().Err(err).Msg("intent classification failed")
		return c.safeDefault(message)
	}

	in, err := decodeStructured(raw)
	if err != nil {
		c.logger.Warn().Err(err).Msg("unusable intent classification")
		return c.safeDefault(message)
	}
	if g, ok := in.(General); ok && g.Query == "" {
		in = General{Query: message}
	}

	c.toCache(ctx, key, in)
	metrics.IntentClassifications.WithLabelValues(string(in.Kind())).Inc()
	c.logger.Info().Str("intent", String(in)).Msg("intent classified")
	return in
}

func (c *Classifier) safeDefault(message string) Intent {
	metrics.IntentClassifications.WithLabelValues(string(KindGeneral)).Inc()
	return General{Query: message}
}

func (c *Classifier) fromCache(ctx context.Context, key string) (Intent, bool) {
	if c.store == nil {
		return nil, false
	}

	var p Payload
	found, err := cache.GetJSON(ctx, c.store, key, &p)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("intent cache read failed")
		metrics.CacheLookups.WithLabelValues("intent", "error").Inc()
		return nil, false
	}
	if !found {
		metrics.CacheLookups.WithLabelValues("intent", "miss").Inc()
		return nil, false
	}

	in, err := p.Intent()
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding cached intent")
		metrics.CacheLookups.WithLabelValues("intent", "error").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("intent", "hit").Inc()
	return in, true
}

func (c *Classifier) toCache(ctx context.Context, key string, in Intent) {
	if c.store == nil {
		return
	}
	if err := cache.SetJSON(ctx, c.store, key, ToPayload(in), c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("intent cache write failed")
	}
}

func buildPrompt(message string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the intent of the following user message: %q\n\n", message)
	b.WriteString(`Return the result as JSON with one of these shapes:

1. The user is looking for products:
{"type": "product_search", "keywords": ["keyword 1", "keyword 2"]}

2. The user asks about the status of an order:
{"type": "order_status", "order_id": "the order number if given"}

3. The user needs customer support:
{"type": "customer_support", "issue": "the problem to help with"}

4. Any other question:
{"type": "general", "query": "the question"}`)

	return b.String()
}
