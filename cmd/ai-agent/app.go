package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/agent"
	"github.com/huythanhnguyen/ai-agent/internal/cache"
	"github.com/huythanhnguyen/ai-agent/internal/commerce"
	"github.com/huythanhnguyen/ai-agent/internal/intent"
	"github.com/huythanhnguyen/ai-agent/internal/knowledge"
	"github.com/huythanhnguyen/ai-agent/internal/llm"
	"github.com/redis/go-redis/v9"
)

const historyCleanupInterval = 10 * time.Minute

// app holds every long-lived component built from the configuration.
type app struct {
	registry    *llm.Registry
	classifier  *intent.Classifier
	support     *knowledge.SupportBase
	coordinator *agent.Coordinator
	closers     []io.Closer
}

type stores struct {
	intent    cache.Store
	tool      cache.Store
	knowledge cache.Store
	history   knowledge.HistoryStore
	closers   []io.Closer
}

// buildApp wires the agent. Background work such as in-memory history
// cleanup is bound to ctx.
func buildApp(ctx context.Context) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := llm.NewRegistryFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	orchestrator := llm.NewOrchestrator(registry, llm.OrchestratorConfig{
		HistoryWindow: cfg.MaxConversationTurns,
		CallTimeout:   cfg.LLMTimeout,
	}, logger)

	st := openStores(ctx)

	classifier := intent.NewClassifier(orchestrator, st.intent, cfg.IntentCacheTTL, logger)
	tools := commerce.NewClient(commerce.ConfigFrom(cfg), st.tool, logger)

	support, err := knowledge.LoadSupportBase(cfg.SupportKBPath, st.knowledge, cfg.SupportCacheTTL, logger)
	if err != nil {
		closeAll(st.closers)
		return nil, err
	}
	logger.Info().Int("articles", support.Len()).Msg("support knowledge base loaded")

	interactions := knowledge.NewInteractionLog(st.knowledge, cfg.InteractionTTL, logger)

	coordinator := agent.NewCoordinator(agent.Deps{
		Classifier:   classifier,
		Generator:    orchestrator,
		Tools:        tools,
		Support:      support,
		History:      st.history,
		Interactions: interactions,
	}, logger)

	return &app{
		registry:    registry,
		classifier:  classifier,
		support:     support,
		coordinator: coordinator,
		closers:     st.closers,
	}, nil
}

// openStores connects one Redis database per concern. When the backend is
// memory, or Redis does not answer, every concern gets an in-process store.
func openStores(ctx context.Context) stores {
	if cfg.CacheBackend == "redis" {
		st, err := openRedisStores(ctx)
		if err == nil {
			return st
		}
		logger.Warn().Err(err).Msg("redis unavailable, falling back to in-memory cache")
	}

	history := knowledge.NewMemoryHistory(cfg.MaxHistoryMessages)
	go history.RunCleanup(ctx, historyCleanupInterval, cfg.ConversationTTL)

	logger.Info().Msg("using in-memory cache")
	return stores{
		intent:    cache.NewMemoryStore(),
		tool:      cache.NewMemoryStore(),
		knowledge: cache.NewMemoryStore(),
		history:   history,
	}
}

func openRedisStores(ctx context.Context) (stores, error) {
	var clients []*redis.Client
	open := func(db int) (*redis.Client, error) {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       db,
		})
		clients = append(clients, rdb)
		return rdb, err
	}
	fail := func(err error) (stores, error) {
		for _, c := range clients {
			c.Close()
		}
		return stores{}, err
	}

	intentDB, err := open(cfg.RedisIntentDB)
	if err != nil {
		return fail(err)
	}
	toolDB, err := open(cfg.RedisToolDB)
	if err != nil {
		return fail(err)
	}
	knowledgeDB, err := open(cfg.RedisKnowledgeDB)
	if err != nil {
		return fail(err)
	}

	logger.Info().
		Str("addr", cfg.RedisAddr()).
		Int("intent_db", cfg.RedisIntentDB).
		Int("tool_db", cfg.RedisToolDB).
		Int("knowledge_db", cfg.RedisKnowledgeDB).
		Msg("connected to redis")

	closers := make([]io.Closer, 0, len(clients))
	for _, c := range clients {
		closers = append(closers, c)
	}
	return stores{
		intent:    cache.NewRedisStore(intentDB),
		tool:      cache.NewRedisStore(toolDB),
		knowledge: cache.NewRedisStore(knowledgeDB),
		history:   knowledge.NewRedisHistory(knowledgeDB, cfg.MaxHistoryMessages, cfg.ConversationTTL),
		closers:   closers,
	}, nil
}

func (a *app) Close() {
	closeAll(a.closers)
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Debug().Err(err).Msg("close failed")
		}
	}
}

// checkProviders sends a one-line prompt to every registered provider.
func (a *app) checkProviders(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for _, name := range a.registry.Names() {
		p, _, err := a.registry.Resolve(name)
		if err != nil {
			results[name] = err
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, cfg.LLMTimeout)
		_, err = p.Generate(callCtx, []llm.Message{
			{Role: llm.RoleUser, Content: "Reply with the single word: ok"},
		})
		cancel()
		results[name] = err
	}
	return results
}

func providerLabel(a *app, name string) string {
	if name == a.registry.DefaultName() {
		return fmt.Sprintf("%s (default)", name)
	}
	return name
}
