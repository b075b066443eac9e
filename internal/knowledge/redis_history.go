package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huythanhnguyen/ai-agent/pkg/models"
	"github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "conversation:"

// RedisHistory stores each session as a Redis list of JSON turns, capped at
// maxTurns and expiring ttl after the last append.
type RedisHistory struct {
	rdb      *redis.Client
	maxTurns int
	ttl      time.Duration
}

func NewRedisHistory(rdb *redis.Client, maxTurns int, ttl time.Duration) *RedisHistory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &RedisHistory{rdb: rdb, maxTurns: maxTurns, ttl: ttl}
}

func historyKey(sessionID string) string {
	return historyKeyPrefix + sessionID
}

func (s *RedisHistory) Get(ctx context.Context, sessionID string) ([]models.Turn, error) {
	raw, err := s.rdb.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	turns := make([]models.Turn, 0, len(raw))
	for _, item := range raw {
		var turn models.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisHistory) Append(ctx context.Context, sessionID string, turn models.Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}

	key := historyKey(sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append history: %w", err)
	}
	return nil
}

func (s *RedisHistory) Clear(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
