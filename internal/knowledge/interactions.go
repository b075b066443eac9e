package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/cache"
	"github.com/rs/zerolog"
)

const (
	InteractionChat     = "chat"
	InteractionFeedback = "feedback"
)

type Interaction struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// InteractionLog writes user interactions to the knowledge store for later
// analysis. Entries expire after ttl.
type InteractionLog struct {
	store  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

func NewInteractionLog(store cache.Store, ttl time.Duration, logger zerolog.Logger) *InteractionLog {
	return &InteractionLog{
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "interactions").Logger(),
		now:    time.Now,
	}
}

func InteractionKey(sessionID string, at time.Time) string {
	return fmt.Sprintf("interaction:%s:%d", sessionID, at.UnixMilli())
}

func (l *InteractionLog) Record(ctx context.Context, in Interaction) error {
	if in.Timestamp.IsZero() {
		in.Timestamp = l.now()
	}

	l.logger.Info().
		Str("session_id", in.SessionID).
		Str("type", in.Type).
		Msg("user interaction")

	if err := cache.SetJSON(ctx, l.store, InteractionKey(in.SessionID, in.Timestamp), in, l.ttl); err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}
