// Package knowledge holds conversation history, the support knowledge base
// and the interaction log.
package knowledge

import (
	"context"
	"sync"
	"time"

	"github.com/huythanhnguyen/ai-agent/pkg/models"
)

const DefaultMaxTurns = 20

// HistoryStore keeps the turns of each chat session in chronological order.
type HistoryStore interface {
	Get(ctx context.Context, sessionID string) ([]models.Turn, error)
	Append(ctx context.Context, sessionID string, turn models.Turn) error
	Clear(ctx context.Context, sessionID string) error
}

type Conversation struct {
	ID        string        `json:"id"`
	Turns     []models.Turn `json:"turns"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// MemoryHistory is an in-process HistoryStore. Each session keeps at most
// maxTurns turns; older ones are dropped first.
type MemoryHistory struct {
	conversations map[string]*Conversation
	maxTurns      int
	mu            sync.RWMutex
	now           func() time.Time
}

func NewMemoryHistory(maxTurns int) *MemoryHistory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &MemoryHistory{
		conversations: make(map[string]*Conversation),
		maxTurns:      maxTurns,
		now:           time.Now,
	}
}

func (s *MemoryHistory) Get(_ context.Context, sessionID string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil, nil
	}
	out := make([]models.Turn, len(conv.Turns))
	copy(out, conv.Turns)
	return out, nil
}

func (s *MemoryHistory) Append(_ context.Context, sessionID string, turn models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = &Conversation{
			ID:        sessionID,
			Turns:     make([]models.Turn, 0, 1),
			CreatedAt: now,
		}
		s.conversations[sessionID] = conv
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = now
	}

	conv.Turns = append(conv.Turns, turn)
	if extra := len(conv.Turns) - s.maxTurns; extra > 0 {
		conv.Turns = append([]models.Turn(nil), conv.Turns[extra:]...)
	}
	conv.UpdatedAt = now
	return nil
}

func (s *MemoryHistory) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, sessionID)
	return nil
}

func (s *MemoryHistory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Cleanup drops sessions idle for longer than maxAge.
func (s *MemoryHistory) Cleanup(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := s.now().Add(-maxAge)
	for id, conv := range s.conversations {
		if conv.UpdatedAt.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *MemoryHistory) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup(maxAge)
		}
	}
}
