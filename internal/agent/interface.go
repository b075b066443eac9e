package agent

import (
	"context"

	"github.com/huythanhnguyen/ai-agent/pkg/models"
)

// ChatAgent answers one chat message. It never fails: errors become an
// apology reply.
type ChatAgent interface {
	Process(ctx context.Context, req Request) models.AgentResponse
}

type Request struct {
	Message   string
	SessionID string
	UserID    string
	// Provider optionally names the LLM provider to use instead of the
	// default.
	Provider  string
	RequestID string
}
