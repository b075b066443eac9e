package llm

import (
	"context"
	"encoding/json"
	"strings"
)

const jsonOnlyInstruction = "You must respond with valid JSON only, no other text."

type completeFunc func(ctx context.Context, messages []Message) (string, error)

// generateJSON asks the backend for JSON-only output and parses the answer.
// The caller's slice is never modified.
func generateJSON(ctx context.Context, provider string, messages []Message, complete completeFunc) (map[string]any, error) {
	withInstruction := make([]Message, 0, len(messages)+1)
	withInstruction = append(withInstruction, messages...)
	withInstruction = append(withInstruction, Message{Role: RoleSystem, Content: jsonOnlyInstruction})

	raw, err := complete(ctx, withInstruction)
	if err != nil {
		return nil, asProviderError(provider, err)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		return nil, newProviderError(provider, "invalid JSON response: %w", err)
	}
	if out == nil {
		return nil, newProviderError(provider, "empty JSON response")
	}
	return out, nil
}

// stripCodeFence removes one leading ```json fence and one trailing ```
// fence around a model answer. A bare ``` opening fence is stripped as well:
// some models omit the language tag, and a fenced answer is never valid JSON
// as it stands, so accepting it only widens what parses.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// splitSystem separates system messages from the conversation for backends
// that take the system prompt as a separate parameter.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
