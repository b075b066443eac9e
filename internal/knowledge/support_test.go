package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huythanhnguyen/ai-agent/internal/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSupportBase_Default(t *testing.T) {
	b, err := LoadSupportBase("", nil, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	assert.Greater(t, b.Len(), 0)

	info := b.Lookup(context.Background(), "I want a REFUND for my order")
	require.NotNil(t, info)
	assert.Equal(t, "returns", info.Articles[0].ID)
	assert.Equal(t, "1900 1234", info.Hotline)
}

func TestSupportBase_Lookup(t *testing.T) {
	data := []byte(`
hotline: "1900 0000"
articles:
  - id: a
    title: A
    keywords: [Alpha]
    content: first
  - id: b
    title: B
    keywords: [beta, gamma]
    content: second
`)
	store := cache.NewMemoryStore()
	b, err := ParseSupportBase(data, store, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	info := b.Lookup(ctx, "alpha and gamma")
	require.NotNil(t, info)
	require.Len(t, info.Articles, 2)
	assert.Equal(t, "a", info.Articles[0].ID)
	assert.Equal(t, "b", info.Articles[1].ID)
	assert.Equal(t, 1, store.Len())

	cached := b.Lookup(ctx, "  ALPHA AND GAMMA ")
	require.NotNil(t, cached)
	assert.Equal(t, "second", cached.Articles[1].Content)
	assert.Equal(t, 1, store.Len())

	assert.Nil(t, b.Lookup(ctx, "delta"))
	assert.Nil(t, b.Lookup(ctx, "   "))
}

func TestLoadSupportBase_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("articles:\n  - id: x\n    keywords: [x]\n"), 0o644))

	b, err := LoadSupportBase(path, nil, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())

	_, err = LoadSupportBase(filepath.Join(t.TempDir(), "missing.yaml"), nil, time.Hour, zerolog.Nop())
	assert.Error(t, err)

	_, err = ParseSupportBase([]byte("articles: [::"), nil, time.Hour, zerolog.Nop())
	assert.Error(t, err)
}

func TestInteractionLog_Record(t *testing.T) {
	store := cache.NewMemoryStore()
	l := NewInteractionLog(store, time.Hour, zerolog.Nop())
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	ctx := context.Background()

	err := l.Record(ctx, Interaction{
		SessionID: "s1",
		Type:      InteractionFeedback,
		Data:      map[string]any{"rating": 5},
		Timestamp: at,
	})
	require.NoError(t, err)

	var got Interaction
	found, err := cache.GetJSON(ctx, store, InteractionKey("s1", at), &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, InteractionFeedback, got.Type)
	assert.Equal(t, float64(5), got.Data["rating"])
	assert.Equal(t, "interaction:s1:1714550400000", InteractionKey("s1", at))
}
