package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "intent:abc")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "intent:abc", []byte(`{"type":"general"}`), time.Minute))

	got, err := s.Get(ctx, "intent:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"general"}`, string(got))

	require.NoError(t, s.Delete(ctx, "intent:abc"))
	_, err = s.Get(ctx, "intent:abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "order:1", []byte("x"), 5*time.Minute))

	now = now.Add(4 * time.Minute)
	_, err := s.Get(ctx, "order:1")
	require.NoError(t, err)

	// A hit does not extend the entry's life.
	now = now.Add(time.Minute)
	_, err = s.Get(ctx, "order:1")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	now = now.Add(24 * 365 * time.Hour)

	_, err := s.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestMemoryStore_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	buf := []byte("hello")
	require.NoError(t, s.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'j'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type payload struct {
		Type     string   `json:"type"`
		Keywords []string `json:"keywords"`
	}

	var out payload
	found, err := GetJSON(ctx, s, "intent:x", &out)
	require.NoError(t, err)
	assert.False(t, found)

	in := payload{Type: "product_search", Keywords: []string{"tv", "samsung"}}
	require.NoError(t, SetJSON(ctx, s, "intent:x", in, time.Minute))

	found, err = GetJSON(ctx, s, "intent:x", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)

	require.NoError(t, s.Set(ctx, "intent:bad", []byte("{"), time.Minute))
	_, err = GetJSON(ctx, s, "intent:bad", &out)
	assert.Error(t, err)
}
