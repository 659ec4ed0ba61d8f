package conversation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"file":  NewFileStore(t.TempDir()),
		"redis": rs,
	}
}

func newHistory(store Store) *History {
	h := NewHistory(store)
	h.now = func() time.Time { return fixedNow }
	return h
}

func TestHistory_SeedsOnFirstUse(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, found, err := store.Load(ctx)
			require.NoError(t, err)
			assert.False(t, found)

			h := newHistory(store)
			list, err := h.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "sample-invoice-review", list[0].ID)
			assert.Equal(t, "sample-contract-renewal", list[1].ID)

			persisted, found, err := store.Load(ctx)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Len(t, persisted, 2)
		})
	}
}

func TestHistory_DoesNotReseedEmptyHistory(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, []Conversation{}))

			list, err := newHistory(store).List(ctx)
			require.NoError(t, err)
			assert.NotNil(t, list)
			assert.Empty(t, list)
		})
	}
}

func TestHistory_CreateAppendDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := newHistory(store)

			c, err := h.Create(ctx, "  Vendor onboarding  ")
			require.NoError(t, err)
			assert.Equal(t, "Vendor onboarding", c.Title)
			assert.Equal(t, fixedNow, c.CreatedAt)

			list, err := h.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, c.ID, list[0].ID)

			// Appending to an older conversation moves it to the front.
			updated, err := h.AppendMessage(ctx, "sample-contract-renewal", Message{Role: RoleUser, Content: "What is the notice period?"})
			require.NoError(t, err)
			require.Len(t, updated.Messages, 3)
			assert.Equal(t, fixedNow, updated.Messages[2].Timestamp)

			list, err = h.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, "sample-contract-renewal", list[0].ID)
			assert.Equal(t, c.ID, list[1].ID)

			got, err := h.Get(ctx, "sample-contract-renewal")
			require.NoError(t, err)
			assert.Len(t, got.Messages, 3)

			require.NoError(t, h.Delete(ctx, c.ID))
			require.NoError(t, h.Delete(ctx, c.ID))
			_, err = h.Get(ctx, c.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			list, err = h.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 2)
		})
	}
}

func TestHistory_CreateDefaultsTitle(t *testing.T) {
	h := newHistory(NewFileStore(t.TempDir()))
	c, err := h.Create(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "New conversation", c.Title)
	assert.NotNil(t, c.Messages)
}

func TestHistory_AppendRejects(t *testing.T) {
	ctx := context.Background()
	h := newHistory(NewFileStore(t.TempDir()))

	_, err := h.AppendMessage(ctx, "sample-invoice-review", Message{Role: "system", Content: "hi"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = h.AppendMessage(ctx, "sample-invoice-review", Message{Role: RoleUser, Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = h.AppendMessage(ctx, "missing", Message{Role: RoleUser, Content: "hello"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_UsesFixedKey(t *testing.T) {
	store, mr := newRedisStore(t)
	_, err := newHistory(store).List(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists(Key))
}

func TestFileStore_CorruptFile(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err := newHistory(store).List(context.Background())
	assert.Error(t, err)
}
