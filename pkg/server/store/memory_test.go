package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var missing doc
	err := s.GetJSON(ctx, "absent", &missing)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutJSON(ctx, "k", doc{Name: "x", Count: 2}))
	var got doc
	require.NoError(t, s.GetJSON(ctx, "k", &got))
	assert.Equal(t, doc{Name: "x", Count: 2}, got)

	require.NoError(t, s.Delete(ctx, "k"))
	require.ErrorIs(t, s.GetJSON(ctx, "k", &got), ErrNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestMemoryStoreReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type doc struct {
		Tags []string `json:"tags"`
	}
	require.NoError(t, s.PutJSON(ctx, "k", doc{Tags: []string{"a"}}))

	var first doc
	require.NoError(t, s.GetJSON(ctx, "k", &first))
	first.Tags[0] = "mutated"

	var second doc
	require.NoError(t, s.GetJSON(ctx, "k", &second))
	assert.Equal(t, []string{"a"}, second.Tags)
}

func TestMemoryStoreListKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.PutJSON(ctx, GameKey("r1"), 1))
	require.NoError(t, s.PutJSON(ctx, GameKey("r2"), 2))
	require.NoError(t, s.PutJSON(ctx, RoomKey("r1"), 3))

	keys, err := s.ListKeys(ctx, "game:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"game:r1", "game:r2"}, keys)
}

func TestLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := GameLockKey("room")

	token, ok, err := s.AcquireLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = s.AcquireLock(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ReleaseLock(ctx, key, token))
	_, ok, err = s.AcquireLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseRequiresOwningToken(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := GameLockKey("room")

	token, ok, err := s.AcquireLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	// A stale holder must not release the current owner's lock.
	require.NoError(t, s.ReleaseLock(ctx, key, "not-the-token"))
	_, ok, err = s.AcquireLock(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ReleaseLock(ctx, key, token))
	_, ok, err = s.AcquireLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := GameLockKey("room")

	_, ok, err := s.AcquireLock(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate a dead holder by forcing the expiry into the past.
	s.mu.Lock()
	l := s.locks[key]
	l.expires = time.Now().Add(-time.Second)
	s.locks[key] = l
	s.mu.Unlock()

	_, ok, err = s.AcquireLock(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockSingleWinnerUnderContention(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := GameLockKey("room")

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := s.AcquireLock(ctx, key); ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "game:abc", GameKey("abc"))
	assert.Equal(t, "room:abc", RoomKey("abc"))
	assert.Equal(t, "lock:game:abc", GameLockKey("abc"))
	assert.Equal(t, "user:u1:decks", DecksKey("u1"))
}
