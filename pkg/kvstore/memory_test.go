package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "offer:r1:d1", "pending", time.Minute))

	value, ok, err := s.Get(ctx, "offer:r1:d1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "pending", value)
}

func TestMemoryStore_MissingKey(t *testing.T) {
	s := NewMemoryStore()

	_, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ExpiredEntryBehavesLikeMissing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "k", "v", 10*time.Second))

	// Advance past the ttl
	s.now = func() time.Time { return now.Add(11 * time.Second) }

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, s.Len(), "expired entry should be removed on read")
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "k", "v", 0))

	s.now = func() time.Time { return now.Add(24 * time.Hour) }

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_LazySweepRemovesExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "stale", "v", time.Second))

	s.now = func() time.Time { return now.Add(time.Hour) }
	for i := 0; i < sweepInterval; i++ {
		require.NoError(t, s.Put(ctx, "live", "v", time.Hour))
	}

	assert.Equal(t, 1, s.Len(), "sweep should have dropped the stale entry")
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", "1", time.Minute))
	require.NoError(t, s.Put(ctx, "b", "2", time.Minute))
	require.NoError(t, s.Delete(ctx, "a", "b", "missing"))

	_, ok, _ := s.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "b")
	assert.False(t, ok)
}
