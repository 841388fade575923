package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetMissingKey(t *testing.T) {
	s := NewMemoryStore()

	entry, err := s.Get(context.Background(), "combat:missing")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemoryStore_SetThenGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	version, err := s.SetWithTTL(ctx, "combat:abc", []byte(`{"turn":1}`), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	entry, err := s.Get(ctx, "combat:abc")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []byte(`{"turn":1}`), entry.Value)
	assert.Equal(t, int64(1), entry.Version)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := s.SetWithTTL(ctx, "session:x", []byte("tok"), time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	entry, err := s.Get(ctx, "session:x")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// création : version attendue 0
	version, ok, err := s.CompareAndSwap(ctx, "combat:cas", []byte("v1"), 0, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), version)

	// écriture avec la bonne version
	version, ok, err = s.CompareAndSwap(ctx, "combat:cas", []byte("v2"), 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), version)

	// version périmée : refusé, l'état n'a pas bougé
	current, ok, err := s.CompareAndSwap(ctx, "combat:cas", []byte("stale"), 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(2), current)

	entry, err := s.Get(ctx, "combat:cas")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), entry.Value)
}

func TestMemoryStore_CASOnExpiredKeyActsAsCreate(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, err := s.CompareAndSwap(ctx, "combat:exp", []byte("v1"), 0, time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	// la clé a expiré : seule la version 0 passe
	_, ok, err := s.CompareAndSwap(ctx, "combat:exp", []byte("v2"), 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	version, ok, err := s.CompareAndSwap(ctx, "combat:exp", []byte("v2"), 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), version)
}

func TestMemoryStore_SortedSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, QueueKey, "alice", 1000))
	require.NoError(t, s.ZAdd(ctx, QueueKey, "bob", 1050))
	require.NoError(t, s.ZAdd(ctx, QueueKey, "carol", 1600))

	depth, err := s.ZCard(ctx, QueueKey)
	require.NoError(t, err)
	assert.Equal(t, int64(3), depth)

	// fenêtre [950, 1100] : alice et bob, pas carol
	members, err := s.ZRangeByScore(ctx, QueueKey, 950, 1100)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Member)
	assert.Equal(t, "bob", members[1].Member)

	rank, ok, err := s.ZRank(ctx, QueueKey, "carol")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), rank)

	require.NoError(t, s.ZRem(ctx, QueueKey, "alice", "bob"))
	depth, err = s.ZCard(ctx, QueueKey)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	_, ok, err = s.ZRank(ctx, QueueKey, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ZAddUpdatesScore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.ZAdd(ctx, QueueKey, "alice", 1000))
	require.NoError(t, s.ZAdd(ctx, QueueKey, "alice", 1016))

	depth, err := s.ZCard(ctx, QueueKey)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	members, err := s.ZRangeByScore(ctx, QueueKey, 1010, 1020)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, float64(1016), members[0].Score)
}
