package redisinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, shards int) (*Store, []*miniredis.Miniredis) {
	t.Helper()
	servers := make([]*miniredis.Miniredis, shards)
	clients := make([]*redis.Client, shards)
	for i := range servers {
		servers[i] = miniredis.RunT(t)
		clients[i] = redis.NewClient(&redis.Options{Addr: servers[i].Addr()})
	}
	s := NewStore(clients...)
	t.Cleanup(func() { _ = s.Close() })
	return s, servers
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t, 1)
	v, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStore_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	s, servers := newTestStore(t, 1)

	require.NoError(t, s.Set(ctx, "jti-1", "", time.Hour))
	v, ok, err := s.Get(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)

	servers[0].FastForward(time.Hour + time.Second)
	_, ok, err = s.Get(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetMembership(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 1)
	key := "user-refresh-1"

	require.NoError(t, s.AddToSet(ctx, key, "a"))
	require.NoError(t, s.AddToSet(ctx, key, "b"))

	ok, err := s.SetContains(ctx, key, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := s.RemoveFromSet(ctx, key, "a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveFromSet(ctx, key, "a")
	require.NoError(t, err)
	assert.False(t, removed, "second remove must report nothing removed")

	ok, err = s.SetContains(ctx, key, "b")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, key))
	ok, err = s.SetContains(ctx, key, "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ShardRoutingIsStable(t *testing.T) {
	ctx := context.Background()
	s, servers := newTestStore(t, 3)

	for i := 0; i < 60; i++ {
		key := fmt.Sprintf("user-refresh-%d", i)
		require.NoError(t, s.AddToSet(ctx, key, "jti"))
	}

	perShard := make([]int, len(servers))
	for i := 0; i < 60; i++ {
		key := fmt.Sprintf("user-refresh-%d", i)
		holders := 0
		for j, srv := range servers {
			if srv.Exists(key) {
				holders++
				perShard[j]++
				assert.Same(t, s.shards[j], s.shardFor(key))
			}
		}
		assert.Equal(t, 1, holders, key)

		ok, err := s.SetContains(ctx, key, "jti")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	for j, n := range perShard {
		assert.NotZero(t, n, "shard %d received no keys", j)
	}
}

func TestStore_Ping(t *testing.T) {
	s, servers := newTestStore(t, 2)
	require.NoError(t, s.Ping(context.Background()))

	servers[1].Close()
	assert.ErrorContains(t, s.Ping(context.Background()), "redis shard 1")
}
