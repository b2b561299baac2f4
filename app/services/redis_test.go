package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/widget-sidebar/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	t.Run("GetSetDelete", func(t *testing.T) {
		mr, rc := newTestRedis(t)
		c := NewRedisCache[cachedThing](rc, "ws:", "things", logger.NewNop())

		_, ok := c.Get(ctx, 1)
		assert.False(t, ok)

		c.Set(ctx, 1, &cachedThing{ID: 1, Name: "a"})
		assert.True(t, mr.Exists("ws:things"))
		v, ok := c.Get(ctx, 1)
		require.True(t, ok)
		assert.Equal(t, "a", v.Name)

		c.Delete(ctx, 1)
		_, ok = c.Get(ctx, 1)
		assert.False(t, ok)
	})

	t.Run("AllRequiresFill", func(t *testing.T) {
		_, rc := newTestRedis(t)
		c := NewRedisCache[cachedThing](rc, "ws:", "things", logger.NewNop())
		c.Set(ctx, 1, &cachedThing{ID: 1})
		_, loaded := c.All(ctx)
		assert.False(t, loaded)

		c.Fill(ctx, map[uint]*cachedThing{2: {ID: 2, Name: "b"}, 3: {ID: 3, Name: "c"}})
		all, loaded := c.All(ctx)
		require.True(t, loaded)
		assert.ElementsMatch(t, []*cachedThing{{ID: 2, Name: "b"}, {ID: 3, Name: "c"}}, all)

		c.Delete(ctx, 2)
		all, loaded = c.All(ctx)
		require.True(t, loaded)
		require.Len(t, all, 1)
		assert.Equal(t, uint(3), all[0].ID)

		c.Fill(ctx, map[uint]*cachedThing{})
		all, loaded = c.All(ctx)
		assert.True(t, loaded)
		assert.Empty(t, all)
	})

	t.Run("SharedBetweenInstances", func(t *testing.T) {
		_, rc := newTestRedis(t)
		a := NewRedisCache[cachedThing](rc, "ws:", "things", logger.NewNop())
		b := NewRedisCache[cachedThing](rc, "ws:", "things", logger.NewNop())

		a.Fill(ctx, map[uint]*cachedThing{7: {ID: 7}})
		_, loaded := b.All(ctx)
		assert.True(t, loaded)

		b.Clear(ctx)
		_, ok := a.Get(ctx, 7)
		assert.False(t, ok)
		_, loaded = a.All(ctx)
		assert.False(t, loaded)
	})

	t.Run("CorruptEntryIsAMiss", func(t *testing.T) {
		mr, rc := newTestRedis(t)
		c := NewRedisCache[cachedThing](rc, "ws:", "things", logger.NewNop())
		mr.HSet("ws:things", "5", "{not json")
		_, ok := c.Get(ctx, 5)
		assert.False(t, ok)
	})

	t.Run("UnavailableServerIsAMiss", func(t *testing.T) {
		mr, rc := newTestRedis(t)
		c := NewRedisCache[cachedThing](rc, "ws:", "things", logger.NewNop())
		c.Set(ctx, 1, &cachedThing{ID: 1})
		mr.Close()

		_, ok := c.Get(ctx, 1)
		assert.False(t, ok)
		_, loaded := c.All(ctx)
		assert.False(t, loaded)
	})

	t.Run("NewCacheWithRedis", func(t *testing.T) {
		_, rc := newTestRedis(t)
		c := NewCache[cachedThing](rc, "ws:", "things", logger.NewNop())
		_, isRedis := c.(*RedisCache[cachedThing])
		assert.True(t, isRedis)
	})
}

type collected struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (c *collected) add(ev ChangeEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collected) snapshot() []ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChangeEvent(nil), c.events...)
}

func TestRedisNotifier(t *testing.T) {
	_, rc := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := NewRedisNotifier(rc, "ws:", logger.NewNop())
	remote := NewRedisNotifier(rc, "ws:", logger.NewNop())
	require.NoError(t, local.StartForwarder(ctx))
	require.NoError(t, remote.StartForwarder(ctx))

	var atLocal, atRemote collected
	defer local.Subscribe(atLocal.add)()
	defer remote.Subscribe(atRemote.add)()

	local.Publish(ctx, ChangeEvent{Entity: EntityComponent, Action: ActionUpdated, EntityID: 9, ContainerID: 2})

	require.Eventually(t, func() bool { return len(atRemote.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := atRemote.snapshot()[0]
	assert.Equal(t, EntityComponent, got.Entity)
	assert.Equal(t, ActionUpdated, got.Action)
	assert.Equal(t, uint(9), got.EntityID)
	assert.Equal(t, uint(2), got.ContainerID)
	assert.Equal(t, local.origin, got.Origin)

	// the local subscriber sees the event once; the echo from redis is dropped
	time.Sleep(50 * time.Millisecond)
	require.Len(t, atLocal.snapshot(), 1)
	assert.Equal(t, got.ID, atLocal.snapshot()[0].ID)
}

func TestNewChangeNotifier(t *testing.T) {
	_, rc := newTestRedis(t)
	_, isRedis := NewChangeNotifier(rc, "ws:", logger.NewNop()).(*RedisNotifier)
	assert.True(t, isRedis)
	_, isMemory := NewChangeNotifier(nil, "ws:", logger.NewNop()).(*MemoryNotifier)
	assert.True(t, isMemory)
}
