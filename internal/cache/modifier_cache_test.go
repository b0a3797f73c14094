package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/dom/empire-backend/internal/cache"
	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newCache(ttl time.Duration, max int) (*cache.ModifierCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	return cache.NewModifierCache(ttl, max).WithClock(clock.Now), clock
}

func TestModifierCache_GetSet(t *testing.T) {
	c, _ := newCache(time.Hour, 10)
	wood := domain.ResourceWood
	key := cache.NewKey(uuid.New(), domain.TargetResource, &wood)

	_, err := c.Get(key)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.Set(key, 1.65, c.Version(key.PlayerID)))

	v, err := c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, 1.65, v)
}

func TestModifierCache_TTL(t *testing.T) {
	c, clock := newCache(time.Minute, 10)
	key := cache.NewKey(uuid.New(), domain.TargetTraining, nil)

	require.NoError(t, c.Set(key, 0.8, 0))
	clock.Advance(59 * time.Second)
	_, err := c.Get(key)
	assert.NoError(t, err)

	clock.Advance(time.Second)
	_, err = c.Get(key)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestModifierCache_InvalidateRejectsStaleWrite(t *testing.T) {
	c, _ := newCache(time.Hour, 10)
	playerID := uuid.New()
	key := cache.NewKey(playerID, domain.TargetCombat, nil)

	version := c.Version(playerID)
	c.Invalidate(playerID)

	err := c.Set(key, 1.2, version)
	assert.ErrorIs(t, err, domain.ErrCacheWrite)

	require.NoError(t, c.Set(key, 1.2, c.Version(playerID)))
	assert.Equal(t, 1, c.Len(playerID))

	c.Invalidate(playerID)
	assert.Equal(t, 0, c.Len(playerID))
	_, err = c.Get(key)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestModifierCache_InvalidateIsPerPlayer(t *testing.T) {
	c, _ := newCache(time.Hour, 10)
	a := cache.NewKey(uuid.New(), domain.TargetCombat, nil)
	b := cache.NewKey(uuid.New(), domain.TargetCombat, nil)

	require.NoError(t, c.Set(a, 1.1, 0))
	require.NoError(t, c.Set(b, 1.2, 0))

	c.Invalidate(a.PlayerID)

	_, err := c.Get(a)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	v, err := c.Get(b)
	require.NoError(t, err)
	assert.Equal(t, 1.2, v)
}

func TestModifierCache_PerPlayerLimit(t *testing.T) {
	c, clock := newCache(time.Minute, 2)
	playerID := uuid.New()
	food, wood, stone := domain.ResourceFood, domain.ResourceWood, domain.ResourceStone

	require.NoError(t, c.Set(cache.NewKey(playerID, domain.TargetResource, &food), 1, 0))
	require.NoError(t, c.Set(cache.NewKey(playerID, domain.TargetResource, &wood), 1, 0))

	err := c.Set(cache.NewKey(playerID, domain.TargetResource, &stone), 1, 0)
	assert.ErrorIs(t, err, domain.ErrCacheLimit)

	// overwriting an existing key is always allowed
	assert.NoError(t, c.Set(cache.NewKey(playerID, domain.TargetResource, &food), 2, 0))

	// expired entries make room
	clock.Advance(2 * time.Minute)
	assert.NoError(t, c.Set(cache.NewKey(playerID, domain.TargetResource, &stone), 1, 0))
	assert.Equal(t, 1, c.Len(playerID))
}

func TestModifierCache_Clear(t *testing.T) {
	c, _ := newCache(time.Hour, 10)
	key := cache.NewKey(uuid.New(), domain.TargetResearch, nil)

	require.NoError(t, c.Set(key, 1.3, 0))
	c.Clear()

	_, err := c.Get(key)
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.ErrorIs(t, c.Set(key, 1.3, 0), domain.ErrCacheWrite)
}

func TestModifierCache_ConcurrentAccess(t *testing.T) {
	c, _ := newCache(time.Hour, 100)
	playerID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := cache.NewKey(playerID, domain.TargetCombat, nil)
			if i%5 == 0 {
				c.Invalidate(playerID)
				return
			}
			_ = c.Set(key, float64(i), c.Version(playerID))
			_, _ = c.Get(key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(playerID), 1)
}
