package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/metrics"
	"github.com/google/uuid"
)

// Key identifies one cached multiplier.
type Key struct {
	PlayerID uuid.UUID
	Target   domain.ModifierTarget
	Resource domain.ResourceType
}

func NewKey(playerID uuid.UUID, target domain.ModifierTarget, resource *domain.ResourceType) Key {
	k := Key{PlayerID: playerID, Target: target}
	if resource != nil {
		k.Resource = *resource
	}
	return k
}

type entry struct {
	value     float64
	expiresAt time.Time
}

type playerEntries struct {
	version uint64
	values  map[Key]entry
}

// ModifierCache memoises aggregated multipliers per player.
//
// Every player carries a version that is bumped on invalidation. Writers read
// the version before computing a value and pass it to Set, which refuses the
// write if the player was invalidated in between.
type ModifierCache struct {
	ttl          time.Duration
	maxPerPlayer int
	now          func() time.Time

	mu      sync.RWMutex
	players map[uuid.UUID]*playerEntries
}

func NewModifierCache(ttl time.Duration, maxPerPlayer int) *ModifierCache {
	return &ModifierCache{
		ttl:          ttl,
		maxPerPlayer: maxPerPlayer,
		now:          time.Now,
		players:      make(map[uuid.UUID]*playerEntries),
	}
}

// WithClock replaces the time source.
func (c *ModifierCache) WithClock(now func() time.Time) *ModifierCache {
	c.now = now
	return c
}

// Version returns the current version for the player.
func (c *ModifierCache) Version(playerID uuid.UUID) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.players[playerID]; ok {
		return p.version
	}
	return 0
}

// Get returns the cached multiplier or ErrCacheMiss.
func (c *ModifierCache) Get(key Key) (float64, error) {
	c.mu.RLock()
	var (
		e  entry
		ok bool
	)
	if p, found := c.players[key.PlayerID]; found {
		e, ok = p.values[key]
	}
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		metrics.RecordCacheRequest(metrics.CacheMiss)
		return 0, fmt.Errorf("%w: %s/%s/%s", domain.ErrCacheMiss, key.PlayerID, key.Target, key.Resource)
	}
	metrics.RecordCacheRequest(metrics.CacheHit)
	return e.value, nil
}

// Set stores value if version still matches the player's current version.
func (c *ModifierCache) Set(key Key, value float64, version uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[key.PlayerID]
	if !ok {
		p = &playerEntries{values: make(map[Key]entry)}
		c.players[key.PlayerID] = p
	}
	if p.version != version {
		return fmt.Errorf("%w: version %d, current %d", domain.ErrCacheWrite, version, p.version)
	}

	now := c.now()
	if _, exists := p.values[key]; !exists && len(p.values) >= c.maxPerPlayer {
		c.evictExpiredLocked(p, now)
		if len(p.values) >= c.maxPerPlayer {
			return fmt.Errorf("%w: player %s holds %d entries", domain.ErrCacheLimit, key.PlayerID, len(p.values))
		}
	}

	p.values[key] = entry{value: value, expiresAt: now.Add(c.ttl)}
	return nil
}

// Invalidate drops every entry for the player and bumps its version.
func (c *ModifierCache) Invalidate(playerID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[playerID]
	if !ok {
		c.players[playerID] = &playerEntries{version: 1, values: make(map[Key]entry)}
		return
	}
	p.version++
	p.values = make(map[Key]entry)
}

// Clear invalidates every player.
func (c *ModifierCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.players {
		p.version++
		p.values = make(map[Key]entry)
	}
}

// Len returns the number of live entries for the player.
func (c *ModifierCache) Len(playerID uuid.UUID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.players[playerID]; ok {
		return len(p.values)
	}
	return 0
}

func (c *ModifierCache) evictExpiredLocked(p *playerEntries, now time.Time) {
	for k, e := range p.values {
		if !now.Before(e.expiresAt) {
			delete(p.values, k)
		}
	}
}
