package calculation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/firesim/fire-planner/internal/domain"
)

// ResultCache memoizes aggregate results keyed by the configuration
// hash. Entries expire after the TTL; any change to the configuration
// changes the key, so stale hits are impossible for differing inputs.
type ResultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry

	// now is swappable for tests.
	now func() time.Time
}

type cacheEntry struct {
	result   *domain.AggregateResult
	storedAt time.Time
}

// DefaultCacheTTL bounds how long a cached aggregate stays valid.
const DefaultCacheTTL = 15 * time.Minute

// NewResultCache creates a cache with the given TTL; zero or negative
// falls back to the default.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// ConfigHash derives the cache key from the full configuration. JSON
// marshalling of the struct is deterministic (fields in declaration
// order), so equal configs always hash equally.
func ConfigHash(cfg *domain.SimulationConfig) (string, error) {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to hash config: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns the cached result for the key if present and fresh.
func (c *ResultCache) Get(key string) (*domain.AggregateResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.result, true
}

// Put stores a result under the key, resetting its TTL.
func (c *ResultCache) Put(key string, result *domain.AggregateResult) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: result, storedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes one key, for explicit refreshes.
func (c *ResultCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// RunCached returns the cached aggregate for the simulator's config
// when fresh, otherwise runs the simulation and stores the result.
func (s *Simulator) RunCached(ctx context.Context, cache *ResultCache) (*domain.AggregateResult, error) {
	key, err := ConfigHash(s.cfg)
	if err != nil {
		return nil, err
	}
	if result, ok := cache.Get(key); ok {
		s.log.Debugf("cache hit for config %s", key[:12])
		return result, nil
	}
	result, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	cache.Put(key, result)
	return result, nil
}

// Len reports the number of stored entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
