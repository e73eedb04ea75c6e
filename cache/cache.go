// Package cache is the response cache consulted before dispatch. Entries
// expire after a TTL and the cache is bounded with LRU eviction.
package cache

import (
	"container/list"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cespare/xxhash/v2"

	"github.com/kbukum/riskintel/provider"
)

const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 1000
)

// Config configures the response cache.
type Config struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl" json:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries" json:"max_entries" validate:"gte=0"`
}

// ApplyDefaults sets a one hour TTL and a 1000 entry bound.
func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
}

// Entry is one cached response.
type Entry struct {
	Key       string
	Value     *provider.Response
	ExpiresAt time.Time

	element *list.Element
}

// Stats reports cache effectiveness.
type Stats struct {
	Size       int     `json:"size"`
	MaxEntries int     `json:"maxEntries"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRate    float64 `json:"hitRate"`
}

// Cache is a thread-safe TTL cache with LRU eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	lru     *list.List
	ttl     time.Duration
	max     int
	clock   clock.Clock
	hits    uint64
	misses  uint64
}

// New creates a cache. A nil clock uses the wall clock.
func New(cfg Config, clk clock.Clock) *Cache {
	cfg.ApplyDefaults()
	if clk == nil {
		clk = clock.New()
	}
	return &Cache{
		entries: make(map[string]*Entry),
		lru:     list.New(),
		ttl:     cfg.TTL,
		max:     cfg.MaxEntries,
		clock:   clk,
	}
}

// Key derives the cache key for a request: Options.CacheKey when set,
// otherwise an xxhash of the type and the JSON payload. encoding/json
// writes map keys sorted, so equal payloads give equal keys.
func Key(req *provider.Request) (string, error) {
	if req.Options.CacheKey != "" {
		return req.Options.CacheKey, nil
	}
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	d := xxhash.New()
	_, _ = d.WriteString(string(req.Type))
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(payload)
	return string(req.Type) + ":" + strconv.FormatUint(d.Sum64(), 16), nil
}

// Get returns the cached response when now is strictly before its expiry.
// Expired entries are removed on read.
func (c *Cache) Get(key string) (*provider.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !c.clock.Now().Before(e.ExpiresAt) {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}
	c.lru.MoveToFront(e.element)
	c.hits++
	return e.Value.Clone(), true
}

// Set stores a copy of value with expiry now + ttl, evicting the least
// recently used entry when full. Get also returns copies, so callers never
// share Data with the stored entry.
func (c *Cache) Set(key string, value *provider.Response) {
	value = value.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.Value = value
		e.ExpiresAt = expires
		c.lru.MoveToFront(e.element)
		return
	}

	for c.lru.Len() >= c.max {
		c.evictLocked()
	}
	e := &Entry{Key: key, Value: value, ExpiresAt: expires}
	e.element = c.lru.PushFront(e)
	c.entries[key] = e
}

// Delete removes one key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// Clear removes every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.lru.Init()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Stats returns a snapshot of size and hit counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Size: len(c.entries), MaxEntries: c.max, Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache) evictLocked() {
	if back := c.lru.Back(); back != nil {
		c.removeLocked(back.Value.(*Entry))
	}
}

func (c *Cache) removeLocked(e *Entry) {
	c.lru.Remove(e.element)
	delete(c.entries, e.Key)
}
