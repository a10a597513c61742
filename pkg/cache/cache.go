// Package cache memoizes successful resolutions by normalized question text.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spaolacci/murmur3"

	"github.com/ekaya-inc/ekaya-analyst/pkg/models"
)

const (
	DefaultTTL        = 30 * time.Minute
	DefaultMaxEntries = 500
)

// Config controls cache lifetime and capacity. Zero values use the defaults.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	Clock      clockwork.Clock
}

// ResultCache maps a question fingerprint to a stored result. Entries expire a
// fixed TTL after they were written; reads never extend that lifetime.
// Expired entries are removed lazily by the lookup that finds them.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	ttl        time.Duration
	maxEntries int
	clock      clockwork.Clock
	seq        uint64
}

type entry struct {
	result    *models.ResolutionResult
	createdAt time.Time
	hitCount  int
	seq       uint64 // insertion order, breaks createdAt ties on eviction
}

// New creates an empty cache.
func New(cfg Config) *ResultCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &ResultCache{
		entries:    make(map[string]*entry),
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		clock:      cfg.Clock,
	}
}

// Key returns the fingerprint for a question: murmur3-128 of the trimmed,
// lowercased text, hex encoded. Distinct questions may collide.
func Key(question string) string {
	h := murmur3.New128()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(question))))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the stored result marked FromCache, or false on a
// miss. An entry whose age has reached the TTL is deleted and reported as a miss.
func (c *ResultCache) Get(question string) (*models.ResolutionResult, bool) {
	key := Key(question)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.clock.Since(e.createdAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	e.hitCount++
	result := e.result.Clone()
	result.FromCache = true
	return result, true
}

// Put stores a copy of result under the question's fingerprint, replacing any
// existing entry and resetting its age and hit count.
func (c *ResultCache) Put(question string, result *models.ResolutionResult) {
	if result == nil {
		return
	}
	key := Key(question)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.seq++
	c.entries[key] = &entry{
		result:    result.Clone(),
		createdAt: c.clock.Now(),
		seq:       c.seq,
	}
}

// evictOldest removes the entry written first. Caller holds c.mu.
func (c *ResultCache) evictOldest() {
	var (
		oldestKey string
		oldest    *entry
	)
	for key, e := range c.entries {
		if oldest == nil || e.seq < oldest.seq {
			oldestKey = key
			oldest = e
		}
	}
	if oldest != nil {
		delete(c.entries, oldestKey)
	}
}

// Clear drops every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Stats reports entry count, total hits and the JSON-encoded size of stored results.
// Entries that have expired but not yet been looked up are still counted.
func (c *ResultCache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := models.CacheStats{Entries: len(c.entries)}
	for _, e := range c.entries {
		stats.TotalHits += e.hitCount
		if b, err := json.Marshal(e.result); err == nil {
			stats.ApproxSizeBytes += len(b)
		}
	}
	return stats
}
