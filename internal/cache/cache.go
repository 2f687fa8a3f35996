// Package cache memoizes aggregated result sets per (query, mode) with a
// bounded LRU, optional age expiry, and at most one in-flight computation per
// key.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hyperifyio/metasearch/internal/search"
)

const (
	DefaultSize = 256
	DefaultTTL  = 15 * time.Minute
)

// Entry is one memoized result set.
type Entry struct {
	Key       string
	Value     search.ResultSet
	CreatedAt time.Time
}

// Loader computes the value for a missing key. store=false keeps the value
// out of the cache (for example when every source failed).
type Loader func() (rs search.ResultSet, store bool, err error)

// ResultCache is safe for concurrent use. Entries older than the TTL are
// dropped when they are read, so the cache owns no background goroutine.
type ResultCache struct {
	mu    sync.Mutex // orders expiry removal against Put
	lru   *lru.Cache[string, Entry]
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
}

// New returns a cache holding at most size entries. size <= 0 selects
// DefaultSize; ttl <= 0 disables age-based expiry.
func New(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl < 0 {
		ttl = 0
	}
	l, err := lru.New[string, Entry](size)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &ResultCache{lru: l, ttl: ttl, now: time.Now}
}

func (c *ResultCache) expired(e Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.CreatedAt) >= c.ttl
}

// KeyFrom derives a stable cache key from the mode and the query.
func KeyFrom(query string, mode search.Mode) string {
	h := sha256.Sum256([]byte(string(mode) + "\n" + query))
	return hex.EncodeToString(h[:])
}

// Get returns a copy of the cached set for key.
func (c *ResultCache) Get(key string) (search.ResultSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Get(key)
	if !ok {
		return search.ResultSet{}, false
	}
	if c.expired(e) {
		c.lru.Remove(key)
		return search.ResultSet{}, false
	}
	return e.Value.Clone(), true
}

// Put stores a copy of rs under key, replacing any previous entry.
func (c *ResultCache) Put(key string, rs search.ResultSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, Entry{Key: key, Value: rs.Clone(), CreatedAt: c.now()})
}

// Do returns the cached set for key or runs load to produce it. Concurrent
// callers with the same key share one load. hit reports whether the value
// came from the cache.
func (c *ResultCache) Do(key string, load Loader) (rs search.ResultSet, hit bool, err error) {
	if rs, ok := c.Get(key); ok {
		return rs, true, nil
	}
	type flight struct {
		rs  search.ResultSet
		hit bool
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// a flight that finished between our Get and Do may have stored it
		if rs, ok := c.Get(key); ok {
			return flight{rs: rs, hit: true}, nil
		}
		rs, store, err := load()
		if err != nil {
			return flight{rs: rs}, err
		}
		if store {
			c.Put(key, rs)
		}
		return flight{rs: rs}, nil
	})
	f, _ := v.(flight)
	return f.rs.Clone(), f.hit, err
}

// Len reports the number of live entries.
func (c *ResultCache) Len() int { return len(c.live()) }

// Entries returns the live entries from oldest to newest. Values are copies.
func (c *ResultCache) Entries() []Entry {
	vals := c.live()
	out := make([]Entry, 0, len(vals))
	for _, e := range vals {
		e.Value = e.Value.Clone()
		out = append(out, e)
	}
	return out
}

// live evicts expired entries and returns the rest, oldest first.
func (c *ResultCache) live() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	vals := c.lru.Values()
	out := vals[:0]
	for _, e := range vals {
		if c.expired(e) {
			c.lru.Remove(e.Key)
			continue
		}
		out = append(out, e)
	}
	return out
}

// Purge drops every entry.
func (c *ResultCache) Purge() { c.lru.Purge() }
