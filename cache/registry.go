package cache

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"music-api-go/logcolors"

	"github.com/hashicorp/golang-lru/v2/expirable"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Category identifies one of the fixed cache key spaces. Each category
// has its own capacity and TTL, fixed at registry construction.
type Category string

const (
	Song     Category = "song"
	Artist   Category = "artist"
	Search   Category = "search"
	Streams  Category = "streams"
	Playlist Category = "playlist"
	Lyrics   Category = "lyrics"
	Mood     Category = "mood"
)

// CategoryConfig holds the immutable attributes of a category.
type CategoryConfig struct {
	Capacity int
	TTL      time.Duration
}

// CategoryStats is a point-in-time counter snapshot for one category.
type CategoryStats struct {
	Entries  int   `json:"entries"`
	Capacity int   `json:"capacity"`
	TTLSecs  int   `json:"ttl_seconds"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
}

var ErrUnknownCategory = errors.New("cache: unknown category")

// category is one TTL+LRU store plus its single-flight group. Expired
// or evicted entries are indistinguishable from absent ones: the
// expirable LRU hides stale entries from Get.
type category struct {
	cfg    CategoryConfig
	store  *expirable.LRU[string, any]
	flight singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// Registry owns a fixed set of independently configured caches. The
// category set is immutable after construction, so lookups need no
// locking; each store synchronizes its own entries.
type Registry struct {
	categories map[Category]*category
}

// NewRegistry builds a registry from per-category configs. Categories
// with a non-positive capacity or TTL fall back to minimal defaults so
// a misconfigured environment cannot disable caching entirely.
func NewRegistry(configs map[Category]CategoryConfig) *Registry {
	categories := make(map[Category]*category, len(configs))
	for name, cfg := range configs {
		if cfg.Capacity <= 0 {
			cfg.Capacity = 1
		}
		if cfg.TTL <= 0 {
			cfg.TTL = time.Minute
		}
		categories[name] = &category{
			cfg:   cfg,
			store: expirable.NewLRU[string, any](cfg.Capacity, nil, cfg.TTL),
		}
		log.Debugf("%s Registered category %q (capacity: %d, ttl: %v)", logcolors.LogCache, name, cfg.Capacity, cfg.TTL)
	}
	return &Registry{categories: categories}
}

// Fetch implements cache-aside with single-flight de-duplication.
//
// A fresh entry is returned immediately. On a miss the producer runs at
// most once per (category, key): concurrent callers for the same key
// block on the in-flight call and all receive its result. A producer
// error propagates to every waiter and nothing is cached, so the next
// Fetch may retry. The returned bool reports whether the value came
// from the cache without invoking the producer.
func (r *Registry) Fetch(cat Category, key string, producer func() (any, error)) (any, bool, error) {
	c, ok := r.categories[cat]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	if value, ok := c.store.Get(key); ok {
		c.hits.Add(1)
		return value, true, nil
	}
	c.misses.Add(1)

	// ran is written only by the one closure singleflight executes,
	// synchronously within Do, so callers whose producer never ran
	// (they attached to an in-flight computation) still report a hit.
	ran := false
	value, err, _ := c.flight.Do(key, func() (any, error) {
		// A concurrent flight may have populated the entry between our
		// lookup and acquiring the flight slot.
		if value, ok := c.store.Get(key); ok {
			return value, nil
		}
		ran = true
		value, err := producer()
		if err != nil {
			return nil, err
		}
		c.store.Add(key, value)
		return value, nil
	})
	if err != nil {
		log.Debugf("%s Producer failed for %s/%s: %v", logcolors.LogCache, cat, key, err)
		return nil, false, err
	}
	return value, !ran, nil
}

// Peek returns the cached value without counting a hit or miss and
// without invoking any producer.
func (r *Registry) Peek(cat Category, key string) (any, bool) {
	c, ok := r.categories[cat]
	if !ok {
		return nil, false
	}
	return c.store.Peek(key)
}

// Invalidate removes a single entry. Used by operational endpoints;
// request handlers never call it.
func (r *Registry) Invalidate(cat Category, key string) bool {
	c, ok := r.categories[cat]
	if !ok {
		return false
	}
	return c.store.Remove(key)
}

// Purge clears every category. Intended for tests and the guarded
// cache-management endpoint.
func (r *Registry) Purge() {
	for name, c := range r.categories {
		c.store.Purge()
		log.Infof("%s Purged category %q", logcolors.LogCache, name)
	}
}

// Stats returns a per-category counter snapshot.
func (r *Registry) Stats() map[Category]CategoryStats {
	snapshot := make(map[Category]CategoryStats, len(r.categories))
	for name, c := range r.categories {
		snapshot[name] = CategoryStats{
			Entries:  c.store.Len(),
			Capacity: c.cfg.Capacity,
			TTLSecs:  int(c.cfg.TTL / time.Second),
			Hits:     c.hits.Load(),
			Misses:   c.misses.Load(),
		}
	}
	return snapshot
}
