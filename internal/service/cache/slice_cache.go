package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"DiffPlot/internal/domain/models"
	domrepo "DiffPlot/internal/domain/repository"
	pkgcache "DiffPlot/pkg/cache"
	applogger "DiffPlot/pkg/logger"
	"DiffPlot/pkg/metrics"
)

const (
	defaultTTL     = 24 * time.Hour
	defaultStripes = 64
)

// Miss reasons reported to metrics.
const (
	missAbsent  = "absent"
	missStale   = "stale"
	missCorrupt = "corrupt"
	missStore   = "store_error"
)

// SliceCache memoizes loaded slices in a byte store. An entry is served only
// while the backing file's modification time equals the one recorded when the
// entry was written; a rewrite that keeps the mtime goes unnoticed.
type SliceCache struct {
	store  pkgcache.Service
	loader domrepo.SliceLoader
	ttl    time.Duration
	locks  []sync.Mutex
	m      domrepo.Metrics
	l      *applogger.Logger
}

var _ domrepo.SliceSource = (*SliceCache)(nil)

// Option configures a SliceCache.
type Option func(*SliceCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *SliceCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithStripes sets the number of key lock stripes.
func WithStripes(n int) Option {
	return func(c *SliceCache) {
		if n > 0 {
			c.locks = make([]sync.Mutex, n)
		}
	}
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(c *SliceCache) {
		if m != nil {
			c.m = m
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(c *SliceCache) {
		if l != nil {
			c.l = l
		}
	}
}

func NewSliceCache(store pkgcache.Service, loader domrepo.SliceLoader, opts ...Option) *SliceCache {
	c := &SliceCache{
		store:  store,
		loader: loader,
		ttl:    defaultTTL,
		locks:  make([]sync.Mutex, defaultStripes),
		m:      metrics.Nop{},
		l:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrLoad returns the cached slice for key when its recorded mtime matches
// the file's current one, otherwise loads, stores and returns a fresh slice.
// Concurrent callers for one key load it once.
func (c *SliceCache) GetOrLoad(ctx context.Context, key models.SliceKey) (models.FieldSlice, error) {
	k := key.String()
	src := string(key.Source)

	mu := c.lockFor(k)
	mu.Lock()
	defer mu.Unlock()

	current := c.loader.ModTime(key)

	reason := missAbsent
	b, err := c.store.Get(ctx, k)
	switch {
	case err == nil:
		e, derr := decodeEntry(b)
		if derr == nil && e.ModTime == current {
			c.m.RecordCacheHit(src)
			return e.Slice, nil
		}
		if derr != nil {
			reason = missCorrupt
			c.l.Warn("slice cache entry unreadable", applogger.String("key", k), applogger.Error(derr))
		} else {
			reason = missStale
		}
	case errors.Is(err, pkgcache.ErrCacheMiss):
	default:
		reason = missStore
		c.l.Warn("slice cache lookup failed", applogger.String("key", k), applogger.Error(err))
	}
	c.m.RecordCacheMiss(src, reason)

	start := time.Now()
	s, err := c.loader.Load(ctx, key)
	if err != nil {
		c.m.RecordLoad(src, "error", time.Since(start).Seconds())
		return models.FieldSlice{Field: key.Field}, err
	}
	result := "ok"
	if s.Empty() {
		result = "empty"
	}
	c.m.RecordLoad(src, result, time.Since(start).Seconds())

	if enc, err := encodeEntry(models.CacheEntry{Slice: s, ModTime: current}); err != nil {
		c.m.RecordError("cache_encode")
		c.l.Warn("slice cache encode failed", applogger.String("key", k), applogger.Error(err))
	} else if err := c.store.Set(ctx, k, enc, c.ttl); err != nil {
		c.m.RecordError("cache_store")
		c.l.Warn("slice cache store failed", applogger.String("key", k), applogger.Error(err))
	}
	return s, nil
}

// Invalidate drops the entries for keys.
func (c *SliceCache) Invalidate(ctx context.Context, keys ...models.SliceKey) error {
	ks := make([]string, len(keys))
	for i, k := range keys {
		ks[i] = k.String()
	}
	return c.store.Delete(ctx, ks...)
}

func (c *SliceCache) lockFor(k string) *sync.Mutex {
	return &c.locks[xxhash.Sum64String(k)%uint64(len(c.locks))]
}
