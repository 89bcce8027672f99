package cache

import "time"

// RedisConfig holds the connection settings used by DialRedis.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

// MemoryOption configures MemoryCache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	maxEntries int
	sweepEvery time.Duration
	defaultTTL time.Duration
}

// WithMemoryMaxSize bounds the number of entries; the least recently used
// entry is evicted first.
func WithMemoryMaxSize(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithMemoryCleanup sets how often expired entries are swept.
func WithMemoryCleanup(every time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if every > 0 {
			c.sweepEvery = every
		}
	}
}

// WithMemoryDefaultTTL sets the expiration used when Set is given none.
func WithMemoryDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *memoryConfig) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// FileOption configures FileCache.
type FileOption func(*fileConfig)

type fileConfig struct {
	dir        string
	defaultTTL time.Duration
}

func WithFileDir(dir string) FileOption {
	return func(c *fileConfig) {
		if dir != "" {
			c.dir = dir
		}
	}
}

// WithFileDefaultTTL sets the expiration used when Set is given none.
func WithFileDefaultTTL(ttl time.Duration) FileOption {
	return func(c *fileConfig) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}
