package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// File layout: expiry (8 bytes, UnixNano) | key length (4 bytes) | key | payload.
const fileHeaderLen = 12

// FileCache implements Service on a local directory, one file per key. It
// survives restarts of a single host and is not shared across hosts.
type FileCache struct {
	dir        string
	defaultTTL time.Duration
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(opts ...FileOption) (*FileCache, error) {
	cfg := fileConfig{
		dir:        filepath.Join(os.TempDir(), "diffplot_cache"),
		defaultTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := os.MkdirAll(cfg.dir, 0o755); err != nil {
		return nil, fmt.Errorf("file cache dir: %w", err)
	}
	return &FileCache{dir: cfg.dir, defaultTTL: cfg.defaultTTL}, nil
}

// Set writes to a temporary file and renames it into place, so readers never
// see a partial entry.
func (fc *FileCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = fc.defaultTTL
	}
	buf := make([]byte, fileHeaderLen+len(key)+len(value))
	binary.BigEndian.PutUint64(buf[0:8], uint64(time.Now().Add(expiration).UnixNano()))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(key)))
	copy(buf[fileHeaderLen:], key)
	copy(buf[fileHeaderLen+len(key):], value)

	tmp, err := os.CreateTemp(fc.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file cache temp: %w", err)
	}
	_, werr := tmp.Write(buf)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("file cache write: %w", err)
	}
	if err := os.Rename(tmp.Name(), fc.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("file cache rename: %w", err)
	}
	return nil
}

// Get returns ErrCacheMiss for absent, expired, truncated or colliding entries.
func (fc *FileCache) Get(_ context.Context, key string) ([]byte, error) {
	path := fc.path(key)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	if len(b) < fileHeaderLen {
		_ = os.Remove(path)
		return nil, ErrCacheMiss
	}
	expireAt := int64(binary.BigEndian.Uint64(b[0:8]))
	klen := int(binary.BigEndian.Uint32(b[8:12]))
	if len(b) < fileHeaderLen+klen {
		_ = os.Remove(path)
		return nil, ErrCacheMiss
	}
	if string(b[fileHeaderLen:fileHeaderLen+klen]) != key {
		return nil, ErrCacheMiss
	}
	if time.Now().UnixNano() > expireAt {
		_ = os.Remove(path)
		return nil, ErrCacheMiss
	}
	return b[fileHeaderLen+klen:], nil
}

func (fc *FileCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := fc.Get(ctx, key); errors.Is(err, ErrCacheMiss) {
			continue
		}
		if err := os.Remove(fc.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (fc *FileCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	for _, key := range keys {
		_, err := fc.Get(ctx, key)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			return false, err
		}
	}
	return false, nil
}

func (fc *FileCache) Close() error { return nil }

func (fc *FileCache) path(key string) string {
	return filepath.Join(fc.dir, fileName(key))
}
