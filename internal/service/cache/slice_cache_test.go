package cache

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"DiffPlot/internal/domain/models"
	"DiffPlot/internal/repository"
	pkgcache "DiffPlot/pkg/cache"
)

type fakeLoader struct {
	mu    sync.Mutex
	mtime int64
	slice models.FieldSlice
	err   error
	delay time.Duration
	loads atomic.Int32
}

func (f *fakeLoader) Load(_ context.Context, key models.SliceKey) (models.FieldSlice, error) {
	f.loads.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.FieldSlice{Field: key.Field}, f.err
	}
	return f.slice, nil
}

func (f *fakeLoader) ModTime(models.SliceKey) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mtime
}

func (f *fakeLoader) touch(mtime int64) {
	f.mu.Lock()
	f.mtime = mtime
	f.mu.Unlock()
}

var testKey = models.SliceKey{Symbol: "SPX.CBOE", Interval: "1m", Date: "20250714", Field: "close", Source: models.SourceRunning}

func sampleSlice() models.FieldSlice {
	t0 := time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)
	return models.FieldSlice{
		Field:  "close",
		Times:  []time.Time{t0, t0.Add(time.Minute)},
		Values: []float64{1.5, math.NaN()},
	}
}

func newCache(t *testing.T, l *fakeLoader) (*SliceCache, *pkgcache.MemoryCache) {
	t.Helper()
	store := pkgcache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	return NewSliceCache(store, l), store
}

func TestGetOrLoadServesHitWithoutLoading(t *testing.T) {
	l := &fakeLoader{mtime: 100, slice: sampleSlice()}
	c, _ := newCache(t, l)
	ctx := context.Background()

	first, err := c.GetOrLoad(ctx, testKey)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.GetOrLoad(ctx, testKey)
	if err != nil {
		t.Fatal(err)
	}
	if n := l.loads.Load(); n != 1 {
		t.Fatalf("loads %d want 1", n)
	}
	if first.Len() != second.Len() || second.Values[0] != 1.5 || !math.IsNaN(second.Values[1]) {
		t.Fatalf("cached slice differs: %v vs %v", first.Values, second.Values)
	}
	for i := range first.Times {
		if !first.Times[i].Equal(second.Times[i]) {
			t.Fatalf("time %d differs", i)
		}
	}
}

func TestGetOrLoadReloadsOnModTimeChange(t *testing.T) {
	l := &fakeLoader{mtime: 100, slice: sampleSlice()}
	c, _ := newCache(t, l)
	ctx := context.Background()

	_, _ = c.GetOrLoad(ctx, testKey)
	l.touch(200)
	_, _ = c.GetOrLoad(ctx, testKey)
	_, _ = c.GetOrLoad(ctx, testKey)
	if n := l.loads.Load(); n != 2 {
		t.Fatalf("loads %d want 2", n)
	}
}

func TestGetOrLoadCachesEmptyResult(t *testing.T) {
	l := &fakeLoader{mtime: models.AbsentModTime, slice: models.FieldSlice{Field: "close"}}
	c, _ := newCache(t, l)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := c.GetOrLoad(ctx, testKey)
		if err != nil || !s.Empty() {
			t.Fatalf("want empty slice, got %d rows err=%v", s.Len(), err)
		}
	}
	if n := l.loads.Load(); n != 1 {
		t.Fatalf("loads %d want 1", n)
	}

	l.touch(300)
	_, _ = c.GetOrLoad(ctx, testKey)
	if n := l.loads.Load(); n != 2 {
		t.Fatalf("appearance of the file should reload, loads %d", n)
	}
}

func TestGetOrLoadTreatsCorruptEntryAsMiss(t *testing.T) {
	l := &fakeLoader{mtime: 100, slice: sampleSlice()}
	c, store := newCache(t, l)
	ctx := context.Background()

	_ = store.Set(ctx, testKey.String(), []byte("not gob"), time.Hour)
	s, err := c.GetOrLoad(ctx, testKey)
	if err != nil || s.Len() != 2 {
		t.Fatalf("got %d rows err=%v", s.Len(), err)
	}
	if n := l.loads.Load(); n != 1 {
		t.Fatalf("loads %d want 1", n)
	}
	_, _ = c.GetOrLoad(ctx, testKey)
	if n := l.loads.Load(); n != 1 {
		t.Fatalf("rewritten entry should hit, loads %d", n)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	l := &fakeLoader{mtime: 100, err: errors.New("boom")}
	c, _ := newCache(t, l)
	ctx := context.Background()

	if _, err := c.GetOrLoad(ctx, testKey); err == nil {
		t.Fatal("expected error")
	}
	l.mu.Lock()
	l.err = nil
	l.slice = sampleSlice()
	l.mu.Unlock()
	s, err := c.GetOrLoad(ctx, testKey)
	if err != nil || s.Len() != 2 {
		t.Fatalf("got %d rows err=%v", s.Len(), err)
	}
}

func TestGetOrLoadConcurrentCallersLoadOnce(t *testing.T) {
	l := &fakeLoader{mtime: 100, slice: sampleSlice(), delay: 10 * time.Millisecond}
	c, _ := newCache(t, l)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s, err := c.GetOrLoad(context.Background(), testKey); err != nil || s.Len() != 2 {
				t.Errorf("got %d rows err=%v", s.Len(), err)
			}
		}()
	}
	wg.Wait()
	if n := l.loads.Load(); n != 1 {
		t.Fatalf("loads %d want 1", n)
	}
}

func TestInvalidate(t *testing.T) {
	l := &fakeLoader{mtime: 100, slice: sampleSlice()}
	c, _ := newCache(t, l)
	ctx := context.Background()

	_, _ = c.GetOrLoad(ctx, testKey)
	if err := c.Invalidate(ctx, testKey); err != nil {
		t.Fatal(err)
	}
	_, _ = c.GetOrLoad(ctx, testKey)
	if n := l.loads.Load(); n != 2 {
		t.Fatalf("loads %d want 2", n)
	}
}

type countingLoader struct {
	*repository.CSVSliceLoader
	loads atomic.Int32
}

func (c *countingLoader) Load(ctx context.Context, key models.SliceKey) (models.FieldSlice, error) {
	c.loads.Add(1)
	return c.CSVSliceLoader.Load(ctx, key)
}

func TestGetOrLoadWithArchiveFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "running", "2025", "20250714")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "SPX.CBOE_20250714_1m.csv")
	body := []byte("timestamp,close\n2025-07-14 09:30:00,10\n2025-07-14 09:31:00,11\n")
	if err := os.WriteFile(file, body, 0o644); err != nil {
		t.Fatal(err)
	}

	l := &countingLoader{CSVSliceLoader: repository.NewCSVSliceLoader(root, "index_", nil)}
	store, err := pkgcache.NewFileCache(pkgcache.WithFileDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	c := NewSliceCache(store, l, WithTTL(time.Hour), WithStripes(4))
	ctx := context.Background()

	a, _ := c.GetOrLoad(ctx, testKey)
	b, _ := c.GetOrLoad(ctx, testKey)
	if l.loads.Load() != 1 || a.Len() != 2 || b.Len() != 2 || b.Values[1] != 11 {
		t.Fatalf("loads=%d a=%v b=%v", l.loads.Load(), a.Values, b.Values)
	}

	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(file, later, later); err != nil {
		t.Fatal(err)
	}
	_, _ = c.GetOrLoad(ctx, testKey)
	if l.loads.Load() != 2 {
		t.Fatalf("mtime change should reload, loads=%d", l.loads.Load())
	}
}
