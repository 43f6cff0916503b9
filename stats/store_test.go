package stats

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	Reset()
	defer Reset()
	store := newTestStore(t)

	g := Get()
	g.TotalRequests.Store(42)
	g.CacheHits.Store(10)
	g.CacheMisses.Store(5)
	g.ResolverExhausted.Store(3)
	g.BackpressureRejected.Store(1)

	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Simulate a restart: counters reset, then restored from disk
	Reset()
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	g = Get()
	if g.TotalRequests.Load() != 42 {
		t.Errorf("Expected 42 total requests restored, got %d", g.TotalRequests.Load())
	}
	if g.CacheHits.Load() != 10 || g.CacheMisses.Load() != 5 {
		t.Errorf("Expected cache counters restored, got %d/%d", g.CacheHits.Load(), g.CacheMisses.Load())
	}
	if g.ResolverExhausted.Load() != 3 {
		t.Errorf("Expected resolver counter restored, got %d", g.ResolverExhausted.Load())
	}
	if g.BackpressureRejected.Load() != 1 {
		t.Errorf("Expected backpressure counter restored, got %d", g.BackpressureRejected.Load())
	}
}

func TestLoad_EmptyDatabaseStartsFresh(t *testing.T) {
	Reset()
	defer Reset()
	store := newTestStore(t)

	if err := store.Load(); err != nil {
		t.Fatalf("Load of an empty database should not fail: %v", err)
	}
	if Get().TotalRequests.Load() != 0 {
		t.Errorf("Expected fresh counters, got %d", Get().TotalRequests.Load())
	}
}
