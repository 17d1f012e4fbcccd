package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	store, err := New(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func touch(t *testing.T, path string) {
	t.Helper()

	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

func TestAllocate_UniquePathsWithSuffix(t *testing.T) {
	store := newTestStore(t)
	defer store.ReleaseAll()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		path, err := store.Allocate(".obj")
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		if !strings.HasSuffix(path, ".obj") {
			t.Errorf("expected .obj suffix, got %s", path)
		}
		if filepath.Dir(path) != store.Dir() {
			t.Errorf("path %s not under scratch dir %s", path, store.Dir())
		}
		if seen[path] {
			t.Fatalf("duplicate path allocated: %s", path)
		}
		seen[path] = true
	}

	if got := store.LiveCount(); got != 100 {
		t.Errorf("expected 100 live paths, got %d", got)
	}
}

func TestRelease_RemovesFileAndIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	defer store.ReleaseAll()

	path, err := store.Allocate(".mnc")
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	touch(t, path)

	store.Release(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed", path)
	}
	if store.Tracked(path) {
		t.Errorf("expected %s to be untracked after release", path)
	}

	// Releasing again must not panic or error.
	store.Release(path)
}

func TestRelease_NeverMaterializedFile(t *testing.T) {
	store := newTestStore(t)
	defer store.ReleaseAll()

	path, err := store.Allocate(".xfm")
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}

	// The external program never wrote the file; release is still fine.
	store.Release(path)
	if store.Tracked(path) {
		t.Error("expected path to be untracked")
	}
}

func TestRelease_UntrackedPathIsNoOp(t *testing.T) {
	store := newTestStore(t)
	defer store.ReleaseAll()

	outside := filepath.Join(t.TempDir(), "caller-owned.obj")
	touch(t, outside)

	store.Release(outside)
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("caller-owned file was touched: %v", err)
	}
}

func TestReleaseAll_SweepsEverything(t *testing.T) {
	store := newTestStore(t)

	var paths []string
	for i := 0; i < 5; i++ {
		path, err := store.Allocate(".obj")
		if err != nil {
			t.Fatalf("allocate failed: %v", err)
		}
		touch(t, path)
		paths = append(paths, path)
	}

	store.ReleaseAll()

	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("expected %s to be removed", p)
		}
	}
	if _, err := os.Stat(store.Dir()); !os.IsNotExist(err) {
		t.Errorf("expected scratch dir %s to be removed", store.Dir())
	}
	if got := store.LiveCount(); got != 0 {
		t.Errorf("expected 0 live paths, got %d", got)
	}
}

type countingObserver struct {
	mu        sync.Mutex
	allocated int
	released  int
}

func (o *countingObserver) TempAllocated() {
	o.mu.Lock()
	o.allocated++
	o.mu.Unlock()
}

func (o *countingObserver) TempReleased() {
	o.mu.Lock()
	o.released++
	o.mu.Unlock()
}

func TestObserver_SeesAllocationsAndReleases(t *testing.T) {
	obs := &countingObserver{}
	store := newTestStore(t, WithObserver(obs))

	a, _ := store.Allocate(".obj")
	b, _ := store.Allocate(".obj")
	touch(t, a)
	touch(t, b)

	store.Release(a)
	store.ReleaseAll()

	if obs.allocated != 2 {
		t.Errorf("expected 2 allocations observed, got %d", obs.allocated)
	}
	if obs.released != 2 {
		t.Errorf("expected 2 releases observed, got %d", obs.released)
	}
}
