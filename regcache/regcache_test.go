package regcache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "cache.bolt"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := openTestCache(t)
	if _, ok := c.Get("/some/path", time.Now()); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c := openTestCache(t)
	mtime := time.Now()
	want := []byte("Registry.toml contents")
	c.Put("/registries/General/Registry.toml", mtime, want)

	got, ok := c.Get("/registries/General/Registry.toml", mtime)
	if !ok {
		t.Fatalf("expected hit")
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGetMissesOnMtimeChange(t *testing.T) {
	c := openTestCache(t)
	mtime := time.Now()
	c.Put("/a/Package.toml", mtime, []byte("v1"))

	if _, ok := c.Get("/a/Package.toml", mtime.Add(time.Second)); ok {
		t.Fatalf("expected miss after mtime drift")
	}
	if _, ok := c.Get("/a/Package.toml", mtime.Add(-time.Second)); ok {
		t.Fatalf("expected miss on earlier mtime too")
	}
}

func TestDistinctPathsDoNotCollide(t *testing.T) {
	c := openTestCache(t)
	mtime := time.Now()
	c.Put("/a/Versions.toml", mtime, []byte("a-data"))
	c.Put("/b/Versions.toml", mtime, []byte("b-data"))

	got, ok := c.Get("/a/Versions.toml", mtime)
	if !ok || string(got) != "a-data" {
		t.Fatalf("got %q, %v, want a-data, true", got, ok)
	}
	got, ok = c.Get("/b/Versions.toml", mtime)
	if !ok || string(got) != "b-data" {
		t.Fatalf("got %q, %v, want b-data, true", got, ok)
	}
}

func TestPutOverwritesPriorEntryAtSameMtime(t *testing.T) {
	c := openTestCache(t)
	mtime := time.Now()
	c.Put("/a/Compat.toml", mtime, []byte("old"))
	c.Put("/a/Compat.toml", mtime, []byte("new"))

	got, ok := c.Get("/a/Compat.toml", mtime)
	if !ok || string(got) != "new" {
		t.Fatalf("got %q, %v, want new, true", got, ok)
	}
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cache.bolt")
	mtime := time.Now()

	c1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c1.Put("/a/Deps.toml", mtime, []byte("deps-data"))
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()

	got, ok := c2.Get("/a/Deps.toml", mtime)
	if !ok || string(got) != "deps-data" {
		t.Fatalf("got %q, %v, want deps-data, true", got, ok)
	}
}
