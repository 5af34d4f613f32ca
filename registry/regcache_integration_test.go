package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkgdepot/core/regcache"
	"github.com/pkgdepot/core/registry"
)

const integrationRegistryTOML = `
name = "CacheTestRegistry"
uuid = "23338594-aafe-5451-b93e-139f81909106"
repo = "https://example.com/registry.git"

[packages]
00000000-0000-0000-0000-000000000001 = { name = "Alpha", path = "A/Alpha" }
`

// TestRegcacheServesStaleReadsAfterDiskCorruption demonstrates that
// installing a regcache.Cache actually changes registry's read behavior,
// not just that the two packages compile against each other: once
// Registry.toml has been read and cached, corrupting the file on disk
// without touching its mtime must not be observable through registry.Open.
func TestRegcacheServesStaleReadsAfterDiskCorruption(t *testing.T) {
	root := t.TempDir()
	regPath := filepath.Join(root, "Registry.toml")
	if err := os.WriteFile(regPath, []byte(integrationRegistryTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	cache, err := regcache.Install(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	defer cache.Close()

	reg, err := registry.Open(root)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if reg.Name != "CacheTestRegistry" {
		t.Fatalf("got name %q, want CacheTestRegistry", reg.Name)
	}

	st, err := os.Stat(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(regPath, []byte("this is not valid toml {{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Restore the mtime the cache entry was keyed on, simulating a write
	// that a coarse mtime clock couldn't distinguish from the original.
	if err := os.Chtimes(regPath, st.ModTime(), st.ModTime()); err != nil {
		t.Fatal(err)
	}

	reg2, err := registry.Open(root)
	if err != nil {
		t.Fatalf("second Open should have been served from cache, got error: %v", err)
	}
	if reg2.Name != "CacheTestRegistry" {
		t.Fatalf("got name %q from cached read, want CacheTestRegistry", reg2.Name)
	}

	// Sanity check: with the cache uninstalled, the corrupted file does
	// surface an error, confirming the prior success really came from the
	// cache rather than the corruption being somehow harmless.
	cache.Close()
	if _, err := registry.Open(root); err == nil {
		t.Fatalf("expected Open to fail once reading the corrupted file directly")
	}
}
