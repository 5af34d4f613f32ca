package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/version"
)

const testRegistryTOML = `
name = "TestRegistry"
uuid = "23338594-aafe-5451-b93e-139f81909106"
repo = "https://example.com/registry.git"

[packages]
00000000-0000-0000-0000-000000000001 = { name = "Alpha", path = "A/Alpha" }
`

const testVersionsTOML = `
["1.0.0"]
git-tree-sha1 = "000000000000000000000000000000000000000a"

["1.1.0"]
git-tree-sha1 = "000000000000000000000000000000000000000b"
yanked = true
`

const testCompatTOML = `
["1.0.0-1.1.0"]
julia = "^1"
Beta = "^2.0"
`

const testDepsTOML = `
["1.0.0-1.1.0"]
Beta = "00000000-0000-0000-0000-000000000002"
`

func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Registry.toml"), testRegistryTOML)
	pkgDir := filepath.Join(root, "A", "Alpha")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(pkgDir, "Package.toml"), `repo = "https://example.com/alpha.git"`+"\n")
	mustWrite(t, filepath.Join(pkgDir, "Versions.toml"), testVersionsTOML)
	mustWrite(t, filepath.Join(pkgDir, "Compat.toml"), testCompatTOML)
	mustWrite(t, filepath.Join(pkgDir, "Deps.toml"), testDepsTOML)
	return root
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenAndLookup(t *testing.T) {
	root := writeFixture(t)
	reg, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reg.Name != "TestRegistry" {
		t.Errorf("Name = %q, want TestRegistry", reg.Name)
	}

	alphaUUID := ids.MustParseUUID("00000000-0000-0000-0000-000000000001")
	uuids := reg.UUIDsForName("Alpha")
	if len(uuids) != 1 || uuids[0] != alphaUUID {
		t.Fatalf("UUIDsForName(Alpha) = %v, want [%v]", uuids, alphaUUID)
	}

	entry, ok := reg.Get(alphaUUID)
	if !ok || entry.Path != "A/Alpha" {
		t.Fatalf("Get(alphaUUID) = %+v, %v", entry, ok)
	}
}

func TestRegistryInfoLazyLoadAndYank(t *testing.T) {
	root := writeFixture(t)
	reg, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	alphaUUID := ids.MustParseUUID("00000000-0000-0000-0000-000000000001")
	entry, _ := reg.Get(alphaUUID)

	info, err := reg.RegistryInfo(entry)
	if err != nil {
		t.Fatalf("RegistryInfo: %v", err)
	}
	if len(info.Versions) != 2 {
		t.Fatalf("Versions = %v, want 2 entries", info.Versions)
	}

	v110, _ := version.ParseVersion("1.1.0")
	if !reg.IsYanked(info, v110) {
		t.Errorf("1.1.0 should be yanked")
	}
	v100, _ := version.ParseVersion("1.0.0")
	if reg.IsYanked(info, v100) {
		t.Errorf("1.0.0 should not be yanked")
	}

	h, ok := reg.TreeHash(info, v100)
	if !ok || h.String() != "000000000000000000000000000000000000000a" {
		t.Errorf("TreeHash(1.0.0) = %v, %v", h, ok)
	}
}

func TestUncompressedCompatResolvesHostAndDeps(t *testing.T) {
	root := writeFixture(t)
	reg, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	alphaUUID := ids.MustParseUUID("00000000-0000-0000-0000-000000000001")
	entry, _ := reg.Get(alphaUUID)
	info, err := reg.RegistryInfo(entry)
	if err != nil {
		t.Fatalf("RegistryInfo: %v", err)
	}

	compat, err := reg.UncompressedCompat(info)
	if err != nil {
		t.Fatalf("UncompressedCompat: %v", err)
	}
	m, ok := compat["1.0.0"]
	if !ok {
		t.Fatalf("no compat entry for 1.0.0: %v", compat)
	}
	if _, ok := m[ids.HostUUID]; !ok {
		t.Errorf("expected julia compat resolved to HostUUID, got %v", m)
	}
	betaUUID := ids.MustParseUUID("00000000-0000-0000-0000-000000000002")
	spec, ok := m[betaUUID]
	if !ok {
		t.Fatalf("expected Beta compat resolved via Deps.toml, got %v", m)
	}
	v200, _ := version.ParseVersion("2.0.0")
	if !spec.Contains(v200) {
		t.Errorf("Beta spec should contain 2.0.0: %v", spec)
	}

	// Calling twice must return the cached, identical result (one-shot cell).
	compat2, err := reg.UncompressedCompat(info)
	if err != nil {
		t.Fatalf("UncompressedCompat (second call): %v", err)
	}
	if len(compat2) != len(compat) {
		t.Errorf("second call returned different result: %v vs %v", compat2, compat)
	}
}

func TestOverlappingCompatRangesConflict(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Registry.toml"), testRegistryTOML)
	pkgDir := filepath.Join(root, "A", "Alpha")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, filepath.Join(pkgDir, "Versions.toml"), `["1.0.0"]`+"\n"+`git-tree-sha1 = "000000000000000000000000000000000000000a"`+"\n")
	mustWrite(t, filepath.Join(pkgDir, "Compat.toml"), `
["1.0.0"]
Beta = "^1.0"

["0.5.0-1.0.0"]
Beta = "^2.0"
`)
	mustWrite(t, filepath.Join(pkgDir, "Deps.toml"), `
["1.0.0"]
Beta = "00000000-0000-0000-0000-000000000002"
`)

	reg, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	alphaUUID := ids.MustParseUUID("00000000-0000-0000-0000-000000000001")
	entry, _ := reg.Get(alphaUUID)
	info, err := reg.RegistryInfo(entry)
	if err != nil {
		t.Fatalf("RegistryInfo: %v", err)
	}
	if _, err := reg.UncompressedCompat(info); err == nil {
		t.Fatalf("expected overlapping compat ranges to fail, got nil error")
	}
}
