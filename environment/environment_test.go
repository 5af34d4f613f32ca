package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/manifest"
	"github.com/pkgdepot/core/treehash"
)

const testProjectTOML = `
name = "Widgets"
uuid = "11111111-1111-1111-1111-111111111111"

[deps]
Foo = "22222222-2222-2222-2222-222222222222"
`

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestOpenLoadsProjectAndManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Project.toml"), testProjectTOML)
	writeFile(t, filepath.Join(dir, "Manifest.toml"), `
[[deps.Foo]]
uuid = "22222222-2222-2222-2222-222222222222"
version = "1.0.0"
`)

	env, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if env.Project.Name != "Widgets" {
		t.Errorf("Project.Name = %q", env.Project.Name)
	}
	if env.Manifest == nil {
		t.Fatalf("expected manifest to be loaded")
	}
	fooUUID := ids.MustParseUUID("22222222-2222-2222-2222-222222222222")
	if _, ok := env.Manifest.Deps[fooUUID]; !ok {
		t.Errorf("manifest missing Foo entry")
	}
}

func TestOpenWithoutManifestLeavesItNil(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Project.toml"), testProjectTOML)

	env, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if env.Manifest != nil {
		t.Errorf("expected nil manifest, got %+v", env.Manifest)
	}
	if env.ManifestPath == "" {
		t.Errorf("expected a default manifest path to be set")
	}
}

func TestOpenMissingProjectErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, nil); err == nil {
		t.Fatalf("expected error opening a directory with no project file")
	}
}

func TestPruneManifestRemovesUnreachable(t *testing.T) {
	fooUUID := ids.MustParseUUID("22222222-2222-2222-2222-222222222222")
	barUUID := ids.MustParseUUID("33333333-3333-3333-3333-333333333333")
	orphanUUID := ids.MustParseUUID("44444444-4444-4444-4444-444444444444")

	project := &manifest.Project{
		UUID: ids.MustParseUUID("11111111-1111-1111-1111-111111111111"),
		Deps: map[string]ids.UUID{"Foo": fooUUID},
	}
	m := &manifest.Manifest{Deps: map[ids.UUID]manifest.PackageEntry{
		fooUUID:    {Name: "Foo", Deps: map[string]ids.UUID{"Bar": barUUID}},
		barUUID:    {Name: "Bar"},
		orphanUUID: {Name: "Orphan"},
	}}

	PruneManifest(project, m)

	if _, ok := m.Deps[fooUUID]; !ok {
		t.Errorf("Foo should remain reachable")
	}
	if _, ok := m.Deps[barUUID]; !ok {
		t.Errorf("Bar should remain reachable (Foo -> Bar)")
	}
	if _, ok := m.Deps[orphanUUID]; ok {
		t.Errorf("Orphan should have been pruned")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	project := &manifest.Project{
		Name: "Widgets",
		UUID: ids.MustParseUUID("11111111-1111-1111-1111-111111111111"),
		Deps: map[string]ids.UUID{"Foo": ids.MustParseUUID("22222222-2222-2222-2222-222222222222")},
	}
	env := &Environment{
		Dir:          dir,
		ProjectPath:  filepath.Join(dir, "Project.toml"),
		ManifestPath: filepath.Join(dir, "Manifest.toml"),
		Project:      project,
		Manifest: &manifest.Manifest{Deps: map[ids.UUID]manifest.PackageEntry{
			ids.MustParseUUID("22222222-2222-2222-2222-222222222222"): {Name: "Foo"},
		}},
	}

	if err := Write(env); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("re-opening written environment: %v", err)
	}
	if reopened.Project.Name != "Widgets" {
		t.Errorf("Project.Name = %q", reopened.Project.Name)
	}
	if reopened.Manifest == nil || len(reopened.Manifest.Deps) != 1 {
		t.Errorf("Manifest.Deps = %+v", reopened.Manifest)
	}
}

func TestSlugIsStableAndDistinct(t *testing.T) {
	u1 := ids.MustParseUUID("11111111-1111-1111-1111-111111111111")
	u2 := ids.MustParseUUID("22222222-2222-2222-2222-222222222222")
	h1 := treehash.Hash{1, 2, 3}
	h2 := treehash.Hash{4, 5, 6}

	if Slug(u1, h1) != Slug(u1, h1) {
		t.Errorf("Slug is not stable for identical inputs")
	}
	if Slug(u1, h1) == Slug(u2, h1) {
		t.Errorf("Slug collided across different uuids")
	}
	if Slug(u1, h1) == Slug(u1, h2) {
		t.Errorf("Slug collided across different tree hashes")
	}
}

func TestFindInstalledSearchesDepotsInOrder(t *testing.T) {
	depot1 := t.TempDir()
	depot2 := t.TempDir()
	u := ids.MustParseUUID("11111111-1111-1111-1111-111111111111")
	h := treehash.Hash{9, 9, 9}
	slug := Slug(u, h)

	installDir := filepath.Join(depot2, "packages", "Foo", slug)
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		t.Fatalf("setting up fixture: %v", err)
	}

	path, ok := FindInstalled([]string{depot1, depot2}, "Foo", u, h)
	if !ok {
		t.Fatalf("expected to find install under depot2")
	}
	if path != installDir {
		t.Errorf("path = %q, want %q", path, installDir)
	}
}

func TestInstantiatePathPrefersLocalPath(t *testing.T) {
	u := ids.MustParseUUID("11111111-1111-1111-1111-111111111111")
	path, ok := InstantiatePath(nil, "/env", "Foo", u, "../Foo", treehash.Hash{}, false)
	if !ok {
		t.Fatalf("expected a path-dep resolution")
	}
	if path != filepath.Join("/env", "../Foo") {
		t.Errorf("path = %q", path)
	}
}
