// Package fetcher implements the Fetcher collaborator interface SPEC_FULL.md
// §1/§8 treats as external: EnsureInstalled(name, uuid, treeHash) -> path.
// Grounded on golang-dep's project_manager.go ExportVersionTo (the
// shutil.CopyTree-based "materialize a checked-out tree at a target
// location, skipping vendor/.bzr/.svn/.hg" fallback path) and on
// txn_writer.go's write-to-temp-then-rename discipline, applied here to a
// directory install rather than a single file.
package fetcher

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/termie/go-shutil"

	"github.com/pkgdepot/core/environment"
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/treehash"
)

// Fetcher is the narrow interface the resolver/install layer calls into to
// materialize a resolved package at a content-addressed install path, per
// SPEC_FULL.md §1.
type Fetcher interface {
	EnsureInstalled(name string, uuid ids.UUID, hash treehash.Hash) (path string, err error)
}

// SourceProvider supplies a local, already-checked-out source tree for
// (name, uuid, hash) — typically a VcsBackend-managed staging checkout.
// Obtaining that tree (clone, archive download, cache hit) is itself out of
// SPEC_FULL.md's scope; TreeFetcher only owns copying it into the depot.
type SourceProvider func(name string, uuid ids.UUID, hash treehash.Hash) (dir string, err error)

// TreeFetcher is the one concrete Fetcher implementation: it checks the
// depot for an existing install first, and otherwise copies a
// SourceProvider-supplied tree into place under a temporary name, verifies
// its tree hash, and renames it into its final content-addressed slug.
type TreeFetcher struct {
	DepotRoots []string
	Source     SourceProvider
}

// NewTreeFetcher constructs a TreeFetcher that installs into the first of
// depotRoots and searches all of them for an existing install, matching
// environment.InstantiatePath's own depot-list precedence.
func NewTreeFetcher(depotRoots []string, source SourceProvider) *TreeFetcher {
	return &TreeFetcher{DepotRoots: depotRoots, Source: source}
}

func (f *TreeFetcher) EnsureInstalled(name string, uuid ids.UUID, hash treehash.Hash) (string, error) {
	if path, ok := environment.FindInstalled(f.DepotRoots, name, uuid, hash); ok {
		return path, nil
	}
	if len(f.DepotRoots) == 0 {
		return "", perr.New(perr.IoError, "no depot root configured to install %s into", name)
	}

	srcDir, err := f.Source(name, uuid, hash)
	if err != nil {
		return "", perr.Wrap(perr.IoError, err, "obtaining source tree for %s", name)
	}

	packagesDir := filepath.Join(f.DepotRoots[0], "packages", name)
	if err := os.MkdirAll(packagesDir, 0o755); err != nil {
		return "", perr.Wrap(perr.IoError, err, "creating %s", packagesDir).WithPath(packagesDir)
	}

	slug := environment.Slug(uuid, hash)
	dest := filepath.Join(packagesDir, slug)
	tmp := filepath.Join(packagesDir, fmt.Sprintf(".tmp-%s-%08x", slug, rand.Uint32()))

	cfg := &shutil.CopyTreeOptions{
		Symlinks:     true,
		CopyFunction: shutil.Copy,
		Ignore:       ignoreVCSDirs,
	}
	if err := shutil.CopyTree(srcDir, tmp, cfg); err != nil {
		os.RemoveAll(tmp)
		return "", perr.Wrap(perr.IoError, err, "copying %s into the depot", name).WithPath(tmp)
	}

	got, err := treehash.Compute(tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return "", perr.Wrap(perr.IoError, err, "verifying tree hash of %s", name).WithPath(tmp)
	}
	if got != hash {
		os.RemoveAll(tmp)
		return "", perr.New(perr.TreeHashConflict,
			"copied tree for %s hashes to %s, expected %s", name, got, hash).WithName(name)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)
		return "", perr.Wrap(perr.IoError, err, "installing %s", name).WithPath(dest)
	}
	return dest, nil
}

// ignoreVCSDirs skips the same VCS metadata directories golang-dep's own
// ExportVersionTo fallback path skips, so an installed tree never carries
// another project's version-control state along with it.
func ignoreVCSDirs(src string, contents []os.FileInfo) []string {
	var ignore []string
	for _, fi := range contents {
		if !fi.IsDir() {
			continue
		}
		switch fi.Name() {
		case "vendor", ".git", ".bzr", ".svn", ".hg":
			ignore = append(ignore, fi.Name())
		}
	}
	return ignore
}
