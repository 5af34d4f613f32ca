// Package manifest implements the two persisted artifacts of SPEC_FULL.md
// §5/§6.3: Project (direct deps + compat declarations) and Manifest (the
// fully resolved dependency graph), their TOML read/write paths, and the
// graph-integrity invariants checked on read. Grounded on golang-dep's
// manifest.go/lock.go for the overall "rawX struct + readX/MarshalX"
// shape, generalized from JSON to the TOML format and UUID-keyed graph this
// domain requires.
package manifest

import (
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/treehash"
	"github.com/pkgdepot/core/version"
)

// Source names where one dependency's code comes from: a local development
// path, or a git repository pinned to a revision. Exactly one of Path or
// (URL, Rev) may be set.
type Source struct {
	Path   string
	URL    string
	Rev    string
	Subdir string
}

// IsPath reports whether this source is a local path dependency.
func (s Source) IsPath() bool { return s.Path != "" }

// Project is the persisted direct-dependency declaration: what a developer
// writes, not what the resolver computes.
type Project struct {
	Name    string
	UUID    ids.UUID
	Version *version.Version

	Deps     map[string]ids.UUID
	WeakDeps map[string]ids.UUID
	Extras   map[string]ids.UUID

	Targets map[string][]string
	Compat  map[string]version.Compat
	Sources map[string]Source

	WorkspaceProjects []string

	// Other preserves unknown top-level scalar/list keys for round-trip.
	Other map[string]interface{}
}

// JuliaVersion returns the host-runtime compat entry (the "julia"
// pseudo-package), if the project declares one, per SPEC_FULL.md §5's
// typed-accessor supplement.
func (p *Project) JuliaVersion() (version.Compat, bool) {
	c, ok := p.Compat[ids.HostCompatName]
	return c, ok
}

// IsPackage reports whether this project is itself a publishable package
// (has a name and a uuid), as opposed to a bare application environment.
func (p *Project) IsPackage() bool {
	return p.Name != "" && p.UUID != ids.Nil
}

// PackageEntry is one resolved node of a Manifest: a concrete version (or
// local path) assignment plus its outgoing dependency edges.
type PackageEntry struct {
	Name       string
	Version    *version.Version
	Path       string
	Pinned     bool
	RepoURL    string
	RepoRev    string
	RepoSubdir string
	TreeHash   *treehash.Hash
	Deps       map[string]ids.UUID

	Other map[string]interface{}
}

// IsPathDep reports whether this entry tracks a local development path
// rather than a registry-resolved version.
func (e PackageEntry) IsPathDep() bool { return e.Path != "" }

// IsGitRevDep reports whether this entry tracks an explicit git revision
// rather than a registry-resolved version, per SPEC_FULL.md §4.5's
// fixed-package criterion (c).
func (e PackageEntry) IsGitRevDep() bool { return e.RepoRev != "" }

// HostVersionField is the manifest's host_version entry: either a concrete
// parsed version, or the literal "nothing" tombstone a legacy-manifest
// migration writes when the version that produced the existing entries
// can no longer be recovered (SPEC_FULL.md §8, "host_version (string or
// 'nothing')"). The zero value means the key is absent entirely.
type HostVersionField struct {
	Version *version.Version
	Unknown bool
}

// Manifest is the persisted, fully resolved dependency graph.
type Manifest struct {
	HostVersion HostVersionField
	ProjectHash string
	Deps        map[ids.UUID]PackageEntry
}

// treeHashFromString is a small helper used by manifest_io.go when reading
// an optional tree-hash field.
func treeHashFromString(s string) (*treehash.Hash, error) {
	if s == "" {
		return nil, nil
	}
	h, err := treehash.ParseHash(s)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
