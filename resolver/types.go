// Package resolver implements SPEC_FULL.md §4.5/§6.5: fixed-package
// collection, requirement-set construction, transitive graph construction
// against an ordered list of registries, a backtracking solver maximizing
// version subject to an upgrade-level cap, and post-processing (tree-hash
// cross-registry agreement, pinned-flag preservation).
//
// Grounded on golang-dep's solver.go/internal/gps for the overall shape of a
// worklist-driven constraint solver with a selection stack and per-package
// version queues; the concrete solve procedure here is this implementation's
// own backtracking backend, per SPEC_FULL.md §6.5's "pluggable solver
// backend" note — only the contract (a feasible, preference-maximizing
// per-uuid version assignment) is fixed by the spec.
package resolver

import (
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/version"
)

// UpgradeLevel caps how far an already-manifested package may move during a
// resolve, per SPEC_FULL.md §4.5's preference policy.
type UpgradeLevel uint8

const (
	// Fixed forbids any change to an entry's current version.
	Fixed UpgradeLevel = iota
	// Patch allows changes only within the same (major, minor).
	Patch
	// Minor allows changes within the same major.
	Minor
	// Major is unconstrained.
	Major
)

// FixedPackage is a package node whose version the resolver may not choose:
// the environment's own project, a path-tracked or git-revision-tracked
// manifest entry, or one explicitly pinned, per SPEC_FULL.md §4.5's
// fixed-package collection rule. Name is carried alongside so post-
// processing can reconstruct a manifest deps: name -> uuid entry for a node
// whose name never comes from a registry.
type FixedPackage struct {
	Name    string
	Version version.Version
	Deps    map[string]ids.UUID
}

// HostLibrary describes one package the host runtime itself ships
// (SPEC_FULL.md §4.5's "known host-runtime-shipped library" case): it
// contributes a single graph node pinned at the host version, with compat
// drawn from its own declared dependencies. This has no registry backing
// it; it is supplied by the caller (the engine's embedding application),
// not discovered.
type HostLibrary struct {
	Name string
	Deps map[string]ids.UUID
}

// HostLibraries is the full fixed set, keyed by uuid.
type HostLibraries map[ids.UUID]HostLibrary

// Graph is the transitive-closure output of BuildGraph: every version a
// uuid could possibly take, and the compat requirements each (uuid,
// version) pair places on its dependencies.
type Graph struct {
	// AllVersions lists, for each uuid reachable from the worklist seed, the
	// versions available to it (already yank-filtered for registry-backed
	// packages; a single entry for fixed/host nodes).
	AllVersions map[ids.UUID][]version.Version

	// AllCompat maps uuid -> version string -> dependency uuid -> required
	// spec, i.e. the edges each candidate (uuid, version) assignment would
	// introduce.
	AllCompat map[ids.UUID]map[string]map[ids.UUID]version.Spec

	// NameLookup maps uuid -> a human-readable name, for diagnostic text
	// (SPEC_FULL.md §4.5's "use name_lookup for user-facing text") and for
	// reconstructing a resolved node's deps: name -> uuid map during
	// post-processing.
	NameLookup map[ids.UUID]string
}

func (g *Graph) versionsFor(u ids.UUID) []version.Version { return g.AllVersions[u] }

func (g *Graph) compatFor(u ids.UUID, v version.Version) map[ids.UUID]version.Spec {
	byVersion := g.AllCompat[u]
	if byVersion == nil {
		return nil
	}
	return byVersion[v.String()]
}

func (g *Graph) name(u ids.UUID) string {
	if n, ok := g.NameLookup[u]; ok {
		return n
	}
	return u.String()
}
