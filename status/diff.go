// Package status implements SPEC_FULL.md §4.6/§6.6: diffing two manifests
// into a per-package row classification (added/removed/upgraded/downgraded/
// changed), plus heldback/upgradable detection against the live registry
// set and yanked-in-every-registry flagging. Grounded on golang-dep's own
// status.go (cmd/dep/status.go in the teacher's original layout) for the
// shape of a row-per-package comparison against a baseline lock file,
// generalized here from import-path keys to package uuids.
package status

import (
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/manifest"
)

// Kind classifies one row of a Diff, per SPEC_FULL.md §4.6.
type Kind int

const (
	Unchanged Kind = iota
	Added
	Removed
	Upgraded
	Downgraded
	Changed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Upgraded:
		return "upgraded"
	case Downgraded:
		return "downgraded"
	case Changed:
		return "changed"
	default:
		return "unchanged"
	}
}

// Row is one package's before/after comparison. Old/New are nil when the
// package is absent from that side.
type Row struct {
	UUID ids.UUID
	Old  *manifest.PackageEntry
	New  *manifest.PackageEntry
	Kind Kind

	// Heldback/Upgradable/Yanked are filled in by AnnotateHeldback, not by
	// Diff itself: they require querying the live registry set, which a bare
	// manifest-to-manifest diff has no access to.
	Heldback          bool
	Upgradable        bool
	Yanked            bool
	HeldbackCandidate *HeldbackCandidate
}

// HeldbackCandidate says why a newer published version can't be selected:
// the registry that published the newest blocked version and the source of
// the compat declaration rejecting it. The blocked version itself is not
// recorded.
type HeldbackCandidate struct {
	Registry       string
	LimitingCompat string
}

// Diff compares a baseline manifest (the previous manifest, or nil for "no
// baseline") against a freshly resolved one, producing one Row per uuid that
// appears on either side.
func Diff(old, new *manifest.Manifest) []Row {
	uuids := make(map[ids.UUID]bool)
	if old != nil {
		for u := range old.Deps {
			uuids[u] = true
		}
	}
	if new != nil {
		for u := range new.Deps {
			uuids[u] = true
		}
	}

	rows := make([]Row, 0, len(uuids))
	for u := range uuids {
		var oldEntry, newEntry *manifest.PackageEntry
		if old != nil {
			if e, ok := old.Deps[u]; ok {
				ee := e
				oldEntry = &ee
			}
		}
		if new != nil {
			if e, ok := new.Deps[u]; ok {
				ee := e
				newEntry = &ee
			}
		}
		rows = append(rows, Row{UUID: u, Old: oldEntry, New: newEntry, Kind: classify(oldEntry, newEntry)})
	}
	return rows
}

// classify implements SPEC_FULL.md §4.6's row classification.
func classify(old, new *manifest.PackageEntry) Kind {
	switch {
	case old == nil && new == nil:
		return Unchanged
	case old == nil:
		return Added
	case new == nil:
		return Removed
	}

	if registryTracked(old) && registryTracked(new) {
		switch old.Version.Compare(*new.Version) {
		case 0:
			if sameSource(old, new) {
				return Unchanged
			}
			return Changed
		case -1:
			return Upgraded
		default:
			return Downgraded
		}
	}

	if sameSource(old, new) {
		return Unchanged
	}
	return Changed
}

func registryTracked(e *manifest.PackageEntry) bool {
	return e != nil && !e.IsPathDep() && !e.IsGitRevDep() && e.Version != nil
}

func sameSource(old, new *manifest.PackageEntry) bool {
	if old.Pinned != new.Pinned {
		return false
	}
	if old.Path != new.Path || old.RepoURL != new.RepoURL || old.RepoRev != new.RepoRev || old.RepoSubdir != new.RepoSubdir {
		return false
	}
	if registryTracked(old) && registryTracked(new) {
		return old.Version.Equal(*new.Version)
	}
	if old.Version == nil || new.Version == nil {
		return old.Version == new.Version
	}
	return old.Version.Equal(*new.Version)
}
