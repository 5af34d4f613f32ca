package resolver

import (
	"github.com/pkgdepot/core/environment"
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/manifest"
	"github.com/pkgdepot/core/version"
)

// CollectFixed implements SPEC_FULL.md §4.5's fixed-package collection: a
// package is fixed if it is the environment's own project, its manifest
// entry is path-tracked, its manifest entry tracks an explicit git
// revision, or its manifest entry is pinned.
func CollectFixed(env *environment.Environment) map[ids.UUID]FixedPackage {
	fixed := make(map[ids.UUID]FixedPackage)

	if env.Project != nil && env.Project.IsPackage() {
		fixed[env.Project.UUID] = FixedPackage{Name: env.Project.Name, Version: versionOrZero(env.Project.Version), Deps: env.Project.Deps}
	}

	if env.Manifest == nil {
		return fixed
	}
	for u, entry := range env.Manifest.Deps {
		if !entry.IsPathDep() && !entry.IsGitRevDep() && !entry.Pinned {
			continue
		}
		fixed[u] = fixedFromEntry(entry)
	}
	return fixed
}

func fixedFromEntry(entry manifest.PackageEntry) FixedPackage {
	return FixedPackage{Name: entry.Name, Version: versionOrZero(entry.Version), Deps: entry.Deps}
}

func versionOrZero(v *version.Version) version.Version {
	if v == nil {
		return version.Version{}
	}
	return *v
}
