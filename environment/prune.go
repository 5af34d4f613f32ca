package environment

import (
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/manifest"
)

// PruneManifest deletes every manifest entry not reachable from the
// project's own roots, per SPEC_FULL.md §4.4's prune_manifest: roots are the
// project's own uuid (if it is itself a package) union the uuids the
// project directly depends on (deps/weakdeps/extras all count, since any of
// them can anchor a live subgraph); reachability is a plain BFS over each
// entry's outgoing Deps edges. A nil project contributes no roots, so every
// entry of m is deleted.
func PruneManifest(project *manifest.Project, m *manifest.Manifest) {
	if m == nil {
		return
	}

	roots := make(map[ids.UUID]bool)
	if project != nil {
		if project.UUID != ids.Nil {
			roots[project.UUID] = true
		}
		for _, m := range []map[string]ids.UUID{project.Deps, project.WeakDeps, project.Extras} {
			for _, u := range m {
				roots[u] = true
			}
		}
	}

	reached := make(map[ids.UUID]bool, len(roots))
	var queue []ids.UUID
	for u := range roots {
		if u == ids.HostUUID {
			continue
		}
		if !reached[u] {
			reached[u] = true
			queue = append(queue, u)
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		entry, ok := m.Deps[u]
		if !ok {
			continue
		}
		for _, target := range entry.Deps {
			if target == ids.HostUUID || reached[target] {
				continue
			}
			reached[target] = true
			queue = append(queue, target)
		}
	}

	for u := range m.Deps {
		if !reached[u] {
			delete(m.Deps, u)
		}
	}
}
