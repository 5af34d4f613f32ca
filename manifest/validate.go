package manifest

import (
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/perr"
)

// Validate checks the Project invariants of SPEC_FULL.md §5:
//   - no uuid appears under two different names across deps/weakdeps/extras
//   - every key referenced by targets/compat/sources is a declared dependency
//     name ("julia" is the sole exception for compat)
func (p *Project) Validate() error {
	nameForUUID := make(map[ids.UUID]string)
	depNames := make(map[string]bool)

	for _, m := range []map[string]ids.UUID{p.Deps, p.WeakDeps, p.Extras} {
		for name, u := range m {
			depNames[name] = true
			if existing, ok := nameForUUID[u]; ok && existing != name {
				return perr.New(perr.GraphInvariantError,
					"uuid %s is declared under both %q and %q", u, existing, name).WithUUID(u.String())
			}
			nameForUUID[u] = name
		}
	}

	for target, names := range p.Targets {
		for _, name := range names {
			if !depNames[name] {
				return perr.New(perr.GraphInvariantError,
					"target %q references %q, which is not a declared dependency", target, name).WithName(name)
			}
		}
	}
	for name := range p.Compat {
		if name == ids.HostCompatName {
			continue
		}
		if !depNames[name] {
			return perr.New(perr.GraphInvariantError,
				"compat entry %q has no matching dependency declaration", name).WithName(name)
		}
	}
	for name := range p.Sources {
		if !depNames[name] {
			return perr.New(perr.GraphInvariantError,
				"sources entry %q has no matching dependency declaration", name).WithName(name)
		}
	}
	return nil
}

// Validate checks the Manifest graph invariants of SPEC_FULL.md §5:
//  1. every uuid referenced by an entry's Deps resolves within the manifest
//     (ids.HostUUID is always considered resolved, since it is injected rather
//     than installed)
//  2. for every edge (u, name) -> v, Deps[v].Name == name
func (m *Manifest) Validate() error {
	for owner, entry := range m.Deps {
		for name, target := range entry.Deps {
			if target == ids.HostUUID {
				continue
			}
			targetEntry, ok := m.Deps[target]
			if !ok {
				return perr.New(perr.GraphInvariantError,
					"entry %q (%s) depends on %s, which has no manifest entry", entry.Name, owner, target).
					WithUUID(owner.String())
			}
			if targetEntry.Name != name {
				return perr.New(perr.GraphInvariantError,
					"entry %q (%s) names its dependency %q but %s is named %q in the manifest",
					entry.Name, owner, name, target, targetEntry.Name).WithUUID(target.String())
			}
		}
	}
	return nil
}
