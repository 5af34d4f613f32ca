package resolver

import (
	"context"
	"sort"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/registry"
	"github.com/pkgdepot/core/version"
)

// BuildGraph implements SPEC_FULL.md §4.5's deps_graph construction: a
// worklist seeded from the union of requirements, fixed packages, and every
// fixed package's own declared dependency uuids, iterated to a transitive
// closure. ctx is checked at each registry query boundary so a caller can
// cancel a resolve that's querying many registries (SPEC_FULL.md §6.5).
func BuildGraph(
	ctx context.Context,
	registries []*registry.Registry,
	requirements map[ids.UUID]version.Spec,
	fixed map[ids.UUID]FixedPackage,
	hostVersion version.Version,
	hostLibraries HostLibraries,
) (*Graph, error) {
	g := &Graph{
		AllVersions: make(map[ids.UUID][]version.Version),
		AllCompat:   make(map[ids.UUID]map[string]map[ids.UUID]version.Spec),
		NameLookup:  map[ids.UUID]string{ids.HostUUID: ids.HostCompatName},
	}

	seen := make(map[ids.UUID]bool)
	var worklist []ids.UUID
	enqueue := func(u ids.UUID) {
		if !seen[u] {
			seen[u] = true
			worklist = append(worklist, u)
		}
	}

	for u := range requirements {
		enqueue(u)
	}
	for u, fp := range fixed {
		enqueue(u)
		for _, dep := range fp.Deps {
			enqueue(dep)
		}
	}

	for len(worklist) > 0 {
		u := worklist[0]
		worklist = worklist[1:]
		if u == ids.HostUUID {
			if !hostVersion.IsZero() {
				g.AllVersions[u] = []version.Version{hostVersion}
				g.AllCompat[u] = map[string]map[ids.UUID]version.Spec{hostVersion.String(): {}}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil, perr.Wrap(perr.Cancelled, ctx.Err(), "resolving")
		default:
		}

		if fp, ok := fixed[u]; ok {
			g.AllVersions[u] = []version.Version{fp.Version}
			g.AllCompat[u] = map[string]map[ids.UUID]version.Spec{
				fp.Version.String(): specMapForDeps(fp.Deps),
			}
			if fp.Name != "" {
				g.NameLookup[u] = fp.Name
			}
			continue
		}

		if hl, ok := hostLibraries[u]; ok {
			g.AllVersions[u] = []version.Version{hostVersion}
			g.AllCompat[u] = map[string]map[ids.UUID]version.Spec{
				hostVersion.String(): specMapForDeps(hl.Deps),
			}
			if hl.Name != "" {
				g.NameLookup[u] = hl.Name
			}
			for _, dep := range hl.Deps {
				enqueue(dep)
			}
			continue
		}

		versions, compat, name, err := queryRegistries(ctx, registries, u)
		if err != nil {
			return nil, err
		}
		g.AllVersions[u] = versions
		g.AllCompat[u] = compat
		if name != "" {
			g.NameLookup[u] = name
		}
		for _, byVersion := range compat {
			for dep := range byVersion {
				enqueue(dep)
			}
		}
	}

	return g, nil
}

// specMapForDeps converts a fixed/host node's plain name->uuid dependency
// map into the uuid->VersionSpec form the graph stores: a fixed or
// host-shipped node's declared deps are unconstrained by version (the graph
// doesn't know what compat that manifest entry originally recorded for
// them, only which uuids it points at), so every edge admits any version.
func specMapForDeps(deps map[string]ids.UUID) map[ids.UUID]version.Spec {
	out := make(map[ids.UUID]version.Spec, len(deps))
	for _, u := range deps {
		out[u] = version.Any()
	}
	return out
}

// queryRegistries iterates every registry containing u, in order, unioning
// their non-yanked versions and compat edges. Per SPEC_FULL.md §4.5, this is
// a union across registries (a package may be mirrored in more than one),
// with tree-hash agreement checked later during post-processing, not here.
func queryRegistries(ctx context.Context, registries []*registry.Registry, u ids.UUID) ([]version.Version, map[string]map[ids.UUID]version.Spec, string, error) {
	versions := make(map[string]version.Version)
	compat := make(map[string]map[ids.UUID]version.Spec)
	name := ""

	for _, reg := range registries {
		select {
		case <-ctx.Done():
			return nil, nil, "", perr.Wrap(perr.Cancelled, ctx.Err(), "querying registry %s", reg.Name)
		default:
		}

		entry, ok := reg.Get(u)
		if !ok {
			continue
		}
		if name == "" {
			name = entry.Name
		}

		info, err := reg.RegistryInfo(entry)
		if err != nil {
			return nil, nil, "", err
		}
		uncompressed, err := reg.UncompressedCompat(info)
		if err != nil {
			return nil, nil, "", err
		}

		for _, v := range info.Versions {
			if reg.IsYanked(info, v) {
				continue
			}
			versions[v.String()] = v
			compat[v.String()] = uncompressed[v.String()]
		}
	}

	out := make([]version.Version, 0, len(versions))
	for _, v := range versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, compat, name, nil
}
