package status

import (
	"sort"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/manifest"
	"github.com/pkgdepot/core/registry"
	"github.com/pkgdepot/core/version"
)

// AnnotateHeldback implements SPEC_FULL.md §4.6's heldback/upgradable/yanked
// classification and §6.6's supplement (naming the registry and the
// limiting compat declaration). It mutates each row in place so callers can
// run Diff once and annotate the result against a live registry set.
func AnnotateHeldback(rows []Row, project *manifest.Project, m *manifest.Manifest, registries []*registry.Registry, hostVersion version.Version) error {
	directName := make(map[ids.UUID]string)
	if project != nil {
		for name, u := range project.Deps {
			directName[u] = name
		}
	}

	for i := range rows {
		row := &rows[i]
		if row.New == nil || !registryTracked(row.New) {
			continue
		}

		candidates, err := allNonYankedVersions(registries, row.UUID)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			// Every registry that ever published this uuid has yanked every
			// version it knows about (or none publish it at all, which the
			// resolver would already have rejected upstream).
			row.Yanked = hadAnyVersion(registries, row.UUID)
			continue
		}

		current := *row.New.Version
		constraints := dependentConstraints(m, registries, row.UUID)
		if name, ok := directName[row.UUID]; ok && project != nil {
			if c, ok := project.Compat[name]; ok {
				constraints = append(constraints, namedSpec{source: "project", spec: c.Spec})
			}
		}

		sort.Slice(candidates, func(i, j int) bool { return candidates[j].version.Less(candidates[i].version) })
		greatestOverall := candidates[0]

		var greatestFeasible *version.Version
		var limiting namedSpec
		var limitingFromRegistry string
		for _, cand := range candidates {
			ok, failedOn := feasible(constraints, cand.version, row.UUID, registries, hostVersion)
			if ok {
				vv := cand.version
				greatestFeasible = &vv
				break
			}
			if limitingFromRegistry == "" {
				// candidates is sorted greatest-first, so the first failure seen
				// is the one blocking the newest published candidate.
				limiting = failedOn
				limitingFromRegistry = cand.registry
			}
		}

		if greatestFeasible != nil && current.Less(*greatestFeasible) {
			row.Upgradable = true
			continue
		}
		if current.Less(greatestOverall.version) {
			row.Heldback = true
			row.HeldbackCandidate = &HeldbackCandidate{
				Registry:       limitingFromRegistry,
				LimitingCompat: limiting.source,
			}
		}
	}
	return nil
}

type namedSpec struct {
	source string
	spec   version.Spec
}

type candidateVersion struct {
	version  version.Version
	registry string
}

// allNonYankedVersions unions every live (non-yanked) version of uuid across
// every registry that publishes it, tagging each with the registry name
// that supplied it (first registry wins when more than one carries it).
func allNonYankedVersions(registries []*registry.Registry, uuid ids.UUID) ([]candidateVersion, error) {
	seen := make(map[string]candidateVersion)
	for _, reg := range registries {
		entry, ok := reg.Get(uuid)
		if !ok {
			continue
		}
		info, err := reg.RegistryInfo(entry)
		if err != nil {
			return nil, err
		}
		for _, v := range allVersions(info) {
			if reg.IsYanked(info, v) {
				continue
			}
			if _, ok := seen[v.String()]; !ok {
				seen[v.String()] = candidateVersion{version: v, registry: reg.Name}
			}
		}
	}
	out := make([]candidateVersion, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	return out, nil
}

func hadAnyVersion(registries []*registry.Registry, uuid ids.UUID) bool {
	for _, reg := range registries {
		if _, ok := reg.Get(uuid); ok {
			return true
		}
	}
	return false
}

// dependentConstraints collects, for every manifest entry that declares a
// dependency edge to uuid, that dependent's own registry-published compat
// requirement on uuid at the dependent's resolved version.
func dependentConstraints(m *manifest.Manifest, registries []*registry.Registry, uuid ids.UUID) []namedSpec {
	if m == nil {
		return nil
	}
	var out []namedSpec
	for depUUID, entry := range m.Deps {
		if entry.Version == nil {
			continue
		}
		depName := ""
		for name, target := range entry.Deps {
			if target == uuid {
				depName = name
				break
			}
		}
		if depName == "" {
			continue
		}
		spec, ok := compatFromRegistries(registries, depUUID, *entry.Version, uuid)
		if !ok {
			continue
		}
		out = append(out, namedSpec{source: entry.Name, spec: spec})
	}
	return out
}

func compatFromRegistries(registries []*registry.Registry, uuid ids.UUID, v version.Version, target ids.UUID) (version.Spec, bool) {
	for _, reg := range registries {
		entry, ok := reg.Get(uuid)
		if !ok {
			continue
		}
		info, err := reg.RegistryInfo(entry)
		if err != nil {
			continue
		}
		uncompressed, err := reg.UncompressedCompat(info)
		if err != nil {
			continue
		}
		byVersion, ok := uncompressed[v.String()]
		if !ok {
			continue
		}
		if spec, ok := byVersion[target]; ok {
			return spec, true
		}
	}
	return version.Spec{}, false
}

// feasible checks candidate v against every dependent/project constraint
// plus, separately, v's own declared host-runtime compat (if any), since
// that check depends on v itself rather than on who depends on it.
func feasible(constraints []namedSpec, v version.Version, uuid ids.UUID, registries []*registry.Registry, hostVersion version.Version) (bool, namedSpec) {
	for _, c := range constraints {
		if !c.spec.Contains(v) {
			return false, c
		}
	}
	if hostVersion.IsZero() {
		return true, namedSpec{}
	}
	if hostSpec, ok := compatFromRegistries(registries, uuid, v, ids.HostUUID); ok && !hostSpec.Contains(hostVersion) {
		return false, namedSpec{source: ids.HostCompatName, spec: hostSpec}
	}
	return true, namedSpec{}
}

func allVersions(info *registry.PkgInfo) []version.Version {
	return info.Versions
}
