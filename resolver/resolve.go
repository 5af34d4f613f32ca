package resolver

import (
	"context"

	"github.com/pkgdepot/core/environment"
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/manifest"
	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/registry"
	"github.com/pkgdepot/core/treehash"
	"github.com/pkgdepot/core/version"
)

// Input bundles everything one Resolve call needs, per SPEC_FULL.md §4.5's
// inputs list.
type Input struct {
	Env           *environment.Environment
	Registries    []*registry.Registry
	Extra         []ids.PackageSpec
	HostVersion   version.Version
	HostLibraries HostLibraries
	Level         UpgradeLevel
}

// Resolve runs fixed-package collection, requirement-set construction,
// graph construction, solving, and post-processing, producing a fresh
// Manifest. It is pure with respect to its inputs: identical inputs produce
// byte-identical manifests (SPEC_FULL.md §5's re-entrancy requirement;
// nothing here depends on wall-clock time).
func Resolve(ctx context.Context, in Input) (*manifest.Manifest, error) {
	fixed := CollectFixed(in.Env)
	requirements := BuildRequirements(in.Env.Project, in.Extra)

	g, err := BuildGraph(ctx, in.Registries, requirements, fixed, in.HostVersion, in.HostLibraries)
	if err != nil {
		return nil, err
	}

	current := currentVersions(in.Env.Manifest)

	assignment, err := Solve(SolveInput{
		Graph:        g,
		Requirements: requirements,
		Fixed:        fixed,
		Current:      current,
		Level:        in.Level,
	})
	if err != nil {
		return nil, err
	}

	return postProcess(in, g, assignment)
}

func currentVersions(m *manifest.Manifest) map[ids.UUID]version.Version {
	out := make(map[ids.UUID]version.Version)
	if m == nil {
		return out
	}
	for u, e := range m.Deps {
		if e.Version != nil {
			out[u] = *e.Version
		}
	}
	return out
}

// postProcess implements SPEC_FULL.md §4.5's post-processing step: for each
// resolved (u, v), look up and cross-check the tree hash across every
// registry that publishes u@v, preserve the prior manifest's pinned flag,
// and overwrite the entry's deps with fresh edges read straight off the
// graph at v.
func postProcess(in Input, g *Graph, assignment map[ids.UUID]version.Version) (*manifest.Manifest, error) {
	out := &manifest.Manifest{
		HostVersion: hostVersionField(in.HostVersion),
		Deps:        make(map[ids.UUID]manifest.PackageEntry, len(assignment)),
	}

	var priorManifest *manifest.Manifest
	if in.Env.Manifest != nil {
		priorManifest = in.Env.Manifest
	}

	rootUUID := ids.Nil
	if in.Env.Project != nil && in.Env.Project.IsPackage() {
		rootUUID = in.Env.Project.UUID
	}

	for u, v := range assignment {
		if u == ids.HostUUID || u == rootUUID {
			continue
		}
		entry := manifest.PackageEntry{
			Name: g.name(u),
		}
		vv := v
		entry.Version = &vv

		if fp, ok := pathOrGitFixedEntry(priorManifest, u); ok {
			entry.Path = fp.Path
			entry.RepoURL = fp.RepoURL
			entry.RepoRev = fp.RepoRev
			entry.RepoSubdir = fp.RepoSubdir
		} else {
			th, err := crossRegistryTreeHash(in.Registries, u, v)
			if err != nil {
				return nil, err
			}
			entry.TreeHash = th
		}

		if priorManifest != nil {
			if prior, ok := priorManifest.Deps[u]; ok {
				entry.Pinned = prior.Pinned
			}
		}

		deps := make(map[string]ids.UUID)
		for dep := range g.compatFor(u, v) {
			deps[g.name(dep)] = dep
		}
		entry.Deps = deps

		out.Deps[u] = entry
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func hostVersionField(v version.Version) manifest.HostVersionField {
	if v.IsZero() {
		return manifest.HostVersionField{}
	}
	vv := v
	return manifest.HostVersionField{Version: &vv}
}

func pathOrGitFixedEntry(m *manifest.Manifest, u ids.UUID) (manifest.PackageEntry, bool) {
	if m == nil {
		return manifest.PackageEntry{}, false
	}
	e, ok := m.Deps[u]
	if !ok || (!e.IsPathDep() && !e.IsGitRevDep()) {
		return manifest.PackageEntry{}, false
	}
	return e, true
}

// crossRegistryTreeHash looks up u@v's tree hash across every registry that
// publishes it, failing with perr.TreeHashConflict if two registries
// disagree.
func crossRegistryTreeHash(registries []*registry.Registry, u ids.UUID, v version.Version) (*treehash.Hash, error) {
	var found *treehash.Hash
	for _, reg := range registries {
		entry, ok := reg.Get(u)
		if !ok {
			continue
		}
		info, err := reg.RegistryInfo(entry)
		if err != nil {
			return nil, err
		}
		h, ok := reg.TreeHash(info, v)
		if !ok {
			continue
		}
		if found != nil && *found != h {
			return nil, perr.New(perr.TreeHashConflict,
				"registries disagree on the tree hash of %s@%s", entry.Name, v).WithUUID(u.String())
		}
		hh := h
		found = &hh
	}
	return found, nil
}
