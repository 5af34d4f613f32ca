package resolver

import (
	"sort"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/version"
)

// SolveInput bundles everything a solver backend needs to satisfy the
// contract described by SPEC_FULL.md §4.5: the transitive graph, the
// top-level requirement set, the fixed-package assignment, the previously
// manifested version of each package (for the upgrade-level cap), and the
// cap itself.
type SolveInput struct {
	Graph        *Graph
	Requirements map[ids.UUID]version.Spec
	Fixed        map[ids.UUID]FixedPackage
	Current      map[ids.UUID]version.Version
	Level        UpgradeLevel
}

// Infeasible holds the uuids a backtracking search could make no further
// progress on. Solve does not return it: it reports infeasibility as a
// perr.ResolverInfeasible error whose message names those packages via
// name_lookup.
type Infeasible struct {
	Offending []ids.UUID
}

// Solve is this implementation's backtracking solver backend: a worklist of
// unresolved uuids ordered most-constrained-first, each tried at its
// greatest still-admissible candidate version before recursing, backtracking
// on constraint failure. Grounded on golang-dep's own solver.go/gps shape
// (selection stack + per-package version queue + backjump-on-failure), with
// the concrete search procedure being this package's own choice per
// SPEC_FULL.md §6.5's "pluggable solver backend" note.
func Solve(in SolveInput) (map[ids.UUID]version.Version, error) {
	g := in.Graph

	order := make([]ids.UUID, 0, len(g.AllVersions))
	for u := range g.AllVersions {
		order = append(order, u)
	}
	sort.Slice(order, func(i, j int) bool {
		ci, cj := len(g.AllVersions[order[i]]), len(g.AllVersions[order[j]])
		if ci != cj {
			return ci < cj
		}
		return order[i].String() < order[j].String()
	})

	domains := make(map[ids.UUID][]version.Version, len(order))
	for _, u := range order {
		domains[u] = candidateDomain(u, g.AllVersions[u], in)
	}

	assignment := make(map[ids.UUID]version.Version, len(order))
	offending := make(map[ids.UUID]bool)

	var backtrack func(idx int) bool
	backtrack = func(idx int) bool {
		if idx == len(order) {
			return true
		}
		u := order[idx]
		for _, v := range domains[u] {
			if req, ok := in.Requirements[u]; ok && !req.Contains(v) {
				continue
			}
			assignment[u] = v
			if consistent(g, assignment, order, idx, u, v) {
				if backtrack(idx + 1) {
					return true
				}
			}
			delete(assignment, u)
		}
		offending[u] = true
		return false
	}

	if !backtrack(0) {
		names := make([]ids.UUID, 0, len(offending))
		for u := range offending {
			names = append(names, u)
		}
		sort.Slice(names, func(i, j int) bool { return names[i].String() < names[j].String() })
		return nil, perr.New(perr.ResolverInfeasible,
			"no assignment satisfies the requirements on %v", namesFor(g, names))
	}

	return assignment, nil
}

func namesFor(g *Graph, uuids []ids.UUID) []string {
	out := make([]string, len(uuids))
	for i, u := range uuids {
		out[i] = g.name(u)
	}
	return out
}

// candidateDomain narrows u's full version list by the upgrade-level cap
// relative to its previously manifested version (the requirement set is
// checked separately, in Solve's search), sorted
// with the greatest candidate first so the search tries the
// preference-maximizing option before anything else (SPEC_FULL.md §4.5's
// preference policy).
func candidateDomain(u ids.UUID, versions []version.Version, in SolveInput) []version.Version {
	out := make([]version.Version, 0, len(versions))
	current, hasCurrent := in.Current[u]
	for _, v := range versions {
		if hasCurrent && !withinUpgradeLevel(current, v, in.Level) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Less(out[i]) })
	return out
}

func withinUpgradeLevel(current, candidate version.Version, level UpgradeLevel) bool {
	switch level {
	case Fixed:
		return candidate.Equal(current)
	case Patch:
		return candidate.Major() == current.Major() && candidate.Minor() == current.Minor()
	case Minor:
		return candidate.Major() == current.Major()
	default:
		return true
	}
}

// consistent checks every pairwise constraint between the just-assigned
// (u, v) and every variable already assigned earlier in order: edges u->w
// and edges w->u are both checked, since whichever side of a dependency
// pair is assigned later is responsible for validating the pair.
func consistent(g *Graph, assignment map[ids.UUID]version.Version, order []ids.UUID, idx int, u ids.UUID, v version.Version) bool {
	uEdges := g.compatFor(u, v)
	for j := 0; j < idx; j++ {
		w := order[j]
		wv, ok := assignment[w]
		if !ok {
			continue
		}
		if spec, ok := uEdges[w]; ok && !spec.Contains(wv) {
			return false
		}
		wEdges := g.compatFor(w, wv)
		if spec, ok := wEdges[u]; ok && !spec.Contains(v) {
			return false
		}
	}
	return true
}
