package resolver

import (
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/manifest"
	"github.com/pkgdepot/core/version"
)

// BuildRequirements implements SPEC_FULL.md §4.5's requirement-set
// construction: seed one requirement per direct dependency from the
// project's own compat declaration (defaulting to "any version" when the
// project declares no compat entry for that name), then let extra override
// or add to it. The host-runtime pseudo-uuid is dropped from the returned
// set (it's carried as a fixed graph node instead, not a requirement the
// solver picks a version for).
func BuildRequirements(project *manifest.Project, extra []ids.PackageSpec) map[ids.UUID]version.Spec {
	reqs := make(map[ids.UUID]version.Spec)

	if project != nil {
		for name, u := range project.Deps {
			spec := version.Any()
			if c, ok := project.Compat[name]; ok {
				spec = c.Spec
			}
			reqs[u] = spec
		}
	}

	for _, spec := range extra {
		if !spec.HasUUID() {
			continue
		}
		if spec.VersionReq != nil {
			reqs[spec.UUID] = *spec.VersionReq
		} else if _, ok := reqs[spec.UUID]; !ok {
			reqs[spec.UUID] = version.Any()
		}
	}

	delete(reqs, ids.HostUUID)
	return reqs
}
