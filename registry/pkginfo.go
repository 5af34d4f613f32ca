package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/tomlcodec"
	"github.com/pkgdepot/core/treehash"
	"github.com/pkgdepot/core/version"
)

// VersionInfo is one row of a package's Versions.toml: whether the version
// carries a recorded tree hash, and whether it has been yanked.
type VersionInfo struct {
	TreeHash    treehash.Hash
	HasTreeHash bool
	Yanked      bool
}

// compatRange is one row of a package's compressed Compat.toml: the version
// range it applies to, and the name -> required-spec map for that range.
type compatRange struct {
	r      version.Range
	values map[string]version.Spec
}

// depsRange is the Deps.toml analogue: name -> dependency-uuid-string.
type depsRange struct {
	r      version.Range
	values map[string]string
}

// PkgInfo is the lazily loaded, per-package metadata described by
// SPEC_FULL.md §4.2/§5: version_info, and the compressed compat/deps tables
// before interval expansion. It is immutable once loaded.
type PkgInfo struct {
	Repo   string
	Subdir string

	// Versions is sorted ascending.
	Versions []version.Version

	versionInfo map[string]VersionInfo // keyed by Version.String()

	compatRanges []compatRange
	depsRanges   []depsRange

	once         sync.Once
	uncompressed map[string]map[ids.UUID]version.Spec
	uncompressErr error
}

func loadPkgInfo(registryRoot string, entry PkgEntry) (*PkgInfo, error) {
	dir := filepath.Join(registryRoot, entry.Path)

	pkgTree, err := loadTomlFile(filepath.Join(dir, "Package.toml"), false)
	if err != nil {
		return nil, err
	}
	repo, subdir := "", ""
	if pkgTree != nil {
		repo = pkgTree.GetString("repo", "")
		subdir = pkgTree.GetString("subdir", "")
		if pkgTree.Err != nil {
			return nil, perr.Wrap(perr.SchemaError, pkgTree.Err, "reading Package.toml fields").WithPath(dir)
		}
	}

	versionsTree, err := loadTomlFile(filepath.Join(dir, "Versions.toml"), true)
	if err != nil {
		return nil, err
	}
	versions, versionInfo, err := parseVersions(versionsTree, dir)
	if err != nil {
		return nil, err
	}

	compatTree, err := loadTomlFile(filepath.Join(dir, "Compat.toml"), false)
	if err != nil {
		return nil, err
	}
	compatRanges, err := parseCompatRanges(compatTree, dir)
	if err != nil {
		return nil, err
	}

	depsTree, err := loadTomlFile(filepath.Join(dir, "Deps.toml"), false)
	if err != nil {
		return nil, err
	}
	depsRanges, err := parseDepsRanges(depsTree, dir)
	if err != nil {
		return nil, err
	}

	return &PkgInfo{
		Repo:         repo,
		Subdir:       subdir,
		Versions:     versions,
		versionInfo:  versionInfo,
		compatRanges: compatRanges,
		depsRanges:   depsRanges,
	}, nil
}

func loadTomlFile(path string, required bool) (*tomlcodec.Tree, error) {
	data, err := readFile(path)
	if os.IsNotExist(err) {
		if required {
			return nil, perr.New(perr.RegistryError, "missing required registry file").WithPath(path)
		}
		return nil, nil
	}
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "reading registry file").WithPath(path)
	}
	tree, err := tomlcodec.Parse(data)
	if err != nil {
		return nil, perr.Wrap(perr.ParseError, err, "parsing registry file").WithPath(path)
	}
	return tree, nil
}

func parseVersions(tree *tomlcodec.Tree, dir string) ([]version.Version, map[string]VersionInfo, error) {
	info := make(map[string]VersionInfo)
	var versions []version.Version
	if tree == nil {
		return versions, info, nil
	}
	for _, key := range tree.Keys() {
		v, err := version.ParseVersion(key)
		if err != nil {
			return nil, nil, perr.Wrap(perr.RegistryError, err, "Versions.toml has invalid version key %q", key).WithPath(dir)
		}
		sub := tree.Subtree(key)
		vi := VersionInfo{}
		if sub != nil {
			if hexStr := sub.GetString("git-tree-sha1", ""); hexStr != "" {
				h, err := treehash.ParseHash(hexStr)
				if err != nil {
					return nil, nil, perr.Wrap(perr.RegistryError, err, "Versions.toml entry %q has invalid git-tree-sha1", key).WithPath(dir)
				}
				vi.TreeHash = h
				vi.HasTreeHash = true
			}
			vi.Yanked = sub.GetBool("yanked", false)
			if sub.Err != nil {
				return nil, nil, perr.Wrap(perr.SchemaError, sub.Err, "Versions.toml entry %q", key).WithPath(dir)
			}
		}
		versions = append(versions, v)
		info[v.String()] = vi
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Less(versions[j]) })
	return versions, info, nil
}

func parseCompatRanges(tree *tomlcodec.Tree, dir string) ([]compatRange, error) {
	if tree == nil {
		return nil, nil
	}
	var out []compatRange
	for _, key := range tree.Keys() {
		r, err := parseRangeKey(key)
		if err != nil {
			return nil, perr.Wrap(perr.RegistryError, err, "Compat.toml has invalid range key %q", key).WithPath(dir)
		}
		sub := tree.Subtree(key)
		if sub == nil {
			return nil, perr.New(perr.RegistryError, "Compat.toml entry %q is not a table", key).WithPath(dir)
		}
		values := make(map[string]version.Spec)
		for _, name := range sub.Keys() {
			specStr := sub.GetString(name, "")
			if sub.Err != nil {
				return nil, perr.Wrap(perr.SchemaError, sub.Err, "Compat.toml entry %q", key).WithPath(dir)
			}
			spec, err := version.Parse(specStr)
			if err != nil {
				return nil, perr.Wrap(perr.RegistryError, err, "Compat.toml entry %q.%q has invalid spec %q", key, name, specStr).WithPath(dir)
			}
			values[name] = spec
		}
		out = append(out, compatRange{r: r, values: values})
	}
	return out, nil
}

func parseDepsRanges(tree *tomlcodec.Tree, dir string) ([]depsRange, error) {
	if tree == nil {
		return nil, nil
	}
	var out []depsRange
	for _, key := range tree.Keys() {
		r, err := parseRangeKey(key)
		if err != nil {
			return nil, perr.Wrap(perr.RegistryError, err, "Deps.toml has invalid range key %q", key).WithPath(dir)
		}
		sub := tree.Subtree(key)
		if sub == nil {
			return nil, perr.New(perr.RegistryError, "Deps.toml entry %q is not a table", key).WithPath(dir)
		}
		values := make(map[string]string)
		for _, name := range sub.Keys() {
			uuidStr := sub.GetString(name, "")
			if sub.Err != nil {
				return nil, perr.Wrap(perr.SchemaError, sub.Err, "Deps.toml entry %q", key).WithPath(dir)
			}
			if _, err := ids.ParseUUID(uuidStr); err != nil {
				return nil, perr.Wrap(perr.RegistryError, err, "Deps.toml entry %q.%q has invalid uuid %q", key, name, uuidStr).WithPath(dir)
			}
			values[name] = uuidStr
		}
		out = append(out, depsRange{r: r, values: values})
	}
	return out, nil
}

// parseRangeKey parses a registry compressed-table key of the form
// "lower-upper" or a single bound "v" (meaning lower == upper), each side a
// bare dot-separated vernum (not a full constraint atom — no specifier
// prefix, and unlike Parse, a literal all-zero bound is legal here since it
// denotes a range endpoint, not a standalone version declaration).
func parseRangeKey(key string) (version.Range, error) {
	parts := strings.SplitN(key, "-", 2)
	lowerStr := strings.TrimSpace(parts[0])
	upperStr := lowerStr
	if len(parts) == 2 {
		upperStr = strings.TrimSpace(parts[1])
	}
	lower, err := version.ParseBound(lowerStr)
	if err != nil {
		return version.Range{}, err
	}
	upper, err := version.ParseBound(upperStr)
	if err != nil {
		return version.Range{}, err
	}
	return version.NewRange(lower, upper), nil
}

// uncompressCompat expands a set of VersionRange -> (name -> X) maps against a
// sorted list of known versions into Version -> (name -> X), failing if two
// overlapping ranges disagree on the same name at the same version (rather
// than silently picking one), per SPEC_FULL.md §4.2's OverlappingCompatRanges
// rule.
func uncompressCompat(versions []version.Version, ranges []compatRange) (map[string]map[string]version.Spec, error) {
	out := make(map[string]map[string]version.Spec, len(versions))
	for _, v := range versions {
		out[v.String()] = make(map[string]version.Spec)
	}
	for _, cr := range ranges {
		for _, v := range versions {
			if !cr.r.Contains(v) {
				continue
			}
			m := out[v.String()]
			for name, spec := range cr.values {
				if existing, ok := m[name]; ok && existing.String() != spec.String() {
					return nil, perr.New(perr.RegistryError,
						"overlapping compat ranges disagree on %q at version %s", name, v).WithName(name)
				}
				m[name] = spec
			}
		}
	}
	return out, nil
}

func uncompressDeps(versions []version.Version, ranges []depsRange) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(versions))
	for _, v := range versions {
		out[v.String()] = make(map[string]string)
	}
	for _, dr := range ranges {
		for _, v := range versions {
			if !dr.r.Contains(v) {
				continue
			}
			m := out[v.String()]
			for name, uuidStr := range dr.values {
				if existing, ok := m[name]; ok && existing != uuidStr {
					return nil, perr.New(perr.RegistryError,
						"overlapping deps ranges disagree on %q at version %s", name, v).WithName(name)
				}
				m[name] = uuidStr
			}
		}
	}
	return out, nil
}

// uncompressedCompat computes and caches info's fully joined, per-version
// dependency-uuid -> required-spec map, resolving ids.HostCompatName to
// ids.HostUUID. It is a one-shot cell: populated at most once, never
// recomputed, per SPEC_FULL.md §9's design note on lazy PkgInfo fields.
func (info *PkgInfo) uncompressedCompat() (map[string]map[ids.UUID]version.Spec, error) {
	info.once.Do(func() {
		compatByVer, err := uncompressCompat(info.Versions, info.compatRanges)
		if err != nil {
			info.uncompressErr = err
			return
		}
		depsByVer, err := uncompressDeps(info.Versions, info.depsRanges)
		if err != nil {
			info.uncompressErr = err
			return
		}

		out := make(map[string]map[ids.UUID]version.Spec, len(info.Versions))
		for _, v := range info.Versions {
			key := v.String()
			compat := compatByVer[key]
			deps := depsByVer[key]
			m := make(map[ids.UUID]version.Spec, len(compat))
			for name, spec := range compat {
				var uuid ids.UUID
				if name == ids.HostCompatName {
					uuid = ids.HostUUID
				} else {
					uuidStr, ok := deps[name]
					if !ok {
						info.uncompressErr = perr.New(perr.RegistryError,
							"compat entry %q at version %s has no matching Deps.toml uuid", name, v).WithName(name)
						return
					}
					u, err := ids.ParseUUID(uuidStr)
					if err != nil {
						info.uncompressErr = err
						return
					}
					uuid = u
				}
				m[uuid] = spec
			}
			out[key] = m
		}
		info.uncompressed = out
	})
	return info.uncompressed, info.uncompressErr
}
