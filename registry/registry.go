// Package registry reads a registry directory tree: an eagerly parsed
// Registry.toml naming every package by uuid, plus per-package Package.toml/
// Versions.toml/Compat.toml/Deps.toml loaded lazily on first query, per
// SPEC_FULL.md §4.2/§6.2. Grounded on golang-dep's registry_config.go for
// the general "parse one small TOML config into a typed struct" shape; the
// lazy-load-and-cache-per-package structure has no direct analogue in the
// teacher (golang-dep has no registry at all, just a single GOPATH/VCS
// source per import path), so it is built fresh against tomlcodec.
package registry

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/tomlcodec"
	"github.com/pkgdepot/core/treehash"
	"github.com/pkgdepot/core/version"
)

// PkgEntry is one row of Registry.toml's [packages] table: the package's
// declared name and its path relative to the registry root.
type PkgEntry struct {
	UUID ids.UUID
	Name string
	Path string
}

// Registry is an immutable snapshot of one registry directory, valid for
// the lifetime of a single engine invocation (see SPEC_FULL.md §6.2:
// reload requires a new instance).
type Registry struct {
	Root string
	Name string
	UUID ids.UUID
	URL  string
	Repo string

	pkgs     map[ids.UUID]PkgEntry
	treeHash *treehash.Hash

	mu    sync.Mutex
	infos map[ids.UUID]*PkgInfo
}

// Open eagerly parses root/Registry.toml and, if present, root/.tree_info.toml.
// Per-package metadata is not touched until RegistryInfo is called.
func Open(root string) (*Registry, error) {
	data, err := readFile(filepath.Join(root, "Registry.toml"))
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "reading Registry.toml").WithPath(root)
	}
	tree, err := tomlcodec.Parse(data)
	if err != nil {
		return nil, perr.Wrap(perr.ParseError, err, "parsing Registry.toml").WithPath(root)
	}

	name := tree.GetString("name", "")
	uuidStr := tree.GetString("uuid", "")
	repo := tree.GetString("repo", "")
	url := tree.GetString("url", "")
	if tree.Err != nil {
		return nil, perr.Wrap(perr.SchemaError, tree.Err, "reading Registry.toml fields").WithPath(root)
	}
	if name == "" || uuidStr == "" {
		return nil, perr.New(perr.RegistryError, "Registry.toml missing required field name/uuid").WithPath(root)
	}
	regUUID, err := ids.ParseUUID(uuidStr)
	if err != nil {
		return nil, perr.Wrap(perr.RegistryError, err, "Registry.toml has invalid uuid %q", uuidStr).WithPath(root)
	}

	pkgs := make(map[ids.UUID]PkgEntry)
	if sub := tree.Subtree("packages"); sub != nil {
		for _, key := range sub.Keys() {
			entryUUID, err := ids.ParseUUID(key)
			if err != nil {
				return nil, perr.Wrap(perr.RegistryError, err, "Registry.toml packages table has invalid uuid key %q", key).WithPath(root)
			}
			entryTree := sub.Subtree(key)
			if entryTree == nil {
				return nil, perr.New(perr.RegistryError, "Registry.toml packages entry %q is not a table", key).WithPath(root)
			}
			pkgName := entryTree.GetString("name", "")
			pkgPath := entryTree.GetString("path", "")
			if entryTree.Err != nil || pkgName == "" || pkgPath == "" {
				return nil, perr.New(perr.RegistryError, "Registry.toml packages entry %q missing name/path", key).WithPath(root)
			}
			pkgs[entryUUID] = PkgEntry{UUID: entryUUID, Name: pkgName, Path: pkgPath}
		}
	}

	r := &Registry{
		Root:  root,
		Name:  name,
		UUID:  regUUID,
		URL:   url,
		Repo:  repo,
		pkgs:  pkgs,
		infos: make(map[ids.UUID]*PkgInfo),
	}

	if th, ok, err := readTreeInfo(root); err != nil {
		return nil, err
	} else if ok {
		r.treeHash = &th
	}

	return r, nil
}

func readTreeInfo(root string) (treehash.Hash, bool, error) {
	path := filepath.Join(root, ".tree_info.toml")
	data, err := readFile(path)
	if os.IsNotExist(err) {
		return treehash.Hash{}, false, nil
	}
	if err != nil {
		return treehash.Hash{}, false, perr.Wrap(perr.IoError, err, "reading .tree_info.toml").WithPath(path)
	}
	tree, err := tomlcodec.Parse(data)
	if err != nil {
		return treehash.Hash{}, false, perr.Wrap(perr.ParseError, err, "parsing .tree_info.toml").WithPath(path)
	}
	hexStr := tree.GetString("git-tree-sha1", "")
	if hexStr == "" {
		return treehash.Hash{}, false, nil
	}
	h, err := treehash.ParseHash(hexStr)
	if err != nil {
		return treehash.Hash{}, false, perr.Wrap(perr.RegistryError, err, "invalid git-tree-sha1 in .tree_info.toml").WithPath(path)
	}
	return h, true, nil
}

// RegistryTreeHash returns the registry's own tree hash, if the registry
// directory carries a .tree_info.toml (i.e. is itself a checked-out git
// tree), per SPEC_FULL.md §6.2's typed accessor supplement.
func (r *Registry) RegistryTreeHash() (treehash.Hash, bool) {
	if r.treeHash == nil {
		return treehash.Hash{}, false
	}
	return *r.treeHash, true
}

// UUIDsForName returns every package uuid registered under name, sorted for
// determinism (a name may legitimately map to more than one uuid across the
// registry's history).
func (r *Registry) UUIDsForName(name string) []ids.UUID {
	var out []ids.UUID
	for u, e := range r.pkgs {
		if e.Name == name {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Get returns the PkgEntry for uuid, if this registry carries it.
func (r *Registry) Get(uuid ids.UUID) (PkgEntry, bool) {
	e, ok := r.pkgs[uuid]
	return e, ok
}

// RegistryInfo lazily loads and caches the per-package metadata for entry.
// Safe for concurrent use; a given package's PkgInfo is parsed at most once
// per Registry instance.
func (r *Registry) RegistryInfo(entry PkgEntry) (*PkgInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.infos[entry.UUID]; ok {
		return info, nil
	}

	info, err := loadPkgInfo(r.Root, entry)
	if err != nil {
		return nil, err
	}
	r.infos[entry.UUID] = info
	return info, nil
}

// IsYanked reports whether v is marked yanked for the package described by
// info. Versions absent from version_info are treated as not yanked (the
// caller is expected to have already confirmed v is published).
func (r *Registry) IsYanked(info *PkgInfo, v version.Version) bool {
	vi, ok := info.versionInfo[v.String()]
	return ok && vi.Yanked
}

// TreeHash returns the recorded tree hash for v, if published.
func (r *Registry) TreeHash(info *PkgInfo, v version.Version) (treehash.Hash, bool) {
	vi, ok := info.versionInfo[v.String()]
	if !ok || !vi.HasTreeHash {
		return treehash.Hash{}, false
	}
	return vi.TreeHash, true
}

// UncompressedCompat returns, for each published version of the package
// described by info, the map of dependency uuid -> required VersionSpec,
// joining Compat.toml (names) against Deps.toml (uuids) with the "julia"
// pseudo-name resolved to ids.HostUUID, per SPEC_FULL.md §4.2. The result
// is computed once per PkgInfo and cached (one-shot cell, never recomputed).
func (r *Registry) UncompressedCompat(info *PkgInfo) (map[string]map[ids.UUID]version.Spec, error) {
	return info.uncompressedCompat()
}
