package manifest

import (
	"io/ioutil"
	"sort"

	"github.com/pelletier/go-toml"
	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/tomlcodec"
	"github.com/pkgdepot/core/version"
)

var manifestTopKeys = map[string]bool{
	"host_version": true, "project_hash": true, "deps": true,
}

var manifestEntryKnownKeys = map[string]bool{
	"uuid": true, "version": true, "path": true, "pinned": true,
	"repo-url": true, "repo-rev": true, "repo-subdir": true,
	"git-tree-sha1": true, "deps": true,
}

// stage1Entry is one un-linked manifest row exactly as read off disk, before
// its `deps` field (which may be a legacy bare name list or an explicit
// name->uuid map) has been resolved into concrete uuids, per SPEC_FULL.md
// §4.3's read-path step 3-4.
type stage1Entry struct {
	uuid    ids.UUID
	entry   PackageEntry
	rawDeps *toml.Tree   // non-nil when deps was written as an explicit map
	depList []string     // non-nil when deps was written as a legacy bare list
}

// ReadManifestFile reads and parses path, including legacy-format migration
// and graph invariant validation.
func ReadManifestFile(path string) (*Manifest, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "reading manifest file").WithPath(path)
	}
	return ParseManifest(data, path)
}

// ParseManifest parses TOML bytes into a Manifest.
func ParseManifest(data []byte, path string) (*Manifest, error) {
	tree, err := tomlcodec.Parse(data)
	if err != nil {
		return nil, perr.Wrap(perr.ParseError, err, "parsing manifest file").WithPath(path)
	}

	depsSource, legacy := manifestDepsSource(tree)

	stage1, err := readStage1(depsSource, path)
	if err != nil {
		return nil, err
	}

	nameToUUIDs := make(map[string][]ids.UUID)
	for _, s := range stage1 {
		nameToUUIDs[s.entry.Name] = append(nameToUUIDs[s.entry.Name], s.uuid)
	}

	m := &Manifest{Deps: make(map[ids.UUID]PackageEntry, len(stage1))}
	if !legacy {
		hv, err := readHostVersion(tree, "host_version")
		if err != nil {
			return nil, perr.Wrap(perr.SchemaError, err, "reading manifest host_version").WithPath(path)
		}
		m.HostVersion = hv
		m.ProjectHash = tree.GetString("project_hash", "")
		if tree.Err != nil {
			return nil, perr.Wrap(perr.SchemaError, tree.Err, "reading manifest top-level fields").WithPath(path)
		}
	} else {
		// The pre-"deps"-nesting manifest format predates host_version and
		// project_hash entirely, so neither can be recovered from the file
		// being migrated; both tombstones are set to the literal "nothing"
		// the format documents for "unknown" (SPEC_FULL.md §8).
		m.HostVersion = HostVersionField{Unknown: true}
		m.ProjectHash = "nothing"
	}

	for _, s := range stage1 {
		deps := make(map[string]ids.UUID)
		switch {
		case s.rawDeps != nil:
			for _, name := range s.rawDeps.Keys() {
				uuidStr, ok := s.rawDeps.Get(name).(string)
				if !ok {
					return nil, perr.New(perr.SchemaError,
						"manifest entry %q's deps.%q is not a string uuid", s.entry.Name, name).WithPath(path)
				}
				u, err := ids.ParseUUID(uuidStr)
				if err != nil {
					return nil, perr.Wrap(perr.SchemaError, err, "manifest entry %q's deps.%q has invalid uuid", s.entry.Name, name).WithPath(path)
				}
				deps[name] = u
			}
		case s.depList != nil:
			for _, name := range s.depList {
				if name == ids.HostCompatName {
					deps[name] = ids.HostUUID
					continue
				}
				candidates := nameToUUIDs[name]
				switch len(candidates) {
				case 0:
					return nil, perr.New(perr.SchemaError,
						"manifest entry %q depends on %q, which has no manifest entry", s.entry.Name, name).WithName(name).WithPath(path)
				case 1:
					deps[name] = candidates[0]
				default:
					return nil, perr.New(perr.SchemaError,
						"manifest entry %q's dependency %q is ambiguous (%d packages share that name); use explicit uuid map form", s.entry.Name, name, len(candidates)).WithName(name).WithPath(path)
				}
			}
		}
		s.entry.Deps = deps
		m.Deps[s.uuid] = s.entry
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// manifestDepsSource locates the subtree whose keys are package names, each
// mapping to an array of per-package tables. Modern manifests nest this
// under "deps"; manifests predating that nesting (per SPEC_FULL.md §6.3's
// format-evolution note) wrote package tables directly at the document
// root, and are migrated in place here rather than rejected.
func manifestDepsSource(tree *tomlcodec.Tree) (*tomlcodec.Tree, bool) {
	if sub := tree.Subtree("deps"); sub != nil {
		return sub, false
	}
	// No "deps" table: only treat the document root as legacy package
	// entries if it actually contains at least one array-of-tables — an
	// empty modern manifest (zero dependencies) has no "deps" table either
	// and must not be mistaken for the legacy layout.
	if raw := tree.RawTree(); raw != nil {
		for _, key := range tree.Keys() {
			if manifestTopKeys[key] {
				continue
			}
			if _, ok := raw.Get(key).([]*toml.Tree); ok {
				return tree, true
			}
		}
	}
	return tree, false
}

func readStage1(source *tomlcodec.Tree, path string) ([]stage1Entry, error) {
	var out []stage1Entry
	for _, name := range source.Keys() {
		if manifestTopKeys[name] {
			continue
		}
		entries := source.ArrayOfTables(name)
		if entries == nil {
			continue
		}
		for _, et := range entries {
			s, err := parseStage1Entry(name, et, path)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].uuid.String() < out[j].uuid.String() })
	return out, nil
}

func parseStage1Entry(name string, et *tomlcodec.Tree, path string) (stage1Entry, error) {
	uuidStr := et.GetString("uuid", "")
	versionStr := et.GetString("version", "")
	p := et.GetString("path", "")
	pinned := et.GetBool("pinned", false)
	repoURL := et.GetString("repo-url", "")
	repoRev := et.GetString("repo-rev", "")
	repoSubdir := et.GetString("repo-subdir", "")
	treeHashStr := et.GetString("git-tree-sha1", "")
	if et.Err != nil {
		return stage1Entry{}, perr.Wrap(perr.SchemaError, et.Err, "reading manifest entry %q", name).WithPath(path)
	}
	if uuidStr == "" {
		return stage1Entry{}, perr.New(perr.SchemaError, "manifest entry %q is missing uuid", name).WithPath(path)
	}
	u, err := ids.ParseUUID(uuidStr)
	if err != nil {
		return stage1Entry{}, perr.Wrap(perr.SchemaError, err, "manifest entry %q has invalid uuid", name).WithPath(path)
	}

	entry := PackageEntry{Name: name, Path: p, Pinned: pinned, RepoURL: repoURL, RepoRev: repoRev, RepoSubdir: repoSubdir}
	if versionStr != "" {
		v, err := version.ParseVersion(versionStr)
		if err != nil {
			return stage1Entry{}, perr.Wrap(perr.SchemaError, err, "manifest entry %q has invalid version", name).WithPath(path)
		}
		entry.Version = &v
	}
	th, err := treeHashFromString(treeHashStr)
	if err != nil {
		return stage1Entry{}, perr.Wrap(perr.SchemaError, err, "manifest entry %q has invalid git-tree-sha1", name).WithPath(path)
	}
	entry.TreeHash = th
	entry.Other = et.UnknownScalars(manifestEntryKnownKeys)

	s := stage1Entry{uuid: u, entry: entry}
	raw := et.RawTree()
	if raw != nil {
		switch depsVal := raw.Get("deps").(type) {
		case *toml.Tree:
			s.rawDeps = depsVal
		case []interface{}:
			list := make([]string, 0, len(depsVal))
			for _, v := range depsVal {
				if str, ok := v.(string); ok {
					list = append(list, str)
				}
			}
			s.depList = list
		}
	}
	return s, nil
}

// readHostVersion reads key as either absent, the literal "nothing"
// tombstone, or a parseable version string.
func readHostVersion(tree *tomlcodec.Tree, key string) (HostVersionField, error) {
	s := tree.GetString(key, "")
	switch s {
	case "":
		return HostVersionField{}, nil
	case "nothing":
		return HostVersionField{Unknown: true}, nil
	default:
		v, err := version.ParseVersion(s)
		if err != nil {
			return HostVersionField{}, err
		}
		return HostVersionField{Version: &v}, nil
	}
}

// WriteManifestFile renders m to path as a machine-generated TOML file.
func WriteManifestFile(path string, m *Manifest) error {
	return tomlcodec.AtomicWriteFile(path, func(w *tomlcodec.Writer) {
		WriteManifest(w, m)
	})
}

// WriteManifest renders m through w. Entries are grouped under [[deps.Name]]
// array-of-tables, sorted by name then uuid so colliding names produce a
// stable, deterministic ordering; a dependency edge is written as a bare
// name list unless the target name is ambiguous within m, in which case the
// disambiguating name->uuid map form is used instead (SPEC_FULL.md §4.3's
// write-path rule 3).
func WriteManifest(w *tomlcodec.Writer, m *Manifest) {
	w.Comment("This file is machine-generated — editing it directly is not advised")
	w.Blank()

	switch {
	case m.HostVersion.Unknown:
		w.KV("host_version", "nothing")
	case m.HostVersion.Version != nil:
		w.KV("host_version", m.HostVersion.Version.String())
	}
	if m.ProjectHash != "" {
		w.KV("project_hash", m.ProjectHash)
	}

	nameCount := make(map[string]int)
	for _, e := range m.Deps {
		nameCount[e.Name]++
	}

	uuids := make([]ids.UUID, 0, len(m.Deps))
	for u := range m.Deps {
		uuids = append(uuids, u)
	}
	sort.Slice(uuids, func(i, j int) bool {
		a, b := m.Deps[uuids[i]], m.Deps[uuids[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return uuids[i].String() < uuids[j].String()
	})

	for _, u := range uuids {
		e := m.Deps[u]
		w.Blank()
		w.ArrayTableHeader("deps." + e.Name)
		w.KV("uuid", u.String())
		if e.Version != nil {
			w.KV("version", e.Version.String())
		}
		if e.Path != "" {
			w.KV("path", e.Path)
		}
		if e.Pinned {
			w.KVBool("pinned", true)
		}
		if e.RepoURL != "" {
			w.KV("repo-url", e.RepoURL)
		}
		if e.RepoRev != "" {
			w.KV("repo-rev", e.RepoRev)
		}
		if e.RepoSubdir != "" {
			w.KV("repo-subdir", e.RepoSubdir)
		}
		if e.TreeHash != nil {
			w.KV("git-tree-sha1", e.TreeHash.String())
		}
		for _, k := range sortedKeys(e.Other) {
			w.WriteValue(k, e.Other[k])
		}
		writeManifestDeps(w, e.Name, e.Deps, nameCount)
	}
}

func writeManifestDeps(w *tomlcodec.Writer, ownerName string, deps map[string]ids.UUID, nameCount map[string]int) {
	if len(deps) == 0 {
		return
	}
	ambiguous := false
	for name := range deps {
		if nameCount[name] > 1 {
			ambiguous = true
			break
		}
	}
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	if !ambiguous {
		w.KVStringList("deps", names, false)
		return
	}
	w.TableHeader("deps." + ownerName + ".deps")
	sort.Strings(names)
	for _, name := range names {
		w.KV(name, deps[name].String())
	}
}
