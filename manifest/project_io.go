package manifest

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/tomlcodec"
	"github.com/pkgdepot/core/version"
)

var projectKnownKeys = map[string]bool{
	"name": true, "uuid": true, "version": true,
	"deps": true, "weakdeps": true, "extras": true,
	"targets": true, "compat": true, "sources": true, "workspace": true,
}

// ReadProjectFile reads and parses path per SPEC_FULL.md §4.3's read path.
func ReadProjectFile(path string) (*Project, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, perr.Wrap(perr.IoError, err, "reading project file").WithPath(path)
	}
	return ParseProject(data, path)
}

// ParseProject parses TOML bytes into a Project and validates its graph
// invariants. path is used only to annotate error messages.
func ParseProject(data []byte, path string) (*Project, error) {
	tree, err := tomlcodec.Parse(data)
	if err != nil {
		return nil, perr.Wrap(perr.ParseError, err, "parsing project file").WithPath(path)
	}

	p := &Project{
		Deps:     make(map[string]ids.UUID),
		WeakDeps: make(map[string]ids.UUID),
		Extras:   make(map[string]ids.UUID),
		Targets:  make(map[string][]string),
		Compat:   make(map[string]version.Compat),
		Sources:  make(map[string]Source),
	}

	p.Name = tree.GetString("name", "")
	uuidStr := tree.GetString("uuid", "")
	versionStr := tree.GetString("version", "")
	if tree.Err != nil {
		return nil, perr.Wrap(perr.SchemaError, tree.Err, "reading project top-level fields").WithPath(path)
	}
	if uuidStr != "" {
		u, err := ids.ParseUUID(uuidStr)
		if err != nil {
			return nil, perr.Wrap(perr.SchemaError, err, "project uuid field is invalid").WithPath(path)
		}
		p.UUID = u
	}
	if versionStr != "" {
		v, err := version.ParseVersion(versionStr)
		if err != nil {
			return nil, perr.Wrap(perr.SchemaError, err, "project version field is invalid").WithPath(path)
		}
		p.Version = &v
	}

	if err := readUUIDMap(tree, "deps", path, p.Deps); err != nil {
		return nil, err
	}
	if err := readUUIDMap(tree, "weakdeps", path, p.WeakDeps); err != nil {
		return nil, err
	}
	if err := readUUIDMap(tree, "extras", path, p.Extras); err != nil {
		return nil, err
	}

	p.Targets = tree.GetStringListMap("targets")
	if p.Targets == nil {
		p.Targets = make(map[string][]string)
	}
	if tree.Err != nil {
		return nil, perr.Wrap(perr.SchemaError, tree.Err, "reading project targets table").WithPath(path)
	}

	if compatTree := tree.Subtree("compat"); compatTree != nil {
		for _, name := range compatTree.Keys() {
			text := compatTree.GetString(name, "")
			if compatTree.Err != nil {
				return nil, perr.Wrap(perr.SchemaError, compatTree.Err, "reading project compat table").WithPath(path)
			}
			c, err := version.ParseCompat(text)
			if err != nil {
				return nil, perr.Wrap(perr.SchemaError, err, "project compat entry %q is invalid", name).WithPath(path).WithName(name)
			}
			p.Compat[name] = c
		}
	}

	if sourcesTree := tree.Subtree("sources"); sourcesTree != nil {
		for _, name := range sourcesTree.Keys() {
			sub := sourcesTree.Subtree(name)
			if sub == nil {
				continue
			}
			src := Source{
				Path:   sub.GetString("path", ""),
				URL:    sub.GetString("url", ""),
				Rev:    sub.GetString("rev", ""),
				Subdir: sub.GetString("subdir", ""),
			}
			if sub.Err != nil {
				return nil, perr.Wrap(perr.SchemaError, sub.Err, "reading project sources entry %q", name).WithPath(path).WithName(name)
			}
			if src.Path != "" && (src.URL != "" || src.Rev != "") {
				return nil, perr.New(perr.SchemaError,
					"sources entry %q sets both path and url/rev (must be exclusive)", name).WithPath(path).WithName(name)
			}
			p.Sources[name] = src
		}
	}

	p.WorkspaceProjects = readWorkspaceProjects(tree)

	p.Other = tree.UnknownScalars(projectKnownKeys)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func readWorkspaceProjects(tree *tomlcodec.Tree) []string {
	sub := tree.Subtree("workspace")
	if sub == nil {
		return nil
	}
	raw := sub.RawTree()
	if raw == nil {
		return nil
	}
	v := raw.Get("projects")
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func readUUIDMap(tree *tomlcodec.Tree, key, path string, into map[string]ids.UUID) error {
	m := tree.GetStringMap(key)
	if tree.Err != nil {
		return perr.Wrap(perr.SchemaError, tree.Err, "reading project %s table", key).WithPath(path)
	}
	for name, uuidStr := range m {
		u, err := ids.ParseUUID(uuidStr)
		if err != nil {
			return perr.Wrap(perr.SchemaError, err, "project %s entry %q has invalid uuid", key, name).WithPath(path).WithName(name)
		}
		into[name] = u
	}
	return nil
}

// projectKeyOrder is the fixed key-priority vector for Project.toml, per
// SPEC_FULL.md §4.3's write path: named fields first in this order, then any
// remaining unknown keys sorted lexicographically.
var projectKeyOrder = []string{"name", "uuid", "version"}

// WriteProjectFile renders p to path as a machine-generated TOML file.
func WriteProjectFile(path string, p *Project) error {
	return tomlcodec.AtomicWriteFile(path, func(w *tomlcodec.Writer) {
		WriteProject(w, p)
	})
}

// WriteProject renders p through w using the fixed key-priority ordering.
func WriteProject(w *tomlcodec.Writer, p *Project) {
	w.Comment("This file is machine-generated — editing it directly is not advised")
	w.Blank()

	if p.Name != "" {
		w.KV("name", p.Name)
	}
	if p.UUID != ids.Nil {
		w.KV("uuid", p.UUID.String())
	}
	if p.Version != nil {
		w.KV("version", p.Version.String())
	}

	otherKeys := sortedKeys(p.Other)
	for _, k := range otherKeys {
		w.WriteValue(k, p.Other[k])
	}

	writeUUIDMapTable(w, "deps", p.Deps)
	writeUUIDMapTable(w, "weakdeps", p.WeakDeps)
	writeUUIDMapTable(w, "extras", p.Extras)

	if len(p.Compat) > 0 {
		w.Blank()
		w.TableHeader("compat")
		for _, name := range sortedStringKeys(compatKeys(p.Compat)) {
			w.KV(name, p.Compat[name].Text)
		}
	}

	if len(p.Targets) > 0 {
		w.Blank()
		w.TableHeader("targets")
		for _, name := range sortedStringKeys(targetKeys(p.Targets)) {
			w.KVStringList(name, p.Targets[name], true)
		}
	}

	if len(p.Sources) > 0 {
		for _, name := range sortedStringKeys(sourceKeys(p.Sources)) {
			src := p.Sources[name]
			w.Blank()
			w.TableHeader(fmt.Sprintf("sources.%s", name))
			if src.Path != "" {
				w.KV("path", src.Path)
			}
			if src.URL != "" {
				w.KV("url", src.URL)
			}
			if src.Rev != "" {
				w.KV("rev", src.Rev)
			}
			if src.Subdir != "" {
				w.KV("subdir", src.Subdir)
			}
		}
	}

	if len(p.WorkspaceProjects) > 0 {
		w.Blank()
		w.TableHeader("workspace")
		w.KVStringList("projects", p.WorkspaceProjects, true)
	}
}

func writeUUIDMapTable(w *tomlcodec.Writer, table string, m map[string]ids.UUID) {
	if len(m) == 0 {
		return
	}
	w.Blank()
	w.TableHeader(table)
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		w.KV(n, m[n].String())
	}
}

func sortedKeys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedStringKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}

func compatKeys(m map[string]version.Compat) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func targetKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sourceKeys(m map[string]Source) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
