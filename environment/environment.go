// Package environment implements the engine's working-directory surface
// (SPEC_FULL.md §4.4/§6.4): locating and loading a Project/Manifest pair,
// pruning a manifest back to what's reachable from the project's own roots,
// writing both files atomically under an advisory lock, and resolving an
// installed package's path across a list of depots.
//
// Grounded on golang-dep/context.go's Ctx.LoadProject: search up/around a
// directory for the recognized project file, open it, then opportunistically
// load the companion lock file if present.
package environment

import (
	"os"
	"path/filepath"

	"github.com/pkgdepot/core/manifest"
	"github.com/pkgdepot/core/perr"
	flock "github.com/theckman/go-flock"
)

// AllowedProjectNames lists the project filenames tried in order, per
// SPEC_FULL.md §4.3/§6.3's "try each allowed project filename" rule.
// LegacyProject.toml supplements the canonical name the way real ecosystem
// tooling carries forward an older alias rather than breaking existing
// environments outright.
var AllowedProjectNames = []string{"Project.toml", "LegacyProject.toml"}

// AllowedManifestNames is the Manifest.toml analogue of AllowedProjectNames.
var AllowedManifestNames = []string{"Manifest.toml", "LegacyManifest.toml"}

// lockFileName is the advisory lock file taken in the environment directory
// for the duration of any write operation on that environment.
const lockFileName = ".pkgdepot.lock"

// Environment is one opened project directory: its Project (always present
// once Open succeeds) and its Manifest (nil if none has been written yet).
type Environment struct {
	Dir          string
	ProjectPath  string
	ManifestPath string
	Project      *manifest.Project
	Manifest     *manifest.Manifest

	// DepotRoots is the ordered depot search path used by FindInstalled and
	// InstantiatePath: the user's own depot first, then any shared/system
	// depots, mirroring golang-dep's own GOPATH-list walk (context.go).
	DepotRoots []string
}

// Open tries each allowed project filename in dir, loads it, and
// opportunistically loads the companion manifest if any allowed manifest
// filename is present. A missing project file is an error; a missing
// manifest is not (a fresh environment has no manifest yet).
func Open(dir string, depotRoots []string) (*Environment, error) {
	projectPath, err := findFile(dir, AllowedProjectNames)
	if err != nil {
		return nil, err
	}
	if projectPath == "" {
		return nil, perr.New(perr.IoError, "no project file found (tried %v)", AllowedProjectNames).WithPath(dir)
	}

	project, err := manifest.ReadProjectFile(projectPath)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		Dir:         dir,
		ProjectPath: projectPath,
		Project:     project,
		DepotRoots:  depotRoots,
	}

	manifestPath, err := findFile(dir, AllowedManifestNames)
	if err != nil {
		return nil, err
	}
	if manifestPath != "" {
		m, err := manifest.ReadManifestFile(manifestPath)
		if err != nil {
			return nil, err
		}
		env.ManifestPath = manifestPath
		env.Manifest = m
	} else {
		env.ManifestPath = filepath.Join(dir, AllowedManifestNames[0])
	}

	return env, nil
}

func findFile(dir string, names []string) (string, error) {
	for _, name := range names {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !os.IsNotExist(err) {
			return "", perr.Wrap(perr.IoError, err, "checking for %s", name).WithPath(p)
		}
	}
	return "", nil
}

// withLock runs fn while holding the advisory lock on env.Dir/.pkgdepot.lock,
// per SPEC_FULL.md §7's concurrency model: the lock guards the whole
// write_temp_then_rename sequence, not just the final rename.
func withLock(dir string, fn func() error) error {
	lockPath := filepath.Join(dir, lockFileName)
	fl := flock.NewFlock(lockPath)
	if err := fl.Lock(); err != nil {
		return perr.Wrap(perr.IoError, err, "acquiring advisory lock").WithPath(lockPath)
	}
	defer fl.Unlock()
	return fn()
}
