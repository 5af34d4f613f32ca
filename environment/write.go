package environment

import (
	"os"
	"path/filepath"

	"github.com/pkgdepot/core/manifest"
	"github.com/pkgdepot/core/perr"
)

// Write prunes env.Manifest (if present) back to what's reachable from
// env.Project, then writes both files atomically under env.Dir's advisory
// lock, creating env.Dir if it doesn't already exist. Mirrors SPEC_FULL.md
// §4.4's write_environment: prune, then write both files.
func Write(env *Environment) error {
	if err := os.MkdirAll(env.Dir, 0o755); err != nil {
		return perr.Wrap(perr.IoError, err, "creating environment directory").WithPath(env.Dir)
	}

	return withLock(env.Dir, func() error {
		if env.Manifest != nil {
			PruneManifest(env.Project, env.Manifest)
		}

		if err := manifest.WriteProjectFile(env.ProjectPath, env.Project); err != nil {
			return err
		}

		if env.Manifest == nil {
			return nil
		}
		if env.ManifestPath == "" {
			env.ManifestPath = filepath.Join(env.Dir, AllowedManifestNames[0])
		}
		return manifest.WriteManifestFile(env.ManifestPath, env.Manifest)
	})
}
