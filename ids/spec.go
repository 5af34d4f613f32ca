package ids

import (
	"github.com/pkgdepot/core/treehash"
	"github.com/pkgdepot/core/version"
)

// GitRepo names a git-tracked dependency source: the repository URL, the
// revision to track, and an optional subdirectory within the tree.
type GitRepo struct {
	URL    string
	Rev    string
	Subdir string
}

// PackageSpec is a pre-resolution request record: a user (or caller)
// expressing what they want for one package, before the resolver has
// assigned it a concrete version. All fields are optional except that at
// least one of Name/UUID must be set for the spec to be usable.
type PackageSpec struct {
	Name       string
	UUID       UUID
	VersionReq *version.Spec
	TreeHash   *treehash.Hash
	Path       string
	Git        *GitRepo
	Pinned     bool
}

// HasUUID reports whether the spec carries an assigned UUID.
func (p PackageSpec) HasUUID() bool { return p.UUID != Nil }

// IsPathDep reports whether this spec tracks a local development path.
func (p PackageSpec) IsPathDep() bool { return p.Path != "" }

// IsGitDep reports whether this spec tracks an explicit git revision.
func (p PackageSpec) IsGitDep() bool { return p.Git != nil && p.Git.Rev != "" }
