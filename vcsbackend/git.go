// Package vcsbackend implements the VcsBackend collaborator interface
// SPEC_FULL.md §1/§8 treats as external: clone, fetch, checkout_tree, and
// tree_hash. Grounded on golang-dep's vcs_repo.go gitRepo wrapper (itself
// adapted from Masterminds/vcs's own git.go), generalized from an
// import-path-keyed source cache to this domain's plain (url, rev)
// checkout contract.
package vcsbackend

import (
	"context"

	"github.com/Masterminds/vcs"

	"github.com/pkgdepot/core/perr"
	"github.com/pkgdepot/core/treehash"
)

// VcsBackend is the narrow interface the resolver/fetcher layer calls
// into for git-tracked dependencies, per SPEC_FULL.md §1's "treat as
// external collaborator" framing.
type VcsBackend interface {
	Clone(ctx context.Context, url, dest string) error
	Fetch(ctx context.Context, dest string) error
	CheckoutTree(ctx context.Context, dest, rev string) error
	TreeHash(dest string) (treehash.Hash, error)
}

// GitBackend is the concrete VcsBackend backed by Masterminds/vcs's
// *vcs.GitRepo, the same library golang-dep itself depends on for its own
// VCS interaction.
type GitBackend struct{}

// NewGitBackend constructs the default git-backed VcsBackend.
func NewGitBackend() *GitBackend { return &GitBackend{} }

func (GitBackend) Clone(ctx context.Context, url, dest string) error {
	if err := ctx.Err(); err != nil {
		return perr.Wrap(perr.Cancelled, err, "cloning %s", url)
	}
	repo, err := vcs.NewGitRepo(url, dest)
	if err != nil {
		return perr.Wrap(perr.VcsError, err, "preparing git repo for %s", url).WithPath(dest)
	}
	if err := repo.Get(); err != nil {
		return perr.Wrap(perr.VcsError, err, "cloning %s", url).WithPath(dest)
	}
	return nil
}

func (GitBackend) Fetch(ctx context.Context, dest string) error {
	if err := ctx.Err(); err != nil {
		return perr.Wrap(perr.Cancelled, err, "fetching into %s", dest)
	}
	repo, err := vcs.NewGitRepo("", dest)
	if err != nil {
		return perr.Wrap(perr.VcsError, err, "opening git repo").WithPath(dest)
	}
	if err := repo.Update(); err != nil {
		return perr.Wrap(perr.VcsError, err, "fetching").WithPath(dest)
	}
	return nil
}

func (GitBackend) CheckoutTree(ctx context.Context, dest, rev string) error {
	if err := ctx.Err(); err != nil {
		return perr.Wrap(perr.Cancelled, err, "checking out %s", rev)
	}
	repo, err := vcs.NewGitRepo("", dest)
	if err != nil {
		return perr.Wrap(perr.VcsError, err, "opening git repo").WithPath(dest)
	}
	if err := repo.UpdateVersion(rev); err != nil {
		return perr.Wrap(perr.VcsError, err, "checking out %s", rev).WithPath(dest)
	}
	return nil
}

// TreeHash computes the git-compatible tree hash of dest's working copy,
// delegating to the treehash package rather than shelling out to
// `git write-tree`: the engine needs the hash of a plain directory (a
// freshly fetched tree may not even have a .git yet when this is called
// against a Fetcher-managed install path), not specifically a git object.
func (GitBackend) TreeHash(dest string) (treehash.Hash, error) {
	h, err := treehash.Compute(dest)
	if err != nil {
		return treehash.Hash{}, perr.Wrap(perr.IoError, err, "computing tree hash").WithPath(dest)
	}
	return h, nil
}
