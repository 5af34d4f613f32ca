package vcsbackend

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

// buildSourceRepo creates a small git repo with two commits, returning its
// path and the first commit's hash.
func buildSourceRepo(t *testing.T) (repoPath string, firstCommit string) {
	t.Helper()
	repoPath = t.TempDir()
	runGit(t, repoPath, "init")
	if err := os.WriteFile(filepath.Join(repoPath, "a.txt"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, repoPath, "add", "a.txt")
	runGit(t, repoPath, "commit", "-m", "first")

	out, err := exec.Command("git", "-C", repoPath, "rev-parse", "HEAD").Output()
	if err != nil {
		t.Fatal(err)
	}
	firstCommit = string(out[:40])

	if err := os.WriteFile(filepath.Join(repoPath, "b.txt"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, repoPath, "add", "b.txt")
	runGit(t, repoPath, "commit", "-m", "second")
	return repoPath, firstCommit
}

func TestGitBackendCloneFetchCheckoutTree(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	src, firstCommit := buildSourceRepo(t)
	dest := filepath.Join(t.TempDir(), "clone")

	backend := NewGitBackend()
	ctx := context.Background()

	if err := backend.Clone(ctx, src, dest); err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "b.txt")); err != nil {
		t.Fatalf("expected clone to contain the latest commit's files: %v", err)
	}

	if err := backend.CheckoutTree(ctx, dest, firstCommit); err != nil {
		t.Fatalf("CheckoutTree: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "b.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected b.txt to be absent after checking out the first commit, err=%v", err)
	}

	if err := backend.Fetch(ctx, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	h1, err := backend.TreeHash(dest)
	if err != nil {
		t.Fatalf("TreeHash: %v", err)
	}
	if err := backend.CheckoutTree(ctx, dest, "master"); err != nil {
		// some git versions default the initial branch to "main"
		if err2 := backend.CheckoutTree(ctx, dest, "main"); err2 != nil {
			t.Fatalf("CheckoutTree back to head: %v / %v", err, err2)
		}
	}
	h2, err := backend.TreeHash(dest)
	if err != nil {
		t.Fatalf("TreeHash: %v", err)
	}
	if h1 == h2 {
		t.Errorf("expected tree hash to differ between the two checked-out trees")
	}
}
