// Package treehash computes git-compatible tree hashes: a content-addressed
// digest of a directory tree using git's own tree-object convention (see
// SPEC_FULL.md §8 "Tree hash"). crypto/sha1 is used because git's object
// format is defined in terms of SHA-1 — no library in the retrieval pack
// offers a bare git-object hasher without pulling in a full git
// implementation the pack doesn't otherwise exercise (see DESIGN.md).
package treehash

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/karrick/godirwalk"
)

// Hash is a 20-byte git tree-object digest.
type Hash [20]byte

// String renders the hash as lowercase hex, as git itself prints object
// IDs.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ParseHash parses a 40-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 20 {
		return Hash{}, fmt.Errorf("treehash: invalid tree hash %q", s)
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// entry is one line of a git tree object: a mode, a name, and the hash of
// the blob or subtree it points to.
type entry struct {
	mode string
	name string
	hash Hash
}

// Compute walks root (skipping ".git") and returns the git tree hash of the
// directory, per the convention: entries sorted with directories suffixed
// by "/" for ordering purposes only, each rendered as
// "mode SP name NUL 20-byte-sha1", concatenated after a "tree <size>\0"
// header and hashed with SHA-1. Directories containing no files
// (transitively) are excluded from their parent's entry list.
func Compute(root string) (Hash, error) {
	entries, err := treeEntries(root)
	if err != nil {
		return Hash{}, err
	}
	if len(entries) == 0 {
		return Hash{}, nil
	}
	return hashEntries(entries), nil
}

// treeEntries lists dir's immediate children with godirwalk.ReadDirents
// rather than os.ReadDir: godirwalk resolves the node type (dir/symlink/
// regular) for each child from the directory read itself, so directories
// and symlinks need no further stat before recursing or reading the link
// target. A regular file still needs one os.Lstat to recover its
// executable bit, which the directory read doesn't expose.
func treeEntries(dir string) ([]entry, error) {
	children, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, err
	}

	var entries []entry
	for _, de := range children {
		name := de.Name()
		if name == ".git" {
			continue
		}
		full := filepath.Join(dir, name)

		switch {
		case de.IsSymlink():
			target, err := os.Readlink(full)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry{mode: "120000", name: name, hash: blobHash([]byte(target))})
		case de.IsDir():
			sub, err := treeEntries(full)
			if err != nil {
				return nil, err
			}
			if len(sub) == 0 {
				continue // exclude directories with no files, transitively
			}
			entries = append(entries, entry{mode: "40000", name: name, hash: hashEntries(sub)})
		default:
			content, err := os.ReadFile(full)
			if err != nil {
				return nil, err
			}
			mode := "100644"
			fi, err := os.Lstat(full)
			if err != nil {
				return nil, err
			}
			if fi.Mode()&0111 != 0 {
				mode = "100755"
			}
			entries = append(entries, entry{mode: mode, name: name, hash: blobHash(content)})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})
	return entries, nil
}

// sortKey suffixes directory names with "/" for git's tree-entry ordering,
// which treats "foo/" as sorting after "foo.txt" but before "foog".
func sortKey(e entry) string {
	if e.mode == "40000" {
		return e.name + "/"
	}
	return e.name
}

func blobHash(content []byte) Hash {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func hashEntries(entries []entry) Hash {
	var body []byte
	for _, e := range entries {
		body = append(body, []byte(e.mode+" "+e.name)...)
		body = append(body, 0)
		body = append(body, e.hash[:]...)
	}

	h := sha1.New()
	fmt.Fprintf(h, "tree %d\x00", len(body))
	h.Write(body)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
