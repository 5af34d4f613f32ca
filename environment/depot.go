package environment

import (
	"crypto/sha1"
	"encoding/base32"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/treehash"
)

// slugEncoding is the standard base32 alphabet without padding (Slug
// lowercases its output), used only to turn
// Slug's raw digest into filesystem-safe path components. Nothing reads
// this back apart; per SPEC_FULL.md's own framing the real ecosystem's
// install-slug derivation is "an external helper, treat as opaque", so this
// is an independently defined scheme rather than an attempt to reproduce it
// byte-for-byte.
var slugEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Slug derives the per-version install directory name for a package
// identified by uuid at the given content tree hash. It is stable (the same
// uuid+hash always produces the same slug) and collision-resistant, which
// is all find_installed/InstantiatePath require of it.
func Slug(uuid ids.UUID, hash treehash.Hash) string {
	h := sha1.New()
	h.Write(uuid[:])
	h.Write(hash[:])
	sum := h.Sum(nil)
	return strings.ToLower(slugEncoding.EncodeToString(sum))
}

// FindInstalled searches each depot root in order for
// <depot>/packages/<name>/<slug>, returning the first one that exists on
// disk, per SPEC_FULL.md §4.4/§6.4's find_installed.
func FindInstalled(depotRoots []string, name string, uuid ids.UUID, hash treehash.Hash) (string, bool) {
	slug := Slug(uuid, hash)
	for _, root := range depotRoots {
		p := filepath.Join(root, "packages", name, slug)
		if st, err := os.Stat(p); err == nil && st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// InstantiatePath resolves the on-disk source directory for one resolved
// manifest entry: a path dependency resolves relative to envDir unchanged,
// otherwise the install path is looked up across depotRoots by uuid+hash,
// per SPEC_FULL.md §6.4.
func InstantiatePath(depotRoots []string, envDir, name string, uuid ids.UUID, localPath string, hash treehash.Hash, hasHash bool) (string, bool) {
	if localPath != "" {
		if filepath.IsAbs(localPath) {
			return localPath, true
		}
		return filepath.Join(envDir, localPath), true
	}
	if !hasHash {
		return "", false
	}
	return FindInstalled(depotRoots, name, uuid, hash)
}
