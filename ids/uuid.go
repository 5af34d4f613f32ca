// Package ids holds the identity and pre-resolution record types: the
// 128-bit package UUID, the git-style tree hash handle, and the PackageSpec
// request record that seeds a resolve.
package ids

import (
	"github.com/google/uuid"
)

// UUID identifies a package uniquely across registries. Names are a
// convenience with no uniqueness guarantee; UUID is the only stable key.
type UUID = uuid.UUID

// Nil is the zero UUID, used as a sentinel for "no uuid assigned yet".
var Nil = uuid.Nil

// ParseUUID parses a canonical 36-character UUID string.
func ParseUUID(s string) (UUID, error) {
	return uuid.Parse(s)
}

// MustParseUUID panics on malformed input; reserved for compile-time
// constants such as HostUUID below.
func MustParseUUID(s string) UUID {
	return uuid.MustParse(s)
}

// HostUUID is the reserved identifier for the host-runtime pseudo-package
// (see GLOSSARY "Fixed package" and design note on the host-runtime
// pseudo-package). It never appears in a registry; the resolver injects it
// directly into the graph at HostVersion.
var HostUUID = MustParseUUID("1222c996-8f08-42a1-93a3-15462cb28dac")

// HostCompatName is the pseudo-package name used in Project.Compat and
// PkgInfo.Compat to express a constraint against the host runtime version.
// It is never surfaced in user-facing error text as a language name — see
// design note in SPEC_FULL.md §11.
const HostCompatName = "julia"
