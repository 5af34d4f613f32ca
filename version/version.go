// Package version implements the version algebra described in the
// specification's §4.1: a concrete Version triple, the arity-aware
// VersionBound, the VersionRange interval built from two bounds, and the
// VersionSpec canonical union of disjoint ranges, together with the semver
// grammar parser and the intersect/union operations.
package version

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Version is a concrete, already-resolved (major, minor, patch) triple. It
// wraps Masterminds/semver.Version for parsing, comparison, and string
// rendering, the same way golang-dep's constraints.go wraps a *semver.Version
// inside its own semVersion type. The constraint algebra layered on top
// (VersionBound/VersionRange/VersionSpec) is hand-built below because the
// semver package's own constraint grammar cannot express arity-aware bounds
// (see DESIGN.md).
type Version struct {
	sv *semver.Version
}

// New constructs a Version directly from non-negative components.
func New(major, minor, patch int64) Version {
	s := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	sv, err := semver.NewVersion(s)
	if err != nil {
		// Components are non-negative ints formatted by us; this can't fail.
		panic(err)
	}
	return Version{sv: sv}
}

// ParseVersion parses a bare "major.minor.patch" (or "major.minor" /
// "major") version string, zero-filling missing components. Unlike Parse
// (which parses a full constraint spec), this never accepts a specifier
// prefix.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, &ParseError{Input: s, Cause: err}
	}
	return Version{sv: sv}, nil
}

// Major returns the major component.
func (v Version) Major() int64 { return v.sv.Major() }

// Minor returns the minor component.
func (v Version) Minor() int64 { return v.sv.Minor() }

// Patch returns the patch component.
func (v Version) Patch() int64 { return v.sv.Patch() }

// Component returns the i'th component (0=major, 1=minor, 2=patch).
func (v Version) Component(i int) int64 {
	switch i {
	case 0:
		return v.Major()
	case 1:
		return v.Minor()
	case 2:
		return v.Patch()
	default:
		panic("version: component index out of range")
	}
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than o,
// comparing (major, minor, patch) lexicographically.
func (v Version) Compare(o Version) int {
	return v.sv.Compare(o.sv)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Equal reports component-wise equality.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

func (v Version) String() string {
	if v.sv == nil {
		return "0.0.0"
	}
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// IsZero reports whether v is the unset Version{}.
func (v Version) IsZero() bool { return v.sv == nil }

// ParseError reports a malformed bare version string.
type ParseError struct {
	Input string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Input, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
