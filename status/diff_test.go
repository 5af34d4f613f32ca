package status

import (
	"testing"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/manifest"
	"github.com/pkgdepot/core/version"
)

func mustUUID(t *testing.T, s string) ids.UUID {
	t.Helper()
	u, err := ids.ParseUUID(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestDiffAddedRemovedDowngraded(t *testing.T) {
	alpha := mustUUID(t, "00000000-0000-0000-0000-0000000000a1")
	beta := mustUUID(t, "00000000-0000-0000-0000-0000000000b1")
	gamma := mustUUID(t, "00000000-0000-0000-0000-0000000000c1")

	v1 := version.New(1, 0, 0)
	v2 := version.New(2, 0, 0)

	old := &manifest.Manifest{Deps: map[ids.UUID]manifest.PackageEntry{
		alpha: {Name: "Alpha", Version: &v2},
		beta:  {Name: "Beta", Version: &v1},
	}}
	newM := &manifest.Manifest{Deps: map[ids.UUID]manifest.PackageEntry{
		alpha: {Name: "Alpha", Version: &v1},
		gamma: {Name: "Gamma", Version: &v1},
	}}

	rows := Diff(old, newM)
	byUUID := make(map[ids.UUID]Row)
	for _, r := range rows {
		byUUID[r.UUID] = r
	}

	if r := byUUID[alpha]; r.Kind != Downgraded {
		t.Errorf("Alpha kind = %v, want Downgraded", r.Kind)
	}
	if r := byUUID[beta]; r.Kind != Removed {
		t.Errorf("Beta kind = %v, want Removed", r.Kind)
	}
	if r := byUUID[gamma]; r.Kind != Added {
		t.Errorf("Gamma kind = %v, want Added", r.Kind)
	}
}

func TestDiffUpgradeAndUnchanged(t *testing.T) {
	alpha := mustUUID(t, "00000000-0000-0000-0000-0000000000a1")
	v1 := version.New(1, 0, 0)
	v2 := version.New(2, 0, 0)

	old := &manifest.Manifest{Deps: map[ids.UUID]manifest.PackageEntry{
		alpha: {Name: "Alpha", Version: &v1},
	}}
	newM := &manifest.Manifest{Deps: map[ids.UUID]manifest.PackageEntry{
		alpha: {Name: "Alpha", Version: &v2},
	}}
	rows := Diff(old, newM)
	if rows[0].Kind != Upgraded {
		t.Errorf("kind = %v, want Upgraded", rows[0].Kind)
	}

	unchanged := Diff(newM, newM)
	if unchanged[0].Kind != Unchanged {
		t.Errorf("kind = %v, want Unchanged", unchanged[0].Kind)
	}
}

func TestDiffChangedOnSourceSwitch(t *testing.T) {
	alpha := mustUUID(t, "00000000-0000-0000-0000-0000000000a1")
	v1 := version.New(1, 0, 0)

	old := &manifest.Manifest{Deps: map[ids.UUID]manifest.PackageEntry{
		alpha: {Name: "Alpha", Version: &v1},
	}}
	newM := &manifest.Manifest{Deps: map[ids.UUID]manifest.PackageEntry{
		alpha: {Name: "Alpha", Version: &v1, Path: "../Alpha"},
	}}

	rows := Diff(old, newM)
	if rows[0].Kind != Changed {
		t.Errorf("kind = %v, want Changed (path dep switch)", rows[0].Kind)
	}
}
