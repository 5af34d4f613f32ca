package manifest

import (
	"bytes"
	"testing"

	"github.com/pkgdepot/core/ids"
	"github.com/pkgdepot/core/tomlcodec"
)

const sampleManifestTOML = `
host_version = "1.9.0"
project_hash = "deadbeef"

[[deps.Foo]]
uuid = "11111111-1111-1111-1111-111111111111"
version = "1.0.0"
deps = ["Bar"]

[[deps.Bar]]
uuid = "22222222-2222-2222-2222-222222222222"
version = "2.0.0"
`

func TestParseManifestModernForm(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifestTOML), "Manifest.toml")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.HostVersion.Unknown || m.HostVersion.Version == nil || m.HostVersion.Version.String() != "1.9.0" {
		t.Errorf("HostVersion = %+v", m.HostVersion)
	}
	fooUUID := ids.MustParseUUID("11111111-1111-1111-1111-111111111111")
	barUUID := ids.MustParseUUID("22222222-2222-2222-2222-222222222222")
	foo, ok := m.Deps[fooUUID]
	if !ok {
		t.Fatalf("no entry for Foo")
	}
	if foo.Deps["Bar"] != barUUID {
		t.Errorf("Foo.Deps[Bar] = %v, want %v", foo.Deps["Bar"], barUUID)
	}
}

func TestParseManifestLegacyRootForm(t *testing.T) {
	const legacy = `
[[Foo]]
uuid = "11111111-1111-1111-1111-111111111111"
version = "1.0.0"

[[Bar]]
uuid = "22222222-2222-2222-2222-222222222222"
version = "2.0.0"
`
	m, err := ParseManifest([]byte(legacy), "Manifest.toml")
	if err != nil {
		t.Fatalf("ParseManifest (legacy): %v", err)
	}
	if !m.HostVersion.Unknown || m.HostVersion.Version != nil {
		t.Errorf("legacy manifest should migrate host_version to the \"nothing\" tombstone, got %+v", m.HostVersion)
	}
	if m.ProjectHash != "nothing" {
		t.Errorf("legacy manifest should migrate project_hash to the \"nothing\" tombstone, got %q", m.ProjectHash)
	}
	if len(m.Deps) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.Deps))
	}
}

func TestManifestGraphInvariantViolation(t *testing.T) {
	const broken = `
[[deps.Foo]]
uuid = "11111111-1111-1111-1111-111111111111"
deps = ["Ghost"]
`
	if _, err := ParseManifest([]byte(broken), "Manifest.toml"); err == nil {
		t.Fatalf("expected dangling dependency reference to be rejected")
	}
}

func TestManifestAmbiguousNameRejected(t *testing.T) {
	const ambiguous = `
[[deps.Foo]]
uuid = "11111111-1111-1111-1111-111111111111"

[[deps.Foo]]
uuid = "22222222-2222-2222-2222-222222222222"

[[deps.Bar]]
uuid = "33333333-3333-3333-3333-333333333333"
deps = ["Foo"]
`
	if _, err := ParseManifest([]byte(ambiguous), "Manifest.toml"); err == nil {
		t.Fatalf("expected ambiguous bare-name dependency reference to be rejected")
	}
}

func TestManifestWriteParseRoundTrip(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifestTOML), "Manifest.toml")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	var buf bytes.Buffer
	w := tomlcodec.NewWriter(&buf)
	WriteManifest(w, m)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reparsed, err := ParseManifest(buf.Bytes(), "Manifest.toml")
	if err != nil {
		t.Fatalf("re-parsing written manifest: %v\n%s", err, buf.String())
	}
	if len(reparsed.Deps) != len(m.Deps) {
		t.Fatalf("round trip changed entry count: %d vs %d", len(reparsed.Deps), len(m.Deps))
	}
	fooUUID := ids.MustParseUUID("11111111-1111-1111-1111-111111111111")
	barUUID := ids.MustParseUUID("22222222-2222-2222-2222-222222222222")
	if reparsed.Deps[fooUUID].Deps["Bar"] != barUUID {
		t.Errorf("round trip lost Foo -> Bar edge: %v", reparsed.Deps[fooUUID].Deps)
	}
}
