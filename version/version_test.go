package version

import "testing"

func TestParseCaret(t *testing.T) {
	cases := []struct {
		in    string
		allow []string
		deny  []string
	}{
		{"^1.2.3", []string{"1.2.3", "1.2.9", "1.9.0"}, []string{"1.2.2", "2.0.0"}},
		{"1.2.3", []string{"1.2.3", "1.9.9"}, []string{"1.2.2", "2.0.0"}}, // omitted specifier == ^
		{"^0.2.3", []string{"0.2.3", "0.2.9"}, []string{"0.2.2", "0.3.0"}},
		{"^0.0.3", []string{"0.0.3"}, []string{"0.0.2", "0.0.4"}},
	}
	for _, c := range cases {
		spec, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		for _, a := range c.allow {
			v, err := ParseVersion(a)
			if err != nil {
				t.Fatalf("ParseVersion(%q): %v", a, err)
			}
			if !spec.Contains(v) {
				t.Errorf("Parse(%q).Contains(%q) = false, want true", c.in, a)
			}
		}
		for _, d := range c.deny {
			v, err := ParseVersion(d)
			if err != nil {
				t.Fatalf("ParseVersion(%q): %v", d, err)
			}
			if spec.Contains(v) {
				t.Errorf("Parse(%q).Contains(%q) = true, want false", c.in, d)
			}
		}
	}
}

func TestTildeAndBareOperators(t *testing.T) {
	spec, err := Parse("~1.2")
	if err != nil {
		t.Fatal(err)
	}
	v129, _ := ParseVersion("1.2.9")
	v130, _ := ParseVersion("1.3.0")
	if !spec.Contains(v129) {
		t.Errorf("~1.2 should contain 1.2.9")
	}
	if spec.Contains(v130) {
		t.Errorf("~1.2 should not contain 1.3.0")
	}

	eq, err := Parse("=2.0.0")
	if err != nil {
		t.Fatal(err)
	}
	v200, _ := ParseVersion("2.0.0")
	v201, _ := ParseVersion("2.0.1")
	if !eq.Contains(v200) || eq.Contains(v201) {
		t.Errorf("=2.0.0 should contain only 2.0.0")
	}

	le, err := Parse("≤1.5")
	if err != nil {
		t.Fatal(err)
	}
	v0, _ := ParseVersion("0.0.1")
	v16, _ := ParseVersion("1.6.0")
	if !le.Contains(v0) {
		t.Errorf("≤1.5 should contain 0.0.1")
	}
	if le.Contains(v16) {
		t.Errorf("≤1.5 should not contain 1.6.0")
	}

	ge, err := Parse("≥1.5")
	if err != nil {
		t.Fatal(err)
	}
	v100, _ := ParseVersion("100.0.0")
	if !ge.Contains(v100) {
		t.Errorf("≥1.5 should contain 100.0.0 (unbounded above)")
	}
	if ge.Contains(v0) {
		t.Errorf("≥1.5 should not contain 0.0.1")
	}
}

func TestHyphenRange(t *testing.T) {
	spec, err := Parse("1.2.3 - 1.4.0")
	if err != nil {
		t.Fatal(err)
	}
	in, _ := ParseVersion("1.3.5")
	below, _ := ParseVersion("1.2.2")
	above, _ := ParseVersion("1.4.1")
	if !spec.Contains(in) {
		t.Errorf("hyphen range should contain 1.3.5")
	}
	if spec.Contains(below) || spec.Contains(above) {
		t.Errorf("hyphen range should not contain %v or %v", below, above)
	}
}

func TestRejectBareZero(t *testing.T) {
	if _, err := Parse("0.0.0"); err == nil {
		t.Errorf("expected error parsing bare 0.0.0")
	}
}

func TestUnionIdempotent(t *testing.T) {
	a, _ := Parse("^1.0.0")
	b, _ := Parse("^1.5.0")
	u1 := Union(a, b)
	u2 := Union(u1, u1)
	if len(u1.Ranges()) != len(u2.Ranges()) {
		t.Fatalf("union not idempotent: %v vs %v", u1, u2)
	}
	if u1.String() != u2.String() {
		t.Errorf("union not idempotent: %q vs %q", u1.String(), u2.String())
	}
}

func TestUnionMergesAdjacent(t *testing.T) {
	a, _ := Parse("1.0.0 - 1.2.0")
	b, _ := Parse("1.2.1 - 1.4.0")
	u := Union(a, b)
	if len(u.Ranges()) != 1 {
		t.Errorf("expected adjacent ranges to merge into one, got %d: %v", len(u.Ranges()), u)
	}
}

func TestIntersectSubsetLaw(t *testing.T) {
	a, _ := Parse("^1.0.0")
	b, _ := Parse("^1.2.0")
	i := Intersect(a, b)

	samples := []string{"1.0.0", "1.2.0", "1.5.0", "1.9.9", "2.0.0"}
	for _, s := range samples {
		v, _ := ParseVersion(s)
		got := i.Contains(v)
		want := a.Contains(v) && b.Contains(v)
		if got != want {
			t.Errorf("Intersect containment mismatch for %s: got %v want %v", s, got, want)
		}
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	inputs := []string{"^1.2.3", "~1.2", "=2.0.0"}
	for _, in := range inputs {
		spec, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		out := spec.String()
		reparsed, err := Parse(out)
		if err != nil {
			t.Fatalf("re-parsing canonical form %q: %v", out, err)
		}
		if reparsed.String() != spec.String() {
			t.Errorf("round trip mismatch: %q -> %q -> %q", in, out, reparsed.String())
		}
	}
}
