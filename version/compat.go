package version

// Compat pairs a compatibility constraint's original user-written text with
// its parsed Spec, so that writing a Project/Registry back out can reproduce
// the text the user typed rather than a re-derived canonical string.
type Compat struct {
	Text string
	Spec Spec
}

// ParseCompat parses text into a Compat, preserving text verbatim.
func ParseCompat(text string) (Compat, error) {
	spec, err := Parse(text)
	if err != nil {
		return Compat{}, err
	}
	return Compat{Text: text, Spec: spec}, nil
}

// AnyCompat is the default compat applied when a dependency has no explicit
// entry: unconstrained (matches any version).
func AnyCompat() Compat {
	return Compat{Text: "", Spec: Any()}
}

// Contains reports whether v satisfies c's parsed Spec.
func (c Compat) Contains(v Version) bool { return c.Spec.Contains(v) }

// IsCanonical reports whether c.Text already equals the canonical string
// form of c.Spec (used by callers deciding whether to flag a mismatch, not
// to silently rewrite the user's text).
func (c Compat) IsCanonical() bool { return c.Text == c.Spec.String() }
