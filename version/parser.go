package version

import (
	"strconv"
	"strings"
)

// specifiers, longest-prefix first so "<=" is tried before "<".
var specifierPrefixes = []string{">=", "<=", "^", "~", "=", "≤", "≥", "<", ">"}

// Parse parses a comma-separated list of atoms into a canonical Spec, per
// the grammar in SPEC_FULL.md §4.1 / §6.1.
func Parse(input string) (Spec, error) {
	atoms := strings.Split(input, ",")
	ranges := make([]Range, 0, len(atoms))
	for _, a := range atoms {
		r, err := parseAtom(a)
		if err != nil {
			return Spec{}, err
		}
		ranges = append(ranges, r)
	}
	return FromRanges(ranges...), nil
}

func parseAtom(raw string) (Range, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Range{}, &IncompleteVersionError{Input: raw}
	}

	if idx := strings.Index(s, " - "); idx >= 0 {
		left := strings.TrimSpace(s[:idx])
		right := strings.TrimSpace(s[idx+len(" - "):])
		if left == "" || right == "" {
			return Range{}, &IncompleteHyphenError{Input: raw}
		}
		lb, err := parseVernum(strings.TrimPrefix(left, "v"))
		if err != nil {
			return Range{}, err
		}
		rb, err := parseVernum(strings.TrimPrefix(right, "v"))
		if err != nil {
			return Range{}, err
		}
		return NewRange(lb, rb), nil
	}

	spec, rest := splitSpecifier(s)
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "v")
	if rest == "" {
		return Range{}, &IncompleteVersionError{Input: raw}
	}

	b, err := parseVernum(rest)
	if err != nil {
		return Range{}, err
	}
	return rangeForUnary(spec, b)
}

func splitSpecifier(s string) (specifier, rest string) {
	for _, p := range specifierPrefixes {
		if strings.HasPrefix(s, p) {
			return p, s[len(p):]
		}
	}
	return "", s
}

func rangeForUnary(specifier string, v Bound) (Range, error) {
	switch specifier {
	case "", "^":
		return NewRange(v, caretUpper(v)), nil
	case "~":
		return NewRange(v, tildeUpper(v)), nil
	case "=":
		return NewRange(v, v), nil
	case "≤", "<=":
		return NewRange(NewBound(0), v), nil
	case "<":
		return NewRange(NewBound(0), decrementLeastNonZero(v)), nil
	case "≥", ">=":
		return NewRange(v, Bound{n: 0}), nil
	case ">":
		return NewRange(incrementLast(v), Bound{n: 0}), nil
	default:
		return Range{}, &InvalidSpecifierError{Specifier: specifier}
	}
}

// parseVernum parses a dot-separated sequence of 1-3 non-negative integers,
// rejecting the bare "0.0.0".
func parseVernum(s string) (Bound, error) {
	if s == "" {
		return Bound{}, &IncompleteVersionError{Input: s}
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Bound{}, &InvalidVersionError{Input: s}
	}
	nums := make([]int64, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return Bound{}, &IncompleteVersionError{Input: s}
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return Bound{}, &InvalidVersionError{Input: s}
		}
		nums = append(nums, n)
	}
	if len(nums) == 3 && nums[0] == 0 && nums[1] == 0 && nums[2] == 0 {
		return Bound{}, &InvalidVersionError{Input: s, Reason: "bare 0.0.0 is not allowed"}
	}
	return NewBound(nums...), nil
}

// ParseBound parses a bare dot-separated sequence of 1-3 non-negative
// integers into a Bound, without the "bare 0.0.0 is invalid" restriction
// that applies to constraint atoms. Used to parse the version-range keys of
// a registry's compressed compat/deps tables (e.g. "0.1.0-0.3"), where a
// component range legitimately starts at zero.
func ParseBound(s string) (Bound, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Bound{}, &IncompleteVersionError{Input: s}
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Bound{}, &InvalidVersionError{Input: s}
	}
	nums := make([]int64, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return Bound{}, &IncompleteVersionError{Input: s}
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return Bound{}, &InvalidVersionError{Input: s}
		}
		nums = append(nums, n)
	}
	return NewBound(nums...), nil
}

// caretUpper implements the "^v" interpretation: the upper bound stops at
// the first non-zero leading component.
func caretUpper(lower Bound) Bound {
	t := lower.t
	switch {
	case t[0] != 0:
		return NewBound(t[0])
	case t[1] != 0:
		return NewBound(0, t[1])
	default:
		return NewBound(0, 0, t[2])
	}
}

// tildeUpper implements the "~v" interpretation: arity-1 input locks the
// major component; any wider input locks (major, minor).
func tildeUpper(lower Bound) Bound {
	if lower.n <= 1 {
		return NewBound(lower.t[0])
	}
	return NewBound(lower.t[0], lower.t[1])
}

// decrementLeastNonZero implements "< v": find the rightmost specified
// component that is non-zero, decrement it by one, and drop everything
// after it (the borrow leaves later components unconstrained).
func decrementLeastNonZero(b Bound) Bound {
	t := b.t
	for i := b.n - 1; i >= 0; i-- {
		if t[i] != 0 {
			nt := t
			nt[i]--
			for j := i + 1; j < 3; j++ {
				nt[j] = 0
			}
			return Bound{t: nt, n: i + 1}
		}
	}
	// every specified component was zero; there is no non-negative version
	// strictly below it, so the resulting bound matches nothing useful
	// below zero. Treated as the empty lower extreme.
	return Bound{n: 0}
}

// incrementLast implements "> v": increment the least-significant specified
// component, keeping the same arity.
func incrementLast(b Bound) Bound {
	t := b.t
	t[b.n-1]++
	return Bound{t: t, n: b.n}
}
