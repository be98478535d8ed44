// Package version parses and orders the loose version strings found in
// plugin file headers and metadata "version" conditions. These are not
// semantic-version strings: they are whatever a mod author typed into a
// header field, so parsing never fails.
package version

import (
	"strconv"
	"strings"
)

// suffixRank orders the alpha-only components treated specially.
// Unrecognised alpha components sort after these by lexicographic
// comparison, but all of them sort before a bare numeric suffix and after
// "alpha" < "beta" < "pre" < "rc" < "" (absent suffix).
var suffixRank = map[string]int{
	"alpha": 0,
	"beta":  1,
	"pre":   2,
	"rc":    3,
	"":      4,
}

// Version is a parsed, comparable loose version string.
type Version struct {
	raw        string
	components []component
}

// component is one piece of a version string: either a numeric run or an
// alpha run, never both.
type component struct {
	numeric bool
	num     int64
	text    string
}

// Parse splits s into components and returns a comparable Version. Parse
// never fails: malformed input yields best-effort components, and empty
// input yields an empty component list, which compares equal to "0".
func Parse(s string) Version {
	fields := splitFields(s)
	components := make([]component, 0, len(fields))
	for _, f := range fields {
		components = append(components, splitComponent(f)...)
	}
	return Version{raw: s, components: components}
}

// String returns the original, unparsed version string.
func (v Version) String() string {
	return v.raw
}

// splitFields splits on any run of '.', '-', or whitespace.
func splitFields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// splitComponent further splits a field into maximal digit / non-digit runs.
func splitComponent(field string) []component {
	var out []component
	var cur strings.Builder
	curIsDigit := false
	started := false

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		if curIsDigit {
			n, err := strconv.ParseInt(cur.String(), 10, 64)
			if err != nil {
				// Overflow or otherwise unparsable digit run: fall back to
				// lexicographic comparison by treating it as text.
				out = append(out, component{numeric: false, text: cur.String()})
			} else {
				out = append(out, component{numeric: true, num: n})
			}
		} else {
			out = append(out, component{numeric: false, text: cur.String()})
		}
		cur.Reset()
	}

	for _, r := range field {
		isDigit := r >= '0' && r <= '9'
		if started && isDigit != curIsDigit {
			flush()
		}
		cur.WriteRune(r)
		curIsDigit = isDigit
		started = true
	}
	flush()
	return out
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other.
func Compare(v, other Version) int {
	n := len(v.components)
	if len(other.components) > n {
		n = len(other.components)
	}
	for i := 0; i < n; i++ {
		a := componentAt(v.components, other.components, i)
		b := componentAt(other.components, v.components, i)
		if c := compareComponent(a, b); c != 0 {
			return c
		}
	}
	return 0
}

// Less reports whether v orders strictly before other.
func Less(v, other Version) bool {
	return Compare(v, other) < 0
}

// Equal reports whether v and other compare equal.
func Equal(v, other Version) bool {
	return Compare(v, other) == 0
}

// componentAt returns the zero value for a missing trailing component: an
// empty alpha component when other has an alpha component at i, else a
// numeric zero, so missing trailing components compare as 0 for numeric, as
// empty for alpha.
func componentAt(components, other []component, i int) component {
	if i < len(components) {
		return components[i]
	}
	if i < len(other) && !other[i].numeric {
		return component{}
	}
	return component{numeric: true, num: 0}
}

// numericRank is the rank a bare numeric component occupies relative to the
// named alpha suffixes: above "rc" and the empty (no-suffix) component.
const numericRank = 5

func compareComponent(a, b component) int {
	if a.numeric && b.numeric {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	}
	if r := rankOf(a) - rankOf(b); r != 0 {
		return r
	}
	if !a.numeric && !b.numeric {
		return strings.Compare(strings.ToLower(a.text), strings.ToLower(b.text))
	}
	return 0
}

// rankOf places a component on the single ordering line
// alpha < beta < pre < rc < "" < numeric, so two components of differing
// kind (or differing recognised suffix) can be compared by integer rank.
func rankOf(c component) int {
	if c.numeric {
		return numericRank
	}
	if rank, known := suffixRank[strings.ToLower(c.text)]; known {
		return rank
	}
	// Unrecognised alpha text has no special rank; it shares the rank of ""
	// (above the four named suffixes, below numeric) and same-rank
	// collisions fall back to lexicographic comparison.
	return suffixRank[""]
}
