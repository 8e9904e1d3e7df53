// Package similarity scores how alike two normalized names are.
package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	tokenSortWeight = 0.95
	partialWeight   = 0.9
	// partialMinRatio is how much longer one name must be before a
	// substring-style comparison is considered.
	partialMinRatio = 1.5
)

// Score returns a similarity in [0,1] for two normalized strings. It is
// symmetric and deterministic, rounded to four decimals.
func Score(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	best := ratio(a, b)

	ta, tb := tokens(a), tokens(b)
	if s := tokenSortWeight * ratio(sortedJoin(ta), sortedJoin(tb)); s > best {
		best = s
	}
	if s := partialWeight * partial(a, b, ta, tb); s > best {
		best = s
	}
	return round(best)
}

// ratio is 1 - editDistance/maxLen over runes.
func ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// partial compares the shorter name against every window of the longer name
// that has the same number of tokens.
func partial(a, b string, ta, tb []string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	short, long := ta, tb
	if la > lb {
		short, long = tb, ta
		la, lb = lb, la
	}
	if float64(lb) < partialMinRatio*float64(la) || len(short) == 0 || len(short) > len(long) {
		return 0
	}
	needle := strings.Join(short, " ")
	var best float64
	for i := 0; i+len(short) <= len(long); i++ {
		if r := ratio(needle, strings.Join(long[i:i+len(short)], " ")); r > best {
			best = r
		}
	}
	return best
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' })
}

func sortedJoin(toks []string) string {
	sorted := make([]string, len(toks))
	copy(sorted, toks)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
