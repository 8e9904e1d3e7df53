// Package normalize canonicalizes raw identifier strings before matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds the fixed-point loop in Normalize.
const maxPasses = 4

// Normalize lowercases, folds compatibility forms and accents, drops
// punctuation that carries no meaning in names, and collapses whitespace.
// It is pure and idempotent; whitespace-only input yields "".
func Normalize(raw string) string {
	out := pass(raw)
	// Deleting punctuation can bring runes together that compose under NFKC,
	// so repeat until nothing changes.
	for i := 1; i < maxPasses; i++ {
		next := pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func pass(raw string) string {
	s := strings.ToValidUTF8(raw, "")
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	s = foldAccents(s)
	return strings.Join(strings.Fields(stripPunctuation(s)), " ")
}

// diacritics is the Combining Diacritical Marks block. Marks outside it,
// such as Indic vowel signs and viramas, spell the word and are kept.
var diacritics = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

// foldAccents builds its chain per call: transform.Chain carries state.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(diacritics)), norm.NFKC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func isSeparator(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '/', '\\', '(', ')', '[', ']', '{', '}',
		'|', '!', '?', '"', '*', '+', '_':
		return true
	}
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '`', '\u2018', '\u2019', '\u00b4':
		return true
	}
	return false
}

func isHyphen(r rune) bool {
	switch r {
	case '-', '\u2010', '\u2011', '\u2012', '\u2013', '\u2014', '\u2212':
		return true
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// stripPunctuation keeps a hyphen only when both input neighbours are
// alphanumeric ("mbbs-md" stays, "--", " - " and edge hyphens go).
func stripPunctuation(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range rs {
		switch {
		case isApostrophe(r):
			continue
		case isHyphen(r):
			if i > 0 && i < len(rs)-1 && isAlnum(rs[i-1]) && isAlnum(rs[i+1]) {
				b.WriteByte('-')
			} else {
				b.WriteByte(' ')
			}
		case isSeparator(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits a normalized string into distinct lookup tokens for
// candidate pre-filtering. Short tokens and connectives are skipped unless
// nothing else remains.
func Tokens(normalized string) []string {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ' ' || r == '-'
	})
	seen := make(map[string]struct{}, len(fields))
	distinct := make([]string, 0, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		distinct = append(distinct, f)
		if !isStopword(f) {
			tokens = append(tokens, f)
		}
	}
	if len(tokens) == 0 {
		return distinct
	}
	return tokens
}

var stopwords = map[string]struct{}{
	"of": {}, "and": {}, "the": {}, "&": {}, "for": {}, "in": {}, "at": {},
}

func isStopword(tok string) bool {
	if len([]rune(tok)) < 2 {
		return true
	}
	_, ok := stopwords[tok]
	return ok
}
