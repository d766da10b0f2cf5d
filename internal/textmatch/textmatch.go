// Package textmatch holds the single normalisation used for free-text
// ingredient matching: accents removed, case folded, whitespace collapsed.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s so that "Crème Fraîche " and "creme fraiche" compare equal.
// Transformers are stateful, so a fresh chain is built for every call.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = cases.Fold().String(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Contains reports whether needle occurs in haystack after normalisation.
// An empty needle never matches.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// Patterns is a pre-normalised list of substrings.
type Patterns []string

// Compile normalises raw and drops empty entries.
func Compile(raw []string) Patterns {
	out := make(Patterns, 0, len(raw))
	for _, r := range raw {
		if n := Normalize(r); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// MatchAny reports whether any of texts contains any pattern.
func (p Patterns) MatchAny(texts ...string) bool {
	if len(p) == 0 {
		return false
	}
	for _, text := range texts {
		n := Normalize(text)
		if n == "" {
			continue
		}
		for _, pat := range p {
			if strings.Contains(n, pat) {
				return true
			}
		}
	}
	return false
}

// Key turns an identifier such as "Viande Rouge" into "viande_rouge".
func Key(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "_")
}
