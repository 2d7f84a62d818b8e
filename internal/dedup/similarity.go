package dedup

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Similarity scores two descriptions in [0,1]. Both sides are lowercased,
// punctuation becomes whitespace and whitespace runs collapse, then the
// Levenshtein ratio (|a|+|b|-d)/(|a|+|b|) is taken with substitutions
// costing two. Identical normalized text scores 1.
func Similarity(a, b string) float64 {
	na, nb := foldDescription(a), foldDescription(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	return levenshtein.RatioForStrings([]rune(na), []rune(nb), levenshtein.DefaultOptions)
}

func foldDescription(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
