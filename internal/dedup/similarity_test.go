package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "SUPERMARKET XYZ", "SUPERMARKET XYZ", 1},
		{"case", "Supermarket Xyz", "SUPERMARKET XYZ", 1},
		{"whitespace", "  SUPERMARKET   XYZ ", "SUPERMARKET XYZ", 1},
		{"punctuation", "SUPERMARKET, XYZ.", "SUPERMARKET XYZ", 1},
		{"both empty", "", "", 1},
		{"one empty", "", "SUPERMARKET", 0},
		{"only punctuation", "--", "SUPERMARKET", 0},
		// 4 insertions over 34 runes.
		{"trailing reference", "SUPERMARKET XYZ 123", "SUPERMARKET XYZ", 30.0 / 34.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"AMAZON MKTPLACE PMTS", "AMAZON MARKETPLACE"},
		{"UBER *TRIP", "UBER TRIP HELP.UBER.COM"},
		{"café", "CAFE"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestSimilarity_Range(t *testing.T) {
	inputs := []string{"", "a", "SUPERMARKET XYZ 123", "GASOLINERA REPSOL", "Ñandú", "12345"}
	for _, a := range inputs {
		for _, b := range inputs {
			s := Similarity(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestSimilarity_Unrelated(t *testing.T) {
	assert.Less(t, Similarity("GASOLINERA REPSOL", "NETFLIX.COM"), DefaultSimilarityThreshold)
}
