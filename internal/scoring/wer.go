package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize turns free text into comparison tokens: compatibility
// normalization, case folding, punctuation and symbol removal, whitespace
// collapse.
func Normalize(text string) []string {
	s := norm.NFKC.String(text)
	// a Caser is stateful, so one per call
	s = cases.Fold().String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
	return strings.Fields(s)
}

// EditDistance is the token-level Levenshtein distance with unit costs.
func EditDistance(ref, hyp []string) int {
	if len(ref) == 0 {
		return len(hyp)
	}
	if len(hyp) == 0 {
		return len(ref)
	}

	prev := make([]int, len(hyp)+1)
	cur := make([]int, len(hyp)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ref); i++ {
		cur[0] = i
		for j := 1; j <= len(hyp); j++ {
			sub := prev[j-1]
			if ref[i-1] != hyp[j-1] {
				sub++
			}
			cur[j] = min(sub, prev[j]+1, cur[j-1]+1)
		}
		prev, cur = cur, prev
	}

	return prev[len(hyp)]
}

// WordErrorRate compares two transcripts after normalization.
// The denominator is the reference token count, floored at one.
func WordErrorRate(reference, hypothesis string) float64 {
	ref := Normalize(reference)
	hyp := Normalize(hypothesis)
	return float64(EditDistance(ref, hyp)) / float64(max(1, len(ref)))
}
