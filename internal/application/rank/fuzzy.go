package rank

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

const (
	matchPoints       = 1.0
	consecutiveBonus  = 2.0
	wordStartBonus    = 1.0
	maxPointsPerRune  = matchPoints + consecutiveBonus + wordStartBonus
	nonSubsequenceCap = 0.5
)

// TextScore scores how well query matches target, in [0, 1].
//
// Targets containing query as a case-insensitive subsequence score by
// matcher points; everything else falls back to edit-distance similarity
// capped at 0.5 so it never outranks a real subsequence hit of similar
// quality.
func TextScore(query, target string) float64 {
	q := []rune(strings.ToLower(strings.TrimSpace(query)))
	if len(q) == 0 || target == "" {
		return 0
	}
	t := []rune(strings.ToLower(target))
	if string(q) == string(t) {
		return 1
	}
	if pts, ok := subsequencePoints(q, t); ok {
		score := pts / (maxPointsPerRune * float64(len(q)))
		if score > 1 {
			score = 1
		}
		return score
	}
	return similarity(string(q), string(t)) * nonSubsequenceCap
}

func subsequencePoints(q, t []rune) (float64, bool) {
	var points float64
	qi := 0
	prev := -2
	for ti := 0; ti < len(t) && qi < len(q); ti++ {
		if t[ti] != q[qi] {
			continue
		}
		points += matchPoints
		if prev == ti-1 {
			points += consecutiveBonus
		}
		if isWordStart(t, ti) {
			points += wordStartBonus
		}
		prev = ti
		qi++
	}
	return points, qi == len(q)
}

func isWordStart(t []rune, i int) bool {
	if i == 0 {
		return true
	}
	p := t[i-1]
	return !unicode.IsLetter(p) && !unicode.IsDigit(p)
}

func similarity(a, b string) float64 {
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
