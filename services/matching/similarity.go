package matching

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

const (
	// TitleWeight is the share of the confidence driven by title similarity.
	TitleWeight = 70
	// YearWeight is the share of the confidence driven by release year proximity.
	YearWeight = 30
	// YearPenaltyPerYear is subtracted from YearWeight per year of difference.
	YearPenaltyPerYear = 5
)

// Similarity returns a case-insensitive normalized Levenshtein similarity in [0,1].
// Lengths and distance are measured in code points.
func Similarity(a, b string) float64 {
	fold := cases.Fold()
	a = fold.String(a)
	b = fold.String(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(a, b)
	return float64(longest-d) / float64(longest)
}

// Confidence scores a candidate against a search on a 0-100 scale.
// The year term contributes only when both years are known.
func Confidence(searchTitle, candidateTitle string, searchYear, candidateYear *int) int {
	score := Similarity(searchTitle, candidateTitle) * TitleWeight
	if searchYear != nil && candidateYear != nil {
		diff := *searchYear - *candidateYear
		if diff < 0 {
			diff = -diff
		}
		score += float64(max(0, YearWeight-YearPenaltyPerYear*diff))
	}
	return int(math.Round(score))
}
