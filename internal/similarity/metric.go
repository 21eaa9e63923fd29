package similarity

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// ErrInvalidText marks content that cannot be compared (not valid UTF-8).
var ErrInvalidText = errors.New("text is not valid UTF-8")

type Algorithm string

const (
	Levenshtein        Algorithm = "levenshtein"
	DamerauLevenshtein Algorithm = "damerau-levenshtein"
)

// Metric scores two normalized texts in [0,1], 1 meaning identical.
// Implementations hold no mutable state and are safe for concurrent use.
type Metric interface {
	Name() string
	Score(a, b string) (float64, error)
}

// New returns the metric for alg. An empty algorithm selects Levenshtein.
func New(alg Algorithm) (Metric, error) {
	switch alg {
	case "", Levenshtein:
		return editDistance{name: string(Levenshtein), distance: edlib.LevenshteinDistance}, nil
	case DamerauLevenshtein:
		return editDistance{name: string(DamerauLevenshtein), distance: edlib.DamerauLevenshteinDistance}, nil
	default:
		return nil, fmt.Errorf("unknown similarity algorithm %q", alg)
	}
}

type editDistance struct {
	name     string
	distance func(a, b string) int
}

func (m editDistance) Name() string {
	return m.name
}

// Score is 1 - distance/max(runes(a), runes(b)).
func (m editDistance) Score(a, b string) (float64, error) {
	if !utf8.ValidString(a) || !utf8.ValidString(b) {
		return 0, ErrInvalidText
	}
	if a == b {
		return 1.0, nil
	}

	lenA := utf8.RuneCountInString(a)
	lenB := utf8.RuneCountInString(b)
	if lenA == 0 || lenB == 0 {
		return 0.0, nil
	}

	return Normalize(m.distance(a, b), lenA, lenB), nil
}

// Normalize turns an edit distance into a similarity using the longer length.
// Two empty strings are identical.
func Normalize(distance, lenA, lenB int) float64 {
	longest := max(lenA, lenB)
	if longest == 0 {
		return 1.0
	}
	score := 1.0 - float64(distance)/float64(longest)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
