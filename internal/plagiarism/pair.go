package plagiarism

import (
	"github.com/RishiKendai/cheatcheck/internal/corpus"
)

// Pair is an unordered combination of two distinct documents.
// I < J index into the document sequence the pair was enumerated from.
type Pair struct {
	Index int    `json:"-"`
	I     int    `json:"-"`
	J     int    `json:"-"`
	A     string `json:"a"`
	B     string `json:"b"`
}

// Canonical returns the pair's identities in lexicographic order.
func (p Pair) Canonical() (string, string) {
	if p.A <= p.B {
		return p.A, p.B
	}
	return p.B, p.A
}

// Key is stable regardless of which side each identity sits on.
func (p Pair) Key() string {
	return getPairKey(p.A, p.B)
}

// PairCount is n·(n−1)/2.
func PairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// Enumerate yields every unordered pair once, ascending by first index then second.
func Enumerate(docs []corpus.Document) []Pair {
	pairs := make([]Pair, 0, PairCount(len(docs)))
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			pairs = append(pairs, Pair{
				Index: len(pairs),
				I:     i,
				J:     j,
				A:     docs[i].ID,
				B:     docs[j].ID,
			})
		}
	}
	return pairs
}

// Chunk splits pairs into at most n contiguous, roughly equal slices.
func Chunk(pairs []Pair, n int) [][]Pair {
	if len(pairs) == 0 {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	if n > len(pairs) {
		n = len(pairs)
	}

	chunks := make([][]Pair, 0, n)
	base, extra := len(pairs)/n, len(pairs)%n
	start := 0
	for c := 0; c < n; c++ {
		size := base
		if c < extra {
			size++
		}
		chunks = append(chunks, pairs[start:start+size])
		start += size
	}
	return chunks
}

// getPairKey creates a sorted key for a pair to avoid duplicates
func getPairKey(id1, id2 string) string {
	if id1 < id2 {
		return id1 + "|" + id2
	}
	return id2 + "|" + id1
}
